package handlers

import (
	"repost-bot/command"

	"github.com/bwmarrin/discordgo"
)

// CommandDispatcher is the central handler for all application command interactions.
// Permission checks happen in the command service; refusals are only shown to the caller.
func (h *Handler) CommandDispatcher(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	inv := command.Invocation{Name: data.Name, GuildID: i.GuildID, Member: i.Member}
	if i.Member != nil && i.Member.User != nil {
		inv.UserID = i.Member.User.ID
	} else if i.User != nil {
		inv.UserID = i.User.ID
	}
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionSubCommand {
			inv.Args = append(inv.Args, opt.Name)
		}
	}

	content, err := h.commands.Execute(h.ctx, inv)
	flags := discordgo.MessageFlags(0)
	if err != nil {
		h.log.Warn().Err(err).Str("command", inv.Name).Msg("command failed")
		content = "🚫内部错误：" + err.Error()
		flags = discordgo.MessageFlagsEphemeral
	} else if command.Ephemeral(content) {
		flags = discordgo.MessageFlagsEphemeral
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
			AllowedMentions: &discordgo.MessageAllowedMentions{
				Parse: []discordgo.AllowedMentionType{},
			},
		},
	})
	if err != nil {
		h.log.Error().Err(err).Str("command", inv.Name).Msg("failed to respond to interaction")
	}
}
