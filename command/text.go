package command

import (
	"context"
	"strings"

	"repost-bot/reply"

	"github.com/bwmarrin/discordgo"
)

// IsCommand reports whether content starts with the command prefix.
func (s *Service) IsCommand(content string) bool {
	return s.prefix.MatchString(content)
}

// Parse splits a text command into an invocation. ok is false when content
// is not a command.
func (s *Service) Parse(content string) (Invocation, bool) {
	loc := s.prefix.FindStringIndex(content)
	if loc == nil {
		return Invocation{}, false
	}
	fields := strings.Fields(strings.ToLower(content[loc[1]:]))
	if len(fields) == 0 {
		return Invocation{}, true
	}
	return Invocation{Name: fields[0], Args: fields[1:]}, true
}

// Run executes the text command in msg. Listings are posted to the channel;
// everything else answers the message.
func (s *Service) Run(ctx context.Context, msg *discordgo.Message) (*reply.Reply, error) {
	inv, ok := s.Parse(msg.Content)
	if !ok {
		return nil, nil
	}
	inv.GuildID = msg.GuildID
	inv.Member = msg.Member
	if msg.Author != nil {
		inv.UserID = msg.Author.ID
	}

	text, err := s.Execute(ctx, inv)
	if err != nil {
		return nil, err
	}

	var r reply.Reply
	switch inv.Name {
	case "reposts", "reposters", "pins":
		r = reply.InChannel(msg.ChannelID, text)
	default:
		r = reply.To(msg, text)
	}
	return &r, nil
}
