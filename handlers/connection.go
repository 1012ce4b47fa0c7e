package handlers

import (
	"repost-bot/observability"

	"github.com/bwmarrin/discordgo"
)

// Ready logs when the bot is connected.
func (h *Handler) Ready(s *discordgo.Session, r *discordgo.Ready) {
	h.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Logged in")
	h.setConnected(true)
}

func (h *Handler) Resumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	h.log.Info().Msg("gateway session resumed")
	h.setConnected(true)
}

func (h *Handler) Disconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	h.log.Warn().Msg("gateway disconnected")
	h.setConnected(false)
}

func (h *Handler) setConnected(up bool) {
	if up {
		observability.GatewayConnected.Set(1)
	} else {
		observability.GatewayConnected.Set(0)
	}
	h.connected(up)
}
