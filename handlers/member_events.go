package handlers

import (
	"github.com/bwmarrin/discordgo"
)

// MemberUpdate records a member's name and server nickname.
func (h *Handler) MemberUpdate(_ *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	if m.Member == nil {
		return
	}
	if err := h.pipeline.RecordMember(h.ctx, m.Member); err != nil {
		h.log.Error().Err(err).Str("server", m.GuildID).Msg("failed to record member")
	}
}
