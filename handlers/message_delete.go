package handlers

import (
	"repost-bot/models"

	"github.com/bwmarrin/discordgo"
)

// MessageDelete removes a message the platform confirms is gone.
func (h *Handler) MessageDelete(_ *discordgo.Session, m *discordgo.MessageDelete) {
	h.hardDelete(m.ID)
}

func (h *Handler) MessageDeleteBulk(_ *discordgo.Session, m *discordgo.MessageDeleteBulk) {
	for _, id := range m.Messages {
		h.hardDelete(id)
	}
}

func (h *Handler) hardDelete(raw string) {
	id, err := models.ParseID(raw)
	if err != nil {
		h.log.Warn().Err(err).Msg("delete for invalid message id")
		return
	}
	if err := h.store.HardDelete(h.ctx, id); err != nil {
		h.log.Error().Err(err).Uint64("message", id).Msg("failed to delete message")
		return
	}
	h.log.Info().Uint64("message", id).Msg("successfully deleted message from db")
}
