package handlers

import (
	"repost-bot/cache"
	"repost-bot/models"
	"repost-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// indexable reports whether messages of this channel type are processed.
func indexable(ch *discordgo.Channel) bool {
	switch ch.Type {
	case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildCategory, discordgo.ChannelTypeGuildStageVoice:
		return false
	}
	return true
}

func canRead(s *discordgo.Session, channelID string) bool {
	if s == nil || s.State == nil || s.State.User == nil {
		return false
	}
	return utils.CanReadHistory(s.State, s.State.User.ID, channelID)
}

func (h *Handler) ChannelCreate(s *discordgo.Session, c *discordgo.ChannelCreate) {
	h.syncChannel(c.Channel, canRead(s, c.ID))
}

func (h *Handler) ChannelUpdate(s *discordgo.Session, c *discordgo.ChannelUpdate) {
	visible := canRead(s, c.ID)
	h.log.Info().Str("channel", c.ID).Str("name", c.Name).Str("server", c.GuildID).Bool("visible", visible).Msg("received channel update")
	h.syncChannel(c.Channel, visible)
}

func (h *Handler) ChannelDelete(_ *discordgo.Session, c *discordgo.ChannelDelete) {
	id, err := models.ParseID(c.ID)
	if err != nil {
		return
	}
	if err := h.store.DeleteChannel(h.ctx, id); err != nil {
		h.log.Error().Err(err).Uint64("channel", id).Msg("failed to delete channel")
		return
	}
	h.cache.Forget(cache.Channel, id)
}

// syncChannel stores the channel and its visibility. The cache entry is
// dropped so the next message re-asserts what it implies.
func (h *Handler) syncChannel(ch *discordgo.Channel, visible bool) {
	if ch == nil || ch.GuildID == "" || !indexable(ch) {
		return
	}
	id, err := models.ParseID(ch.ID)
	if err != nil {
		return
	}
	server, err := models.ParseID(ch.GuildID)
	if err != nil {
		return
	}
	if err := h.store.UpsertServer(h.ctx, server, ""); err != nil {
		h.log.Error().Err(err).Uint64("server", server).Msg("failed to record server")
		return
	}
	err = h.store.UpsertChannel(h.ctx, models.Channel{ID: id, ServerID: server, Name: ch.Name, Visible: visible})
	if err != nil {
		h.log.Error().Err(err).Uint64("channel", id).Msg("failed to update channel")
		return
	}
	h.cache.Forget(cache.Channel, id)
}
