package handlers

import (
	"repost-bot/cache"
	"repost-bot/models"

	"github.com/bwmarrin/discordgo"
)

// GuildCreate syncs a server's channels once its state is available,
// records the newest message of every readable channel so reconciliation
// has an anchor, and starts the server's reconciliation loop.
func (h *Handler) GuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	server, err := models.ParseID(g.ID)
	if err != nil {
		h.log.Warn().Err(err).Msg("guild create with invalid id")
		return
	}
	log := h.log.With().Uint64("server", server).Logger()

	if err := h.store.UpsertServer(h.ctx, server, g.Name); err != nil {
		log.Error().Err(err).Msg("failed to update server name")
	} else {
		h.cache.Mark(cache.Server, server)
	}

	current := make(map[uint64]*discordgo.Channel, len(g.Channels)+len(g.Threads))
	for _, ch := range append(append([]*discordgo.Channel(nil), g.Channels...), g.Threads...) {
		if ch == nil || !indexable(ch) {
			continue
		}
		id, err := models.ParseID(ch.ID)
		if err != nil {
			continue
		}
		current[id] = ch
	}

	// Archived threads are not part of the snapshot, so a missing channel
	// is only hidden. Rows go away on an explicit channel delete.
	stored, err := h.store.Channels(h.ctx, server)
	if err != nil {
		log.Error().Err(err).Msg("failed to load stored channels")
	}
	for _, ch := range stored {
		if _, ok := current[ch.ID]; ok || !ch.Visible {
			continue
		}
		log.Info().Str("name", ch.Name).Uint64("channel", ch.ID).Msg("stored channel not in server snapshot, hiding")
		if err := h.store.SetChannelVisibility(h.ctx, ch.ID, false); err != nil {
			log.Error().Err(err).Uint64("channel", ch.ID).Msg("failed to hide channel")
		}
		h.cache.Forget(cache.Channel, ch.ID)
	}

	var readable []uint64
	for id, ch := range current {
		ch.GuildID = g.ID
		visible := canRead(s, readTarget(ch))
		h.syncChannel(ch, visible)
		if visible {
			readable = append(readable, id)
		}
	}
	log.Info().Int("channels", len(current)).Int("readable", len(readable)).Msg("server channels synced")

	for _, channel := range readable {
		h.recordLatest(server, channel)
	}

	if h.loops != nil && h.loops.Start(h.ctx, server) {
		log.Info().Msg("reconciliation loop started")
	}
}

// readTarget is the channel whose permissions govern ch. Threads follow
// their parent.
func readTarget(ch *discordgo.Channel) string {
	if ch.IsThread() && ch.ParentID != "" {
		return ch.ParentID
	}
	return ch.ID
}

// recordLatest stores the newest message of a channel without processing it.
func (h *Handler) recordLatest(server, channel uint64) {
	if h.history == nil {
		return
	}
	msgs, err := h.history.ChannelMessages(models.FormatID(channel), 1, "", "", "", discordgo.WithContext(h.ctx))
	if err != nil {
		h.log.Warn().Err(err).Uint64("channel", channel).Msg("failed to load most recent message")
		return
	}
	if len(msgs) == 0 || msgs[0].Author == nil || msgs[0].Author.Bot {
		return
	}
	id, err := models.ParseID(msgs[0].ID)
	if err != nil {
		return
	}
	author, err := models.ParseID(msgs[0].Author.ID)
	if err != nil {
		return
	}
	if _, err := h.store.UpsertMessage(h.ctx, id, channel, server, &author); err != nil {
		h.log.Error().Err(err).Uint64("message", id).Msg("db add message")
	}
}
