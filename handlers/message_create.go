package handlers

import (
	"repost-bot/errs"
	"repost-bot/processor"

	"github.com/bwmarrin/discordgo"
)

// MessageCreate runs every new message through the pipeline and sends the
// repost notice, if any.
func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || (s != nil && s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	log := h.log.With().Str("message", m.ID).Str("channel", m.ChannelID).Logger()

	r, err := h.pipeline.Process(h.ctx, m.Message, processor.Live)
	if err != nil {
		if errs.Is(err, errs.Precondition) {
			log.Debug().Err(err).Msg("skipped message")
		} else {
			log.Error().Err(err).Msg("failed to process message")
		}
		return
	}

	if r != nil {
		if err := h.sender.Send(h.ctx, *r); err != nil {
			log.Error().Err(err).Msg("failed to send reply")
		}
	}

	if err := h.pipeline.RecordNickname(h.ctx, m.Message); err != nil {
		log.Warn().Err(err).Msg("failed to record nickname")
	}
}

// MessageUpdate re-checks images of an edited message.
func (h *Handler) MessageUpdate(_ *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.Message == nil {
		return
	}
	log := h.log.With().Str("message", m.ID).Logger()
	log.Debug().Int("embeds", len(m.Embeds)).Int("attachments", len(m.Attachments)).Msg("received message update")

	r, err := h.pipeline.ProcessUpdate(h.ctx, m.Message)
	if err != nil {
		log.Error().Err(err).Msg("failed to process message update")
		return
	}
	if r != nil {
		if err := h.sender.Send(h.ctx, *r); err != nil {
			log.Error().Err(err).Msg("failed to send reply")
		}
	}
}
