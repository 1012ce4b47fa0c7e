// Package reply delivers repost notices, editing an earlier notice for the
// same source message instead of sending a second one.
package reply

import (
	"context"

	"repost-bot/database"
	"repost-bot/errs"
	"repost-bot/models"
	"repost-bot/observability"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// TargetKind says where a reply goes.
type TargetKind uint8

const (
	// ToChannel posts a plain message in a channel.
	ToChannel TargetKind = iota
	// ToMessage replies to a message the caller holds.
	ToMessage
	// ToMessageID replies to a message known only by id and channel.
	ToMessageID
)

// Target owns the ids it needs so a Reply can outlive the event that produced it.
type Target struct {
	Kind      TargetKind
	ChannelID string
	MessageID string
	GuildID   string
}

// Reply is rendered text plus where to deliver it.
type Reply struct {
	Content string
	Target  Target
}

func InChannel(channelID, content string) Reply {
	return Reply{Content: content, Target: Target{Kind: ToChannel, ChannelID: channelID}}
}

// To replies to m.
func To(m *discordgo.Message, content string) Reply {
	return Reply{Content: content, Target: Target{Kind: ToMessage, ChannelID: m.ChannelID, MessageID: m.ID, GuildID: m.GuildID}}
}

// ToID replies to the message with the given id in channelID.
func ToID(messageID, channelID, content string) Reply {
	return Reply{Content: content, Target: Target{Kind: ToMessageID, ChannelID: channelID, MessageID: messageID}}
}

// Session is the part of *discordgo.Session used to deliver replies.
type Session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Store is the part of the ledger that remembers sent notices.
type Store interface {
	GetReply(ctx context.Context, repliedTo uint64) (*models.StoredReply, error)
	AddReply(ctx context.Context, r models.StoredReply) error
}

var _ Store = (database.MutableStore)(nil)

type Sender struct {
	session Session
	store   Store
	log     zerolog.Logger
}

func NewSender(session Session, store Store, logger zerolog.Logger) *Sender {
	return &Sender{session: session, store: store, log: logger.With().Str("component", "reply").Logger()}
}

// Send delivers r.
func (s *Sender) Send(ctx context.Context, r Reply) error {
	if r.Target.Kind == ToChannel {
		_, err := s.session.ChannelMessageSend(r.Target.ChannelID, r.Content, discordgo.WithContext(ctx))
		if err != nil {
			return errs.FromDiscord("send message", err)
		}
		observability.Replies.WithLabelValues("channel").Inc()
		return nil
	}

	repliedTo, err := models.ParseID(r.Target.MessageID)
	if err != nil {
		return errs.E(errs.Precondition, "send reply", err)
	}

	existing, err := s.store.GetReply(ctx, repliedTo)
	if err != nil {
		return err
	}
	if existing != nil {
		_, err := s.session.ChannelMessageEdit(models.FormatID(existing.ChannelID), models.FormatID(existing.ID), r.Content, discordgo.WithContext(ctx))
		if err == nil {
			observability.Replies.WithLabelValues("edited").Inc()
			return nil
		}
		err = errs.FromDiscord("edit reply", err)
		if !errs.Is(err, errs.NotFound) {
			return err
		}
		s.log.Info().Uint64("replied_to", repliedTo).Msg("previous notice is gone, sending a new one")
	}

	sent, err := s.session.ChannelMessageSendComplex(r.Target.ChannelID, &discordgo.MessageSend{
		Content: r.Content,
		Reference: &discordgo.MessageReference{
			MessageID: r.Target.MessageID,
			ChannelID: r.Target.ChannelID,
			GuildID:   r.Target.GuildID,
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse:       []discordgo.AllowedMentionType{},
			RepliedUser: false,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return errs.FromDiscord("send reply", err)
	}
	observability.Replies.WithLabelValues("sent").Inc()

	id, err := models.ParseID(sent.ID)
	if err != nil {
		return errs.E(errs.Internal, "send reply", err)
	}
	channel, err := models.ParseID(sent.ChannelID)
	if err != nil {
		channel, _ = models.ParseID(r.Target.ChannelID)
	}
	return s.store.AddReply(ctx, models.StoredReply{ID: id, ChannelID: channel, RepliedTo: repliedTo})
}
