// Package reconcile keeps the ledger converging on the platform's message
// history. One loop per server re-reads history around the newest message
// that still needs a check, so messages missed while offline get indexed and
// deleted messages get noticed.
package reconcile

import (
	"context"
	"math/rand/v2"
	"time"

	"repost-bot/database"
	"repost-bot/errs"
	"repost-bot/models"
	"repost-bot/observability"
	"repost-bot/processor"
	"repost-bot/reply"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// BatchSize is the number of messages requested per pass.
const BatchSize = 50

// History fetches a page of channel messages. *discordgo.Session satisfies it.
type History interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// Pipeline ingests one message.
type Pipeline interface {
	Process(ctx context.Context, msg *discordgo.Message, mode processor.Mode) (*reply.Reply, error)
}

// Scheduler runs reconciliation passes. A single Scheduler is shared by all
// server loops; its limiter bounds the combined history request rate.
type Scheduler struct {
	store     database.MutableStore
	history   History
	pipeline  Pipeline
	limiter   *rate.Limiter
	cfg       models.ReconcileConfig
	randFloat func() float64
	randIntN  func(n int) int
	log       zerolog.Logger
}

type Option func(*Scheduler)

// WithRand replaces the random sources used by the idle probe.
func WithRand(float func() float64, intN func(n int) int) Option {
	return func(s *Scheduler) {
		s.randFloat = float
		s.randIntN = intN
	}
}

func NewScheduler(store database.MutableStore, history History, pipeline Pipeline, cfg models.ReconcileConfig, logger zerolog.Logger, opts ...Option) *Scheduler {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	s := &Scheduler{
		store:     store,
		history:   history,
		pipeline:  pipeline,
		limiter:   rate.NewLimiter(limit, burst),
		cfg:       cfg,
		randFloat: rand.Float64,
		randIntN:  rand.IntN,
		log:       logger.With().Str("component", "reconcile").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pass runs one reconciliation step for server and returns how many
// messages the platform returned.
func (s *Scheduler) Pass(ctx context.Context, server uint64) (int, error) {
	log := s.log.With().Uint64("server", server).Logger()

	anchor, err := s.store.NewestUnchecked(ctx, server)
	if err != nil {
		observability.ReconcilePasses.WithLabelValues("error").Inc()
		return 0, err
	}

	var channel uint64
	around := ""
	if anchor != nil {
		channel = anchor.ChannelID
		around = models.FormatID(anchor.ID)
	} else {
		// Nothing outstanding. Only occasionally look for messages that
		// arrived while no live events were received.
		if s.randFloat() > s.cfg.IdleProbeChance {
			observability.ReconcilePasses.WithLabelValues("skipped").Inc()
			return 0, nil
		}
		channels, err := s.store.KnownChannels(ctx, server)
		if err != nil {
			observability.ReconcilePasses.WithLabelValues("error").Inc()
			return 0, err
		}
		if len(channels) == 0 {
			observability.ReconcilePasses.WithLabelValues("skipped").Inc()
			return 0, nil
		}
		channel = channels[s.randIntN(len(channels))].ID
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	msgs, err := s.history.ChannelMessages(models.FormatID(channel), BatchSize, "", "", around, discordgo.WithContext(ctx))
	if err != nil {
		observability.ReconcilePasses.WithLabelValues("error").Inc()
		err = errs.FromDiscord("fetch history", err)
		if errs.Is(err, errs.Permission) || errs.Is(err, errs.NotFound) {
			log.Warn().Err(err).Uint64("channel", channel).Msg("history unavailable, marking channel hidden")
			if verr := s.store.SetChannelVisibility(ctx, channel, false); verr != nil {
				log.Error().Err(verr).Msg("failed to hide channel")
			}
		}
		return 0, err
	}
	observability.ReconcileFetched.Add(float64(len(msgs)))

	if len(msgs) == 0 {
		log.Debug().Uint64("channel", channel).Msg("received no messages to process")
		observability.ReconcilePasses.WithLabelValues("idle").Inc()
		return 0, nil
	}
	log.Info().Int("count", len(msgs)).Uint64("channel", channel).Str("around", around).Msg("received history")

	seen := make(map[uint64]struct{}, len(msgs))
	for _, msg := range msgs {
		id, err := models.ParseID(msg.ID)
		if err != nil {
			log.Warn().Err(err).Msg("skipping message with invalid id")
			continue
		}
		seen[id] = struct{}{}

		if !processor.Ingestible(msg) {
			if anchor != nil && anchor.ID == id {
				log.Warn().Uint64("message", id).Msg("anchor is a bot or system message")
				if err := s.softDelete(ctx, id, "not_regular"); err != nil {
					return len(msgs), err
				}
			}
			continue
		}

		before, err := s.store.GetMessage(ctx, id)
		if err != nil {
			return len(msgs), err
		}
		if msg.GuildID == "" {
			msg.GuildID = models.FormatID(server)
		}
		if _, err := s.pipeline.Process(ctx, msg, processor.Historical); err != nil {
			log.Warn().Err(err).Uint64("message", id).Msg("failed to process old message")
		}

		if before == nil {
			log.Debug().Uint64("message", id).Msg("message not already in db, must have been sent while offline")
			continue
		}
		if !before.IsDeleted() && !before.IsCheckedOld() {
			if err := s.store.MarkCheckedOld(ctx, id); err != nil {
				return len(msgs), err
			}
		}
	}

	if anchor != nil {
		if _, ok := seen[anchor.ID]; !ok {
			log.Warn().Uint64("message", anchor.ID).Msg("anchor missing from history")
			if err := s.softDelete(ctx, anchor.ID, "missing"); err != nil {
				return len(msgs), err
			}
		}
	}

	observability.ReconcilePasses.WithLabelValues("work").Inc()
	return len(msgs), nil
}

func (s *Scheduler) softDelete(ctx context.Context, id uint64, reason string) error {
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return err
	}
	observability.SoftDeletes.WithLabelValues(reason).Inc()
	return nil
}

// Interval is the pause after a pass that returned n messages and err.
func (s *Scheduler) Interval(n int, err error) time.Duration {
	switch {
	case err != nil:
		return s.cfg.ErrorInterval
	case n == 0:
		return s.cfg.IdleInterval
	default:
		return s.cfg.ActiveInterval
	}
}

// Run repeats Pass until ctx is done. A value on wake cuts the current pause short.
func (s *Scheduler) Run(ctx context.Context, server uint64, wake <-chan struct{}) {
	for {
		n, err := s.Pass(ctx, server)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.Warn().Err(err).Uint64("server", server).Msg("reconciliation pass failed")
		}

		wait := s.Interval(n, err)
		s.log.Trace().Uint64("server", server).Dur("sleep", wait).Msg("reconciliation sleeping")
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}
