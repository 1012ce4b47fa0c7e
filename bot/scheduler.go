package bot

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Maintainer is the storage side of the maintenance job.
type Maintainer interface {
	DeleteOrphanLinks(ctx context.Context) (int64, error)
}

// Pruner drops expired cache entries.
type Pruner interface {
	Prune() int
}

// Scheduler runs periodic maintenance.
type Scheduler struct {
	cron  *cron.Cron
	store Maintainer
	cache Pruner
	log   zerolog.Logger
}

// NewScheduler registers the maintenance job on spec, a cron expression or
// descriptor such as "@daily".
func NewScheduler(spec string, store Maintainer, cache Pruner, logger zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:  cron.New(),
		store: store,
		cache: cache,
		log:   logger.With().Str("component", "scheduler").Logger(),
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Maintain(context.Background()) }); err != nil {
		return nil, fmt.Errorf("could not set up cron job %q: %w", spec, err)
	}
	return s, nil
}

// Maintain purges links no message references and expired cache entries.
func (s *Scheduler) Maintain(ctx context.Context) {
	s.log.Info().Msg("Running maintenance...")
	if n, err := s.store.DeleteOrphanLinks(ctx); err != nil {
		s.log.Error().Err(err).Msg("failed to delete orphan links")
	} else {
		s.log.Info().Int64("links", n).Msg("orphan links deleted")
	}
	pruned := s.cache.Prune()
	s.log.Info().Int("entries", pruned).Msg("metadata cache pruned")
}

// Start starts the cron jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started.")
}

// Stop stops the cron jobs and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped.")
}
