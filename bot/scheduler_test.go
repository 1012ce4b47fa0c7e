package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMaintainer struct {
	calls int
	err   error
}

func (f *fakeMaintainer) DeleteOrphanLinks(context.Context) (int64, error) {
	f.calls++
	return 3, f.err
}

type fakePruner struct{ calls int }

func (f *fakePruner) Prune() int {
	f.calls++
	return 1
}

func TestMaintain(t *testing.T) {
	store, cache := &fakeMaintainer{}, &fakePruner{}
	s, err := NewScheduler("@daily", store, cache, zerolog.Nop())
	require.NoError(t, err)

	s.Maintain(context.Background())
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, 1, cache.calls)

	// a failing purge does not stop the prune
	store.err = errors.New("locked")
	s.Maintain(context.Background())
	assert.Equal(t, 2, cache.calls)
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler("every now and then", &fakeMaintainer{}, &fakePruner{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestSchedulerStartStop(t *testing.T) {
	s, err := NewScheduler("@hourly", &fakeMaintainer{}, &fakePruner{}, zerolog.Nop())
	require.NoError(t, err)
	s.Start()
	s.Stop()
}
