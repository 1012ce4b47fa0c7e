// Package cache suppresses repeated writes of slowly changing metadata.
package cache

import (
	"fmt"
	"sync"
	"time"

	"repost-bot/errs"
)

// Kind is the type of fact being cached. Each kind has a fixed TTL.
type Kind uint8

const (
	Author Kind = iota
	Server
	Channel
)

const (
	AuthorTTL  = 3 * time.Hour
	ServerTTL  = 24 * time.Hour
	ChannelTTL = 6 * time.Hour
)

func (k Kind) String() string {
	switch k {
	case Author:
		return "author"
	case Server:
		return "server"
	case Channel:
		return "channel"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// TTL returns how long a write of this kind suppresses further writes.
func (k Kind) TTL() time.Duration {
	switch k {
	case Author:
		return AuthorTTL
	case Server:
		return ServerTTL
	default:
		return ChannelTTL
	}
}

type key struct {
	kind Kind
	id   uint64
}

// Observer is notified of cache decisions. Used for metrics.
type Observer func(kind Kind, wrote bool)

// Metadata remembers when each (kind, id) fact was last written.
type Metadata struct {
	mu      sync.RWMutex
	written map[key]time.Time
	now     func() time.Time
	observe Observer
}

type Option func(*Metadata)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Metadata) { m.now = now }
}

func WithObserver(o Observer) Option {
	return func(m *Metadata) { m.observe = o }
}

func New(opts ...Option) *Metadata {
	m := &Metadata{
		written: make(map[key]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ShouldWrite reports whether the fact is absent or older than its TTL.
// A true result must be followed by Mark once the write succeeds.
func (m *Metadata) ShouldWrite(kind Kind, id uint64) bool {
	m.mu.RLock()
	at, ok := m.written[key{kind, id}]
	m.mu.RUnlock()
	return !ok || m.now().Sub(at) >= kind.TTL()
}

// Mark records a successful write.
func (m *Metadata) Mark(kind Kind, id uint64) {
	m.mu.Lock()
	m.written[key{kind, id}] = m.now()
	m.mu.Unlock()
}

// Forget drops the entry so the next ShouldWrite returns true.
func (m *Metadata) Forget(kind Kind, id uint64) {
	m.mu.Lock()
	delete(m.written, key{kind, id})
	m.mu.Unlock()
}

// Do runs write when the fact is due and marks it only if write succeeded.
// Write errors are returned to the caller unchanged.
func (m *Metadata) Do(kind Kind, id uint64, write func() error) error {
	if m == nil {
		return errs.E(errs.Internal, "metadata cache", fmt.Errorf("cache not initialised"))
	}
	if !m.ShouldWrite(kind, id) {
		m.notify(kind, false)
		return nil
	}
	if err := write(); err != nil {
		return err
	}
	m.Mark(kind, id)
	m.notify(kind, true)
	return nil
}

// Prune removes expired entries and returns how many were dropped.
func (m *Metadata) Prune() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, at := range m.written {
		if now.Sub(at) >= k.kind.TTL() {
			delete(m.written, k)
			n++
		}
	}
	return n
}

// Len is the number of cached entries.
func (m *Metadata) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.written)
}

func (m *Metadata) notify(kind Kind, wrote bool) {
	if m.observe != nil {
		m.observe(kind, wrote)
	}
}
