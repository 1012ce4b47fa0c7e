// Package repost accumulates repost hits for one inbound message and renders
// them as a single notice.
package repost

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"repost-bot/models"
)

type hit struct {
	msg   *models.Message
	kinds map[Kind]struct{}
}

// Set maps earlier messages to the kinds of content they share with the
// message being processed. The zero value is ready to use.
type Set struct {
	hits  map[uint64]*hit
	kinds map[Kind]struct{}
}

func NewSet() *Set { return &Set{} }

// NewSetFromMessages builds a set where every message matched with kind.
func NewSetFromMessages(msgs []*models.Message, kind Kind) *Set {
	s := NewSet()
	for _, m := range msgs {
		s.Add(m, kind)
	}
	return s
}

// Add records that msg matched with kind. Adding the same pair twice is a no-op.
func (s *Set) Add(msg *models.Message, kind Kind) {
	if s.hits == nil {
		s.hits = make(map[uint64]*hit)
		s.kinds = make(map[Kind]struct{})
	}
	h, ok := s.hits[msg.ID]
	if !ok {
		h = &hit{msg: msg, kinds: make(map[Kind]struct{}, 2)}
		s.hits[msg.ID] = h
	}
	h.kinds[kind] = struct{}{}
	s.kinds[kind] = struct{}{}
}

// Merge adds every (message, kind) pair of other.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for _, h := range other.hits {
		for k := range h.kinds {
			s.Add(h.msg, k)
		}
	}
}

// Len is the number of distinct matched messages.
func (s *Set) Len() int { return len(s.hits) }

// Kinds returns the kinds present in the set, sorted by long label.
func (s *Set) Kinds() []Kind { return sortedKinds(s.kinds, Kind.Long) }

// Render produces the notice text, or false when the set is empty. Ages are
// measured up to ref, normally the creation time of the reposting message.
func (s *Set) Render(ref time.Time) (string, bool) {
	switch len(s.hits) {
	case 0:
		return "", false
	case 1:
		for _, h := range s.hits {
			return fmt.Sprintf("🚨 %s 🚨 REPOST 🚨 %s", longLabel(h.kinds), line(h.msg, ref)), true
		}
	}

	ordered := make([]*hit, 0, len(s.hits))
	for _, h := range s.hits {
		ordered = append(ordered, h)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i].msg, ordered[j].msg
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	mixed := len(s.kinds) > 1
	lines := make([]string, 0, len(ordered))
	for _, h := range ordered {
		text := line(h.msg, ref)
		if mixed {
			text = shortLabel(h.kinds) + " " + text
		}
		lines = append(lines, text)
	}
	return fmt.Sprintf("🚨 %s 🚨 REPOST 🚨\n%s", longLabel(s.kinds), strings.Join(lines, "\n")), true
}

func line(msg *models.Message, ref time.Time) string {
	age := ""
	if d, ok := msg.Age(ref); ok {
		age = FormatDuration(d)
	}
	return age + " " + msg.Permalink()
}

func longLabel(kinds map[Kind]struct{}) string {
	return joinLabels(kinds, Kind.Long, "/")
}

func shortLabel(kinds map[Kind]struct{}) string {
	return joinLabels(kinds, Kind.Short, "")
}

func joinLabels(kinds map[Kind]struct{}, label func(Kind) string, sep string) string {
	labels := make([]string, 0, len(kinds))
	for k := range kinds {
		labels = append(labels, label(k))
	}
	sort.Strings(labels)
	return strings.Join(labels, sep)
}

func sortedKinds(kinds map[Kind]struct{}, label func(Kind) string) []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return label(out[i]) < label(out[j]) })
	return out
}
