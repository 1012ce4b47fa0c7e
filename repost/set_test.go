package repost

import (
	"testing"
	"time"

	"repost-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h, m, s int) time.Time {
	return time.Date(2022, 5, 1, h, m, s, 0, time.UTC)
}

func message(id uint64, created time.Time) *models.Message {
	return &models.Message{ID: id, ServerID: 1, ChannelID: 1, CreatedAt: created}
}

func render(t *testing.T, s *Set, ref time.Time) string {
	t.Helper()
	out, ok := s.Render(ref)
	require.True(t, ok)
	return out
}

func TestEmptySetRendersNothing(t *testing.T) {
	_, ok := NewSet().Render(at(1, 0, 0))
	assert.False(t, ok)

	var zero Set
	_, ok = zero.Render(at(1, 0, 0))
	assert.False(t, ok)
}

func TestAddIsIdempotent(t *testing.T) {
	s := NewSet()
	msg := message(1, at(1, 0, 0))
	s.Add(msg, Image)
	s.Add(msg, Image)
	s.Add(message(1, at(1, 0, 0)), Image)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []Kind{Image}, s.Kinds())
}

func TestMerge(t *testing.T) {
	overlap := NewSet()
	other := NewSet()
	overlap.Add(message(1, at(1, 0, 0)), Image)
	other.Add(message(1, at(1, 0, 0)), Image)
	overlap.Merge(other)
	assert.Equal(t, 1, overlap.Len())

	disjoint := NewSet()
	other = NewSet()
	disjoint.Add(message(1, at(1, 0, 0)), Image)
	other.Add(message(2, at(1, 0, 1)), Link)
	disjoint.Merge(other)
	disjoint.Merge(nil)
	assert.Equal(t, 2, disjoint.Len())
	assert.Equal(t, []Kind{Image, Link}, disjoint.Kinds())
}

func TestRenderSingle(t *testing.T) {
	tests := []struct {
		name  string
		kinds []Kind
		want  string
	}{
		{"image", []Kind{Image}, "🚨 IMAGE 🚨 REPOST 🚨 1h https://discord.com/channels/1/1/1"},
		{"link", []Kind{Link}, "🚨 LINK 🚨 REPOST 🚨 1h https://discord.com/channels/1/1/1"},
		{"both", []Kind{Link, Image}, "🚨 IMAGE/LINK 🚨 REPOST 🚨 1h https://discord.com/channels/1/1/1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSet()
			for _, k := range tt.kinds {
				s.Add(message(1, at(1, 0, 0)), k)
			}
			assert.Equal(t, tt.want, render(t, s, at(2, 0, 0)))
		})
	}
}

func TestRenderMultipleSameKind(t *testing.T) {
	s := NewSetFromMessages([]*models.Message{message(2, at(2, 0, 0)), message(1, at(1, 0, 0))}, Link)

	assert.Equal(t,
		"🚨 LINK 🚨 REPOST 🚨\n"+
			"2h https://discord.com/channels/1/1/1\n"+
			"1h https://discord.com/channels/1/1/2",
		render(t, s, at(3, 0, 0)))
}

func TestRenderMixedKinds(t *testing.T) {
	s := NewSet()
	s.Add(message(1, at(1, 0, 0)), Image)
	s.Add(message(2, at(2, 0, 0)), Link)

	assert.Equal(t,
		"🚨 IMAGE/LINK 🚨 REPOST 🚨\n"+
			"🖼️ 2h https://discord.com/channels/1/1/1\n"+
			"🔗 1h https://discord.com/channels/1/1/2",
		render(t, s, at(3, 0, 0)))

	s.Add(message(2, at(2, 0, 0)), Image)
	assert.Equal(t,
		"🚨 IMAGE/LINK 🚨 REPOST 🚨\n"+
			"🖼️ 2h https://discord.com/channels/1/1/1\n"+
			"🔗🖼️ 1h https://discord.com/channels/1/1/2",
		render(t, s, at(3, 0, 0)))
}

func TestRenderFutureMessageHasNoAge(t *testing.T) {
	s := NewSet()
	s.Add(message(1, at(3, 0, 0)), Link)
	assert.Equal(t, "🚨 LINK 🚨 REPOST 🚨  https://discord.com/channels/1/1/1", render(t, s, at(2, 0, 0)))
}
