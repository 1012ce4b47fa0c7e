package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
)

// RecentWindow is how long after creation a message still counts as fresh
// enough to receive a reply for content that arrived in an edit.
const RecentWindow = 15 * time.Second

// Message is a ledger record. Two records with the same ID are the same message.
type Message struct {
	ID        uint64    `json:"id"`
	ServerID  uint64    `json:"server_id"`
	ChannelID uint64    `json:"channel_id"`
	AuthorID  *uint64   `json:"author_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	RepostCheckedAt *time.Time `json:"repost_checked_at,omitempty"`
	EmbedCheckedAt  *time.Time `json:"embed_checked_at,omitempty"`
	SoftDeletedAt   *time.Time `json:"soft_deleted_at,omitempty"`
	CheckedOldAt    *time.Time `json:"checked_old_at,omitempty"`
}

func (m *Message) IsRepostChecked() bool { return m.RepostCheckedAt != nil }
func (m *Message) IsEmbedChecked() bool  { return m.EmbedCheckedAt != nil }
func (m *Message) IsDeleted() bool       { return m.SoftDeletedAt != nil }
func (m *Message) IsCheckedOld() bool    { return m.CheckedOldAt != nil }

// IsFullyProcessed reports whether both the link and the image stages have run.
func (m *Message) IsFullyProcessed() bool {
	return m.IsRepostChecked() && m.IsEmbedChecked()
}

// IsRecent reports whether the message was created less than RecentWindow before now.
func (m *Message) IsRecent(now time.Time) bool {
	age := now.Sub(m.CreatedAt)
	return age >= 0 && age < RecentWindow
}

// Age returns the span between creation and ref. ok is false when ref is
// earlier than the creation time.
func (m *Message) Age(ref time.Time) (time.Duration, bool) {
	d := ref.Sub(m.CreatedAt)
	if d < 0 {
		return 0, false
	}
	return d, true
}

// Permalink is the jump URL of the message.
func (m *Message) Permalink() string {
	return fmt.Sprintf("https://discord.com/channels/%d/%d/%d", m.ServerID, m.ChannelID, m.ID)
}

// Equal compares identity only.
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.ID == other.ID
}

// ParseID converts a snowflake string into its numeric form.
func ParseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", s, err)
	}
	return id, nil
}

// FormatID is the inverse of ParseID.
func FormatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// SnowflakeTime extracts the creation time encoded in a snowflake.
func SnowflakeTime(id uint64) time.Time {
	t, err := discordgo.SnowflakeTimestamp(FormatID(id))
	if err != nil {
		return time.Time{}
	}
	return t
}
