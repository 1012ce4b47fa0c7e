package database

import (
	"context"

	"repost-bot/models"
)

// ImageCandidate is a stored fingerprint that passed the blocking-key prefilter.
type ImageCandidate struct {
	Message *models.Message
	Hash    string
}

// Store is the read side of the ledger.
type Store interface {
	Ping(ctx context.Context) error

	// GetMessage returns nil when the message is unknown.
	GetMessage(ctx context.Context, id uint64) (*models.Message, error)
	NewestUnchecked(ctx context.Context, server uint64) (*models.Message, error)
	KnownChannels(ctx context.Context, server uint64) ([]models.Channel, error)
	Channels(ctx context.Context, server uint64) ([]models.Channel, error)

	QueryLinks(ctx context.Context, link string, server, exclude uint64) ([]*models.Message, error)
	RepostsForMessage(ctx context.Context, message uint64) ([]*models.Message, error)
	ImageCandidates(ctx context.Context, hash string, keys [5]string, server, exclude uint64) ([]ImageCandidate, error)

	GetReply(ctx context.Context, repliedTo uint64) (*models.StoredReply, error)

	RepostList(ctx context.Context, server uint64) ([]models.RepostCount, error)
	TopReposters(ctx context.Context, server uint64) ([]models.ReposterCount, error)
	WordleDistribution(ctx context.Context, server uint64) ([]models.WordleScore, error)
}

// MutableStore adds the write operations. Code that only reads should accept a Store.
type MutableStore interface {
	Store

	UpsertMessage(ctx context.Context, id, channel, server uint64, author *uint64) (*models.Message, error)
	MarkFullyChecked(ctx context.Context, id uint64) error
	MarkCheckedOld(ctx context.Context, id uint64) error
	SoftDelete(ctx context.Context, id uint64) error
	HardDelete(ctx context.Context, id uint64) error

	UpsertServer(ctx context.Context, id uint64, name string) error
	UpsertUser(ctx context.Context, user models.User) error
	UpsertNickname(ctx context.Context, user, server uint64, nickname string) error
	UpsertChannel(ctx context.Context, channel models.Channel) error
	SetChannelVisibility(ctx context.Context, id uint64, visible bool) error
	DeleteChannel(ctx context.Context, id uint64) error

	InsertLink(ctx context.Context, link string, message uint64) error
	InsertImage(ctx context.Context, url, hash string, keys [5]string, message uint64) error
	AddReply(ctx context.Context, reply models.StoredReply) error

	DeleteOrphanLinks(ctx context.Context) (int64, error)
}

var _ MutableStore = (*DB)(nil)
