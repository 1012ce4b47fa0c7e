package database

import (
	"context"
	"database/sql"
	"errors"

	"repost-bot/errs"
	"repost-bot/models"
)

// AddReply remembers the notice sent for a message. A later notice for the
// same message replaces the stored one.
func (d *DB) AddReply(ctx context.Context, r models.StoredReply) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO reply (id, channel, replied_to) VALUES (?, ?, ?)
		ON CONFLICT(replied_to) DO UPDATE SET id = excluded.id, channel = excluded.channel`,
		r.ID, r.ChannelID, r.RepliedTo)
	return errs.FromStore("add reply", err)
}

// GetReply returns nil when no notice was sent for repliedTo.
func (d *DB) GetReply(ctx context.Context, repliedTo uint64) (*models.StoredReply, error) {
	var r models.StoredReply
	err := d.conn.QueryRowContext(ctx,
		`SELECT id, channel, replied_to FROM reply WHERE replied_to = ?`, repliedTo).
		Scan(&r.ID, &r.ChannelID, &r.RepliedTo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.FromStore("get reply", err)
	}
	return &r, nil
}
