package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"repost-bot/errs"
	"repost-bot/models"
)

const messageColumns = `M.id, M.server, M.channel, M.author, M.created_at,
	M.parsed_repost, M.parsed_embed, M.deleted, M.checked_old`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner, extra ...any) (*models.Message, error) {
	var msg models.Message
	var author, repost, embed, deleted, checkedOld sql.NullInt64
	var created int64
	dest := append([]any{&msg.ID, &msg.ServerID, &msg.ChannelID, &author, &created,
		&repost, &embed, &deleted, &checkedOld}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if author.Valid {
		a := uint64(author.Int64)
		msg.AuthorID = &a
	}
	msg.CreatedAt = time.UnixMilli(created)
	msg.RepostCheckedAt = fromMillis(repost)
	msg.EmbedCheckedAt = fromMillis(embed)
	msg.SoftDeletedAt = fromMillis(deleted)
	msg.CheckedOldAt = fromMillis(checkedOld)
	return &msg, nil
}

func (d *DB) queryMessages(ctx context.Context, op, query string, args ...any) ([]*models.Message, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.FromStore(op, err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, errs.FromStore(op, err)
		}
		out = append(out, msg)
	}
	return out, errs.FromStore(op, rows.Err())
}

func (d *DB) GetMessage(ctx context.Context, id uint64) (*models.Message, error) {
	row := d.conn.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM message AS M WHERE M.id = ?`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.FromStore("get message", err)
	}
	return msg, nil
}

// UpsertMessage records a message on first sight. An existing row only has
// its author filled in, and only when the author was previously unknown.
func (d *DB) UpsertMessage(ctx context.Context, id, channel, server uint64, author *uint64) (*models.Message, error) {
	var authorArg any
	if author != nil {
		authorArg = *author
	}
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO message (id, server, channel, created_at, author)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET author = excluded.author
		WHERE message.author IS NULL`,
		id, server, channel, toMillis(models.SnowflakeTime(id)), authorArg)
	if err != nil {
		return nil, errs.FromStore("upsert message", err)
	}

	msg, err := d.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, errs.E(errs.Internal, "upsert message", errors.New("row vanished after insert"))
	}
	return msg, nil
}

// MarkFullyChecked stamps every processing stage at once, including the
// legacy wordle column.
func (d *DB) MarkFullyChecked(ctx context.Context, id uint64) error {
	now := d.stamp()
	_, err := d.conn.ExecContext(ctx, `
		UPDATE message SET parsed_repost = ?, parsed_embed = ?, parsed_wordle = ?
		WHERE id = ?`, now, now, now, id)
	return errs.FromStore("mark fully checked", err)
}

func (d *DB) MarkCheckedOld(ctx context.Context, id uint64) error {
	_, err := d.conn.ExecContext(ctx,
		`UPDATE message SET checked_old = COALESCE(checked_old, ?) WHERE id = ?`, d.stamp(), id)
	return errs.FromStore("mark checked old", err)
}

// SoftDelete marks a message as presumed gone. The stamp is never cleared.
func (d *DB) SoftDelete(ctx context.Context, id uint64) error {
	_, err := d.conn.ExecContext(ctx,
		`UPDATE message SET deleted = COALESCE(deleted, ?) WHERE id = ?`, d.stamp(), id)
	return errs.FromStore("soft delete", err)
}

// HardDelete removes the message and, through cascades, its link, image,
// reply and wordle rows.
func (d *DB) HardDelete(ctx context.Context, id uint64) error {
	_, err := d.conn.ExecContext(ctx, `DELETE FROM message WHERE id = ?`, id)
	return errs.FromStore("hard delete", err)
}

// NewestUnchecked is the anchor for the next reconciliation fetch.
func (d *DB) NewestUnchecked(ctx context.Context, server uint64) (*models.Message, error) {
	msgs, err := d.queryMessages(ctx, "newest unchecked", `
		SELECT `+messageColumns+`
		FROM message AS M
		JOIN channel AS C ON C.id = M.channel
		WHERE M.server = ?
			AND C.visible = TRUE
			AND M.deleted IS NULL
			AND (M.checked_old IS NULL OR M.parsed_embed IS NULL)
		ORDER BY M.created_at DESC
		LIMIT 1`, server)
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return msgs[0], nil
}
