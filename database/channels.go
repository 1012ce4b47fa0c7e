package database

import (
	"context"

	"repost-bot/errs"
	"repost-bot/models"
)

// UpsertServer records a server. A known name is never replaced by an empty one.
func (d *DB) UpsertServer(ctx context.Context, id uint64, name string) error {
	var nameArg any
	if name != "" {
		nameArg = name
	}
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO server (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
		WHERE excluded.name IS NOT NULL AND server.name IS NOT excluded.name`, id, nameArg)
	return errs.FromStore("upsert server", err)
}

func (d *DB) UpsertUser(ctx context.Context, user models.User) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO user (id, username, bot, discriminator) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			bot = excluded.bot,
			discriminator = excluded.discriminator
		WHERE user.username != excluded.username
			OR user.bot != excluded.bot
			OR user.discriminator != excluded.discriminator`,
		user.ID, user.Username, user.Bot, user.Discriminator)
	return errs.FromStore("upsert user", err)
}

// UpsertNickname requires the user and server rows to exist.
func (d *DB) UpsertNickname(ctx context.Context, user, server uint64, nickname string) error {
	_, err := d.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO nickname (user, server, nickname) VALUES (?, ?, ?)`, user, server, nickname)
	return errs.FromStore("upsert nickname", err)
}

// UpsertChannel creates the channel or updates its name and visibility.
// An empty name keeps the stored one.
func (d *DB) UpsertChannel(ctx context.Context, ch models.Channel) error {
	var nameArg any
	if ch.Name != "" {
		nameArg = ch.Name
	}
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO channel (id, name, visible, server) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = COALESCE(excluded.name, channel.name),
			visible = excluded.visible,
			server = excluded.server
		WHERE (excluded.name IS NOT NULL AND channel.name IS NOT excluded.name)
			OR channel.visible != excluded.visible
			OR channel.server IS NOT excluded.server`,
		ch.ID, nameArg, ch.Visible, ch.ServerID)
	return errs.FromStore("upsert channel", err)
}

func (d *DB) SetChannelVisibility(ctx context.Context, id uint64, visible bool) error {
	_, err := d.conn.ExecContext(ctx, `UPDATE channel SET visible = ? WHERE id = ?`, visible, id)
	return errs.FromStore("set channel visibility", err)
}

// DeleteChannel removes the channel and every message recorded in it.
func (d *DB) DeleteChannel(ctx context.Context, id uint64) error {
	_, err := d.conn.ExecContext(ctx, `DELETE FROM channel WHERE id = ?`, id)
	return errs.FromStore("delete channel", err)
}

func (d *DB) queryChannels(ctx context.Context, op, query string, args ...any) ([]models.Channel, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.FromStore(op, err)
	}
	defer rows.Close()

	var out []models.Channel
	for rows.Next() {
		var ch models.Channel
		var name *string
		if err := rows.Scan(&ch.ID, &name, &ch.Visible, &ch.ServerID); err != nil {
			return nil, errs.FromStore(op, err)
		}
		if name != nil {
			ch.Name = *name
		}
		out = append(out, ch)
	}
	return out, errs.FromStore(op, rows.Err())
}

// KnownChannels lists the channels of a server the bot can currently read.
func (d *DB) KnownChannels(ctx context.Context, server uint64) ([]models.Channel, error) {
	return d.queryChannels(ctx, "known channels",
		`SELECT id, name, visible, server FROM channel WHERE server = ? AND visible = TRUE ORDER BY id`, server)
}

// Channels lists every stored channel of a server regardless of visibility.
func (d *DB) Channels(ctx context.Context, server uint64) ([]models.Channel, error) {
	return d.queryChannels(ctx, "channels",
		`SELECT id, name, visible, server FROM channel WHERE server = ? ORDER BY id`, server)
}
