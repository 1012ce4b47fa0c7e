package database

import (
	"context"
	"fmt"
)

// migrations[i] upgrades the schema from user_version i to i+1.
var migrations = [][]string{
	{
		`CREATE TABLE server (
			id INTEGER PRIMARY KEY,
			name TEXT
		)`,
		`CREATE TABLE channel (
			id INTEGER PRIMARY KEY,
			name TEXT,
			visible BOOLEAN NOT NULL DEFAULT TRUE,
			server INTEGER,
			FOREIGN KEY(server) REFERENCES server(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE message (
			id INTEGER PRIMARY KEY,
			server INTEGER NOT NULL,
			channel INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			author INTEGER DEFAULT NULL,
			parsed_repost INTEGER DEFAULT NULL,
			parsed_wordle INTEGER DEFAULT NULL,
			deleted INTEGER DEFAULT NULL,
			checked_old INTEGER DEFAULT NULL,
			FOREIGN KEY(channel) REFERENCES channel(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE link (
			id INTEGER PRIMARY KEY,
			link TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE message_link (
			id INTEGER PRIMARY KEY,
			link INTEGER NOT NULL,
			message INTEGER NOT NULL,
			FOREIGN KEY(link) REFERENCES link(id) ON DELETE CASCADE,
			FOREIGN KEY(message) REFERENCES message(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE user (
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL,
			bot BOOLEAN NOT NULL,
			discriminator TEXT NOT NULL
		)`,
		`CREATE TABLE nickname (
			nickname TEXT NOT NULL,
			user INTEGER NOT NULL,
			server INTEGER NOT NULL,
			PRIMARY KEY (user, server, nickname),
			FOREIGN KEY(server) REFERENCES server(id) ON DELETE CASCADE,
			FOREIGN KEY(user) REFERENCES user(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE wordle (
			message INTEGER PRIMARY KEY,
			number INTEGER NOT NULL,
			score INTEGER NOT NULL,
			hardmode BOOLEAN NOT NULL,
			board TEXT NOT NULL DEFAULT '',
			FOREIGN KEY(message) REFERENCES message(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX idx_msg ON message (server, channel, author)`,
		`CREATE INDEX idx_msg_created ON message (server, created_at)`,
	},
	{
		`ALTER TABLE message ADD COLUMN parsed_embed INTEGER DEFAULT NULL`,
		`CREATE TABLE image (
			id INTEGER PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			c1 TEXT NOT NULL,
			c2 TEXT NOT NULL,
			c3 TEXT NOT NULL,
			c4 TEXT NOT NULL,
			c5 TEXT NOT NULL,
			hash TEXT NOT NULL
		)`,
		`CREATE TABLE message_image (
			id INTEGER PRIMARY KEY,
			image INTEGER NOT NULL,
			message INTEGER NOT NULL,
			FOREIGN KEY(image) REFERENCES image(id) ON DELETE CASCADE,
			FOREIGN KEY(message) REFERENCES message(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX idx_image ON image (c1, c2, c3, c4, c5, hash)`,
		`CREATE INDEX idx_image_hash ON image (hash)`,
	},
	{
		`CREATE TABLE reply (
			id INTEGER PRIMARY KEY,
			channel INTEGER NOT NULL,
			replied_to INTEGER NOT NULL UNIQUE,
			FOREIGN KEY(channel) REFERENCES channel(id) ON DELETE CASCADE,
			FOREIGN KEY(replied_to) REFERENCES message(id) ON DELETE CASCADE
		)`,
		`DELETE FROM message_link WHERE id NOT IN (SELECT MIN(id) FROM message_link GROUP BY link, message)`,
		`DELETE FROM message_image WHERE id NOT IN (SELECT MIN(id) FROM message_image GROUP BY image, message)`,
		`CREATE UNIQUE INDEX idx_message_link ON message_link (link, message)`,
		`CREATE UNIQUE INDEX idx_message_image ON message_image (image, message)`,
		`CREATE INDEX idx_message_link_message ON message_link (message)`,
		`CREATE INDEX idx_message_image_message ON message_image (message)`,
		deleteOrphanLinksSQL,
	},
}

// SchemaVersion is the user_version after all migrations are applied.
var SchemaVersion = len(migrations)

// migrate applies pending migrations in a single transaction on one pinned
// connection. Foreign keys are off while it runs since sqlite ignores the
// pragma inside a transaction.
func (d *DB) migrate(ctx context.Context) error {
	conn, err := d.conn.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migrations: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("failed to disable foreign keys: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), "PRAGMA foreign_keys = ON"); err != nil {
			d.log.Error().Err(err).Msg("failed to re-enable foreign keys")
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var version int
	if err := tx.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, len(migrations))
	}
	if version == len(migrations) {
		return nil
	}

	for v := version; v < len(migrations); v++ {
		d.log.Info().Int("version", v+1).Msg("running migration")
		for _, stmt := range migrations[v] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d failed: %w", v+1, err)
			}
		}
	}

	// PRAGMA does not take bind parameters
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", len(migrations))); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}
	d.log.Info().Int("from", version).Int("to", len(migrations)).Msg("schema migrated")
	return nil
}
