package database

import (
	"context"
	"database/sql"

	"repost-bot/errs"
)

// InsertImage stores a fingerprint for url and associates it with message.
// A url that already has a fingerprint keeps it; only the association is added.
func (d *DB) InsertImage(ctx context.Context, url, hash string, keys [5]string, message uint64) error {
	return d.withTx(ctx, "insert image", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO image (url, c1, c2, c3, c4, c5, hash) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(url) DO NOTHING`,
			url, keys[0], keys[1], keys[2], keys[3], keys[4], hash); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO message_image (image, message)
			SELECT id, ? FROM image WHERE url = ?`, message, url)
		return err
	})
}

// ImageCandidates prefilters stored fingerprints in server: a row qualifies
// when its hash is equal or when any four of its five blocking keys are.
func (d *DB) ImageCandidates(ctx context.Context, hash string, keys [5]string, server, exclude uint64) ([]ImageCandidate, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT `+messageColumns+`, I.hash
		FROM image AS I
		JOIN message_image AS MI ON MI.image = I.id
		JOIN message AS M ON M.id = MI.message
		JOIN channel AS C ON C.id = M.channel
		WHERE (
			I.hash = ?6 OR
			(I.c1 = ?1 AND I.c2 = ?2 AND I.c3 = ?3 AND I.c4 = ?4) OR
			(I.c2 = ?2 AND I.c3 = ?3 AND I.c4 = ?4 AND I.c5 = ?5) OR
			(I.c3 = ?3 AND I.c4 = ?4 AND I.c5 = ?5 AND I.c1 = ?1) OR
			(I.c4 = ?4 AND I.c5 = ?5 AND I.c1 = ?1 AND I.c2 = ?2) OR
			(I.c5 = ?5 AND I.c1 = ?1 AND I.c2 = ?2 AND I.c3 = ?3)
		)
			AND M.server = ?7
			AND M.id != ?8
			AND C.visible = TRUE
			AND M.deleted IS NULL
		ORDER BY M.created_at`,
		keys[0], keys[1], keys[2], keys[3], keys[4], hash, server, exclude)
	if err != nil {
		return nil, errs.FromStore("image candidates", err)
	}
	defer rows.Close()

	var out []ImageCandidate
	for rows.Next() {
		var c ImageCandidate
		msg, err := scanMessage(rows, &c.Hash)
		if err != nil {
			return nil, errs.FromStore("image candidates", err)
		}
		c.Message = msg
		out = append(out, c)
	}
	return out, errs.FromStore("image candidates", rows.Err())
}
