package database

import (
	"context"
	"database/sql"

	"repost-bot/errs"
	"repost-bot/models"
)

// InsertLink stores a canonical link and associates it with a message. Both
// rows are written in one transaction and re-inserting is a no-op.
func (d *DB) InsertLink(ctx context.Context, link string, message uint64) error {
	return d.withTx(ctx, "insert link", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO link (link) VALUES (?) ON CONFLICT(link) DO NOTHING`, link); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO message_link (link, message)
			SELECT id, ? FROM link WHERE link = ?`, message, link)
		return err
	})
}

// QueryLinks finds visible, undeleted messages in server that posted link.
func (d *DB) QueryLinks(ctx context.Context, link string, server, exclude uint64) ([]*models.Message, error) {
	return d.queryMessages(ctx, "query links", `
		SELECT `+messageColumns+`
		FROM link AS L
		JOIN message_link AS ML ON ML.link = L.id
		JOIN message AS M ON M.id = ML.message
		JOIN channel AS C ON C.id = M.channel
		WHERE L.link = ?
			AND M.server = ?
			AND M.id != ?
			AND C.visible = TRUE
			AND M.deleted IS NULL
		ORDER BY M.created_at`, link, server, exclude)
}

// RepostsForMessage returns the earlier messages in the same server that
// share at least one link with message.
func (d *DB) RepostsForMessage(ctx context.Context, message uint64) ([]*models.Message, error) {
	return d.queryMessages(ctx, "reposts for message", `
		SELECT DISTINCT `+messageColumns+`
		FROM message_link AS MLR
		JOIN message_link AS MLO ON MLO.link = MLR.link AND MLO.id != MLR.id
		JOIN message AS R ON R.id = MLR.message
		JOIN message AS M ON M.id = MLO.message
		JOIN channel AS C ON C.id = M.channel
		WHERE R.id = ?
			AND M.server = R.server
			AND M.created_at < R.created_at
			AND C.visible = TRUE
			AND M.deleted IS NULL
		ORDER BY M.created_at`, message)
}

// RepostList returns the ten most reposted links of a server.
func (d *DB) RepostList(ctx context.Context, server uint64) ([]models.RepostCount, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT L.link, LM.link_count
		FROM link AS L JOIN (
			SELECT ML.link, COUNT(1) AS link_count, MAX(M.created_at) AS most_recent
			FROM message_link AS ML
			JOIN message AS M ON M.id = ML.message
			JOIN channel AS C ON C.id = M.channel
			WHERE M.server = ? AND C.visible = TRUE AND M.deleted IS NULL
			GROUP BY ML.link
			HAVING link_count > 1
		) AS LM ON L.id = LM.link
		ORDER BY LM.link_count DESC, LM.most_recent DESC
		LIMIT 10`, server)
	if err != nil {
		return nil, errs.FromStore("repost list", err)
	}
	defer rows.Close()

	var out []models.RepostCount
	for rows.Next() {
		var rc models.RepostCount
		if err := rows.Scan(&rc.Link, &rc.Count); err != nil {
			return nil, errs.FromStore("repost list", err)
		}
		out = append(out, rc)
	}
	return out, errs.FromStore("repost list", rows.Err())
}

// TopReposters ranks users by how many links they posted after someone else did.
func (d *DB) TopReposters(ctx context.Context, server uint64) ([]models.ReposterCount, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT U.username, COUNT(*) AS cnt
		FROM message_link AS L1
		JOIN (
			SELECT ML.link, MIN(M.created_at) AS first_seen
			FROM message_link AS ML
			JOIN message AS M ON M.id = ML.message
			JOIN channel AS C ON C.id = M.channel
			WHERE M.server = ? AND C.visible = TRUE AND M.deleted IS NULL
			GROUP BY ML.link
		) AS L2 ON L1.link = L2.link
		JOIN message AS M ON M.id = L1.message
		JOIN channel AS C ON C.id = M.channel
		JOIN user AS U ON U.id = M.author
		WHERE M.server = ?
			AND M.created_at > L2.first_seen
			AND C.visible = TRUE
			AND M.deleted IS NULL
		GROUP BY U.username
		ORDER BY cnt DESC, U.username`, server, server)
	if err != nil {
		return nil, errs.FromStore("top reposters", err)
	}
	defer rows.Close()

	var out []models.ReposterCount
	for rows.Next() {
		var rc models.ReposterCount
		if err := rows.Scan(&rc.Username, &rc.Count); err != nil {
			return nil, errs.FromStore("top reposters", err)
		}
		out = append(out, rc)
	}
	return out, errs.FromStore("top reposters", rows.Err())
}
