package database

import (
	"context"

	"repost-bot/errs"
	"repost-bot/models"
)

// WordleDistribution counts stored puzzle results per score for a server.
// Nothing in the ingestion path writes wordle rows; this only reads what
// older deployments recorded.
func (d *DB) WordleDistribution(ctx context.Context, server uint64) ([]models.WordleScore, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT W.score, COUNT(*)
		FROM wordle AS W
		JOIN message AS M ON M.id = W.message
		WHERE M.server = ? AND M.deleted IS NULL
		GROUP BY W.score
		ORDER BY W.score`, server)
	if err != nil {
		return nil, errs.FromStore("wordle distribution", err)
	}
	defer rows.Close()

	var out []models.WordleScore
	for rows.Next() {
		var ws models.WordleScore
		if err := rows.Scan(&ws.Score, &ws.Count); err != nil {
			return nil, errs.FromStore("wordle distribution", err)
		}
		out = append(out, ws)
	}
	return out, errs.FromStore("wordle distribution", rows.Err())
}
