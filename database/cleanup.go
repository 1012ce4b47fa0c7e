package database

import (
	"context"

	"repost-bot/errs"
)

const deleteOrphanLinksSQL = `DELETE FROM link WHERE id NOT IN (SELECT link FROM message_link)`

// DeleteOrphanLinks removes links that no message references any more,
// which happens after hard deletes cascade through message_link.
func (d *DB) DeleteOrphanLinks(ctx context.Context) (int64, error) {
	res, err := d.conn.ExecContext(ctx, deleteOrphanLinksSQL)
	if err != nil {
		return 0, errs.FromStore("delete orphan links", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errs.FromStore("delete orphan links", err)
	}
	d.log.Info().Int64("rows", n).Msg("cleaned up orphan links")
	return n, nil
}
