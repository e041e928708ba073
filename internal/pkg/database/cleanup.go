package database

import (
	"context"

	"go.uber.org/zap"
)

// Cleanup removes state history older than the retention period.
func (db *Database) Cleanup(ctx context.Context) error {
	tag, err := db.pool.Exec(ctx, "DELETE FROM state_history WHERE time_stamp < $1", db.now().Add(-retention))
	if err != nil {
		return err
	}
	zap.L().Info("cleaned up state history", zap.Int64("rows", tag.RowsAffected()))
	return nil
}
