package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartExpiredAuthCleaner periodically removes Patreon sessions whose access
// token expired more than retention ago. A session that old can no longer be
// refreshed into a valid one without a new login.
func StartExpiredAuthCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				res, err := db.ExecContext(ctx, `
                    DELETE FROM patreon_auth
                     WHERE expires_at < $1
                `, cutoff)
				if err != nil {
					log.Error("failed to clean expired patreon sessions", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned expired patreon sessions", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
