package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"thetrek/internal/repositories"
)

const tokenCleanupInterval = time.Hour

// RunTokenCleanup deletes expired refresh tokens on a fixed interval
// until the context is cancelled. Revoked but unexpired tokens are
// kept so refresh-token reuse can still be detected.
func RunTokenCleanup(ctx context.Context, tokenRepo repositories.TokenRepository, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := tokenRepo.DeleteExpired(ctx)
			if err != nil {
				logger.Error("refresh token cleanup failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				logger.Info("expired refresh tokens deleted", zap.Int64("count", deleted))
			}
		}
	}
}
