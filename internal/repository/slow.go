package repository

import (
	"time"
	"weekendTasks/internal/logger"

	"go.uber.org/zap"
)

const SlowQueryThreshold = 100 * time.Millisecond

// WarnIfSlow логирует операции дольше SlowQueryThreshold
func WarnIfSlow(backend, op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > SlowQueryThreshold {
		logger.Warn("Repository: Медленный запрос",
			zap.String("backend", backend),
			zap.String("operation", op),
			zap.Duration("ms", elapsed))
	}
}
