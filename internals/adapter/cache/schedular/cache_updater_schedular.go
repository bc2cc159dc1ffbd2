package schedular

import (
	"context"
	"time"

	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"
	"github.com/SnizhanaK/Currency-Converter/internals/observability"
	"github.com/SnizhanaK/Currency-Converter/internals/repository"

	"go.uber.org/zap"
)

const workerName = "rate_warmup"

// StartBackgroundWarmup loads today's rate set on start and then every interval, so the
// first request of a new day does not wait on the upstream API. Dates already cached are
// never refetched. It blocks until ctx is cancelled.
func StartBackgroundWarmup(ctx context.Context, interval time.Duration, repo repository.RateRepository, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	zap.L().Info("background warm-up worker started", zap.Duration("interval", interval))

	warmToday(ctx, repo, now)

	for {
		select {
		case <-ticker.C:
			zap.L().Debug("background warm-up triggered")
			warmToday(ctx, repo, now)
		case <-ctx.Done():
			zap.L().Info("background warm-up worker stopping")
			return
		}
	}
}

func warmToday(ctx context.Context, repo repository.RateRepository, now func() time.Time) {
	date := domain.Today(now())

	rates, err := repo.GetRates(ctx, date)
	if err != nil {
		observability.IncrementWorkerRun(workerName, "failed")
		zap.L().Warn("could not warm rates", zap.String("date", date), zap.Error(err))
		return
	}

	observability.IncrementWorkerRun(workerName, "success")
	zap.L().Debug("rates warm", zap.String("date", date), zap.Int("currencies", rates.Len()))
}
