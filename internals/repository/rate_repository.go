package repository

import (
	"context"
	"fmt"

	"github.com/SnizhanaK/Currency-Converter/internals/adapter/cache"
	"github.com/SnizhanaK/Currency-Converter/internals/adapter/nbgapi"
	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"
	"github.com/SnizhanaK/Currency-Converter/internals/observability"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type RateRepository interface {
	GetRates(ctx context.Context, date string) (*domain.RateSet, error)
}

type cachedRateRepository struct {
	apiClient nbgapi.RateAPIClient
	cache     cache.Cache
	inflight  singleflight.Group
}

func NewCachedRateRepository(apiClient nbgapi.RateAPIClient, cache cache.Cache) RateRepository {
	return &cachedRateRepository{
		apiClient: apiClient,
		cache:     cache,
	}
}

// GetRates returns the cached set for date or fetches it once. Concurrent callers for the same
// uncached date share one upstream request. Failed fetches are not cached, so a later call retries.
func (r *cachedRateRepository) GetRates(ctx context.Context, date string) (*domain.RateSet, error) {
	// Check cache first
	if rates, found := r.cache.GetRates(date); found {
		observability.IncrementRateCache("hit")
		return rates, nil
	}
	observability.IncrementRateCache("miss")

	v, err, shared := r.inflight.Do(date, func() (interface{}, error) {
		// Another caller may have stored it while we were waiting for the group
		if rates, found := r.cache.GetRates(date); found {
			return rates, nil
		}

		// The fetch is shared, so one caller going away must not fail the others.
		// The HTTP client timeout still bounds it.
		rates, err := r.apiClient.FetchRates(context.WithoutCancel(ctx), date)
		if err != nil {
			observability.IncrementRateFetch("failed")
			return nil, err
		}
		observability.IncrementRateFetch("success")

		r.cache.SetRates(date, rates)
		return rates, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get rates for %s: %w", date, err)
	}
	if shared {
		zap.L().Debug("shared in-flight rates fetch", zap.String("date", date))
	}

	return v.(*domain.RateSet), nil
}
