package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SnizhanaK/Currency-Converter/internals/adapter/cache"
	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock API Client ---
type mockAPIClient struct {
	calls   atomic.Int32
	delay   time.Duration
	fetchFn func(date string) (*domain.RateSet, error)
	onFetch func(ctx context.Context)
}

func (m *mockAPIClient) FetchRates(ctx context.Context, date string) (*domain.RateSet, error) {
	m.calls.Add(1)
	if m.onFetch != nil {
		m.onFetch(ctx)
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return m.fetchFn(date)
}

func usdRates(date string) (*domain.RateSet, error) {
	return domain.NewRateSet(date, []domain.RateRecord{{Code: "USD", Name: "US Dollar", Rate: 2.70, Quantity: 1}})
}

func TestGetRates_CacheHit(t *testing.T) {
	c := cache.NewMemoryCache()
	cached, err := usdRates("2024-01-01")
	require.NoError(t, err)
	c.SetRates("2024-01-01", cached)

	api := &mockAPIClient{fetchFn: usdRates}
	repo := NewCachedRateRepository(api, c)

	rates, err := repo.GetRates(context.Background(), "2024-01-01")
	assert.NoError(t, err)
	assert.Same(t, cached, rates)
	assert.Equal(t, int32(0), api.calls.Load())
}

func TestGetRates_CacheMiss_APISuccess(t *testing.T) {
	c := cache.NewMemoryCache()
	api := &mockAPIClient{fetchFn: usdRates}
	repo := NewCachedRateRepository(api, c)

	rates, err := repo.GetRates(context.Background(), "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", rates.Date())

	stored, found := c.GetRates("2024-01-01")
	assert.True(t, found)
	assert.Same(t, rates, stored)
}

func TestGetRates_SameDateFetchedOnce(t *testing.T) {
	api := &mockAPIClient{fetchFn: usdRates}
	repo := NewCachedRateRepository(api, cache.NewMemoryCache())

	first, err := repo.GetRates(context.Background(), "2024-01-01")
	require.NoError(t, err)
	second, err := repo.GetRates(context.Background(), "2024-01-01")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestGetRates_APIFails_NotCached(t *testing.T) {
	c := cache.NewMemoryCache()
	fail := true
	api := &mockAPIClient{fetchFn: func(date string) (*domain.RateSet, error) {
		if fail {
			return nil, domain.NewRateFetchError(date, "network failure", errors.New("connection refused"))
		}
		return usdRates(date)
	}}
	repo := NewCachedRateRepository(api, c)

	rates, err := repo.GetRates(context.Background(), "2024-01-01")
	assert.Nil(t, rates)
	var fetchErr *domain.RateFetchError
	assert.True(t, errors.As(err, &fetchErr))
	assert.Empty(t, c.Dates())

	fail = false
	rates, err = repo.GetRates(context.Background(), "2024-01-01")
	assert.NoError(t, err)
	assert.NotNil(t, rates)
	assert.Equal(t, int32(2), api.calls.Load())
}

func TestGetRates_ConcurrentCallersShareFetch(t *testing.T) {
	api := &mockAPIClient{fetchFn: usdRates, delay: 50 * time.Millisecond}
	repo := NewCachedRateRepository(api, cache.NewMemoryCache())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.GetRates(context.Background(), "2024-01-01")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), api.calls.Load())
}

func TestGetRates_SharedFetchOutlivesCaller(t *testing.T) {
	var fetchCtxErr error
	api := &mockAPIClient{fetchFn: usdRates, onFetch: func(ctx context.Context) {
		fetchCtxErr = ctx.Err()
	}}
	repo := NewCachedRateRepository(api, cache.NewMemoryCache())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rates, err := repo.GetRates(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.NotNil(t, rates)
	assert.NoError(t, fetchCtxErr, "upstream fetch must not inherit the caller's cancellation")
}
