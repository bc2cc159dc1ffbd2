package cache

import (
	"sort"
	"sync"

	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"

	"go.uber.org/zap"
)

// Cache maps an ISO date to the rate set published for it.
type Cache interface {
	GetRates(date string) (*domain.RateSet, bool)
	SetRates(date string, rates *domain.RateSet)
	Dates() []string
}

// memoryCache grows monotonically for the life of the process. Entries are never evicted
// or replaced, so a date is fetched at most once.
type memoryCache struct {
	mu   sync.RWMutex
	sets map[string]*domain.RateSet
}

func NewMemoryCache() Cache {
	return &memoryCache{
		sets: make(map[string]*domain.RateSet),
	}
}

func (c *memoryCache) GetRates(date string) (*domain.RateSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rates, ok := c.sets[date]
	return rates, ok
}

func (c *memoryCache) SetRates(date string, rates *domain.RateSet) {
	if rates == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.sets[date]; exists {
		zap.L().Debug("rates already cached, keeping first copy", zap.String("date", date))
		return
	}
	c.sets[date] = rates
	zap.L().Debug("cached rates", zap.String("date", date), zap.Int("currencies", rates.Len()))
}

// Dates returns the cached dates in ascending order.
func (c *memoryCache) Dates() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dates := make([]string, 0, len(c.sets))
	for d := range c.sets {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
