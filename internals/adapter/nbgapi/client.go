package nbgapi

import (
	"context"
	"errors"

	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"
	"github.com/SnizhanaK/Currency-Converter/internals/helpers"

	"go.uber.org/zap"
)

// RateAPIClient defines the interface for fetching the rates published for one date.
type RateAPIClient interface {
	FetchRates(ctx context.Context, date string) (*domain.RateSet, error)
}

// NBGClient turns raw NBG payloads into validated rate sets.
type NBGClient struct {
	api helpers.NBGAPI
}

// NewClient creates a new NBGClient.
func NewClient(api helpers.NBGAPI) RateAPIClient {
	return &NBGClient{api: api}
}

// FetchRates fetches and validates the rates for date. Every failure is a *domain.RateFetchError.
func (c *NBGClient) FetchRates(ctx context.Context, date string) (*domain.RateSet, error) {
	resp, err := c.api.GetCurrencies(ctx, date)
	if err != nil {
		zap.L().Warn("error fetching rates from API", zap.String("date", date), zap.Error(err))
		return nil, domain.NewRateFetchError(date, describe(err), err)
	}

	rates, err := domain.NewRateSet(date, resp.Currencies)
	if err != nil {
		zap.L().Error("rates API returned invalid rate data", zap.String("date", date), zap.Error(err))
		return nil, domain.NewRateFetchError(date, "invalid rate data", err)
	}

	zap.L().Info("fetched rates from API",
		zap.String("date", date),
		zap.String("published", resp.Date),
		zap.Int("currencies", rates.Len()),
	)
	return rates, nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "request cancelled"
	case errors.Is(err, helpers.ErrRequestFailed):
		return "network failure"
	case errors.Is(err, helpers.ErrBadStatus):
		return "unexpected HTTP status"
	case errors.Is(err, helpers.ErrMalformedBody):
		return "malformed response"
	case errors.Is(err, helpers.ErrNoCurrencies):
		return "no currencies in response"
	case errors.Is(err, helpers.ErrUnexpectedShape):
		return "unexpected response shape"
	default:
		return "rates unavailable"
	}
}
