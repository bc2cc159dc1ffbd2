package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"
	"github.com/SnizhanaK/Currency-Converter/internals/observability"
	"github.com/SnizhanaK/Currency-Converter/internals/repository"

	"go.uber.org/zap"
)

// RateService defines the business logic for exchange rates.
type RateService interface {
	GetRates(ctx context.Context, date string) (*domain.RateSet, error)
	ListCurrencies(ctx context.Context, date string) ([]domain.CurrencyOption, error)
	Convert(ctx context.Context, req domain.ConversionRequest) (*domain.ConversionResult, error)
}

type rateServiceImpl struct {
	repo repository.RateRepository
}

// NewRateService creates a new RateService.
func NewRateService(repo repository.RateRepository) RateService {
	return &rateServiceImpl{repo: repo}
}

func (s *rateServiceImpl) validateDate(dateStr string) (string, error) {
	dateStr = strings.TrimSpace(dateStr)
	if _, err := domain.ParseDate(dateStr); err != nil {
		return "", err
	}
	return dateStr, nil
}

// GetRates returns the rate set for an ISO date, fetching it at most once per process.
func (s *rateServiceImpl) GetRates(ctx context.Context, date string) (*domain.RateSet, error) {
	date, err := s.validateDate(date)
	if err != nil {
		return nil, err
	}
	return s.repo.GetRates(ctx, date)
}

// ListCurrencies returns the currency picker entries for date, base currency included.
func (s *rateServiceImpl) ListCurrencies(ctx context.Context, date string) ([]domain.CurrencyOption, error) {
	rates, err := s.GetRates(ctx, date)
	if err != nil {
		return nil, err
	}
	return domain.CurrencyOptions(rates), nil
}

func (s *rateServiceImpl) Convert(ctx context.Context, req domain.ConversionRequest) (*domain.ConversionResult, error) {
	from, to := req.From.Normalize(), req.To.Normalize()
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: from and to are required", domain.ErrUnknownCurrency)
	}
	if !domain.ValidAmount(req.Amount) {
		return nil, domain.ErrInvalidAmount
	}

	date, err := s.validateDate(req.Date)
	if err != nil {
		return nil, err
	}

	var rates *domain.RateSet
	if from != to {
		rates, err = s.repo.GetRates(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("could not get rates for conversion: %w", err)
		}
	}

	converted, err := ConvertStrict(req.Amount, from, to, rates)
	if err != nil {
		observability.IncrementConversion("failed")
		zap.L().Info("conversion failed",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.String("date", date),
			zap.Error(err),
		)
		return nil, err
	}
	observability.IncrementConversion("success")

	return &domain.ConversionResult{
		From:            from,
		To:              to,
		OriginalAmount:  req.Amount,
		ConvertedAmount: converted,
		Formatted:       domain.FormatAmount(converted),
		Rate:            converted / req.Amount,
		Date:            date,
	}, nil
}
