package service

import (
	"context"
	"fmt"

	"github.com/SnizhanaK/Currency-Converter/internals/adapter/prefstore"
	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"

	"go.uber.org/zap"
)

// PreferenceService loads and persists the last chosen currencies and theme.
type PreferenceService interface {
	// Load never fails: unreadable or stale values fall back to defaults.
	Load(ctx context.Context, available []domain.CurrencyOption) domain.Preferences
	Save(ctx context.Context, prefs domain.Preferences) error
	ToggleTheme(ctx context.Context, available []domain.CurrencyOption) (domain.Preferences, error)
}

// CurrencyAvailable reports whether code can be selected given the currency
// list for the day. The base currency is always available; a nil list means
// the list could not be loaded and nothing is rejected.
func CurrencyAvailable(available []domain.CurrencyOption, code domain.Currency) bool {
	if code == "" {
		return false
	}
	if code.IsBase() || available == nil {
		return true
	}
	for _, o := range available {
		if o.Code == code {
			return true
		}
	}
	return false
}

type preferenceService struct {
	store    prefstore.Store
	defaults domain.Preferences
}

func NewPreferenceService(store prefstore.Store, defaults domain.Preferences) PreferenceService {
	if defaults.FromCurrency == "" {
		defaults.FromCurrency = domain.DefaultPreferences().FromCurrency
	}
	if defaults.ToCurrency == "" {
		defaults.ToCurrency = domain.DefaultPreferences().ToCurrency
	}
	if defaults.Theme == "" {
		defaults.Theme = domain.ThemeLight
	}
	return &preferenceService{store: store, defaults: defaults}
}

func (s *preferenceService) read(ctx context.Context, key string) (string, bool) {
	v, found, err := s.store.Get(ctx, key)
	if err != nil {
		zap.L().Warn("could not read preference, using default", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, found
}

// Load reads the stored preferences. A currency that is not in available is
// replaced by its default; the base currency is always accepted. A nil
// available list skips that check.
func (s *preferenceService) Load(ctx context.Context, available []domain.CurrencyOption) domain.Preferences {
	prefs := s.defaults

	if v, ok := s.read(ctx, prefstore.KeyFromCurrency); ok {
		if c := domain.Currency(v).Normalize(); CurrencyAvailable(available, c) {
			prefs.FromCurrency = c
		}
	}
	if v, ok := s.read(ctx, prefstore.KeyToCurrency); ok {
		if c := domain.Currency(v).Normalize(); CurrencyAvailable(available, c) {
			prefs.ToCurrency = c
		}
	}
	if v, ok := s.read(ctx, prefstore.KeyTheme); ok {
		prefs.Theme = domain.ParseTheme(v)
	}
	return prefs
}

// Save writes every field through to the store.
func (s *preferenceService) Save(ctx context.Context, prefs domain.Preferences) error {
	values := []struct{ key, value string }{
		{prefstore.KeyFromCurrency, string(prefs.FromCurrency.Normalize())},
		{prefstore.KeyToCurrency, string(prefs.ToCurrency.Normalize())},
		{prefstore.KeyTheme, string(domain.ParseTheme(string(prefs.Theme)))},
	}
	for _, kv := range values {
		if err := s.store.Set(ctx, kv.key, kv.value); err != nil {
			return fmt.Errorf("failed to save preference %s: %w", kv.key, err)
		}
	}
	return nil
}

func (s *preferenceService) ToggleTheme(ctx context.Context, available []domain.CurrencyOption) (domain.Preferences, error) {
	prefs := s.Load(ctx, available)
	prefs.Theme = prefs.Theme.Toggle()
	if err := s.store.Set(ctx, prefstore.KeyTheme, string(prefs.Theme)); err != nil {
		return prefs, fmt.Errorf("failed to save preference %s: %w", prefstore.KeyTheme, err)
	}
	return prefs, nil
}
