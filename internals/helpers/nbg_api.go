package helpers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://nbg.gov.ge/gw/api/ct/monetarypolicy/currencies/en/json/"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

var (
	ErrRequestFailed   = errors.New("request to rates API failed")
	ErrBadStatus       = errors.New("rates API returned a non-success status")
	ErrMalformedBody   = errors.New("rates API returned malformed JSON")
	ErrUnexpectedShape = errors.New("rates API returned an unexpected payload")
	ErrNoCurrencies    = errors.New("rates API returned no currencies")
)

// NBGAPI is the raw National Bank of Georgia currencies endpoint.
type NBGAPI interface {
	GetCurrencies(ctx context.Context, date string) (*domain.RatesResponse, error)
}

type nbgAPI struct {
	baseURL string
	client  *http.Client
}

func NewNBGAPI(baseURL string, timeout time.Duration) NBGAPI {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &nbgAPI{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *nbgAPI) GetCurrencies(ctx context.Context, date string) (*domain.RatesResponse, error) {
	zap.L().Debug("fetching currency rates", zap.String("url", a.baseURL), zap.String("date", date))

	body, err := a.doRequest(ctx, a.baseURL, makeParams(date))
	if err != nil {
		return nil, err
	}
	return parseCurrencies(body)
}

func (a *nbgAPI) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if len(params) > 0 {
		endpoint = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}
	return body, nil
}

func makeParams(date string) url.Values {
	params := url.Values{}
	if date = strings.TrimSpace(date); date != "" {
		params.Add("date", date)
	}
	return params
}

// parseCurrencies expects `[{"date": ..., "currencies": [{code, name, rate, quantity}, ...]}]`.
// Numeric fields published as strings are coerced.
func parseCurrencies(body []byte) (*domain.RatesResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrMalformedBody
	}

	root := gjson.ParseBytes(body)
	if !root.IsArray() || len(root.Array()) == 0 {
		return nil, fmt.Errorf("%w: expected a non-empty array", ErrUnexpectedShape)
	}

	first := root.Get("0")
	if !first.IsObject() {
		return nil, fmt.Errorf("%w: first element is not an object", ErrUnexpectedShape)
	}

	currencies := first.Get("currencies")
	if !currencies.Exists() {
		return nil, ErrNoCurrencies
	}
	if !currencies.IsArray() {
		return nil, fmt.Errorf("%w: currencies is not an array", ErrUnexpectedShape)
	}

	items := currencies.Array()
	if len(items) == 0 {
		return nil, ErrNoCurrencies
	}

	records := make([]domain.RateRecord, 0, len(items))
	for i, item := range items {
		rec, err := parseRecord(item)
		if err != nil {
			return nil, fmt.Errorf("currency #%d: %w", i, err)
		}
		records = append(records, rec)
	}

	return &domain.RatesResponse{
		Date:       first.Get("date").String(),
		Currencies: records,
	}, nil
}

func parseRecord(item gjson.Result) (domain.RateRecord, error) {
	if !item.IsObject() {
		return domain.RateRecord{}, fmt.Errorf("%w: currency entry is not an object", ErrUnexpectedShape)
	}

	code := item.Get("code")
	if code.Type != gjson.String || strings.TrimSpace(code.Str) == "" {
		return domain.RateRecord{}, fmt.Errorf("%w: missing currency code", ErrUnexpectedShape)
	}

	rate, err := numberField(item, "rate")
	if err != nil {
		return domain.RateRecord{}, err
	}
	quantity, err := numberField(item, "quantity")
	if err != nil {
		return domain.RateRecord{}, err
	}

	return domain.RateRecord{
		Code:     domain.Currency(code.Str).Normalize(),
		Name:     item.Get("name").String(),
		Rate:     rate,
		Quantity: quantity,
	}, nil
}

func numberField(item gjson.Result, name string) (float64, error) {
	v := item.Get(name)
	switch v.Type {
	case gjson.Number:
		return v.Num, nil
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not numeric: %q", ErrUnexpectedShape, name, v.Str)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: missing %s", ErrUnexpectedShape, name)
	}
}
