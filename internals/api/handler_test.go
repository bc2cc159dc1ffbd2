package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SnizhanaK/Currency-Converter/internals/adapter/prefstore"
	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"
	"github.com/SnizhanaK/Currency-Converter/internals/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock Repository ---

type MockRateRepository struct {
	mu    sync.Mutex
	rates map[string]*domain.RateSet
	calls map[string]int
}

func (m *MockRateRepository) GetRates(ctx context.Context, date string) (*domain.RateSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[date]++
	if rates, ok := m.rates[date]; ok {
		return rates, nil
	}
	return nil, domain.NewRateFetchError(date, "unexpected HTTP status", nil)
}

func newMockRepo(t *testing.T, dates ...string) *MockRateRepository {
	t.Helper()
	repo := &MockRateRepository{rates: map[string]*domain.RateSet{}, calls: map[string]int{}}
	for _, d := range dates {
		rates, err := domain.NewRateSet(d, []domain.RateRecord{
			{Code: "USD", Name: "US Dollar", Rate: 2.70, Quantity: 1},
			{Code: "EUR", Name: "Euro", Rate: 2.95, Quantity: 1},
		})
		require.NoError(t, err)
		repo.rates[d] = rates
	}
	return repo
}

func testNow() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// --- Helper to setup Fiber app with routes ---

func setupTestApp(t *testing.T, repo *MockRateRepository) *fiber.App {
	t.Helper()
	return setupTestAppWithStore(t, repo, prefstore.NewMemoryStore())
}

func setupTestAppWithStore(t *testing.T, repo *MockRateRepository, store prefstore.Store) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler,
	})
	h := NewHandler(
		service.NewRateService(repo),
		service.NewSessionManager(repo, testNow),
		service.NewPreferenceService(store, domain.DefaultPreferences()),
		testNow,
	)
	SetupRouter(app, h)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

// --- Rates ---

func TestGetRates_Success(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t, "2024-01-01"))

	status, body := doRequest(t, app, "GET", "/v1/rates?date=2024-01-01", "")
	assert.Equal(t, fiber.StatusOK, status)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "2024-01-01", result["date"])
	assert.Equal(t, "GEL", result["base"])
}

func TestGetRates_DefaultsToToday(t *testing.T) {
	repo := newMockRepo(t, "2024-01-01")
	app := setupTestApp(t, repo)

	status, _ := doRequest(t, app, "GET", "/v1/rates", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, repo.calls["2024-01-01"])
}

func TestGetRates_InvalidDate(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t))

	status, body := doRequest(t, app, "GET", "/v1/rates?date=01-01-2024", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	errResp := decode[ErrorResponse](t, body)
	assert.Equal(t, "Bad Request", errResp.Error.Code)
}

func TestGetRates_FetchErrorIsBadGateway(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t))

	status, body := doRequest(t, app, "GET", "/v1/rates?date=2024-02-02", "")
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Contains(t, decode[ErrorResponse](t, body).Error.Message, "2024-02-02")
}

func TestGetCurrencies(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t, "2024-01-01"))

	status, body := doRequest(t, app, "GET", "/v1/currencies", "")
	assert.Equal(t, fiber.StatusOK, status)

	resp := decode[struct {
		Date       string                  `json:"date"`
		Currencies []domain.CurrencyOption `json:"currencies"`
	}](t, body)
	assert.Equal(t, "2024-01-01", resp.Date)
	require.Len(t, resp.Currencies, 3)
	assert.Equal(t, domain.CurrencyOption{Code: "GEL", Name: "Georgian Lari"}, resp.Currencies[1])
}

// --- Convert ---

func TestConvert_Success(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t, "2024-01-01"))

	status, body := doRequest(t, app, "GET", "/v1/convert?from=USD&to=GEL&amount=100&date=2024-01-01", "")
	assert.Equal(t, fiber.StatusOK, status)

	result := decode[domain.ConversionResult](t, body)
	assert.InDelta(t, 270.0, result.ConvertedAmount, 1e-9)
	assert.Equal(t, "270,00", result.Formatted)
}

func TestConvert_ValidationErrors(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t, "2024-01-01"))

	tests := []struct {
		name string
		url  string
	}{
		{"missing from", "/v1/convert?to=GEL&amount=1"},
		{"non-numeric amount", "/v1/convert?from=USD&to=GEL&amount=abc"},
		{"negative amount", "/v1/convert?from=USD&to=GEL&amount=-1"},
		{"bad date", "/v1/convert?from=USD&to=GEL&amount=1&date=2024/01/01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := doRequest(t, app, "GET", tt.url, "")
			assert.Equal(t, fiber.StatusBadRequest, status)
		})
	}
}

func TestConvert_UnknownCurrency(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t, "2024-01-01"))

	status, _ := doRequest(t, app, "GET", "/v1/convert?from=ZZZ&to=GEL&amount=10&date=2024-01-01", "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

// --- Sessions ---

func createSession(t *testing.T, app *fiber.App) service.Snapshot {
	t.Helper()
	status, body := doRequest(t, app, "POST", "/v1/sessions", "")
	require.Equal(t, fiber.StatusCreated, status)
	return decode[service.Snapshot](t, body)
}

func TestSession_BatchFlow(t *testing.T) {
	repo := newMockRepo(t, "2024-01-01")
	app := setupTestApp(t, repo)

	snap := createSession(t, app)
	require.NotEmpty(t, snap.ID)
	assert.Equal(t, domain.Currency("USD"), snap.From)
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, "2024-01-01", snap.Rows[0].Date)

	base := "/v1/sessions/" + snap.ID
	status, _ := doRequest(t, app, "POST", base+"/rows", `{"date":"2024-01-02"}`)
	require.Equal(t, fiber.StatusCreated, status)
	status, _ = doRequest(t, app, "POST", base+"/rows", "")
	require.Equal(t, fiber.StatusCreated, status)

	for i, body := range []string{
		`{"amount":"100","date":"2024-01-01"}`,
		`{"amount":"","date":"2024-01-02"}`,
		`{"amount":"50","date":"2024-01-01"}`,
	} {
		status, _ = doRequest(t, app, "PUT", base+"/rows/"+strconv.Itoa(i), body)
		require.Equal(t, fiber.StatusOK, status)
	}

	before := repo.calls["2024-01-01"]
	status, body := doRequest(t, app, "POST", base+"/calculate", "")
	require.Equal(t, fiber.StatusOK, status)

	resp := decode[CalculateResponse](t, body)
	assert.Empty(t, resp.Failures)
	require.Len(t, resp.Session.Summary, 2)
	assert.Equal(t, "405,00", resp.Session.FormattedTotal)
	assert.Equal(t, before+1, repo.calls["2024-01-01"], "one fetch for the shared date")

	status, body = doRequest(t, app, "DELETE", base+"/summary/0", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "135,00", decode[service.Snapshot](t, body).FormattedTotal)

	status, body = doRequest(t, app, "DELETE", base+"/summary", "")
	require.Equal(t, fiber.StatusOK, status)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Nil(t, raw["total"])
}

func TestSession_CalculateReportsFailures(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t))
	snap := createSession(t, app)
	base := "/v1/sessions/" + snap.ID

	status, _ := doRequest(t, app, "PUT", base+"/rows/0", `{"amount":"10","date":"2024-03-03"}`)
	require.Equal(t, fiber.StatusOK, status)

	status, body := doRequest(t, app, "POST", base+"/calculate", "")
	require.Equal(t, fiber.StatusOK, status)

	resp := decode[CalculateResponse](t, body)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "unexpected HTTP status", resp.Failures[0].Reason)
	assert.Equal(t, "2024-03-03: unexpected HTTP status", resp.Message)
	assert.Equal(t, "10", resp.Session.Rows[0].Amount)
}

func TestSession_UpdateRowAcceptsNumericAmount(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t))
	snap := createSession(t, app)
	row := "/v1/sessions/" + snap.ID + "/rows/0"

	tests := []struct {
		body   string
		amount string
	}{
		{`{"amount":100,"date":"2024-01-01"}`, "100"},
		{`{"amount":12.5,"date":"2024-01-01"}`, "12.5"},
		{`{"amount":"7","date":"2024-01-01"}`, "7"},
		{`{"amount":null,"date":"2024-01-01"}`, ""},
	}
	for _, tt := range tests {
		status, body := doRequest(t, app, "PUT", row, tt.body)
		require.Equal(t, fiber.StatusOK, status, tt.body)
		assert.Equal(t, tt.amount, decode[service.Snapshot](t, body).Rows[0].Amount, tt.body)
	}

	status, _ := doRequest(t, app, "PUT", row, `{"amount":true}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestSession_CalculateRejectsUnknownCurrency(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t, "2024-01-01"))
	snap := createSession(t, app)

	status, body := doRequest(t, app, "POST", "/v1/sessions/"+snap.ID+"/calculate", `{"from":"ZZZ","to":"GEL"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, decode[ErrorResponse](t, body).Error.Message, "ZZZ")

	status, body = doRequest(t, app, "GET", "/v1/preferences", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, domain.Currency("USD"), decode[domain.Preferences](t, body).FromCurrency)
}

func TestSession_Errors(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t))
	snap := createSession(t, app)
	base := "/v1/sessions/" + snap.ID

	status, _ := doRequest(t, app, "GET", "/v1/sessions/unknown", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doRequest(t, app, "DELETE", base+"/rows/0", "")
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = doRequest(t, app, "PUT", base+"/rows/7", `{"amount":"1"}`)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doRequest(t, app, "PUT", base+"/rows/x", `{"amount":"1"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doRequest(t, app, "PUT", base+"/rows/0", `{"date":"tomorrow"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doRequest(t, app, "DELETE", base+"/summary/0", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doRequest(t, app, "DELETE", base, "")
	assert.Equal(t, fiber.StatusNoContent, status)
	status, _ = doRequest(t, app, "GET", base, "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

// --- Preferences ---

func TestPreferences_RoundTrip(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t, "2024-01-01"))

	status, body := doRequest(t, app, "GET", "/v1/preferences", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, domain.DefaultPreferences(), decode[domain.Preferences](t, body))

	status, _ = doRequest(t, app, "PUT", "/v1/preferences", `{"fromCurrency":"eur","toCurrency":"USD","theme":"dark"}`)
	require.Equal(t, fiber.StatusOK, status)

	status, body = doRequest(t, app, "GET", "/v1/preferences", "")
	require.Equal(t, fiber.StatusOK, status)
	prefs := decode[domain.Preferences](t, body)
	assert.Equal(t, domain.Currency("EUR"), prefs.FromCurrency)
	assert.Equal(t, domain.ThemeDark, prefs.Theme)

	status, body = doRequest(t, app, "POST", "/v1/preferences/theme/toggle", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, domain.ThemeLight, decode[domain.Preferences](t, body).Theme)
}

func TestPreferences_Validation(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t))

	status, _ := doRequest(t, app, "PUT", "/v1/preferences", `{"fromCurrency":"USD","toCurrency":"GEL","theme":"blue"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doRequest(t, app, "PUT", "/v1/preferences", `{"fromCurrency":"US"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestPreferences_UnknownCurrencyRejected(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t, "2024-01-01"))

	status, _ := doRequest(t, app, "PUT", "/v1/preferences", `{"fromCurrency":"ZZZ","toCurrency":"GEL"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	snap := createSession(t, app)
	assert.Equal(t, domain.Currency("USD"), snap.From)
	assert.Equal(t, domain.Currency("GEL"), snap.To)
}

func TestCreateSession_StaleSavedCurrencyFallsBack(t *testing.T) {
	store := prefstore.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), prefstore.KeyFromCurrency, "ZZZ"))
	require.NoError(t, store.Set(context.Background(), prefstore.KeyToCurrency, "EUR"))
	app := setupTestAppWithStore(t, newMockRepo(t, "2024-01-01"), store)

	snap := createSession(t, app)
	assert.Equal(t, domain.Currency("USD"), snap.From)
	assert.Equal(t, domain.Currency("EUR"), snap.To)

	status, body := doRequest(t, app, "GET", "/v1/preferences", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, snap.From, decode[domain.Preferences](t, body).FromCurrency)
}

// --- Health ---

func TestHealth(t *testing.T) {
	app := setupTestApp(t, newMockRepo(t))

	status, body := doRequest(t, app, "GET", "/health", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"status":"UP"}`, string(body))
}
