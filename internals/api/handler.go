package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"
	"github.com/SnizhanaK/Currency-Converter/internals/service"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

type Handler struct {
	rateService service.RateService
	sessions    service.SessionManager
	preferences service.PreferenceService
	validate    *validator.Validate
	now         func() time.Time
}

func NewHandler(rs service.RateService, sm service.SessionManager, ps service.PreferenceService, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{
		rateService: rs,
		sessions:    sm,
		preferences: ps,
		validate:    validator.New(),
		now:         now,
	}
}

type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		zap.L().Error("error handling request", zap.String("path", c.Path()), zap.Error(err))
	} else {
		zap.L().Debug("request rejected", zap.String("path", c.Path()), zap.Int("status", code), zap.Error(err))
	}

	return c.Status(code).JSON(ErrorResponse{
		Error: struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}{
			Code:    http.StatusText(code),
			Message: message,
		},
	})
}

// toHTTPError maps service and domain errors onto status codes.
func toHTTPError(err error) error {
	var fetchErr *domain.RateFetchError
	switch {
	case errors.As(err, &fetchErr):
		return fiber.NewError(fiber.StatusBadGateway, fetchErr.Error())
	case errors.Is(err, domain.ErrInvalidDateFormat), errors.Is(err, domain.ErrInvalidAmount):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnknownCurrency):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrRowIndex),
		errors.Is(err, service.ErrSummaryIndex):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrLastRow):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return err
}

func (h *Handler) today() string {
	return domain.Today(h.now())
}

func (h *Handler) bind(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(dst); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	return h.check(dst)
}

func (h *Handler) check(dst interface{}) error {
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" failed "+fe.Tag())
			}
			return fiber.NewError(fiber.StatusBadRequest, strings.Join(fields, "; "))
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// --- Rates ---

type dateQuery struct {
	Date string `query:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) dateParam(c *fiber.Ctx) (string, error) {
	q := dateQuery{Date: strings.TrimSpace(c.Query("date"))}
	if err := h.check(&q); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid `date` format, expected YYYY-MM-DD")
	}
	if q.Date == "" {
		return h.today(), nil
	}
	return q.Date, nil
}

func (h *Handler) GetRates(c *fiber.Ctx) error {
	date, err := h.dateParam(c)
	if err != nil {
		return err
	}

	rates, err := h.rateService.GetRates(c.Context(), date)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(rates)
}

func (h *Handler) GetCurrencies(c *fiber.Ctx) error {
	date, err := h.dateParam(c)
	if err != nil {
		return err
	}

	options, err := h.rateService.ListCurrencies(c.Context(), date)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{"date": date, "currencies": options})
}

type convertQuery struct {
	From   string  `query:"from" validate:"required,alpha,len=3"`
	To     string  `query:"to" validate:"required,alpha,len=3"`
	Amount float64 `query:"amount" validate:"required,gt=0"`
	Date   string  `query:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) Convert(c *fiber.Ctx) error {
	var q convertQuery
	if err := c.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "amount must be a positive number")
	}
	if err := h.check(&q); err != nil {
		return err
	}
	if q.Date == "" {
		q.Date = h.today()
	}

	result, err := h.rateService.Convert(c.Context(), domain.ConversionRequest{
		From:   domain.Currency(q.From),
		To:     domain.Currency(q.To),
		Amount: q.Amount,
		Date:   q.Date,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(result)
}

// --- Sessions ---

func (h *Handler) session(c *fiber.Ctx) (*service.Session, error) {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return nil, toHTTPError(err)
	}
	return s, nil
}

func (h *Handler) CreateSession(c *fiber.Ctx) error {
	prefs := h.preferences.Load(c.Context(), h.availableCurrencies(c))
	s := h.sessions.Create(prefs)
	return c.Status(fiber.StatusCreated).JSON(s.Snapshot())
}

func (h *Handler) GetSession(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(s.Snapshot())
}

func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	if err := h.sessions.Delete(c.Params("id")); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// rowAmount accepts a JSON string, number or null and keeps the text form.
type rowAmount string

func (a *rowAmount) UnmarshalJSON(data []byte) error {
	r := gjson.ParseBytes(data)
	switch r.Type {
	case gjson.Null:
		*a = ""
	case gjson.String:
		*a = rowAmount(r.Str)
	case gjson.Number:
		*a = rowAmount(r.Raw)
	default:
		return fmt.Errorf("amount must be a string or a number, got %s", r.Raw)
	}
	return nil
}

type rowRequest struct {
	Amount rowAmount `json:"amount" validate:"max=64"`
	Date   string    `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) AddRow(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req rowRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(s.AddRow(req.Date))
}

func (h *Handler) UpdateRow(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	index, err := c.ParamsInt("index")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "index must be an integer")
	}
	var req rowRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	snap, err := s.UpdateRow(index, string(req.Amount), req.Date)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(snap)
}

func (h *Handler) RemoveRow(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	index, err := c.ParamsInt("index")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "index must be an integer")
	}

	snap, err := s.RemoveRow(index)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(snap)
}

type calculateRequest struct {
	From string `json:"from" validate:"omitempty,alpha,len=3"`
	To   string `json:"to" validate:"omitempty,alpha,len=3"`
}

type CalculateResponse struct {
	Session  service.Snapshot    `json:"session"`
	Failures []domain.RowFailure `json:"failures"`
	Message  string              `json:"message,omitempty"`
}

// Calculate runs the batch for a session. Missing currencies default to the
// session's last pair; an explicit pair is saved as the new preference.
func (h *Handler) Calculate(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req calculateRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	current := s.Snapshot()
	from, to := domain.Currency(req.From).Normalize(), domain.Currency(req.To).Normalize()
	if from == "" {
		from = current.From
	}
	if to == "" {
		to = current.To
	}

	if req.From != "" || req.To != "" {
		available := h.availableCurrencies(c)
		if err := checkCurrencies(available, from, to); err != nil {
			return err
		}
		prefs := h.preferences.Load(c.Context(), available)
		prefs.FromCurrency, prefs.ToCurrency = from, to
		if err := h.preferences.Save(c.Context(), prefs); err != nil {
			zap.L().Warn("could not save currency preference", zap.Error(err))
		}
	}

	snap, failures := s.CalculateAll(c.Context(), from, to)
	resp := CalculateResponse{Session: snap, Failures: failures}
	if resp.Failures == nil {
		resp.Failures = []domain.RowFailure{}
	}
	if len(failures) > 0 {
		resp.Message = fmt.Sprintf("%s: %s", failures[0].Date, failures[0].Reason)
	}
	return c.JSON(resp)
}

func (h *Handler) ClearSummary(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(s.ClearSummary())
}

func (h *Handler) RemoveSummaryItem(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	index, err := c.ParamsInt("index")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "index must be an integer")
	}

	snap, err := s.RemoveSummaryItem(index)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(snap)
}

// --- Preferences ---

// checkCurrencies rejects codes that cannot be picked from the currency list.
func checkCurrencies(available []domain.CurrencyOption, codes ...domain.Currency) error {
	for _, code := range codes {
		if !service.CurrencyAvailable(available, code) {
			return toHTTPError(fmt.Errorf("%w: %s", domain.ErrUnknownCurrency, code))
		}
	}
	return nil
}

// availableCurrencies is today's currency list, or nil when it cannot be loaded.
func (h *Handler) availableCurrencies(c *fiber.Ctx) []domain.CurrencyOption {
	options, err := h.rateService.ListCurrencies(c.Context(), h.today())
	if err != nil {
		zap.L().Debug("currency list unavailable, preferences not checked", zap.Error(err))
		return nil
	}
	return options
}

func (h *Handler) GetPreferences(c *fiber.Ctx) error {
	return c.JSON(h.preferences.Load(c.Context(), h.availableCurrencies(c)))
}

type preferencesRequest struct {
	FromCurrency string `json:"fromCurrency" validate:"required,alpha,len=3"`
	ToCurrency   string `json:"toCurrency" validate:"required,alpha,len=3"`
	Theme        string `json:"theme" validate:"omitempty,oneof=light dark"`
}

func (h *Handler) PutPreferences(c *fiber.Ctx) error {
	var req preferencesRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	available := h.availableCurrencies(c)
	from, to := domain.Currency(req.FromCurrency).Normalize(), domain.Currency(req.ToCurrency).Normalize()
	if err := checkCurrencies(available, from, to); err != nil {
		return err
	}

	prefs := h.preferences.Load(c.Context(), available)
	prefs.FromCurrency, prefs.ToCurrency = from, to
	if req.Theme != "" {
		prefs.Theme = domain.ParseTheme(req.Theme)
	}

	if err := h.preferences.Save(c.Context(), prefs); err != nil {
		return err
	}
	return c.JSON(prefs)
}

func (h *Handler) ToggleTheme(c *fiber.Ctx) error {
	prefs, err := h.preferences.ToggleTheme(c.Context(), h.availableCurrencies(c))
	if err != nil {
		return err
	}
	return c.JSON(prefs)
}
