package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/SnizhanaK/Currency-Converter/internals/core/domain"
	"github.com/SnizhanaK/Currency-Converter/internals/observability"

	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRowIndex        = errors.New("row index out of range")
	ErrLastRow         = errors.New("cannot remove the last row")
	ErrSummaryIndex    = errors.New("summary index out of range")
)

// RateFetcher returns the rate set for a date. repository.RateRepository satisfies it.
type RateFetcher interface {
	GetRates(ctx context.Context, date string) (*domain.RateSet, error)
}

// BatchResult is the outcome of converting one list of rows.
type BatchResult struct {
	Rows     []domain.Row
	Entries  []domain.SummaryEntry
	Total    *float64
	Failures []domain.RowFailure
}

type fetchOutcome struct {
	rates *domain.RateSet
	err   error
}

// CalculateBatch converts every complete row in order. Rows with a missing or
// non-positive amount, or no date, are skipped. A failing row never aborts the
// batch. Each distinct date is requested from fetcher at most once, including
// dates whose fetch failed.
func CalculateBatch(ctx context.Context, fetcher RateFetcher, rows []domain.Row, from, to domain.Currency) BatchResult {
	res := BatchResult{Rows: make([]domain.Row, len(rows))}
	fetched := make(map[string]fetchOutcome)
	var total float64

	for i, row := range rows {
		row.Result = nil
		res.Rows[i] = row

		amount, ok := domain.ParseAmount(row.Amount)
		date := strings.TrimSpace(row.Date)
		if !ok || date == "" {
			observability.IncrementConversion("skipped")
			continue
		}

		outcome, seen := fetched[date]
		if !seen {
			if _, err := domain.ParseDate(date); err != nil {
				outcome = fetchOutcome{err: err}
			} else if from == to {
				outcome = fetchOutcome{}
			} else {
				rates, err := fetcher.GetRates(ctx, date)
				outcome = fetchOutcome{rates: rates, err: err}
			}
			fetched[date] = outcome
		}
		if outcome.err != nil {
			res.Failures = append(res.Failures, rowFailure(i, date, outcome.err))
			observability.IncrementConversion("failed")
			continue
		}

		converted, err := ConvertStrict(amount, from, to, outcome.rates)
		if err != nil {
			res.Failures = append(res.Failures, rowFailure(i, date, err))
			observability.IncrementConversion("failed")
			continue
		}

		result := converted
		res.Rows[i].Result = &result
		res.Entries = append(res.Entries, domain.SummaryEntry{Amount: amount, Date: date, Result: converted})
		total += converted
		observability.IncrementConversion("success")
	}

	if len(res.Entries) > 0 {
		res.Total = &total
	}
	return res
}

// rowFailure keeps the full error in the log and a short reason for the user.
// A rate fetch failure is reported by its cause since the date is already on the row.
func rowFailure(index int, date string, err error) domain.RowFailure {
	zap.L().Info("row not converted", zap.Int("row", index), zap.String("date", date), zap.Error(err))

	reason := err.Error()
	var fetchErr *domain.RateFetchError
	if errors.As(err, &fetchErr) && fetchErr.Cause != "" {
		reason = fetchErr.Cause
	}
	return domain.RowFailure{Index: index, Date: date, Reason: reason}
}

// RowView is a row as shown to the user.
type RowView struct {
	domain.Row
	Formatted string `json:"formatted"`
}

// SummaryLine is a summary entry with display strings.
type SummaryLine struct {
	domain.SummaryEntry
	FormattedAmount string `json:"formattedAmount"`
	FormattedResult string `json:"formattedResult"`
}

// Snapshot is a copy of a session's state, safe to hand to other goroutines.
type Snapshot struct {
	ID             string          `json:"id"`
	From           domain.Currency `json:"from"`
	To             domain.Currency `json:"to"`
	Rows           []RowView       `json:"rows"`
	Summary        []SummaryLine   `json:"summary"`
	Total          *float64        `json:"total"`
	FormattedTotal string          `json:"formattedTotal"`
}

// Session owns the pending rows and the running summary of one user.
// All methods are safe for concurrent use; a batch holds the session lock
// until every row has been processed.
type Session struct {
	mu        sync.Mutex
	id        string
	fetcher   RateFetcher
	now       func() time.Time
	from      domain.Currency
	to        domain.Currency
	rows      []domain.Row
	summary   []domain.SummaryEntry
	total     *float64
	observers map[int]func(Snapshot)
	nextObs   int
}

// NewSession starts with a single empty row dated today.
func NewSession(id string, fetcher RateFetcher, now func() time.Time, prefs domain.Preferences) *Session {
	if now == nil {
		now = time.Now
	}
	s := &Session{
		id:        id,
		fetcher:   fetcher,
		now:       now,
		from:      prefs.FromCurrency,
		to:        prefs.ToCurrency,
		observers: make(map[int]func(Snapshot)),
	}
	s.rows = []domain.Row{s.emptyRow("")}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) emptyRow(date string) domain.Row {
	date = strings.TrimSpace(date)
	if date == "" {
		date = domain.Today(s.now())
	}
	return domain.Row{Date: date}
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned func removes the subscription.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// commit must be called with s.mu held; it releases the lock and notifies observers.
func (s *Session) commit() Snapshot {
	snap := s.snapshotLocked()
	observers := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
	return snap
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:      s.id,
		From:    s.from,
		To:      s.to,
		Rows:    make([]RowView, len(s.rows)),
		Summary: make([]SummaryLine, len(s.summary)),
	}
	for i, r := range s.rows {
		if r.Result != nil {
			v := *r.Result
			r.Result = &v
		}
		snap.Rows[i] = RowView{Row: r, Formatted: domain.FormatOptional(r.Result)}
	}
	for i, e := range s.summary {
		snap.Summary[i] = SummaryLine{
			SummaryEntry:    e,
			FormattedAmount: domain.FormatAmount(e.Amount),
			FormattedResult: domain.FormatAmount(e.Result),
		}
	}
	if s.total != nil {
		v := *s.total
		snap.Total = &v
	}
	snap.FormattedTotal = domain.FormatOptional(snap.Total)
	return snap
}

// AddRow appends an empty row. An empty date defaults to today.
func (s *Session) AddRow(date string) Snapshot {
	s.mu.Lock()
	s.rows = append(s.rows, s.emptyRow(date))
	return s.commit()
}

// UpdateRow replaces the inputs of a row and clears its previous result.
func (s *Session) UpdateRow(index int, amount, date string) (Snapshot, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.rows) {
		s.mu.Unlock()
		return Snapshot{}, ErrRowIndex
	}
	s.rows[index] = domain.Row{Amount: strings.TrimSpace(amount), Date: strings.TrimSpace(date)}
	return s.commit(), nil
}

// RemoveRow deletes a row; the last remaining row cannot be removed.
func (s *Session) RemoveRow(index int) (Snapshot, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.rows) {
		s.mu.Unlock()
		return Snapshot{}, ErrRowIndex
	}
	if len(s.rows) == 1 {
		s.mu.Unlock()
		return Snapshot{}, ErrLastRow
	}
	s.rows = append(s.rows[:index], s.rows[index+1:]...)
	return s.commit(), nil
}

// CalculateAll converts the current rows and appends the successful ones to
// the running summary. When at least one row converted, the rows are reset:
// rows that failed stay for correction and everything else is cleared, leaving
// one empty row dated today if nothing remains. When nothing converted the rows
// keep their input.
func (s *Session) CalculateAll(ctx context.Context, from, to domain.Currency) (Snapshot, []domain.RowFailure) {
	s.mu.Lock()
	from, to = from.Normalize(), to.Normalize()
	s.from, s.to = from, to

	batch := CalculateBatch(ctx, s.fetcher, s.rows, from, to)

	if len(batch.Entries) == 0 {
		s.rows = batch.Rows
	} else {
		s.summary = append(s.summary, batch.Entries...)
		s.total = sumEntries(s.summary)

		kept := make([]domain.Row, 0, len(batch.Failures))
		for _, f := range batch.Failures {
			kept = append(kept, batch.Rows[f.Index])
		}
		if len(kept) == 0 {
			kept = append(kept, s.emptyRow(""))
		}
		s.rows = kept
	}

	zap.L().Debug("batch calculated",
		zap.String("session", s.id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int("converted", len(batch.Entries)),
		zap.Int("failed", len(batch.Failures)),
	)
	return s.commit(), batch.Failures
}

// RemoveSummaryItem deletes one summary entry and re-sums the rest.
func (s *Session) RemoveSummaryItem(index int) (Snapshot, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.summary) {
		s.mu.Unlock()
		return Snapshot{}, ErrSummaryIndex
	}
	s.summary = append(s.summary[:index], s.summary[index+1:]...)
	s.total = sumEntries(s.summary)
	return s.commit(), nil
}

// ClearSummary empties the summary; the total becomes absent, not zero.
func (s *Session) ClearSummary() Snapshot {
	s.mu.Lock()
	s.summary = nil
	s.total = nil
	return s.commit()
}

func sumEntries(entries []domain.SummaryEntry) *float64 {
	if len(entries) == 0 {
		return nil
	}
	var total float64
	for _, e := range entries {
		total += e.Result
	}
	return &total
}
