package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"market-data-proxy/internal/store"
)

type ServiceConfig struct {
	Location *time.Location
	// SessionOpen and SessionClose bound the primary request window, "HH:MM".
	SessionOpen     string
	SessionClose    string
	PrimaryTimeout  time.Duration
	FallbackTimeout time.Duration
}

// Service runs the historical-data pipeline: Dhan first, Yahoo only when
// Dhan fails, never both at once.
type Service struct {
	primary  PrimarySource
	fallback FallbackSource
	recorder Recorder
	cfg      ServiceConfig
	openAt   time.Duration
	closeAt  time.Duration
	logger   zerolog.Logger
}

func NewService(primary PrimarySource, fallback FallbackSource, recorder Recorder, cfg ServiceConfig) (*Service, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.SessionOpen == "" {
		cfg.SessionOpen = "09:15"
	}
	if cfg.SessionClose == "" {
		cfg.SessionClose = "15:30"
	}
	if cfg.PrimaryTimeout <= 0 {
		cfg.PrimaryTimeout = 10 * time.Second
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = 10 * time.Second
	}
	open, err := clockOffset(cfg.SessionOpen)
	if err != nil {
		return nil, fmt.Errorf("session open: %w", err)
	}
	closeAt, err := clockOffset(cfg.SessionClose)
	if err != nil {
		return nil, fmt.Errorf("session close: %w", err)
	}
	if closeAt <= open {
		return nil, fmt.Errorf("session close %s is not after open %s", cfg.SessionClose, cfg.SessionOpen)
	}
	return &Service{
		primary:  primary,
		fallback: fallback,
		recorder: recorder,
		cfg:      cfg,
		openAt:   open,
		closeAt:  closeAt,
		logger:   log.With().Str("component", "historical").Logger(),
	}, nil
}

// Validate checks the request and fills in the default exchange segment.
func Validate(req FetchRequest) (FetchRequest, time.Time, error) {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"clientId", req.ClientID},
		{"accessToken", req.AccessToken},
		{"symbol", req.Symbol},
		{"securityId", req.SecurityID},
		{"date", req.Date},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return req, time.Time{}, &ValidationError{Missing: missing}
	}
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return req, time.Time{}, &ValidationError{Reason: "invalid date format (YYYY-MM-DD)"}
	}
	if strings.TrimSpace(req.ExchangeSegment) == "" {
		req.ExchangeSegment = DefaultExchangeSegment
	}
	return req, day, nil
}

// FetchHistorical returns a result for every valid request. The error is
// reserved for validation failures and internal faults.
func (s *Service) FetchHistorical(ctx context.Context, req FetchRequest) (FetchResult, error) {
	req, day, err := Validate(req)
	if err != nil {
		return FetchResult{}, err
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.cfg.Location)

	creds := Credentials{ClientID: req.ClientID, AccessToken: req.AccessToken}
	q := IntradayQuery{
		SecurityID:      req.SecurityID,
		ExchangeSegment: req.ExchangeSegment,
		From:            midnight.Add(s.openAt),
		To:              midnight.Add(s.closeAt),
	}

	ticks, primaryErr := s.tryPrimary(ctx, creds, q)
	var fb *FallbackOutcome
	if primaryErr != nil {
		out := s.tryFallback(ctx, req.Symbol, midnight)
		fb = &out
	}
	res := Resolve(req, ticks, primaryErr, fb)

	ev := s.logger.Info()
	if !res.Success {
		ev = s.logger.Warn()
	}
	ev.Str("request_id", req.RequestID).
		Str("symbol", req.Symbol).
		Str("date", req.Date).
		Str("source", res.DataSource).
		Int("points", res.DataPoints).
		Bool("success", res.Success).
		Msg("historical data served")

	s.record(ctx, req, res, primaryErr)
	return res, nil
}

func (s *Service) tryPrimary(ctx context.Context, creds Credentials, q IntradayQuery) ([]TickRecord, *PrimaryFailure) {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.PrimaryTimeout)
	defer cancel()

	out := s.primary.FetchIntraday(pctx, creds, q)
	if out.Failure != nil {
		return nil, out.Failure
	}
	ticks, err := NormalizeDhan(out.Data, s.cfg.Location)
	if err != nil {
		return nil, &PrimaryFailure{Kind: FailureMalformed, Message: err.Error(), Err: err}
	}
	if len(ticks) == 0 {
		return nil, &PrimaryFailure{Kind: FailureEmpty}
	}
	return ticks, nil
}

func (s *Service) tryFallback(ctx context.Context, symbol string, day time.Time) (out FallbackOutcome) {
	fctx, cancel := context.WithTimeout(ctx, s.cfg.FallbackTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			out = FallbackOutcome{Err: fmt.Errorf("fallback panic: %v", r)}
		}
	}()
	return s.fallback.FetchIntraday(fctx, symbol, day)
}

func (s *Service) record(ctx context.Context, req FetchRequest, res FetchResult, primaryErr *PrimaryFailure) {
	if s.recorder == nil {
		return
	}
	rec := store.FetchLogRecord{
		TS:         time.Now().Unix(),
		RequestID:  req.RequestID,
		ClientID:   req.ClientID,
		Symbol:     strings.ToUpper(req.Symbol),
		SecurityID: req.SecurityID,
		Date:       req.Date,
		Source:     res.DataSource,
		Success:    res.Success,
		DataPoints: res.DataPoints,
		Error:      res.Error,
	}
	if primaryErr != nil {
		rec.PrimaryError = primaryErr.Error()
	}
	if err := s.recorder.InsertFetchLog(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Error().Err(err).Str("request_id", req.RequestID).Msg("record fetch log")
	}
}

func clockOffset(hhmm string) (time.Duration, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", hhmm)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
