package market

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultDhanBaseURL = "https://api.dhan.co"
	dhanTimeLayout     = "2006-01-02 15:04:05"
)

type DhanConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Instrument string
}

// DhanSession is one client's authenticated handle on the Dhan v2 REST API.
// Every reply is wrapped into a {status, remarks, data} envelope.
type DhanSession struct {
	creds      Credentials
	baseURL    string
	instrument string
	client     *http.Client
}

func NewDhanSession(cfg DhanConfig, creds Credentials) *DhanSession {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDhanBaseURL
	}
	if cfg.Instrument == "" {
		cfg.Instrument = "EQUITY"
	}
	return &DhanSession{
		creds:      creds,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		instrument: cfg.Instrument,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *DhanSession) ClientID() string { return s.creds.ClientID }

type intradayBody struct {
	SecurityID      string `json:"securityId"`
	ExchangeSegment string `json:"exchangeSegment"`
	Instrument      string `json:"instrument"`
	Interval        string `json:"interval"`
	OI              bool   `json:"oi"`
	FromDate        string `json:"fromDate"`
	ToDate          string `json:"toDate"`
}

// IntradayMinuteData requests 1-minute bars and returns the enveloped reply.
// A non-nil error means nothing usable came back over the wire.
func (s *DhanSession) IntradayMinuteData(ctx context.Context, q IntradayQuery) ([]byte, error) {
	body, err := json.Marshal(intradayBody{
		SecurityID:      q.SecurityID,
		ExchangeSegment: q.ExchangeSegment,
		Instrument:      s.instrument,
		Interval:        "1",
		FromDate:        q.From.Format(dhanTimeLayout),
		ToDate:          q.To.Format(dhanTimeLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return s.do(ctx, http.MethodPost, "/v2/charts/intraday", body)
}

type FundLimits struct {
	AvailableBalance float64 `json:"availableBalance"`
	SODLimit         float64 `json:"sodLimit"`
}

// FundLimits is the cheapest authenticated call and doubles as a credential check.
func (s *DhanSession) FundLimits(ctx context.Context) (FundLimits, error) {
	raw, err := s.do(ctx, http.MethodGet, "/v2/fundlimit", nil)
	if err != nil {
		return FundLimits{}, err
	}
	var env struct {
		Status  string          `json:"status"`
		Remarks json.RawMessage `json:"remarks"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return FundLimits{}, fmt.Errorf("decode fund limits: %w", err)
	}
	if strings.EqualFold(env.Status, "failure") {
		code, msg := parseRemarks(env.Remarks)
		return FundLimits{}, &UpstreamAuthError{Code: code, Message: msg}
	}
	var data struct {
		AvailableBalance *float64 `json:"availableBalance"`
		// the live API spells it this way
		AvailabelBalance *float64 `json:"availabelBalance"`
		SODLimit         float64  `json:"sodLimit"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return FundLimits{}, fmt.Errorf("decode fund limits: %w", err)
	}
	out := FundLimits{SODLimit: data.SODLimit}
	switch {
	case data.AvailableBalance != nil:
		out.AvailableBalance = *data.AvailableBalance
	case data.AvailabelBalance != nil:
		out.AvailableBalance = *data.AvailabelBalance
	}
	return out, nil
}

func (s *DhanSession) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access-token", s.creds.AccessToken)
	req.Header.Set("client-id", s.creds.ClientID)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request dhan: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read dhan: %w", err)
	}
	return wrapEnvelope(resp.StatusCode, data), nil
}

// wrapEnvelope folds an HTTP reply into the {status, remarks, data} shape.
func wrapEnvelope(status int, body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if status >= 200 && status < 300 {
		if len(trimmed) == 0 {
			return nil
		}
		if !json.Valid(trimmed) {
			// plain text replies are passed on as a bare string
			out, _ := json.Marshal(string(trimmed))
			return out
		}
		out, _ := json.Marshal(map[string]any{
			"status":  "success",
			"remarks": "",
			"data":    json.RawMessage(trimmed),
		})
		return out
	}

	var apiErr struct {
		ErrorType    string `json:"errorType"`
		ErrorCode    string `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	}
	remarks := map[string]string{}
	if err := json.Unmarshal(trimmed, &apiErr); err == nil && (apiErr.ErrorCode != "" || apiErr.ErrorMessage != "") {
		remarks["error_code"] = apiErr.ErrorCode
		remarks["error_type"] = apiErr.ErrorType
		remarks["error_message"] = apiErr.ErrorMessage
	} else {
		remarks["error_code"] = fmt.Sprintf("HTTP %d", status)
		msg := string(trimmed)
		if msg == "" {
			msg = http.StatusText(status)
		}
		remarks["error_message"] = msg
	}
	out, _ := json.Marshal(map[string]any{
		"status":  "failure",
		"remarks": remarks,
		"data":    "",
	})
	return out
}

// DhanAdapter is the primary source: it resolves the caller's session and
// classifies whatever Dhan answers.
type DhanAdapter struct {
	registry *Registry
	logger   zerolog.Logger
}

func NewDhanAdapter(registry *Registry) *DhanAdapter {
	return &DhanAdapter{
		registry: registry,
		logger:   log.With().Str("component", "dhan").Logger(),
	}
}

func (a *DhanAdapter) FetchIntraday(ctx context.Context, creds Credentials, q IntradayQuery) PrimaryOutcome {
	sess := a.registry.GetOrCreate(creds)
	raw, err := sess.IntradayMinuteData(ctx, q)
	if err != nil {
		a.logger.Warn().Err(err).Str("security_id", q.SecurityID).Bool("timeout", isTimeout(err)).Msg("intraday request failed")
		return primaryFailed(FailureTransport, "", "", err)
	}
	out := ClassifyEnvelope(raw)
	if out.Failure != nil {
		a.logger.Info().Str("security_id", q.SecurityID).Str("kind", out.Failure.Kind.String()).Msg(out.Failure.Error())
	}
	return out
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
