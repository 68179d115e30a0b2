package market

import (
	"context"
	"time"

	"market-data-proxy/internal/store"
)

const (
	SourceDhan     = "dhan"
	SourceYFinance = "yfinance"

	DefaultExchangeSegment = "NSE_EQ"
)

// TickRecord is one 1-minute OHLCV observation in the shape the frontend charts.
type TickRecord struct {
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
}

type FetchRequest struct {
	ClientID        string `json:"clientId"`
	AccessToken     string `json:"accessToken"`
	Symbol          string `json:"symbol"`
	SecurityID      string `json:"securityId"`
	ExchangeSegment string `json:"exchangeSegment"`
	Date            string `json:"date"`

	RequestID string `json:"-"`
}

type FetchResult struct {
	Success    bool         `json:"success"`
	Symbol     string       `json:"symbol"`
	Date       string       `json:"date"`
	DataPoints int          `json:"dataPoints"`
	Data       []TickRecord `json:"data"`
	DataSource string       `json:"dataSource,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Credentials are passed through from the caller and never stored beyond the session.
type Credentials struct {
	ClientID    string
	AccessToken string
}

type IntradayQuery struct {
	SecurityID      string
	ExchangeSegment string
	From            time.Time
	To              time.Time
}

//go:generate mockgen -source=types.go -destination=mock_sources_test.go -package=market

// PrimarySource is the brokerage side of the fallback chain.
type PrimarySource interface {
	FetchIntraday(ctx context.Context, creds Credentials, q IntradayQuery) PrimaryOutcome
}

// FallbackSource is consulted only after the primary source has failed.
type FallbackSource interface {
	FetchIntraday(ctx context.Context, symbol string, day time.Time) FallbackOutcome
}

type FallbackOutcome struct {
	Ticks []TickRecord
	Err   error
}

func (o FallbackOutcome) OK() bool {
	return o.Err == nil && len(o.Ticks) > 0
}

// Recorder receives one audit row per completed request.
type Recorder interface {
	InsertFetchLog(ctx context.Context, rec store.FetchLogRecord) error
}
