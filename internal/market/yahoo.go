package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

type YahooConfig struct {
	BaseURL string
	Timeout time.Duration
	// Suffix is appended to NSE tickers, e.g. WIPRO -> WIPRO.NS.
	Suffix   string
	Location *time.Location
}

// YahooProvider is the fallback source backed by the public chart API.
type YahooProvider struct {
	baseURL string
	suffix  string
	loc     *time.Location
	client  *http.Client
	logger  zerolog.Logger
}

func NewYahooProvider(cfg YahooConfig) *YahooProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultYahooBaseURL
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &YahooProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		suffix:  cfg.Suffix,
		loc:     cfg.Location,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  log.With().Str("component", "yahoo").Logger(),
	}
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchIntraday makes a single attempt; any problem is reported as a failed outcome.
func (p *YahooProvider) FetchIntraday(ctx context.Context, symbol string, day time.Time) FallbackOutcome {
	ticks, err := p.fetch(ctx, symbol, day)
	if err != nil {
		p.logger.Warn().Err(err).Str("symbol", symbol).Msg("fallback fetch failed")
		return FallbackOutcome{Err: err}
	}
	if len(ticks) == 0 {
		return FallbackOutcome{Err: fmt.Errorf("yahoo: no data returned")}
	}
	return FallbackOutcome{Ticks: ticks}
}

func (p *YahooProvider) Ticker(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if p.suffix != "" && !strings.HasSuffix(s, p.suffix) {
		s += p.suffix
	}
	return s
}

func (p *YahooProvider) fetch(ctx context.Context, symbol string, day time.Time) ([]TickRecord, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, p.loc)
	end := start.Add(24 * time.Hour)

	u, err := url.Parse(p.baseURL + "/v8/finance/chart/" + url.PathEscape(p.Ticker(symbol)))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	q.Set("interval", "1m")
	q.Set("includePrePost", "false")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request yahoo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read yahoo: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d", resp.StatusCode)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("decode yahoo: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	return normalizeYahoo(chart, p.loc)
}

// normalizeYahoo converts chart rows into tick records. Bars without a close
// are gaps in the feed and are dropped.
func normalizeYahoo(chart yahooChart, loc *time.Location) ([]TickRecord, error) {
	if len(chart.Chart.Result) == 0 {
		return nil, nil
	}
	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 {
		return nil, nil
	}
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: missing quote indicators")
	}
	quote := result.Indicators.Quote[0]

	type bar struct {
		ts  int64
		rec TickRecord
	}
	bars := make([]bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := ptrAt(quote.Close, i)
		if c == nil {
			continue
		}
		vol := deref(ptrAt(quote.Volume, i))
		if vol < 0 {
			return nil, fmt.Errorf("yahoo: negative volume at %d", ts)
		}
		bars = append(bars, bar{ts: ts, rec: TickRecord{
			Time:   time.Unix(ts, 0).In(loc).Format("15:04"),
			Open:   deref(ptrAt(quote.Open, i)),
			High:   deref(ptrAt(quote.High, i)),
			Low:    deref(ptrAt(quote.Low, i)),
			Price:  *c,
			Volume: int64(vol),
		}})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].ts < bars[j].ts })

	out := make([]TickRecord, len(bars))
	for i, b := range bars {
		out[i] = b.rec
	}
	return out, nil
}

func ptrAt(col []*float64, i int) *float64 {
	if i < len(col) {
		return col[i]
	}
	return nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
