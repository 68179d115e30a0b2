package market

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// columnarSeries is the Dhan v2 chart payload: parallel arrays indexed by timestamp.
type columnarSeries struct {
	Timestamp []json.Number `json:"timestamp"`
	Open      []json.Number `json:"open"`
	High      []json.Number `json:"high"`
	Low       []json.Number `json:"low"`
	Close     []json.Number `json:"close"`
	Volume    []json.Number `json:"volume"`
}

// NormalizeDhan converts either Dhan payload shape into tick records.
// Times are rendered as wall clock in loc.
func NormalizeDhan(data json.RawMessage, loc *time.Location) ([]TickRecord, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("empty payload")
	}
	switch trimmed[0] {
	case '{':
		return normalizeColumnar(data, loc)
	case '[':
		return normalizeRows(data)
	}
	return nil, fmt.Errorf("unsupported payload shape")
}

func normalizeColumnar(data json.RawMessage, loc *time.Location) ([]TickRecord, error) {
	var s columnarSeries
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode columnar payload: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	out := make([]TickRecord, 0, len(s.Timestamp))
	for i, raw := range s.Timestamp {
		sec, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("timestamp[%d]: %w", i, err)
		}
		rec, err := buildTick(time.Unix(int64(sec), 0).In(loc).Format("15:04"),
			at(s.Open, i), at(s.High, i), at(s.Low, i), at(s.Close, i), at(s.Volume, i))
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// legacyRow is the older row-wise Dhan payload.
type legacyRow struct {
	Timestamp any         `json:"timestamp"`
	Open      json.Number `json:"open"`
	High      json.Number `json:"high"`
	Low       json.Number `json:"low"`
	Close     json.Number `json:"close"`
	Volume    json.Number `json:"volume"`
}

func normalizeRows(data json.RawMessage) ([]TickRecord, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode row payload: %w", err)
	}
	out := make([]TickRecord, 0, len(rows))
	for i, raw := range rows {
		if !isObject(raw) {
			continue
		}
		var row legacyRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		ts, _ := row.Timestamp.(string)
		if _, after, ok := strings.Cut(ts, " "); ok {
			ts = after
		}
		rec, err := buildTick(ts, row.Open, row.High, row.Low, row.Close, row.Volume)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func buildTick(t string, open, high, low, closePrice, volume json.Number) (TickRecord, error) {
	rec := TickRecord{Time: t}
	var err error
	if rec.Open, err = toFloat(open); err != nil {
		return TickRecord{}, fmt.Errorf("open: %w", err)
	}
	if rec.High, err = toFloat(high); err != nil {
		return TickRecord{}, fmt.Errorf("high: %w", err)
	}
	if rec.Low, err = toFloat(low); err != nil {
		return TickRecord{}, fmt.Errorf("low: %w", err)
	}
	if rec.Price, err = toFloat(closePrice); err != nil {
		return TickRecord{}, fmt.Errorf("close: %w", err)
	}
	if rec.Volume, err = toVolume(volume); err != nil {
		return TickRecord{}, fmt.Errorf("volume: %w", err)
	}
	return rec, nil
}

// at returns the i-th sample, or "" when the column is too short.
func at(col []json.Number, i int) json.Number {
	if i < len(col) {
		return col[i]
	}
	return ""
}

// toFloat treats a missing sample as zero but rejects values that are present
// and not numeric.
func toFloat(n json.Number) (float64, error) {
	if n == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", string(n))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite: %q", string(n))
	}
	return f, nil
}

func toVolume(n json.Number) (int64, error) {
	f, err := toFloat(n)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("negative volume %v", f)
	}
	return int64(f), nil
}

func isObject(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "{")
}
