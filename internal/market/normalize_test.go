package market

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func TestNormalizeDhan_Columnar(t *testing.T) {
	data := json.RawMessage(`{
		"timestamp": [1700000000, 1700000060],
		"open":   [100.0, 100.5],
		"high":   [101.0, 101.5],
		"low":    [99.5, 100.25],
		"close":  [100.5, 101.0],
		"volume": [1200, 3400]
	}`)

	ticks, err := NormalizeDhan(data, ist)
	require.NoError(t, err)
	require.Len(t, ticks, 2)

	assert.Equal(t, TickRecord{Time: "03:43", Open: 100, High: 101, Low: 99.5, Price: 100.5, Volume: 1200}, ticks[0])
	assert.Equal(t, "03:44", ticks[1].Time)
	assert.Equal(t, 101.0, ticks[1].Price)
	assert.Equal(t, int64(3400), ticks[1].Volume)
}

func TestNormalizeDhan_ShortColumnsZeroFill(t *testing.T) {
	data := json.RawMessage(`{
		"timestamp": [1700000000, 1700000060, 1700000120, 1700000180],
		"open":   [10],
		"high":   [11, 12],
		"low":    [],
		"close":  [10.5, 11.5, 12.5],
		"volume": [5]
	}`)

	ticks, err := NormalizeDhan(data, ist)
	require.NoError(t, err)
	require.Len(t, ticks, 4, "one record per timestamp")

	assert.Equal(t, 10.0, ticks[0].Open)
	assert.Zero(t, ticks[1].Open)
	assert.Equal(t, 12.0, ticks[1].High)
	assert.Zero(t, ticks[2].High)
	for _, tk := range ticks {
		assert.Zero(t, tk.Low)
	}
	assert.Equal(t, 12.5, ticks[2].Price)
	assert.Zero(t, ticks[3].Price)
	assert.Equal(t, int64(5), ticks[0].Volume)
	assert.Zero(t, ticks[3].Volume)
}

func TestNormalizeDhan_NullSamplesAreZero(t *testing.T) {
	data := json.RawMessage(`{"timestamp":[1700000000],"open":[null],"high":[1],"low":[1],"close":[1],"volume":[null]}`)

	ticks, err := NormalizeDhan(data, ist)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Zero(t, ticks[0].Open)
	assert.Zero(t, ticks[0].Volume)
}

func TestNormalizeDhan_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"non numeric string": `{"timestamp":[1700000000],"close":["abc"]}`,
		"boolean price":      `{"timestamp":[1700000000],"open":[true]}`,
		"negative volume":    `{"timestamp":[1700000000],"close":[1],"volume":[-3]}`,
		"bare number":        `42`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeDhan(json.RawMessage(payload), ist)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeDhan_NumericStringsAccepted(t *testing.T) {
	data := json.RawMessage(`{"timestamp":[1700000000],"open":["100.25"],"high":[1],"low":[1],"close":["100.5"],"volume":["42"]}`)

	ticks, err := NormalizeDhan(data, ist)
	require.NoError(t, err)
	assert.Equal(t, 100.25, ticks[0].Open)
	assert.Equal(t, 100.5, ticks[0].Price)
	assert.Equal(t, int64(42), ticks[0].Volume)
}

func TestNormalizeDhan_LegacyRows(t *testing.T) {
	data := json.RawMessage(`[
		{"timestamp": "2025-11-12 09:15:00", "open": 10, "high": 11, "low": 9, "close": 10.5, "volume": 100},
		"garbage",
		42,
		{"timestamp": "09:16", "open": 10.5, "high": 11.5, "low": 10, "close": 11}
	]`)

	ticks, err := NormalizeDhan(data, ist)
	require.NoError(t, err)
	require.Len(t, ticks, 2, "non-object rows are skipped")

	assert.Equal(t, "09:15:00", ticks[0].Time)
	assert.Equal(t, 10.5, ticks[0].Price)
	assert.Equal(t, int64(100), ticks[0].Volume)
	assert.Equal(t, "09:16", ticks[1].Time)
	assert.Zero(t, ticks[1].Volume)
}

func TestNormalizeYahoo_SkipsGapsAndSorts(t *testing.T) {
	var chart yahooChart
	require.NoError(t, json.Unmarshal([]byte(`{"chart":{"result":[{
		"timestamp":[1700000060,1700000000,1700000120],
		"indicators":{"quote":[{
			"open":[2,1,null],
			"high":[2.5,1.5,null],
			"low":[1.5,0.5,null],
			"close":[2.25,1.25,null],
			"volume":[20,null,null]
		}]}
	}],"error":null}}`), &chart))

	ticks, err := normalizeYahoo(chart, ist)
	require.NoError(t, err)
	require.Len(t, ticks, 2)
	assert.Equal(t, TickRecord{Time: "03:43", Open: 1, High: 1.5, Low: 0.5, Price: 1.25, Volume: 0}, ticks[0])
	assert.Equal(t, TickRecord{Time: "03:44", Open: 2, High: 2.5, Low: 1.5, Price: 2.25, Volume: 20}, ticks[1])
}
