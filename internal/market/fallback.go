package market

import "fmt"

// Resolve turns the outcomes of one request into its final result.
//
//	TryingPrimary -> Success(dhan)
//	              -> TryingFallback -> Success(yfinance)
//	                                -> BothFailed
//
// primaryErr nil means ticks came from Dhan and fallback is ignored.
// fallback nil means the fallback source was never consulted.
func Resolve(req FetchRequest, ticks []TickRecord, primaryErr *PrimaryFailure, fallback *FallbackOutcome) FetchResult {
	if primaryErr == nil {
		return success(req, ticks, SourceDhan)
	}
	if fallback != nil && fallback.OK() {
		return success(req, fallback.Ticks, SourceYFinance)
	}

	msg := fmt.Sprintf("%s; yfinance fallback returned no data", primaryErr.Error())
	if fallback != nil && fallback.Err != nil {
		msg = fmt.Sprintf("%s (%v)", msg, fallback.Err)
	}
	return FetchResult{
		Success: false,
		Symbol:  req.Symbol,
		Date:    req.Date,
		Data:    []TickRecord{},
		Error:   msg,
	}
}

func success(req FetchRequest, ticks []TickRecord, source string) FetchResult {
	return FetchResult{
		Success:    true,
		Symbol:     req.Symbol,
		Date:       req.Date,
		DataPoints: len(ticks),
		Data:       ticks,
		DataSource: source,
	}
}
