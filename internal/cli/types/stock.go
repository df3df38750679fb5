package types

// ChartResponse is the subset of the finance provider's chart payload the
// CLI renders. The server proxies the payload verbatim, so this mirrors
// the provider's native shape.
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

// ChartResult is one symbol's series.
type ChartResult struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// ChartError is the provider's error envelope.
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// StockSeries is the flattened series the chart renderer consumes.
type StockSeries struct {
	Symbol     string
	Currency   string
	Timestamps []int64
	Closes     []float64
}

// Series flattens the first result into a StockSeries. It returns nil
// when the payload carries no usable series.
func (r *ChartResponse) Series() *StockSeries {
	if len(r.Chart.Result) == 0 {
		return nil
	}
	result := r.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	closes := result.Indicators.Quote[0].Close
	n := len(result.Timestamp)
	if len(closes) < n {
		n = len(closes)
	}
	if n == 0 {
		return nil
	}

	return &StockSeries{
		Symbol:     result.Meta.Symbol,
		Currency:   result.Meta.Currency,
		Timestamps: result.Timestamp[:n],
		Closes:     closes[:n],
	}
}
