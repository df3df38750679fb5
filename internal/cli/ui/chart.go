package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/lvyanru/stockchat/internal/cli/types"
)

const chartBarWidth = 30

// RenderPriceChart renders a daily closing price series as a boxed bar
// chart with a change summary, one row per trading day.
func RenderPriceChart(series *types.StockSeries) string {
	if series == nil || len(series.Closes) == 0 {
		return ""
	}

	min, max := series.Closes[0], series.Closes[0]
	for _, v := range series.Closes {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	var b strings.Builder
	b.WriteString(Styles.Bold.Render(fmt.Sprintf("%s — last %d days", series.Symbol, len(series.Closes))))
	b.WriteString("\n\n")

	for i, close := range series.Closes {
		date := time.Unix(series.Timestamps[i], 0).Format("Jan 02")
		bar := priceBar(close, min, max)
		b.WriteString(fmt.Sprintf("%s  %s  %8.2f\n", Styles.Dim.Render(date), bar, close))
	}

	first, last := series.Closes[0], series.Closes[len(series.Closes)-1]
	change := last - first
	pct := 0.0
	if first != 0 {
		pct = change / first * 100
	}

	summary := fmt.Sprintf("%+.2f (%+.2f%%)", change, pct)
	if series.Currency != "" {
		summary += " " + series.Currency
	}
	b.WriteString("\n")
	b.WriteString(Styles.Accent.Render(summary))

	return Styles.ChartBox.Render(b.String())
}

// priceBar scales a close into a fixed-width block bar. A flat series
// renders full bars rather than dividing by zero.
func priceBar(value, min, max float64) string {
	width := chartBarWidth
	if max > min {
		width = 1 + int((value-min)/(max-min)*float64(chartBarWidth-1))
	}
	bar := strings.Repeat("█", width)
	return runewidth.FillRight(bar, chartBarWidth)
}
