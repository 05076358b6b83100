package marketplace

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/freightmarket/core/model"
)

// summarize aggregates the prices of ACTIVE and ACCEPTED quotes.
func summarize(quotes []model.Quote) model.QuoteSummary {
	prices := make([]float64, 0, len(quotes))
	for _, q := range quotes {
		if q.Status == model.QuoteRejected {
			continue
		}
		prices = append(prices, q.Price)
	}
	sum := model.QuoteSummary{Count: len(prices)}
	if len(prices) == 0 {
		return sum
	}
	sum.Min = floats.Min(prices)
	sum.Max = floats.Max(prices)
	if len(prices) == 1 {
		sum.Mean = prices[0]
		return sum
	}
	sum.Mean, sum.StdDev = stat.MeanStdDev(prices, nil)
	return sum
}
