package plan

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrMissingWeights is returned when a plan has nothing to allocate.
var ErrMissingWeights = errors.New("plan missing allocation_weights")

// Allocation is a plan converted into money amounts.
type Allocation struct {
	Plan
	Strategy    string             `json:"strategy"`
	TotalAmount float64            `json:"total_amount"`
	Allocation  map[string]float64 `json:"allocation"`
}

var cent = decimal.New(1, -2)

// Scale rounds total·w to cents for each positive weight. A leftover of at
// least one cent goes to the largest weight, ties to the first ticker.
func Scale(p *Plan, total float64, strategyName string) (*Allocation, error) {
	if p == nil || len(p.AllocationWeights) == 0 {
		return nil, ErrMissingWeights
	}

	totalDec := decimal.NewFromFloat(total)
	amounts := map[string]decimal.Decimal{}
	sum := decimal.Zero
	best, bestWeight := "", 0.0
	for _, t := range p.AllocationWeights.Tickers() {
		w := p.AllocationWeights[t]
		if !(w > 0) {
			continue
		}
		amt := totalDec.Mul(decimal.NewFromFloat(w)).Round(2)
		amounts[t] = amt
		sum = sum.Add(amt)
		if best == "" || w > bestWeight {
			best, bestWeight = t, w
		}
	}

	if len(amounts) > 0 {
		diff := totalDec.Sub(sum).Round(2)
		if diff.Abs().GreaterThanOrEqual(cent) {
			amounts[best] = amounts[best].Add(diff).Round(2)
		}
	}

	out := make(map[string]float64, len(amounts))
	for t, a := range amounts {
		out[t] = a.InexactFloat64()
	}
	return &Allocation{
		Plan:        *p,
		Strategy:    strategyName,
		TotalAmount: total,
		Allocation:  out,
	}, nil
}
