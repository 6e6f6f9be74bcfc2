// Package rank joins the flow and technical signals per instrument into
// a deterministic composite ordering.
package rank

import (
	"sort"

	"github.com/nicholaslie90/stock-scanner/internal/flow"
	"github.com/nicholaslie90/stock-scanner/internal/technical"
)

// Result pairs both signal halves for one instrument. Either half may be
// nil; partial data still ranks rather than dropping the instrument.
type Result struct {
	Symbol    string
	Composite float64
	Flow      *flow.Signal
	Technical *technical.Context
}

// Ranker folds the flow score with secondary technical context and sorts.
type Ranker struct {
	minValueTraded float64
}

// NewRanker builds a ranker. minValueTraded is the liquidity floor; zero
// disables it.
func NewRanker(minValueTraded float64) *Ranker {
	return &Ranker{minValueTraded: minValueTraded}
}

// Rank joins on instrument identity and orders by composite score
// descending, tie-broken by descending net money, then symbol for
// stability. Instruments below the liquidity floor are excluded.
func (r *Ranker) Rank(flows []flow.Signal, contexts []*technical.Context) []Result {
	bySymbol := make(map[string]*Result)
	order := make([]string, 0, len(flows)+len(contexts))

	for i := range flows {
		f := &flows[i]
		bySymbol[f.Symbol] = &Result{Symbol: f.Symbol, Flow: f}
		order = append(order, f.Symbol)
	}
	for _, tc := range contexts {
		if tc == nil {
			continue
		}
		res, ok := bySymbol[tc.Symbol]
		if !ok {
			res = &Result{Symbol: tc.Symbol}
			bySymbol[tc.Symbol] = res
			order = append(order, tc.Symbol)
		}
		res.Technical = tc
	}

	results := make([]Result, 0, len(order))
	for _, symbol := range order {
		res := bySymbol[symbol]
		if r.minValueTraded > 0 && estimatedValue(res) < r.minValueTraded {
			continue
		}
		res.Composite = composite(res)
		results = append(results, *res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Composite != results[j].Composite {
			return results[i].Composite > results[j].Composite
		}
		ni, nj := netMoney(results[i]), netMoney(results[j])
		if ni != nj {
			return ni > nj
		}
		return results[i].Symbol < results[j].Symbol
	})
	return results
}

// estimatedValue is the best available traded-value estimate: the gross
// top-N flow turnover when flow data exists, otherwise the final bar's
// close times volume.
func estimatedValue(res *Result) float64 {
	if res.Flow != nil {
		return res.Flow.Turnover
	}
	if res.Technical != nil {
		return res.Technical.ValueTraded
	}
	return 0
}

// composite folds the integer flow score with a bounded technical bonus
// so flow tiers dominate and technical context breaks near-ties.
func composite(res *Result) float64 {
	var score float64
	if res.Flow != nil {
		score = float64(res.Flow.Score)
	}
	if tc := res.Technical; tc != nil {
		rvol := tc.RelativeVolume
		if rvol > 2 {
			rvol = 2
		}
		score += 0.25 * rvol
		if tc.TrendUp {
			score += 0.25
		}
		if tc.Close >= tc.ReferencePrice {
			score += 0.25
		}
	}
	return score
}

func netMoney(res Result) float64 {
	if res.Flow == nil {
		return 0
	}
	return res.Flow.NetMoney
}
