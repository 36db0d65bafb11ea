// Package scoring maps a notice's asking rent against a regional market
// baseline to a bounded 1.0-5.0 affordability score.
package scoring

import "math"

// Result is one scoring outcome. Score is within [1.00, 5.00] with two
// decimal places; DiffPercent is the signed percentage by which the notice
// is cheaper (positive) or more expensive (negative) than market, unbounded.
type Result struct {
	Score       float64 `json:"score"`
	DiffPercent float64 `json:"diffPercent"`
}

// Fixed policy branches for missing inputs. These are deliberate
// heuristics, not derived values.
var (
	// NeutralResult is returned when no market baseline exists.
	NeutralResult = Result{Score: 2.50, DiffPercent: 0.00}

	// FreeOrUnparsedResult is returned when the notice rent is zero or
	// negative: free housing is rare, an unparsed price common, and both
	// are treated as an extreme-value placeholder.
	FreeOrUnparsedResult = Result{Score: 4.50, DiffPercent: 100.00}
)

// Score compares marketRent and noticeRent (same currency unit, monthly
// won). Every 20 percentage points of cheapness raises the score by 1.0
// from the 2.5 midpoint, saturating at 1.0 and 5.0. Pure function; no I/O.
func Score(marketRent, noticeRent float64) Result {
	if marketRent <= 0 {
		return NeutralResult
	}
	if noticeRent <= 0 {
		return FreeOrUnparsedResult
	}

	diffPercent := round2((marketRent - noticeRent) / marketRent * 100)
	rawScore := 2.5 + diffPercent/20.0

	return Result{
		Score:       round2(clamp(rawScore, 1.0, 5.0)),
		DiffPercent: diffPercent,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
