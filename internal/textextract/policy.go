package textextract

import "strings"

// DefaultAreaM2 is the working floor area substituted when a notice text
// yields no in-range area match. The substitution is a call-site policy:
// extractors themselves return empty results.
const DefaultAreaM2 = 25.0

// MaxAreaOrDefault picks the largest extracted area, or DefaultAreaM2 when
// nothing survived filtering.
func MaxAreaOrDefault(areas []float64) float64 {
	if len(areas) == 0 {
		return DefaultAreaM2
	}
	max := areas[0]
	for _, a := range areas[1:] {
		if a > max {
			max = a
		}
	}
	return max
}

// SplitDepositRent applies the global amounts heuristic used at ingestion:
// the largest parsed amount is the deposit, the smallest is the monthly
// rent, and rent stays zero when only a single amount was found. Kept
// separate from extraction so the heuristic can be swapped independently.
func SplitDepositRent(amounts []Amount) (deposit, rent float64) {
	if len(amounts) == 0 {
		return 0, 0
	}
	min, max := amounts[0].Won, amounts[0].Won
	for _, a := range amounts[1:] {
		if a.Won < min {
			min = a.Won
		}
		if a.Won > max {
			max = a.Won
		}
	}
	deposit = max
	if len(amounts) > 1 {
		rent = min
	}
	return deposit, rent
}

// JoinOrNA renders a keyword set as a stored summary field: comma-joined,
// or "N/A" when the scan found nothing.
func JoinOrNA(values []string) string {
	if len(values) == 0 {
		return "N/A"
	}
	return strings.Join(values, ", ")
}
