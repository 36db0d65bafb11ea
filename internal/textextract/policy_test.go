package textextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxAreaOrDefault(t *testing.T) {
	tests := []struct {
		name     string
		areas    []float64
		expected float64
	}{
		{"empty uses default", nil, 25.0},
		{"single value", []float64{59.9}, 59.9},
		{"picks max", []float64{29, 84.5, 15}, 84.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaxAreaOrDefault(tt.areas))
		})
	}
}

func TestSplitDepositRent(t *testing.T) {
	tests := []struct {
		name            string
		amounts         []Amount
		expectedDeposit float64
		expectedRent    float64
	}{
		{"empty", nil, 0, 0},
		{
			"single amount is deposit only",
			[]Amount{{Text: "1,000만원", Won: 10000000}},
			10000000, 0,
		},
		{
			"max deposit min rent",
			[]Amount{
				{Text: "1,000만원", Won: 10000000},
				{Text: "150,000원", Won: 150000},
				{Text: "5만원", Won: 50000},
			},
			10000000, 50000,
		},
		{
			"equal amounts",
			[]Amount{{Text: "10만원", Won: 100000}, {Text: "10만원", Won: 100000}},
			100000, 100000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deposit, rent := SplitDepositRent(tt.amounts)
			assert.Equal(t, tt.expectedDeposit, deposit)
			assert.Equal(t, tt.expectedRent, rent)
		})
	}
}

func TestJoinOrNA(t *testing.T) {
	assert.Equal(t, "N/A", JoinOrNA(nil))
	assert.Equal(t, "무주택", JoinOrNA([]string{"무주택"}))
	assert.Equal(t, "무주택, 청년", JoinOrNA([]string{"무주택", "청년"}))
}
