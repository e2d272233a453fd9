package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"one char", "a", 1},
		{"three chars", "abc", 1},
		{"four chars", "abcd", 1},
		{"five chars", "abcde", 2},
		{"eight chars", "abcdefgh", 2},
		{"long", strings.Repeat("x", 4000), 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Estimate(tt.text))
		})
	}
}

func TestEstimateIsMonotonic(t *testing.T) {
	prev := 0
	for i := 1; i <= 64; i++ {
		got := Estimate(strings.Repeat("a", i))
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestEstimateCost(t *testing.T) {
	assert.Equal(t, 0.0, EstimateCost(0, 0.015))
	assert.InDelta(t, 0.015, EstimateCost(1000, 0.015), 1e-9)
	assert.InDelta(t, 0.0075, EstimateCost(500, 0.015), 1e-9)
}
