package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRSI_MonotonicSeries(t *testing.T) {
	t.Run("AllGains", func(t *testing.T) {
		closes := make([]float64, 15)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}

		rsi, err := RSI(closes)

		assert.NoError(t, err)
		assert.Equal(t, 100.0, rsi)
	})

	t.Run("AllLosses", func(t *testing.T) {
		closes := make([]float64, 15)
		for i := range closes {
			closes[i] = 100 - float64(i)
		}

		rsi, err := RSI(closes)

		// Average gain is zero but the formula must still divide cleanly.
		assert.NoError(t, err)
		assert.InDelta(t, 0.0, rsi, 1e-9)
	})
}

func TestRSI_InsufficientData(t *testing.T) {
	for _, count := range []int{0, 1, 14} {
		closes := make([]float64, count)
		for i := range closes {
			closes[i] = 100
		}

		_, err := RSI(closes)

		assert.ErrorIs(t, err, ErrInsufficientData)
	}
}

func TestRSI_UsesMostRecentWindow(t *testing.T) {
	// A long declining prefix followed by 15 rising closes must read 100:
	// only the last window counts.
	closes := []float64{500, 400, 300, 200}
	for i := 0; i < 15; i++ {
		closes = append(closes, 100+float64(i))
	}

	rsi, err := RSI(closes)

	assert.NoError(t, err)
	assert.Equal(t, 100.0, rsi)
}

func TestRSI_MixedSeries(t *testing.T) {
	// 7 gains of 2 and 7 losses of 1: avgGain=1, avgLoss=0.5, RS=2, RSI=66.67.
	closes := []float64{100}
	for i := 0; i < 7; i++ {
		closes = append(closes, closes[len(closes)-1]+2)
		closes = append(closes, closes[len(closes)-1]-1)
	}

	rsi, err := RSI(closes)

	assert.NoError(t, err)
	assert.InDelta(t, 66.6667, rsi, 0.001)
}

func TestNewSnapshot(t *testing.T) {
	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = 1000 + float64(i)*10
	}

	snap, err := NewSnapshot(closes)

	assert.NoError(t, err)
	assert.Equal(t, 100.0, snap.RSI)
	assert.Equal(t, 1140.0, snap.Price)
}

func TestGridLevels(t *testing.T) {
	testCases := []struct {
		name      string
		reference float64
		rangeFrac float64
		count     int
		expected  []float64
		wantErr   error
	}{
		{
			name:      "SymmetricFiveLevels",
			reference: 1000000,
			rangeFrac: 0.02,
			count:     5,
			expected:  []float64{980000, 990000, 1000000, 1010000, 1020000},
		},
		{
			name:      "TwoLevels",
			reference: 100,
			rangeFrac: 0.1,
			count:     2,
			expected:  []float64{90, 110},
		},
		{
			name:      "RoundedToQuotePrecision",
			reference: 333.333,
			rangeFrac: 0.01,
			count:     3,
			expected:  []float64{330.0, 333.33, 336.67},
		},
		{
			name:      "SingleLevelInvalid",
			reference: 1000000,
			rangeFrac: 0.02,
			count:     1,
			wantErr:   ErrInvalidConfiguration,
		},
		{
			name:      "ZeroLevelsInvalid",
			reference: 1000000,
			rangeFrac: 0.02,
			count:     0,
			wantErr:   ErrInvalidConfiguration,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			levels, err := GridLevels(tc.reference, tc.rangeFrac, tc.count)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, len(tc.expected), len(levels))
			for i := range tc.expected {
				assert.InDelta(t, tc.expected[i], levels[i], 0.001)
			}
		})
	}
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 1234567.89, RoundPrice(1234567.891234))
	assert.Equal(t, 0.00012346, RoundQuantity(0.000123456789))
}
