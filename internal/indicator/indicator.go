package indicator

import (
	"errors"
	"math"
)

// rsiWindow is the number of closes the RSI needs: 14 deltas.
const rsiWindow = 15

var (
	// ErrInsufficientData means the provider returned too few closes to
	// compute the indicator. Callers skip the cycle, this is not fatal.
	ErrInsufficientData = errors.New("insufficient price data")

	// ErrInvalidConfiguration is an operator error (e.g. a one-level grid)
	// and must terminate the process rather than be skipped.
	ErrInvalidConfiguration = errors.New("invalid indicator configuration")
)

// Snapshot is the per-cycle view the decision engine works from. Price is
// the latest close of the same series the RSI was computed from, so the
// trading decision never mixes two price sources.
type Snapshot struct {
	RSI   float64
	Price float64
}

// RSI computes the Relative Strength Index over the most recent 15 closes
// (oldest to newest). Gains and losses over the 14 deltas are averaged
// separately; a series with no losses reads 100.
func RSI(closes []float64) (float64, error) {
	if len(closes) < rsiWindow {
		return 0, ErrInsufficientData
	}

	recent := closes[len(closes)-rsiWindow:]

	var gains, losses float64
	for i := 1; i < len(recent); i++ {
		delta := recent[i] - recent[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses += -delta
		}
	}

	avgGain := gains / float64(rsiWindow-1)
	avgLoss := losses / float64(rsiWindow-1)

	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

// NewSnapshot derives the RSI and the decision price from a close series.
func NewSnapshot(closes []float64) (Snapshot, error) {
	rsi, err := RSI(closes)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{RSI: rsi, Price: closes[len(closes)-1]}, nil
}

// GridLevels returns count prices evenly spaced between reference*(1-rangeFrac)
// and reference*(1+rangeFrac) inclusive, each rounded to the exchange's
// two-decimal quote precision. count must be at least 2.
func GridLevels(reference, rangeFrac float64, count int) ([]float64, error) {
	if count < 2 {
		return nil, ErrInvalidConfiguration
	}

	lower := reference * (1 - rangeFrac)
	upper := reference * (1 + rangeFrac)
	step := (upper - lower) / float64(count-1)

	levels := make([]float64, count)
	for i := range levels {
		levels[i] = RoundPrice(lower + step*float64(i))
	}
	return levels, nil
}

// RoundPrice rounds to the quote-currency precision Bitkub quotes in (2dp).
func RoundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}

// RoundQuantity rounds to the base-asset precision ceiling (8dp).
func RoundQuantity(q float64) float64 {
	return math.Round(q*1e8) / 1e8
}
