package games

import (
	"math"

	"github.com/shopspring/decimal"

	"casino_engine/internal/fair"
)

const plinkoRows = 12

type PlinkoParams struct{}

// plinkoShape is the symmetric raw payout curve over buckets 0..12 (bucket =
// count of rightward steps). Scaled at init so the table's exact expectation
// under Binomial(12, 1/2) equals TargetRTP.
var plinkoShape = []float64{55, 12, 4.2, 2, 1.1, 0.7, 0.5, 0.7, 1.1, 2, 4.2, 12, 55}

var plinkoTable = func() []float64 {
	expected := 0.0
	for k, m := range plinkoShape {
		expected += binomial(plinkoRows, k) / math.Pow(2, plinkoRows) * m
	}
	table := make([]float64, len(plinkoShape))
	for k, m := range plinkoShape {
		table[k] = m * TargetRTP / expected
	}
	return table
}()

type PlinkoResult struct {
	Path   []int `json:"path"`
	Bucket int   `json:"bucket"`
}

// PlinkoMultiplier returns the calibrated payout for a bucket.
func PlinkoMultiplier(bucket int) float64 {
	return plinkoTable[bucket]
}

func resolvePlinko(bet decimal.Decimal, stream *fair.Stream) (*Outcome, error) {
	path := make([]int, plinkoRows)
	bucket := 0
	for i := 0; i < plinkoRows; i++ {
		step, err := stream.Int(2)
		if err != nil {
			return nil, err
		}
		path[i] = step
		bucket += step
	}

	multiplier := PlinkoMultiplier(bucket)

	out := &Outcome{
		GameType:  GamePlinko,
		DrawsUsed: stream.Consumed(),
		Result: PlinkoResult{
			Path:   path,
			Bucket: bucket,
		},
		// Every bucket returns something; sub-even buckets are partial
		// returns, still settled through the payout path like any win.
		IsWin:      multiplier > 0,
		Multiplier: multiplier,
		WinAmount:  winAmount(bet, multiplier),
	}
	return out, nil
}

func plinkoMaxMultiplier() float64 {
	best := 0.0
	for _, m := range plinkoTable {
		if m > best {
			best = m
		}
	}
	return best
}
