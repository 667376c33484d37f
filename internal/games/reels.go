package games

import (
	"math"

	"github.com/shopspring/decimal"

	"casino_engine/internal/fair"
)

const (
	reelCells     = 9
	reelThreshold = 3
	// Super-linear match payout: a qualifying symbol appearing c times pays
	// base * c^reelExponent, so larger matches pay disproportionately more.
	reelExponent = 2.0
)

type ReelsParams struct{}

type reelSymbol struct {
	Name   string
	Weight int
	Base   float64
}

var reelSymbols = []reelSymbol{
	{"cherry", 30, 0.3},
	{"lemon", 25, 0.4},
	{"bell", 20, 0.7},
	{"bar", 15, 1.2},
	{"seven", 8, 3.0},
	{"diamond", 2, 12.0},
}

var (
	reelTotalWeight = func() int {
		total := 0
		for _, s := range reelSymbols {
			total += s.Weight
		}
		return total
	}()
	// reelNorm rescales raw grid payouts so the table's exact expected
	// multiplier equals TargetRTP. Payouts sum over every qualifying symbol,
	// which keeps the expectation linear: per-cell symbol counts are
	// Binomial(9, weight/total), so the calibration below is exact.
	reelNorm = TargetRTP / reelRawExpectation()
)

func reelRawExpectation() float64 {
	expected := 0.0
	for _, s := range reelSymbols {
		p := float64(s.Weight) / float64(reelTotalWeight)
		for c := reelThreshold; c <= reelCells; c++ {
			prob := binomial(reelCells, c) * math.Pow(p, float64(c)) * math.Pow(1-p, float64(reelCells-c))
			expected += prob * s.Base * math.Pow(float64(c), reelExponent)
		}
	}
	return expected
}

func binomial(n, k int) float64 {
	result := 1.0
	for i := 0; i < k; i++ {
		result = result * float64(n-i) / float64(i+1)
	}
	return result
}

type ReelsResult struct {
	Grid   []string       `json:"grid"`
	Counts map[string]int `json:"counts"`
}

// ReelsGridMultiplier computes the payout multiplier for a tally of symbol
// counts across the grid.
func ReelsGridMultiplier(counts map[string]int) float64 {
	raw := 0.0
	for _, s := range reelSymbols {
		if c := counts[s.Name]; c >= reelThreshold {
			raw += s.Base * math.Pow(float64(c), reelExponent)
		}
	}
	return raw * reelNorm
}

func resolveReels(bet decimal.Decimal, stream *fair.Stream) (*Outcome, error) {
	grid := make([]string, reelCells)
	counts := make(map[string]int, len(reelSymbols))
	for i := 0; i < reelCells; i++ {
		v, err := stream.Int(reelTotalWeight)
		if err != nil {
			return nil, err
		}
		// Cumulative-weight lookup.
		for _, s := range reelSymbols {
			if v < s.Weight {
				grid[i] = s.Name
				counts[s.Name]++
				break
			}
			v -= s.Weight
		}
	}

	multiplier := ReelsGridMultiplier(counts)
	won := multiplier > 0

	out := &Outcome{
		GameType:  GameReels,
		DrawsUsed: stream.Consumed(),
		Result: ReelsResult{
			Grid:   grid,
			Counts: counts,
		},
		IsWin:     won,
		WinAmount: decimal.Zero,
	}
	if won {
		out.Multiplier = multiplier
		out.WinAmount = winAmount(bet, multiplier)
	}
	return out, nil
}

func reelsMaxMultiplier() float64 {
	best := 0.0
	for _, s := range reelSymbols {
		if m := s.Base * math.Pow(reelCells, reelExponent) * reelNorm; m > best {
			best = m
		}
	}
	return best
}
