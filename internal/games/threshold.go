package games

import (
	"github.com/shopspring/decimal"

	"casino_engine/internal/fair"
)

// thresholdRange is the roll space [0, 1e6), same resolution the target is
// expressed in.
const thresholdRange = 1_000_000

type ThresholdParams struct {
	// Target in [10000, 990000] keeps the win probability inside
	// [0.01, 0.99] on both directions.
	Target    int    `json:"target" validate:"required,min=10000,max=990000"`
	Direction string `json:"direction" validate:"required,oneof=under over"`
}

type ThresholdResult struct {
	Roll      int    `json:"roll"`
	Target    int    `json:"target"`
	Direction string `json:"direction"`
}

func thresholdWinProbability(p *ThresholdParams) float64 {
	if p.Direction == "under" {
		// win iff roll < target
		return float64(p.Target) / thresholdRange
	}
	// win iff roll > target
	return float64(thresholdRange-1-p.Target) / thresholdRange
}

// ThresholdMultiplier is (1 - houseEdge) / winProbability, so expected value
// is constant across target choices.
func ThresholdMultiplier(winProbability float64) float64 {
	return (1 - HouseEdge) / winProbability
}

func resolveThreshold(p *ThresholdParams, bet decimal.Decimal, stream *fair.Stream) (*Outcome, error) {
	roll, err := stream.Int(thresholdRange)
	if err != nil {
		return nil, err
	}

	var won bool
	if p.Direction == "under" {
		won = roll < p.Target
	} else {
		won = roll > p.Target
	}

	multiplier := ThresholdMultiplier(thresholdWinProbability(p))

	out := &Outcome{
		GameType:  GameThreshold,
		DrawsUsed: stream.Consumed(),
		Result: ThresholdResult{
			Roll:      roll,
			Target:    p.Target,
			Direction: p.Direction,
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

func thresholdMaxMultiplier(p *ThresholdParams) float64 {
	return ThresholdMultiplier(thresholdWinProbability(p))
}
