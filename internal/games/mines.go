package games

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"casino_engine/internal/fair"
)

const minesCells = 25

var ErrTooManyPicks = errors.New("more picks than safe cells")

type MinesParams struct {
	MineCount int   `json:"mine_count" validate:"required,min=1,max=24"`
	Picks     []int `json:"picks" validate:"required,min=1,max=24,unique,dive,min=0,max=24"`
}

type MinesResult struct {
	Mines        []int `json:"mines"`
	Picks        []int `json:"picks"`
	SafeRevealed int   `json:"safe_revealed"`
}

// MinesMultiplier is the payout after revealing `revealed` safe cells,
// re-derived step by step from the live remaining-cell counts:
// (1-houseEdge) * prod_{i=0..revealed-1} (cells-i)/(cells-mines-i).
// The win probability is the reciprocal product, so RTP is 1-houseEdge for
// every (mineCount, revealed) pair.
func MinesMultiplier(cells, mineCount, revealed int) float64 {
	multiplier := 1.0
	remaining := cells
	safe := cells - mineCount
	for i := 0; i < revealed; i++ {
		multiplier *= float64(remaining) / float64(safe)
		remaining--
		safe--
	}
	return multiplier * (1 - HouseEdge)
}

func resolveMines(p *MinesParams, bet decimal.Decimal, stream *fair.Stream) (*Outcome, error) {
	if len(p.Picks) > minesCells-p.MineCount {
		return nil, ErrTooManyPicks
	}

	// Fisher-Yates over all 25 positions; the first MineCount entries of the
	// shuffled order are the mines.
	positions := make([]int, minesCells)
	for i := range positions {
		positions[i] = i
	}
	for i := minesCells - 1; i > 0; i-- {
		j, err := stream.Int(i + 1)
		if err != nil {
			return nil, err
		}
		positions[i], positions[j] = positions[j], positions[i]
	}

	mineSet := make(map[int]bool, p.MineCount)
	mines := make([]int, p.MineCount)
	copy(mines, positions[:p.MineCount])
	sort.Ints(mines)
	for _, m := range mines {
		mineSet[m] = true
	}

	won := true
	for _, pick := range p.Picks {
		if mineSet[pick] {
			won = false
			break
		}
	}

	out := &Outcome{
		GameType:  GameMines,
		DrawsUsed: stream.Consumed(),
		Result: MinesResult{
			Mines:        mines,
			Picks:        p.Picks,
			SafeRevealed: len(p.Picks),
		},
		IsWin:     won,
		WinAmount: decimal.Zero,
	}
	if won {
		out.Multiplier = MinesMultiplier(minesCells, p.MineCount, len(p.Picks))
		out.WinAmount = winAmount(bet, out.Multiplier)
	}
	return out, nil
}

func minesMaxMultiplier(p *MinesParams) float64 {
	return MinesMultiplier(minesCells, p.MineCount, len(p.Picks))
}
