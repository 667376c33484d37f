package games

import (
	"github.com/shopspring/decimal"
)

type GameType string

const (
	GameThreshold GameType = "threshold"
	GameMines     GameType = "mines"
	GameReels     GameType = "reels"
	GamePlinko    GameType = "plinko"
)

// HouseEdge is the configured edge for every game family; long-run RTP for
// each calculator converges to 1 - HouseEdge.
const (
	HouseEdge = 0.01
	TargetRTP = 1 - HouseEdge
)

// Params carries exactly one game family's parameters, selected by the
// wager's GameType.
type Params struct {
	Threshold *ThresholdParams `json:"threshold,omitempty"`
	Mines     *MinesParams     `json:"mines,omitempty"`
	Reels     *ReelsParams     `json:"reels,omitempty"`
	Plinko    *PlinkoParams    `json:"plinko,omitempty"`
}

type Outcome struct {
	GameType   GameType        `json:"game_type"`
	DrawsUsed  int             `json:"draws_used"`
	Result     interface{}     `json:"result"`
	IsWin      bool            `json:"is_win"`
	Multiplier float64         `json:"multiplier"`
	WinAmount  decimal.Decimal `json:"win_amount"`
}

func winAmount(bet decimal.Decimal, multiplier float64) decimal.Decimal {
	return bet.Mul(decimal.NewFromFloat(multiplier)).Round(2)
}
