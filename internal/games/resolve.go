package games

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"casino_engine/internal/fair"
)

var (
	ErrUnknownGameType = errors.New("unknown game type")
	ErrMissingParams   = errors.New("missing game parameters")
	ErrInvalidBet      = errors.New("bet amount must be greater than zero")
)

var validate = validator.New()

// Validate checks that the params variant matching the game type is present
// and well formed. Rejected before any draw is consumed or state changes.
func Validate(gameType GameType, params Params) error {
	switch gameType {
	case GameThreshold:
		if params.Threshold == nil {
			return ErrMissingParams
		}
		if err := validate.Struct(params.Threshold); err != nil {
			return fmt.Errorf("threshold params: %w", err)
		}
	case GameMines:
		if params.Mines == nil {
			return ErrMissingParams
		}
		if err := validate.Struct(params.Mines); err != nil {
			return fmt.Errorf("mines params: %w", err)
		}
		if len(params.Mines.Picks) > minesCells-params.Mines.MineCount {
			return ErrTooManyPicks
		}
	case GameReels, GamePlinko:
		// No player-chosen parameters.
	default:
		return ErrUnknownGameType
	}
	return nil
}

// MaxMultiplier is the worst-case payout multiplier for admission control.
func MaxMultiplier(gameType GameType, params Params) (float64, error) {
	if err := Validate(gameType, params); err != nil {
		return 0, err
	}
	switch gameType {
	case GameThreshold:
		return thresholdMaxMultiplier(params.Threshold), nil
	case GameMines:
		return minesMaxMultiplier(params.Mines), nil
	case GameReels:
		return reelsMaxMultiplier(), nil
	case GamePlinko:
		return plinkoMaxMultiplier(), nil
	}
	return 0, ErrUnknownGameType
}

// Resolve maps one wager onto the draw stream and returns its outcome. Pure:
// the same params and stream position always produce the same outcome.
func Resolve(gameType GameType, params Params, bet decimal.Decimal, stream *fair.Stream) (*Outcome, error) {
	if !bet.IsPositive() {
		return nil, ErrInvalidBet
	}
	if err := Validate(gameType, params); err != nil {
		return nil, err
	}
	switch gameType {
	case GameThreshold:
		return resolveThreshold(params.Threshold, bet, stream)
	case GameMines:
		return resolveMines(params.Mines, bet, stream)
	case GameReels:
		return resolveReels(bet, stream)
	case GamePlinko:
		return resolvePlinko(bet, stream)
	}
	return nil, ErrUnknownGameType
}
