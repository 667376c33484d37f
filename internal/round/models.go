package round

import (
	"time"

	"github.com/shopspring/decimal"

	"casino_engine/internal/games"
	"casino_engine/internal/payout"
	"casino_engine/internal/pool"
)

const (
	StatusAdmitted    = "admitted"
	StatusSettledWin  = "settled_win"
	StatusSettledLoss = "settled_loss"
	StatusRejected    = "rejected"
	StatusVoided      = "voided"
)

// Wager is the durable per-round record. Immutable once admitted except for
// the single transition to its terminal state.
type Wager struct {
	WagerID    string          `gorm:"column:wager_id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	PlayerID   string          `gorm:"column:player_id;type:uuid;not null;index;uniqueIndex:idx_wagers_seed_nonce"`
	GameType   string          `gorm:"column:game_type;type:varchar(20);not null"`
	BetAmount  decimal.Decimal `gorm:"column:bet_amount;type:numeric(20,2);not null"`
	Currency   string          `gorm:"column:currency;type:varchar(10);not null"`
	ClientSeed string          `gorm:"column:client_seed;type:varchar(64);not null;uniqueIndex:idx_wagers_seed_nonce"`
	Nonce      int64           `gorm:"column:nonce;not null;uniqueIndex:idx_wagers_seed_nonce"`
	SeedEpoch  string          `gorm:"column:seed_epoch;type:uuid;not null"`
	Status     string          `gorm:"column:status;type:varchar(20);not null"`
	ResultJSON string          `gorm:"column:result_json;type:text"`
	ResultHash string          `gorm:"column:result_hash;type:varchar(64)"`
	IsWin      bool            `gorm:"column:is_win;not null;default:false"`
	Multiplier float64         `gorm:"column:multiplier;not null;default:0"`
	WinAmount  decimal.Decimal `gorm:"column:win_amount;type:numeric(20,2);not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;not null;default:now()"`
	SettledAt  *time.Time      `gorm:"column:settled_at"`
}

func (Wager) TableName() string {
	return "wagers"
}

// BetRequest arrives pre-authenticated from the API layer; the engine only
// trusts PlayerID as a verified identity string.
type BetRequest struct {
	PlayerID   string          `json:"player_id" validate:"required"`
	GameType   games.GameType  `json:"game_type" validate:"required"`
	BetAmount  decimal.Decimal `json:"bet_amount"`
	ClientSeed string          `json:"client_seed" validate:"required"`
	Nonce      uint64          `json:"nonce"`
	Params     games.Params    `json:"params"`
}

// Proof lets a player verify the round once the epoch's seed is revealed.
type Proof struct {
	ServerSeedCommitHash string `json:"server_seed_commit_hash"`
	SeedEpoch            string `json:"seed_epoch"`
	ClientSeed           string `json:"client_seed"`
	Nonce                uint64 `json:"nonce"`
	ResultHash           string `json:"result_hash"`
}

type RoundResult struct {
	RoundID   string          `json:"round_id,omitempty"`
	Status    string          `json:"status"`
	Rejection *pool.Admission `json:"rejection,omitempty"`
	Outcome   *games.Outcome  `json:"outcome,omitempty"`
	Proof     *Proof          `json:"proof,omitempty"`
	Payout    *payout.Result  `json:"payout,omitempty"`
}

type RoundUpdate struct {
	RoundID   string          `json:"round_id"`
	PlayerID  string          `json:"player_id"`
	GameType  string          `json:"game_type"`
	Status    string          `json:"status"`
	WinAmount decimal.Decimal `json:"win_amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// VerifyRequest recomputes a historical outcome from a revealed epoch.
type VerifyRequest struct {
	Epoch      string          `json:"epoch" validate:"required"`
	ClientSeed string          `json:"client_seed" validate:"required"`
	Nonce      uint64          `json:"nonce"`
	GameType   games.GameType  `json:"game_type" validate:"required"`
	BetAmount  decimal.Decimal `json:"bet_amount"`
	Params     games.Params    `json:"params"`
}

type VerifyResponse struct {
	Epoch      string         `json:"epoch"`
	CommitHash string         `json:"commit_hash"`
	SeedHex    string         `json:"seed_hex"`
	Outcome    *games.Outcome `json:"outcome"`
	ResultHash string         `json:"result_hash"`
}
