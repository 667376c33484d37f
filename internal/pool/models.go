package pool

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the single house liquidity pool row. Reserved tracks the summed
// worst-case exposure of admitted, not-yet-settled rounds; admission only
// sees balance - reserved - reserveFloor as spendable headroom.
type Account struct {
	AccountID string          `gorm:"column:account_id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	Currency  string          `gorm:"column:currency;type:varchar(10);not null"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(20,2);not null;default:0"`
	Reserved  decimal.Decimal `gorm:"column:reserved;type:numeric(20,2);not null;default:0"`
	Version   int             `gorm:"column:version;not null;default:1"`
	CreatedAt time.Time       `gorm:"column:created_at;not null;default:now()"`
	UpdatedAt time.Time       `gorm:"column:updated_at;not null;default:now()"`
}

func (Account) TableName() string {
	return "pool_accounts"
}

type Tier string

const (
	TierHealthy      Tier = "healthy"
	TierLow          Tier = "low"
	TierCritical     Tier = "critical"
	TierInsufficient Tier = "insufficient"
)

type Admission struct {
	Allowed bool            `json:"allowed"`
	MaxBet  decimal.Decimal `json:"max_bet"`
	Reason  string          `json:"reason,omitempty"`
	// WorstCase is the exposure reserved for an allowed wager; the round
	// releases exactly this amount when the round resolves.
	WorstCase decimal.Decimal `json:"-"`
}

type Snapshot struct {
	Balance      decimal.Decimal `json:"balance"`
	Reserved     decimal.Decimal `json:"reserved"`
	ReserveFloor decimal.Decimal `json:"reserve_floor"`
	Tier         Tier            `json:"tier"`
}
