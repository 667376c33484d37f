package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the player-side token balance the engine credits on settlement.
// How the balance leaves the system (on-chain withdrawal etc.) is the ledger
// adapter's caller's concern.
type Wallet struct {
	WalletID  string          `gorm:"column:wallet_id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	PlayerID  string          `gorm:"column:player_id;type:uuid;not null;index"`
	Currency  string          `gorm:"column:currency;type:varchar(10);not null"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(20,2);not null;default:0"`
	Version   int             `gorm:"column:version;not null;default:1"`
	CreatedAt time.Time       `gorm:"column:created_at;not null;default:now()"`
	UpdatedAt time.Time       `gorm:"column:updated_at;not null;default:now()"`
}

// Transaction is the append-only audit row for every transfer the engine
// performs. ReferenceID is unique per logical transfer, which is what makes
// replays observable instead of double-paying.
type Transaction struct {
	TransactionID string          `gorm:"column:transaction_id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	WalletID      string          `gorm:"column:wallet_id;type:uuid;not null"`
	PlayerID      string          `gorm:"column:player_id;type:uuid;not null"`
	TransferType  string          `gorm:"column:transfer_type;type:varchar(20);not null"` // "payout", "refund"
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(20,2);not null"`
	BalanceBefore decimal.Decimal `gorm:"column:balance_before;type:numeric(20,2);not null"`
	BalanceAfter  decimal.Decimal `gorm:"column:balance_after;type:numeric(20,2);not null"`
	ReferenceID   string          `gorm:"column:reference_id;type:varchar(255);not null;unique"`
	Status        string          `gorm:"column:status;type:varchar(20);not null"` // "completed"
	CreatedAt     time.Time       `gorm:"column:created_at;not null;default:now()"`
	CompletedAt   *time.Time      `gorm:"column:completed_at"`
}

const (
	TransferPayout = "payout"
	TransferRefund = "refund"
)
