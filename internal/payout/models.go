package payout

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

type ErrorCode string

const (
	CodePoolInsufficient ErrorCode = "POOL_INSUFFICIENT"
	CodeNetworkError     ErrorCode = "NETWORK_ERROR"
	CodeValidationError  ErrorCode = "VALIDATION_ERROR"
	CodeAuthzError       ErrorCode = "AUTHZ_ERROR"
)

// Attempt is the durable record of one settlement. It is created pending
// before any transfer is tried and finalized exactly once, so a crash
// mid-payout always leaves an auditable row behind.
type Attempt struct {
	AttemptID       string          `gorm:"column:attempt_id;primaryKey;type:uuid;default:uuid_generate_v4()"`
	IdempotencyKey  string          `gorm:"column:idempotency_key;type:varchar(255);not null;unique"`
	PlayerID        string          `gorm:"column:player_id;type:uuid;not null"`
	RequestedAmount decimal.Decimal `gorm:"column:requested_amount;type:numeric(20,2);not null"`
	ResolvedAmount  decimal.Decimal `gorm:"column:resolved_amount;type:numeric(20,2);not null;default:0"`
	Status          string          `gorm:"column:status;type:varchar(20);not null"`
	ErrorCode       string          `gorm:"column:error_code;type:varchar(40)"`
	Retryable       bool            `gorm:"column:retryable;not null;default:false"`
	RetryCount      int             `gorm:"column:retry_count;not null;default:0"`
	TransactionRef  string          `gorm:"column:transaction_ref;type:varchar(255)"`
	CreatedAt       time.Time       `gorm:"column:created_at;not null;default:now()"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;not null;default:now()"`
}

func (Attempt) TableName() string {
	return "payout_attempts"
}

// Result is the payout confirmation returned to the settlement caller.
type Result struct {
	Status          string          `json:"status"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	Shortfall       decimal.Decimal `json:"shortfall"`
	TransactionRef  string          `json:"transaction_reference,omitempty"`
	ErrorCode       ErrorCode       `json:"error_code,omitempty"`
	Retryable       bool            `json:"retryable"`
}
