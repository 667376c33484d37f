package payout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MaxRetries = 3
	RetryDelay = 50 * time.Millisecond
)

var (
	ErrInvalidSettlement = errors.New("invalid settlement request")
	ErrNotOwner          = errors.New("settlement key belongs to another player")

	// ErrTransferTransient marks transfer failures worth an immediate bounded
	// retry (network hiccup, ledger congestion). Anything else is terminal
	// for this settlement.
	ErrTransferTransient = errors.New("transient transfer failure")
)

// TransferClient moves settled funds to the player. Implementations must be
// idempotent per reference.
type TransferClient interface {
	Transfer(ctx context.Context, playerID string, amount decimal.Decimal, reference string) (string, error)
}

// LiquiditySource is the pool-facing slice the pipeline needs: debit up to an
// amount, and restore it if the transfer ultimately fails.
type LiquiditySource interface {
	PayOut(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
	Restore(ctx context.Context, amount decimal.Decimal) error
}

type Pipeline struct {
	repo     PayoutRepository
	pool     LiquiditySource
	transfer TransferClient
}

func NewPipeline(repo PayoutRepository, pool LiquiditySource, transfer TransferClient) *Pipeline {
	return &Pipeline{repo: repo, pool: pool, transfer: transfer}
}

func resultFromAttempt(a *Attempt) *Result {
	return &Result{
		Status:          a.Status,
		RequestedAmount: a.RequestedAmount,
		PaidAmount:      a.ResolvedAmount,
		Shortfall:       a.RequestedAmount.Sub(a.ResolvedAmount),
		TransactionRef:  a.TransactionRef,
		ErrorCode:       ErrorCode(a.ErrorCode),
		Retryable:       a.Retryable,
	}
}

func (p *Pipeline) finalize(ctx context.Context, a *Attempt, status string, code ErrorCode, retryable bool) (*Result, error) {
	a.Status = status
	a.ErrorCode = string(code)
	a.Retryable = retryable
	if err := p.repo.Update(ctx, a); err != nil {
		// The pending row is still on disk; the settlement is recoverable
		// from it even though we could not record the terminal state.
		return nil, fmt.Errorf("record settlement: %w", err)
	}
	return resultFromAttempt(a), nil
}

// Settle pays a winning outcome. Replaying an idempotency key returns the
// original result without touching the pool again.
func (p *Pipeline) Settle(ctx context.Context, playerID string, amount decimal.Decimal, idempotencyKey string) (*Result, error) {
	if playerID == "" || idempotencyKey == "" || !amount.IsPositive() {
		return nil, ErrInvalidSettlement
	}

	existing, err := p.repo.GetByKey(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.PlayerID != playerID {
			log.Printf("security: settlement replay with wrong player: key=%s owner=%s caller=%s",
				idempotencyKey, existing.PlayerID, playerID)
			return nil, ErrNotOwner
		}
		return resultFromAttempt(existing), nil
	}

	attempt := &Attempt{
		AttemptID:       uuid.New().String(),
		IdempotencyKey:  idempotencyKey,
		PlayerID:        playerID,
		RequestedAmount: amount,
		ResolvedAmount:  decimal.Zero,
		Status:          StatusPending,
		CreatedAt:       time.Now(),
	}
	if err := p.repo.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("record settlement attempt: %w", err)
	}

	paid, err := p.pool.PayOut(ctx, amount)
	if err != nil {
		return p.finalize(ctx, attempt, StatusFailed, CodeNetworkError, true)
	}
	if paid.IsZero() {
		// Terminal for now; a later resubmission after refill may succeed,
		// so the caller sees retryable, but we never hot-loop here.
		return p.finalize(ctx, attempt, StatusFailed, CodePoolInsufficient, true)
	}
	attempt.ResolvedAmount = paid

	var ref string
	transferErr := error(nil)
	for try := 0; try < MaxRetries; try++ {
		attempt.RetryCount = try
		// Fresh idempotency reference per attempt so a transfer that half
		// succeeded cannot be double-applied by the retry.
		ref, transferErr = p.transfer.Transfer(ctx, playerID, paid, fmt.Sprintf("%s#%d", idempotencyKey, try))
		if transferErr == nil {
			break
		}
		if !errors.Is(transferErr, ErrTransferTransient) {
			break
		}
		log.Printf("payout transfer retry: key=%s try=%d err=%v", idempotencyKey, try, transferErr)
		select {
		case <-ctx.Done():
			transferErr = ctx.Err()
		case <-time.After(RetryDelay):
			continue
		}
		break
	}

	if transferErr != nil {
		// Put the debited funds back so the pool is not short on top of the
		// player not being paid.
		if restoreErr := p.pool.Restore(ctx, paid); restoreErr != nil {
			log.Printf("payout restore failed: key=%s amount=%s err=%v", idempotencyKey, paid, restoreErr)
		}
		attempt.ResolvedAmount = decimal.Zero
		code := CodeNetworkError
		retryable := true
		if !errors.Is(transferErr, ErrTransferTransient) && !errors.Is(transferErr, context.DeadlineExceeded) && !errors.Is(transferErr, context.Canceled) {
			code = CodeValidationError
			retryable = false
		}
		return p.finalize(ctx, attempt, StatusFailed, code, retryable)
	}

	attempt.TransactionRef = ref
	if paid.LessThan(amount) {
		// Paid what the pool covered; the shortfall is surfaced, not
		// swallowed, and stays claimable after a refill.
		return p.finalize(ctx, attempt, StatusPartial, CodePoolInsufficient, true)
	}
	return p.finalize(ctx, attempt, StatusSuccess, "", false)
}
