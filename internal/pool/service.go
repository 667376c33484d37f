package pool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxRetries = 3
	RetryDelay = 10 * time.Millisecond
)

var ErrInvalidAmount = errors.New("amount must be greater than zero")

const (
	ReasonRefilling = "pool refilling"
	ReasonHeadroom  = "bet exceeds current pool headroom"
)

type Config struct {
	ReserveFloor  decimal.Decimal
	HealthyAbove  decimal.Decimal
	CriticalBelow decimal.Decimal
}

// Controller enforces admission against the pool: a bet is only accepted if
// its worst-case payout fits inside balance - reserved - reserveFloor, and
// accepting it reserves that exposure in the same versioned write, so
// concurrent rounds can never jointly overdraw the pool.
type Controller struct {
	repo PoolRepository
	cfg  Config
}

func NewController(repo PoolRepository, cfg Config) *Controller {
	return &Controller{repo: repo, cfg: cfg}
}

func (c *Controller) retry(ctx context.Context, op func() error) error {
	var err error
	for i := 0; i < MaxRetries; i++ {
		err = op()
		if errors.Is(err, ErrOptimisticLock) {
			time.Sleep(RetryDelay)
			continue
		}
		return err
	}
	return err
}

// Admit decides whether a wager with the given worst-case multiplier may be
// accepted, reserving the exposure when it is. On rejection the largest
// currently admissible bet rides along.
func (c *Controller) Admit(ctx context.Context, bet decimal.Decimal, maxMultiplier float64) (*Admission, error) {
	if !bet.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if maxMultiplier <= 0 {
		return nil, fmt.Errorf("max multiplier %f: %w", maxMultiplier, ErrInvalidAmount)
	}

	mult := decimal.NewFromFloat(maxMultiplier)
	worst := bet.Mul(mult).RoundUp(2)

	err := c.retry(ctx, func() error {
		return c.repo.Reserve(ctx, worst, c.cfg.ReserveFloor)
	})
	if err == nil {
		return &Admission{Allowed: true, MaxBet: bet, WorstCase: worst}, nil
	}
	if !errors.Is(err, ErrInsufficientHeadroom) {
		return nil, err
	}

	a, getErr := c.repo.Get(ctx)
	if getErr != nil {
		return nil, getErr
	}
	headroom := a.Balance.Sub(a.Reserved).Sub(c.cfg.ReserveFloor)
	if !headroom.IsPositive() {
		return &Admission{Allowed: false, MaxBet: decimal.Zero, Reason: ReasonRefilling}, nil
	}
	maxBet := headroom.Div(mult).RoundDown(2)
	if !maxBet.IsPositive() {
		return &Admission{Allowed: false, MaxBet: decimal.Zero, Reason: ReasonRefilling}, nil
	}
	return &Admission{Allowed: false, MaxBet: maxBet, Reason: ReasonHeadroom}, nil
}

// Release drops a previously reserved exposure once its round resolved.
func (c *Controller) Release(ctx context.Context, worstCase decimal.Decimal) error {
	return c.retry(ctx, func() error {
		return c.repo.ReleaseReserve(ctx, worstCase)
	})
}

// TakeStake moves an admitted wager's stake into the pool.
func (c *Controller) TakeStake(ctx context.Context, bet decimal.Decimal) error {
	return c.retry(ctx, func() error {
		return c.repo.Credit(ctx, bet)
	})
}

// RefundStake pulls a voided wager's stake back out of the pool.
func (c *Controller) RefundStake(ctx context.Context, bet decimal.Decimal) error {
	return c.retry(ctx, func() error {
		return c.repo.Debit(ctx, bet)
	})
}

// PayOut debits up to amount for a winning settlement and reports what the
// pool actually covered.
func (c *Controller) PayOut(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	paid := decimal.Zero
	err := c.retry(ctx, func() error {
		var debitErr error
		paid, debitErr = c.repo.DebitUpTo(ctx, amount)
		return debitErr
	})
	if err != nil {
		return decimal.Zero, err
	}
	return paid, nil
}

// Restore puts back funds debited for a payout whose transfer failed.
func (c *Controller) Restore(ctx context.Context, amount decimal.Decimal) error {
	return c.retry(ctx, func() error {
		return c.repo.Credit(ctx, amount)
	})
}

func (c *Controller) Snapshot(ctx context.Context) (*Snapshot, error) {
	a, err := c.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Balance:      a.Balance,
		Reserved:     a.Reserved,
		ReserveFloor: c.cfg.ReserveFloor,
		Tier:         c.TierFor(a.Balance),
	}, nil
}

func (c *Controller) TierFor(balance decimal.Decimal) Tier {
	switch {
	case balance.LessThanOrEqual(c.cfg.ReserveFloor):
		return TierInsufficient
	case balance.LessThan(c.cfg.CriticalBelow):
		return TierCritical
	case balance.GreaterThan(c.cfg.HealthyAbove):
		return TierHealthy
	default:
		return TierLow
	}
}
