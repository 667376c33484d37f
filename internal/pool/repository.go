package pool

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrPoolNotFound         = errors.New("pool account not found")
	ErrInsufficientHeadroom = errors.New("insufficient pool headroom")
	ErrInsufficientFunds    = errors.New("insufficient pool funds")
	ErrOptimisticLock       = errors.New("optimistic lock error")
)

type PoolRepository interface {
	Get(ctx context.Context) (*Account, error)
	Ensure(ctx context.Context, currency string, initial decimal.Decimal) (*Account, error)
	Reserve(ctx context.Context, amount, floor decimal.Decimal) error
	ReleaseReserve(ctx context.Context, amount decimal.Decimal) error
	Credit(ctx context.Context, amount decimal.Decimal) error
	Debit(ctx context.Context, amount decimal.Decimal) error
	DebitUpTo(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error)
}

type PoolRepositoryImpl struct {
	db *gorm.DB
}

func NewPoolRepositoryImpl(db *gorm.DB) PoolRepository {
	return &PoolRepositoryImpl{db: db}
}

func (r *PoolRepositoryImpl) Get(ctx context.Context) (*Account, error) {
	var a Account
	err := r.db.WithContext(ctx).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PoolRepositoryImpl) Ensure(ctx context.Context, currency string, initial decimal.Decimal) (*Account, error) {
	a, err := r.Get(ctx)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrPoolNotFound) {
		return nil, err
	}
	created := &Account{
		AccountID: uuid.New().String(),
		Currency:  currency,
		Balance:   initial,
	}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		return nil, err
	}
	return created, nil
}

// mutate applies fn to the pool row under the version guard. A concurrent
// writer surfaces as ErrOptimisticLock; the controller owns the retry loop.
func (r *PoolRepositoryImpl) mutate(ctx context.Context, fn func(a *Account) error) error {
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		var a Account
		if err := dbtx.First(&a).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPoolNotFound
			}
			return err
		}

		if err := fn(&a); err != nil {
			return err
		}

		result := dbtx.Model(&Account{}).Where("account_id = ? AND version = ?", a.AccountID, a.Version).
			Updates(map[string]interface{}{
				"balance":    a.Balance,
				"reserved":   a.Reserved,
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOptimisticLock
		}
		return nil
	})
}

func (r *PoolRepositoryImpl) Reserve(ctx context.Context, amount, floor decimal.Decimal) error {
	return r.mutate(ctx, func(a *Account) error {
		headroom := a.Balance.Sub(a.Reserved).Sub(floor)
		if amount.GreaterThan(headroom) {
			return ErrInsufficientHeadroom
		}
		a.Reserved = a.Reserved.Add(amount)
		return nil
	})
}

func (r *PoolRepositoryImpl) ReleaseReserve(ctx context.Context, amount decimal.Decimal) error {
	return r.mutate(ctx, func(a *Account) error {
		a.Reserved = a.Reserved.Sub(amount)
		if a.Reserved.IsNegative() {
			a.Reserved = decimal.Zero
		}
		return nil
	})
}

func (r *PoolRepositoryImpl) Credit(ctx context.Context, amount decimal.Decimal) error {
	return r.mutate(ctx, func(a *Account) error {
		a.Balance = a.Balance.Add(amount)
		return nil
	})
}

func (r *PoolRepositoryImpl) Debit(ctx context.Context, amount decimal.Decimal) error {
	return r.mutate(ctx, func(a *Account) error {
		if a.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}
		a.Balance = a.Balance.Sub(amount)
		return nil
	})
}

// DebitUpTo pays out as much of amount as the balance covers and reports what
// was actually taken; the payout pipeline turns a short payment into a
// partial settlement.
func (r *PoolRepositoryImpl) DebitUpTo(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	paid := decimal.Zero
	err := r.mutate(ctx, func(a *Account) error {
		paid = decimal.Min(amount, a.Balance)
		if paid.IsNegative() {
			paid = decimal.Zero
		}
		a.Balance = a.Balance.Sub(paid)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return paid, nil
}
