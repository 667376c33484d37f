package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrOptimisticLock = errors.New("optimistic lock error")
)

type LedgerRepository interface {
	GetWallet(ctx context.Context, playerID string, currency string) (*Wallet, error)
	GetTransactionByReference(ctx context.Context, referenceID string) (*Transaction, error)
	CreateWallet(ctx context.Context, playerID string, currency string) (*Wallet, error)
	Credit(ctx context.Context, transaction *Transaction) error
}

type LedgerRepositoryImpl struct {
	db *gorm.DB
}

func NewLedgerRepositoryImpl(db *gorm.DB) LedgerRepository {
	return &LedgerRepositoryImpl{db: db}
}

func (r *LedgerRepositoryImpl) GetWallet(ctx context.Context, playerID string, currency string) (*Wallet, error) {
	var w Wallet
	err := r.db.WithContext(ctx).Where("player_id = ? AND currency = ?", playerID, currency).First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *LedgerRepositoryImpl) GetTransactionByReference(ctx context.Context, referenceID string) (*Transaction, error) {
	var t Transaction
	err := r.db.WithContext(ctx).Where("reference_id = ?", referenceID).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *LedgerRepositoryImpl) CreateWallet(ctx context.Context, playerID string, currency string) (*Wallet, error) {
	w := Wallet{
		WalletID: uuid.New().String(),
		PlayerID: playerID,
		Currency: currency,
	}
	if err := r.db.WithContext(ctx).Create(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *LedgerRepositoryImpl) Credit(ctx context.Context, tx *Transaction) error {
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		var w Wallet
		if err := dbtx.Where("wallet_id = ?", tx.WalletID).First(&w).Error; err != nil {
			return err
		}
		newBalance := w.Balance.Add(tx.Amount)

		result := dbtx.Model(&Wallet{}).Where("wallet_id = ? AND version = ?", w.WalletID, w.Version).
			Updates(map[string]interface{}{
				"balance":    newBalance,
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrOptimisticLock
		}

		tx.TransactionID = uuid.New().String()
		tx.BalanceBefore = w.Balance
		tx.BalanceAfter = newBalance
		tx.Status = "completed"
		now := time.Now()
		tx.CompletedAt = &now

		return dbtx.Create(tx).Error
	})
}
