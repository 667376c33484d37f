package payout

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type PayoutRepository interface {
	GetByKey(ctx context.Context, idempotencyKey string) (*Attempt, error)
	Create(ctx context.Context, attempt *Attempt) error
	Update(ctx context.Context, attempt *Attempt) error
}

type PayoutRepositoryImpl struct {
	db *gorm.DB
}

func NewPayoutRepositoryImpl(db *gorm.DB) PayoutRepository {
	return &PayoutRepositoryImpl{db: db}
}

func (r *PayoutRepositoryImpl) GetByKey(ctx context.Context, idempotencyKey string) (*Attempt, error) {
	var a Attempt
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", idempotencyKey).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *PayoutRepositoryImpl) Create(ctx context.Context, attempt *Attempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *PayoutRepositoryImpl) Update(ctx context.Context, attempt *Attempt) error {
	attempt.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(attempt).Error
}
