package seed

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNoActiveSeed    = errors.New("no active server seed")
	ErrEpochNotFound   = errors.New("seed epoch not found")
	ErrEpochNotRetired = errors.New("seed epoch is still active")
)

type SeedRepository interface {
	Active(ctx context.Context) (*ServerSeed, error)
	GetByEpoch(ctx context.Context, epoch string) (*ServerSeed, error)
	Rotate(ctx context.Context, next *ServerSeed) error
}

type SeedRepositoryImpl struct {
	db *gorm.DB
}

func NewSeedRepositoryImpl(db *gorm.DB) SeedRepository {
	return &SeedRepositoryImpl{db: db}
}

func (r *SeedRepositoryImpl) Active(ctx context.Context) (*ServerSeed, error) {
	var s ServerSeed
	err := r.db.WithContext(ctx).Where("status = ?", StatusActive).Order("created_at desc").First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSeed
		}
		return nil, err
	}
	return &s, nil
}

func (r *SeedRepositoryImpl) GetByEpoch(ctx context.Context, epoch string) (*ServerSeed, error) {
	var s ServerSeed
	err := r.db.WithContext(ctx).Where("epoch = ?", epoch).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEpochNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Rotate retires the current active epoch and persists the next committed
// seed in one transaction, so there is never a moment where an uncommitted
// secret could serve draws.
func (r *SeedRepositoryImpl) Rotate(ctx context.Context, next *ServerSeed) error {
	return r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		now := time.Now()
		err := dbtx.Model(&ServerSeed{}).Where("status = ?", StatusActive).
			Updates(map[string]interface{}{
				"status":     StatusRetired,
				"retired_at": now,
			}).Error
		if err != nil {
			return err
		}
		return dbtx.Create(next).Error
	})
}
