package round

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrDuplicateWager surfaces the unique (player, client seed, nonce) index:
// a second insert for the same derivation slot lost the race.
var ErrDuplicateWager = errors.New("wager already exists for this client seed and nonce")

type RoundRepository interface {
	CreateWager(ctx context.Context, wager *Wager) error
	UpdateWager(ctx context.Context, wager *Wager) error
	LastNonce(ctx context.Context, playerID, clientSeed string) (int64, bool, error)
}

type RoundRepositoryImpl struct {
	db *gorm.DB
}

func NewRoundRepositoryImpl(db *gorm.DB) RoundRepository {
	return &RoundRepositoryImpl{db: db}
}

func (r *RoundRepositoryImpl) CreateWager(ctx context.Context, wager *Wager) error {
	err := r.db.WithContext(ctx).Create(wager).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateWager
	}
	return err
}

func (r *RoundRepositoryImpl) UpdateWager(ctx context.Context, wager *Wager) error {
	now := time.Now()
	wager.SettledAt = &now
	return r.db.WithContext(ctx).Save(wager).Error
}

// LastNonce reports the highest nonce already used for a (player, clientSeed)
// pair; anything at or below it is a replay.
func (r *RoundRepositoryImpl) LastNonce(ctx context.Context, playerID, clientSeed string) (int64, bool, error) {
	var last sql.NullInt64
	err := r.db.WithContext(ctx).Model(&Wager{}).
		Where("player_id = ? AND client_seed = ?", playerID, clientSeed).
		Select("max(nonce)").Scan(&last).Error
	if err != nil {
		return 0, false, err
	}
	if !last.Valid {
		return 0, false, nil
	}
	return last.Int64, true, nil
}
