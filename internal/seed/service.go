package seed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"casino_engine/internal/fair"
)

// Manager owns the rotating server seed. The active epoch is cached under a
// read lock because every round reads it; rotation swaps the cache only after
// the new committed seed has been durably persisted.
type Manager struct {
	repo SeedRepository

	mu     sync.RWMutex
	active *ServerSeed
}

func NewManager(repo SeedRepository) *Manager {
	return &Manager{repo: repo}
}

// Init loads the persisted active epoch, rotating a first one into place if
// the store is empty.
func (m *Manager) Init(ctx context.Context) error {
	active, err := m.repo.Active(ctx)
	if err == nil {
		m.mu.Lock()
		m.active = active
		m.mu.Unlock()
		return nil
	}
	if err != ErrNoActiveSeed {
		return fmt.Errorf("load active seed: %w", err)
	}
	return m.Rotate(ctx)
}

// CurrentCommitment returns the active epoch and its published hash. The
// seed value itself is never exposed here.
func (m *Manager) CurrentCommitment() (*Commitment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return nil, ErrNoActiveSeed
	}
	return &Commitment{Epoch: m.active.Epoch, CommitHash: m.active.CommitHash}, nil
}

// Active hands the full active seed to the round coordinator. Draws pin the
// returned epoch, so a rotation mid-round cannot invalidate them.
func (m *Manager) Active() (*ServerSeed, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return nil, ErrNoActiveSeed
	}
	copied := *m.active
	return &copied, nil
}

// Rotate generates, commits and activates a new epoch. If persistence fails
// the previous committed epoch keeps serving: a secret must never be used
// before its hash is published.
func (m *Manager) Rotate(ctx context.Context) error {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generate seed: %w", err)
	}
	seedHex := hex.EncodeToString(raw)

	next := &ServerSeed{
		Epoch:      uuid.New().String(),
		SeedHex:    seedHex,
		CommitHash: fair.CommitHash(seedHex),
		Status:     StatusActive,
		CreatedAt:  time.Now(),
	}

	if err := m.repo.Rotate(ctx, next); err != nil {
		return fmt.Errorf("persist rotation: %w", err)
	}

	m.mu.Lock()
	m.active = next
	m.mu.Unlock()

	log.Printf("server seed rotated: epoch=%s commit=%s", next.Epoch, next.CommitHash)
	return nil
}

// Reveal returns the seed value for a retired epoch so players can verify
// historical draws. Active epochs are never revealed.
func (m *Manager) Reveal(ctx context.Context, epoch string) (*Revealed, error) {
	s, err := m.repo.GetByEpoch(ctx, epoch)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusRetired {
		return nil, ErrEpochNotRetired
	}
	revealed := &Revealed{
		Epoch:      s.Epoch,
		SeedHex:    s.SeedHex,
		CommitHash: s.CommitHash,
	}
	if s.RetiredAt != nil {
		revealed.RetiredAt = s.RetiredAt.Format(time.RFC3339)
	}
	return revealed, nil
}

// StartRotation rotates on a fixed cadence until the context is cancelled.
func (m *Manager) StartRotation(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Rotate(ctx); err != nil {
					log.Printf("seed rotation failed, keeping previous epoch: %v", err)
				}
			}
		}
	}()
}
