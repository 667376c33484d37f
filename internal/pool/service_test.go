package pool

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memoryPoolRepository serializes mutations with a mutex, standing in for the
// versioned row the gorm implementation guards.
type memoryPoolRepository struct {
	mu      sync.Mutex
	account Account
}

func newMemoryPool(balance int64) *memoryPoolRepository {
	return &memoryPoolRepository{account: Account{
		AccountID: "pool-test",
		Currency:  "CHIP",
		Balance:   decimal.NewFromInt(balance),
		Reserved:  decimal.Zero,
	}}
}

func (m *memoryPoolRepository) Get(ctx context.Context) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := m.account
	return &copied, nil
}

func (m *memoryPoolRepository) Ensure(ctx context.Context, currency string, initial decimal.Decimal) (*Account, error) {
	return m.Get(ctx)
}

func (m *memoryPoolRepository) Reserve(ctx context.Context, amount, floor decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	headroom := m.account.Balance.Sub(m.account.Reserved).Sub(floor)
	if amount.GreaterThan(headroom) {
		return ErrInsufficientHeadroom
	}
	m.account.Reserved = m.account.Reserved.Add(amount)
	return nil
}

func (m *memoryPoolRepository) ReleaseReserve(ctx context.Context, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.account.Reserved = m.account.Reserved.Sub(amount)
	if m.account.Reserved.IsNegative() {
		m.account.Reserved = decimal.Zero
	}
	return nil
}

func (m *memoryPoolRepository) Credit(ctx context.Context, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.account.Balance = m.account.Balance.Add(amount)
	return nil
}

func (m *memoryPoolRepository) Debit(ctx context.Context, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.account.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	m.account.Balance = m.account.Balance.Sub(amount)
	return nil
}

func (m *memoryPoolRepository) DebitUpTo(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	paid := decimal.Min(amount, m.account.Balance)
	if paid.IsNegative() {
		paid = decimal.Zero
	}
	m.account.Balance = m.account.Balance.Sub(paid)
	return paid, nil
}

func testConfig() Config {
	return Config{
		ReserveFloor:  decimal.NewFromInt(10),
		HealthyAbove:  decimal.NewFromInt(50),
		CriticalBelow: decimal.NewFromInt(20),
	}
}

func TestAdmitReservesExposure(t *testing.T) {
	repo := newMemoryPool(100)
	c := NewController(repo, testConfig())

	// Headroom is 90; worst case 2x40=80 fits.
	adm, err := c.Admit(context.Background(), decimal.NewFromInt(40), 2.0)
	require.NoError(t, err)
	require.True(t, adm.Allowed)

	a, err := repo.Get(context.Background())
	require.NoError(t, err)
	require.True(t, a.Reserved.Equal(decimal.NewFromInt(80)))

	// Remaining headroom is 10; worst case 20 must be rejected with the
	// largest bet that would pass.
	adm, err = c.Admit(context.Background(), decimal.NewFromInt(10), 2.0)
	require.NoError(t, err)
	require.False(t, adm.Allowed)
	require.Equal(t, ReasonHeadroom, adm.Reason)
	require.True(t, adm.MaxBet.Equal(decimal.NewFromInt(5)))
	require.True(t, adm.MaxBet.LessThan(decimal.NewFromInt(10)))
}

func TestAdmitBelowReserveFloor(t *testing.T) {
	// Pool balance 8 with floor 10: every bet rejected with maxBet=0 and a
	// refilling reason.
	repo := newMemoryPool(8)
	c := NewController(repo, testConfig())

	for _, bet := range []int64{1, 5, 100} {
		adm, err := c.Admit(context.Background(), decimal.NewFromInt(bet), 1.5)
		require.NoError(t, err)
		require.False(t, adm.Allowed)
		require.True(t, adm.MaxBet.IsZero())
		require.Equal(t, ReasonRefilling, adm.Reason)
	}
}

func TestAdmitValidation(t *testing.T) {
	c := NewController(newMemoryPool(100), testConfig())

	_, err := c.Admit(context.Background(), decimal.Zero, 2.0)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = c.Admit(context.Background(), decimal.NewFromInt(-5), 2.0)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = c.Admit(context.Background(), decimal.NewFromInt(5), 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestConcurrentAdmissionNeverOverdraws(t *testing.T) {
	// Headroom 100, worst case per round 20: of 20 concurrent rounds at most
	// 5 may pass.
	repo := newMemoryPool(100)
	cfg := testConfig()
	cfg.ReserveFloor = decimal.Zero
	c := NewController(repo, cfg)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adm, err := c.Admit(context.Background(), decimal.NewFromInt(10), 2.0)
			require.NoError(t, err)
			mu.Lock()
			if adm.Allowed {
				allowed++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 5, allowed)

	a, err := repo.Get(context.Background())
	require.NoError(t, err)
	require.True(t, a.Reserved.LessThanOrEqual(a.Balance))
}

func TestReleaseAndSettleFlow(t *testing.T) {
	repo := newMemoryPool(100)
	c := NewController(repo, testConfig())
	ctx := context.Background()

	adm, err := c.Admit(ctx, decimal.NewFromInt(10), 2.0)
	require.NoError(t, err)
	require.True(t, adm.Allowed)

	require.NoError(t, c.TakeStake(ctx, decimal.NewFromInt(10)))

	paid, err := c.PayOut(ctx, decimal.NewFromInt(19))
	require.NoError(t, err)
	require.True(t, paid.Equal(decimal.NewFromInt(19)))

	require.NoError(t, c.Release(ctx, decimal.NewFromInt(20)))

	a, err := repo.Get(ctx)
	require.NoError(t, err)
	require.True(t, a.Balance.Equal(decimal.NewFromInt(91)))
	require.True(t, a.Reserved.IsZero())
}

func TestPayOutPartialCoverage(t *testing.T) {
	repo := newMemoryPool(7)
	c := NewController(repo, testConfig())

	paid, err := c.PayOut(context.Background(), decimal.NewFromInt(12))
	require.NoError(t, err)
	require.True(t, paid.Equal(decimal.NewFromInt(7)))

	a, err := repo.Get(context.Background())
	require.NoError(t, err)
	require.True(t, a.Balance.IsZero())
}

func TestTierThresholds(t *testing.T) {
	c := NewController(newMemoryPool(0), testConfig())

	require.Equal(t, TierHealthy, c.TierFor(decimal.NewFromInt(51)))
	require.Equal(t, TierLow, c.TierFor(decimal.NewFromInt(50)))
	require.Equal(t, TierLow, c.TierFor(decimal.NewFromInt(20)))
	require.Equal(t, TierCritical, c.TierFor(decimal.NewFromInt(19)))
	require.Equal(t, TierInsufficient, c.TierFor(decimal.NewFromInt(10)))
	require.Equal(t, TierInsufficient, c.TierFor(decimal.NewFromInt(8)))
}
