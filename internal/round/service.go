package round

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"casino_engine/internal/fair"
	"casino_engine/internal/games"
	"casino_engine/internal/payout"
	"casino_engine/internal/pool"
	"casino_engine/internal/seed"
)

var (
	ErrRoundInFlight    = errors.New("a round of this game is already in flight for this player")
	ErrNonceReplayed    = errors.New("nonce already used for this client seed")
	ErrInvalidBetAmount = errors.New("bet amount must be greater than zero")
	ErrNonceTooLarge    = errors.New("nonce exceeds the supported range")
)

var validate = validator.New()

// SeedSource pins the epoch a round draws against and reveals retired ones.
type SeedSource interface {
	Active() (*seed.ServerSeed, error)
	Reveal(ctx context.Context, epoch string) (*seed.Revealed, error)
}

// Liquidity is the risk-controller slice the coordinator drives.
type Liquidity interface {
	Admit(ctx context.Context, bet decimal.Decimal, maxMultiplier float64) (*pool.Admission, error)
	Release(ctx context.Context, worstCase decimal.Decimal) error
	TakeStake(ctx context.Context, bet decimal.Decimal) error
	RefundStake(ctx context.Context, bet decimal.Decimal) error
}

type Settler interface {
	Settle(ctx context.Context, playerID string, amount decimal.Decimal, idempotencyKey string) (*payout.Result, error)
}

// Refunder returns a voided wager's stake to the player.
type Refunder interface {
	Refund(ctx context.Context, playerID string, amount decimal.Decimal, reference string) (string, error)
}

type inFlightLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newInFlightLocks() *inFlightLocks {
	return &inFlightLocks{held: make(map[string]bool)}
}

func (l *inFlightLocks) tryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false
	}
	l.held[key] = true
	return true
}

func (l *inFlightLocks) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

// Coordinator sequences one player round: admit wager, resolve outcome,
// settle payout, release the reservation, finalizing the round exactly once
// whether it won, lost, was rejected or errored.
type Coordinator struct {
	repo      RoundRepository
	seeds     SeedSource
	liquidity Liquidity
	settler   Settler
	refunder  Refunder
	hub       *Hub
	currency  string
	locks     *inFlightLocks
}

func NewCoordinator(repo RoundRepository, seeds SeedSource, liquidity Liquidity, settler Settler, refunder Refunder, currency string) *Coordinator {
	return &Coordinator{
		repo:      repo,
		seeds:     seeds,
		liquidity: liquidity,
		settler:   settler,
		refunder:  refunder,
		hub:       NewHub(),
		currency:  currency,
		locks:     newInFlightLocks(),
	}
}

func (c *Coordinator) Subscribe(playerID string) <-chan RoundUpdate {
	return c.hub.Subscribe(playerID)
}

func (c *Coordinator) Unsubscribe(playerID string, ch <-chan RoundUpdate) {
	c.hub.Unsubscribe(playerID, ch)
}

// Play runs one full round. Validation and admission reject before any state
// change; after admission every path compensates to a terminal state.
func (c *Coordinator) Play(ctx context.Context, req BetRequest) (*RoundResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("bet request: %w", err)
	}
	if !fair.ValidClientSeed(req.ClientSeed) {
		return nil, fair.ErrInvalidClientSeed
	}
	if !req.BetAmount.IsPositive() {
		return nil, ErrInvalidBetAmount
	}
	// The wager row stores the nonce as int64; anything above that range
	// would sign-flip and wedge the whole seed pair.
	if req.Nonce > math.MaxInt64 {
		return nil, ErrNonceTooLarge
	}
	if err := games.Validate(req.GameType, req.Params); err != nil {
		return nil, err
	}
	maxMultiplier, err := games.MaxMultiplier(req.GameType, req.Params)
	if err != nil {
		return nil, err
	}

	lockKey := req.PlayerID + ":" + string(req.GameType)
	if !c.locks.tryAcquire(lockKey) {
		return nil, ErrRoundInFlight
	}
	defer c.locks.release(lockKey)

	last, used, err := c.repo.LastNonce(ctx, req.PlayerID, req.ClientSeed)
	if err != nil {
		return nil, fmt.Errorf("nonce lookup: %w", err)
	}
	if used && req.Nonce <= uint64(last) {
		log.Printf("security: nonce replay rejected: player=%s client_seed=%s nonce=%d last=%d",
			req.PlayerID, req.ClientSeed, req.Nonce, last)
		return nil, ErrNonceReplayed
	}

	admission, err := c.liquidity.Admit(ctx, req.BetAmount, maxMultiplier)
	if err != nil {
		return nil, fmt.Errorf("admission: %w", err)
	}
	if !admission.Allowed {
		return &RoundResult{Status: StatusRejected, Rejection: admission}, nil
	}
	worstCase := admission.WorstCase

	// The caller may abandon the request, but an admitted wager must still
	// reach a terminal state, so everything past admission runs detached.
	detached := context.WithoutCancel(ctx)

	active, err := c.seeds.Active()
	if err != nil {
		c.releaseReserve(detached, worstCase)
		return nil, fmt.Errorf("active seed: %w", err)
	}

	wager := &Wager{
		WagerID:    uuid.New().String(),
		PlayerID:   req.PlayerID,
		GameType:   string(req.GameType),
		BetAmount:  req.BetAmount,
		Currency:   c.currency,
		ClientSeed: req.ClientSeed,
		Nonce:      int64(req.Nonce),
		SeedEpoch:  active.Epoch,
		Status:     StatusAdmitted,
		WinAmount:  decimal.Zero,
		CreatedAt:  time.Now(),
	}
	if err := c.repo.CreateWager(detached, wager); err != nil {
		c.releaseReserve(detached, worstCase)
		if errors.Is(err, ErrDuplicateWager) {
			// A concurrent round of another game type slipped past the
			// LastNonce read; the unique index is the backstop.
			log.Printf("security: nonce replay rejected on insert: player=%s client_seed=%s nonce=%d",
				req.PlayerID, req.ClientSeed, req.Nonce)
			return nil, ErrNonceReplayed
		}
		return nil, fmt.Errorf("persist wager: %w", err)
	}

	if err := c.liquidity.TakeStake(detached, req.BetAmount); err != nil {
		c.voidWager(detached, wager, worstCase, false)
		return nil, fmt.Errorf("take stake: %w", err)
	}

	stream, err := fair.NewStream(active.SeedHex, req.ClientSeed, req.Nonce)
	if err != nil {
		c.voidWager(detached, wager, worstCase, true)
		return nil, err
	}
	outcome, err := games.Resolve(req.GameType, req.Params, req.BetAmount, stream)
	if err != nil {
		c.voidWager(detached, wager, worstCase, true)
		return nil, fmt.Errorf("resolve outcome: %w", err)
	}

	resultJSON, err := json.Marshal(outcome.Result)
	if err != nil {
		c.voidWager(detached, wager, worstCase, true)
		return nil, fmt.Errorf("encode result: %w", err)
	}
	resultHash := fair.ProofHash(active.SeedHex, req.ClientSeed, req.Nonce, resultJSON)

	var payoutResult *payout.Result
	if outcome.WinAmount.IsPositive() {
		payoutResult, err = c.settler.Settle(detached, req.PlayerID, outcome.WinAmount, wager.WagerID)
		if err != nil {
			// The win stays recorded as owed on the wager row; the payout
			// can be re-driven later with the same idempotency key.
			log.Printf("settlement failed, win recorded as owed: round_id=%s player=%s amount=%s err=%v",
				wager.WagerID, req.PlayerID, outcome.WinAmount, err)
		}
	}

	c.releaseReserve(detached, worstCase)

	status := StatusSettledLoss
	if outcome.IsWin {
		status = StatusSettledWin
	}
	wager.Status = status
	wager.ResultJSON = string(resultJSON)
	wager.ResultHash = resultHash
	wager.IsWin = outcome.IsWin
	wager.Multiplier = outcome.Multiplier
	wager.WinAmount = outcome.WinAmount
	if err := c.repo.UpdateWager(detached, wager); err != nil {
		return nil, fmt.Errorf("finalize wager: %w", err)
	}

	c.hub.Notify(req.PlayerID, RoundUpdate{
		RoundID:   wager.WagerID,
		PlayerID:  req.PlayerID,
		GameType:  wager.GameType,
		Status:    status,
		WinAmount: outcome.WinAmount,
		Timestamp: time.Now(),
	})

	log.Printf("round settled: round_id=%s player=%s game=%s status=%s bet=%s win=%s",
		wager.WagerID, req.PlayerID, wager.GameType, status, req.BetAmount, outcome.WinAmount)

	return &RoundResult{
		RoundID: wager.WagerID,
		Status:  status,
		Outcome: outcome,
		Proof: &Proof{
			ServerSeedCommitHash: active.CommitHash,
			SeedEpoch:            active.Epoch,
			ClientSeed:           req.ClientSeed,
			Nonce:                req.Nonce,
			ResultHash:           resultHash,
		},
		Payout: payoutResult,
	}, nil
}

func (c *Coordinator) releaseReserve(ctx context.Context, worstCase decimal.Decimal) {
	if err := c.liquidity.Release(ctx, worstCase); err != nil {
		log.Printf("reserve release failed: amount=%s err=%v", worstCase, err)
	}
}

// voidWager compensates an admitted wager that could not be resolved: the
// reservation is dropped, the stake leaves the pool again and goes back to
// the player, and the wager lands in its terminal voided state.
func (c *Coordinator) voidWager(ctx context.Context, wager *Wager, worstCase decimal.Decimal, stakeTaken bool) {
	c.releaseReserve(ctx, worstCase)

	if stakeTaken {
		if err := c.liquidity.RefundStake(ctx, wager.BetAmount); err != nil {
			log.Printf("stake refund from pool failed: round_id=%s err=%v", wager.WagerID, err)
		}
		if _, err := c.refunder.Refund(ctx, wager.PlayerID, wager.BetAmount, wager.WagerID+"-void"); err != nil {
			log.Printf("stake refund to player failed: round_id=%s err=%v", wager.WagerID, err)
		}
	}

	wager.Status = StatusVoided
	if err := c.repo.UpdateWager(ctx, wager); err != nil {
		log.Printf("void finalize failed: round_id=%s err=%v", wager.WagerID, err)
	}
	log.Printf("round voided: round_id=%s player=%s", wager.WagerID, wager.PlayerID)
}

// Verify recomputes a historical outcome from a revealed epoch so a player
// can confirm the round was not manipulated.
func (c *Coordinator) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("verify request: %w", err)
	}
	revealed, err := c.seeds.Reveal(ctx, req.Epoch)
	if err != nil {
		return nil, err
	}

	stream, err := fair.NewStream(revealed.SeedHex, req.ClientSeed, req.Nonce)
	if err != nil {
		return nil, err
	}
	outcome, err := games.Resolve(req.GameType, req.Params, req.BetAmount, stream)
	if err != nil {
		return nil, err
	}
	resultJSON, err := json.Marshal(outcome.Result)
	if err != nil {
		return nil, err
	}

	return &VerifyResponse{
		Epoch:      revealed.Epoch,
		CommitHash: revealed.CommitHash,
		SeedHex:    revealed.SeedHex,
		Outcome:    outcome,
		ResultHash: fair.ProofHash(revealed.SeedHex, req.ClientSeed, req.Nonce, resultJSON),
	}, nil
}
