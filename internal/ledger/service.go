package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxRetries = 3
	RetryDelay = 10 * time.Millisecond
)

var ErrInvalidTransfer = errors.New("invalid transfer request")

// Client is the engine's default transfer adapter: it lands payouts and
// refunds on the player's wallet row and leaves the audit transaction
// behind. Idempotent per reference id.
type Client struct {
	repo     LedgerRepository
	currency string
}

func NewClient(repo LedgerRepository, currency string) *Client {
	return &Client{repo: repo, currency: currency}
}

func (c *Client) transfer(ctx context.Context, playerID string, amount decimal.Decimal, reference, transferType string) (string, error) {
	if playerID == "" || reference == "" || !amount.IsPositive() {
		return "", ErrInvalidTransfer
	}

	existing, err := c.repo.GetTransactionByReference(ctx, reference)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.TransactionID, nil
	}

	wallet, err := c.repo.GetWallet(ctx, playerID, c.currency)
	if err != nil {
		if !errors.Is(err, ErrWalletNotFound) {
			return "", err
		}
		wallet, err = c.repo.CreateWallet(ctx, playerID, c.currency)
		if err != nil {
			return "", err
		}
	}

	tx := &Transaction{
		WalletID:     wallet.WalletID,
		PlayerID:     playerID,
		TransferType: transferType,
		Amount:       amount,
		ReferenceID:  reference,
	}

	for i := 0; i < MaxRetries; i++ {
		err = c.repo.Credit(ctx, tx)
		if err == nil {
			return tx.TransactionID, nil
		}
		if errors.Is(err, ErrOptimisticLock) {
			time.Sleep(RetryDelay)
			continue
		}
		return "", err
	}
	return "", err
}

// Transfer credits a winning settlement to the player.
func (c *Client) Transfer(ctx context.Context, playerID string, amount decimal.Decimal, reference string) (string, error) {
	return c.transfer(ctx, playerID, amount, reference, TransferPayout)
}

// Refund returns a voided wager's stake to the player.
func (c *Client) Refund(ctx context.Context, playerID string, amount decimal.Decimal, reference string) (string, error) {
	return c.transfer(ctx, playerID, amount, reference, TransferRefund)
}

// Balance reports the player's current wallet balance.
func (c *Client) Balance(ctx context.Context, playerID string) (decimal.Decimal, error) {
	w, err := c.repo.GetWallet(ctx, playerID, c.currency)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return w.Balance, nil
}
