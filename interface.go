package arenakit

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Session defines the interface for wallet session operations.
// This interface allows for easy mocking in tests and provides a stable API contract.
type Session interface {
	// Resolution
	Resolve(ctx context.Context) error
	Resolved() bool
	Kind() (WalletKind, bool)
	Address() (common.Address, bool)
	Logout()

	// Chain access
	NativeBalance(ctx context.Context) (*big.Int, error)

	// Submission and tracking
	SendTransaction(ctx context.Context, req CallRequest) (common.Hash, error)
	Outcome(requestID string) (TxOutcome, bool)
	IsConfirming(requestID string) bool
	IsConfirmed(requestID string) bool
	ResumePendingOutcomes(ctx context.Context) (int, error)

	Close()
}

// Compile-time check that WalletSession implements Session
var _ Session = (*WalletSession)(nil)

// Aggregator defines the interface for battle aggregation.
type Aggregator interface {
	Aggregate(ctx context.Context) ([]BattleRecord, error)
}

// Compile-time check that BattleAggregator implements Aggregator
var _ Aggregator = (*BattleAggregator)(nil)
