// deps.go defines minimal interfaces for external dependencies.
// This allows for easy mocking in tests and decouples the library from specific implementations.
package arenakit

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainReader defines the minimal interface for reading blockchain state.
// This abstracts away the concrete RPC client implementation.
type ChainReader interface {
	// CallContract executes a read-only contract call and returns the raw return data
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// NativeBalance returns the native token balance of the address in the smallest unit
	NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error)

	// TransactionReceipt returns the receipt for a mined transaction.
	// It returns an error while the tx is pending or unknown.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// EmbeddedBackend is the capability surface of an in-app custodial / smart-contract
// wallet. It takes pre-encoded calldata together with a human-readable label that
// the backend shows in its own confirmation UI.
type EmbeddedBackend interface {
	// Ready reports whether the embedded wallet has finished initializing
	// and can sign transactions.
	Ready(ctx context.Context) (bool, error)

	// Address returns the connected account, or an error if none is connected.
	Address(ctx context.Context) (common.Address, error)

	// SendCalldata submits a transaction with pre-encoded calldata.
	SendCalldata(ctx context.Context, to common.Address, value *big.Int, calldata []byte, label string) (common.Hash, error)
}

// StandardBackend is the capability surface of a conventional signing wallet.
// It encodes the contract call internally from the ABI, method and arguments.
type StandardBackend interface {
	// Address returns the connected account, or an error if none is connected.
	Address(ctx context.Context) (common.Address, error)

	// SendContractCall encodes and submits a contract call.
	SendContractCall(ctx context.Context, to common.Address, value *big.Int, contractABI abi.ABI, method string, args []any) (common.Hash, error)
}

// ReceiptWaitStatus represents the status of a tracked transaction.
type ReceiptWaitStatus string

const (
	// ReceiptStatusMined indicates the transaction was mined successfully
	ReceiptStatusMined ReceiptWaitStatus = "mined"
	// ReceiptStatusReverted indicates the transaction was mined but execution reverted
	ReceiptStatusReverted ReceiptWaitStatus = "reverted"
	// ReceiptStatusCancelled indicates the tracking was cancelled via context
	ReceiptStatusCancelled ReceiptWaitStatus = "cancelled"
	// ReceiptStatusPending indicates the transaction is still pending
	ReceiptStatusPending ReceiptWaitStatus = "pending"
)

// ReceiptStatus is delivered by a ReceiptMonitor once tracking settles.
type ReceiptStatus struct {
	Status  ReceiptWaitStatus
	Receipt *types.Receipt
}

// ReceiptMonitor defines the minimal interface for tracking a submitted transaction
// until it is mined.
type ReceiptMonitor interface {
	// MakeWaitChannelWithInterval creates a channel that receives exactly one
	// settled status. The channel is closed afterwards.
	MakeWaitChannelWithInterval(ctx context.Context, hash common.Hash, interval time.Duration) <-chan ReceiptStatus
}

// Notifier is a fire-and-forget side channel for user-facing messages.
// It never affects control flow.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Success(msg string) {}
func (NopNotifier) Error(msg string)   {}

// PreferenceStore persists the user's wallet kind preference across sessions.
type PreferenceStore interface {
	// GetWalletKind returns the persisted preference for the user key,
	// with found=false when no preference has been stored.
	GetWalletKind(ctx context.Context, user string) (kind WalletKind, found bool, err error)

	// SetWalletKind persists the preference for the user key.
	SetWalletKind(ctx context.Context, user string, kind WalletKind) error
}

// OutcomeStore persists transaction outcomes keyed by request id so that
// confirmation tracking survives restarts.
type OutcomeStore interface {
	Save(ctx context.Context, outcome *TxOutcome) error
	Get(ctx context.Context, requestID string) (*TxOutcome, error)
	// ListPending returns outcomes that have a hash but no receipt yet.
	ListPending(ctx context.Context) ([]*TxOutcome, error)
	Delete(ctx context.Context, requestID string) error
}

// PriceSource returns the USD price for a token on a chain.
// A missing price is reported as found=false, never as an error.
type PriceSource interface {
	PriceUSD(ctx context.Context, chainID string, token common.Address) (price float64, found bool)
}

// TokenSource exposes the tokens owned by an account.
type TokenSource interface {
	TokensOwnedBy(ctx context.Context, owner common.Address) ([]Token, error)
}
