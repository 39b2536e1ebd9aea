// adapters.go provides adapter implementations that wrap go-ethereum clients
// to implement the minimal interfaces defined in deps.go.
package arenakit

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// chainReaderAdapter wraps an ethclient.Client to implement ChainReader.
type chainReaderAdapter struct {
	client *ethclient.Client
}

func (r *chainReaderAdapter) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

func (r *chainReaderAdapter) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return r.client.BalanceAt(ctx, addr, nil)
}

func (r *chainReaderAdapter) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return r.client.TransactionReceipt(ctx, hash)
}

// NewChainReaderAdapter creates a ChainReader from a go-ethereum client.
func NewChainReaderAdapter(client *ethclient.Client) ChainReader {
	return &chainReaderAdapter{client: client}
}

// DialChainReader connects to an RPC endpoint and returns a ChainReader for it.
func DialChainReader(ctx context.Context, rpcURL string) (ChainReader, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return NewChainReaderAdapter(client), nil
}

// pollingReceiptMonitor implements ReceiptMonitor by polling
// ChainReader.TransactionReceipt at a fixed interval.
type pollingReceiptMonitor struct {
	reader ChainReader
}

// NewPollingReceiptMonitor creates a ReceiptMonitor backed by a ChainReader.
func NewPollingReceiptMonitor(reader ChainReader) ReceiptMonitor {
	return &pollingReceiptMonitor{reader: reader}
}

// MakeWaitChannelWithInterval polls until the receipt appears or the context is
// cancelled. The returned channel is buffered so the polling goroutine never
// leaks when the caller stops listening.
func (m *pollingReceiptMonitor) MakeWaitChannelWithInterval(ctx context.Context, hash common.Hash, interval time.Duration) <-chan ReceiptStatus {
	if interval <= 0 {
		interval = DefaultReceiptCheckInterval
	}
	statusChan := make(chan ReceiptStatus, 1)
	go func() {
		defer close(statusChan)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			receipt, err := m.reader.TransactionReceipt(ctx, hash)
			if err == nil && receipt != nil {
				if receipt.Status == types.ReceiptStatusFailed {
					statusChan <- ReceiptStatus{Status: ReceiptStatusReverted, Receipt: receipt}
				} else {
					statusChan <- ReceiptStatus{Status: ReceiptStatusMined, Receipt: receipt}
				}
				return
			}
			select {
			case <-ctx.Done():
				statusChan <- ReceiptStatus{Status: ReceiptStatusCancelled, Receipt: nil}
				return
			case <-ticker.C:
			}
		}
	}()
	return statusChan
}

// memoryPreferenceStore is the default in-process PreferenceStore.
type memoryPreferenceStore struct {
	mu    sync.Mutex
	prefs map[string]WalletKind
}

// NewMemoryPreferenceStore creates an in-memory preference store.
// Use persistence/redis.PreferenceStore for durable preferences.
func NewMemoryPreferenceStore() PreferenceStore {
	return &memoryPreferenceStore{prefs: map[string]WalletKind{}}
}

func (s *memoryPreferenceStore) GetWalletKind(ctx context.Context, user string) (WalletKind, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind, ok := s.prefs[user]
	return kind, ok, nil
}

func (s *memoryPreferenceStore) SetWalletKind(ctx context.Context, user string, kind WalletKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[user] = kind
	return nil
}
