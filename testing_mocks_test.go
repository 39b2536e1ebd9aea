package arenakit

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ============================================================
// Mock Implementations
// ============================================================

// mockChainReader implements ChainReader for testing
type mockChainReader struct {
	mu sync.Mutex

	// Function hooks - set these to customize behavior
	CallContractFn       func(to common.Address, data []byte) ([]byte, error)
	NativeBalanceFn      func(addr common.Address) (*big.Int, error)
	TransactionReceiptFn func(hash common.Hash) (*types.Receipt, error)

	// Call tracking for assertions
	CallContractCalls []struct {
		To   common.Address
		Data []byte
	}
	NativeBalanceCalls      []common.Address
	TransactionReceiptCalls []common.Hash
}

func (m *mockChainReader) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	m.mu.Lock()
	m.CallContractCalls = append(m.CallContractCalls, struct {
		To   common.Address
		Data []byte
	}{to, data})
	m.mu.Unlock()
	if m.CallContractFn != nil {
		return m.CallContractFn(to, data)
	}
	return nil, nil
}

func (m *mockChainReader) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	m.mu.Lock()
	m.NativeBalanceCalls = append(m.NativeBalanceCalls, addr)
	m.mu.Unlock()
	if m.NativeBalanceFn != nil {
		return m.NativeBalanceFn(addr)
	}
	return big.NewInt(0), nil
}

func (m *mockChainReader) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	m.TransactionReceiptCalls = append(m.TransactionReceiptCalls, hash)
	m.mu.Unlock()
	if m.TransactionReceiptFn != nil {
		return m.TransactionReceiptFn(hash)
	}
	return nil, ethereumNotFoundErr
}

var ethereumNotFoundErr = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

// mockEmbeddedBackend implements EmbeddedBackend for testing
type mockEmbeddedBackend struct {
	mu sync.Mutex

	ReadyFn        func() (bool, error)
	AddressFn      func() (common.Address, error)
	SendCalldataFn func(to common.Address, value *big.Int, calldata []byte, label string) (common.Hash, error)

	SendCalldataCalls []struct {
		To       common.Address
		Value    *big.Int
		Calldata []byte
		Label    string
	}
}

func (m *mockEmbeddedBackend) Ready(ctx context.Context) (bool, error) {
	if m.ReadyFn != nil {
		return m.ReadyFn()
	}
	return true, nil
}

func (m *mockEmbeddedBackend) Address(ctx context.Context) (common.Address, error) {
	if m.AddressFn != nil {
		return m.AddressFn()
	}
	return common.HexToAddress("0x1111111111111111111111111111111111111111"), nil
}

func (m *mockEmbeddedBackend) SendCalldata(ctx context.Context, to common.Address, value *big.Int, calldata []byte, label string) (common.Hash, error) {
	m.mu.Lock()
	m.SendCalldataCalls = append(m.SendCalldataCalls, struct {
		To       common.Address
		Value    *big.Int
		Calldata []byte
		Label    string
	}{to, value, calldata, label})
	m.mu.Unlock()
	if m.SendCalldataFn != nil {
		return m.SendCalldataFn(to, value, calldata, label)
	}
	return common.HexToHash("0xaaaa"), nil
}

// mockStandardBackend implements StandardBackend for testing
type mockStandardBackend struct {
	mu sync.Mutex

	AddressFn          func() (common.Address, error)
	SendContractCallFn func(to common.Address, value *big.Int, contractABI abi.ABI, method string, args []any) (common.Hash, error)

	SendContractCallCalls []struct {
		To     common.Address
		Method string
		Args   []any
	}
}

func (m *mockStandardBackend) Address(ctx context.Context) (common.Address, error) {
	if m.AddressFn != nil {
		return m.AddressFn()
	}
	return common.HexToAddress("0x2222222222222222222222222222222222222222"), nil
}

func (m *mockStandardBackend) SendContractCall(ctx context.Context, to common.Address, value *big.Int, contractABI abi.ABI, method string, args []any) (common.Hash, error) {
	m.mu.Lock()
	m.SendContractCallCalls = append(m.SendContractCallCalls, struct {
		To     common.Address
		Method string
		Args   []any
	}{to, method, args})
	m.mu.Unlock()
	if m.SendContractCallFn != nil {
		return m.SendContractCallFn(to, value, contractABI, method, args)
	}
	return common.HexToHash("0xbbbb"), nil
}

// mockSender implements TransactionSender for testing
type mockSender struct {
	mu sync.Mutex

	SendTransactionFn func(req CallRequest) (common.Hash, error)

	SendTransactionCalls []CallRequest
}

func (m *mockSender) SendTransaction(ctx context.Context, req CallRequest) (common.Hash, error) {
	m.mu.Lock()
	m.SendTransactionCalls = append(m.SendTransactionCalls, req)
	m.mu.Unlock()
	if m.SendTransactionFn != nil {
		return m.SendTransactionFn(req)
	}
	return common.HexToHash("0xcccc"), nil
}

func (m *mockSender) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SendTransactionCalls)
}

// mockNotifier implements Notifier and records all messages
type mockNotifier struct {
	mu sync.Mutex

	SuccessMsgs []string
	ErrorMsgs   []string
}

func (m *mockNotifier) Success(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SuccessMsgs = append(m.SuccessMsgs, msg)
}

func (m *mockNotifier) Error(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorMsgs = append(m.ErrorMsgs, msg)
}

func (m *mockNotifier) successCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SuccessMsgs)
}

func (m *mockNotifier) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ErrorMsgs)
}

// mockReceiptMonitor implements ReceiptMonitor with a preloaded result
type mockReceiptMonitor struct {
	mu sync.Mutex

	Result ReceiptStatus

	Hashes []common.Hash
}

func (m *mockReceiptMonitor) MakeWaitChannelWithInterval(ctx context.Context, hash common.Hash, interval time.Duration) <-chan ReceiptStatus {
	m.mu.Lock()
	m.Hashes = append(m.Hashes, hash)
	result := m.Result
	m.mu.Unlock()
	ch := make(chan ReceiptStatus, 1)
	ch <- result
	close(ch)
	return ch
}

// mockPriceSource implements PriceSource with a fixed price table
type mockPriceSource struct {
	Prices map[common.Address]float64
}

func (m *mockPriceSource) PriceUSD(ctx context.Context, chainID string, token common.Address) (float64, bool) {
	price, ok := m.Prices[token]
	return price, ok
}

// ============================================================
// Test helpers
// ============================================================

// packReturn ABI-encodes a single return value of the given solidity type.
func packReturn(t string, value any) []byte {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	args := abi.Arguments{{Type: typ}}
	out, err := args.Pack(value)
	if err != nil {
		panic(err)
	}
	return out
}

// methodID returns the 4-byte selector for a packed call so mocks can route
// on the method being called.
func methodID(contractABI abi.ABI, method string) [4]byte {
	var id [4]byte
	copy(id[:], contractABI.Methods[method].ID)
	return id
}

// routeCall matches calldata against a method of an ABI.
func routeCall(data []byte, contractABI abi.ABI, method string) bool {
	if len(data) < 4 {
		return false
	}
	id := methodID(contractABI, method)
	return id[0] == data[0] && id[1] == data[1] && id[2] == data[2] && id[3] == data[3]
}
