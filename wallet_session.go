package arenakit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KyberNetwork/logger"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"
)

// walletBackend is a tagged variant over the two wallet execution paths.
// Exactly one handle is non-nil once the kind is resolved.
type walletBackend struct {
	kind     WalletKind
	embedded EmbeddedBackend
	standard StandardBackend
}

// WalletSession presents one capability surface - address, native balance,
// transaction submission and confirmation tracking - regardless of which
// underlying wallet backend is active.
//
// The session starts unresolved; Resolve picks the backend once per session
// (idempotently) and Logout resets it. Each submitted transaction is tracked
// under its own request id so concurrent submissions never clobber each
// other's confirmation tracking.
type WalletSession struct {
	mu sync.RWMutex

	resolved bool
	backend  walletBackend
	address  common.Address

	embedded EmbeddedBackend
	standard StandardBackend

	reader  ChainReader
	monitor ReceiptMonitor

	prefs        PreferenceStore
	outcomeStore OutcomeStore
	userKey      string

	checkInterval time.Duration

	// outcomes maps request id => *TxOutcome
	outcomes sync.Map

	resolveGroup singleflight.Group

	// trackCtx bounds all confirmation tracking goroutines
	trackCtx    context.Context
	trackCancel context.CancelFunc
}

// request ids are unique across every session and interactor in the process
var requestIDCounter atomic.Uint64

func newRequestID() string {
	return fmt.Sprintf("req-%d-%d", time.Now().UnixNano(), requestIDCounter.Add(1))
}

// NewWalletSession creates a session with optional configuration.
// At least one backend must be provided before Resolve can succeed.
func NewWalletSession(opts ...WalletSessionOption) *WalletSession {
	ctx, cancel := context.WithCancel(context.Background())
	ws := &WalletSession{
		checkInterval: DefaultReceiptCheckInterval,
		userKey:       "default",
		trackCtx:      ctx,
		trackCancel:   cancel,
	}
	for _, opt := range opts {
		opt(ws)
	}
	if ws.prefs == nil {
		ws.prefs = NewMemoryPreferenceStore()
	}
	if ws.monitor == nil && ws.reader != nil {
		ws.monitor = NewPollingReceiptMonitor(ws.reader)
	}
	return ws
}

// Close stops all confirmation tracking goroutines.
func (ws *WalletSession) Close() {
	ws.trackCancel()
}

// Resolved reports whether a wallet kind and address have been resolved.
func (ws *WalletSession) Resolved() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.resolved
}

// Kind returns the resolved wallet kind. The boolean is false while unresolved.
func (ws *WalletSession) Kind() (WalletKind, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	if !ws.resolved {
		return "", false
	}
	return ws.backend.kind, true
}

// Address returns the connected account. The boolean is false while unresolved.
func (ws *WalletSession) Address() (common.Address, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	if !ws.resolved {
		return common.Address{}, false
	}
	return ws.address, true
}

// Resolve picks the wallet backend and connected address for this session.
//
// It consults the persisted preference first; when absent it probes the
// embedded backend for readiness and defaults to it, otherwise falls back to
// the standard backend. Resolution runs once per session: concurrent and
// repeated calls collapse to a single execution.
func (ws *WalletSession) Resolve(ctx context.Context) error {
	ws.mu.RLock()
	if ws.resolved {
		ws.mu.RUnlock()
		return nil
	}
	ws.mu.RUnlock()

	_, err, _ := ws.resolveGroup.Do("resolve", func() (interface{}, error) {
		return nil, ws.doResolve(ctx)
	})
	return err
}

func (ws *WalletSession) doResolve(ctx context.Context) error {
	ws.mu.RLock()
	if ws.resolved {
		ws.mu.RUnlock()
		return nil
	}
	ws.mu.RUnlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultResolveTimeout)
		defer cancel()
	}

	kind, err := ws.pickKind(ctx)
	if err != nil {
		return err
	}

	backend := walletBackend{kind: kind}
	var addr common.Address
	switch kind {
	case WalletKindEmbedded:
		if ws.embedded == nil {
			return errors.Join(ErrClientNotInitialized, fmt.Errorf("embedded backend is not configured"))
		}
		backend.embedded = ws.embedded
		addr, err = ws.embedded.Address(ctx)
	case WalletKindStandard:
		if ws.standard == nil {
			return errors.Join(ErrClientNotInitialized, fmt.Errorf("standard backend is not configured"))
		}
		backend.standard = ws.standard
		addr, err = ws.standard.Address(ctx)
	default:
		return fmt.Errorf("unsupported wallet kind %q", kind)
	}
	if err != nil {
		return errors.Join(ErrNoWalletConnected, fmt.Errorf("backend %s reported no connected account: %w", kind, err))
	}

	ws.mu.Lock()
	ws.backend = backend
	ws.address = addr
	ws.resolved = true
	ws.mu.Unlock()

	if prefErr := ws.prefs.SetWalletKind(ctx, ws.userKey, kind); prefErr != nil {
		logger.WithFields(logger.Fields{
			"user":  ws.userKey,
			"kind":  kind,
			"error": prefErr,
		}).Warn("Failed to persist wallet kind preference. Ignore and continue")
	}

	logger.WithFields(logger.Fields{
		"kind":    kind,
		"address": addr.Hex(),
	}).Info("Resolved wallet session")
	return nil
}

// pickKind decides the backend kind: persisted preference, then embedded
// readiness probe, then standard fallback.
func (ws *WalletSession) pickKind(ctx context.Context) (WalletKind, error) {
	kind, found, err := ws.prefs.GetWalletKind(ctx, ws.userKey)
	if err != nil {
		logger.WithFields(logger.Fields{
			"user":  ws.userKey,
			"error": err,
		}).Warn("Failed to read wallet kind preference. Falling back to probing")
	} else if found && (kind == WalletKindEmbedded || kind == WalletKindStandard) {
		return kind, nil
	}

	if ws.embedded != nil {
		ready, probeErr := ws.embedded.Ready(ctx)
		if probeErr != nil {
			logger.WithFields(logger.Fields{
				"error": probeErr,
			}).Debug("Embedded wallet readiness probe failed. Falling back to standard")
		} else if ready {
			return WalletKindEmbedded, nil
		}
	}
	if ws.standard != nil {
		return WalletKindStandard, nil
	}
	if ws.embedded != nil {
		// No standard backend to fall back to; the embedded one is all we have.
		return WalletKindEmbedded, nil
	}
	return "", errors.Join(ErrClientNotInitialized, fmt.Errorf("no wallet backend configured"))
}

// Logout resets the session to unresolved. Outcome tracking of already
// submitted transactions continues.
func (ws *WalletSession) Logout() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.resolved = false
	ws.backend = walletBackend{}
	ws.address = common.Address{}
	ws.resolveGroup.Forget("resolve")
}

// NativeBalance returns the connected account's native token balance in the
// smallest unit.
func (ws *WalletSession) NativeBalance(ctx context.Context) (*big.Int, error) {
	addr, ok := ws.Address()
	if !ok {
		return nil, ErrNoWalletConnected
	}
	if ws.reader == nil {
		return nil, errors.Join(ErrClientNotInitialized, fmt.Errorf("chain reader is not configured"))
	}
	return ws.reader.NativeBalance(ctx, addr)
}

// SendTransaction encodes and dispatches one contract call through the active
// backend and returns the transaction hash. The embedded backend receives
// pre-encoded calldata plus the request's description as its confirmation
// label; the standard backend receives the ABI, method and arguments and
// encodes internally.
//
// Every successful submission registers a TxOutcome under the request id and
// starts confirmation tracking for it.
func (ws *WalletSession) SendTransaction(ctx context.Context, req CallRequest) (common.Hash, error) {
	if ws.trackCtx.Err() != nil {
		return common.Hash{}, ErrSessionClosed
	}

	ws.mu.RLock()
	resolved := ws.resolved
	backend := ws.backend
	ws.mu.RUnlock()

	if !resolved {
		return common.Hash{}, ErrNoWalletConnected
	}

	if req.RequestID == "" {
		req.RequestID = newRequestID()
	}
	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}

	var hash common.Hash
	var err error
	switch backend.kind {
	case WalletKindEmbedded:
		if backend.embedded == nil {
			return common.Hash{}, ErrClientNotInitialized
		}
		var calldata []byte
		calldata, err = req.ABI.Pack(req.Method, req.Args...)
		if err != nil {
			return common.Hash{}, errors.Join(ErrEncodeCallFailed, fmt.Errorf("couldn't encode %s call: %w", req.Method, err))
		}
		hash, err = backend.embedded.SendCalldata(ctx, req.Target, value, calldata, req.Description)
	case WalletKindStandard:
		if backend.standard == nil {
			return common.Hash{}, ErrClientNotInitialized
		}
		hash, err = backend.standard.SendContractCall(ctx, req.Target, value, req.ABI, req.Method, req.Args)
	default:
		return common.Hash{}, ErrKindNotResolved
	}
	if err != nil {
		return common.Hash{}, err
	}

	outcome := &TxOutcome{
		RequestID: req.RequestID,
		Hash:      &hash,
		UpdatedAt: time.Now(),
	}
	ws.outcomes.Store(req.RequestID, outcome)
	ws.persistOutcome(outcome)

	logger.WithFields(logger.Fields{
		"request_id": req.RequestID,
		"tx_hash":    hash.Hex(),
		"method":     req.Method,
		"target":     req.Target.Hex(),
		"kind":       backend.kind,
	}).Info("Submitted transaction")

	ws.trackOutcome(req.RequestID, hash)
	return hash, nil
}

// Outcome returns a snapshot of the outcome for a request id.
func (ws *WalletSession) Outcome(requestID string) (TxOutcome, bool) {
	raw, ok := ws.outcomes.Load(requestID)
	if !ok {
		return TxOutcome{}, false
	}
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return *raw.(*TxOutcome), true
}

// IsConfirming reports whether a submitted request is still waiting for its receipt.
func (ws *WalletSession) IsConfirming(requestID string) bool {
	outcome, ok := ws.Outcome(requestID)
	return ok && outcome.Hash != nil && outcome.Receipt == nil
}

// IsConfirmed reports whether a submitted request has been mined.
func (ws *WalletSession) IsConfirmed(requestID string) bool {
	outcome, ok := ws.Outcome(requestID)
	return ok && outcome.Confirmed
}

// trackOutcome starts a goroutine that waits for the receipt of one request
// and records it on the outcome. Tracking is bounded by the session lifetime,
// not the submitting call's context.
func (ws *WalletSession) trackOutcome(requestID string, hash common.Hash) {
	if ws.monitor == nil {
		logger.WithFields(logger.Fields{
			"request_id": requestID,
			"tx_hash":    hash.Hex(),
		}).Warn("No receipt monitor configured, outcome will stay unconfirmed")
		return
	}
	statusChan := ws.monitor.MakeWaitChannelWithInterval(ws.trackCtx, hash, ws.checkInterval)
	go func() {
		status, ok := <-statusChan
		if !ok || status.Status == ReceiptStatusCancelled {
			return
		}
		raw, loaded := ws.outcomes.Load(requestID)
		if !loaded {
			return
		}
		outcome := raw.(*TxOutcome)

		ws.mu.Lock()
		outcome.Receipt = status.Receipt
		outcome.Confirmed = status.Receipt != nil
		if status.Status == ReceiptStatusReverted {
			outcome.Err = fmt.Errorf("transaction %s reverted on-chain", hash.Hex())
		}
		outcome.UpdatedAt = time.Now()
		snapshot := *outcome
		ws.mu.Unlock()

		ws.persistOutcome(&snapshot)

		logger.WithFields(logger.Fields{
			"request_id": requestID,
			"tx_hash":    hash.Hex(),
			"status":     status.Status,
		}).Info("Transaction tracking settled")
	}()
}

// persistOutcome writes the outcome to the configured store, if any.
// Persistence failures are logged and never affect the submission path.
func (ws *WalletSession) persistOutcome(outcome *TxOutcome) {
	if ws.outcomeStore == nil {
		return
	}
	if err := ws.outcomeStore.Save(ws.trackCtx, outcome); err != nil {
		logger.WithFields(logger.Fields{
			"request_id": outcome.RequestID,
			"error":      err,
		}).Warn("Failed to persist tx outcome. Ignore and continue")
	}
}
