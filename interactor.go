package arenakit

import (
	"context"
	"sync"

	"github.com/KyberNetwork/logger"
	"github.com/ethereum/go-ethereum/common"
)

// TransactionSender is the submission surface the interactor depends on.
// WalletSession satisfies it.
type TransactionSender interface {
	SendTransaction(ctx context.Context, req CallRequest) (common.Hash, error)
}

var _ TransactionSender = (*WalletSession)(nil)

// ContractInteractor wraps one contract call with loading state, error
// classification and user notification. Error classification happens here and
// nowhere else.
//
// The notification policy is fixed: a user rejection is recovered silently,
// every other failure emits exactly one error notification and also returns
// the error to the caller. Success emits one success notification.
type ContractInteractor struct {
	sender   TransactionSender
	notifier Notifier
	req      CallRequest

	mu      sync.RWMutex
	loading bool
	lastErr error
	class   ErrorClass
	hash    *common.Hash
}

// NewContractInteractor creates an interactor for one prepared call.
// A nil notifier disables notifications. A missing request id is assigned
// here, so the caller can always reach the tracked outcome through RequestID.
func NewContractInteractor(sender TransactionSender, notifier Notifier, req CallRequest) *ContractInteractor {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if req.RequestID == "" {
		req.RequestID = newRequestID()
	}
	return &ContractInteractor{
		sender:   sender,
		notifier: notifier,
		req:      req,
	}
}

// RequestID returns the id under which the sender tracks this call's outcome.
func (ci *ContractInteractor) RequestID() string {
	return ci.req.RequestID
}

// Loading reports whether an Execute call is in flight.
func (ci *ContractInteractor) Loading() bool {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return ci.loading
}

// LastError returns the most recent submission error and its class.
// Both are zero after a successful or rejected Execute.
func (ci *ContractInteractor) LastError() (error, ErrorClass) {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	return ci.lastErr, ci.class
}

// Hash returns the transaction hash of the last successful Execute.
func (ci *ContractInteractor) Hash() (common.Hash, bool) {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	if ci.hash == nil {
		return common.Hash{}, false
	}
	return *ci.hash, true
}

// Execute submits the prepared call, optionally overriding the call arguments.
// It returns true on successful submission. Loading is set for the whole call
// and cleared on every path, including panics in the underlying sender.
//
// A user rejection returns (false, nil): it is not an error condition for the
// caller and produces no notification.
func (ci *ContractInteractor) Execute(ctx context.Context, overrideArgs ...[]any) (bool, error) {
	ci.mu.Lock()
	if ci.loading {
		ci.mu.Unlock()
		logger.WithFields(logger.Fields{
			"request_id": ci.req.RequestID,
			"method":     ci.req.Method,
		}).Warn("Execute called while already in flight. Ignoring")
		return false, nil
	}
	ci.loading = true
	ci.lastErr = nil
	ci.class = ""
	ci.hash = nil
	ci.mu.Unlock()

	defer func() {
		ci.mu.Lock()
		ci.loading = false
		ci.mu.Unlock()
	}()

	req := ci.req
	if len(overrideArgs) > 0 {
		req.Args = overrideArgs[0]
	}

	hash, err := ci.sender.SendTransaction(ctx, req)
	if err != nil {
		return false, ci.handleFailure(err)
	}

	ci.mu.Lock()
	ci.hash = &hash
	ci.mu.Unlock()

	if req.Description != "" {
		ci.notifier.Success(req.Description + " submitted")
	} else {
		ci.notifier.Success("Transaction submitted")
	}
	logger.WithFields(logger.Fields{
		"request_id": req.RequestID,
		"method":     req.Method,
		"tx_hash":    hash.Hex(),
	}).Info("Contract call submitted")
	return true, nil
}

func (ci *ContractInteractor) handleFailure(err error) error {
	class := Classify(err)

	if class == ClassUserRejected {
		logger.WithFields(logger.Fields{
			"request_id": ci.req.RequestID,
			"method":     ci.req.Method,
		}).Debug("User rejected the transaction")
		return nil
	}

	ci.mu.Lock()
	ci.lastErr = err
	ci.class = class
	ci.mu.Unlock()

	ci.notifier.Error(UserMessage(class, err))
	logger.WithFields(logger.Fields{
		"request_id": ci.req.RequestID,
		"method":     ci.req.Method,
		"class":      class,
		"error":      err,
	}).Error("Contract call failed")
	return err
}
