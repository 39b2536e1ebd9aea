package arenakit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/KyberNetwork/logger"
	"github.com/ethereum/go-ethereum/common"
)

// ApprovalHelper tracks whether a spender may move a user's tokens and drives
// the approval transaction when it may not.
//
// It supports two approval shapes: ERC-20 style amount allowances and
// ERC-1155 style boolean operator approvals. The state machine is
//
//	unknown -> checking -> approved | not_approved
//	not_approved -> approving -> approved (on success) | not_approved (on failure)
//
// RequestApproval on an already approved helper is a no-op.
type ApprovalHelper struct {
	kind    ApprovalKind
	token   common.Address
	spender common.Address
	owner   common.Address

	reader   ChainReader
	sender   TransactionSender
	notifier Notifier

	mu            sync.RWMutex
	state         ApprovalState
	allowance     *big.Int
	lastRequested *big.Int
}

// NewApprovalHelper creates a helper for one (token, owner, spender) triple.
func NewApprovalHelper(kind ApprovalKind, token, owner, spender common.Address, reader ChainReader, sender TransactionSender, notifier Notifier) *ApprovalHelper {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ApprovalHelper{
		kind:     kind,
		token:    token,
		owner:    owner,
		spender:  spender,
		reader:   reader,
		sender:   sender,
		notifier: notifier,
		state:    ApprovalUnknown,
	}
}

// State returns the current state machine position.
func (ah *ApprovalHelper) State() ApprovalState {
	ah.mu.RLock()
	defer ah.mu.RUnlock()
	return ah.state
}

// Allowance returns the last fetched allowance. It is nil before the first
// successful Check and always nil for operator approvals.
func (ah *ApprovalHelper) Allowance() *big.Int {
	ah.mu.RLock()
	defer ah.mu.RUnlock()
	if ah.allowance == nil {
		return nil
	}
	return new(big.Int).Set(ah.allowance)
}

// SufficientFor reports whether the current allowance covers the amount.
// Operator approvals cover any amount once granted. Before a successful
// Check the answer is always false.
func (ah *ApprovalHelper) SufficientFor(amount *big.Int) bool {
	ah.mu.RLock()
	defer ah.mu.RUnlock()
	switch ah.kind {
	case ApprovalKindOperator:
		return ah.state == ApprovalApproved
	default:
		if ah.state != ApprovalApproved && ah.allowance == nil {
			return false
		}
		if ah.allowance == nil || amount == nil {
			return false
		}
		return ah.allowance.Cmp(amount) >= 0
	}
}

// Check queries the chain for the current approval status and moves the
// state machine to approved or not_approved. On query failure the state
// reverts to unknown and the error is returned.
func (ah *ApprovalHelper) Check(ctx context.Context) (ApprovalState, error) {
	ah.mu.Lock()
	ah.state = ApprovalChecking
	ah.mu.Unlock()

	var (
		approved  bool
		allowance *big.Int
		err       error
	)
	switch ah.kind {
	case ApprovalKindOperator:
		approved, err = ah.queryOperator(ctx)
	default:
		allowance, err = ah.queryAllowance(ctx)
		approved = allowance != nil && allowance.Sign() > 0
	}

	ah.mu.Lock()
	defer ah.mu.Unlock()
	if err != nil {
		ah.state = ApprovalUnknown
		return ah.state, fmt.Errorf("couldn't check approval for token %s: %w", ah.token.Hex(), err)
	}
	ah.allowance = allowance
	if approved {
		ah.state = ApprovalApproved
	} else {
		ah.state = ApprovalNotApproved
	}
	return ah.state, nil
}

// LastRequested returns the amount of the most recent approval request.
// It is nil before the first request and for operator approvals.
func (ah *ApprovalHelper) LastRequested() *big.Int {
	ah.mu.RLock()
	defer ah.mu.RUnlock()
	if ah.lastRequested == nil {
		return nil
	}
	return new(big.Int).Set(ah.lastRequested)
}

// RequestApproval submits the approval transaction when the helper is not
// approved yet and reports whether approval is in place afterwards. An
// already approved helper short-circuits and returns true without submitting
// anything. For allowance approvals the maximum uint256 amount is requested
// unless the caller passes an explicit amount.
//
// RequestApproval never fails loudly. Every failure path, including a user
// rejection and re-raised submission errors, leaves the state at not_approved
// and returns false.
func (ah *ApprovalHelper) RequestApproval(ctx context.Context, amount ...*big.Int) bool {
	ah.mu.Lock()
	switch ah.state {
	case ApprovalApproved:
		ah.mu.Unlock()
		return true
	case ApprovalApproving, ApprovalChecking:
		ah.mu.Unlock()
		logger.WithFields(logger.Fields{
			"token": ah.token.Hex(),
			"state": ah.state,
		}).Warn("RequestApproval called while a transition is in progress. Ignoring")
		return false
	}
	ah.state = ApprovalApproving
	requested := new(big.Int).Set(MaxUint256)
	if len(amount) > 0 && amount[0] != nil {
		requested = new(big.Int).Set(amount[0])
	}
	if ah.kind == ApprovalKindAllowance {
		ah.lastRequested = requested
	}
	ah.mu.Unlock()

	req := ah.approvalRequest(requested)
	interactor := NewContractInteractor(ah.sender, ah.notifier, req)
	ok, err := interactor.Execute(ctx)

	ah.mu.Lock()
	defer ah.mu.Unlock()
	if err != nil || !ok {
		ah.state = ApprovalNotApproved
		if err != nil {
			logger.WithFields(logger.Fields{
				"token":   ah.token.Hex(),
				"spender": ah.spender.Hex(),
				"error":   err,
			}).Warn("Approval request failed")
		}
		return false
	}

	ah.state = ApprovalApproved
	if ah.kind == ApprovalKindAllowance {
		ah.allowance = new(big.Int).Set(requested)
	}
	logger.WithFields(logger.Fields{
		"token":   ah.token.Hex(),
		"spender": ah.spender.Hex(),
		"kind":    ah.kind,
	}).Info("Approval granted")
	return true
}

func (ah *ApprovalHelper) approvalRequest(amount *big.Int) CallRequest {
	switch ah.kind {
	case ApprovalKindOperator:
		return CallRequest{
			Target:      ah.token,
			ABI:         erc1155ABI(),
			Method:      "setApprovalForAll",
			Args:        []any{ah.spender, true},
			Description: "Approve collection",
		}
	default:
		return CallRequest{
			Target:      ah.token,
			ABI:         erc20ABI(),
			Method:      "approve",
			Args:        []any{ah.spender, amount},
			Description: "Approve token",
		}
	}
}

func (ah *ApprovalHelper) queryAllowance(ctx context.Context) (*big.Int, error) {
	data, err := erc20ABI().Pack("allowance", ah.owner, ah.spender)
	if err != nil {
		return nil, errors.Join(ErrEncodeCallFailed, err)
	}
	out, err := ah.reader.CallContract(ctx, ah.token, data)
	if err != nil {
		return nil, err
	}
	results, err := erc20ABI().Unpack("allowance", out)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("unexpected allowance result arity %d", len(results))
	}
	allowance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected allowance result type %T", results[0])
	}
	return allowance, nil
}

func (ah *ApprovalHelper) queryOperator(ctx context.Context) (bool, error) {
	data, err := erc1155ABI().Pack("isApprovedForAll", ah.owner, ah.spender)
	if err != nil {
		return false, errors.Join(ErrEncodeCallFailed, err)
	}
	out, err := ah.reader.CallContract(ctx, ah.token, data)
	if err != nil {
		return false, err
	}
	results, err := erc1155ABI().Unpack("isApprovedForAll", out)
	if err != nil {
		return false, err
	}
	if len(results) != 1 {
		return false, fmt.Errorf("unexpected isApprovedForAll result arity %d", len(results))
	}
	approved, ok := results[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isApprovedForAll result type %T", results[0])
	}
	return approved, nil
}
