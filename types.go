package arenakit

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Constants for confirmation tracking and aggregation
const (
	DefaultReceiptCheckInterval = 5 * time.Second
	DefaultResolveTimeout       = 10 * time.Second

	// Difficulty thresholds on the combined stake of both sides.
	// Boundary values belong to the lower tier (strict comparisons).
	DifficultyMediumThreshold  = 100.0
	DifficultyHighThreshold    = 500.0
	DifficultyExtremeThreshold = 1000.0
)

// WalletKind identifies which wallet backend a session runs on.
type WalletKind string

const (
	// WalletKindEmbedded is an in-app custodial / smart-contract wallet
	WalletKindEmbedded WalletKind = "embedded"
	// WalletKindStandard is a conventional signing wallet
	WalletKindStandard WalletKind = "standard"
)

// CallRequest describes one contract call to submit. It is constructed at the
// moment of user action, consumed once by the wallet session and not persisted.
type CallRequest struct {
	// RequestID keys confirmation tracking. Generated when empty.
	RequestID string

	Target common.Address
	ABI    abi.ABI
	Method string
	Args   []any
	Value  *big.Int

	// Description is a human-readable label shown by the embedded backend's
	// confirmation UI and used in submitted notifications.
	Description string
}

// TxOutcome is the result of submitting a CallRequest.
//
// Invariants: Receipt is only ever set after Hash is set; Confirmed implies
// Receipt is set.
type TxOutcome struct {
	RequestID string
	Hash      *common.Hash
	Receipt   *types.Receipt
	Confirmed bool
	Err       error
	UpdatedAt time.Time
}

// Token is one entry from a token metadata source.
type Token struct {
	Address  common.Address
	Symbol   string
	Name     string
	Decimals uint8
	Balance  *big.Int
}

// Difficulty is a derived display tier summarizing total value at stake in a battle.
type Difficulty string

const (
	DifficultyLow     Difficulty = "low"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHigh    Difficulty = "high"
	DifficultyExtreme Difficulty = "extreme"
)

// WinningSide indicates which side of a resolved battle won.
type WinningSide uint8

const (
	WinnerUnknown WinningSide = 0
	WinnerSideA   WinningSide = 1
	WinnerSideB   WinningSide = 2
)

// Side is one of the two competing positions in a battle.
type Side struct {
	Token       common.Address
	Symbol      string
	TotalStaked *big.Int
	// StakedUnits is TotalStaked expressed in whole token units
	StakedUnits float64
	// ValueUSD is 0 when no price is available
	ValueUSD float64

	// Participants are only populated when the chain exposes them.
	// ParticipantsKnown distinguishes "none" from "unknown".
	Participants      []common.Address
	ParticipantCount  int
	ParticipantsKnown bool
}

// BattleRecord is a view-model aggregating one battle contract's state.
// Records are rebuilt from scratch on every aggregation pass.
type BattleRecord struct {
	Address   common.Address
	SideA     Side
	SideB     Side
	StartTime time.Time
	Duration  time.Duration
	Resolved  bool
	Winner    WinningSide

	// Remaining is the raw time left; zero when ended or resolved
	Remaining time.Duration
	// TimeLeft is Remaining formatted as "XhYm", or "Ended"
	TimeLeft string
	// CombinedStake is the sum of both sides' StakedUnits
	CombinedStake float64
	Difficulty    Difficulty
}

// ApprovalKind distinguishes allowance-amount approvals from boolean
// approve-for-all approvals.
type ApprovalKind string

const (
	// ApprovalKindAllowance follows the ERC-20 approve/allowance pattern
	ApprovalKindAllowance ApprovalKind = "allowance"
	// ApprovalKindOperator follows the ERC-1155 setApprovalForAll pattern
	ApprovalKindOperator ApprovalKind = "operator"
)

// ApprovalState is the state machine position of an ApprovalHelper.
type ApprovalState string

const (
	ApprovalUnknown     ApprovalState = "unknown"
	ApprovalChecking    ApprovalState = "checking"
	ApprovalApproved    ApprovalState = "approved"
	ApprovalNotApproved ApprovalState = "not_approved"
	ApprovalApproving   ApprovalState = "approving"
)

// MaxUint256 is the unbounded approval amount.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
