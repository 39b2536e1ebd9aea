package arenakit

import (
	"fmt"
	"strings"
)

var (
	ErrNoWalletConnected    = fmt.Errorf("no wallet connected")
	ErrClientNotInitialized = fmt.Errorf("wallet client not initialized")
	ErrKindNotResolved      = fmt.Errorf("wallet kind not resolved")
	ErrRegistryFetchFailed  = fmt.Errorf("battle registry fetch failed")
	ErrEncodeCallFailed     = fmt.Errorf("encode contract call failed")
	ErrSessionClosed        = fmt.Errorf("wallet session closed")
)

// ErrorClass is the classification of a transaction submission failure.
// Classification happens in exactly one place, the ContractInteractor; higher
// layers must not re-classify.
type ErrorClass string

const (
	// ClassUserRejected means the signer declined the transaction.
	// It is recovered silently: no notification is emitted.
	ClassUserRejected ErrorClass = "user_rejected"
	// ClassInsufficientFunds means the account cannot cover the transaction
	ClassInsufficientFunds ErrorClass = "insufficient_funds"
	// ClassGasEstimationFailed means the call would revert or gas cannot be estimated
	ClassGasEstimationFailed ErrorClass = "gas_estimation_failed"
	// ClassTransactionReplaced means another tx with the same nonce superseded this one
	ClassTransactionReplaced ErrorClass = "transaction_replaced"
	// ClassNonceExpired means the nonce was already consumed
	ClassNonceExpired ErrorClass = "nonce_expired"
	// ClassReplacementUnderpriced means a replacement tx did not raise the price enough
	ClassReplacementUnderpriced ErrorClass = "replacement_underpriced"
	// ClassContractCallFailed is a generic on-chain execution failure
	ClassContractCallFailed ErrorClass = "contract_call_failed"
	// ClassUnknown is anything not matching a recognized pattern
	ClassUnknown ErrorClass = "unknown"
)

// classPatterns maps lowercase substrings of provider error messages to classes.
// Order matters: more specific patterns are listed before generic ones.
var classPatterns = []struct {
	substr string
	class  ErrorClass
}{
	{"user rejected", ClassUserRejected},
	{"user denied", ClassUserRejected},
	{"rejected the request", ClassUserRejected},
	{"request rejected", ClassUserRejected},
	{"insufficient funds", ClassInsufficientFunds},
	{"insufficient balance", ClassInsufficientFunds},
	{"replacement transaction underpriced", ClassReplacementUnderpriced},
	{"transaction replaced", ClassTransactionReplaced},
	{"replaced by a transaction", ClassTransactionReplaced},
	{"nonce too low", ClassNonceExpired},
	{"nonce expired", ClassNonceExpired},
	{"cannot estimate gas", ClassGasEstimationFailed},
	{"gas required exceeds allowance", ClassGasEstimationFailed},
	{"gas estimation failed", ClassGasEstimationFailed},
	{"always failing transaction", ClassGasEstimationFailed},
	{"execution reverted", ClassContractCallFailed},
	{"revert", ClassContractCallFailed},
}

// Classify maps a submission error to its ErrorClass by matching known
// provider message patterns. nil classifies as ClassUnknown.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}
	msg := strings.ToLower(err.Error())
	for _, p := range classPatterns {
		if strings.Contains(msg, p.substr) {
			return p.class
		}
	}
	return ClassUnknown
}

// userMessages holds the fixed human-readable message per class.
// ClassUnknown passes the original message through verbatim.
var userMessages = map[ErrorClass]string{
	ClassInsufficientFunds:      "Insufficient funds to complete the transaction",
	ClassGasEstimationFailed:    "Transaction would fail: gas estimation did not succeed",
	ClassTransactionReplaced:    "Transaction was replaced by another transaction",
	ClassNonceExpired:           "Transaction nonce was already used",
	ClassReplacementUnderpriced: "Replacement transaction was underpriced",
	ClassContractCallFailed:     "Contract call failed on-chain",
}

// UserMessage returns the best-effort human-readable message for a classified error.
func UserMessage(class ErrorClass, err error) string {
	if msg, ok := userMessages[class]; ok {
		return msg
	}
	if err != nil {
		return err.Error()
	}
	return "Unknown error"
}
