package arenakit

import (
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// WalletSessionOption configures a WalletSession.
type WalletSessionOption func(*WalletSession)

// WithEmbeddedBackend sets the embedded wallet backend.
func WithEmbeddedBackend(b EmbeddedBackend) WalletSessionOption {
	return func(ws *WalletSession) {
		ws.embedded = b
	}
}

// WithStandardBackend sets the standard wallet backend.
func WithStandardBackend(b StandardBackend) WalletSessionOption {
	return func(ws *WalletSession) {
		ws.standard = b
	}
}

// WithChainReader sets the chain reader used for balance queries and,
// when no explicit monitor is configured, receipt polling.
func WithChainReader(r ChainReader) WalletSessionOption {
	return func(ws *WalletSession) {
		ws.reader = r
	}
}

// WithReceiptMonitor overrides the receipt monitor used for confirmation tracking.
func WithReceiptMonitor(m ReceiptMonitor) WalletSessionOption {
	return func(ws *WalletSession) {
		ws.monitor = m
	}
}

// WithPreferenceStore sets the store for the persisted wallet kind preference.
func WithPreferenceStore(s PreferenceStore) WalletSessionOption {
	return func(ws *WalletSession) {
		ws.prefs = s
	}
}

// WithOutcomeStore sets the store that persists transaction outcomes.
func WithOutcomeStore(s OutcomeStore) WalletSessionOption {
	return func(ws *WalletSession) {
		ws.outcomeStore = s
	}
}

// WithUserKey sets the key under which the wallet kind preference is persisted.
func WithUserKey(key string) WalletSessionOption {
	return func(ws *WalletSession) {
		ws.userKey = key
	}
}

// WithReceiptCheckInterval sets the polling interval for confirmation tracking.
func WithReceiptCheckInterval(interval time.Duration) WalletSessionOption {
	return func(ws *WalletSession) {
		if interval > 0 {
			ws.checkInterval = interval
		}
	}
}

// AggregatorOption configures a BattleAggregator.
type AggregatorOption func(*BattleAggregator)

// WithPriceSource sets the USD price source used for side valuations.
func WithPriceSource(p PriceSource) AggregatorOption {
	return func(a *BattleAggregator) {
		a.prices = p
	}
}

// WithChainID sets the chain identifier passed to the price source.
func WithChainID(chainID string) AggregatorOption {
	return func(a *BattleAggregator) {
		a.chainID = chainID
	}
}

// WithDemoParticipants populates deterministic placeholder participant counts
// on aggregated sides. Off by default; real participant data stays unknown.
func WithDemoParticipants() AggregatorOption {
	return func(a *BattleAggregator) {
		a.demoParticipants = true
	}
}

// WithBattleABI overrides the battle contract ABI.
func WithBattleABI(contractABI abi.ABI) AggregatorOption {
	return func(a *BattleAggregator) {
		a.battleABI = contractABI
	}
}

// WithRegistryABI overrides the battle registry ABI.
func WithRegistryABI(contractABI abi.ABI) AggregatorOption {
	return func(a *BattleAggregator) {
		a.registryABI = contractABI
	}
}

// WithClock overrides the time source used for time-left computation.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *BattleAggregator) {
		if now != nil {
			a.now = now
		}
	}
}
