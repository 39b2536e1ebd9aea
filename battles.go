package arenakit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/KyberNetwork/logger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// BattleAggregator builds BattleRecord view models from on-chain battle
// contracts. Every Aggregate pass re-fetches and re-derives everything; no
// state is carried across passes.
type BattleAggregator struct {
	reader   ChainReader
	registry common.Address
	notifier Notifier

	prices  PriceSource
	chainID string

	battleABI   abi.ABI
	registryABI abi.ABI

	demoParticipants bool

	now func() time.Time
}

// NewBattleAggregator creates an aggregator reading battles registered at the
// given registry contract. A nil notifier disables the aggregate failure
// notification.
func NewBattleAggregator(reader ChainReader, registry common.Address, notifier Notifier, opts ...AggregatorOption) *BattleAggregator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	a := &BattleAggregator{
		reader:      reader,
		registry:    registry,
		notifier:    notifier,
		battleABI:   BattleABI(),
		registryABI: RegistryABI(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// tokenMeta memoizes token metadata reads within a single Aggregate pass, so
// a token shared by several battles is read once. Failed resolutions are never
// memoized and nothing survives the pass.
type tokenMeta struct {
	symbols  map[common.Address]string
	decimals map[common.Address]uint8
}

func newTokenMeta() *tokenMeta {
	return &tokenMeta{
		symbols:  make(map[common.Address]string),
		decimals: make(map[common.Address]uint8),
	}
}

// Aggregate fetches the registered battle addresses and builds one record per
// readable battle. A battle whose reads fail is skipped; the remaining records
// keep the registry order. Only a registry fetch failure is an error, and it
// additionally emits one error notification.
func (a *BattleAggregator) Aggregate(ctx context.Context) ([]BattleRecord, error) {
	addrs, err := a.fetchBattleAddresses(ctx)
	if err != nil {
		a.notifier.Error("Couldn't load battles")
		logger.WithFields(logger.Fields{
			"registry": a.registry.Hex(),
			"error":    err,
		}).Error("Battle registry fetch failed")
		return []BattleRecord{}, errors.Join(ErrRegistryFetchFailed, err)
	}

	records := make([]BattleRecord, 0, len(addrs))
	meta := newTokenMeta()
	for _, addr := range addrs {
		record, err := a.buildRecord(ctx, addr, meta)
		if err != nil {
			logger.WithFields(logger.Fields{
				"battle": addr.Hex(),
				"error":  err,
			}).Warn("Skipping unreadable battle")
			continue
		}
		records = append(records, record)
	}

	logger.WithFields(logger.Fields{
		"registered": len(addrs),
		"aggregated": len(records),
	}).Debug("Aggregated battles")
	return records, nil
}

func (a *BattleAggregator) fetchBattleAddresses(ctx context.Context) ([]common.Address, error) {
	data, err := a.registryABI.Pack("getBattles")
	if err != nil {
		return nil, errors.Join(ErrEncodeCallFailed, err)
	}
	out, err := a.reader.CallContract(ctx, a.registry, data)
	if err != nil {
		return nil, err
	}
	results, err := a.registryABI.Unpack("getBattles", out)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("unexpected getBattles result arity %d", len(results))
	}
	addrs, ok := results[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected getBattles result type %T", results[0])
	}
	return addrs, nil
}

// buildRecord reads one battle contract's state and derives the display
// fields. Any core read failure fails the whole record; symbol resolution
// failures fall back instead.
func (a *BattleAggregator) buildRecord(ctx context.Context, battle common.Address, meta *tokenMeta) (BattleRecord, error) {
	tokenA, err := a.callAddress(ctx, battle, "tokenA")
	if err != nil {
		return BattleRecord{}, fmt.Errorf("reading tokenA: %w", err)
	}
	tokenB, err := a.callAddress(ctx, battle, "tokenB")
	if err != nil {
		return BattleRecord{}, fmt.Errorf("reading tokenB: %w", err)
	}
	stakedA, err := a.callUint(ctx, battle, "totalStakedA")
	if err != nil {
		return BattleRecord{}, fmt.Errorf("reading totalStakedA: %w", err)
	}
	stakedB, err := a.callUint(ctx, battle, "totalStakedB")
	if err != nil {
		return BattleRecord{}, fmt.Errorf("reading totalStakedB: %w", err)
	}
	startTime, err := a.callUint(ctx, battle, "startTime")
	if err != nil {
		return BattleRecord{}, fmt.Errorf("reading startTime: %w", err)
	}
	duration, err := a.callUint(ctx, battle, "duration")
	if err != nil {
		return BattleRecord{}, fmt.Errorf("reading duration: %w", err)
	}
	resolved, err := a.callBool(ctx, battle, "resolved")
	if err != nil {
		return BattleRecord{}, fmt.Errorf("reading resolved: %w", err)
	}

	winner := WinnerUnknown
	if resolved {
		raw, err := a.callUint8(ctx, battle, "winner")
		if err != nil {
			logger.WithFields(logger.Fields{
				"battle": battle.Hex(),
				"error":  err,
			}).Debug("Couldn't read winner of resolved battle")
		} else {
			winner = WinningSide(raw)
		}
	}

	sideA := a.buildSide(ctx, tokenA, stakedA, meta)
	sideB := a.buildSide(ctx, tokenB, stakedB, meta)

	record := BattleRecord{
		Address:   battle,
		SideA:     sideA,
		SideB:     sideB,
		StartTime: time.Unix(startTime.Int64(), 0),
		Duration:  time.Duration(duration.Int64()) * time.Second,
		Resolved:  resolved,
		Winner:    winner,
	}
	record.CombinedStake = sideA.StakedUnits + sideB.StakedUnits
	record.Difficulty = ComputeDifficulty(record.CombinedStake)

	if resolved {
		record.Remaining = 0
		record.TimeLeft = "Ended"
	} else {
		end := record.StartTime.Add(record.Duration)
		remaining := end.Sub(a.now())
		if remaining < 0 {
			remaining = 0
		}
		record.Remaining = remaining
		record.TimeLeft = FormatTimeLeft(remaining)
	}
	return record, nil
}

// buildSide resolves the display fields of one side. Symbol and decimals
// resolution never fail the side; prices default to unavailable.
func (a *BattleAggregator) buildSide(ctx context.Context, token common.Address, staked *big.Int, meta *tokenMeta) Side {
	side := Side{
		Token:       token,
		Symbol:      a.resolveSymbol(ctx, token, meta),
		TotalStaked: staked,
		StakedUnits: FormatUnits(staked, a.resolveDecimals(ctx, token, meta)),
	}
	if a.prices != nil {
		if price, found := a.prices.PriceUSD(ctx, a.chainID, token); found {
			side.ValueUSD = side.StakedUnits * price
		}
	}
	if a.demoParticipants {
		side.ParticipantCount = demoParticipantCount(token)
		side.ParticipantsKnown = true
	}
	return side
}

// demoParticipantCount derives a stable placeholder count from the token
// address. Only used in demo mode; the chain does not expose participants.
func demoParticipantCount(token common.Address) int {
	return int(token[len(token)-1])%50 + 1
}

// resolveSymbol resolves a token's display symbol through a fallback chain:
// symbol(), then name() truncated to 4 characters uppercased, then the
// shortened address.
func (a *BattleAggregator) resolveSymbol(ctx context.Context, token common.Address, meta *tokenMeta) string {
	if cached, found := meta.symbols[token]; found {
		return cached
	}

	symbol, err := a.callString(ctx, token, "symbol")
	if err != nil || symbol == "" {
		symbol = ""
		name, nameErr := a.callString(ctx, token, "name")
		if nameErr == nil && name != "" {
			runes := []rune(name)
			if len(runes) > 4 {
				runes = runes[:4]
			}
			symbol = strings.ToUpper(string(runes))
		}
	}
	if symbol == "" {
		// The shortened-address fallback is not memoized: a transient read
		// failure must not stick for later battles sharing the token.
		return FormatAddress(token.Hex(), 4, 4)
	}

	meta.symbols[token] = symbol
	return symbol
}

// resolveDecimals reads decimals(), defaulting to 18 on failure.
func (a *BattleAggregator) resolveDecimals(ctx context.Context, token common.Address, meta *tokenMeta) uint8 {
	if cached, found := meta.decimals[token]; found {
		return cached
	}
	data, err := erc20ABI().Pack("decimals")
	if err == nil {
		if out, callErr := a.reader.CallContract(ctx, token, data); callErr == nil {
			if results, unpackErr := erc20ABI().Unpack("decimals", out); unpackErr == nil && len(results) == 1 {
				if d, ok := results[0].(uint8); ok {
					meta.decimals[token] = d
					return d
				}
			}
		}
	}
	return 18
}

// ComputeDifficulty derives the display tier from the combined staked units
// of both sides. Boundary values belong to the lower tier.
func ComputeDifficulty(combinedStake float64) Difficulty {
	switch {
	case combinedStake > DifficultyExtremeThreshold:
		return DifficultyExtreme
	case combinedStake > DifficultyHighThreshold:
		return DifficultyHigh
	case combinedStake > DifficultyMediumThreshold:
		return DifficultyMedium
	default:
		return DifficultyLow
	}
}

func (a *BattleAggregator) callAddress(ctx context.Context, target common.Address, method string) (common.Address, error) {
	results, err := a.call(ctx, target, a.battleABI, method)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := results[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected %s result type %T", method, results[0])
	}
	return addr, nil
}

func (a *BattleAggregator) callUint(ctx context.Context, target common.Address, method string) (*big.Int, error) {
	results, err := a.call(ctx, target, a.battleABI, method)
	if err != nil {
		return nil, err
	}
	value, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", method, results[0])
	}
	return value, nil
}

func (a *BattleAggregator) callUint8(ctx context.Context, target common.Address, method string) (uint8, error) {
	results, err := a.call(ctx, target, a.battleABI, method)
	if err != nil {
		return 0, err
	}
	value, ok := results[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected %s result type %T", method, results[0])
	}
	return value, nil
}

func (a *BattleAggregator) callBool(ctx context.Context, target common.Address, method string) (bool, error) {
	results, err := a.call(ctx, target, a.battleABI, method)
	if err != nil {
		return false, err
	}
	value, ok := results[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected %s result type %T", method, results[0])
	}
	return value, nil
}

func (a *BattleAggregator) callString(ctx context.Context, target common.Address, method string) (string, error) {
	results, err := a.call(ctx, target, erc20ABI(), method)
	if err != nil {
		return "", err
	}
	value, ok := results[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected %s result type %T", method, results[0])
	}
	return value, nil
}

func (a *BattleAggregator) call(ctx context.Context, target common.Address, contractABI abi.ABI, method string) ([]interface{}, error) {
	data, err := contractABI.Pack(method)
	if err != nil {
		return nil, errors.Join(ErrEncodeCallFailed, err)
	}
	out, err := a.reader.CallContract(ctx, target, data)
	if err != nil {
		return nil, err
	}
	results, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("unexpected %s result arity %d", method, len(results))
	}
	return results, nil
}
