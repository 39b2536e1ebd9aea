package arenakit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRegistry = common.HexToAddress("0x00000000000000000000000000000000000000f0")

type fakeBattle struct {
	tokenA, tokenB   common.Address
	stakedA, stakedB *big.Int
	startTime        int64
	duration         int64
	resolved         bool
	winner           uint8
	failReads        bool
}

type fakeToken struct {
	symbol    string
	symbolErr bool
	name      string
	nameErr   bool
	decimals  uint8
}

// newBattleChain wires a mock reader that answers registry, battle and token
// calls from in-memory fixtures.
func newBattleChain(order []common.Address, battles map[common.Address]*fakeBattle, tokens map[common.Address]*fakeToken) *mockChainReader {
	return &mockChainReader{
		CallContractFn: func(to common.Address, data []byte) ([]byte, error) {
			if to == testRegistry {
				if routeCall(data, RegistryABI(), "getBattles") {
					return packReturn("address[]", order), nil
				}
				return nil, fmt.Errorf("unexpected registry call")
			}
			if b, ok := battles[to]; ok {
				if b.failReads {
					return nil, fmt.Errorf("execution reverted")
				}
				switch {
				case routeCall(data, BattleABI(), "tokenA"):
					return packReturn("address", b.tokenA), nil
				case routeCall(data, BattleABI(), "tokenB"):
					return packReturn("address", b.tokenB), nil
				case routeCall(data, BattleABI(), "totalStakedA"):
					return packReturn("uint256", b.stakedA), nil
				case routeCall(data, BattleABI(), "totalStakedB"):
					return packReturn("uint256", b.stakedB), nil
				case routeCall(data, BattleABI(), "startTime"):
					return packReturn("uint256", big.NewInt(b.startTime)), nil
				case routeCall(data, BattleABI(), "duration"):
					return packReturn("uint256", big.NewInt(b.duration)), nil
				case routeCall(data, BattleABI(), "resolved"):
					return packReturn("bool", b.resolved), nil
				case routeCall(data, BattleABI(), "winner"):
					return packReturn("uint8", b.winner), nil
				}
				return nil, fmt.Errorf("unexpected battle call")
			}
			if tk, ok := tokens[to]; ok {
				switch {
				case routeCall(data, erc20ABI(), "symbol"):
					if tk.symbolErr {
						return nil, fmt.Errorf("execution reverted")
					}
					return packReturn("string", tk.symbol), nil
				case routeCall(data, erc20ABI(), "name"):
					if tk.nameErr {
						return nil, fmt.Errorf("execution reverted")
					}
					return packReturn("string", tk.name), nil
				case routeCall(data, erc20ABI(), "decimals"):
					return packReturn("uint8", tk.decimals), nil
				}
				return nil, fmt.Errorf("unexpected token call")
			}
			return nil, fmt.Errorf("unknown contract %s", to.Hex())
		},
	}
}

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestAggregateHappyPath(t *testing.T) {
	battle := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	tokenA := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB := common.HexToAddress("0x00000000000000000000000000000000000000a2")
	now := time.Unix(1_700_000_000, 0)

	reader := newBattleChain(
		[]common.Address{battle},
		map[common.Address]*fakeBattle{
			battle: {
				tokenA:    tokenA,
				tokenB:    tokenB,
				stakedA:   units(60),
				stakedB:   units(90),
				startTime: now.Unix() - 3600,
				duration:  2 * 3600,
			},
		},
		map[common.Address]*fakeToken{
			tokenA: {symbol: "DOGE", decimals: 18},
			tokenB: {symbol: "PEPE", decimals: 18},
		},
	)

	agg := NewBattleAggregator(reader, testRegistry, nil, WithClock(func() time.Time { return now }))
	records, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, battle, r.Address)
	assert.Equal(t, "DOGE", r.SideA.Symbol)
	assert.Equal(t, "PEPE", r.SideB.Symbol)
	assert.Equal(t, 60.0, r.SideA.StakedUnits)
	assert.Equal(t, 90.0, r.SideB.StakedUnits)
	assert.Equal(t, 150.0, r.CombinedStake)
	assert.Equal(t, DifficultyMedium, r.Difficulty)
	assert.Equal(t, "1h 0m", r.TimeLeft)
	assert.False(t, r.Resolved)
	assert.Equal(t, WinnerUnknown, r.Winner)
	assert.False(t, r.SideA.ParticipantsKnown)
}

func TestAggregateRegistryFailure(t *testing.T) {
	reader := &mockChainReader{
		CallContractFn: func(to common.Address, data []byte) ([]byte, error) {
			return nil, fmt.Errorf("rpc down")
		},
	}
	notifier := &mockNotifier{}
	agg := NewBattleAggregator(reader, testRegistry, notifier)

	records, err := agg.Aggregate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRegistryFetchFailed))
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Equal(t, 1, notifier.errorCount())
}

func TestAggregateSkipsFailingBattlePreservingOrder(t *testing.T) {
	b1 := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	b2 := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	b3 := common.HexToAddress("0x00000000000000000000000000000000000000b3")
	tokenA := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB := common.HexToAddress("0x00000000000000000000000000000000000000a2")

	healthy := func() *fakeBattle {
		return &fakeBattle{
			tokenA:    tokenA,
			tokenB:    tokenB,
			stakedA:   units(1),
			stakedB:   units(1),
			startTime: 1_700_000_000,
			duration:  3600,
			resolved:  true,
			winner:    1,
		}
	}

	reader := newBattleChain(
		[]common.Address{b1, b2, b3},
		map[common.Address]*fakeBattle{
			b1: healthy(),
			b2: {failReads: true},
			b3: healthy(),
		},
		map[common.Address]*fakeToken{
			tokenA: {symbol: "AAA", decimals: 18},
			tokenB: {symbol: "BBB", decimals: 18},
		},
	)

	agg := NewBattleAggregator(reader, testRegistry, nil)
	records, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, b1, records[0].Address)
	assert.Equal(t, b3, records[1].Address)
}

func TestSymbolFallbackChain(t *testing.T) {
	battle := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	nameOnly := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	broken := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")

	reader := newBattleChain(
		[]common.Address{battle},
		map[common.Address]*fakeBattle{
			battle: {
				tokenA:    nameOnly,
				tokenB:    broken,
				stakedA:   units(1),
				stakedB:   units(1),
				startTime: 1_700_000_000,
				duration:  3600,
				resolved:  true,
			},
		},
		map[common.Address]*fakeToken{
			nameOnly: {symbolErr: true, name: "Wrapped Ether", decimals: 18},
			broken:   {symbolErr: true, nameErr: true, decimals: 18},
		},
	)

	agg := NewBattleAggregator(reader, testRegistry, nil)
	records, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "WRAP", records[0].SideA.Symbol)
	assert.Equal(t, "0x12...5678", records[0].SideB.Symbol)
}

func TestSymbolResolutionRecoversAfterTransientFailure(t *testing.T) {
	battle := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	tokenA := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
	tokenB := common.HexToAddress("0x00000000000000000000000000000000000000a2")

	flaky := &fakeToken{symbolErr: true, nameErr: true, decimals: 18}
	reader := newBattleChain(
		[]common.Address{battle},
		map[common.Address]*fakeBattle{
			battle: {
				tokenA: tokenA, tokenB: tokenB,
				stakedA: units(1), stakedB: units(1),
				startTime: 1_700_000_000, duration: 3600,
				resolved: true,
			},
		},
		map[common.Address]*fakeToken{
			tokenA: flaky,
			tokenB: {symbol: "BBB", decimals: 18},
		},
	)

	agg := NewBattleAggregator(reader, testRegistry, nil)

	records, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0x12...5678", records[0].SideA.Symbol)

	// The token reads recover; the next pass must show the real symbol,
	// not a remembered fallback
	flaky.symbolErr = false
	flaky.symbol = "GOOD"

	records, err = agg.Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "GOOD", records[0].SideA.Symbol)
}

func TestAggregateTimeLeft(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	battle := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	tokenA := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB := common.HexToAddress("0x00000000000000000000000000000000000000a2")
	tokens := map[common.Address]*fakeToken{
		tokenA: {symbol: "AAA", decimals: 18},
		tokenB: {symbol: "BBB", decimals: 18},
	}

	tests := []struct {
		name     string
		battle   *fakeBattle
		wantLeft string
	}{
		{
			"ninety seconds remaining floors to one minute",
			&fakeBattle{
				tokenA: tokenA, tokenB: tokenB,
				stakedA: units(1), stakedB: units(1),
				startTime: now.Unix() - 10,
				duration:  100,
			},
			"0h 1m",
		},
		{
			"past end is ended",
			&fakeBattle{
				tokenA: tokenA, tokenB: tokenB,
				stakedA: units(1), stakedB: units(1),
				startTime: now.Unix() - 7200,
				duration:  3600,
			},
			"Ended",
		},
		{
			"resolved is ended regardless of clock",
			&fakeBattle{
				tokenA: tokenA, tokenB: tokenB,
				stakedA: units(1), stakedB: units(1),
				startTime: now.Unix(),
				duration:  7200,
				resolved:  true,
				winner:    2,
			},
			"Ended",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := newBattleChain([]common.Address{battle},
				map[common.Address]*fakeBattle{battle: tt.battle}, tokens)
			agg := NewBattleAggregator(reader, testRegistry, nil, WithClock(func() time.Time { return now }))

			records, err := agg.Aggregate(context.Background())
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, tt.wantLeft, records[0].TimeLeft)
		})
	}
}

func TestAggregateResolvedWinner(t *testing.T) {
	battle := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	tokenA := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB := common.HexToAddress("0x00000000000000000000000000000000000000a2")

	reader := newBattleChain(
		[]common.Address{battle},
		map[common.Address]*fakeBattle{
			battle: {
				tokenA: tokenA, tokenB: tokenB,
				stakedA: units(1), stakedB: units(1),
				startTime: 1_700_000_000, duration: 3600,
				resolved: true,
				winner:   2,
			},
		},
		map[common.Address]*fakeToken{
			tokenA: {symbol: "AAA", decimals: 18},
			tokenB: {symbol: "BBB", decimals: 18},
		},
	)

	agg := NewBattleAggregator(reader, testRegistry, nil)
	records, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Resolved)
	assert.Equal(t, WinnerSideB, records[0].Winner)
}

func TestComputeDifficulty(t *testing.T) {
	tests := []struct {
		stake float64
		want  Difficulty
	}{
		{0, DifficultyLow},
		{50, DifficultyLow},
		{100, DifficultyLow},
		{100.01, DifficultyMedium},
		{150, DifficultyMedium},
		{500, DifficultyMedium},
		{600, DifficultyHigh},
		{1000, DifficultyHigh},
		{1000.01, DifficultyExtreme},
		{1500, DifficultyExtreme},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputeDifficulty(tt.stake), "stake %v", tt.stake)
	}
}

func TestAggregateUSDValuation(t *testing.T) {
	battle := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	tokenA := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB := common.HexToAddress("0x00000000000000000000000000000000000000a2")

	reader := newBattleChain(
		[]common.Address{battle},
		map[common.Address]*fakeBattle{
			battle: {
				tokenA: tokenA, tokenB: tokenB,
				stakedA: units(10), stakedB: units(5),
				startTime: 1_700_000_000, duration: 3600,
				resolved: true,
			},
		},
		map[common.Address]*fakeToken{
			tokenA: {symbol: "AAA", decimals: 18},
			tokenB: {symbol: "BBB", decimals: 18},
		},
	)

	// Only token A has a price; a missing price yields 0, not an error
	prices := &mockPriceSource{Prices: map[common.Address]float64{tokenA: 2.5}}
	agg := NewBattleAggregator(reader, testRegistry, nil,
		WithPriceSource(prices), WithChainID("ethereum"))

	records, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 25.0, records[0].SideA.ValueUSD)
	assert.Equal(t, 0.0, records[0].SideB.ValueUSD)
}

func TestAggregateDemoParticipants(t *testing.T) {
	battle := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	tokenA := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB := common.HexToAddress("0x00000000000000000000000000000000000000a2")

	build := func(opts ...AggregatorOption) BattleRecord {
		reader := newBattleChain(
			[]common.Address{battle},
			map[common.Address]*fakeBattle{
				battle: {
					tokenA: tokenA, tokenB: tokenB,
					stakedA: units(1), stakedB: units(1),
					startTime: 1_700_000_000, duration: 3600,
					resolved: true,
				},
			},
			map[common.Address]*fakeToken{
				tokenA: {symbol: "AAA", decimals: 18},
				tokenB: {symbol: "BBB", decimals: 18},
			},
		)
		agg := NewBattleAggregator(reader, testRegistry, nil, opts...)
		records, err := agg.Aggregate(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 1)
		return records[0]
	}

	plain := build()
	assert.False(t, plain.SideA.ParticipantsKnown)
	assert.Zero(t, plain.SideA.ParticipantCount)

	demo := build(WithDemoParticipants())
	assert.True(t, demo.SideA.ParticipantsKnown)
	assert.Positive(t, demo.SideA.ParticipantCount)
	// Deterministic: same input, same count
	assert.Equal(t, demo.SideA.ParticipantCount, build(WithDemoParticipants()).SideA.ParticipantCount)
}
