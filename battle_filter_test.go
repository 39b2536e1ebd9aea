package arenakit

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []BattleRecord {
	return []BattleRecord{
		{
			Address:       common.HexToAddress("0x00000000000000000000000000000000000000b1"),
			SideA:         Side{Symbol: "DOGE", ParticipantCount: 3, ParticipantsKnown: true},
			SideB:         Side{Symbol: "PEPE", ParticipantCount: 2, ParticipantsKnown: true},
			Remaining:     30 * time.Minute,
			CombinedStake: 150,
		},
		{
			Address:       common.HexToAddress("0x00000000000000000000000000000000000000b2"),
			SideA:         Side{Symbol: "WETH"},
			SideB:         Side{Symbol: "USDC"},
			Remaining:     10 * time.Minute,
			CombinedStake: 900,
		},
		{
			Address:       common.HexToAddress("0x00000000000000000000000000000000000000b3"),
			SideA:         Side{Symbol: "DOGE", ParticipantCount: 10, ParticipantsKnown: true},
			SideB:         Side{Symbol: "SHIB", ParticipantCount: 1, ParticipantsKnown: true},
			Resolved:      true,
			CombinedStake: 50,
		},
	}
}

func TestFilterBySymbol(t *testing.T) {
	records := sampleRecords()
	out := FilterBySymbol(records, "doge")
	require.Len(t, out, 2)
	assert.Equal(t, records[0].Address, out[0].Address)
	assert.Equal(t, records[2].Address, out[1].Address)

	assert.Empty(t, FilterBySymbol(records, "LINK"))
}

func TestFilterByQuery(t *testing.T) {
	records := sampleRecords()

	out := FilterByQuery(records, "usdc")
	require.Len(t, out, 1)
	assert.Equal(t, records[1].Address, out[0].Address)

	// Address fragments match too
	out = FilterByQuery(records, "00b3")
	require.Len(t, out, 1)
	assert.Equal(t, records[2].Address, out[0].Address)

	// Empty query matches everything
	assert.Len(t, FilterByQuery(records, "  "), 3)
}

func TestSortBattlesByTimeLeft(t *testing.T) {
	out := SortBattles(sampleRecords(), SortByTimeLeft)
	require.Len(t, out, 3)
	// Active battles first, soonest ending first; resolved last
	assert.Equal(t, 10*time.Minute, out[0].Remaining)
	assert.Equal(t, 30*time.Minute, out[1].Remaining)
	assert.True(t, out[2].Resolved)
}

func TestSortBattlesByStake(t *testing.T) {
	out := SortBattles(sampleRecords(), SortByStake)
	assert.Equal(t, 900.0, out[0].CombinedStake)
	assert.Equal(t, 150.0, out[1].CombinedStake)
	assert.Equal(t, 50.0, out[2].CombinedStake)
}

func TestSortBattlesByParticipants(t *testing.T) {
	out := SortBattles(sampleRecords(), SortByParticipants)
	// 11 total, then 5 total, then the record with unknown participants
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000b3"), out[0].Address)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000b1"), out[1].Address)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000000b2"), out[2].Address)
}

func TestTransformsDoNotMutateInput(t *testing.T) {
	records := sampleRecords()
	original := sampleRecords()

	_ = SortBattles(records, SortByStake)
	_ = SortBattles(records, SortByTimeLeft)
	_ = FilterBySymbol(records, "doge")
	_ = FilterByQuery(records, "b2")

	assert.Equal(t, original, records)
}
