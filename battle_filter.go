package arenakit

import (
	"sort"
	"strings"
)

// Filtering and sorting are pure transforms: they operate on a copy and never
// mutate the input slice or its records.

// SortKey selects the ordering for SortBattles.
type SortKey string

const (
	// SortByTimeLeft orders unresolved battles first, soonest ending first
	SortByTimeLeft SortKey = "time_left"
	// SortByStake orders by combined stake, largest first
	SortByStake SortKey = "stake"
	// SortByParticipants orders by total participant count, largest first.
	// Records with unknown participants sort last.
	SortByParticipants SortKey = "participants"
)

// FilterBySymbol returns the battles where either side's symbol matches,
// case-insensitively.
func FilterBySymbol(records []BattleRecord, symbol string) []BattleRecord {
	want := strings.ToLower(symbol)
	out := make([]BattleRecord, 0, len(records))
	for _, r := range records {
		if strings.ToLower(r.SideA.Symbol) == want || strings.ToLower(r.SideB.Symbol) == want {
			out = append(out, r)
		}
	}
	return out
}

// FilterByQuery returns the battles matching a free-text query against either
// side's symbol or the battle address, case-insensitively. An empty query
// matches everything.
func FilterByQuery(records []BattleRecord, query string) []BattleRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		out := make([]BattleRecord, len(records))
		copy(out, records)
		return out
	}
	out := make([]BattleRecord, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.SideA.Symbol), q) ||
			strings.Contains(strings.ToLower(r.SideB.Symbol), q) ||
			strings.Contains(strings.ToLower(r.Address.Hex()), q) {
			out = append(out, r)
		}
	}
	return out
}

// SortBattles returns a sorted copy of the records. The sort is stable so
// equal records keep their aggregation order.
func SortBattles(records []BattleRecord, key SortKey) []BattleRecord {
	out := make([]BattleRecord, len(records))
	copy(out, records)
	switch key {
	case SortByTimeLeft:
		sort.SliceStable(out, func(i, j int) bool {
			iEnded := out[i].Resolved || out[i].Remaining <= 0
			jEnded := out[j].Resolved || out[j].Remaining <= 0
			if iEnded != jEnded {
				return !iEnded
			}
			return out[i].Remaining < out[j].Remaining
		})
	case SortByStake:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CombinedStake > out[j].CombinedStake
		})
	case SortByParticipants:
		sort.SliceStable(out, func(i, j int) bool {
			iKnown := out[i].SideA.ParticipantsKnown || out[i].SideB.ParticipantsKnown
			jKnown := out[j].SideA.ParticipantsKnown || out[j].SideB.ParticipantsKnown
			if iKnown != jKnown {
				return iKnown
			}
			iCount := out[i].SideA.ParticipantCount + out[i].SideB.ParticipantCount
			jCount := out[j].SideA.ParticipantCount + out[j].SideB.ParticipantCount
			return iCount > jCount
		})
	}
	return out
}
