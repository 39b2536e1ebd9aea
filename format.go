package arenakit

import (
	"fmt"
	"math/big"
	"time"
)

// FormatAddress shortens a hex address for display, keeping startChars from
// the beginning and endChars from the end, joined by an ellipsis. Inputs too
// short to shorten are returned unmodified.
func FormatAddress(addr string, startChars, endChars int) string {
	if startChars < 0 || endChars < 0 {
		return addr
	}
	if len(addr) <= startChars+endChars {
		return addr
	}
	return addr[:startChars] + "..." + addr[len(addr)-endChars:]
}

// FormatUnits converts a raw token amount to whole units as a float.
// A nil amount formats as 0.
func FormatUnits(amount *big.Int, decimals uint8) float64 {
	if amount == nil {
		return 0
	}
	f := new(big.Float).SetInt(amount)
	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	result, _ := new(big.Float).Quo(f, divisor).Float64()
	return result
}

// FormatTimeLeft renders a remaining duration as "Xh Ym" using floor
// division. Durations of zero or less render as "Ended".
func FormatTimeLeft(remaining time.Duration) string {
	if remaining <= 0 {
		return "Ended"
	}
	hours := int(remaining / time.Hour)
	minutes := int((remaining % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
