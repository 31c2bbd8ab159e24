package master

import (
	"fmt"

	godpmaster "github.com/samsamfire/godpmaster"
)

// EncodeWatchdog converts a watchdog interval in milliseconds into the
// fact1/fact2 byte pair Set_Prm carries, such that fact2*fact1*10 >= ms,
// preferring the smallest fact2 (by successive doubling) that keeps fact1
// within a byte.
func EncodeWatchdog(ms int) (fact1, fact2 byte, err error) {
	if ms <= 0 {
		return 0, 0, nil
	}
	f2 := 1
	for {
		f1 := ceilDiv(ms, 10*f2)
		if f1 < 1 {
			f1 = 1
		}
		if f1 <= 255 {
			return byte(f1), byte(f2), nil
		}
		f2 *= 2
		if f2 > 255 {
			return 0, 0, fmt.Errorf("master: watchdog %dms cannot be encoded in a byte pair: %w", ms, godpmaster.ErrConfigInvalid)
		}
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
