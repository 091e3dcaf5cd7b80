package timex

import (
	"time"

	"voiceboard-go/x/mathx"
)

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// PeriodFromHz returns a nanosecond period for a requested frequency,
// rounded to the nearest nanosecond. freqHz==0 is coerced to 1 to avoid
// division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return mathx.RoundDiv(uint64(1_000_000_000), uint64(freqHz))
}

// ResetTimer safely rearms a timer that may have fired or been stopped.
func ResetTimer(t *time.Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !t.Stop() {
		DrainTimer(t)
	}
	t.Reset(d)
}

// DrainTimer removes a pending tick, if any, without blocking.
func DrainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
