package timex

import (
	"testing"
	"time"
)

func TestPeriodFromHz(t *testing.T) {
	cases := []struct {
		hz   uint32
		want uint64
	}{
		{38000, 26316},
		{40000, 25000},
		{36000, 27778},
		{3, 333333333},
		{1, 1_000_000_000},
		{0, 1_000_000_000}, // coerced to 1 Hz
	}
	for _, c := range cases {
		if got := PeriodFromHz(c.hz); got != c.want {
			t.Errorf("PeriodFromHz(%d) = %d, want %d", c.hz, got, c.want)
		}
	}
}

func TestResetTimerAfterFire(t *testing.T) {
	tm := time.NewTimer(time.Millisecond)
	time.Sleep(5 * time.Millisecond) // let it fire without draining
	ResetTimer(tm, 10*time.Millisecond)
	select {
	case <-tm.C:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire after reset")
	}
}

func TestResetTimerClampsNegative(t *testing.T) {
	tm := time.NewTimer(time.Hour)
	ResetTimer(tm, -time.Second)
	select {
	case <-tm.C:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire for clamped duration")
	}
}
