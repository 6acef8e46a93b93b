package sync

import "testing"

func TestState_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateInitialReconcile, StateRunning, true},
		{StateInitialReconcile, StatePaused, false},
		{StateRunning, StatePaused, true},
		{StatePaused, StateRunning, true},
		{StateRunning, StateStopped, true},
		{StateStopped, StateRunning, false},
	}
	for _, c := range cases {
		if got := c.from.canTransitionTo(c.to); got != c.want {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
