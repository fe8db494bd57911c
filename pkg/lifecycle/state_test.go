package lifecycle

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateSpawning, StateActive, true},
		{StateActive, StateWarning, true},
		{StateActive, StateCritical, true},
		{StateWarning, StateCritical, true},
		{StateWarning, StateActive, false}, // forbidden: no retreat from WARNING
		{StateCritical, StateActive, false},
		{StateCritical, StateHandoffInProgress, true},
		{StateHandoffInProgress, StateTerminated, true},
		{StateHandoffInProgress, StateActive, false},
		{StateTerminated, StateActive, false},
		{StateTerminatedError, StateActive, false},
		{StateSpawning, StateTerminatedError, true},
	}

	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestState_Terminal(t *testing.T) {
	for _, s := range []State{StateTerminated, StateTerminatedError} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []State{StateSpawning, StateActive, StateWarning, StateCritical, StateHandoffInProgress} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
