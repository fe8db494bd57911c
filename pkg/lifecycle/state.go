package lifecycle

// State is a position in the agent instance state machine (spec §3):
// SPAWNING → ACTIVE → WARNING → CRITICAL → HANDOFF_IN_PROGRESS →
// TERMINATED, with a TERMINATED_ERROR sink for failures. Transitions are
// monotonic; WARNING never returns to ACTIVE.
type State string

const (
	StateSpawning          State = "SPAWNING"
	StateActive            State = "ACTIVE"
	StateWarning           State = "WARNING"
	StateCritical          State = "CRITICAL"
	StateHandoffInProgress State = "HANDOFF_IN_PROGRESS"
	StateTerminated        State = "TERMINATED"
	StateTerminatedError   State = "TERMINATED_ERROR"
)

var validTransitions = map[State][]State{
	StateSpawning:          {StateActive, StateTerminated, StateTerminatedError},
	StateActive:            {StateWarning, StateCritical, StateTerminated, StateTerminatedError},
	StateWarning:           {StateCritical, StateTerminated, StateTerminatedError},
	StateCritical:          {StateHandoffInProgress, StateTerminated, StateTerminatedError},
	StateHandoffInProgress: {StateTerminated, StateTerminatedError},
	StateTerminated:        {},
	StateTerminatedError:   {},
}

// CanTransition reports whether moving from `from` to `to` is a legal
// state machine edge. Notably CanTransition(WARNING, ACTIVE) is false:
// once an instance has crossed into WARNING it can only progress toward
// CRITICAL or terminate.
func CanTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s is one of the sink states.
func (s State) Terminal() bool {
	return s == StateTerminated || s == StateTerminatedError
}
