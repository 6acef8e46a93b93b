// Package sync implements C6, the background engine that mirrors local
// writes to the remote store: a bounded per-hash-coalescing queue held in
// memory (not persisted across restarts), exponential retry with jitter,
// and a circuit breaker over the remote connection.
package sync

// State is the sync engine's lifecycle state machine:
//
//	INITIAL_RECONCILE -> RUNNING <-> PAUSED -> STOPPED
//
// STOPPED is reachable from any state through Engine.Stop; there is no
// transition out of it.
type State string

const (
	StateInitialReconcile State = "INITIAL_RECONCILE"
	StateRunning          State = "RUNNING"
	StatePaused           State = "PAUSED"
	StateStopped          State = "STOPPED"
)

// validTransitions enumerates the state machine's edges.
var validTransitions = map[State]map[State]bool{
	StateInitialReconcile: {StateRunning: true, StateStopped: true},
	StateRunning:          {StatePaused: true, StateStopped: true},
	StatePaused:           {StateRunning: true, StateStopped: true},
	StateStopped:          {},
}

func (s State) canTransitionTo(next State) bool {
	return validTransitions[s][next]
}
