package overlap

import "fmt"

// State is the lifecycle stage of a single analysis
type State int

const (
	StateIdle State = iota
	StateResolving
	StateAggregating
	StateScoring
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateAggregating:
		return "aggregating"
	case StateScoring:
		return "scoring"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Failed is only reachable from Idle: once resolution starts, per-fund
// problems are absorbed as fallbacks.
var allowedTransitions = map[State]State{
	StateResolving:   StateIdle,
	StateAggregating: StateResolving,
	StateScoring:     StateAggregating,
	StateComplete:    StateScoring,
	StateFailed:      StateIdle,
}

// StateObserver receives every state transition of every analysis
type StateObserver func(analysisID string, state State)

// analysis tracks the state of one AnalyzeOverlap call
type analysis struct {
	id       string
	state    State
	observer StateObserver
}

func (a *analysis) advance(next State) {
	if from, ok := allowedTransitions[next]; !ok || from != a.state {
		panic(fmt.Sprintf("overlap: illegal state transition %s -> %s", a.state, next))
	}
	a.state = next
	if a.observer != nil {
		a.observer(a.id, next)
	}
}
