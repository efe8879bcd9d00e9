package pipeline

import "fmt"

type Stage string

const (
	StageSynthesizing Stage = "synthesizing"
	StageRetrieving   Stage = "retrieving"
	StageDistilling   Stage = "distilling"
)

var stageLabels = map[Stage]string{
	StageSynthesizing: "Optimizing search terms",
	StageRetrieving:   "Performing search",
	StageDistilling:   "Formatting response data",
}

// Label is the progress text shown while the stage runs.
func (s Stage) Label() string {
	return stageLabels[s]
}

type State string

const (
	StateIdle              State = "idle"
	StateSynthesizingQuery State = "synthesizing_query"
	StateRetrieving        State = "retrieving"
	StateDistilling        State = "distilling"
	StateDone              State = "done"
	StateError             State = "error"
)

var transitions = map[State]State{
	StateIdle:              StateSynthesizingQuery,
	StateSynthesizingQuery: StateRetrieving,
	StateRetrieving:        StateDistilling,
	StateDistilling:        StateDone,
}

func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}

// machine tracks one invocation. Stages advance strictly in order; Error is
// reachable from any non-terminal state.
type machine struct {
	state State
}

func newMachine() *machine {
	return &machine{state: StateIdle}
}

func (m *machine) advance(next State) error {
	if m.state.Terminal() {
		return fmt.Errorf("pipeline already %s", m.state)
	}
	if next == StateError {
		m.state = next
		return nil
	}
	if transitions[m.state] != next {
		return fmt.Errorf("invalid pipeline transition %s -> %s", m.state, next)
	}
	m.state = next
	return nil
}

func stateFor(stage Stage) State {
	switch stage {
	case StageSynthesizing:
		return StateSynthesizingQuery
	case StageRetrieving:
		return StateRetrieving
	case StageDistilling:
		return StateDistilling
	default:
		return StateError
	}
}
