package pipeline

import "testing"

func TestMachine_HappyPath(t *testing.T) {
	m := newMachine()
	for _, next := range []State{StateSynthesizingQuery, StateRetrieving, StateDistilling, StateDone} {
		if err := m.advance(next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}
	if err := m.advance(StateError); err == nil {
		t.Fatal("expected terminal state to reject transitions")
	}
}

func TestMachine_RejectsSkipsAndReorders(t *testing.T) {
	m := newMachine()
	if err := m.advance(StateRetrieving); err == nil {
		t.Fatal("expected skipping synthesis to fail")
	}
	if err := m.advance(StateSynthesizingQuery); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := m.advance(StateDistilling); err == nil {
		t.Fatal("expected skipping retrieval to fail")
	}
	if err := m.advance(StateSynthesizingQuery); err == nil {
		t.Fatal("expected repeating a stage to fail")
	}
	if err := m.advance(StateDone); err == nil {
		t.Fatal("expected early completion to fail")
	}
}

func TestMachine_ErrorFromAnyNonTerminalState(t *testing.T) {
	for _, steps := range [][]State{
		{},
		{StateSynthesizingQuery},
		{StateSynthesizingQuery, StateRetrieving},
		{StateSynthesizingQuery, StateRetrieving, StateDistilling},
	} {
		m := newMachine()
		for _, step := range steps {
			if err := m.advance(step); err != nil {
				t.Fatalf("advance: %v", err)
			}
		}
		if err := m.advance(StateError); err != nil {
			t.Fatalf("expected error transition from %s, got %v", m.state, err)
		}
		if err := m.advance(StateDone); err == nil {
			t.Fatal("expected error state to be terminal")
		}
	}
}

func TestStateFor(t *testing.T) {
	tests := map[Stage]State{
		StageSynthesizing: StateSynthesizingQuery,
		StageRetrieving:   StateRetrieving,
		StageDistilling:   StateDistilling,
		Stage("other"):    StateError,
	}
	for stage, want := range tests {
		if got := stateFor(stage); got != want {
			t.Errorf("%s: expected %s, got %s", stage, want, got)
		}
	}
}

func TestStageLabels(t *testing.T) {
	if StageSynthesizing.Label() != "Optimizing search terms" {
		t.Fatalf("unexpected label %q", StageSynthesizing.Label())
	}
	if Stage("other").Label() != "" {
		t.Fatal("expected empty label for unknown stage")
	}
}
