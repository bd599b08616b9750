package sched

import "testing"

func TestStateString(t *testing.T) {
	specs := []struct {
		state State
		exp   string
	}{
		{Uninitialized, "uninitialized"},
		{Running, "running"},
	}

	for specIndex, spec := range specs {
		if got := spec.state.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestDisabledTickResetsSessions(t *testing.T) {
	s := New(nil, nil, nil, nil, func() int { return 0 })
	s.MarkRunning(0)
	s.MarkRunning(2)

	if s.State(0) != Running || s.State(1) != Uninitialized || s.State(2) != Running {
		t.Fatal("unexpected initial states")
	}

	s.SetEnabled(false)
	s.Tick(0)

	if s.Enabled() || s.idx != -1 {
		t.Fatalf("expected the rotation to be reset; idx %d", s.idx)
	}

	for session := 0; session < len(s.states); session++ {
		if s.State(session) != Uninitialized || s.Visits(session) != 0 {
			t.Errorf("expected session %d to be uninitialized and unvisited", session)
		}
	}
}
