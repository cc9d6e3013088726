package publish

import "testing"

func TestTaskStateTransitions(t *testing.T) {
	cases := []struct {
		from    TaskState
		to      TaskState
		allowed bool
	}{
		{StateCreated, StateAccepted, true},
		{StateCreated, StateRejected, true},
		{StateCreated, StateValidated, false},
		{StateAccepted, StateValidated, true},
		{StateAccepted, StateRejected, true},
		{StateAccepted, StatePublished, false},
		{StateValidated, StatePublished, true},
		{StateValidated, StateRejected, true},
		{StatePublished, StateFinalized, true},
		{StatePublished, StateFailed, true},
		{StatePublished, StateRejected, false},
		{StateRejected, StateAccepted, false},
		{StateFailed, StateCreated, false},
		{StateFinalized, StateCreated, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestTaskStateTerminal(t *testing.T) {
	for _, state := range []TaskState{StateRejected, StateFailed, StateFinalized} {
		if !state.Terminal() {
			t.Errorf("%s should be terminal", state)
		}
	}
	for _, state := range []TaskState{StateCreated, StateAccepted, StateValidated, StatePublished} {
		if state.Terminal() {
			t.Errorf("%s should not be terminal", state)
		}
	}
}

func TestTaskRejectAfterPublishIgnored(t *testing.T) {
	task := NewTask(nil, NewItem(ItemTypeSession, "s"), nil)
	for _, to := range []TaskState{StateAccepted, StateValidated, StatePublished} {
		if err := task.transition(to); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}
	task.reject(ErrUnsavedSession)
	if task.State() != StatePublished {
		t.Fatalf("published task must not be rejectable, state = %s", task.State())
	}
	task.fail(ErrUnsavedSession)
	if task.State() != StateFailed {
		t.Fatalf("published task should fail, state = %s", task.State())
	}
}
