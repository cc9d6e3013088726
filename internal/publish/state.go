package publish

import "fmt"

// TaskState tracks one plugin/item pairing through the publish lifecycle.
type TaskState string

const (
	StateCreated   TaskState = "created"
	StateAccepted  TaskState = "accepted"
	StateValidated TaskState = "validated"
	StatePublished TaskState = "published"
	StateFinalized TaskState = "finalized"
	// StateRejected is terminal, reached from any pre-publish state when
	// acceptance or validation fails.
	StateRejected TaskState = "rejected"
	// StateFailed is terminal, reached after the publish record exists.
	// The record is not rolled back.
	StateFailed TaskState = "failed"
)

var taskTransitions = map[TaskState][]TaskState{
	StateCreated:   {StateAccepted, StateRejected},
	StateAccepted:  {StateValidated, StateRejected},
	StateValidated: {StatePublished, StateRejected},
	StatePublished: {StateFinalized, StateFailed},
}

// CanTransition reports whether the state machine permits moving to the
// given state.
func (s TaskState) CanTransition(to TaskState) bool {
	for _, next := range taskTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s TaskState) Terminal() bool {
	return len(taskTransitions[s]) == 0
}

// Task pairs a plugin with an item for one publish cycle. Tasks are created
// during the accept phase and discarded after the run.
type Task struct {
	Plugin   Plugin
	Item     *Item
	Settings Settings

	// Checked mirrors the acceptance result; unchecked tasks are skipped
	// by every later phase.
	Checked bool

	state TaskState
	err   error
}

// NewTask creates a task in the created state.
func NewTask(plugin Plugin, item *Item, settings Settings) *Task {
	return &Task{
		Plugin:   plugin,
		Item:     item,
		Settings: settings,
		state:    StateCreated,
	}
}

// State returns the current lifecycle state.
func (t *Task) State() TaskState {
	return t.state
}

// Err returns the error that moved the task into a terminal failure state.
func (t *Task) Err() error {
	return t.err
}

func (t *Task) transition(to TaskState) error {
	if !t.state.CanTransition(to) {
		return fmt.Errorf("invalid task transition %s -> %s", t.state, to)
	}
	t.state = to
	return nil
}

// reject moves the task to the rejected state, recording the cause. Illegal
// from post-publish states.
func (t *Task) reject(err error) {
	if t.state.CanTransition(StateRejected) {
		t.state = StateRejected
		t.err = err
	}
}

// fail moves a published task to the failed state, recording the cause.
func (t *Task) fail(err error) {
	if t.state.CanTransition(StateFailed) {
		t.state = StateFailed
		t.err = err
	}
}
