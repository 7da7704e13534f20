package tasks

import "github.com/theapemachine/a2a-go/pkg/a2a"

// transitions enumerates the only state changes the task lifecycle permits.
// Terminal states (completed, canceled, failed, rejected) admit none.
var transitions = map[a2a.TaskState]map[a2a.TaskState]bool{
	a2a.TaskStateSubmitted: {
		a2a.TaskStateWorking:      true,
		a2a.TaskStateAuthRequired: true,
		a2a.TaskStateCanceled:     true,
		a2a.TaskStateRejected:     true,
	},
	a2a.TaskStateWorking: {
		a2a.TaskStateInputRequired: true,
		a2a.TaskStateAuthRequired:  true,
		a2a.TaskStateCompleted:     true,
		a2a.TaskStateCanceled:      true,
		a2a.TaskStateFailed:        true,
	},
	a2a.TaskStateInputRequired: {
		a2a.TaskStateWorking:   true,
		a2a.TaskStateCompleted: true,
		a2a.TaskStateCanceled:  true,
		a2a.TaskStateFailed:    true,
	},
	a2a.TaskStateAuthRequired: {
		a2a.TaskStateWorking:  true,
		a2a.TaskStateCanceled: true,
		a2a.TaskStateRejected: true,
	},
}

// validTransition reports whether a task may move from `from` to `to`.
func validTransition(from, to a2a.TaskState) bool {
	if from == to {
		return false
	}
	next, ok := transitions[from]
	if !ok {
		return false
	}
	return next[to]
}
