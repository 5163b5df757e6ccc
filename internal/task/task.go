// Package task defines the task entity shared by every layer.
package task

import "github.com/google/uuid"

// Task represents a single task item.
//
// Two tasks are equal when Title and Completed match. ID is a runtime handle
// assigned by the orchestrator so a task can be found again after Completed
// is flipped; it is never persisted and never takes part in equality.
type Task struct {
	ID        string `json:"-"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Key is the comparable identity of a task. Use it as a map key where a
// hash set of tasks is needed.
type Key struct {
	Title     string
	Completed bool
}

// New creates an open task with a fresh runtime ID.
func New(title string) Task {
	return Task{ID: uuid.NewString(), Title: title}
}

// Key returns the value identity of t.
func (t Task) Key() Key {
	return Key{Title: t.Title, Completed: t.Completed}
}

// Equal reports whether t and o have the same title and completion flag.
func (t Task) Equal(o Task) bool {
	return t.Key() == o.Key()
}

// IndexOf returns the index of the first task equal to t, or -1.
func IndexOf(tasks []Task, t Task) int {
	for i := range tasks {
		if tasks[i].Equal(t) {
			return i
		}
	}
	return -1
}

// IndexByID returns the index of the task with the given runtime ID, or -1.
func IndexByID(tasks []Task, id string) int {
	if id == "" {
		return -1
	}
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy of tasks that shares no backing array with it.
// The result is never nil.
func Clone(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

// AssignIDs gives every task without a runtime ID a fresh one.
func AssignIDs(tasks []Task) {
	for i := range tasks {
		if tasks[i].ID == "" {
			tasks[i].ID = uuid.NewString()
		}
	}
}

// Defaults returns the starter collection shown when storage is empty:
// one completed task and one open task.
func Defaults() []Task {
	return []Task{
		{Title: "Start Learning Go!", Completed: true},
		{Title: "Keep Learning Go!", Completed: false},
	}
}
