package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "inprogress"
	StatusDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

const (
	ActionCreated            = "created"
	ActionUpdated            = "updated"
	ActionMoved              = "moved"
	ActionSubtaskAdded       = "subtask_added"
	ActionSubtaskCompleted   = "subtask_completed"
	ActionSubtaskUncompleted = "subtask_uncompleted"
	ActionSubtaskDeleted     = "subtask_deleted"
)

type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// ActivityEntry is immutable once created. The log on a task is kept
// newest-first: new entries are prepended, never appended.
type ActivityEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

// NewActivityEntry builds a log entry stamped now with a fresh id.
func NewActivityEntry(action, details string) ActivityEntry {
	entry := ActivityEntry{
		Action:    action,
		Timestamp: time.Now(),
		Details:   details,
	}
	entryUUID, err := uuid.NewV7()
	if err != nil {
		// v7 generation only fails when the entropy source does; fall
		// back to the timestamp so the entry still has an id.
		entry.ID = fmt.Sprintf("log-%d", entry.Timestamp.UnixMilli())
		return entry
	}
	entry.ID = entryUUID.String()
	return entry
}

type Task struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Priority     TaskPriority      `json:"priority"`
	Status       TaskStatus        `json:"status"`
	DueDate      *time.Time        `json:"due_date,omitempty"`
	Subtasks     []Subtask         `json:"subtasks"`
	ActivityLog  []ActivityEntry   `json:"activity_log"`
	CustomFields map[string]string `json:"custom_fields"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Clone returns a deep copy. The board service hands copies out to
// callers so nobody can mutate the authoritative collection in place.
func (t Task) Clone() Task {
	c := t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	c.Subtasks = make([]Subtask, len(t.Subtasks))
	copy(c.Subtasks, t.Subtasks)
	c.ActivityLog = make([]ActivityEntry, len(t.ActivityLog))
	copy(c.ActivityLog, t.ActivityLog)
	c.CustomFields = make(map[string]string, len(t.CustomFields))
	for k, v := range t.CustomFields {
		c.CustomFields[k] = v
	}
	return c
}

func CloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
