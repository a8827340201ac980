package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskCloneIsDeep(t *testing.T) {
	due := time.Date(2024, time.June, 7, 0, 0, 0, 0, time.UTC)
	original := Task{
		ID:       "task-1",
		Title:    "Write spec",
		Priority: PriorityHigh,
		Status:   StatusTodo,
		DueDate:  &due,
		Subtasks: []Subtask{{ID: "st-1", Title: "Outline"}},
		ActivityLog: []ActivityEntry{
			{ID: "log-1", Action: ActionCreated, Timestamp: due},
		},
		CustomFields: map[string]string{"category": "Backend"},
	}

	clone := original.Clone()
	clone.Subtasks[0].Completed = true
	clone.ActivityLog[0].Action = ActionUpdated
	clone.CustomFields["category"] = "Design"
	*clone.DueDate = clone.DueDate.AddDate(0, 0, 1)

	assert.False(t, original.Subtasks[0].Completed)
	assert.Equal(t, ActionCreated, original.ActivityLog[0].Action)
	assert.Equal(t, "Backend", original.CustomFields["category"])
	assert.Equal(t, due, *original.DueDate)
}

func TestNewActivityEntry(t *testing.T) {
	entry := NewActivityEntry(ActionMoved, "Moved from todo to done")

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, ActionMoved, entry.Action)
	assert.Equal(t, "Moved from todo to done", entry.Details)
	assert.WithinDuration(t, time.Now(), entry.Timestamp, time.Second)
}

func TestValidation(t *testing.T) {
	assert.True(t, PriorityMedium.Valid())
	assert.False(t, TaskPriority("urgent").Valid())

	assert.True(t, StatusInProgress.Valid())
	assert.False(t, TaskStatus("blocked").Valid())

	assert.True(t, DueDateThisWeek.Valid())
	assert.True(t, DueDateNone.Valid())
	assert.False(t, DueDateFilter("nextYear").Valid())

	assert.True(t, FieldTypeSelect.Valid())
	assert.False(t, CustomFieldType("json").Valid())
}

func TestSeedFieldDefinitions(t *testing.T) {
	defs := SeedFieldDefinitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "category", defs[0].ID)
	assert.Contains(t, defs[0].Options, "Backend")
	assert.Equal(t, "tags", defs[1].ID)
}
