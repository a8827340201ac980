package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/go-taskboard/internal/models"
)

func TestRecordToTaskDefaults(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	r := record{
		ID:        "task-1",
		UserID:    "user-1",
		Title:     "Write spec",
		Priority:  "high",
		Status:    "todo",
		CreatedAt: now,
		UpdatedAt: now,
	}

	task, err := r.toTask()
	require.NoError(t, err)

	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, "", task.Description)
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Nil(t, task.DueDate)
	assert.NotNil(t, task.Subtasks)
	assert.Empty(t, task.Subtasks)
	assert.NotNil(t, task.ActivityLog)
	assert.Empty(t, task.ActivityLog)
	assert.NotNil(t, task.CustomFields)
	assert.Empty(t, task.CustomFields)
}

func TestRecordToTaskDecodesNestedDocuments(t *testing.T) {
	desc := "Draft and review"
	due := time.Date(2024, time.June, 7, 0, 0, 0, 0, time.UTC)
	r := record{
		ID:          "task-2",
		UserID:      "user-1",
		Title:       "Write spec",
		Description: &desc,
		Priority:    "medium",
		Status:      "inprogress",
		DueDate:     &due,
		Subtasks: []byte(`[
			{"id": "st-1", "title": "Outline", "completed": true},
			{"id": "st-2", "title": "Review", "completed": false}
		]`),
		ActivityLog: []byte(`[
			{"id": "log-2", "action": "moved", "timestamp": "2024-06-02T09:00:00Z", "details": "Moved from todo to inprogress"},
			{"id": "log-1", "action": "created", "timestamp": "2024-06-01T12:00:00Z", "details": "Task created"}
		]`),
		CustomFields: []byte(`{"category": "Backend"}`),
	}

	task, err := r.toTask()
	require.NoError(t, err)

	assert.Equal(t, "Draft and review", task.Description)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, due, *task.DueDate)

	require.Len(t, task.Subtasks, 2)
	assert.Equal(t, "Outline", task.Subtasks[0].Title)
	assert.True(t, task.Subtasks[0].Completed)

	require.Len(t, task.ActivityLog, 2)
	assert.Equal(t, models.ActionMoved, task.ActivityLog[0].Action)
	assert.Equal(t, models.ActionCreated, task.ActivityLog[1].Action)

	assert.Equal(t, map[string]string{"category": "Backend"}, task.CustomFields)
}

func TestRecordToTaskNullDocumentsDefaultToEmpty(t *testing.T) {
	r := record{
		ID:           "task-3",
		Title:        "Write spec",
		Priority:     "low",
		Status:       "done",
		Subtasks:     []byte(`null`),
		ActivityLog:  []byte(`null`),
		CustomFields: []byte(`null`),
	}

	task, err := r.toTask()
	require.NoError(t, err)

	assert.NotNil(t, task.Subtasks)
	assert.NotNil(t, task.ActivityLog)
	assert.NotNil(t, task.CustomFields)
}

func TestRecordToTaskMalformedDocument(t *testing.T) {
	r := record{
		ID:       "task-4",
		Title:    "Write spec",
		Priority: "low",
		Status:   "todo",
		Subtasks: []byte(`{not json`),
	}

	_, err := r.toTask()
	assert.Error(t, err)
}
