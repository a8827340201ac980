package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/go-taskboard/internal/cache"
	"github.com/adanyl0v/go-taskboard/internal/models"
	"github.com/adanyl0v/go-taskboard/internal/remote"
)

// fakeAdapter is an in-memory remote store with failure injection and a
// gate for stalling a patch in flight.
type fakeAdapter struct {
	mu         sync.Mutex
	tasks      map[string]models.Task
	nextID     int
	failNext   error
	patchGate  chan struct{}
	patchBegun chan struct{}
	patchCalls int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		tasks:      map[string]models.Task{},
		patchBegun: make(chan struct{}, 16),
	}
}

func (a *fakeAdapter) takeFailure() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.failNext
	a.failNext = nil
	return err
}

func (a *fakeAdapter) FetchAll(_ context.Context, userID string) ([]models.Task, error) {
	if err := a.takeFailure(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, remote.ErrUnauthenticated
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Task, 0, len(a.tasks))
	for _, t := range a.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (a *fakeAdapter) Insert(_ context.Context, userID string, draft remote.Draft) (*models.Task, error) {
	if err := a.takeFailure(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, remote.ErrUnauthenticated
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	now := time.Now().Add(time.Duration(a.nextID) * time.Millisecond)
	task := models.Task{
		ID:           fmt.Sprintf("task-%d", a.nextID),
		Title:        draft.Title,
		Description:  draft.Description,
		Priority:     draft.Priority,
		Status:       draft.Status,
		DueDate:      draft.DueDate,
		Subtasks:     []models.Subtask{},
		ActivityLog:  []models.ActivityEntry{models.NewActivityEntry(models.ActionCreated, "Task created")},
		CustomFields: map[string]string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if draft.CustomFields != nil {
		task.CustomFields = draft.CustomFields
	}
	a.tasks[task.ID] = task.Clone()
	return &task, nil
}

func (a *fakeAdapter) Patch(_ context.Context, id string, patch remote.Patch) error {
	select {
	case a.patchBegun <- struct{}{}:
	default:
	}

	a.mu.Lock()
	gate := a.patchGate
	a.patchGate = nil
	a.mu.Unlock()
	if gate != nil {
		<-gate
	}

	if err := a.takeFailure(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.patchCalls++
	task, ok := a.tasks[id]
	if !ok {
		return remote.ErrRecordNotFound
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.ClearDueDate {
		task.DueDate = nil
	} else if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if patch.Subtasks != nil {
		task.Subtasks = patch.Subtasks
	}
	if patch.ActivityLog != nil {
		task.ActivityLog = patch.ActivityLog
	}
	if patch.CustomFields != nil {
		task.CustomFields = patch.CustomFields
	}
	task.UpdatedAt = patch.UpdatedAt
	a.tasks[id] = task
	return nil
}

func (a *fakeAdapter) Remove(_ context.Context, id string) error {
	if err := a.takeFailure(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tasks, id)
	return nil
}

type memoryCache struct {
	mu    sync.Mutex
	saves int
}

func (c *memoryCache) Load() cache.Snapshot { return cache.DefaultSnapshot() }

func (c *memoryCache) Save(cache.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	return nil
}

func newTestBoard(t *testing.T) (BoardService, *fakeAdapter) {
	t.Helper()
	adapter := newFakeAdapter()
	svc := NewBoardService(zerolog.Nop(), adapter, &memoryCache{})
	require.NoError(t, svc.Bind(context.Background(), "user-1"))
	return svc, adapter
}

func mustCreateTask(t *testing.T, svc BoardService) *models.Task {
	t.Helper()
	task, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Title:    "Write spec",
		Priority: models.PriorityHigh,
		Status:   models.StatusTodo,
	})
	require.NoError(t, err)
	return task
}

func strPtr(s string) *string { return &s }

func TestCreateTaskSeedsSingleCreatedEntry(t *testing.T) {
	svc, _ := newTestBoard(t)

	task := mustCreateTask(t, svc)

	assert.Equal(t, "Write spec", task.Title)
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Empty(t, task.Subtasks)
	require.Len(t, task.ActivityLog, 1)
	assert.Equal(t, models.ActionCreated, task.ActivityLog[0].Action)
	assert.False(t, task.UpdatedAt.Before(task.CreatedAt))
}

func TestCreateTaskRequiresIdentity(t *testing.T) {
	svc := NewBoardService(zerolog.Nop(), newFakeAdapter(), &memoryCache{})

	_, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Title:    "Write spec",
		Priority: models.PriorityHigh,
		Status:   models.StatusTodo,
	})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCreateTaskValidation(t *testing.T) {
	svc, _ := newTestBoard(t)

	_, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Title:    "  ",
		Priority: models.PriorityLow,
		Status:   models.StatusTodo,
	})
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = svc.CreateTask(context.Background(), CreateTaskParams{
		Title:    "Write spec",
		Priority: "urgent",
		Status:   models.StatusTodo,
	})
	assert.ErrorIs(t, err, ErrInvalidPriority)

	_, err = svc.CreateTask(context.Background(), CreateTaskParams{
		Title:    "Write spec",
		Priority: models.PriorityLow,
		Status:   "blocked",
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCreateTaskFailureLeavesStateUnchanged(t *testing.T) {
	svc, adapter := newTestBoard(t)
	before := svc.Tasks()

	adapter.failNext = fmt.Errorf("connection reset")
	_, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Title:    "Write spec",
		Priority: models.PriorityHigh,
		Status:   models.StatusTodo,
	})

	assert.Error(t, err)
	assert.Equal(t, before, svc.Tasks())
}

func TestUpdateTaskPrependsOneEntryNamingChangedFields(t *testing.T) {
	svc, _ := newTestBoard(t)
	task := mustCreateTask(t, svc)

	priority := models.PriorityLow
	updated, err := svc.UpdateTask(context.Background(), task.ID, TaskChanges{
		Title:    strPtr("Review spec"),
		Priority: &priority,
	})
	require.NoError(t, err)

	assert.Equal(t, "Review spec", updated.Title)
	assert.Equal(t, models.PriorityLow, updated.Priority)
	require.Len(t, updated.ActivityLog, 2)
	assert.Equal(t, models.ActionUpdated, updated.ActivityLog[0].Action)
	assert.Equal(t, "title updated, priority updated", updated.ActivityLog[0].Details)
	assert.Equal(t, models.ActionCreated, updated.ActivityLog[1].Action)
}

func TestUpdateTaskNotFound(t *testing.T) {
	svc, _ := newTestBoard(t)

	_, err := svc.UpdateTask(context.Background(), "missing", TaskChanges{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestUpdateTaskFailureLeavesStateIdentical(t *testing.T) {
	svc, adapter := newTestBoard(t)
	task := mustCreateTask(t, svc)
	before := svc.Tasks()

	adapter.failNext = fmt.Errorf("connection reset")
	_, err := svc.UpdateTask(context.Background(), task.ID, TaskChanges{Title: strPtr("Review spec")})

	assert.Error(t, err)
	assert.Equal(t, before, svc.Tasks())
}

func TestMoveTaskToSameColumnStillLogs(t *testing.T) {
	svc, _ := newTestBoard(t)
	task := mustCreateTask(t, svc)

	moved, err := svc.MoveTask(context.Background(), task.ID, models.StatusTodo)
	require.NoError(t, err)

	assert.Equal(t, models.StatusTodo, moved.Status)
	require.Len(t, moved.ActivityLog, 2)
	assert.Equal(t, models.ActionMoved, moved.ActivityLog[0].Action)
	assert.Equal(t, "Moved from todo to todo", moved.ActivityLog[0].Details)
}

func TestMoveTaskLogsOldAndNewStatus(t *testing.T) {
	svc, _ := newTestBoard(t)
	task := mustCreateTask(t, svc)

	moved, err := svc.MoveTask(context.Background(), task.ID, models.StatusInProgress)
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, moved.Status)
	assert.Equal(t, "Moved from todo to inprogress", moved.ActivityLog[0].Details)
}

func TestAddSubtask(t *testing.T) {
	svc, _ := newTestBoard(t)
	task := mustCreateTask(t, svc)

	updated, err := svc.AddSubtask(context.Background(), task.ID, "Outline")
	require.NoError(t, err)

	require.Len(t, updated.Subtasks, 1)
	assert.Equal(t, "Outline", updated.Subtasks[0].Title)
	assert.False(t, updated.Subtasks[0].Completed)
	assert.NotEmpty(t, updated.Subtasks[0].ID)
	assert.Equal(t, models.ActionSubtaskAdded, updated.ActivityLog[0].Action)
	assert.Equal(t, "Added subtask: Outline", updated.ActivityLog[0].Details)
}

func TestToggleSubtaskTwiceRestoresValueAndLogsTwice(t *testing.T) {
	svc, _ := newTestBoard(t)
	task := mustCreateTask(t, svc)
	withSubtask, err := svc.AddSubtask(context.Background(), task.ID, "Outline")
	require.NoError(t, err)
	subtaskID := withSubtask.Subtasks[0].ID
	logLen := len(withSubtask.ActivityLog)

	once, err := svc.ToggleSubtask(context.Background(), task.ID, subtaskID)
	require.NoError(t, err)
	assert.True(t, once.Subtasks[0].Completed)
	assert.Equal(t, models.ActionSubtaskCompleted, once.ActivityLog[0].Action)
	assert.Equal(t, "Completed subtask: Outline", once.ActivityLog[0].Details)

	twice, err := svc.ToggleSubtask(context.Background(), task.ID, subtaskID)
	require.NoError(t, err)
	assert.False(t, twice.Subtasks[0].Completed)
	assert.Equal(t, models.ActionSubtaskUncompleted, twice.ActivityLog[0].Action)
	assert.Len(t, twice.ActivityLog, logLen+2)
}

func TestToggleMissingSubtaskIsNoOp(t *testing.T) {
	svc, adapter := newTestBoard(t)
	task := mustCreateTask(t, svc)
	before := svc.Tasks()
	patchesBefore := adapter.patchCalls

	result, err := svc.ToggleSubtask(context.Background(), task.ID, "missing")
	require.NoError(t, err)

	assert.Equal(t, before, svc.Tasks())
	assert.Len(t, result.ActivityLog, 1)
	assert.Equal(t, patchesBefore, adapter.patchCalls, "no remote call on a no-op")
}

func TestDeleteSubtaskCapturesTitleBeforeRemoval(t *testing.T) {
	svc, _ := newTestBoard(t)
	task := mustCreateTask(t, svc)
	withSubtask, err := svc.AddSubtask(context.Background(), task.ID, "Outline")
	require.NoError(t, err)

	updated, err := svc.DeleteSubtask(context.Background(), task.ID, withSubtask.Subtasks[0].ID)
	require.NoError(t, err)

	assert.Empty(t, updated.Subtasks)
	assert.Equal(t, models.ActionSubtaskDeleted, updated.ActivityLog[0].Action)
	assert.Equal(t, "Deleted subtask: Outline", updated.ActivityLog[0].Details)
}

func TestDeleteMissingSubtaskIsNoOp(t *testing.T) {
	svc, adapter := newTestBoard(t)
	task := mustCreateTask(t, svc)
	before := svc.Tasks()
	patchesBefore := adapter.patchCalls

	_, err := svc.DeleteSubtask(context.Background(), task.ID, "missing")
	require.NoError(t, err)

	assert.Equal(t, before, svc.Tasks())
	assert.Equal(t, patchesBefore, adapter.patchCalls)
}

func TestDeleteTask(t *testing.T) {
	svc, adapter := newTestBoard(t)
	task := mustCreateTask(t, svc)

	require.NoError(t, svc.DeleteTask(context.Background(), task.ID))

	assert.Empty(t, svc.Tasks())
	adapter.mu.Lock()
	_, remoteHasIt := adapter.tasks[task.ID]
	adapter.mu.Unlock()
	assert.False(t, remoteHasIt)
}

func TestDeleteTaskNotFound(t *testing.T) {
	svc, _ := newTestBoard(t)

	err := svc.DeleteTask(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestDeleteTaskFailureLeavesStateUnchanged(t *testing.T) {
	svc, adapter := newTestBoard(t)
	task := mustCreateTask(t, svc)
	before := svc.Tasks()

	adapter.failNext = fmt.Errorf("connection reset")
	err := svc.DeleteTask(context.Background(), task.ID)

	assert.Error(t, err)
	assert.Equal(t, before, svc.Tasks())
}

func TestResyncReplacesLocalCollection(t *testing.T) {
	svc, adapter := newTestBoard(t)
	mustCreateTask(t, svc)

	// Another client wipes the remote collection behind our back.
	adapter.mu.Lock()
	adapter.tasks = map[string]models.Task{}
	adapter.mu.Unlock()

	require.NoError(t, svc.Resync(context.Background()))
	assert.Empty(t, svc.Tasks())
}

func TestResyncRequiresIdentity(t *testing.T) {
	svc := NewBoardService(zerolog.Nop(), newFakeAdapter(), &memoryCache{})
	assert.ErrorIs(t, svc.Resync(context.Background()), ErrUnauthenticated)
}

// Two back-to-back updates to different fields of the same task must
// both land even when the first remote response is slow: responses
// apply in the order the requests were initiated.
func TestConcurrentUpdatesApplyInInitiationOrder(t *testing.T) {
	svc, adapter := newTestBoard(t)
	task := mustCreateTask(t, svc)

	gate := make(chan struct{})
	adapter.mu.Lock()
	adapter.patchGate = gate
	adapter.mu.Unlock()

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.UpdateTask(context.Background(), task.ID, TaskChanges{Title: strPtr("Review spec")})
		firstDone <- err
	}()
	<-adapter.patchBegun // first update is now stalled in flight

	secondDone := make(chan error, 1)
	go func() {
		_, err := svc.UpdateTask(context.Background(), task.ID, TaskChanges{Description: strPtr("Second pass")})
		secondDone <- err
	}()

	close(gate)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	tasks := svc.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Review spec", tasks[0].Title)
	assert.Equal(t, "Second pass", tasks[0].Description)
	require.Len(t, tasks[0].ActivityLog, 3)
	assert.Equal(t, "description updated", tasks[0].ActivityLog[0].Details)
	assert.Equal(t, "title updated", tasks[0].ActivityLog[1].Details)
}

func TestFilterSetters(t *testing.T) {
	svc, _ := newTestBoard(t)

	svc.SetSearchFilter("spec")
	require.NoError(t, svc.SetPriorityFilter("high"))
	require.NoError(t, svc.SetStatusFilter("todo"))
	svc.SetCategoryFilter("Backend")
	require.NoError(t, svc.SetDueDateFilter(models.DueDateOverdue))

	f := svc.CurrentFilter()
	assert.Equal(t, "spec", f.Search)
	assert.Equal(t, "high", f.Priority)
	assert.Equal(t, "todo", f.Status)
	assert.Equal(t, "Backend", f.Category)
	assert.Equal(t, models.DueDateOverdue, f.DueDate)

	assert.ErrorIs(t, svc.SetPriorityFilter("urgent"), ErrInvalidFilterValue)
	assert.ErrorIs(t, svc.SetStatusFilter("blocked"), ErrInvalidFilterValue)
	assert.ErrorIs(t, svc.SetDueDateFilter("nextYear"), ErrInvalidFilterValue)
}

func TestColumnsPartitionRespectsFilter(t *testing.T) {
	svc, _ := newTestBoard(t)
	mustCreateTask(t, svc)
	low, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Title:    "Sweep backlog",
		Priority: models.PriorityLow,
		Status:   models.StatusInProgress,
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetPriorityFilter("low"))
	cols := svc.Columns(time.Now())

	assert.Empty(t, cols.Todo)
	require.Len(t, cols.InProgress, 1)
	assert.Equal(t, low.ID, cols.InProgress[0].ID)
	assert.Empty(t, cols.Done)
}

func TestFieldDefinitionCRUD(t *testing.T) {
	svc, _ := newTestBoard(t)

	added, err := svc.AddFieldDefinition(models.CustomFieldDefinition{
		Name: "Effort",
		Type: models.FieldTypeNumber,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)

	renamed, err := svc.UpdateFieldDefinition(added.ID, FieldChanges{Name: strPtr("Story points")})
	require.NoError(t, err)
	assert.Equal(t, "Story points", renamed.Name)

	require.NoError(t, svc.DeleteFieldDefinition(added.ID))
	assert.ErrorIs(t, svc.DeleteFieldDefinition(added.ID), ErrFieldNotFound)

	_, err = svc.UpdateFieldDefinition("missing", FieldChanges{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrFieldNotFound)

	_, err = svc.AddFieldDefinition(models.CustomFieldDefinition{Name: "Bad", Type: "json"})
	assert.ErrorIs(t, err, ErrInvalidFieldType)
}

func TestDeleteFieldDefinitionLeavesTaskValuesOrphaned(t *testing.T) {
	svc, _ := newTestBoard(t)
	task, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Title:        "Write spec",
		Priority:     models.PriorityHigh,
		Status:       models.StatusTodo,
		CustomFields: map[string]string{"category": "Backend"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFieldDefinition("category"))

	tasks := svc.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Backend", tasks[0].CustomFields["category"], "task data is not cleaned up")
	_ = task
}

func TestRemindersSplitOverdueAndDueToday(t *testing.T) {
	svc, _ := newTestBoard(t)
	now := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)

	past := now.AddDate(0, 0, -3)
	_, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Title:    "Late report",
		Priority: models.PriorityHigh,
		Status:   models.StatusTodo,
		DueDate:  &past,
	})
	require.NoError(t, err)

	today := now
	_, err = svc.CreateTask(context.Background(), CreateTaskParams{
		Title:    "Standup notes",
		Priority: models.PriorityLow,
		Status:   models.StatusInProgress,
		DueDate:  &today,
	})
	require.NoError(t, err)

	donePast := now.AddDate(0, 0, -1)
	doneTask, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Title:    "Shipped feature",
		Priority: models.PriorityLow,
		Status:   models.StatusDone,
		DueDate:  &donePast,
	})
	require.NoError(t, err)

	overdue, dueToday := svc.Reminders(now)

	require.Len(t, overdue, 1)
	assert.Equal(t, "Late report", overdue[0].Title)
	require.Len(t, dueToday, 1)
	assert.Equal(t, "Standup notes", dueToday[0].Title)
	for _, task := range overdue {
		assert.NotEqual(t, doneTask.ID, task.ID, "done tasks never remind")
	}
}
