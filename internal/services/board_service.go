package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskboard/internal/cache"
	"github.com/adanyl0v/go-taskboard/internal/filter"
	"github.com/adanyl0v/go-taskboard/internal/models"
	"github.com/adanyl0v/go-taskboard/internal/remote"
)

type boardServiceImpl struct {
	logger  zerolog.Logger
	adapter remote.Adapter
	cache   cache.Store

	mu          sync.RWMutex
	tasks       []models.Task
	boardFilter models.Filter
	fields      []models.CustomFieldDefinition
	userID      string

	// Persisted operations on the same task serialize on a per-task
	// mutex, so remote responses always apply in the order the requests
	// were initiated.
	inflightMu sync.Mutex
	inflight   map[string]*sync.Mutex

	// At most one resync fetch runs at a time; a later caller waits for
	// the earlier fetch and then runs its own, so the freshest fetch is
	// always the one applied last.
	resyncMu sync.Mutex
}

func NewBoardService(
	logger zerolog.Logger,
	adapter remote.Adapter,
	cacheStore cache.Store,
) BoardService {
	snap := cacheStore.Load()
	return &boardServiceImpl{
		logger:      logger,
		adapter:     adapter,
		cache:       cacheStore,
		tasks:       snap.Tasks,
		boardFilter: snap.Filter,
		fields:      snap.CustomFieldDefinitions,
		inflight:    map[string]*sync.Mutex{},
	}
}

func (s *boardServiceImpl) Bind(ctx context.Context, userID string) error {
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()

	s.logger.Info().
		Str("user_id", userID).
		Msg("bound board to identity")
	return s.Resync(ctx)
}

func (s *boardServiceImpl) Unbind() {
	s.mu.Lock()
	s.userID = ""
	s.mu.Unlock()
	s.logger.Info().Msg("unbound board identity")
}

func (s *boardServiceImpl) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *boardServiceImpl) Resync(ctx context.Context) error {
	s.resyncMu.Lock()
	defer s.resyncMu.Unlock()

	userID := s.Identity()
	if userID == "" {
		return ErrUnauthenticated
	}

	tasks, err := s.adapter.FetchAll(ctx, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to fetch tasks for resync")
		return err
	}

	s.mu.Lock()
	s.tasks = tasks
	s.saveLocked()
	s.mu.Unlock()

	s.logger.Debug().
		Int("count", len(tasks)).
		Msg("resynced board from remote")
	return nil
}

func (s *boardServiceImpl) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneTasks(s.tasks)
}

func (s *boardServiceImpl) Columns(now time.Time) filter.Columns {
	s.mu.RLock()
	tasks := models.CloneTasks(s.tasks)
	f := s.boardFilter
	s.mu.RUnlock()
	return filter.Partition(filter.Apply(tasks, f, now))
}

func (s *boardServiceImpl) CurrentFilter() models.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.boardFilter
}

func (s *boardServiceImpl) FieldDefinitions() []models.CustomFieldDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CustomFieldDefinition, len(s.fields))
	for i, def := range s.fields {
		out[i] = def.Clone()
	}
	return out
}

func (s *boardServiceImpl) Reminders(now time.Time) (overdue, dueToday []models.Task) {
	s.mu.RLock()
	tasks := models.CloneTasks(s.tasks)
	s.mu.RUnlock()

	overdue = []models.Task{}
	dueToday = []models.Task{}
	for _, t := range tasks {
		if t.DueDate == nil || t.Status == models.StatusDone {
			continue
		}
		switch {
		case filter.InBucket(*t.DueDate, models.DueDateOverdue, now):
			overdue = append(overdue, t)
		case filter.InBucket(*t.DueDate, models.DueDateToday, now):
			dueToday = append(dueToday, t)
		}
	}
	return overdue, dueToday
}

func (s *boardServiceImpl) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	userID := s.Identity()
	if userID == "" {
		s.logger.Error().Msg("create requires a bound identity")
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrEmptyTitle
	}
	if !params.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if !params.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	// Subtasks and activity history are never taken from a draft; a new
	// task starts with no subtasks and a seed "created" entry.
	task, err := s.adapter.Insert(ctx, userID, remote.Draft{
		Title:        params.Title,
		Description:  params.Description,
		Priority:     params.Priority,
		Status:       params.Status,
		DueDate:      params.DueDate,
		CustomFields: params.CustomFields,
	})
	if err != nil {
		if errors.Is(err, remote.ErrUnauthenticated) {
			return nil, ErrUnauthenticated
		}
		s.logger.Error().
			Err(err).
			Msg("failed to create task")
		return nil, err
	}

	s.mu.Lock()
	s.tasks = append([]models.Task{task.Clone()}, s.tasks...)
	s.saveLocked()
	s.mu.Unlock()

	s.logger.Info().
		Str("task_id", task.ID).
		Msg("created task")
	return task, nil
}

func (s *boardServiceImpl) UpdateTask(ctx context.Context, id string, changes TaskChanges) (*models.Task, error) {
	if changes.Title != nil && strings.TrimSpace(*changes.Title) == "" {
		return nil, ErrEmptyTitle
	}
	if changes.Priority != nil && !changes.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if changes.Status != nil && !changes.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	return s.mutateTask(ctx, id, func(models.Task) (TaskChanges, bool, error) {
		return changes, true, nil
	})
}

func (s *boardServiceImpl) DeleteTask(ctx context.Context, id string) error {
	unlock := s.lockInflight(id)
	defer unlock()

	s.mu.RLock()
	idx := s.indexOfLocked(id)
	s.mu.RUnlock()
	if idx < 0 {
		return ErrTaskNotFound
	}

	err := s.adapter.Remove(ctx, id)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to delete task")
		return err
	}

	s.mu.Lock()
	if idx = s.indexOfLocked(id); idx >= 0 {
		s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	}
	s.saveLocked()
	s.mu.Unlock()

	s.inflightMu.Lock()
	delete(s.inflight, id)
	s.inflightMu.Unlock()

	s.logger.Info().
		Str("task_id", id).
		Msg("deleted task")
	return nil
}

func (s *boardServiceImpl) MoveTask(ctx context.Context, id string, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	return s.mutateTask(ctx, id, func(current models.Task) (TaskChanges, bool, error) {
		// The moved entry is logged even when the target column equals
		// the current one.
		entry := models.NewActivityEntry(
			models.ActionMoved,
			fmt.Sprintf("Moved from %s to %s", current.Status, status),
		)
		target := status
		return TaskChanges{
			Status:      &target,
			ActivityLog: prependEntry(current.ActivityLog, entry),
		}, true, nil
	})
}

func (s *boardServiceImpl) AddSubtask(ctx context.Context, id, title string) (*models.Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}

	return s.mutateTask(ctx, id, func(current models.Task) (TaskChanges, bool, error) {
		subtask := models.Subtask{
			ID:    newID(),
			Title: title,
		}
		entry := models.NewActivityEntry(
			models.ActionSubtaskAdded,
			fmt.Sprintf("Added subtask: %s", title),
		)
		return TaskChanges{
			Subtasks:    append(current.Subtasks, subtask),
			ActivityLog: prependEntry(current.ActivityLog, entry),
		}, true, nil
	})
}

func (s *boardServiceImpl) ToggleSubtask(ctx context.Context, id, subtaskID string) (*models.Task, error) {
	return s.mutateTask(ctx, id, func(current models.Task) (TaskChanges, bool, error) {
		idx := indexOfSubtask(current.Subtasks, subtaskID)
		if idx < 0 {
			return TaskChanges{}, false, nil
		}

		subtasks := current.Subtasks
		subtasks[idx].Completed = !subtasks[idx].Completed

		action, verb := models.ActionSubtaskUncompleted, "Uncompleted"
		if subtasks[idx].Completed {
			action, verb = models.ActionSubtaskCompleted, "Completed"
		}
		entry := models.NewActivityEntry(
			action,
			fmt.Sprintf("%s subtask: %s", verb, subtasks[idx].Title),
		)
		return TaskChanges{
			Subtasks:    subtasks,
			ActivityLog: prependEntry(current.ActivityLog, entry),
		}, true, nil
	})
}

func (s *boardServiceImpl) DeleteSubtask(ctx context.Context, id, subtaskID string) (*models.Task, error) {
	return s.mutateTask(ctx, id, func(current models.Task) (TaskChanges, bool, error) {
		idx := indexOfSubtask(current.Subtasks, subtaskID)
		if idx < 0 {
			return TaskChanges{}, false, nil
		}

		title := current.Subtasks[idx].Title
		subtasks := append(current.Subtasks[:idx], current.Subtasks[idx+1:]...)
		entry := models.NewActivityEntry(
			models.ActionSubtaskDeleted,
			fmt.Sprintf("Deleted subtask: %s", title),
		)
		return TaskChanges{
			Subtasks:    subtasks,
			ActivityLog: prependEntry(current.ActivityLog, entry),
		}, true, nil
	})
}

// mutateTask runs one persisted state transition on a task: snapshot the
// current value, let build derive the changes, confirm them remotely,
// then commit locally. A failed remote call leaves local state untouched.
// build returning false means "nothing to do" and skips the remote call.
func (s *boardServiceImpl) mutateTask(
	ctx context.Context,
	id string,
	build func(current models.Task) (TaskChanges, bool, error),
) (*models.Task, error) {
	unlock := s.lockInflight(id)
	defer unlock()

	s.mu.RLock()
	idx := s.indexOfLocked(id)
	var current models.Task
	if idx >= 0 {
		current = s.tasks[idx].Clone()
	}
	s.mu.RUnlock()
	if idx < 0 {
		return nil, ErrTaskNotFound
	}

	changes, apply, err := build(current)
	if err != nil {
		return nil, err
	}
	if !apply {
		return &current, nil
	}

	updated := applyTaskChanges(current, changes, time.Now())

	err = s.adapter.Patch(ctx, id, remote.Patch{
		Title:        changes.Title,
		Description:  changes.Description,
		Priority:     changes.Priority,
		Status:       changes.Status,
		DueDate:      changes.DueDate,
		ClearDueDate: changes.ClearDueDate,
		Subtasks:     changes.Subtasks,
		ActivityLog:  updated.ActivityLog,
		CustomFields: changes.CustomFields,
		UpdatedAt:    updated.UpdatedAt,
	})
	if err != nil {
		if errors.Is(err, remote.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		s.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to persist task mutation")
		return nil, err
	}

	s.mu.Lock()
	if idx = s.indexOfLocked(id); idx >= 0 {
		s.tasks[idx] = updated.Clone()
	} else {
		// A resync dropped the task between snapshot and commit; the
		// remote store just confirmed it exists, so put it back.
		s.tasks = append([]models.Task{updated.Clone()}, s.tasks...)
	}
	s.saveLocked()
	s.mu.Unlock()

	s.logger.Debug().
		Str("task_id", id).
		Msg("applied task mutation")
	return &updated, nil
}

func (s *boardServiceImpl) SetSearchFilter(search string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boardFilter.Search = search
	s.saveLocked()
}

func (s *boardServiceImpl) SetPriorityFilter(priority string) error {
	if priority != models.FilterAll && !models.TaskPriority(priority).Valid() {
		return ErrInvalidFilterValue
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boardFilter.Priority = priority
	s.saveLocked()
	return nil
}

func (s *boardServiceImpl) SetStatusFilter(status string) error {
	if status != models.FilterAll && !models.TaskStatus(status).Valid() {
		return ErrInvalidFilterValue
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boardFilter.Status = status
	s.saveLocked()
	return nil
}

func (s *boardServiceImpl) SetCategoryFilter(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boardFilter.Category = category
	s.saveLocked()
}

func (s *boardServiceImpl) SetDueDateFilter(dueDate models.DueDateFilter) error {
	if !dueDate.Valid() {
		return ErrInvalidFilterValue
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boardFilter.DueDate = dueDate
	s.saveLocked()
	return nil
}

func (s *boardServiceImpl) AddFieldDefinition(def models.CustomFieldDefinition) (*models.CustomFieldDefinition, error) {
	if strings.TrimSpace(def.Name) == "" {
		return nil, ErrEmptyTitle
	}
	if !def.Type.Valid() {
		return nil, ErrInvalidFieldType
	}
	if def.ID == "" {
		def.ID = newID()
	}
	if def.Options == nil {
		def.Options = []string{}
	}

	s.mu.Lock()
	s.fields = append(s.fields, def.Clone())
	s.saveLocked()
	s.mu.Unlock()

	s.logger.Info().
		Str("field_id", def.ID).
		Str("name", def.Name).
		Msg("added custom field definition")
	return &def, nil
}

func (s *boardServiceImpl) UpdateFieldDefinition(id string, changes FieldChanges) (*models.CustomFieldDefinition, error) {
	if changes.Type != nil && !changes.Type.Valid() {
		return nil, ErrInvalidFieldType
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.fields {
		if s.fields[i].ID != id {
			continue
		}
		if changes.Name != nil {
			s.fields[i].Name = *changes.Name
		}
		if changes.Type != nil {
			s.fields[i].Type = *changes.Type
		}
		if changes.Options != nil {
			s.fields[i].Options = append([]string{}, changes.Options...)
		}
		if changes.Required != nil {
			s.fields[i].Required = *changes.Required
		}
		if changes.DefaultValue != nil {
			s.fields[i].DefaultValue = *changes.DefaultValue
		}
		s.saveLocked()
		def := s.fields[i].Clone()
		return &def, nil
	}
	return nil, ErrFieldNotFound
}

func (s *boardServiceImpl) DeleteFieldDefinition(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.fields {
		if s.fields[i].ID != id {
			continue
		}
		// Task custom field values referencing the definition are left
		// in place; orphaned references are accepted.
		s.fields = append(s.fields[:i], s.fields[i+1:]...)
		s.saveLocked()
		s.logger.Info().
			Str("field_id", id).
			Msg("deleted custom field definition")
		return nil
	}
	return ErrFieldNotFound
}

// saveLocked snapshots the board into the local cache. Callers hold mu.
// Cache writes are best effort: a failure is logged, never surfaced.
func (s *boardServiceImpl) saveLocked() {
	err := s.cache.Save(cache.Snapshot{
		Tasks:                  models.CloneTasks(s.tasks),
		Filter:                 s.boardFilter,
		CustomFieldDefinitions: s.fields,
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Msg("failed to save board cache")
	}
}

func (s *boardServiceImpl) indexOfLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *boardServiceImpl) lockInflight(id string) func() {
	s.inflightMu.Lock()
	m, ok := s.inflight[id]
	if !ok {
		m = new(sync.Mutex)
		s.inflight[id] = m
	}
	s.inflightMu.Unlock()

	m.Lock()
	return m.Unlock
}

// applyTaskChanges produces the post-transition task value: recognized
// fields are overwritten, updatedAt advances, and exactly one activity
// entry lands at the head of the log unless the caller supplied the full
// log itself.
func applyTaskChanges(current models.Task, changes TaskChanges, now time.Time) models.Task {
	updated := current.Clone()
	changed := make([]string, 0, 7)

	if changes.Title != nil {
		updated.Title = *changes.Title
		changed = append(changed, "title updated")
	}
	if changes.Description != nil {
		updated.Description = *changes.Description
		changed = append(changed, "description updated")
	}
	if changes.Priority != nil {
		updated.Priority = *changes.Priority
		changed = append(changed, "priority updated")
	}
	if changes.Status != nil {
		updated.Status = *changes.Status
		changed = append(changed, "status updated")
	}
	if changes.ClearDueDate {
		updated.DueDate = nil
		changed = append(changed, "due date updated")
	} else if changes.DueDate != nil {
		due := *changes.DueDate
		updated.DueDate = &due
		changed = append(changed, "due date updated")
	}
	if changes.Subtasks != nil {
		updated.Subtasks = make([]models.Subtask, len(changes.Subtasks))
		copy(updated.Subtasks, changes.Subtasks)
		changed = append(changed, "subtasks updated")
	}
	if changes.CustomFields != nil {
		updated.CustomFields = make(map[string]string, len(changes.CustomFields))
		for k, v := range changes.CustomFields {
			updated.CustomFields[k] = v
		}
		changed = append(changed, "custom fields updated")
	}

	updated.UpdatedAt = now
	if changes.ActivityLog != nil {
		updated.ActivityLog = make([]models.ActivityEntry, len(changes.ActivityLog))
		copy(updated.ActivityLog, changes.ActivityLog)
	} else {
		entry := models.NewActivityEntry(models.ActionUpdated, strings.Join(changed, ", "))
		updated.ActivityLog = prependEntry(updated.ActivityLog, entry)
	}
	return updated
}

func prependEntry(log []models.ActivityEntry, entry models.ActivityEntry) []models.ActivityEntry {
	out := make([]models.ActivityEntry, 0, len(log)+1)
	out = append(out, entry)
	return append(out, log...)
}

func indexOfSubtask(subtasks []models.Subtask, id string) int {
	for i := range subtasks {
		if subtasks[i].ID == id {
			return i
		}
	}
	return -1
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
