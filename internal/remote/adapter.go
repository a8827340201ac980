// Package remote is the translation and transport boundary between the
// domain task shape and the shared record store. It owns no state.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/adanyl0v/go-taskboard/internal/models"
)

var (
	ErrRecordNotFound  = errors.New("task record not found")
	ErrUnauthenticated = errors.New("not authenticated")
)

// Draft is the shape submitted on insert: everything the server does not
// assign itself. Subtasks and custom fields ride along; the activity log
// does not (the created entry is synthesized client-side, see Insert).
type Draft struct {
	Title        string
	Description  string
	Priority     models.TaskPriority
	Status       models.TaskStatus
	DueDate      *time.Time
	Subtasks     []models.Subtask
	CustomFields map[string]string
}

// Patch carries only the fields present in a partial update. Nil pointer
// and nil container fields are left untouched on the remote record.
type Patch struct {
	Title        *string
	Description  *string
	Priority     *models.TaskPriority
	Status       *models.TaskStatus
	DueDate      *time.Time
	ClearDueDate bool
	Subtasks     []models.Subtask
	ActivityLog  []models.ActivityEntry
	CustomFields map[string]string
	UpdatedAt    time.Time
}

// Adapter performs the four remote operations. Implementations surface
// every failure to the caller unchanged: no retries, no local recovery.
type Adapter interface {
	// FetchAll returns all tasks visible to the identity, newest first.
	FetchAll(ctx context.Context, userID string) ([]models.Task, error)

	// Insert persists a draft and returns the server-assigned record as
	// a domain task. It fails with ErrUnauthenticated when userID is
	// empty. The returned task carries a freshly synthesized single
	// "created" activity entry; the server does not store that entry in
	// this exchange.
	Insert(ctx context.Context, userID string, draft Draft) (*models.Task, error)

	// Patch applies a partial update. ErrRecordNotFound when the record
	// does not exist.
	Patch(ctx context.Context, id string, patch Patch) error

	// Remove deletes by id. Deleting an id that is already gone is
	// reported as success (idempotent delete).
	Remove(ctx context.Context, id string) error
}

// record is the wire row shape: snake_case names, nested structures as
// JSON documents.
type record struct {
	ID           string
	UserID       string
	Title        string
	Description  *string
	Priority     string
	Status       string
	DueDate      *time.Time
	Subtasks     []byte
	ActivityLog  []byte
	CustomFields []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// toTask maps a wire record to the domain shape, defaulting an absent
// description to "" and absent nested documents to empty containers.
func (r record) toTask() (models.Task, error) {
	task := models.Task{
		ID:           r.ID,
		Title:        r.Title,
		Priority:     models.TaskPriority(r.Priority),
		Status:       models.TaskStatus(r.Status),
		DueDate:      r.DueDate,
		Subtasks:     []models.Subtask{},
		ActivityLog:  []models.ActivityEntry{},
		CustomFields: map[string]string{},
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Description != nil {
		task.Description = *r.Description
	}
	if len(r.Subtasks) > 0 {
		err := json.Unmarshal(r.Subtasks, &task.Subtasks)
		if err != nil {
			return models.Task{}, err
		}
	}
	if len(r.ActivityLog) > 0 {
		err := json.Unmarshal(r.ActivityLog, &task.ActivityLog)
		if err != nil {
			return models.Task{}, err
		}
	}
	if len(r.CustomFields) > 0 {
		err := json.Unmarshal(r.CustomFields, &task.CustomFields)
		if err != nil {
			return models.Task{}, err
		}
	}
	if task.Subtasks == nil {
		task.Subtasks = []models.Subtask{}
	}
	if task.ActivityLog == nil {
		task.ActivityLog = []models.ActivityEntry{}
	}
	if task.CustomFields == nil {
		task.CustomFields = map[string]string{}
	}
	return task, nil
}
