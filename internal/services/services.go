package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adanyl0v/go-taskboard/internal/filter"
	"github.com/adanyl0v/go-taskboard/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserPasswordMismatch = errors.New("user password mismatch")

	ErrUnauthenticated    = errors.New("not authenticated")
	ErrTaskNotFound       = errors.New("task not found")
	ErrFieldNotFound      = errors.New("custom field definition not found")
	ErrEmptyTitle         = errors.New("title must not be empty")
	ErrInvalidPriority    = errors.New("invalid task priority")
	ErrInvalidStatus      = errors.New("invalid task status")
	ErrInvalidFieldType   = errors.New("invalid custom field type")
	ErrInvalidFilterValue = errors.New("invalid filter value")
)

type AuthService interface {
	// Register creates a user with a hashed password and issues an
	// access token.
	//
	// It returns ErrUserAlreadyExists if the email is taken.
	Register(ctx context.Context, params CredentialsParams) (*AuthResult, error)

	// Login authenticates by email and password and issues an access
	// token.
	//
	// It returns ErrUserNotFound if no such user exists or
	// ErrUserPasswordMismatch if the password does not match.
	Login(ctx context.Context, params CredentialsParams) (*AuthResult, error)

	// ParseAccessToken parses and verifies an access token and returns
	// its registered claims; the subject is the user id.
	ParseAccessToken(token string) (*jwt.RegisteredClaims, error)
}

type CredentialsParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	UserID               string
	AccessToken          string
	AccessTokenExpiresAt time.Time
}

// BoardService owns the authoritative local task collection, the filter
// and the custom field definitions. Persisted operations are
// remote-first: local state changes only after the remote store
// confirms, so a transport failure leaves the board exactly as it was.
type BoardService interface {
	// Bind attaches the board to an authenticated identity and performs
	// the initial fetch of the remote collection.
	Bind(ctx context.Context, userID string) error
	// Unbind detaches the identity. Local state and cache survive.
	Unbind()
	// Identity returns the bound user id, or "" when unbound.
	Identity() string

	// Resync replaces the local collection with the remote one.
	// Concurrent calls serialize; the most recent fetch wins.
	Resync(ctx context.Context) error

	Tasks() []models.Task
	Columns(now time.Time) filter.Columns
	CurrentFilter() models.Filter
	FieldDefinitions() []models.CustomFieldDefinition
	// Reminders returns the overdue tasks and those due today.
	Reminders(now time.Time) (overdue, dueToday []models.Task)

	CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, changes TaskChanges) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	// MoveTask sets the status and always logs a "moved" entry, even
	// when the target column equals the current one.
	MoveTask(ctx context.Context, id string, status models.TaskStatus) (*models.Task, error)

	AddSubtask(ctx context.Context, id, title string) (*models.Task, error)
	// ToggleSubtask flips the named subtask's completed flag. A missing
	// subtask id is a silent no-op.
	ToggleSubtask(ctx context.Context, id, subtaskID string) (*models.Task, error)
	// DeleteSubtask removes the named subtask. A missing subtask id is
	// a silent no-op.
	DeleteSubtask(ctx context.Context, id, subtaskID string) (*models.Task, error)

	SetSearchFilter(search string)
	SetPriorityFilter(priority string) error
	SetStatusFilter(status string) error
	SetCategoryFilter(category string)
	SetDueDateFilter(dueDate models.DueDateFilter) error

	AddFieldDefinition(def models.CustomFieldDefinition) (*models.CustomFieldDefinition, error)
	UpdateFieldDefinition(id string, changes FieldChanges) (*models.CustomFieldDefinition, error)
	// DeleteFieldDefinition removes a definition. Task data referencing
	// it is left alone; orphaned references are accepted.
	DeleteFieldDefinition(id string) error
}

type CreateTaskParams struct {
	Title        string
	Description  string
	Priority     models.TaskPriority
	Status       models.TaskStatus
	DueDate      *time.Time
	CustomFields map[string]string
}

// TaskChanges is the table of allowed mutable fields for UpdateTask.
// Nil pointer and nil container fields are left untouched. When
// ActivityLog is nil the update logs a generic "updated" entry naming
// the changed fields; composite operations pass the full log themselves.
type TaskChanges struct {
	Title        *string
	Description  *string
	Priority     *models.TaskPriority
	Status       *models.TaskStatus
	DueDate      *time.Time
	ClearDueDate bool
	Subtasks     []models.Subtask
	CustomFields map[string]string
	ActivityLog  []models.ActivityEntry
}

type FieldChanges struct {
	Name         *string
	Type         *models.CustomFieldType
	Options      []string
	Required     *bool
	DefaultValue *string
}
