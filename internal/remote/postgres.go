package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskboard/internal/models"
)

type postgresAdapter struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewPostgresAdapter(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) Adapter {
	return &postgresAdapter{
		logger: logger,
		pgPool: pgPool,
	}
}

func (a *postgresAdapter) FetchAll(ctx context.Context, userID string) ([]models.Task, error) {
	const selectTasksQuery = `
SELECT id,
       user_id,
       title,
       description,
       priority,
       status,
       due_date,
       subtasks,
       activity_log,
       custom_fields,
       created_at,
       updated_at
FROM tasks
WHERE user_id = $1
ORDER BY created_at DESC
`
	rows, err := a.pgPool.Query(
		ctx,
		selectTasksQuery,
		userID,
	)
	if err != nil {
		a.logger.Error().
			Err(err).
			Msg("failed to select tasks")
		return nil, err
	}
	defer rows.Close()

	tasks := make([]models.Task, 0, 32)
	for rows.Next() {
		var rec record
		err = rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Title,
			&rec.Description,
			&rec.Priority,
			&rec.Status,
			&rec.DueDate,
			&rec.Subtasks,
			&rec.ActivityLog,
			&rec.CustomFields,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			a.logger.Error().
				Err(err).
				Msg("failed to scan task record")
			return nil, err
		}

		task, err := rec.toTask()
		if err != nil {
			a.logger.Error().
				Err(err).
				Str("task_id", rec.ID).
				Msg("failed to decode task record")
			return nil, err
		}
		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		a.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}

	a.logger.Debug().
		Int("count", len(tasks)).
		Str("user_id", userID).
		Msg("fetched tasks")
	return tasks, nil
}

func (a *postgresAdapter) Insert(ctx context.Context, userID string, draft Draft) (*models.Task, error) {
	if userID == "" {
		a.logger.Error().Msg("insert requires an authenticated identity")
		return nil, ErrUnauthenticated
	}

	subtasks := draft.Subtasks
	if subtasks == nil {
		subtasks = []models.Subtask{}
	}
	customFields := draft.CustomFields
	if customFields == nil {
		customFields = map[string]string{}
	}

	subtasksJSON, err := json.Marshal(subtasks)
	if err != nil {
		return nil, err
	}
	customFieldsJSON, err := json.Marshal(customFields)
	if err != nil {
		return nil, err
	}

	const insertTaskQuery = `
INSERT INTO tasks (user_id,
                   title,
                   description,
                   priority,
                   status,
                   due_date,
                   subtasks,
                   custom_fields)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at, updated_at
`
	task := models.Task{
		Title:        draft.Title,
		Description:  draft.Description,
		Priority:     draft.Priority,
		Status:       draft.Status,
		DueDate:      draft.DueDate,
		Subtasks:     subtasks,
		CustomFields: customFields,
	}
	err = a.pgPool.QueryRow(
		ctx,
		insertTaskQuery,
		userID,
		draft.Title,
		draft.Description,
		string(draft.Priority),
		string(draft.Status),
		draft.DueDate,
		subtasksJSON,
		customFieldsJSON,
	).Scan(
		&task.ID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		a.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return nil, err
	}

	// The server does not hand the created entry back; it is synthesized
	// here so a fresh task always starts with a one-entry log.
	task.ActivityLog = []models.ActivityEntry{
		models.NewActivityEntry(models.ActionCreated, "Task created"),
	}

	a.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", userID).
		Msg("inserted task")
	return &task, nil
}

func (a *postgresAdapter) Patch(ctx context.Context, id string, patch Patch) error {
	assignments := make([]string, 0, 9)
	args := make([]any, 0, 10)

	setArg := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		setArg("title", *patch.Title)
	}
	if patch.Description != nil {
		setArg("description", *patch.Description)
	}
	if patch.Priority != nil {
		setArg("priority", string(*patch.Priority))
	}
	if patch.Status != nil {
		setArg("status", string(*patch.Status))
	}
	if patch.ClearDueDate {
		setArg("due_date", nil)
	} else if patch.DueDate != nil {
		setArg("due_date", *patch.DueDate)
	}
	if patch.Subtasks != nil {
		subtasksJSON, err := json.Marshal(patch.Subtasks)
		if err != nil {
			return err
		}
		setArg("subtasks", subtasksJSON)
	}
	if patch.ActivityLog != nil {
		activityLogJSON, err := json.Marshal(patch.ActivityLog)
		if err != nil {
			return err
		}
		setArg("activity_log", activityLogJSON)
	}
	if patch.CustomFields != nil {
		customFieldsJSON, err := json.Marshal(patch.CustomFields)
		if err != nil {
			return err
		}
		setArg("custom_fields", customFieldsJSON)
	}
	setArg("updated_at", patch.UpdatedAt)

	args = append(args, id)
	updateTaskQuery := fmt.Sprintf(
		"UPDATE tasks SET %s WHERE id = $%d",
		strings.Join(assignments, ", "),
		len(args),
	)

	tag, err := a.pgPool.Exec(ctx, updateTaskQuery, args...)
	if err != nil {
		a.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to patch task")
		return err
	}
	if tag.RowsAffected() == 0 {
		a.logger.Error().
			Str("task_id", id).
			Msg("task record not found")
		return ErrRecordNotFound
	}

	a.logger.Debug().
		Str("task_id", id).
		Msg("patched task")
	return nil
}

func (a *postgresAdapter) Remove(ctx context.Context, id string) error {
	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1
`
	tag, err := a.pgPool.Exec(
		ctx,
		deleteTaskQuery,
		id,
	)
	if err != nil {
		a.logger.Error().
			Err(err).
			Str("task_id", id).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		// Idempotent delete: the record being gone already is success.
		a.logger.Warn().
			Str("task_id", id).
			Msg("task record already deleted")
		return nil
	}

	a.logger.Info().
		Str("task_id", id).
		Msg("deleted task")
	return nil
}
