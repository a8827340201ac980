// Package filter implements the board's task filtering and column
// partitioning. Everything here is pure: the current time is always a
// parameter, and no function mutates its inputs.
package filter

import (
	"strings"
	"time"

	"github.com/adanyl0v/go-taskboard/internal/models"
)

// Matches reports whether a task passes the filter. The five dimensions
// compose as a logical AND.
func Matches(task models.Task, f models.Filter, now time.Time) bool {
	return matchesSearch(task, f.Search) &&
		matchesPriority(task, f.Priority) &&
		matchesStatus(task, f.Status) &&
		matchesCategory(task, f.Category) &&
		matchesDueDate(task, f.DueDate, now)
}

// Apply returns the tasks passing the filter, preserving input order.
func Apply(tasks []models.Task, f models.Filter, now time.Time) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if Matches(t, f, now) {
			out = append(out, t)
		}
	}
	return out
}

// Columns is the board view: one ordered group per status.
type Columns struct {
	Todo       []models.Task `json:"todo"`
	InProgress []models.Task `json:"inprogress"`
	Done       []models.Task `json:"done"`
}

// Partition splits tasks into the three status columns. The partition is
// total and order-preserving relative to the input sequence.
func Partition(tasks []models.Task) Columns {
	cols := Columns{
		Todo:       []models.Task{},
		InProgress: []models.Task{},
		Done:       []models.Task{},
	}
	for _, t := range tasks {
		switch t.Status {
		case models.StatusInProgress:
			cols.InProgress = append(cols.InProgress, t)
		case models.StatusDone:
			cols.Done = append(cols.Done, t)
		default:
			cols.Todo = append(cols.Todo, t)
		}
	}
	return cols
}

func matchesSearch(task models.Task, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(task.Title), needle) ||
		strings.Contains(strings.ToLower(task.Description), needle)
}

func matchesPriority(task models.Task, priority string) bool {
	return priority == models.FilterAll || string(task.Priority) == priority
}

func matchesStatus(task models.Task, status string) bool {
	return status == models.FilterAll || string(task.Status) == status
}

func matchesCategory(task models.Task, category string) bool {
	if category == "" {
		return true
	}
	// An unset category field never matches a concrete selection.
	return task.CustomFields["category"] == category
}

func matchesDueDate(task models.Task, bucket models.DueDateFilter, now time.Time) bool {
	if bucket == models.DueDateNone {
		return true
	}
	if task.DueDate == nil {
		return false
	}
	return InBucket(*task.DueDate, bucket, now)
}

// InBucket classifies a due date against one of the named buckets,
// comparing at day precision.
func InBucket(due time.Time, bucket models.DueDateFilter, now time.Time) bool {
	d := Day(due)
	today := Day(now)

	switch bucket {
	case models.DueDateOverdue:
		return d.Before(today)
	case models.DueDateToday:
		return d.Equal(today)
	case models.DueDateThisWeek:
		// The week runs from today through the upcoming Sunday-start
		// week boundary, inclusive.
		end := today.AddDate(0, 0, 7-int(today.Weekday()))
		return !d.Before(today) && !d.After(end)
	case models.DueDateThisMonth:
		end := Day(time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, time.UTC))
		return !d.Before(today) && !d.After(end)
	}
	return false
}

// Day truncates a timestamp to its calendar date, normalized to UTC so
// that dates from the remote store and the local clock compare cleanly.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
