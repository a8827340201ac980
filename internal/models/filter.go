package models

// FilterAll matches any value on the priority and status dimensions.
const FilterAll = "all"

type DueDateFilter string

const (
	DueDateNone      DueDateFilter = ""
	DueDateOverdue   DueDateFilter = "overdue"
	DueDateToday     DueDateFilter = "today"
	DueDateThisWeek  DueDateFilter = "thisWeek"
	DueDateThisMonth DueDateFilter = "thisMonth"
)

func (d DueDateFilter) Valid() bool {
	switch d {
	case DueDateNone, DueDateOverdue, DueDateToday, DueDateThisWeek, DueDateThisMonth:
		return true
	}
	return false
}

// Filter is ephemeral board state. It is cached locally alongside the
// task snapshot but never persisted to the remote store.
type Filter struct {
	Search   string        `json:"search"`
	Priority string        `json:"priority"`
	Status   string        `json:"status"`
	Category string        `json:"category"`
	DueDate  DueDateFilter `json:"due_date"`
}

func DefaultFilter() Filter {
	return Filter{
		Search:   "",
		Priority: FilterAll,
		Status:   FilterAll,
		Category: "",
		DueDate:  DueDateNone,
	}
}
