package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type boardResponse struct {
	Todo       []taskResponse `json:"todo"`
	InProgress []taskResponse `json:"inprogress"`
	Done       []taskResponse `json:"done"`
}

// HandleGetBoard returns the filtered board partitioned into the three
// status columns.
func (h *handlerImpl) HandleGetBoard(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}

	cols := h.board.Columns(time.Now())
	c.JSON(http.StatusOK, boardResponse{
		Todo:       newTaskListResponse(cols.Todo),
		InProgress: newTaskListResponse(cols.InProgress),
		Done:       newTaskListResponse(cols.Done),
	})
}

type remindersResponse struct {
	Overdue  []taskResponse `json:"overdue"`
	DueToday []taskResponse `json:"due_today"`
}

func (h *handlerImpl) HandleGetReminders(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}

	overdue, dueToday := h.board.Reminders(time.Now())
	c.JSON(http.StatusOK, remindersResponse{
		Overdue:  newTaskListResponse(overdue),
		DueToday: newTaskListResponse(dueToday),
	})
}
