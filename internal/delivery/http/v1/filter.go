package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-taskboard/internal/models"
)

type filterResponse struct {
	Search   string `json:"search"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
	Category string `json:"category"`
	DueDate  string `json:"due_date"`
}

func newFilterResponse(f models.Filter) filterResponse {
	return filterResponse{
		Search:   f.Search,
		Priority: f.Priority,
		Status:   f.Status,
		Category: f.Category,
		DueDate:  string(f.DueDate),
	}
}

func (h *handlerImpl) HandleGetFilter(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}
	c.JSON(http.StatusOK, newFilterResponse(h.board.CurrentFilter()))
}

// setFilterRequest updates any subset of the five filter dimensions;
// absent fields are left as they are.
type setFilterRequest struct {
	Search   *string `json:"search,omitempty"`
	Priority *string `json:"priority,omitempty" binding:"omitempty,oneof=all low medium high"`
	Status   *string `json:"status,omitempty" binding:"omitempty,oneof=all todo inprogress done"`
	Category *string `json:"category,omitempty"`
	DueDate  *string `json:"due_date,omitempty" binding:"omitempty,oneof='' overdue today thisWeek thisMonth"`
}

func (h *handlerImpl) HandleSetFilter(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}

	var req setFilterRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	if req.Search != nil {
		h.board.SetSearchFilter(*req.Search)
	}
	if req.Priority != nil {
		if err = h.board.SetPriorityFilter(*req.Priority); err != nil {
			abortBoardError(c, err)
			return
		}
	}
	if req.Status != nil {
		if err = h.board.SetStatusFilter(*req.Status); err != nil {
			abortBoardError(c, err)
			return
		}
	}
	if req.Category != nil {
		h.board.SetCategoryFilter(*req.Category)
	}
	if req.DueDate != nil {
		if err = h.board.SetDueDateFilter(models.DueDateFilter(*req.DueDate)); err != nil {
			abortBoardError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, newFilterResponse(h.board.CurrentFilter()))
}
