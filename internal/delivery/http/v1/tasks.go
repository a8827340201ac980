package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-taskboard/internal/models"
	"github.com/adanyl0v/go-taskboard/internal/services"
)

type subtaskResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type activityEntryResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

type taskResponse struct {
	ID           string                  `json:"id"`
	Title        string                  `json:"title"`
	Description  string                  `json:"description"`
	Priority     string                  `json:"priority"`
	Status       string                  `json:"status"`
	DueDate      *string                 `json:"due_date,omitempty"`
	Subtasks     []subtaskResponse       `json:"subtasks"`
	ActivityLog  []activityEntryResponse `json:"activity_log"`
	CustomFields map[string]string       `json:"custom_fields"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

const dueDateLayout = "2006-01-02"

func newTaskResponse(task *models.Task) taskResponse {
	resp := taskResponse{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Priority:     string(task.Priority),
		Status:       string(task.Status),
		Subtasks:     make([]subtaskResponse, 0, len(task.Subtasks)),
		ActivityLog:  make([]activityEntryResponse, 0, len(task.ActivityLog)),
		CustomFields: task.CustomFields,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
	if task.DueDate != nil {
		due := task.DueDate.Format(dueDateLayout)
		resp.DueDate = &due
	}
	for _, st := range task.Subtasks {
		resp.Subtasks = append(resp.Subtasks, subtaskResponse(st))
	}
	for _, entry := range task.ActivityLog {
		resp.ActivityLog = append(resp.ActivityLog, activityEntryResponse(entry))
	}
	return resp
}

func newTaskListResponse(tasks []models.Task) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, newTaskResponse(&tasks[i]))
	}
	return out
}

func (h *handlerImpl) HandleGetTasks(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}
	c.JSON(http.StatusOK, newTaskListResponse(h.board.Tasks()))
}

type createTaskRequest struct {
	Title        string            `json:"title" binding:"required,max=255"`
	Description  *string           `json:"description,omitempty"`
	Priority     string            `json:"priority" binding:"required,oneof=low medium high"`
	Status       string            `json:"status" binding:"required,oneof=todo inprogress done"`
	DueDate      *string           `json:"due_date,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}

	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	params := services.CreateTaskParams{
		Title:        req.Title,
		Priority:     models.TaskPriority(req.Priority),
		Status:       models.TaskStatus(req.Status),
		CustomFields: req.CustomFields,
	}
	if req.Description != nil {
		params.Description = *req.Description
	}
	if req.DueDate != nil {
		due, parseErr := time.Parse(dueDateLayout, *req.DueDate)
		if parseErr != nil {
			abort(c, newBadRequestError("invalid due date"))
			return
		}
		params.DueDate = &due
	}

	task, err := h.board.CreateTask(c, params)
	if err != nil {
		abortBoardError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTaskResponse(task))
}

type updateTaskRequest struct {
	Title        *string           `json:"title,omitempty" binding:"omitempty,max=255"`
	Description  *string           `json:"description,omitempty"`
	Priority     *string           `json:"priority,omitempty" binding:"omitempty,oneof=low medium high"`
	Status       *string           `json:"status,omitempty" binding:"omitempty,oneof=todo inprogress done"`
	DueDate      *string           `json:"due_date,omitempty"`
	ClearDueDate bool              `json:"clear_due_date,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	changes := services.TaskChanges{
		Title:        req.Title,
		Description:  req.Description,
		ClearDueDate: req.ClearDueDate,
		CustomFields: req.CustomFields,
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		changes.Priority = &priority
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		changes.Status = &status
	}
	if req.DueDate != nil {
		due, parseErr := time.Parse(dueDateLayout, *req.DueDate)
		if parseErr != nil {
			abort(c, newBadRequestError("invalid due date"))
			return
		}
		changes.DueDate = &due
	}

	task, err := h.board.UpdateTask(c, c.Param("id"), changes)
	if err != nil {
		abortBoardError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}

	err := h.board.DeleteTask(c, c.Param("id"))
	if err != nil {
		abortBoardError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type moveTaskRequest struct {
	Status string `json:"status" binding:"required,oneof=todo inprogress done"`
}

func (h *handlerImpl) HandleMoveTask(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}

	var req moveTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.board.MoveTask(c, c.Param("id"), models.TaskStatus(req.Status))
	if err != nil {
		abortBoardError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

type addSubtaskRequest struct {
	Title string `json:"title" binding:"required,max=255"`
}

func (h *handlerImpl) HandleAddSubtask(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}

	var req addSubtaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.board.AddSubtask(c, c.Param("id"), req.Title)
	if err != nil {
		abortBoardError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handlerImpl) HandleToggleSubtask(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}

	task, err := h.board.ToggleSubtask(c, c.Param("id"), c.Param("subtaskID"))
	if err != nil {
		abortBoardError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handlerImpl) HandleDeleteSubtask(c *gin.Context) {
	if _, ok := h.boundUserID(c); !ok {
		return
	}

	task, err := h.board.DeleteSubtask(c, c.Param("id"), c.Param("subtaskID"))
	if err != nil {
		abortBoardError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(task))
}
