package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-taskboard/internal/feed"
	"github.com/adanyl0v/go-taskboard/internal/services"
)

type Handler interface {
	HandleRegister(c *gin.Context)
	HandleLogin(c *gin.Context)
	HandleLogout(c *gin.Context)
	HandleAuthMiddleware(c *gin.Context)

	HandleGetBoard(c *gin.Context)
	HandleGetReminders(c *gin.Context)

	HandleGetTasks(c *gin.Context)
	HandleCreateTask(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)
	HandleMoveTask(c *gin.Context)

	HandleAddSubtask(c *gin.Context)
	HandleToggleSubtask(c *gin.Context)
	HandleDeleteSubtask(c *gin.Context)

	HandleGetFilter(c *gin.Context)
	HandleSetFilter(c *gin.Context)

	HandleGetFieldDefinitions(c *gin.Context)
	HandleAddFieldDefinition(c *gin.Context)
	HandleUpdateFieldDefinition(c *gin.Context)
	HandleDeleteFieldDefinition(c *gin.Context)
}

type handlerImpl struct {
	logger   zerolog.Logger
	auth     services.AuthService
	board    services.BoardService
	listener *feed.Listener
}

func New(
	logger zerolog.Logger,
	authService services.AuthService,
	boardService services.BoardService,
	listener *feed.Listener,
) Handler {
	return &handlerImpl{
		logger:   logger,
		auth:     authService,
		board:    boardService,
		listener: listener,
	}
}
