package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-taskboard/internal/config"
	v1 "github.com/adanyl0v/go-taskboard/internal/delivery/http/v1"
	"github.com/adanyl0v/go-taskboard/internal/services"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	registerRoutes(router)

	server := &http.Server{
		Addr:    net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler: router,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// Wait for the interrupt signal to gracefully
	// shut down the server with a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	// kill (no params) by default sends syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need to add it
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func registerRoutes(router gin.IRouter) {
	jwtCfg := config.Global().JWT
	authService := services.NewAuthService(
		globalLogger,
		globalPostgresPool,
		jwtCfg.Issuer,
		[]byte(jwtCfg.SigningKey),
		jwtCfg.AccessTokenTTL,
	)
	v1Handler := v1.New(
		globalLogger,
		authService,
		globalBoard,
		globalListener,
	)
	router = router.Group("/api/v1")

	authRouter := router.Group("/auth")
	authRouter.POST("/register", v1Handler.HandleRegister)
	authRouter.POST("/login", v1Handler.HandleLogin)
	authRouter.POST("/logout", v1Handler.HandleAuthMiddleware, v1Handler.HandleLogout)

	boardRouter := router.Group("", v1Handler.HandleAuthMiddleware)
	boardRouter.GET("/board", v1Handler.HandleGetBoard)
	boardRouter.GET("/reminders", v1Handler.HandleGetReminders)

	boardRouter.GET("/tasks", v1Handler.HandleGetTasks)
	boardRouter.POST("/tasks", v1Handler.HandleCreateTask)
	boardRouter.PATCH("/tasks/:id", v1Handler.HandleUpdateTask)
	boardRouter.DELETE("/tasks/:id", v1Handler.HandleDeleteTask)
	boardRouter.POST("/tasks/:id/move", v1Handler.HandleMoveTask)

	boardRouter.POST("/tasks/:id/subtasks", v1Handler.HandleAddSubtask)
	boardRouter.POST("/tasks/:id/subtasks/:subtaskID/toggle", v1Handler.HandleToggleSubtask)
	boardRouter.DELETE("/tasks/:id/subtasks/:subtaskID", v1Handler.HandleDeleteSubtask)

	boardRouter.GET("/filter", v1Handler.HandleGetFilter)
	boardRouter.PATCH("/filter", v1Handler.HandleSetFilter)

	boardRouter.GET("/fields", v1Handler.HandleGetFieldDefinitions)
	boardRouter.POST("/fields", v1Handler.HandleAddFieldDefinition)
	boardRouter.PATCH("/fields/:id", v1Handler.HandleUpdateFieldDefinition)
	boardRouter.DELETE("/fields/:id", v1Handler.HandleDeleteFieldDefinition)
}
