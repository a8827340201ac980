package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-taskboard/internal/services"
)

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=255"`
}

type authResponse struct {
	UserID               string    `json:"user_id"`
	AccessToken          string    `json:"access_token"`
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at"`
}

func (h *handlerImpl) HandleRegister(c *gin.Context) {
	var req credentialsRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	result, err := h.auth.Register(c, services.CredentialsParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to register")
		if errors.Is(err, services.ErrUserAlreadyExists) {
			abort(c, newConflictError(services.ErrUserAlreadyExists.Error()))
			return
		}
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	h.bindBoard(c, result.UserID)
	c.JSON(http.StatusCreated, authResponse{
		UserID:               result.UserID,
		AccessToken:          result.AccessToken,
		AccessTokenExpiresAt: result.AccessTokenExpiresAt,
	})
}

func (h *handlerImpl) HandleLogin(c *gin.Context) {
	var req credentialsRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	result, err := h.auth.Login(c, services.CredentialsParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to login")
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			abort(c, newUnauthorizedError(services.ErrUserNotFound.Error()))
		case errors.Is(err, services.ErrUserPasswordMismatch):
			abort(c, newUnauthorizedError(services.ErrUserPasswordMismatch.Error()))
		default:
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	h.bindBoard(c, result.UserID)
	c.JSON(http.StatusOK, authResponse{
		UserID:               result.UserID,
		AccessToken:          result.AccessToken,
		AccessTokenExpiresAt: result.AccessTokenExpiresAt,
	})
}

func (h *handlerImpl) HandleLogout(c *gin.Context) {
	// Identity loss unsubscribes the change feed unconditionally.
	h.listener.Stop()
	h.board.Unbind()
	c.Status(http.StatusNoContent)
}

// bindBoard attaches the board to the identity and subscribes the change
// feed. The initial fetch is best effort here: a transport failure still
// leaves a logged-in client that can retry through resync.
func (h *handlerImpl) bindBoard(c *gin.Context, userID string) {
	err := h.board.Bind(c.Request.Context(), userID)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("initial board sync failed")
	}
	h.listener.Start(context.Background())
}
