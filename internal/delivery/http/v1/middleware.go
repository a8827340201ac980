package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userIDCtxKey = "user_id"

func (h *handlerImpl) HandleAuthMiddleware(c *gin.Context) {
	const authHeader = "Authorization"
	header := c.GetHeader(authHeader)
	if header == "" {
		h.logger.Error().Msg("authorization header required")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	const bearerPrefix = "Bearer"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != bearerPrefix {
		h.logger.Error().Msg("invalid authorization header")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := h.auth.ParseAccessToken(parts[1])
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to parse access token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	c.Set(userIDCtxKey, claims.Subject)
	c.Next()
}

// boundUserID resolves the authenticated identity set by the auth
// middleware, aborting with 401 when it is missing.
func (h *handlerImpl) boundUserID(c *gin.Context) (string, bool) {
	userIDValue, exists := c.Get(userIDCtxKey)
	if !exists {
		h.logger.Error().Msg("no user id found in context")
		c.AbortWithStatus(http.StatusUnauthorized)
		return "", false
	}
	userID, _ := userIDValue.(string)
	return userID, true
}
