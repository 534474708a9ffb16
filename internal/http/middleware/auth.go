package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursemart-backend/internal/http/response"
	"github.com/yungbote/coursemart-backend/internal/platform/apierr"
	"github.com/yungbote/coursemart-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursemart-backend/internal/platform/logger"
	"github.com/yungbote/coursemart-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), authService: authService}
}

// RequireAuth admits requests carrying a valid access token, either as a
// Bearer Authorization header or as ?token= for clients that cannot set
// headers.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := requestToken(c)
		if !ok {
			abortWith(c, apierr.Unauthorized("missing or invalid token"))
			return
		}
		ctx, err := am.authService.SetContextFromToken(c.Request.Context(), token)
		if err != nil {
			am.log.Debug("access token rejected", "path", c.FullPath(), "error", err)
			abortWith(c, apierr.Unauthorized("missing or invalid token"))
			return
		}
		if ctxutil.UserID(ctx) == uuid.Nil {
			abortWith(c, apierr.Forbidden("forbidden"))
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestToken(c *gin.Context) (string, bool) {
	if scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " "); found && strings.EqualFold(scheme, "Bearer") {
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	token := strings.TrimSpace(c.Query("token"))
	return token, token != ""
}

func abortWith(c *gin.Context, err *apierr.Error) {
	response.RespondAPIError(c, err)
	c.Abort()
}
