package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemart-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError classifies err and writes its status and client-safe message.
func RespondAPIError(c *gin.Context, err error) {
	target := apierr.From(err)
	if target == nil {
		target = apierr.Internal(errors.New("empty error"))
	}
	if target.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(target.Status, ErrorEnvelope{
		Error: APIError{
			Message: target.Message(),
			Code:    target.Code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
