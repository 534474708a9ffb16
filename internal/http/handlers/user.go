package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemart-backend/internal/http/response"
	"github.com/yungbote/coursemart-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /api/users/me
func (uh *UserHandler) GetMe(c *gin.Context) {
	doc, err := uh.userService.CurrentUser(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, doc)
}

// GET /api/users/me/history
func (uh *UserHandler) GetWatchHistory(c *gin.Context) {
	doc, err := uh.userService.WatchHistory(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, doc)
}

// GET /api/users/me/progress
func (uh *UserHandler) GetProgress(c *gin.Context) {
	entries, err := uh.userService.Progress(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": entries})
}

func (uh *UserHandler) UpdateMe(c *gin.Context) {
	var req struct {
		Username *string `json:"username" binding:"omitempty,username"`
		Name     *string `json:"name" binding:"omitempty,personname"`
		Email    *string `json:"email" binding:"omitempty,email"`
	}
	if !bind(c, &req) {
		return
	}
	user, err := uh.userService.UpdateAccount(c.Request.Context(), services.AccountUpdate{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": user})
}

func (uh *UserHandler) DeleteMe(c *gin.Context) {
	if err := uh.userService.DeleteAccount(c.Request.Context()); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/lessons/:id/watch
func (uh *UserHandler) RecordWatch(c *gin.Context) {
	if err := uh.userService.RecordWatch(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
