package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemart-backend/internal/http/response"
	"github.com/yungbote/coursemart-backend/internal/services"
)

type CurriculumHandler struct {
	curriculumService services.CurriculumService
}

func NewCurriculumHandler(curriculumService services.CurriculumService) *CurriculumHandler {
	return &CurriculumHandler{curriculumService: curriculumService}
}

// POST /api/courses/:id/modules
func (ch *CurriculumHandler) AddModule(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required,max=120"`
		Description string `json:"description" binding:"omitempty,description"`
		Position    int    `json:"position" binding:"required,min=1"`
	}
	if !bind(c, &req) {
		return
	}
	m, err := ch.curriculumService.AddModule(c.Request.Context(), c.Param("id"), services.ModuleInput{
		Title:       req.Title,
		Description: req.Description,
		Position:    req.Position,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"module": m})
}

// POST /api/modules/:id/lessons
func (ch *CurriculumHandler) AddLesson(c *gin.Context) {
	var req struct {
		Title    string `json:"title" binding:"required,max=120"`
		Content  string `json:"content"`
		VideoURL string `json:"video_url" binding:"omitempty,url"`
		Position int    `json:"position" binding:"required,min=1"`
	}
	if !bind(c, &req) {
		return
	}
	l, err := ch.curriculumService.AddLesson(c.Request.Context(), c.Param("id"), services.LessonInput{
		Title:    req.Title,
		Content:  req.Content,
		VideoURL: req.VideoURL,
		Position: req.Position,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"lesson": l})
}

type EnrollmentHandler struct {
	enrollmentService services.EnrollmentService
	reviewService     services.ReviewService
}

func NewEnrollmentHandler(enrollmentService services.EnrollmentService, reviewService services.ReviewService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentService: enrollmentService, reviewService: reviewService}
}

// POST /api/courses/:id/enroll
func (eh *EnrollmentHandler) Enroll(c *gin.Context) {
	e, err := eh.enrollmentService.Enroll(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"enrollment": e})
}

// PATCH /api/enrollments/:id/progress
func (eh *EnrollmentHandler) UpdateProgress(c *gin.Context) {
	var req struct {
		Progress  *float64 `json:"progress"`
		Completed *bool    `json:"completed"`
	}
	if !bind(c, &req) {
		return
	}
	e, err := eh.enrollmentService.UpdateProgress(c.Request.Context(), c.Param("id"), req.Progress, req.Completed)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollment": e})
}

// POST /api/courses/:id/reviews
func (eh *EnrollmentHandler) AddReview(c *gin.Context) {
	var req struct {
		Rating int    `json:"rating"`
		Review string `json:"review" binding:"omitempty,max=1000"`
	}
	if !bind(c, &req) {
		return
	}
	r, err := eh.reviewService.Add(c.Request.Context(), c.Param("id"), req.Rating, req.Review)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"review": r})
}
