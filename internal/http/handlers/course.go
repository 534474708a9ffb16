package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemart-backend/internal/http/response"
	"github.com/yungbote/coursemart-backend/internal/services"
)

type CourseHandler struct {
	courseService services.CourseService
}

func NewCourseHandler(courseService services.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// GET /api/courses?page=&limit=&query=&sortBy=&sortType=&instructorId=&categoryId=
func (ch *CourseHandler) ListCourses(c *gin.Context) {
	page, err := ch.courseService.List(c.Request.Context(), listParams(c, map[string]string{
		"instructor_id": c.Query("instructorId"),
		"category_id":   c.Query("categoryId"),
	}))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, page)
}

func (ch *CourseHandler) GetCourse(c *gin.Context) {
	doc, err := ch.courseService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": doc})
}

func (ch *CourseHandler) SearchByTitle(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if !bind(c, &req) {
		return
	}
	doc, err := ch.courseService.GetByTitle(c.Request.Context(), req.Title)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": doc})
}

func (ch *CourseHandler) CreateCourse(c *gin.Context) {
	var req struct {
		Title       string  `json:"title" binding:"required,max=120"`
		Description string  `json:"description" binding:"required,description"`
		Price       float64 `json:"price" binding:"gte=0"`
		CategoryID  string  `json:"category_id" binding:"required"`
		Thumbnail   string  `json:"thumbnail" binding:"omitempty,url"`
	}
	if !bind(c, &req) {
		return
	}
	doc, err := ch.courseService.Create(c.Request.Context(), services.CourseInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Thumbnail:   req.Thumbnail,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"course": doc})
}

func (ch *CourseHandler) UpdateCourse(c *gin.Context) {
	var req struct {
		Title       *string  `json:"title" binding:"omitempty,max=120"`
		Description *string  `json:"description" binding:"omitempty,description"`
		Price       *float64 `json:"price" binding:"omitempty,gte=0"`
		CategoryID  *string  `json:"category_id"`
	}
	if !bind(c, &req) {
		return
	}
	doc, err := ch.courseService.Update(c.Request.Context(), c.Param("id"), services.CourseUpdate{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": doc})
}

func (ch *CourseHandler) UpdateThumbnail(c *gin.Context) {
	var req struct {
		Thumbnail string `json:"thumbnail" binding:"required,url"`
	}
	if !bind(c, &req) {
		return
	}
	doc, err := ch.courseService.UpdateThumbnail(c.Request.Context(), c.Param("id"), req.Thumbnail)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": doc})
}

func (ch *CourseHandler) TogglePublish(c *gin.Context) {
	doc, err := ch.courseService.TogglePublish(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": doc})
}

func (ch *CourseHandler) DeleteCourse(c *gin.Context) {
	if err := ch.courseService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
