package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemart-backend/internal/http/response"
	"github.com/yungbote/coursemart-backend/internal/services"
)

type CategoryHandler struct {
	categoryService services.CategoryService
}

func NewCategoryHandler(categoryService services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

func (ch *CategoryHandler) ListCategories(c *gin.Context) {
	page, err := ch.categoryService.List(c.Request.Context(), listParams(c, nil))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, page)
}

func (ch *CategoryHandler) GetCategory(c *gin.Context) {
	doc, err := ch.categoryService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"category": doc})
}

func (ch *CategoryHandler) SearchByName(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if !bind(c, &req) {
		return
	}
	doc, err := ch.categoryService.GetByName(c.Request.Context(), req.Name)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"category": doc})
}

func (ch *CategoryHandler) CreateCategory(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required,max=60"`
		Description string `json:"description" binding:"required,description"`
	}
	if !bind(c, &req) {
		return
	}
	doc, err := ch.categoryService.Create(c.Request.Context(), services.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"category": doc})
}

func (ch *CategoryHandler) UpdateCategory(c *gin.Context) {
	var req struct {
		Name        *string `json:"name" binding:"omitempty,max=60"`
		Description *string `json:"description" binding:"omitempty,description"`
	}
	if !bind(c, &req) {
		return
	}
	doc, err := ch.categoryService.Update(c.Request.Context(), c.Param("id"), services.CategoryUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"category": doc})
}

func (ch *CategoryHandler) DeleteCategory(c *gin.Context) {
	if err := ch.categoryService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
