package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemart-backend/internal/http/response"
	"github.com/yungbote/coursemart-backend/internal/services"
)

type OrderHandler struct {
	orderService services.OrderService
}

func NewOrderHandler(orderService services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (oh *OrderHandler) CreateOrder(c *gin.Context) {
	var req struct {
		CourseIDs []string `json:"course_ids" binding:"required,min=1"`
	}
	if !bind(c, &req) {
		return
	}
	order, err := oh.orderService.Create(c.Request.Context(), req.CourseIDs)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"order": order})
}

func (oh *OrderHandler) CompleteOrder(c *gin.Context) {
	var req struct {
		PaymentMethod string         `json:"payment_method" binding:"required"`
		TransactionID string         `json:"transaction_id"`
		Metadata      map[string]any `json:"metadata"`
	}
	if !bind(c, &req) {
		return
	}
	order, payment, err := oh.orderService.Complete(c.Request.Context(), c.Param("id"), services.PaymentInput{
		Method:        req.PaymentMethod,
		TransactionID: req.TransactionID,
		Metadata:      req.Metadata,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"order": order, "payment": payment})
}

func (oh *OrderHandler) CancelOrder(c *gin.Context) {
	order, err := oh.orderService.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"order": order})
}
