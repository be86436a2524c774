package controllers

import (
	"net/http"

	apperrors "github.com/dimz119/project-saeum/common/errors"
	"github.com/dimz119/project-saeum/models"
	"github.com/dimz119/project-saeum/services"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	orderService *services.OrderService
}

func NewOrderController(orderService *services.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

// GetOrders returns paginated orders for the authenticated user
func (oc *OrderController) GetOrders(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	page, limit := parsePaginationParams(ctx)

	result, err := oc.orderService.GetUserOrders(ctx.Request.Context(), userID, page, limit)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetAllOrders returns paginated orders for all users (admin only)
func (oc *OrderController) GetAllOrders(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	status := models.OrderStatus(ctx.Query("status"))

	result, err := oc.orderService.GetAllOrders(ctx.Request.Context(), status, page, limit)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetOrderByID returns a specific order for the authenticated user
func (oc *OrderController) GetOrderByID(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(ctx, "id", "Invalid order ID")
	if !ok {
		return
	}

	order, err := oc.orderService.GetOrderByID(ctx.Request.Context(), userID, orderID)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, order)
}

func (oc *OrderController) UpdateOrderStatus(ctx *gin.Context) {
	orderID, ok := parseIDParam(ctx, "id", "Invalid order ID")
	if !ok {
		return
	}
	var req models.UpdateOrderStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		bindError(ctx, err)
		return
	}

	order, err := oc.orderService.UpdateStatus(ctx.Request.Context(), orderID, req.Status)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, order)
}
