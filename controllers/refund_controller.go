package controllers

import (
	"context"
	"net/http"

	apperrors "github.com/dimz119/project-saeum/common/errors"
	"github.com/dimz119/project-saeum/models"
	"github.com/dimz119/project-saeum/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RefundController struct {
	refunds *services.RefundService
}

func NewRefundController(refunds *services.RefundService) *RefundController {
	return &RefundController{refunds: refunds}
}

// RequestRefund opens a refund request against one of the caller's orders.
func (rc *RefundController) RequestRefund(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id", "Invalid order ID")
	if !ok {
		return
	}
	var req models.CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	refund, err := rc.refunds.RequestRefund(c.Request.Context(), userID, orderID, &req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, refund)
}

func (rc *RefundController) ListRefunds(c *gin.Context) {
	page, limit := parsePaginationParams(c)
	status := models.RefundStatus(c.Query("status"))

	result, err := rc.refunds.ListRefunds(c.Request.Context(), status, page, limit)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (rc *RefundController) Approve(c *gin.Context) {
	rc.review(c, rc.refunds.Approve)
}

func (rc *RefundController) Reject(c *gin.Context) {
	rc.review(c, rc.refunds.Reject)
}

type reviewFunc func(ctx context.Context, refundID uuid.UUID, adminMemo string) (*models.Refund, error)

func (rc *RefundController) review(c *gin.Context, apply reviewFunc) {
	refundID, ok := parseIDParam(c, "id", "Invalid refund ID")
	if !ok {
		return
	}
	var req models.ReviewRefundRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	refund, err := apply(c.Request.Context(), refundID, req.AdminMemo)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, refund)
}
