package controllers

import (
	"net/http"

	"github.com/dimz119/project-saeum/common/logger"
	"github.com/dimz119/project-saeum/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WebhookController struct {
	gateway services.PaymentGateway
	events  *services.StripeEventHandler
	logger  *zap.Logger
}

func NewWebhookController(gateway services.PaymentGateway, events *services.StripeEventHandler, logger *zap.Logger) *WebhookController {
	return &WebhookController{gateway: gateway, events: events, logger: logger}
}

// StripeWebhook verifies the signature and hands the event to the same
// reconciliation the success redirect uses. A 500 makes Stripe redeliver.
func (wc *WebhookController) StripeWebhook(c *gin.Context) {
	log := logger.FromContext(c, wc.logger)

	event, err := wc.gateway.ParseWebhook(c.Request)
	if err != nil {
		log.Warn("Stripe webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	log.Info("Processing Stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	if err := wc.events.HandleVerified(c.Request.Context(), event); err != nil {
		log.Error("Stripe webhook processing failed",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
