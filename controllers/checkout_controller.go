package controllers

import (
	"net/http"
	"strings"

	apperrors "github.com/dimz119/project-saeum/common/errors"
	"github.com/dimz119/project-saeum/common/logger"
	"github.com/dimz119/project-saeum/models"
	"github.com/dimz119/project-saeum/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CheckoutController serves the Stripe checkout endpoints under /payments.
type CheckoutController struct {
	checkout       *services.CheckoutService
	reconciler     *services.Reconciler
	orders         *services.OrderService
	publishableKey string
	currency       string
	logger         *zap.Logger
}

func NewCheckoutController(checkout *services.CheckoutService, reconciler *services.Reconciler, orders *services.OrderService, publishableKey, currency string, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{
		checkout:       checkout,
		reconciler:     reconciler,
		orders:         orders,
		publishableKey: publishableKey,
		currency:       currency,
		logger:         logger,
	}
}

// CreateCheckoutSession prices the requested items (or the stored cart) and
// opens a Stripe Checkout session for them.
func (cc *CheckoutController) CreateCheckoutSession(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req models.CreateCheckoutSessionRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			bindError(ctx, err)
			return
		}
	}

	resp, err := cc.checkout.CreateSession(ctx.Request.Context(), userID, &req)
	if err != nil {
		cc.respondError(ctx, "create checkout session failed", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// ProcessCheckoutSuccess turns a paid session into an order. The session id is
// taken from the query string or a JSON body; repeated calls return the same
// summary.
func (cc *CheckoutController) ProcessCheckoutSuccess(ctx *gin.Context) {
	sessionID := strings.TrimSpace(ctx.Query("session_id"))
	if sessionID == "" && ctx.Request.Method == http.MethodPost && ctx.Request.ContentLength != 0 {
		var body struct {
			SessionID string `json:"session_id"`
		}
		if err := ctx.ShouldBindJSON(&body); err != nil {
			bindError(ctx, err)
			return
		}
		sessionID = strings.TrimSpace(body.SessionID)
	}
	if sessionID == "" {
		apperrors.Respond(ctx, apperrors.BadRequest("session_id is required"))
		return
	}

	summary, err := cc.reconciler.Reconcile(ctx.Request.Context(), sessionID)
	if err != nil {
		cc.respondError(ctx, "checkout reconciliation failed", err, zap.String("session_id", sessionID))
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// CreatePaymentIntent prices the items like CreateCheckoutSession and returns
// the client secret for an embedded card form.
func (cc *CheckoutController) CreatePaymentIntent(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req models.CreateCheckoutSessionRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			bindError(ctx, err)
			return
		}
	}

	resp, err := cc.checkout.CreatePaymentIntent(ctx.Request.Context(), userID, &req)
	if err != nil {
		cc.respondError(ctx, "create payment intent failed", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// ConfirmPayment turns a succeeded payment intent into an order. Order data is
// read from the intent itself, never from the request.
func (cc *CheckoutController) ConfirmPayment(ctx *gin.Context) {
	var req models.ConfirmPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		bindError(ctx, err)
		return
	}

	summary, err := cc.reconciler.ReconcilePaymentIntent(ctx.Request.Context(), req.PaymentIntentID)
	if err != nil {
		cc.respondError(ctx, "payment confirmation failed", err, zap.String("payment_intent_id", req.PaymentIntentID))
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// RecentOrder returns the caller's order from the last few minutes, used by
// the success page when the session id was lost.
func (cc *CheckoutController) RecentOrder(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	summary, err := cc.orders.RecentOrder(ctx.Request.Context(), userID)
	if err != nil {
		apperrors.Respond(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

func (cc *CheckoutController) StripePublicKey(ctx *gin.Context) {
	if cc.publishableKey == "" {
		apperrors.Respond(ctx, apperrors.New(http.StatusServiceUnavailable, "Stripe is not configured", nil))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"public_key": cc.publishableKey, "currency": cc.currency})
}

// respondError logs server-side failures and writes the JSON error body.
func (cc *CheckoutController) respondError(ctx *gin.Context, msg string, err error, fields ...zap.Field) {
	appErr := apperrors.From(err)
	if appErr.Code >= http.StatusInternalServerError {
		logger.FromContext(ctx, cc.logger).Error(msg, append(fields, zap.Error(err))...)
	}
	apperrors.Respond(ctx, appErr)
}
