package routes

import (
	"time"

	apperrors "github.com/dimz119/project-saeum/common/errors"
	"github.com/dimz119/project-saeum/common/logger"
	"github.com/dimz119/project-saeum/controllers"
	"github.com/dimz119/project-saeum/middleware"
	aws_pkg "github.com/dimz119/project-saeum/pkg/aws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

// Controllers groups every HTTP handler the API exposes.
type Controllers struct {
	Checkout *controllers.CheckoutController
	Webhook  *controllers.WebhookController
	Orders   *controllers.OrderController
	Cart     *controllers.CartController
	Refunds  *controllers.RefundController
	Uploads  *controllers.UploadController
	Health   *controllers.HealthController
}

type Options struct {
	ServiceName    string
	Auth           middleware.AuthConfig
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	Metrics        *aws_pkg.MetricsClient
	Logger         *zap.Logger
}

// NewRouter builds the gin engine with the global middleware chain.
func NewRouter(opts Options, ctrl Controllers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(opts.AllowedOrigins))
	if opts.RateLimiter != nil {
		r.Use(middleware.RateLimitMiddleware(opts.RateLimiter))
	}
	r.Use(middleware.MetricsMiddleware(opts.Metrics, opts.ServiceName))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(apperrors.ErrorMiddleware())

	RegisterRoutes(r, opts.Auth, ctrl)
	return r
}

func RegisterRoutes(r *gin.Engine, authCfg middleware.AuthConfig, ctrl Controllers) {
	auth := middleware.AuthMiddleware(authCfg)

	r.GET("/health", ctrl.Health.Health)

	payments := r.Group("/payments")
	{
		// Stripe webhook (signature, no auth)
		payments.POST("/stripe-webhook", ctrl.Webhook.StripeWebhook)
		// the session or payment intent id is the capability
		payments.GET("/process-checkout-success", ctrl.Checkout.ProcessCheckoutSuccess)
		payments.POST("/process-checkout-success", ctrl.Checkout.ProcessCheckoutSuccess)
		payments.POST("/confirm-payment", ctrl.Checkout.ConfirmPayment)
		payments.GET("/stripe-public-key", ctrl.Checkout.StripePublicKey)

		payments.POST("/create-checkout-session", auth, ctrl.Checkout.CreateCheckoutSession)
		payments.POST("/create-payment-intent", auth, ctrl.Checkout.CreatePaymentIntent)
		payments.GET("/recent-order", auth, ctrl.Checkout.RecentOrder)
	}

	cart := r.Group("/cart", auth)
	{
		cart.GET("", ctrl.Cart.GetCart)
		cart.DELETE("", ctrl.Cart.ClearCart)
		cart.POST("/items", ctrl.Cart.AddToCart)
		cart.PUT("/items/:product_id", ctrl.Cart.UpdateCartItem)
		cart.DELETE("/items/:product_id", ctrl.Cart.RemoveCartItem)
	}

	orders := r.Group("/orders", auth)
	{
		orders.GET("", ctrl.Orders.GetOrders)
		orders.GET("/:id", ctrl.Orders.GetOrderByID)
		orders.POST("/:id/refunds", ctrl.Refunds.RequestRefund)
	}

	uploads := r.Group("/uploads", auth)
	{
		uploads.POST("/presign", ctrl.Uploads.Presign)
		uploads.POST("", ctrl.Uploads.Upload)
		uploads.GET("/url", ctrl.Uploads.FileURL)
	}

	admin := r.Group("/admin", auth, middleware.AdminOnly())
	{
		admin.GET("/orders", ctrl.Orders.GetAllOrders)
		admin.PATCH("/orders/:id/status", ctrl.Orders.UpdateOrderStatus)
		admin.GET("/refunds", ctrl.Refunds.ListRefunds)
		admin.POST("/refunds/:id/approve", ctrl.Refunds.Approve)
		admin.POST("/refunds/:id/reject", ctrl.Refunds.Reject)
	}
}
