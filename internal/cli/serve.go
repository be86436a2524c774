package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dimz119/project-saeum/common/logger"
	"github.com/dimz119/project-saeum/config"
	"github.com/dimz119/project-saeum/controllers"
	"github.com/dimz119/project-saeum/database"
	"github.com/dimz119/project-saeum/middleware"
	aws_pkg "github.com/dimz119/project-saeum/pkg/aws"
	"github.com/dimz119/project-saeum/repository"
	"github.com/dimz119/project-saeum/routes"
	"github.com/dimz119/project-saeum/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

type ServeOptions struct {
	Port        string
	AutoMigrate bool
}

func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the Stripe event consumer",
		Long: `Run the HTTP API. When STRIPE_EVENTS_QUEUE_URL is set, Stripe events
delivered through EventBridge/SQS are consumed in the background as well.

Example:
  saeum serve --port 8080 --migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Port, "port", "", "listen port (overrides PORT)")
	cmd.Flags().BoolVar(&opts.AutoMigrate, "migrate", false, "run migrations before serving")

	return cmd
}

func serve(parent context.Context, opts *ServeOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	if opts.Port != "" {
		cfg.Port = opts.Port
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
	if err != nil {
		return err
	}

	log, err := newServiceLogger(ctx, cfg, awsCfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	db, err := database.Connect(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()
	if opts.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	app := wire(ctx, cfg, awsCfg, repository.NewStore(db), log)
	defer app.close()

	ctrl := routes.Controllers{
		Checkout: controllers.NewCheckoutController(app.checkout, app.reconciler, app.orders, cfg.StripePublishableKey, cfg.Currency, log),
		Webhook:  controllers.NewWebhookController(app.gateway, app.events, log),
		Orders:   controllers.NewOrderController(app.orders),
		Cart:     controllers.NewCartController(services.NewCartService(app.store, log)),
		Refunds:  controllers.NewRefundController(app.refunds),
		Uploads:  controllers.NewUploadController(app.uploads),
		Health:   controllers.NewHealthController(db, cfg.Service),
	}
	router := routes.NewRouter(routes.Options{
		ServiceName: cfg.Service,
		Auth: middleware.AuthConfig{
			JWTSecret:           []byte(cfg.JWTSecret),
			TrustGatewayHeaders: cfg.TrustGatewayHeaders,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimiter:    middleware.NewRateLimiter(ctx, rate.Limit(float64(cfg.RateLimitPerMinute)/60), cfg.RateLimitPerMinute, 10*time.Minute),
		Metrics:        app.metrics,
		Logger:         log,
	}, ctrl)

	var wg sync.WaitGroup
	if cfg.StripeEventsQueue != "" {
		consumer := aws_pkg.NewSQSConsumer(awsCfg, cfg.StripeEventsQueue, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.StartPolling(ctx, app.events.HandleQueueMessage); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Stripe event consumer stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Saeum API starting", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("Shutting down Saeum API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	wg.Wait()

	log.Info("Saeum API stopped gracefully")
	return nil
}

// newServiceLogger tees the console logger to CloudWatch Logs when enabled.
func newServiceLogger(ctx context.Context, cfg *config.Config, awsCfg sdkaws.Config) (*zap.Logger, error) {
	var cwWriter io.Writer
	var setupErr error
	if cfg.CloudWatchEnabled {
		cw, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, cfg.Service)
		if err != nil {
			setupErr = err
		} else {
			cwWriter = cw
		}
	}

	log, err := logger.New(cfg.AppEnv, cwWriter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if setupErr != nil {
		log.Warn("CloudWatch Logs disabled", zap.Error(setupErr))
	}
	return log, nil
}

// application holds the service graph shared by the HTTP handlers and the
// queue consumer.
type application struct {
	store      *repository.Store
	gateway    services.PaymentGateway
	metrics    *aws_pkg.MetricsClient
	checkout   *services.CheckoutService
	reconciler *services.Reconciler
	events     *services.StripeEventHandler
	orders     *services.OrderService
	refunds    *services.RefundService
	uploads    *services.UploadService
	redis      *redis.Client
	log        *zap.Logger
}

func wire(ctx context.Context, cfg *config.Config, awsCfg sdkaws.Config, store *repository.Store, log *zap.Logger) *application {
	app := &application{store: store, log: log}
	app.gateway = services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	app.metrics = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)

	var publisher aws_pkg.SNSPublisher
	if cfg.OrderSNSTopicARN != "" {
		publisher = aws_pkg.NewSNSClient(awsCfg)
	}

	reconcilerOpts := services.ReconcilerOptions{
		Events:   publisher,
		TopicARN: cfg.OrderSNSTopicARN,
		Currency: cfg.Currency,
		LockTTL:  cfg.SessionLockTTL,
		LockWait: cfg.SessionLockWait,
		Metrics:  app.metrics,
	}
	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Warn("Redis unavailable, checkout sessions will not be locked or cached", zap.Error(err))
		} else {
			app.redis = client
			sessions := services.NewRedisSessionStore(client)
			reconcilerOpts.Locker = sessions
			reconcilerOpts.Cache = sessions
		}
	}

	var storage services.ObjectStorage
	if cfg.S3Bucket != "" {
		storage = aws_pkg.NewObjectStore(awsCfg, cfg.S3Bucket, cfg.S3UsePathStyle)
	} else {
		log.Warn("S3_BUCKET not set, uploads are disabled")
	}

	app.checkout = services.NewCheckoutService(store, app.gateway, services.CheckoutConfig{
		Currency:              cfg.Currency,
		ShippingFee:           cfg.ShippingFee,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FrontendURL:           cfg.FrontendURL,
	}, app.metrics, log)
	app.reconciler = services.NewReconciler(store, app.gateway, reconcilerOpts, log)
	app.events = services.NewStripeEventHandler(app.reconciler, app.metrics, log)
	app.orders = services.NewOrderService(store, publisher, cfg.OrderSNSTopicARN, log)
	app.refunds = services.NewRefundService(store, app.gateway, publisher, cfg.OrderSNSTopicARN, app.metrics, log)
	app.uploads = services.NewUploadService(storage, cfg.UploadMaxBytes, cfg.PresignExpiry, log)
	return app
}

func (a *application) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("Failed to close Redis", zap.Error(err))
		}
	}
}
