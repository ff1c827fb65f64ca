// File: lingodoc/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lingodoc/config"
	"lingodoc/cron"
	"lingodoc/database"
	documentRepo "lingodoc/database/repository/document"
	paymentRepo "lingodoc/database/repository/payment"
	sessionRepo "lingodoc/database/repository/session"
	"lingodoc/handlers"
	"lingodoc/middleware"
	"lingodoc/routes"
	"lingodoc/services/checkout"
	"lingodoc/services/notify"
	"lingodoc/services/reconcile"
	"lingodoc/services/staging"
	"lingodoc/services/upload"
	"lingodoc/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitStagingCache()

	storageService, err := utils.Cloudinary()
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize cloudinary storage service: %v", err)
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	docRepo := documentRepo.NewMongoDocumentRepo()
	sessRepo := sessionRepo.NewMongoSessionRepo()
	payRepo := paymentRepo.NewMongoPaymentRepo()

	// async task queue.
	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer queueClient.Close()

	// services.
	stagingStore := staging.NewRedisStore(utils.GetStagingClient())
	notifier := notify.NewQueueIntakeNotifier(queueClient, logger)

	reconciler := reconcile.NewReconciler(
		docRepo,
		sessRepo,
		payRepo,
		stagingStore,
		storageService,
		notifier,
		logger,
	)

	checkoutService := &checkout.DefaultCheckoutService{
		Sessions:  sessRepo,
		Documents: docRepo,
		Payments:  payRepo,
		Logger:    logger,
		BaseURL:   config.AppConfig.BaseURL,
		Currency:  "usd",
	}

	retryService := &upload.RetryService{
		Documents: docRepo,
		Payments:  payRepo,
		Storage:   storageService,
		Notifier:  notifier,
		Logger:    logger,
		BaseDelay: 2 * time.Second,
	}

	// Background worker for intake delivery and draft cleanup.
	intakeSender := notify.NewHTTPIntakeSender(config.AppConfig.IntakeWebhookURL, logger)
	cron.InitTaskWorker(intakeSender, docRepo)

	// Assemble the handler bundle.
	handlerBundle := &routes.HandlerBundle{
		Checkout: handlers.NewCheckoutHandler(checkoutService, logger),
		Webhook:  handlers.NewWebhookHandler(reconciler, config.WebhookSecrets(), logger),
		Finalize: handlers.NewFinalizeHandler(checkoutService, reconciler, logger),
		Document: handlers.NewDocumentHandler(docRepo, retryService, logger),
		Staged:   handlers.NewStagedFileHandler(stagingStore, logger),
		Admin:    handlers.NewAdminHandler(payRepo, docRepo, queueClient, logger),
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
