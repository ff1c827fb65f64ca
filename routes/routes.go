package routes

import (
	"net/http"
	"time"

	"lingodoc/handlers"
	"lingodoc/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HandlerBundle gathers the handlers the router wires up.
type HandlerBundle struct {
	Checkout *handlers.CheckoutHandler
	Webhook  *handlers.WebhookHandler
	Finalize *handlers.FinalizeHandler
	Document *handlers.DocumentHandler
	Staged   *handlers.StagedFileHandler
	Admin    *handlers.AdminHandler
}

// RegisterCheckoutRoutes registers checkout and payment endpoints.
func RegisterCheckoutRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/checkout")
	{
		// The finalizer runs on return from the hosted payment page, before
		// the client has re-established auth; the session ID is the capability.
		api.POST("/session-info", hb.Checkout.SessionInfoHandler)
		api.POST("/finalize", hb.Finalize.FinalizeSessionHandler)

		// Protected routes (Require Authentication)
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("/session", hb.Checkout.CreateSessionHandler)
		api.POST("/zelle-confirm", hb.Checkout.ConfirmZelleHandler)
	}
}

// RegisterWebhookRoutes registers payment-provider callbacks. The provider
// signs its own requests; no bearer auth here.
func RegisterWebhookRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.POST("/api/stripe/webhook", hb.Webhook.HandleStripeWebhook)
}

// RegisterDocumentRoutes registers document and staged-file endpoints.
func RegisterDocumentRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/documents")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", hb.Document.CreateDraftHandler)
		api.GET("", hb.Document.ListDocumentsHandler)
		api.GET("/:documentID", hb.Document.GetDocumentHandler)
		api.POST("/:documentID/retry-upload", hb.Document.RetryUploadHandler)
	}

	files := r.Group("/api/files")
	{
		files.Use(middleware.JWTAuthMiddleware())
		files.POST("/stage", hb.Staged.StageFileHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm LingoDoc"})
	})
}

// RegisterAdminRoutes sets up endpoints for back-office operations.
func RegisterAdminRoutes(r *gin.Engine, hb *HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.AdminAuthMiddleware())
		adminGroup.POST("/documents/update", hb.Document.PrivilegedUpdateHandler)
		adminGroup.POST("/documents/cleanup", hb.Admin.CleanupDraftsHandler)
		adminGroup.POST("/payments/verify", hb.Admin.VerifyPaymentHandler)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterWebhookRoutes(r, hb)
	RegisterCheckoutRoutes(r, hb)
	RegisterDocumentRoutes(r, hb)
	RegisterHealthRoute(r)
	RegisterAdminRoutes(r, hb)
}
