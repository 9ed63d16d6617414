// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/ludora/ludora-backend/internal/cache"
	"github.com/ludora/ludora-backend/internal/config"
	"github.com/ludora/ludora-backend/internal/handlers"
	"github.com/ludora/ludora-backend/internal/middleware"
	"github.com/ludora/ludora-backend/internal/services"
)

func Setup(cfg *config.Config, db *gorm.DB) (*gin.Engine, error) {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Services
	redisClient := cache.NewRedisClient(cfg.Redis)
	statusCache := cache.NewConsentStatusCache(redisClient, time.Duration(cfg.Consent.StatusCacheTTL)*time.Second)

	notificationService := services.NewNotificationService(cfg.Email, cfg.Frontend.BaseURL)
	authService := services.NewAuthService(db, notificationService, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	consentService := services.NewConsentService(db, statusCache).WithNotifications(notificationService)
	productService := services.NewProductService(db)
	paymentService := services.NewPaymentService(cfg.Payment)
	purchaseService := services.NewPurchaseService(db, paymentService)
	classroomService := services.NewClassroomService(db)
	adminService := services.NewAdminService(db)

	storageService, err := services.NewStorageService(cfg.AWS)
	if err != nil {
		return nil, err
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	consentHandler := handlers.NewConsentHandler(consentService)
	productHandler := handlers.NewProductHandler(productService, storageService)
	purchaseHandler := handlers.NewPurchaseHandler(purchaseService)
	classroomHandler := handlers.NewClassroomHandler(classroomService)
	adminHandler := handlers.NewAdminHandler(adminService, purchaseService)
	webhookHandler := handlers.NewWebhookHandler(purchaseService, cfg.Payment.StripeWebhookSecret)

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS([]string{cfg.Frontend.BaseURL}))
	r.Use(middleware.I18n(cfg.I18n.DefaultLocale))
	r.Use(middleware.RateLimit(rate.Limit(50), 100))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	// Stripe calls this directly; no auth, signature-verified instead.
	r.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/forgot-password", authHandler.ForgotPassword)
			auth.POST("/reset-password", authHandler.ResetPassword)
			auth.GET("/verify-email", authHandler.VerifyEmail)

			authed := auth.Group("")
			authed.Use(middleware.AuthRequired())
			{
				authed.POST("/logout", authHandler.Logout)
				authed.GET("/me", authHandler.GetProfile)
				authed.PUT("/me", authHandler.UpdateProfile)
				authed.PUT("/me/password", authHandler.ChangePassword)

				authed.GET("/consent-status", consentHandler.GetStatus)
				authed.POST("/link-teacher", middleware.LinkTeacherRateLimit(), consentHandler.LinkTeacher)
			}
		}

		consents := v1.Group("/consents")
		consents.Use(middleware.AuthRequired())
		{
			consents.POST("", middleware.RequireUserType("parent", "admin"), consentHandler.GrantConsent)
			consents.DELETE("/:student_id", middleware.RequireUserType("parent", "admin"), consentHandler.RevokeConsent)
			consents.GET("/students", middleware.RequireUserType("teacher", "admin"), consentHandler.ListLinkedStudents)
		}

		products := v1.Group("/products")
		{
			products.GET("", middleware.OptionalAuth(), productHandler.ListProducts)
			products.GET("/popular", productHandler.ListPopular)
			products.GET("/featured", productHandler.ListFeatured)
			products.GET("/:id", middleware.OptionalAuth(), productHandler.GetProduct)
			products.GET("/:id/access", middleware.OptionalAuth(), productHandler.GetProductAccess)

			owned := products.Group("")
			owned.Use(middleware.AuthRequired())
			{
				owned.POST("", middleware.RequireUserType("teacher", "admin"), productHandler.CreateProduct)
				owned.GET("/mine", productHandler.ListMyProducts)
				owned.PUT("/:id", productHandler.UpdateProduct)
				owned.POST("/:id/publish", productHandler.PublishProduct)
				owned.DELETE("/:id", productHandler.DeleteProduct)
				owned.POST("/:id/file", productHandler.UploadProductFile)
				owned.GET("/:id/download", productHandler.DownloadProduct)
			}
		}

		purchases := v1.Group("/purchases")
		purchases.Use(middleware.AuthRequired())
		{
			purchases.GET("/cart", purchaseHandler.GetCart)
			purchases.POST("/cart", purchaseHandler.AddToCart)
			purchases.DELETE("/cart/:id", purchaseHandler.RemoveFromCart)
			purchases.POST("/claim/:product_id", purchaseHandler.ClaimFree)
			purchases.POST("/checkout", purchaseHandler.Checkout)
			purchases.POST("/confirm", purchaseHandler.ConfirmPayment)
			purchases.GET("/library", purchaseHandler.GetLibrary)
			purchases.GET("/:id", purchaseHandler.GetPurchase)
		}

		classrooms := v1.Group("/classrooms")
		classrooms.Use(middleware.AuthRequired())
		{
			classrooms.GET("", classroomHandler.ListMyClassrooms)
			classrooms.POST("", middleware.RequireUserType("teacher", "admin"), classroomHandler.CreateClassroom)
			classrooms.GET("/:id", classroomHandler.GetClassroom)
			classrooms.PUT("/:id", classroomHandler.UpdateClassroom)
			classrooms.POST("/:id/invitation-code", classroomHandler.RegenerateInvitationCode)
			classrooms.POST("/join", middleware.RequireUserType("student"), classroomHandler.JoinClassroom)
			classrooms.POST("/:id/leave", middleware.RequireUserType("student"), classroomHandler.LeaveClassroom)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.PUT("/users/:id/status", adminHandler.UpdateUserStatus)
			admin.POST("/products/:id/suspend", adminHandler.SuspendProduct)
			admin.POST("/purchases/:id/refund", adminHandler.RefundPurchase)
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSetting)
			admin.GET("/audit-logs", adminHandler.ListAuditLogs)
			admin.GET("/stats", adminHandler.GetPlatformStats)
		}
	}

	return r, nil
}
