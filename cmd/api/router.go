package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mthangit/demo-payment/internal/shared/middleware"
	"github.com/mthangit/demo-payment/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
	)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})))

	// Checkout session cookie
	sessionConfig := middleware.DefaultSessionConfig()
	sessionConfig.CookieSecure = c.Config.Checkout.CookieSecure
	sessionConfig.MaxAge = int(c.Config.Checkout.SessionTTL.Seconds())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupCheckoutRoutes(v1, c, sessionConfig)
	}

	return router
}

// ========================================
// CHECKOUT ROUTES
// ========================================
func setupCheckoutRoutes(v1 *gin.RouterGroup, c *container.Container, sessionConfig middleware.SessionConfig) {
	h := c.CheckoutHandler

	checkout := v1.Group("/checkout")
	checkout.Use(middleware.CheckoutSession(sessionConfig))
	{
		checkout.GET("/products", h.ListProducts)
		checkout.GET("/page", h.GetPage)
		checkout.POST("/select", h.SelectMethod)
		checkout.POST("/reset", h.Reset)
		checkout.POST("/pay", h.Pay)
		checkout.POST("/check-url", h.CheckURL)
	}

	// Popup relay: gọi bởi trang cha thay cho window.postMessage / popup.closed
	attempts := checkout.Group("/attempts")
	{
		attempts.GET("/:id", h.GetAttempt)
		attempts.POST("/:id/messages", h.RelayMessage)
		attempts.POST("/:id/closed", h.ReportClosed)
	}
}

// ========================================
// HEALTH CHECK HANDLER
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		redisHealth := appCtx.Redis.Health(c.Request.Context())

		status, statusCode := "ok", http.StatusOK
		if redisHealth.Status != "ok" {
			// Không có redis thì page state lẫn popup attempt đều không chạy được
			status, statusCode = "degraded", http.StatusServiceUnavailable
		}

		c.JSON(statusCode, gin.H{
			"status":  status,
			"name":    appCtx.Config.App.Name,
			"version": appCtx.Config.App.Version,
			"services": gin.H{
				"redis": redisHealth,
			},
		})
	}
}
