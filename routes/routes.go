package routes

import (
	"fmt"
	"strings"
	"time"

	"astrobook/handlers"
	"astrobook/middleware"
	"astrobook/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	AllowedOrigins    string
	MaxRequestsPerMin int
	// TrustedProxies lists the addresses or CIDRs whose forwarding headers are honoured.
	// Empty means the peer address is always the client address.
	TrustedProxies []string
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health.Health)
}

// RegisterPublicRoutes sets up the endpoints used by the booking website.
func RegisterPublicRoutes(r *gin.Engine, hb *handlers.HandlerBundle, opts Options) {
	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(opts.MaxRequestsPerMin))
	{
		api.GET("/services", hb.Booking.GetServices)
		api.GET("/availability", hb.Booking.GetAvailability)
		api.POST("/reservations", hb.Booking.CreateReservation)
		api.GET("/reservations/:id", hb.Booking.GetReservation)
		api.POST("/reservations/:id/confirm", hb.Booking.ConfirmReservation)
		api.DELETE("/reservations/:id", middleware.JWTAuthAdminMiddleware(hb.Auth), hb.Booking.CancelReservation)
		api.POST("/admin/login", hb.Admin.Login)
	}
}

// RegisterWebhookRoutes sets up processor callbacks. They are not rate limited.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/webhooks/stripe", hb.Webhook.Stripe)
}

// RegisterAdminRoutes sets up endpoints for the practitioner dashboard.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.JWTAuthAdminMiddleware(hb.Auth))

		adminGroup.GET("/services", hb.Admin.ListServices)
		adminGroup.POST("/services", hb.Admin.CreateService)
		adminGroup.PUT("/services/:id", hb.Admin.UpdateService)
		adminGroup.DELETE("/services/:id", hb.Admin.DeleteService)

		adminGroup.GET("/bookings", hb.Admin.ListBookings)
		adminGroup.POST("/bookings", hb.Admin.CreateBooking)
		adminGroup.GET("/bookings/:id/events", hb.Admin.BookingEvents)
		adminGroup.POST("/bookings/:id/complete", hb.Admin.CompleteBooking)
		adminGroup.POST("/bookings/:id/resend", hb.Admin.ResendConfirmation)
		adminGroup.DELETE("/bookings/:id", hb.Admin.CancelBooking)

		adminGroup.GET("/availability", hb.Admin.ListBlocks)
		adminGroup.POST("/availability", hb.Admin.CreateBlock)
		adminGroup.DELETE("/availability/:id", hb.Admin.DeleteBlock)
	}
}

func corsConfig(allowed string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	var origins []string
	for _, o := range strings.Split(allowed, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, opts Options, logger *zap.Logger) error {
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return fmt.Errorf("routes: trusted proxies: %w", err)
	}
	r.Use(utils.ErrorHandler(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	RegisterHealthRoute(r, hb)
	RegisterPublicRoutes(r, hb, opts)
	RegisterWebhookRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
	return nil
}
