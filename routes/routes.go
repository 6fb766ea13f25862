package routes

import (
	"servly/handlers"
	"servly/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all endpoints of the dispatch core.
func RegisterRoutes(r *gin.Engine, bookingHandler *handlers.BookingHandler, providerHandler *handlers.ProviderHandler, eventsHandler *handlers.EventsHandler) {
	r.GET("/health", handlers.HealthHandler)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware())

	bookings := api.Group("/bookings")
	{
		bookings.POST("", bookingHandler.CreateBooking)
		bookings.GET("", bookingHandler.ListMyBookings)
		bookings.GET("/pool", bookingHandler.ListPoolable)
		bookings.GET("/:id", bookingHandler.GetBooking)

		bookings.POST("/:id/claim", bookingHandler.ClaimBooking)
		bookings.POST("/:id/accept", bookingHandler.AcceptBooking)
		bookings.POST("/:id/reject", bookingHandler.RejectBooking)
		bookings.POST("/:id/start", bookingHandler.StartService)
		bookings.POST("/:id/complete", bookingHandler.CompleteService)
		bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
	}

	api.GET("/providers", providerHandler.ListAvailable)
	api.GET("/providers/me/earnings", bookingHandler.ProviderEarnings)

	events := api.Group("/events")
	{
		events.GET("/booking/:id", eventsHandler.SubscribeBooking)
		events.GET("/provider", eventsHandler.SubscribeProvider)
		events.GET("/pool", eventsHandler.SubscribePool)
	}
}
