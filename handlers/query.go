package handlers

import (
	"net/http"

	"servly/models"
	"servly/utils"

	"github.com/gin-gonic/gin"
)

// GetBooking handles GET /api/bookings/:id. Only the customer, the
// assigned provider and operators may read a booking.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	b, err := h.Engine.GetBooking(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !mayReadBooking(actor, b) {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "booking belongs to another party")
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// ListPoolable handles GET /api/bookings/pool?category=. Providers
// browse it to find claimable work; the list is recomputed on every
// read.
func (h *BookingHandler) ListPoolable(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if actor.Role != models.RoleProvider && actor.Role != models.RoleAdmin {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "pool listing is for providers")
		return
	}
	bookings, err := h.Engine.ListPoolable(c.Query("category"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// ListMyBookings handles GET /api/bookings. Customers see their own
// bookings, providers theirs (optionally filtered by ?status=).
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var (
		bookings []models.Booking
		err      error
	)
	switch actor.Role {
	case models.RoleCustomer:
		bookings, err = h.Engine.ListByCustomer(actor.ID)
	case models.RoleProvider:
		bookings, err = h.Engine.ListByProvider(actor.ID, c.Query("status"))
	default:
		utils.JSONError(c, http.StatusForbidden, "forbidden", "listing requires a customer or provider session")
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// ProviderEarnings handles GET /api/providers/me/earnings, summing
// net amounts over the provider's completed bookings.
func (h *BookingHandler) ProviderEarnings(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	if actor.Role != models.RoleProvider {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "earnings are per provider")
		return
	}
	total, err := h.Engine.ProviderEarnings(actor.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"providerId": actor.ID, "totalNetEarnings": total})
}

// HealthHandler handles GET /health.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, utils.GetHealthStatus())
}

func mayReadBooking(actor models.Actor, b *models.Booking) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return b.CustomerID == actor.ID
	case models.RoleProvider:
		// Providers see their own bookings plus anything currently
		// visible in the pool.
		return b.ProviderID == actor.ID || (!b.Assigned() && b.Status == "pending")
	}
	return false
}
