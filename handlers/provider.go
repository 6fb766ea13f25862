package handlers

import (
	"net/http"

	providerRepo "servly/database/repository/provider"
	"servly/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProviderHandler exposes the read-only provider directory views the
// core needs: customers browse available providers when choosing a
// target for a booking.
type ProviderHandler struct {
	Providers providerRepo.ProviderRepository
	Logger    *zap.Logger
}

// NewProviderHandler creates a ProviderHandler.
func NewProviderHandler(providers providerRepo.ProviderRepository, logger *zap.Logger) *ProviderHandler {
	return &ProviderHandler{Providers: providers, Logger: logger}
}

// ListAvailable handles GET /api/providers?category=.
func (h *ProviderHandler) ListAvailable(c *gin.Context) {
	if _, ok := mustActor(c); !ok {
		return
	}
	providers, err := h.Providers.ListAvailable(c.Query("category"))
	if err != nil {
		h.Logger.Error("failed to list available providers", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal error", "please try again later")
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers})
}
