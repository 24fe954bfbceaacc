package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/flow-84/crypto-portfolio-v2/internal/application/services"
)

// PriceHandler handles HTTP requests for cached price lookups
type PriceHandler struct {
	service *services.PortfolioService
	logger  *zap.Logger
}

// NewPriceHandler creates a new price handler
func NewPriceHandler(service *services.PortfolioService, logger *zap.Logger) *PriceHandler {
	return &PriceHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the price routes on a chi router
func (h *PriceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/prices/{coinID}", h.GetPrice)
}

// GetPrice handles GET /api/v1/prices/{coinID}
func (h *PriceHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	coinID := chi.URLParam(r, "coinID")

	response, err := h.service.GetPrice(r.Context(), coinID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCoinID):
			h.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrPriceUnavailable):
			h.respondError(w, http.StatusNotFound, "Price not available")
		default:
			h.logger.Error("Failed to get price",
				zap.Error(err),
				zap.String("coin_id", coinID),
			)
			h.respondError(w, http.StatusInternalServerError, "Failed to get price")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

func (h *PriceHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *PriceHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
