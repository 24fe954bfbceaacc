package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/flow-84/crypto-portfolio-v2/internal/application/services"
)

// PortfolioHandler handles HTTP requests for portfolio endpoints
type PortfolioHandler struct {
	service *services.PortfolioService
	logger  *zap.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(service *services.PortfolioService, logger *zap.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the portfolio routes on a chi router
func (h *PortfolioHandler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.GetPortfolio)
		r.Post("/", h.AddHolding)
		r.Delete("/{coinID}", h.RemoveHolding)
	})
}

// GetPortfolio handles GET /api/v1/portfolio.
// The response is served from the store and the in-memory price cache only;
// a reconciliation pass is kicked off after the response has been written.
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	response := h.service.GetPortfolioView(r.Context())
	h.respondJSON(w, http.StatusOK, response)

	h.service.StartReconciliation()
}

// addHoldingRequest is the body of POST /api/v1/portfolio
type addHoldingRequest struct {
	CoinID string `json:"coin_id"`
	Amount string `json:"amount"`
}

// AddHolding handles POST /api/v1/portfolio
func (h *PortfolioHandler) AddHolding(w http.ResponseWriter, r *http.Request) {
	var req addHoldingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	response, err := h.service.AddHolding(r.Context(), req.CoinID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCoinID), errors.Is(err, services.ErrInvalidAmount):
			h.respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Failed to add holding",
				zap.Error(err),
				zap.String("coin_id", req.CoinID),
			)
			h.respondError(w, http.StatusInternalServerError, "Failed to add holding")
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, response)
}

// RemoveHolding handles DELETE /api/v1/portfolio/{coinID}
func (h *PortfolioHandler) RemoveHolding(w http.ResponseWriter, r *http.Request) {
	coinID := chi.URLParam(r, "coinID")

	if err := h.service.RemoveHolding(r.Context(), coinID); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCoinID):
			h.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrHoldingNotFound):
			h.respondError(w, http.StatusNotFound, "Holding not found")
		default:
			h.logger.Error("Failed to remove holding",
				zap.Error(err),
				zap.String("coin_id", coinID),
			)
			h.respondError(w, http.StatusInternalServerError, "Failed to remove holding")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PortfolioHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *PortfolioHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
