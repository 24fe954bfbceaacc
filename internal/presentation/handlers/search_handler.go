package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/flow-84/crypto-portfolio-v2/internal/application/services"
)

// SearchHandler handles HTTP requests for coin search
type SearchHandler struct {
	service *services.SearchService
	logger  *zap.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service *services.SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the search routes on a chi router
func (h *SearchHandler) RegisterRoutes(r chi.Router) {
	r.Get("/search", h.Search)
}

// Search handles GET /api/v1/search?query=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	response, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("Coin search failed",
			zap.Error(err),
			zap.String("query", query),
		)
		h.respondError(w, http.StatusBadGateway, "Coin search failed")
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

func (h *SearchHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *SearchHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
