package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/maktabah-search-api/internal/repository"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	corpus  repository.CorpusRepository
	backend string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(corpus repository.CorpusRepository, backend string) *HealthHandler {
	return &HealthHandler{corpus: corpus, backend: backend}
}

// HealthResponse is the response for basic health check
type HealthResponse struct {
	Status string `json:"status"`
}

// CorpusHealthResponse is the response for corpus health check
type CorpusHealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Error   string `json:"error,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
	})
}

// CorpusHealth handles GET /health/corpus
func (h *HealthHandler) CorpusHealth(c echo.Context) error {
	if err := h.corpus.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, CorpusHealthResponse{
			Status:  "error",
			Backend: h.backend,
			Error:   err.Error(),
		})
	}

	return c.JSON(http.StatusOK, CorpusHealthResponse{
		Status:  "connected",
		Backend: h.backend,
	})
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/health", h.Health)
	g.GET("/health/corpus", h.CorpusHealth)
}
