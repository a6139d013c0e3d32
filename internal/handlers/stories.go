package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/internal/story"
)

// StoriesHandler serves catalogued story documents
type StoriesHandler struct {
	store *story.Store
}

// NewStoriesHandler creates a new stories handler
func NewStoriesHandler(store *story.Store) *StoriesHandler {
	return &StoriesHandler{store: store}
}

// StoryListResponse is the response for the story catalog
type StoryListResponse struct {
	Stories []story.Summary `json:"stories"`
}

// StoryResponse is one parsed story
type StoryResponse struct {
	Name              string `json:"name"`
	VersesCount       int    `json:"verses_count"`
	TranslationsCount int    `json:"translations_count"`
	*models.Story
}

// List handles GET /stories
func (h *StoriesHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, StoryListResponse{Stories: h.store.List()})
}

// Get handles GET /stories/:name
func (h *StoriesHandler) Get(c echo.Context) error {
	name := c.Param("name")
	s, err := h.store.Load(name)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, StoryResponse{
		Name:              name,
		VersesCount:       s.VersesCount(),
		TranslationsCount: s.TranslationsCount(),
		Story:             s,
	})
}

// Raw handles GET /stories/:name/xml
func (h *StoriesHandler) Raw(c echo.Context) error {
	data, err := h.store.Raw(c.Param("name"))
	if err != nil {
		return httpError(c, err)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, data)
}

// RegisterRoutes registers story routes
func (h *StoriesHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/stories", h.List)
	g.GET("/stories/:name", h.Get)
	g.GET("/stories/:name/xml", h.Raw)
}
