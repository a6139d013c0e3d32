package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/maktabah-search-api/internal/models"
	"github.com/maktabah-search-api/internal/services"
)

// SearchHandler handles search and verse detail endpoints
type SearchHandler struct {
	search          *services.SearchService
	defaultPageSize int
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search *services.SearchService, defaultPageSize int) *SearchHandler {
	return &SearchHandler{
		search:          search,
		defaultPageSize: defaultPageSize,
	}
}

// Search handles GET /search - paginated verse search
func (h *SearchHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Query is required")
	}

	page, err := intParam(c, "page", 1)
	if err != nil {
		return err
	}
	size, err := intParam(c, "size", h.defaultPageSize)
	if err != nil {
		return err
	}
	chapter, err := chapterParam(c)
	if err != nil {
		return err
	}
	types, err := typeParams(c)
	if err != nil {
		return err
	}

	result, err := h.search.Search(c.Request().Context(), models.SearchRequest{
		Query:     q,
		Page:      page,
		Size:      size,
		Author:    strings.TrimSpace(c.QueryParam("author")),
		Chapter:   chapter,
		WorkTypes: types,
	})
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Verse handles GET /verses/:chapter/:verse - every translation of one verse
func (h *SearchHandler) Verse(c echo.Context) error {
	chapter, err := strconv.Atoi(c.Param("chapter"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid chapter")
	}
	verse, err := strconv.Atoi(c.Param("verse"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid verse")
	}
	types, err := typeParams(c)
	if err != nil {
		return err
	}

	result, err := h.search.GetVerse(c.Request().Context(), services.VerseRequest{
		Chapter:   chapter,
		Verse:     verse,
		Query:     strings.TrimSpace(c.QueryParam("q")),
		WorkTypes: types,
	})
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers search routes
func (h *SearchHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/search", h.Search)
	g.GET("/verses/:chapter/:verse", h.Verse)
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid %s", name))
	}
	return n, nil
}

func chapterParam(c echo.Context) (*int, error) {
	raw := c.QueryParam("chapter")
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid chapter")
	}
	return &n, nil
}

func typeParams(c echo.Context) ([]models.WorkType, error) {
	var types []models.WorkType
	for _, raw := range c.QueryParams()["type"] {
		t, err := models.ParseWorkType(raw)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		types = append(types, t)
	}
	return types, nil
}
