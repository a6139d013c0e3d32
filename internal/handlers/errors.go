package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	logpkg "github.com/maktabah-search-api/internal/logger"
	"github.com/maktabah-search-api/internal/models"
	"go.uber.org/zap"
)

// retryAfterSeconds is advertised when the corpus is unavailable
const retryAfterSeconds = 5

// httpError maps a service error to its HTTP status
func httpError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidQuery), errors.Is(err, models.ErrInvalidPagination):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrStoryNotFound), errors.Is(err, models.ErrVerseNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrIndexUnavailable):
		logpkg.FromContext(c.Request().Context()).Warn("corpus unavailable", zap.Error(err))
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Search index unavailable, retry later")
	default:
		logpkg.FromContext(c.Request().Context()).Error("request failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal error")
	}
}
