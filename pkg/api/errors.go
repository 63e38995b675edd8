package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/hybridmem/memstore/pkg/memory"
)

// mapStoreError maps pkg/memory error kinds to HTTP error responses.
func mapStoreError(err error) *echo.HTTPError {
	var validErr *memory.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}
	var notFound *memory.NotFoundError
	if errors.As(err, &notFound) {
		return echo.NewHTTPError(http.StatusNotFound, notFound.Error())
	}

	slog.Error("api: unexpected store error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
