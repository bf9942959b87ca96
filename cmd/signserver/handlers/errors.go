package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/placard/signcore/cmd/signserver/models"
)

// writeError maps domain errors to HTTP responses for owner and admin
// callers. These callers get the specific error kind so the UI can render
// targeted messaging; only ErrConflict is deliberately degraded to a
// generic failure because it signals an internal defect.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody("not_found", "resource not found"))
	case errors.Is(err, models.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorBody("forbidden", "not allowed"))
	case errors.Is(err, models.ErrConfirmationRequired):
		return c.JSON(http.StatusConflict, errorBody("confirmation_required",
			"sign is assigned to another listing; confirm the physical sign was moved"))
	case errors.Is(err, models.ErrNotAssigned):
		return c.JSON(http.StatusConflict, errorBody("not_assigned", "sign has no current assignment"))
	default:
		return c.JSON(http.StatusInternalServerError, errorBody("internal", "internal error"))
	}
}

func errorBody(code, message string) map[string]interface{} {
	return map[string]interface{}{
		"error":   code,
		"message": message,
	}
}
