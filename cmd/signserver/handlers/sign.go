package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/placard/signcore/cmd/signserver/middleware"
	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/placard/signcore/cmd/signserver/service"
)

// SignHandler handles owner-facing sign operations
type SignHandler struct {
	assignments *service.AssignmentService
}

// NewSignHandler creates a new sign handler
func NewSignHandler(assignments *service.AssignmentService) *SignHandler {
	return &SignHandler{assignments: assignments}
}

// AssignRequest binds the body of assign and reassign calls
type AssignRequest struct {
	ListingID uuid.UUID `json:"listing_id" validate:"required"`

	// Confirmed acknowledges that the physical sign was moved when it is
	// currently bound to a different listing. Ignored on first assignment.
	Confirmed bool `json:"confirmed"`
}

// RegenerateRequest binds the body of regenerate calls
type RegenerateRequest struct {
	Language  string `json:"language" validate:"omitempty,bcp47_language_tag"`
	ShowPhone bool   `json:"show_phone"`
}

// signResponse wraps a sign with its derived lifecycle status so clients
// can poll a single field instead of re-deriving it
type signResponse struct {
	*models.Sign
	Status models.SignStatus `json:"status"`
}

func newSignResponse(sign *models.Sign) signResponse {
	return signResponse{Sign: sign, Status: sign.Status()}
}

// Assign binds a pooled sign to a listing
// POST /api/v1/signs/:id/assign
func (h *SignHandler) Assign(c echo.Context) error {
	signID, err := parseSignID(c)
	if err != nil {
		return err
	}

	var req AssignRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	actor := middleware.GetActor(c)

	var sign *models.Sign
	if req.Confirmed {
		sign, err = h.assignments.Reassign(c.Request().Context(), signID, req.ListingID, actor, true)
	} else {
		sign, err = h.assignments.Assign(c.Request().Context(), signID, req.ListingID, actor)
	}
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, newSignResponse(sign))
}

// Unassign returns a sign to the owner's pool
// POST /api/v1/signs/:id/unassign
func (h *SignHandler) Unassign(c echo.Context) error {
	signID, err := parseSignID(c)
	if err != nil {
		return err
	}

	sign, err := h.assignments.Unassign(c.Request().Context(), signID, middleware.GetActor(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, newSignResponse(sign))
}

// Regenerate re-runs artifact generation for an assigned sign
// POST /api/v1/signs/:id/regenerate
func (h *SignHandler) Regenerate(c echo.Context) error {
	signID, err := parseSignID(c)
	if err != nil {
		return err
	}

	var req RegenerateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	params := models.GenerationParams{Language: req.Language, ShowPhone: req.ShowPhone}
	sign, err := h.assignments.Regenerate(c.Request().Context(), signID, middleware.GetActor(c), params)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusAccepted, newSignResponse(sign))
}

// GetSign returns a single sign; owners poll this for artifact completion
// GET /api/v1/signs/:id
func (h *SignHandler) GetSign(c echo.Context) error {
	signID, err := parseSignID(c)
	if err != nil {
		return err
	}

	sign, err := h.assignments.GetSign(c.Request().Context(), signID, middleware.GetActor(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, newSignResponse(sign))
}

// ListAvailable lists the caller's pooled signs, optionally excluding
// those already bound to a given listing
// GET /api/v1/signs/available?exclude_listing=<uuid>
func (h *SignHandler) ListAvailable(c echo.Context) error {
	var exclude *uuid.UUID
	if raw := c.QueryParam("exclude_listing"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid exclude_listing")
		}
		exclude = &id
	}

	signs, err := h.assignments.ListAvailable(c.Request().Context(), middleware.GetActor(c), exclude)
	if err != nil {
		return writeError(c, err)
	}

	out := make([]signResponse, 0, len(signs))
	for _, s := range signs {
		out = append(out, newSignResponse(s))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"signs": out,
		"count": len(out),
	})
}

// History returns the sign's assignment ledger, newest first
// GET /api/v1/signs/:id/history?limit=50&offset=0
func (h *SignHandler) History(c echo.Context) error {
	signID, err := parseSignID(c)
	if err != nil {
		return err
	}

	limit, offset := parsePage(c)
	records, err := h.assignments.History(c.Request().Context(), signID, middleware.GetActor(c), limit, offset)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

func parseSignID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid sign id")
	}
	return id, nil
}

func parsePage(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
