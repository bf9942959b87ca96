package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/placard/signcore/cmd/signserver/middleware"
	"github.com/placard/signcore/cmd/signserver/service"
)

// AdminHandler handles support-tooling overrides. Every mutation here is
// audited in the same transaction that applies it.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// GrantSignRequest binds the body of a sign grant
type GrantSignRequest struct {
	OwnerID string  `json:"owner_id" validate:"required"`
	Reason  *string `json:"reason"`
}

// ForceUnassignRequest binds the body of force-unassign calls
type ForceUnassignRequest struct {
	Reason *string `json:"reason"`
}

// GrantSign mints a new pooled sign for an owner
// POST /api/v1/admin/signs
func (h *AdminHandler) GrantSign(c echo.Context) error {
	var req GrantSignRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sign, err := h.admin.GrantSign(c.Request().Context(), req.OwnerID, middleware.GetActor(c), req.Reason)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, newSignResponse(sign))
}

// ForceUnassign detaches a single sign regardless of owner
// POST /api/v1/admin/signs/:id/force-unassign
func (h *AdminHandler) ForceUnassign(c echo.Context) error {
	signID, err := parseSignID(c)
	if err != nil {
		return err
	}

	var req ForceUnassignRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	sign, err := h.admin.ForceUnassign(c.Request().Context(), signID, middleware.GetActor(c), req.Reason)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, newSignResponse(sign))
}

// ForceUnassignAll detaches every sign bound to a listing in one
// transaction. Used when a listing is being taken down.
// POST /api/v1/admin/listings/:id/force-unassign-all
func (h *AdminHandler) ForceUnassignAll(c echo.Context) error {
	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid listing id")
	}

	var req ForceUnassignRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	count, err := h.admin.ForceUnassignAll(c.Request().Context(), listingID, middleware.GetActor(c), req.Reason)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"listing_id": listingID,
		"unassigned": count,
	})
}

// ListAudit pages through the audit log, newest first
// GET /api/v1/admin/audit?limit=50&offset=0
func (h *AdminHandler) ListAudit(c echo.Context) error {
	limit, offset := parsePage(c)
	entries, err := h.admin.ListAudit(c.Request().Context(), limit, offset)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
