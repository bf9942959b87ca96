package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/placard/signcore/cmd/signserver/service"
)

// PublicHandler serves the public resolution surface hit by scanned codes.
// It never distinguishes between unknown, pooled, hidden, or half-generated
// signs: any non-resolvable code gets the same not-found response.
type PublicHandler struct {
	resolver *service.ResolverService
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(resolver *service.ResolverService) *PublicHandler {
	return &PublicHandler{resolver: resolver}
}

// publicListing is the subset of a listing exposed to anonymous callers
type publicListing struct {
	Code  string  `json:"code"`
	Title string  `json:"title"`
	Phone *string `json:"phone,omitempty"`
}

type resolveResponse struct {
	Listing  publicListing `json:"listing"`
	SignCode string        `json:"sign_code,omitempty"`
}

// ResolveSign resolves a scanned sign code to its listing
// GET /s/:code
func (h *PublicHandler) ResolveSign(c echo.Context) error {
	res, err := h.resolver.ResolveBySignCode(c.Request().Context(), c.Param("code"), scanMeta(c))
	if err != nil {
		return notFound(c)
	}
	return c.JSON(http.StatusOK, resolveResponse{
		Listing:  toPublicListing(res.Listing),
		SignCode: res.Sign.Code,
	})
}

// ResolveListing resolves a direct listing code
// GET /l/:code
func (h *PublicHandler) ResolveListing(c echo.Context) error {
	res, err := h.resolver.ResolveByListingCode(c.Request().Context(), c.Param("code"), scanMeta(c))
	if err != nil {
		return notFound(c)
	}
	return c.JSON(http.StatusOK, resolveResponse{
		Listing: toPublicListing(res.Listing),
	})
}

func toPublicListing(l *models.Listing) publicListing {
	out := publicListing{
		Code:  l.Code,
		Title: l.Title,
	}
	if l.ShowPhone {
		out.Phone = l.Phone
	}
	return out
}

func scanMeta(c echo.Context) service.ScanMeta {
	return service.ScanMeta{
		UserAgent: c.Request().UserAgent(),
		Referrer:  c.Request().Referer(),
	}
}

// notFound is the single response body for every non-resolvable code. The
// body must not vary with the reason, so a scanner cannot probe whether a
// code exists, is pooled, or points at a hidden listing.
func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, map[string]interface{}{
		"error":   "not_found",
		"message": "nothing here",
	})
}
