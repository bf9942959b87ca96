package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"not found", models.ErrNotFound, http.StatusNotFound, "not_found"},
		{"forbidden", models.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"wrapped forbidden", fmt.Errorf("no entitlement: %w", models.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"confirmation required", models.ErrConfirmationRequired, http.StatusConflict, "confirmation_required"},
		{"not assigned", models.ErrNotAssigned, http.StatusConflict, "not_assigned"},
		{"ledger conflict stays generic", models.ErrConflict, http.StatusInternalServerError, "internal"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, writeError(c, tc.err))
			require.Equal(t, tc.wantCode, rec.Code)
			require.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}
