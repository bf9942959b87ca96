package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func adminRequest(t *testing.T, token string) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if token != "" {
		req.Header.Set("X-Admin-Token", token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := AdminAuth()(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))

	return rec, called
}

func TestAdminAuth_DisabledWithoutToken(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "")

	rec, called := adminRequest(t, "anything")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, called)
}

func TestAdminAuth_WrongToken(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "s3cret")

	rec, called := adminRequest(t, "wrong")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, called)
}

func TestAdminAuth_ValidToken(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "s3cret")

	rec, called := adminRequest(t, "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, called)
}
