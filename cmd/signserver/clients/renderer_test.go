package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/placard/signcore/common/config"
	"github.com/placard/signcore/common/logger"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *RendererClient {
	cfg := &config.Config{}
	cfg.Renderer.BaseURL = baseURL
	cfg.Renderer.Timeout = 2 * time.Second
	return NewRendererClient(cfg, logger.New("error", "json"))
}

func render(t *testing.T, c *RendererClient) (*RenderResult, error) {
	t.Helper()
	snapshot := models.ListingSnapshot{
		ListingID: uuid.New(),
		Code:      "L-abc123",
		Title:     "Cozy cottage",
	}
	params := models.GenerationParams{Language: "en", ShowPhone: true}
	return c.Render(context.Background(), uuid.New(), "https://signs.example.com/s/X", snapshot, params)
}

func TestRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/render", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req["sign_id"])
		require.NotEmpty(t, req["scan_url"])

		json.NewEncoder(w).Encode(RenderResult{
			QRRef:       "cas://qr/x",
			DocumentRef: "cas://doc/x",
		})
	}))
	defer srv.Close()

	result, err := render(t, newTestClient(srv.URL))
	require.NoError(t, err)
	require.Equal(t, "cas://qr/x", result.QRRef)
	require.Equal(t, "cas://doc/x", result.DocumentRef)
}

func TestRender_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "render crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := render(t, newTestClient(srv.URL))
	require.ErrorIs(t, err, models.ErrGenerationFailure)
}

func TestRender_PartialResultRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(RenderResult{QRRef: "cas://qr/x"})
	}))
	defer srv.Close()

	_, err := render(t, newTestClient(srv.URL))
	require.ErrorIs(t, err, models.ErrGenerationFailure)
}

func TestRender_Unreachable(t *testing.T) {
	_, err := render(t, newTestClient("http://127.0.0.1:1"))
	require.ErrorIs(t, err, models.ErrGenerationFailure)
}
