package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/placard/signcore/cmd/signserver/models"
	"github.com/placard/signcore/common/config"
)

// Logger interface for client logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// RenderResult carries the artifact refs produced by one render.
// Both refs are always present; a render that can only produce one of the
// two artifacts is a failure.
type RenderResult struct {
	QRRef       string `json:"qr_ref"`
	DocumentRef string `json:"document_ref"`
}

// RendererClient calls the artifact renderer service over HTTP. The
// renderer is opaque to this core: it takes a listing snapshot plus display
// parameters and returns stable storage paths for the QR image and the
// printable document.
type RendererClient struct {
	baseURL string
	client  *http.Client
	logger  Logger
}

// NewRendererClient creates a renderer client from config
func NewRendererClient(cfg *config.Config, logger Logger) *RendererClient {
	return &RendererClient{
		baseURL: cfg.Renderer.BaseURL,
		client:  &http.Client{Timeout: cfg.Renderer.Timeout},
		logger:  logger,
	}
}

type renderRequest struct {
	SignID  string                  `json:"sign_id"`
	ScanURL string                  `json:"scan_url"`
	Listing models.ListingSnapshot  `json:"listing"`
	Params  models.GenerationParams `json:"params"`
}

// Render produces both artifacts for the given sign and listing snapshot.
// Returns models.ErrGenerationFailure (wrapped) on any renderer-side error,
// including a response missing either ref.
func (c *RendererClient) Render(ctx context.Context, signID uuid.UUID, scanURL string, listing models.ListingSnapshot, params models.GenerationParams) (*RenderResult, error) {
	body, err := json.Marshal(renderRequest{
		SignID:  signID.String(),
		ScanURL: scanURL,
		Listing: listing,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render request: %w", err)
	}

	url := c.baseURL + "/v1/render"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("renderer unreachable: %w", models.ErrGenerationFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("renderer returned error",
			"sign_id", signID,
			"status", resp.StatusCode,
			"body", string(raw))
		return nil, fmt.Errorf("renderer status %d: %w", resp.StatusCode, models.ErrGenerationFailure)
	}

	var result RenderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode render response: %w", models.ErrGenerationFailure)
	}

	// No partial writes: both refs or neither.
	if result.QRRef == "" || result.DocumentRef == "" {
		c.logger.Error("renderer returned partial result",
			"sign_id", signID,
			"qr_ref", result.QRRef != "",
			"document_ref", result.DocumentRef != "")
		return nil, fmt.Errorf("renderer returned partial artifacts: %w", models.ErrGenerationFailure)
	}

	return &result, nil
}
