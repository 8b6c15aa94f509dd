// Package overlay is the narrow client for the PDF overlay renderer: it
// consumes per-segment page positions and replacement text and returns a
// rendered PDF. Position bookkeeping for PDFs is materially simpler than the
// document engine's node/offset mapping and stays external.
package overlay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oxylab/docseg/internal/ocr"
)

// SegmentOverlay is the replacement text for one segment with the page
// positions it must be drawn at.
type SegmentOverlay struct {
	SegmentIndex uint32     `json:"segmentIndex"`
	Text         string     `json:"text"`
	Positions    []Position `json:"positions"`
}

// Position is one draw location on a page.
type Position struct {
	PageNumber int           `json:"pageNumber"`
	Bounds     ocr.Rect      `json:"bounds"`
	Font       *ocr.FontInfo `json:"font,omitempty"`
}

// RenderRequest is the renderer's input: the original PDF plus overlays.
type RenderRequest struct {
	Document []byte           `json:"document"`
	Overlays []SegmentOverlay `json:"overlays"`
}

// Client talks to the overlay renderer service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Configured reports whether a renderer endpoint was provided.
func (c *Client) Configured() bool { return c != nil && c.baseURL != "" }

// Render submits the document and overlays and returns the rendered PDF bytes.
func (c *Client) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("render: status %d: %s", resp.StatusCode, string(msg))
	}

	return io.ReadAll(resp.Body)
}
