package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PageSegment is one text unit returned by the remote service.
type PageSegment struct {
	SourceText string    `json:"sourceText"`
	PageNumber int       `json:"pageNumber"`
	Bounds     *Rect     `json:"bounds,omitempty"`
	Font       *FontInfo `json:"font,omitempty"`
}

// Rect is a page-relative bounding box in points.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FontInfo describes the recognized font of a segment.
type FontInfo struct {
	Name string  `json:"name,omitempty"`
	Size float64 `json:"size,omitempty"`
}

// ExtractResult is the remote service's response for one document.
type ExtractResult struct {
	Segments  []PageSegment     `json:"segments"`
	PageCount int               `json:"pageCount"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TransientError marks a failure worth retrying: network trouble, rate
// limiting or a server-side error.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Client talks to the remote OCR/structure-extraction service.
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
			Timeout: 120 * time.Second, // OCR of large scans is slow
		},
	}
}

// Configured reports whether a service endpoint was provided.
func (c *Client) Configured() bool { return c != nil && c.baseURL != "" }

// Extract submits the raw document bytes and returns the recognized
// structure.
func (c *Client) Extract(ctx context.Context, filename string, data []byte) (*ExtractResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Filename", filename)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("extract: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("extract %s: status %d: %s", filename, resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, &TransientError{Err: err}
		}
		return nil, err
	}

	var result ExtractResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode extract response: %w", err)
	}
	return &result, nil
}
