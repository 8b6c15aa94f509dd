package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/extract" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		if r.Header.Get("X-Filename") != "scan.pdf" {
			t.Errorf("filename header: %q", r.Header.Get("X-Filename"))
		}
		json.NewEncoder(w).Encode(ExtractResult{
			Segments: []PageSegment{
				{SourceText: "Recognized line", PageNumber: 1, Bounds: &Rect{X: 10, Y: 20, Width: 100, Height: 12}},
			},
			PageCount: 1,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	res, err := c.Extract(context.Background(), "scan.pdf", []byte("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(res.Segments) != 1 || res.Segments[0].SourceText != "Recognized line" {
		t.Errorf("segments: %+v", res.Segments)
	}
	if res.PageCount != 1 {
		t.Errorf("page count: %d", res.PageCount)
	}
}

func TestClient_ExtractErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unprocessable scan", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Extract(context.Background(), "bad.pdf", nil)
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		t.Errorf("422 should not be transient: %v", err)
	}
}

func TestClient_ExtractServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "worker crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Extract(context.Background(), "scan.pdf", nil)
	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("expected transient error for 500, got %v", err)
	}
}

func TestClient_Configured(t *testing.T) {
	if NewClient("", "").Configured() {
		t.Error("empty base URL should not count as configured")
	}
	if !NewClient("http://ocr.internal", "").Configured() {
		t.Error("client with base URL should be configured")
	}
}
