package census

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// validPNG returns an encoded 1x1 PNG.
func validPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testClient(endpoint string) *Client {
	return NewClient(Config{
		Endpoint:      endpoint,
		MaxAttempts:   3,
		RetryInterval: time.Millisecond,
		Verify:        true,
	})
}

func TestLookupFound(t *testing.T) {
	payload := validPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/ps2/images/static/42.png" {
			t.Errorf("unexpected request path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	asset, err := testClient(srv.URL).Lookup(context.Background(), 42)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if asset.ID != 42 {
		t.Errorf("ID = %d, want 42", asset.ID)
	}
	if !bytes.Equal(asset.Data, payload) {
		t.Error("payload does not match response body")
	}
	if asset.Ext != ".png" {
		t.Errorf("Ext = %q, want .png", asset.Ext)
	}
}

func TestLookupNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Lookup(context.Background(), 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	// Not-found is terminal; it must not be retried.
	if calls.Load() != 1 {
		t.Errorf("made %d requests, want 1", calls.Load())
	}
}

func TestLookupRetriesTransient(t *testing.T) {
	payload := validPNG(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	asset, err := testClient(srv.URL).Lookup(context.Background(), 5)
	if err != nil {
		t.Fatalf("Lookup after retries: %v", err)
	}
	if asset == nil || len(asset.Data) == 0 {
		t.Fatal("expected asset after retries")
	}
	if calls.Load() != 3 {
		t.Errorf("made %d requests, want 3", calls.Load())
	}
}

func TestLookupTransientExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Lookup(context.Background(), 5)
	if !IsTransient(err) {
		t.Fatalf("expected transient error, got: %v", err)
	}
	// MaxAttempts bounds the retry loop.
	if calls.Load() != 3 {
		t.Errorf("made %d requests, want 3", calls.Load())
	}
}

func TestLookupCorruptPayload(t *testing.T) {
	// PNG signature followed by garbage: sniffs as PNG, fails to decode.
	corrupt := append([]byte("\x89PNG\r\n\x1a\n"), []byte("not actually an image")...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(corrupt)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Lookup(context.Background(), 9)
	if !IsProtocol(err) {
		t.Fatalf("expected protocol error for corrupt payload, got: %v", err)
	}
}

func TestLookupCorruptPayloadWithoutVerify(t *testing.T) {
	corrupt := append([]byte("\x89PNG\r\n\x1a\n"), []byte("junk")...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(corrupt)
	}))
	defer srv.Close()

	c := NewClient(Config{
		Endpoint:      srv.URL,
		MaxAttempts:   1,
		RetryInterval: time.Millisecond,
		Verify:        false,
	})
	asset, err := c.Lookup(context.Background(), 9)
	if err != nil {
		t.Fatalf("Lookup with verification off: %v", err)
	}
	if asset.Ext != ".png" {
		t.Errorf("Ext = %q, want .png", asset.Ext)
	}
}

func TestLookupNonImagePayload(t *testing.T) {
	// A 200 serving an HTML maintenance page instead of an asset. If
	// this were returned as a found asset it would be archived and the
	// real file masked forever.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html><body>down for maintenance</body></html>")
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Lookup(context.Background(), 77)
	if !IsProtocol(err) {
		t.Fatalf("expected protocol error for non-image payload, got: %v", err)
	}
}

func TestLookupNonImagePayloadWithoutVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html><body>hello</body></html>")
	}))
	defer srv.Close()

	c := NewClient(Config{
		Endpoint:      srv.URL,
		MaxAttempts:   1,
		RetryInterval: time.Millisecond,
		Verify:        false,
	})
	asset, err := c.Lookup(context.Background(), 77)
	if err != nil {
		t.Fatalf("Lookup with verification off: %v", err)
	}
	if asset.Ext != ".html" {
		t.Errorf("Ext = %q, want .html", asset.Ext)
	}
}

func TestLookupEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Lookup(context.Background(), 3)
	if !IsProtocol(err) {
		t.Fatalf("expected protocol error for empty body, got: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Endpoint != DefaultEndpoint {
		t.Errorf("Endpoint = %q, want %q", cfg.Endpoint, DefaultEndpoint)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.MaxAttempts)
	}
	if !cfg.Verify {
		t.Error("Verify should default to true")
	}
}

func TestSniffExt(t *testing.T) {
	if got := sniffExt(mimetype.Detect(validPNG(t)), ""); got != ".png" {
		t.Errorf("sniffExt(png bytes) = %q, want .png", got)
	}

	// Unsniffable bytes fall back to the Content-Type header.
	junk := mimetype.Detect([]byte{0x00, 0x01, 0x02})
	if got := sniffExt(junk, ""); got != ".bin" {
		t.Errorf("sniffExt(junk) = %q, want .bin", got)
	}
	if got := sniffExt(junk, "image/jpeg; charset=binary"); got != ".jpg" {
		t.Errorf("sniffExt(junk, image/jpeg) = %q, want .jpg", got)
	}
}
