// Package census fetches binary asset files from the Daybreak census
// file endpoint by numeric ID.
package census

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gabriel-vasile/mimetype"
)

// DefaultEndpoint is the census file service root.
const DefaultEndpoint = "https://census.daybreakgames.com"

// assetPathFormat is the request path for a static image asset.
const assetPathFormat = "/files/ps2/images/static/%d.png"

// Asset is a single file retrieved from the endpoint. Assets are
// immutable once assigned an ID; the endpoint never serves different
// content for the same ID.
type Asset struct {
	ID          int64
	Data        []byte
	ContentType string // response header, may be empty
	Ext         string // inferred extension including the dot, e.g. ".png"
}

// Config configures a census client.
type Config struct {
	// Endpoint is the service root URL. Default: DefaultEndpoint.
	Endpoint string

	// Timeout is the per-request timeout. Default: 30s.
	Timeout time.Duration

	// MaxAttempts bounds how often a single lookup is tried before the
	// failure is surfaced. Default: 5.
	MaxAttempts int

	// RetryInterval is the initial backoff between attempts. Default: 500ms.
	RetryInterval time.Duration

	// Verify rejects payloads that do not sniff as an image and decodes
	// PNGs, so non-image responses and truncated or corrupt downloads
	// never reach the archive.
	Verify bool
}

// DefaultConfig returns the client defaults, with verification on.
func DefaultConfig() Config {
	return Config{
		Endpoint:      DefaultEndpoint,
		Timeout:       30 * time.Second,
		MaxAttempts:   5,
		RetryInterval: 500 * time.Millisecond,
		Verify:        true,
	}
}

// Client looks up assets by ID over HTTP.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// NewClient creates a client, filling zero config fields with defaults.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
}

// Lookup fetches the asset with the given ID. It returns ErrNotFound
// when the endpoint has no file for the ID, a *TransientError after
// retries are exhausted on recoverable failures, and a *ProtocolError
// for responses that cannot be a valid asset. Retries are bounded by
// MaxAttempts; there is no unbounded retry path.
func (c *Client) Lookup(ctx context.Context, id int64) (*Asset, error) {
	var asset *Asset
	op := func() error {
		a, err := c.lookupOnce(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return backoff.Permanent(err)
			}
			// Protocol errors get another attempt too: a payload that
			// fails verification is usually a bad transfer, not a
			// changed endpoint.
			return err
		}
		asset = a
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.RetryInterval
	bo := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.cfg.MaxAttempts-1)), ctx)

	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return asset, nil
}

func (c *Client) lookupOnce(ctx context.Context, id int64) (*Asset, error) {
	url := c.cfg.Endpoint + fmt.Sprintf(assetPathFormat, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for asset %d: %w", id, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{ID: id, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &TransientError{ID: id, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &ProtocolError{ID: id, Status: resp.StatusCode, Reason: "unexpected status"}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{ID: id, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(data) == 0 {
		return nil, &ProtocolError{ID: id, Status: resp.StatusCode, Reason: "empty body"}
	}

	mt := mimetype.Detect(data)

	// The endpoint only ever serves image files; a 200 whose body is
	// something else (an HTML maintenance page, a JSON error wrapped in
	// a success status) must never reach the archive, where first-fetch-
	// wins would mask the real asset for good.
	if c.cfg.Verify && !strings.HasPrefix(mt.String(), "image/") {
		return nil, &ProtocolError{ID: id, Status: resp.StatusCode, Reason: fmt.Sprintf("non-image payload (%s)", mt.String())}
	}

	contentType := resp.Header.Get("Content-Type")
	asset := &Asset{
		ID:          id,
		Data:        data,
		ContentType: contentType,
		Ext:         sniffExt(mt, contentType),
	}

	if c.cfg.Verify && asset.Ext == ".png" {
		if _, err := png.Decode(bytes.NewReader(data)); err != nil {
			return nil, &ProtocolError{ID: id, Status: resp.StatusCode, Reason: fmt.Sprintf("corrupt png: %v", err)}
		}
	}

	return asset, nil
}

// preferredExts overrides the Content-Type fallback for types where
// mime.ExtensionsByType returns an awkward alphabetically-first choice.
var preferredExts = map[string]string{
	"image/jpeg": ".jpg", // ExtensionsByType would pick ".jpe"
}

// sniffExt infers a file extension from the sniffed payload type,
// falling back to the Content-Type header when sniffing is
// inconclusive.
func sniffExt(mt *mimetype.MIME, contentType string) string {
	if ext := mt.Extension(); ext != "" {
		return ext
	}
	if contentType != "" {
		if base, _, err := mime.ParseMediaType(contentType); err == nil {
			contentType = base
		}
		if ext, ok := preferredExts[contentType]; ok {
			return ext
		}
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	return ".bin"
}
