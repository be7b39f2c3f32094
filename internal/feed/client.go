package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultPath is the snapshot file the scanner station writes.
const DefaultPath = "presensi.json"

// maxBody caps the snapshot size read from the wire.
const maxBody = 32 << 20

var (
	// ErrUnavailable wraps transport failures.
	ErrUnavailable = errors.New("attendance feed unavailable")
	// ErrBadStatus is returned for non-2xx responses.
	ErrBadStatus = errors.New("attendance feed returned unexpected status")
	// ErrInvalidPayload is returned when the body is not a JSON array.
	ErrInvalidPayload = errors.New("attendance feed returned invalid payload")
)

// Client polls the static attendance snapshot.
type Client struct {
	BaseURL string
	Path    string
	HTTP    *http.Client
	// Now stamps the cache-busting parameter; defaults to time.Now.
	Now func() time.Time
}

// New creates a client with the given request timeout.
func New(baseURL, path string, timeout time.Duration) *Client {
	if path == "" {
		path = DefaultPath
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Path:    strings.TrimLeft(path, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		Now:     time.Now,
	}
}

// URL returns the request URL with a fresh cache-busting parameter.
func (c *Client) URL() (string, error) {
	u, err := url.Parse(c.BaseURL + "/" + c.Path)
	if err != nil {
		return "", fmt.Errorf("feed url: %w", err)
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(now().UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch downloads the snapshot and checks that it is a JSON array. The raw
// bytes are returned so callers can persist exactly what was served.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	target, err := c.URL()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: HTTP %d", ErrBadStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if len(body) > maxBody {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidPayload, maxBody)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: not a json array", ErrInvalidPayload)
	}
	return trimmed, nil
}
