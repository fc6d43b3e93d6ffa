// Package platform is the HTTP client for the messaging platform's JSON
// API.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soyeahso/oagate/internal/logging"
	"github.com/soyeahso/oagate/internal/version"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Options configures a Client.
type Options struct {
	// BaseURL is the API host, e.g. https://api.weixin.qq.com.
	BaseURL string
	// OpenURL is the web authorization host.
	OpenURL string
	Timeout time.Duration
	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
	Log        *logging.Logger
}

// Client issues platform API calls and decodes their JSON responses.
type Client struct {
	baseURL string
	openURL string
	http    *http.Client
	log     *logging.Logger
}

// NewClient creates a platform client.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = apiHosts[Weixin]
	}
	if opts.OpenURL == "" {
		opts.OpenURL = DefaultOpenURL
	}
	log := opts.Log
	if log == nil {
		log = logging.New(nil, "silent")
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		openURL: strings.TrimRight(opts.OpenURL, "/"),
		http:    hc,
		log:     log.Sub("platform"),
	}
}

// BaseURL returns the API host the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET to path with query and decodes the JSON response into
// out, which may be nil.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return c.do(req, path, out)
}

// PostJSON posts body as JSON to path with query and decodes the response
// into out.
func (c *Client) PostJSON(ctx context.Context, path string, query url.Values, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, query), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	return c.do(req, path, out)
}

// PostFile uploads r as a multipart form file under field and decodes the
// response into out.
func (c *Client) PostFile(ctx context.Context, path string, query url.Values, field, filename string, r io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, query), &buf)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, path, out)
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(req *http.Request, path string, out any) error {
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("platform call")

	return decodeResponse(resp.StatusCode, body, out)
}

// decodeResponse turns a platform body into out or an error. Bodies with a
// non-zero errcode become *Error regardless of the HTTP status.
func decodeResponse(status int, body []byte, out any) error {
	var envelope struct {
		Code    *int   `json:"errcode"`
		Message string `json:"errmsg"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		if status >= 300 {
			return fmt.Errorf("%w: HTTP %d", ErrMalformedResponse, status)
		}
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if envelope.Code != nil && *envelope.Code != 0 {
		return &Error{Code: *envelope.Code, Message: envelope.Message}
	}
	if status >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrMalformedResponse, status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
