// Package transport is the single reusable HTTPS client against the cloud
// music service, responsible for auth/device/client headers and JSON
// decoding. It knows nothing about radio sessions or playback.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const requestTimeout = 20 * time.Second

// TransportError wraps a non-2xx response or a network failure.
type TransportError struct {
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: request failed: %v", e.Err)
	}
	return fmt.Sprintf("transport: status %d: %s", e.Status, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Config carries everything needed to build request headers.
type Config struct {
	BaseURL        string
	OAuthToken     string
	DeviceID       string
	DeviceHeader   string
	UserAgent      string
	AcceptLanguage string
	MusicClient    string
	ContentType    string
}

// Client is the single HTTP client used for every cloud call.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New builds a Client against cfg.BaseURL with a 20s per-request timeout.
func New(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// RequestJSON issues method against endpoint (resolved relative to BaseURL),
// encoding body as the JSON request payload when non-nil, merging
// extraParams into the query string alongside the standing device-id
// parameter, and decoding a JSON object response. An empty response body
// decodes to an empty map, matching the cloud service's behavior on
// bodyless 2xx replies.
func (c *Client) RequestJSON(ctx context.Context, method, endpoint string, body any, extraParams map[string]string) (map[string]any, error) {
	reqURL, err := c.buildURL(endpoint, extraParams)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, &TransportError{Err: fmt.Errorf("encode request body: %w", err)}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	c.setHeaders(req, body != nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(respBody)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, &TransportError{Status: resp.StatusCode, Body: snippet}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return map[string]any{}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decode response body: %w", err)}
	}
	return decoded, nil
}

// Result extracts the "result" object from a decoded envelope, or an empty
// map if absent/non-object — every cloud response wraps its payload this
// way.
func Result(payload map[string]any) map[string]any {
	result, _ := payload["result"].(map[string]any)
	if result == nil {
		return map[string]any{}
	}
	return result
}

func (c *Client) buildURL(endpoint string, extraParams map[string]string) (string, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	full := base.ResolveReference(ref)

	q := full.Query()
	if c.cfg.DeviceID != "" {
		q.Set("device-id", c.cfg.DeviceID)
	}
	for k, v := range extraParams {
		q.Set(k, v)
	}
	full.RawQuery = q.Encode()
	return full.String(), nil
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", c.cfg.AcceptLanguage)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-Yandex-Music-Client", c.cfg.MusicClient)
	req.Header.Set("X-Yandex-Music-Content-Type", c.cfg.ContentType)
	req.Header.Set("X-Yandex-Music-Device", c.cfg.DeviceHeader)
	if c.cfg.OAuthToken != "" {
		req.Header.Set("Authorization", "OAuth "+c.cfg.OAuthToken)
	}
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	req.Header.Set("X-Yandex-Music-Client-Now", nowISOSeconds())
}

func nowISOSeconds() string {
	return timeNow().Format("2006-01-02T15:04:05-07:00")
}

// timeNow is a var so tests can freeze it.
var timeNow = time.Now
