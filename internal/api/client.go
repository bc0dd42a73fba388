package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://api.sentinel.controld.com/api/v1"

	origin    = "https://controld.com"
	referer   = "https://controld.com/"
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/26.2 Safari/605.1.15"
)

type Client struct {
	restyClient *resty.Client
	token       string
	logger      *slog.Logger
}

type Option func(*Client)

// WithTimeout bounds each request. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.restyClient.SetTimeout(d)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	c := &Client{restyClient: client, token: token, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Accept":        "*/*",
		"Authorization": c.token,
		"Content-Type":  "application/json",
		"Origin":        origin,
		"Referer":       referer,
		"User-Agent":    userAgent,
	}
}

// LookupDomain fetches the full intelligence document for domain.
// Any status other than 200 is returned as *HTTPError.
func (c *Client) LookupDomain(ctx context.Context, domain string) (*Document, error) {
	resp, err := c.restyClient.R().
		SetContext(ctx).
		SetHeaders(c.headers()).
		SetPathParam("domain", domain).
		Get("/domains/{domain}")
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", domain, err)
	}

	c.logger.Debug("sentinel response",
		"url", resp.Request.URL,
		"status", resp.StatusCode(),
		"bytes", len(resp.Body()),
		"elapsed", resp.Time())

	if resp.StatusCode() != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	raw := resp.Body()
	if !json.Valid(raw) {
		return nil, fmt.Errorf("decode response for %s: body is not valid JSON", domain)
	}
	return &Document{Raw: raw}, nil
}
