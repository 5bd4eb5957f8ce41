// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

// Package yandex implements a client for the Yandex Maps organization
// search API ("Поиск по организациям").
package yandex

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/abakirov/mektep/utils/httputils"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the entry point of the Yandex Search API.
const DefaultBaseURL = "https://search-maps.yandex.ru/v1/"

const (
	// pageSize is the maximum number of results the API returns per request.
	pageSize = 50

	// maxPages bounds pagination within a single tile. Tiles holding more
	// than maxPages*pageSize organizations need a finer grid, not deeper
	// pagination: the API silently degrades past this depth.
	maxPages = 20

	defaultLang          = "ru_RU"
	defaultMaxRetries    = 5
	defaultRetryBackoff  = 500 * time.Millisecond
	defaultRatePerSecond = 4
)

// ClientOptions configuration for the search Client.
type ClientOptions struct {
	// APIKey authenticates every request, required
	APIKey string

	// BaseURL overrides the API entry point, used in tests
	BaseURL string

	// Lang is the locale of returned names and addresses, e.g. "ru_RU"
	Lang string

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// MaxRetries is the number of extra attempts after a transient failure
	MaxRetries int

	// RetryBackoff is the wait before the first retry, doubled each attempt
	RetryBackoff time.Duration

	// RequestsPerSecond throttles outgoing requests across all goroutines
	RequestsPerSecond float64
}

// Client queries the Yandex Maps organization search API. It is safe for
// concurrent use: one client is shared by all tile workers.
type Client struct {
	client  *http.Client
	options *ClientOptions
	baseURL *url.URL
	limiter *rate.Limiter

	mu      sync.Mutex
	metrics SearchMetrics
}

// NewClient creates a new search client with the provided options.
func NewClient(options *ClientOptions) (*Client, error) {
	if options == nil {
		options = &ClientOptions{}
	}

	if options.APIKey == "" {
		return nil, &SearchError{Type: ErrorTypeAuth, Message: "не задан ключ API"}
	}

	base := options.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", base, err)
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace {
		httpLogWriter = os.Stderr
	}

	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		MaxConnsPerHost:       4,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		DisableKeepAlives:     false,
		DisableCompression:    false,
	}

	loggingTransport := &httputils.LoggingRoundTripper{
		Writer:       httpLogWriter,
		DumpBody:     options.EnableHTTPBodyTrace,
		RedactParams: []string{"apikey"},
		Transport:    transport,
	}

	userAgent := "mektep/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	headerTransport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		Transport: loggingTransport,
	}

	client := &http.Client{
		Timeout: 60 * time.Second,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			// The API never redirects, so following one would only
			// mask a misconfigured base URL
			return http.ErrUseLastResponse
		},
		Transport: headerTransport,
	}

	rps := options.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRatePerSecond
	}

	return &Client{
		client:  client,
		options: options,
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

func (c *Client) lang() string {
	if c.options.Lang != "" {
		return c.options.Lang
	}

	return defaultLang
}

func (c *Client) maxRetries() int {
	if c.options.MaxRetries > 0 {
		return c.options.MaxRetries
	}

	return defaultMaxRetries
}

func (c *Client) retryBackoff() time.Duration {
	if c.options.RetryBackoff > 0 {
		return c.options.RetryBackoff
	}

	return defaultRetryBackoff
}

// Metrics returns a snapshot of the accumulated search metrics.
func (c *Client) Metrics() SearchMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.metrics
}
