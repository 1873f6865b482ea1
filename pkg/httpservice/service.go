/*
Copyright 2024 The Shelfline Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package httpservice builds outbound HTTP clients for the external content
// and metadata services (DPLA, Europeana, Wikipedia, WorldCat, Facebook).
package httpservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/ahoma/shelfline/pkg/config"
	"github.com/ahoma/shelfline/pkg/logging"
)

// ErrInvalidJSON is returned by GetJSON when the response body is not JSON
var ErrInvalidJSON = errors.New("response is not valid JSON")

// StatusError reports a non-2xx response
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// Options are the per-service client options. The proxy port and type are
// only meaningful when ProxyHost is set.
type Options struct {
	ProxyHost string
	ProxyPort int
	ProxyType string
}

// OptionsFromConfig copies the proxy section into client options, dropping
// the port and type unless a host is configured.
func OptionsFromConfig(proxy config.ProxyConfig) Options {
	if proxy.Host == "" {
		return Options{}
	}
	opts := Options{ProxyHost: proxy.Host}
	if proxy.Port != 0 {
		opts.ProxyPort = proxy.Port
	}
	if proxy.Type != "" {
		opts.ProxyType = proxy.Type
	}
	return opts
}

// ProxyURL returns the proxy URL, or nil when no proxy is configured
func (o Options) ProxyURL() *url.URL {
	if o.ProxyHost == "" {
		return nil
	}
	scheme := "http"
	if o.ProxyType == "socks5" {
		scheme = "socks5"
	}
	host := o.ProxyHost
	if o.ProxyPort != 0 {
		host = net.JoinHostPort(o.ProxyHost, strconv.Itoa(o.ProxyPort))
	}
	return &url.URL{Scheme: scheme, Host: host}
}

// RequestObserver receives one call per outbound request
type RequestObserver interface {
	ObserveRequest(target string, duration time.Duration, err error)
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithObserver reports every request to o
func WithObserver(o RequestObserver) ServiceOption {
	return func(s *Service) { s.observer = o }
}

// WithLogger sets the logger used for breaker state changes
func WithLogger(l *logging.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// Service creates configured HTTP clients
type Service struct {
	options  Options
	defaults config.HTTPConfig
	observer RequestObserver
	logger   *logging.Logger
	clients  atomic.Int64
}

// NewService creates an HTTP service with the given proxy options and client defaults
func NewService(options Options, defaults config.HTTPConfig, opts ...ServiceOption) *Service {
	s := &Service{
		options:  options,
		defaults: defaults,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Options returns the proxy options the service was built with
func (s *Service) Options() Options {
	return s.options
}

// Defaults returns the client defaults
func (s *Service) Defaults() config.HTTPConfig {
	return s.defaults
}

// CreateClient returns a new client. Each client has its own rate limiter and
// circuit breaker.
func (s *Service) CreateClient() *Client {
	n := s.clients.Add(1)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy := s.options.ProxyURL(); proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}

	c := &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   s.defaults.Timeout,
		},
		userAgent: s.defaults.UserAgent,
		observer:  s.observer,
	}

	if s.defaults.RateLimit > 0 {
		burst := s.defaults.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(s.defaults.RateLimit), burst)
	}

	if s.defaults.MaxFailures > 0 {
		maxFailures := s.defaults.MaxFailures
		logger := s.logger
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        fmt.Sprintf("http-client-%d", n),
			MaxRequests: 1,
			Timeout:     s.defaults.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Info("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}

	return c
}

// Client is an outbound HTTP client safe for concurrent use
type Client struct {
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	observer  RequestObserver
}

// HTTPClient exposes the underlying net/http client
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Do sends req after waiting for the rate limiter. Server errors (5xx) count
// as breaker failures and are returned as *StatusError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.do(req)
	if c.observer != nil {
		c.observer.ObserveRequest(req.URL.String(), time.Since(start), err)
	}
	return resp, err
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if c.breaker == nil {
		return c.send(req)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.send(req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: req.URL.String(), Code: resp.StatusCode}
	}
	return resp, nil
}

// Get fetches rawURL and returns the body of a 2xx response
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// GetJSON fetches rawURL and parses the body with gjson
func (c *Client) GetJSON(ctx context.Context, rawURL string) (gjson.Result, error) {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s: %w", rawURL, ErrInvalidJSON)
	}
	return gjson.ParseBytes(body), nil
}
