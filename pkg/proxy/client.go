package proxy

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "ptscraper/pkg/errors"
)

// Client is an HTTP client bound to one proxy endpoint
type Client struct {
	address   string
	userAgent string
	http      *http.Client
}

// ParseEndpoint accepts http, https and socks5 proxy URLs. A bare host:port is taken as http.
func ParseEndpoint(endpoint string) (*url.URL, error) {
	endpoint = strings.TrimSpace(endpoint)
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("proxy endpoint %q has no host", endpoint)
	}
	return u, nil
}

// NewClient creates a client routing every request through endpoint
func NewClient(endpoint, userAgent string, timeout time.Duration) (*Client, error) {
	proxyURL, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, errs.Validation(fmt.Sprintf("invalid proxy endpoint %q", endpoint), err)
	}
	return &Client{
		address:   endpoint,
		userAgent: userAgent,
		http:      newHTTPClient(proxyURL, timeout),
	}, nil
}

// NewDirectClient creates a client that does not use any proxy
func NewDirectClient(userAgent string, timeout time.Duration) *Client {
	return &Client{
		address:   "direct",
		userAgent: userAgent,
		http:      newHTTPClient(nil, timeout),
	}
}

func newHTTPClient(proxyURL *url.URL, timeout time.Duration) *http.Client {
	var proxyFunc func(*http.Request) (*url.URL, error)
	if proxyURL != nil {
		proxyFunc = http.ProxyURL(proxyURL)
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy: proxyFunc,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   15 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		Timeout: timeout,
	}
}

// Address returns the endpoint the client was built from
func (c *Client) Address() string {
	return c.address
}

// Fetch GETs url and returns the body. Network failures are TransportErrors,
// non-2xx responses are http_status errors.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.Transport(fmt.Sprintf("failed to build request for %s", rawURL), err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Transport(fmt.Sprintf("request to %s via %s failed", rawURL, c.address), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, errs.HTTPStatus(rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Transport(fmt.Sprintf("failed to read body of %s", rawURL), err)
	}
	return body, nil
}
