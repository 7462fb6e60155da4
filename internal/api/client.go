// Package api talks to the JSON endpoints behind the pages: form and
// multipart posts, result decoding and the live notification feed.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const (
	// CSRFCookie is the cookie holding the CSRF token.
	CSRFCookie = "csrf_token"
	// CSRFHeader is the header the token is echoed in on unsafe requests.
	CSRFHeader = "X-CSRF-TOKEN"
)

// Response is a completed HTTP exchange.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// File is one file part of a multipart request.
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

// Client sends requests relative to a base URL and keeps cookies between
// them.
type Client struct {
	base *url.URL
	http *http.Client
	jar  http.CookieJar
	log  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its jar, when unset,
// is filled with the client's cookie jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient returns a Client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	c := &Client{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	c.jar = c.http.Jar
	return c, nil
}

// Resolve resolves a page-relative path against the base URL.
func (c *Client) Resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing path %q: %w", path, err)
	}
	return c.base.ResolveReference(ref), nil
}

// PostForm posts form-encoded values to path.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

// PostMultipart posts fields and files as multipart/form-data to path.
func (c *Client) PostMultipart(ctx context.Context, path string, fields url.Values, files ...File) (*Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, v := range values {
			if err := w.WriteField(key, v); err != nil {
				return nil, fmt.Errorf("writing field %s: %w", key, err)
			}
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, fmt.Errorf("creating file part %s: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("writing file part %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, &buf, w.FormDataContentType())
}

// Get fetches path.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

// do sends the request. A transport failure or non-2xx status returns an
// *Error; the response is returned alongside it when one arrived.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*Response, error) {
	u, err := c.Resolve(path)
	if err != nil {
		return nil, &Error{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if !safeMethod(method) {
		if token := c.csrfToken(u); token != "" {
			req.Header.Set(CSRFHeader, token)
		}
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("%s %s: %w", method, u.Path, err)}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Error{Status: httpResp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	resp := &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: respBody}
	c.log.Debug("api request", "method", method, "path", u.Path, "status", resp.Status)

	if resp.Status < 200 || resp.Status > 299 {
		return resp, newError(resp.Status, respBody)
	}
	return resp, nil
}

func (c *Client) csrfToken(u *url.URL) string {
	for _, ck := range c.jar.Cookies(u) {
		if ck.Name == CSRFCookie {
			return ck.Value
		}
	}
	return ""
}

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
