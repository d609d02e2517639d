package fhir

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Source is a resource-oriented FHIR endpoint. Search returns a searchset
// Bundle; Read returns a single resource. The write methods exist for
// upstreams that accept them.
type Source interface {
	Search(ctx context.Context, resourceType string, params url.Values) (*Bundle, error)
	Read(ctx context.Context, resourceType, id string) (TypedResource, error)
	Create(ctx context.Context, resource TypedResource) (TypedResource, error)
	Update(ctx context.Context, resource TypedResource) (TypedResource, error)
	Delete(ctx context.Context, resourceType, id string) error
}

var (
	// ErrUpstreamUnavailable wraps every transport, timeout and non-2xx failure.
	ErrUpstreamUnavailable = errors.New("fhir: upstream unavailable")
	// ErrResourceNotFound is additionally matched by a 404/410 from the upstream.
	ErrResourceNotFound = errors.New("fhir: resource not found")
	// ErrReadOnly is returned by sources that do not accept writes.
	ErrReadOnly = errors.New("fhir: upstream is read-only")
)

// UpstreamError describes a failed upstream call.
type UpstreamError struct {
	Op           string
	ResourceType string
	StatusCode   int
	Message      string
	Err          error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("fhir %s %s", e.Op, e.ResourceType)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrUpstreamUnavailable:
		return true
	case ErrResourceNotFound:
		return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
	}
	return false
}

const fhirContentType = "application/fhir+json"

// DefaultMaxResponseBytes caps how much of an upstream response is read.
const DefaultMaxResponseBytes int64 = 32 << 20

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// WithMaxResponseBytes overrides DefaultMaxResponseBytes.
func WithMaxResponseBytes(n int64) ClientOption {
	return func(cl *Client) { cl.maxResponseBytes = n }
}

// Client talks to a FHIR REST server over HTTP.
type Client struct {
	baseURL          string
	httpClient       *http.Client
	maxResponseBytes int64
}

// NewClient creates a Client for baseURL (e.g. https://hapi.fhir.org/baseR4).
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		httpClient:       &http.Client{Timeout: timeout},
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the server root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Search(ctx context.Context, resourceType string, params url.Values) (*Bundle, error) {
	u := c.baseURL + "/" + resourceType
	if q := CleanParams(params).Encode(); q != "" {
		u += "?" + q
	}
	var bundle Bundle
	if err := c.do(ctx, "search", resourceType, http.MethodGet, u, nil, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (c *Client) Read(ctx context.Context, resourceType, id string) (TypedResource, error) {
	u := c.baseURL + "/" + resourceType + "/" + url.PathEscape(id)
	var raw json.RawMessage
	if err := c.do(ctx, "read", resourceType, http.MethodGet, u, nil, &raw); err != nil {
		return nil, err
	}
	return decodeResponse("read", resourceType, raw)
}

func (c *Client) Create(ctx context.Context, resource TypedResource) (TypedResource, error) {
	u := c.baseURL + "/" + resource.ResourceName()
	var raw json.RawMessage
	if err := c.do(ctx, "create", resource.ResourceName(), http.MethodPost, u, resource, &raw); err != nil {
		return nil, err
	}
	return decodeResponse("create", resource.ResourceName(), raw)
}

func (c *Client) Update(ctx context.Context, resource TypedResource) (TypedResource, error) {
	u := c.baseURL + "/" + resource.ResourceName() + "/" + url.PathEscape(resource.LogicalID())
	var raw json.RawMessage
	if err := c.do(ctx, "update", resource.ResourceName(), http.MethodPut, u, resource, &raw); err != nil {
		return nil, err
	}
	return decodeResponse("update", resource.ResourceName(), raw)
}

func (c *Client) Delete(ctx context.Context, resourceType, id string) error {
	u := c.baseURL + "/" + resourceType + "/" + url.PathEscape(id)
	return c.do(ctx, "delete", resourceType, http.MethodDelete, u, nil, nil)
}

func (c *Client) do(ctx context.Context, op, resourceType, method, u string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("fhir %s %s: encode body: %w", op, resourceType, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &UpstreamError{Op: op, ResourceType: resourceType, Err: err}
	}
	req.Header.Set("Accept", fhirContentType)
	req.Header.Set("Cache-Control", "no-cache")
	if body != nil {
		req.Header.Set("Content-Type", fhirContentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Op: op, ResourceType: resourceType, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return &UpstreamError{Op: op, ResourceType: resourceType, StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(data)) > c.maxResponseBytes {
		return &UpstreamError{
			Op:           op,
			ResourceType: resourceType,
			StatusCode:   resp.StatusCode,
			Message:      fmt.Sprintf("response exceeds %d bytes", c.maxResponseBytes),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{
			Op:           op,
			ResourceType: resourceType,
			StatusCode:   resp.StatusCode,
			Message:      outcomeMessage(data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &UpstreamError{Op: op, ResourceType: resourceType, StatusCode: resp.StatusCode, Message: "invalid JSON body", Err: err}
	}
	return nil
}

func decodeResponse(op, resourceType string, raw json.RawMessage) (TypedResource, error) {
	r, err := DecodeResource(raw)
	if err != nil {
		return nil, &UpstreamError{Op: op, ResourceType: resourceType, Message: "unexpected resource", Err: err}
	}
	return r, nil
}

// outcomeMessage pulls diagnostics out of an OperationOutcome error body.
func outcomeMessage(body []byte) string {
	var oo OperationOutcome
	if err := json.Unmarshal(body, &oo); err != nil || oo.ResourceType != "OperationOutcome" {
		return ""
	}
	return oo.Diagnostics()
}
