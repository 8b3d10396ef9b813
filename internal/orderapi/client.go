// Package orderapi is the HTTP client of the order API. Transport failures
// are returned as errs.NetworkFailureError and are never retried here: the
// caller decides whether to try again.
package orderapi

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

	httpapi "orderflow/internal/adapters/in/http"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

const DefaultTimeout = 10 * time.Second

// Client calls one API server on behalf of one actor.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client with its DefaultTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken authenticates requests with a bearer token. Without it the
// client acts as a guest.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errs.NewValueIsInvalidErrorWithCause("baseURL", fmt.Errorf("%q is not an absolute URL", baseURL))
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Progress fetches the progress of ids in one batch refresh.
func (c *Client) Progress(ctx context.Context, ids []kernel.UUID) (httpapi.BatchProgressResponse, error) {
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}
	q := url.Values{"ids": {strings.Join(raw, ",")}}

	var out httpapi.BatchProgressResponse
	err := c.do(ctx, "progress", http.MethodGet, "/api/v1/orders/progress", q, nil, nil, &out)
	return out, err
}

// Order fetches one order with the caller's action set.
func (c *Client) Order(ctx context.Context, id kernel.UUID) (httpapi.OrderViewResponse, error) {
	var out httpapi.OrderViewResponse
	err := c.do(ctx, "get order", http.MethodGet, "/api/v1/orders/"+id.String(), nil, nil, nil, &out)
	return out, err
}

// PlaceOrder submits a new order.
func (c *Client) PlaceOrder(ctx context.Context, req httpapi.PlaceOrderRequest) (httpapi.OrderResponse, error) {
	var out httpapi.OrderResponse
	err := c.do(ctx, "place order", http.MethodPost, "/api/v1/orders", nil, nil, req, &out)
	return out, err
}

// Perform runs a protocol action by its path name: accept, reject,
// prepare, accept-driver, pickup, deliver or receive. A non-zero
// expectedVersion is sent as If-Match.
func (c *Client) Perform(ctx context.Context, id kernel.UUID, action string, expectedVersion int64) (httpapi.ActionResponse, error) {
	var out httpapi.ActionResponse
	err := c.do(ctx, action, http.MethodPost, "/api/v1/orders/"+id.String()+"/"+action, nil,
		ifMatch(expectedVersion), nil, &out)
	return out, err
}

// Adjust moves the estimate of phase by deltaMinutes.
func (c *Client) Adjust(
	ctx context.Context,
	id kernel.UUID,
	phase string,
	deltaMinutes int,
	expectedVersion int64,
) (httpapi.ActionResponse, error) {
	var out httpapi.ActionResponse
	err := c.do(ctx, "adjust "+phase, http.MethodPost, "/api/v1/orders/"+id.String()+"/adjust/"+phase, nil,
		ifMatch(expectedVersion), httpapi.AdjustRequest{DeltaMinutes: deltaMinutes}, &out)
	return out, err
}

func ifMatch(version int64) http.Header {
	if version == 0 {
		return nil
	}
	return http.Header{"If-Match": {`"` + strconv.FormatInt(version, 10) + `"`}}
}

func (c *Client) do(
	ctx context.Context,
	operation, method, path string,
	query url.Values,
	header http.Header,
	body, out any,
) error {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", operation, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.NewNetworkFailureErrorWithCause(operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(operation, resp)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.NewNetworkFailureErrorWithCause(operation, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// APIError is a non-2xx answer. It unwraps to the errs sentinel of its
// code, so callers classify it with errors.Is like a local error.
type APIError struct {
	Operation string
	Status    int
	Code      string
	Message   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d %s: %s", e.Operation, e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case httpapi.CodeStaleState:
		return errs.ErrStaleState
	case httpapi.CodePermissionDenied, httpapi.CodeUnauthorized:
		return errs.ErrPermissionDenied
	case httpapi.CodeNotFound:
		return errs.ErrObjectNotFound
	case httpapi.CodeInvalidTransition:
		return errs.ErrInvalidTransition
	case httpapi.CodeInvalidVersion:
		return errs.ErrVersionIsInvalid
	case httpapi.CodeInvalidArgument:
		return errs.ErrValueIsInvalid
	}
	if e.Status >= http.StatusInternalServerError {
		return errs.ErrNetworkFailure
	}
	return nil
}

func decodeError(operation string, resp *http.Response) error {
	apiErr := &APIError{Operation: operation, Status: resp.StatusCode}

	var body httpapi.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}
	apiErr.Code = body.Code
	apiErr.Message = body.Message
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
