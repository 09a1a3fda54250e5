package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-aisync/core"
	goerrors "github.com/goliatone/go-errors"
)

const defaultRequestTimeout = 30 * time.Second

// connectTimeout is fixed; only the total per-call timeout is configurable.
const connectTimeout = 10 * time.Second

const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPDispatcher performs one outbound POST per call. Any HTTP status the
// remote produces is a normal response; only connection-level failures
// (DNS, refused, timeout) surface as errors. It carries no retry policy.
type HTTPDispatcher struct {
	Client               HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

func NewHTTPDispatcher(client HTTPDoer) *HTTPDispatcher {
	if client == nil {
		// No client-level Timeout: the per-request context deadline owns the
		// total budget, so configured timeouts above the default stay intact.
		client = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		}
	}
	return &HTTPDispatcher{
		Client:               client,
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

// Send blocks until response, timeout, or connection failure.
func (d *HTTPDispatcher) Send(ctx context.Context, req core.DispatchRequest) (core.DispatchResponse, error) {
	if d == nil || d.Client == nil {
		return core.DispatchResponse{}, dispatchError(
			"transport: dispatcher requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodPost
	}
	parsedURL, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil {
		return core.DispatchResponse{}, dispatchWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid request url",
			http.StatusBadRequest,
			map[string]any{"url": strings.TrimSpace(req.URL)},
		)
	}
	if parsedURL.String() == "" {
		return core.DispatchResponse{}, dispatchError(
			"transport: request url is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, method, parsedURL.String(), bytes.NewReader(req.Body))
	if err != nil {
		return core.DispatchResponse{}, dispatchWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"method": method, "url": parsedURL.String()},
		)
	}
	for key, value := range d.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	httpRes, err := d.Client.Do(httpReq)
	if err != nil {
		return core.DispatchResponse{}, dispatchWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: execute http request",
			http.StatusBadGateway,
			map[string]any{"method": method, "url": parsedURL.String()},
		)
	}
	defer httpRes.Body.Close()

	maxBodyBytes := resolveResponseBodyLimit(req.MaxResponseBodyBytes, d.MaxResponseBodyBytes)
	body, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return core.DispatchResponse{}, dispatchWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode},
		)
	}
	if int64(len(body)) > maxBodyBytes {
		return core.DispatchResponse{}, dispatchError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", maxBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"status_code":      httpRes.StatusCode,
				"response_limit_b": maxBodyBytes,
			},
		)
	}

	return core.DispatchResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       body,
	}, nil
}

// AsyncResult settles with exactly one of Response or Err.
type AsyncResult struct {
	Response core.DispatchResponse
	Err      error
}

// SendAsync returns immediately; the channel receives exactly one result
// when the response arrives, the call times out, or the connection fails.
func (d *HTTPDispatcher) SendAsync(ctx context.Context, req core.DispatchRequest) <-chan AsyncResult {
	results := make(chan AsyncResult, 1)
	go func() {
		res, err := d.Send(ctx, req)
		results <- AsyncResult{Response: res, Err: err}
		close(results)
	}()
	return results
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

func resolveResponseBodyLimit(requestLimit int64, dispatcherLimit int64) int64 {
	if requestLimit > 0 {
		return requestLimit
	}
	if dispatcherLimit > 0 {
		return dispatcherLimit
	}
	return defaultResponseBodyLimit
}

var _ core.Dispatcher = (*HTTPDispatcher)(nil)
