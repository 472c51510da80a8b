// Package sdk is the Go client for the gostat evaluation service.
package sdk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/betbot/gostat/pkg/ratelimit"
)

// APIError is a non-2xx response from the service. Code carries the
// stable wire code, so callers can branch without string matching.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gostat: %s (%s, http %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("gostat: %s (http %d)", e.Message, e.Status)
}

type wireError struct {
	Message string `json:"error"`
	Code    string `json:"code"`
}

type Client struct {
	rc      *resty.Client
	baseURL string
	token   string
	limiter ratelimit.RateLimiter
}

type Option func(*Client)

// WithToken sends the bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.rc.SetTimeout(d) }
}

func WithRetryCount(n int) Option {
	return func(c *Client) { c.rc.SetRetryCount(n) }
}

// WithRateLimit throttles the client before requests leave the
// process, keeping well-behaved callers under the server's per-token
// quota.
func WithRateLimit(limit int, window time.Duration) Option {
	return func(c *Client) { c.limiter = ratelimit.NewSlidingWindow(limit, window) }
}

func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")

	// resty 会自动从环境变量读取代理配置（HTTP_PROXY, HTTPS_PROXY）
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests ||
				resp.StatusCode() >= http.StatusInternalServerError
		}).
		SetRetryAfter(func(client *resty.Client, resp *resty.Response) (time.Duration, error) {
			// 如果遇到 429 限流，使用 Retry-After 头
			if resp.StatusCode() == http.StatusTooManyRequests {
				if retryAfter := resp.Header().Get("Retry-After"); retryAfter != "" {
					if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
						return seconds, nil
					}
				}
				return 2 * time.Second, nil
			}
			return 0, nil
		})

	c := &Client{rc: rc, baseURL: baseURL}
	for _, opt := range opts {
		opt(c)
	}
	if c.token != "" {
		c.rc.SetAuthToken(c.token)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "client rate limiter")
		}
	}

	var wireErr wireError
	r := c.rc.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetError(&wireErr)
	if query != nil {
		r.SetQueryParams(query)
	}
	if body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if out != nil {
		r.SetResult(out)
	}

	resp, err := r.Execute(method, path)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.IsError() {
		msg := wireErr.Message
		if msg == "" {
			msg = resp.Status()
		}
		return &APIError{Status: resp.StatusCode(), Code: wireErr.Code, Message: msg}
	}
	return nil
}
