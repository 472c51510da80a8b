package sdk

import (
	"context"
	"net/http"
)

// Health checks service liveness.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

// Eval runs a single evaluation of op ("pdf", "cdf", "erf" or "ppf").
func (c *Client) Eval(ctx context.Context, op string, req EvalRequest) (*EvalResponse, error) {
	var out EvalResponse
	if err := c.do(ctx, http.MethodPost, "/v1/eval/"+op, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PDF evaluates the standard normal density at x (WAD string).
func (c *Client) PDF(ctx context.Context, x string) (string, error) {
	return c.evalResult(ctx, "pdf", EvalRequest{X: x})
}

// CDF evaluates the standard normal distribution function at x.
func (c *Client) CDF(ctx context.Context, x string) (string, error) {
	return c.evalResult(ctx, "cdf", EvalRequest{X: x})
}

// CDFWith evaluates the normal distribution function with the given
// mean and scale (both WAD strings; scale must be positive).
func (c *Client) CDFWith(ctx context.Context, x, mean, scale string) (string, error) {
	return c.evalResult(ctx, "cdf", EvalRequest{X: x, Mean: mean, Scale: scale})
}

// Erf evaluates the error function at x.
func (c *Client) Erf(ctx context.Context, x string) (string, error) {
	return c.evalResult(ctx, "erf", EvalRequest{X: x})
}

// PPF evaluates the standard normal quantile at probability p,
// 0 < p < 1e18 exclusive.
func (c *Client) PPF(ctx context.Context, p string) (string, error) {
	return c.evalResult(ctx, "ppf", EvalRequest{P: p})
}

func (c *Client) evalResult(ctx context.Context, op string, req EvalRequest) (string, error) {
	out, err := c.Eval(ctx, op, req)
	if err != nil {
		return "", err
	}
	return out.Result, nil
}

// Batch evaluates op over many inputs in one round trip. Items fail
// independently; inspect BatchResult.OK.
func (c *Client) Batch(ctx context.Context, op string, inputs []string) ([]BatchResult, error) {
	var out batchResponse
	req := batchRequest{Op: op, Inputs: inputs}
	if err := c.do(ctx, http.MethodPost, "/v1/eval/batch", nil, req, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Table renders y = op(x) for x in [from, to] at the given step, all
// WAD strings.
func (c *Client) Table(ctx context.Context, op, from, to, step string) ([]TableRow, error) {
	var out tableResponse
	q := map[string]string{"op": op, "from": from, "to": to, "step": step}
	if err := c.do(ctx, http.MethodGet, "/v1/table", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// Usage fetches the service's cumulative request counters.
func (c *Client) Usage(ctx context.Context) (*Usage, error) {
	var out Usage
	if err := c.do(ctx, http.MethodGet, "/v1/usage", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
