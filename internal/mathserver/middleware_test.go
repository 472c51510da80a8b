package mathserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/gostat/pkg/tokenstore"
)

func doEval(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/v1/eval/pdf", strings.NewReader(`{"x":"0"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp
}

func TestRequestID(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t), nil)

	t.Run("assigned when absent", func(t *testing.T) {
		resp, _ := getBody(t, ts.URL+"/healthz")
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("caller supplied id is echoed", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
		require.NoError(t, err)
		req.Header.Set("X-Request-ID", "rid-123")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "rid-123", resp.Header.Get("X-Request-ID"))
	})
}

func TestAuth(t *testing.T) {
	store, err := tokenstore.Open(tokenstore.OpenOptions{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	token, err := store.Issue("ci")
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Server.AuthEnabled = true
	_, ts := newTestServer(t, cfg, store)

	t.Run("missing token", func(t *testing.T) {
		resp, body := postJSON(t, ts.URL+"/v1/eval/pdf", `{"x":"0"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var out errorBody
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, "unauthorized", out.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		resp := doEval(t, ts.URL, "not-a-token")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid token", func(t *testing.T) {
		resp := doEval(t, ts.URL, token)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("revoked token", func(t *testing.T) {
		revoked, err := store.Issue("temp")
		require.NoError(t, err)
		require.NoError(t, store.Revoke(revoked))

		resp := doEval(t, ts.URL, revoked)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("health stays open", func(t *testing.T) {
		resp, _ := getBody(t, ts.URL+"/healthz")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.RatePerSecond = 1
	cfg.Server.RateBurst = 1
	_, ts := newTestServer(t, cfg, nil)

	var limited *http.Response
	for i := 0; i < 5; i++ {
		resp := doEval(t, ts.URL, "")
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = resp
		}
	}
	require.NotNil(t, limited, "expected at least one throttled request")
	assert.NotEmpty(t, limited.Header.Get("Retry-After"))
}
