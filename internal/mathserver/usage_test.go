package mathserver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageEndpoint(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t), nil)

	postJSON(t, ts.URL+"/v1/eval/pdf", `{"x":"0"}`)
	postJSON(t, ts.URL+"/v1/eval/erf", `{"x":"0"}`)
	postJSON(t, ts.URL+"/v1/eval/pdf", `{"x":"1000000000000000000"}`)

	_, body := getBody(t, ts.URL+"/v1/usage")
	var snap UsageSnapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(2), snap.PerOp["pdf"])
	assert.Equal(t, int64(1), snap.PerOp["erf"])
}

// TestUsageSnapshotRestart verifies the counters survive a restart via
// the JSON snapshot.
func TestUsageSnapshotRestart(t *testing.T) {
	dir := t.TempDir()

	cfg := testConfig(t)
	cfg.SnapshotDir = dir
	s, ts := newTestServer(t, cfg, nil)

	postJSON(t, ts.URL+"/v1/eval/pdf", `{"x":"0"}`)
	postJSON(t, ts.URL+"/v1/eval/cdf", `{"x":"0"}`)

	ts.Close()
	require.NoError(t, s.Close())

	_, err := os.Stat(filepath.Join(dir, "state_mathserver_usage.json"))
	require.NoError(t, err, "snapshot file not written")

	cfg2 := testConfig(t)
	cfg2.SnapshotDir = dir
	_, ts2 := newTestServer(t, cfg2, nil)

	_, body := getBody(t, ts2.URL+"/v1/usage")
	var restored UsageSnapshot
	require.NoError(t, json.Unmarshal(body, &restored))
	assert.Equal(t, int64(2), restored.TotalRequests)
	assert.Equal(t, int64(1), restored.PerOp["pdf"])
	assert.Equal(t, int64(1), restored.PerOp["cdf"])
	assert.False(t, restored.UpdatedAt.IsZero())
}
