package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/netmonkey/internal/cliconfig"
	"github.com/getmockd/netmonkey/pkg/logging"
	"github.com/getmockd/netmonkey/pkg/monkey"
)

func testGlobals(mode string) *globals {
	settings := cliconfig.NewDefault()
	settings.Mode = mode
	settings.Sources["mode"] = cliconfig.SourceFlag
	settings.ProxyAddr = "127.0.0.1:0"
	settings.MetricsAddr = "127.0.0.1:0"
	return &globals{settings: settings, log: logging.Nop()}
}

// startProxy runs the proxy until the test ends.
func startProxy(t *testing.T, g *globals, opts *proxyOptions) *proxyServer {
	t.Helper()
	if opts.timeout == 0 {
		opts.timeout = 5 * time.Second
	}
	srv, err := newProxyServer(g, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("proxy did not shut down")
		}
	})
	return srv
}

func proxyClient(t *testing.T, srv *proxyServer) *http.Client {
	t.Helper()
	proxyURL, err := url.Parse("http://" + srv.proxyLn.Addr().String())
	require.NoError(t, err)
	return &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL), DisableKeepAlives: true},
		Timeout:   5 * time.Second,
	}
}

func TestProxy_InjectsCodeAndServesMetrics(t *testing.T) {
	upstream := newUpstream(t)
	srv := startProxy(t, testGlobals("test"), &proxyOptions{faults: faultFlags{code: 503}})

	resp, err := proxyClient(t, srv).Get(upstream.URL + "/users")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "GET ", string(body))

	metricsBase := "http://" + srv.metricsLn.Addr().String()

	resp, err = http.Get(metricsBase + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), `netmonkey_requests_total{method="GET",outcome="fired"} 1`)
	assert.Contains(t, string(body), `netmonkey_faults_total{rule="Return 503 on any request"} 1`)

	resp, err = http.Get(metricsBase + "/stats")
	require.NoError(t, err)
	var stats monkey.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	_ = resp.Body.Close()
	assert.Equal(t, int64(1), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.FaultsFired)

	resp, err = http.Get(metricsBase + "/rules")
	require.NoError(t, err)
	var rules []ruleInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rules))
	_ = resp.Body.Close()
	require.Len(t, rules, 1)
	assert.Equal(t, "ANY", rules[0].Method)
	assert.NotEmpty(t, rules[0].ID)

	resp, err = http.Get(metricsBase + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(metricsBase + "/nope")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProxy_FailureBecomesBadGateway(t *testing.T) {
	upstream := newUpstream(t)
	srv := startProxy(t, testGlobals("test"), &proxyOptions{faults: faultFlags{fail: true}})

	resp, err := proxyClient(t, srv).Get(upstream.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestProxy_PassThroughWithoutFaults(t *testing.T) {
	upstream := newUpstream(t)
	g := testGlobals("default")
	g.settings.MetricsAddr = ""
	srv := startProxy(t, g, &proxyOptions{})
	assert.Nil(t, srv.metricsLn)

	resp, err := proxyClient(t, srv).Get(upstream.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProxy_WatchNeedsFile(t *testing.T) {
	_, err := newProxyServer(testGlobals("test"), &proxyOptions{watch: true})
	assert.ErrorIs(t, err, ErrWatchNeedsFile)
}
