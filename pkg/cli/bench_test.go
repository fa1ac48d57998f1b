package cli

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBench_CodeFaultInTestMode(t *testing.T) {
	srv := newUpstream(t)

	stdout, _, err := execute(t, "--mode", "test", "--json", "bench", "-n", "40", "-c", "4", "--code", "503", srv.URL)
	require.NoError(t, err)

	var result BenchOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, 40, result.Requests)
	assert.Equal(t, 40, result.Statuses["503"])
	assert.Equal(t, int64(40), result.Engine.FaultsFired)
	require.Len(t, result.Rules, 1)
	assert.Equal(t, "Return 503 on any request", result.Rules[0].Rule)
	assert.Equal(t, int64(40), result.Rules[0].Fired)
}

func TestBench_InjectedFailures(t *testing.T) {
	srv := newUpstream(t)

	stdout, _, err := execute(t, "--mode", "test", "--json", "bench", "-n", "10", "-c", "2", "--fail", srv.URL)
	require.NoError(t, err)

	var result BenchOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, 10, result.Injected)
	assert.Zero(t, result.Errors)
	assert.Empty(t, result.Statuses)
}

func TestBench_WeightedFileAndSeed(t *testing.T) {
	srv := newUpstream(t)
	path := writeFaultFile(t, `version: "1"
mode: test
seed: 3
faults:
  - name: rare
    type: code
    code: 500
    weight: 1
  - name: common
    type: code
    code: 502
    weight: 9
`)

	run := func() BenchOutput {
		stdout, _, err := execute(t, "--config", path, "--json", "bench", "-n", "200", "-c", "1", srv.URL)
		require.NoError(t, err)
		var result BenchOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &result))
		return result
	}

	first := run()
	assert.Equal(t, 200, first.Statuses["500"]+first.Statuses["502"])
	assert.Greater(t, first.Statuses["502"], first.Statuses["500"])

	// One worker and a fixed seed give the same sequence.
	second := run()
	assert.Equal(t, first.Statuses, second.Statuses)
}

func TestBench_TextWithMetrics(t *testing.T) {
	srv := newUpstream(t)

	stdout, _, err := execute(t, "--mode", "test", "bench", "-n", "5", "-c", "5", "--code", "418", "--metrics", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, stdout, "5 requests to GET")
	assert.Contains(t, stdout, "status 418")
	assert.Contains(t, stdout, "faults fired: 5 of 5 requests")
	assert.Contains(t, stdout, `netmonkey_requests_total{method="GET",outcome="fired"} 5`)
}

func TestBench_RejectsBadCounts(t *testing.T) {
	_, _, err := execute(t, "bench", "-n", "0", "http://example.com")
	assert.Error(t, err)
	_, _, err = execute(t, "bench", "-c", "0", "http://example.com")
	assert.Error(t, err)
}

// limitedPool runs tasks on goroutines, or inline when inline is set, and
// refuses submissions after limit.
type limitedPool struct {
	limit     int
	inline    bool
	submitted int
}

var errPoolFull = errors.New("pool full")

func (p *limitedPool) Submit(task func()) error {
	if p.submitted == p.limit {
		return errPoolFull
	}
	p.submitted++
	if p.inline {
		task()
		return nil
	}
	go task()
	return nil
}

func TestDispatch_WaitsForAcceptedTasksOnSubmitError(t *testing.T) {
	var finished atomic.Int32
	pool := &limitedPool{limit: 3}

	err := dispatch(context.Background(), pool, 10, func() {
		time.Sleep(50 * time.Millisecond)
		finished.Add(1)
	})

	require.ErrorIs(t, err, errPoolFull)
	assert.Equal(t, int32(3), finished.Load())
}

func TestDispatch_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Int32
	pool := &limitedPool{limit: 100, inline: true}

	err := dispatch(ctx, pool, 100, func() {
		if ran.Add(1) == 2 {
			cancel()
		}
	})

	require.NoError(t, err)
	assert.Equal(t, 2, pool.submitted)
	assert.Equal(t, int32(2), ran.Load())
}
