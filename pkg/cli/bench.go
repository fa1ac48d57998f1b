package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"

	"github.com/getmockd/netmonkey/pkg/cli/internal/output"
	"github.com/getmockd/netmonkey/pkg/metrics"
	"github.com/getmockd/netmonkey/pkg/monkey"
)

// BenchOutput is the JSON form of a bench run.
type BenchOutput struct {
	URL         string           `json:"url"`
	Method      string           `json:"method"`
	Requests    int              `json:"requests"`
	Concurrency int              `json:"concurrency"`
	Elapsed     string           `json:"elapsed"`
	RPS         float64          `json:"rps"`
	Statuses    map[string]int   `json:"statuses"`
	Injected    int              `json:"injectedFailures"`
	Errors      int              `json:"errors"`
	Engine      monkey.Stats     `json:"engine"`
	Slowest     string           `json:"slowest"`
	Fastest     string           `json:"fastest"`
	Rules       []benchRuleCount `json:"rules,omitempty"`
}

type benchRuleCount struct {
	Rule  string `json:"rule"`
	Fired int64  `json:"fired"`
}

type benchOptions struct {
	faults      faultFlags
	method      string
	requests    int
	concurrency int
	timeout     time.Duration
	showMetrics bool
}

func newBenchCmd(g *globals) *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench URL",
		Short: "Send many requests through the fault engine and report outcomes",
		Long: `Send -n requests over -c concurrent workers through the fault engine, then
report status codes, injected failures and how often each rule fired.

Useful for checking that weights and modes produce the distribution you expect.`,
		Example: `  netmonkey bench -n 1000 -c 20 --config faults.yaml http://localhost:8080/health`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.Context(), g, opts, args[0], cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	opts.faults.register(fs)
	fs.StringVarP(&opts.method, "method", "X", http.MethodGet, "HTTP method")
	fs.IntVarP(&opts.requests, "requests", "n", 100, "Number of requests")
	fs.IntVarP(&opts.concurrency, "concurrency", "c", 10, "Number of concurrent workers")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout for each request")
	fs.BoolVar(&opts.showMetrics, "metrics", false, "Also print Prometheus metrics for the run")

	return cmd
}

// benchTally collects per-request results from the workers.
type benchTally struct {
	mu       sync.Mutex
	statuses map[string]int
	injected int
	errors   int
	fastest  time.Duration
	slowest  time.Duration
}

func (t *benchTally) completed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.injected + t.errors
	for _, c := range t.statuses {
		n += c
	}
	return n
}

func (t *benchTally) add(status int, elapsed time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case err != nil && monkey.IsInjected(err):
		t.injected++
	case err != nil:
		t.errors++
	default:
		t.statuses[strconv.Itoa(status)]++
	}
	if t.fastest == 0 || elapsed < t.fastest {
		t.fastest = elapsed
	}
	if elapsed > t.slowest {
		t.slowest = elapsed
	}
}

// submitter is the part of *ants.Pool that dispatch needs.
type submitter interface {
	Submit(task func()) error
}

// dispatch submits task n times and returns once every accepted task has
// finished, including when a submission fails part way.
func dispatch(ctx context.Context, pool submitter, n int, task func()) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return nil
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			task()
		})
		if err != nil {
			wg.Done()
			return fmt.Errorf("failed to submit request: %w", err)
		}
	}
	return nil
}

func runBench(ctx context.Context, g *globals, opts *benchOptions, target string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.requests < 1 {
		return fmt.Errorf("-n must be at least 1, got %d", opts.requests)
	}
	if opts.concurrency < 1 {
		return fmt.Errorf("-c must be at least 1, got %d", opts.concurrency)
	}

	registry := metrics.NewRegistry()
	setup, err := g.buildEngine(&opts.faults, monkey.WithObserver(metrics.NewFaultCollector(registry)))
	if err != nil {
		return err
	}

	pool, err := ants.NewPool(opts.concurrency)
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	client := monkey.NewClient(setup.engine, &http.Client{Timeout: opts.timeout})
	tally := &benchTally{statuses: make(map[string]int)}

	start := time.Now()
	err = dispatch(ctx, pool, opts.requests, func() {
		tally.add(doBenchRequest(ctx, client, opts.method, target))
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	stats := setup.engine.Stats()
	result := BenchOutput{
		URL:         target,
		Method:      opts.method,
		Requests:    tally.completed(),
		Concurrency: opts.concurrency,
		Elapsed:     elapsed.Round(time.Millisecond).String(),
		RPS:         float64(tally.completed()) / elapsed.Seconds(),
		Statuses:    tally.statuses,
		Injected:    tally.injected,
		Errors:      tally.errors,
		Engine:      stats,
		Fastest:     tally.fastest.String(),
		Slowest:     tally.slowest.String(),
		Rules:       sortedRuleCounts(stats.FiredByRule),
	}

	return g.printResult(out, result, func() {
		fmt.Fprintf(out, "%d requests to %s %s in %s (%.1f req/s)\n",
			result.Requests, result.Method, result.URL, result.Elapsed, result.RPS)
		fmt.Fprintf(out, "latency: fastest %s, slowest %s\n\n", result.Fastest, result.Slowest)

		tw := output.Table(out)
		fmt.Fprintln(tw, "OUTCOME\tCOUNT")
		codes := make([]string, 0, len(result.Statuses))
		for code := range result.Statuses {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Fprintf(tw, "status %s\t%d\n", code, result.Statuses[code])
		}
		fmt.Fprintf(tw, "injected failure\t%d\n", result.Injected)
		fmt.Fprintf(tw, "other error\t%d\n", result.Errors)
		_ = tw.Flush()

		fmt.Fprintf(out, "\nfaults fired: %d of %d requests\n", stats.FaultsFired, stats.TotalRequests)
		if len(result.Rules) > 0 {
			tw = output.Table(out)
			fmt.Fprintln(tw, "RULE\tFIRED")
			for _, rc := range result.Rules {
				fmt.Fprintf(tw, "%s\t%d\n", rc.Rule, rc.Fired)
			}
			_ = tw.Flush()
		}

		if opts.showMetrics {
			fmt.Fprintln(out)
			registry.WriteText(out)
		}
	})
}

func doBenchRequest(ctx context.Context, client *http.Client, method, target string) (int, time.Duration, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, time.Since(start), err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, time.Since(start), err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, time.Since(start), nil
}

func sortedRuleCounts(byRule map[string]int64) []benchRuleCount {
	out := make([]benchRuleCount, 0, len(byRule))
	for rule, n := range byRule {
		out = append(out, benchRuleCount{Rule: rule, Fired: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fired != out[j].Fired {
			return out[i].Fired > out[j].Fired
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}
