package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/cobra"

	"github.com/getmockd/netmonkey/pkg/monkey"
)

// RequestOutput is the JSON form of a request result.
type RequestOutput struct {
	Method   string              `json:"method"`
	URL      string              `json:"url"`
	Status   int                 `json:"status,omitempty"`
	Headers  map[string][]string `json:"headers,omitempty"`
	Body     string              `json:"body,omitempty"`
	Attempts uint                `json:"attempts"`
	Injected bool                `json:"injected"`
	Error    string              `json:"error,omitempty"`
	Elapsed  string              `json:"elapsed"`
}

type requestOptions struct {
	faults     faultFlags
	headers    []string
	data       string
	timeout    time.Duration
	retries    uint
	retryDelay time.Duration
	include    bool
}

// errRetryableStatus marks a 5xx response as worth retrying.
var errRetryableStatus = errors.New("retryable status")

func newRequestCmd(g *globals) *cobra.Command {
	opts := &requestOptions{}

	cmd := &cobra.Command{
		Use:   "request [METHOD] URL",
		Short: "Send one request through the fault engine",
		Long: `Send one HTTP request through the fault engine and print the response.

METHOD defaults to GET. Faults from --config and the --code, --latency and
--fail flags apply. With --retries, transport errors and 5xx responses are
retried; the engine may choose a different fault on each attempt.`,
		Example: `  # Always fail (test mode fires on every request)
  netmonkey request --mode test --fail https://example.com

  # 1 in 2 requests get a 503, retried up to 3 times
  netmonkey request --mode aggressive --code 503 --retries 3 https://example.com/api`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, target := http.MethodGet, args[0]
			if len(args) == 2 {
				method, target = strings.ToUpper(args[0]), args[1]
			}
			return runRequest(cmd.Context(), g, opts, method, target, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	opts.faults.register(fs)
	fs.StringArrayVarP(&opts.headers, "header", "H", nil, "Request header as 'Name: value' (repeatable)")
	fs.StringVarP(&opts.data, "data", "d", "", "Request body")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout for each attempt")
	fs.UintVar(&opts.retries, "retries", 0, "Retry transport errors and 5xx responses this many times")
	fs.DurationVar(&opts.retryDelay, "retry-delay", 100*time.Millisecond, "Base delay between retries (exponential backoff)")
	fs.BoolVarP(&opts.include, "include", "i", false, "Print response headers")

	return cmd
}

func runRequest(ctx context.Context, g *globals, opts *requestOptions, method, target string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	setup, err := g.buildEngine(&opts.faults)
	if err != nil {
		return err
	}

	header, err := parseHeaders(opts.headers)
	if err != nil {
		return err
	}

	client := monkey.NewClient(setup.engine, &http.Client{Timeout: opts.timeout})

	var (
		resp     *http.Response
		body     []byte
		attempts uint
	)
	start := time.Now()
	err = retry.Do(
		func() error {
			attempts++
			req, err := http.NewRequestWithContext(ctx, method, target, bodyReader(opts.data))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header = header.Clone()

			r, err := client.Do(req)
			if err != nil {
				return err
			}
			defer r.Body.Close()

			b, err := io.ReadAll(r.Body)
			if err != nil {
				return err
			}
			resp, body = r, b
			if r.StatusCode >= http.StatusInternalServerError {
				return fmt.Errorf("%w: %s", errRetryableStatus, r.Status)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(opts.retries+1),
		retry.Delay(opts.retryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			g.log.Warn("request attempt failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	elapsed := time.Since(start)

	// A final 5xx is still a response.
	if errors.Is(err, errRetryableStatus) {
		err = nil
	}

	result := RequestOutput{
		Method:   method,
		URL:      target,
		Attempts: attempts,
		Elapsed:  elapsed.Round(time.Millisecond).String(),
	}
	if err != nil {
		result.Error = err.Error()
		result.Injected = monkey.IsInjected(err)
	} else {
		result.Status = resp.StatusCode
		result.Headers = resp.Header
		result.Body = string(body)
	}

	if printErr := g.printResult(out, result, func() {
		if err != nil {
			return
		}
		fmt.Fprintf(out, "%s %s\n", resp.Proto, resp.Status)
		if opts.include {
			writeHeaders(out, resp.Header)
			fmt.Fprintln(out)
		}
		_, _ = out.Write(body)
		if len(body) > 0 && body[len(body)-1] != '\n' {
			fmt.Fprintln(out)
		}
	}); printErr != nil {
		return printErr
	}

	stats := setup.engine.Stats()
	g.log.Debug("request finished", "attempts", attempts, "faults_fired", stats.FaultsFired, "elapsed", elapsed)
	return err
}

func bodyReader(data string) io.Reader {
	if data == "" {
		return nil
	}
	return bytes.NewReader([]byte(data))
}

func parseHeaders(raw []string) (http.Header, error) {
	h := make(http.Header, len(raw))
	for _, line := range raw {
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q: expected 'Name: value'", line)
		}
		h.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return h, nil
}

func writeHeaders(w io.Writer, h http.Header) {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range h[name] {
			fmt.Fprintf(w, "%s: %s\n", name, v)
		}
	}
}
