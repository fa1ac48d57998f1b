package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/martian/v3"
	martianlog "github.com/google/martian/v3/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/netmonkey/internal/cliconfig"
	"github.com/getmockd/netmonkey/pkg/config"
	"github.com/getmockd/netmonkey/pkg/httputil"
	"github.com/getmockd/netmonkey/pkg/logging"
	"github.com/getmockd/netmonkey/pkg/metrics"
	"github.com/getmockd/netmonkey/pkg/monkey"
)

type proxyOptions struct {
	faults      faultFlags
	addr        string
	metricsAddr string
	watch       bool
	timeout     time.Duration
}

func newProxyCmd(g *globals) *cobra.Command {
	opts := &proxyOptions{}

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run a forward HTTP proxy that injects faults",
		Long: `Run a forward HTTP proxy whose upstream calls go through the fault engine.
Point clients at it with HTTP_PROXY.

Injected failures reach the client as 502 Bad Gateway. HTTPS traffic is
tunnelled with CONNECT and is not faulted.

With --metrics-addr, /metrics (Prometheus), /stats, /rules and /healthz are
served on a separate listener. With --watch, faults added to the fault file
are registered without a restart; existing rules are never removed.`,
		Example: `  netmonkey proxy --config faults.yaml --watch --metrics-addr 127.0.0.1:9090
  HTTP_PROXY=http://127.0.0.1:8080 curl http://example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				g.settings.ProxyAddr = opts.addr
				g.settings.Sources["proxyAddr"] = cliconfig.SourceFlag
			}
			if cmd.Flags().Changed("metrics-addr") {
				g.settings.MetricsAddr = opts.metricsAddr
				g.settings.Sources["metricsAddr"] = cliconfig.SourceFlag
			}

			srv, err := newProxyServer(g, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.run(ctx)
		},
	}

	fs := cmd.Flags()
	opts.faults.register(fs)
	fs.StringVar(&opts.addr, "addr", cliconfig.DefaultProxyAddr, "Proxy listen address")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics, /stats, /rules and /healthz on this address")
	fs.BoolVar(&opts.watch, "watch", false, "Register faults added to the fault file while running")
	fs.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Per-connection read/write timeout")

	return cmd
}

// proxyServer owns the listeners and components of a running proxy.
type proxyServer struct {
	log       *slog.Logger
	engine    *monkey.Engine
	registry  *metrics.Registry
	watcher   *config.Watcher
	proxyLn   net.Listener
	metricsLn net.Listener
	timeout   time.Duration
}

func newProxyServer(g *globals, opts *proxyOptions) (*proxyServer, error) {
	if opts.watch && g.settings.ConfigFile == "" {
		return nil, ErrWatchNeedsFile
	}

	registry := metrics.NewRegistry()
	setup, err := g.buildEngine(&opts.faults, monkey.WithObserver(metrics.NewFaultCollector(registry)))
	if err != nil {
		return nil, err
	}
	if len(setup.engine.Rules()) == 0 && !opts.watch {
		g.log.Warn("no faults configured, all traffic will pass through")
	}

	s := &proxyServer{
		log:      g.log,
		engine:   setup.engine,
		registry: registry,
		timeout:  opts.timeout,
	}

	if opts.watch {
		s.watcher = config.NewWatcher(g.settings.ConfigFile, setup.engine, config.WithWatchLogger(g.log))
		if setup.file != nil {
			s.watcher.MarkApplied(setup.file)
		}
	}

	s.proxyLn, err = net.Listen("tcp", g.settings.ProxyAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", g.settings.ProxyAddr, err)
	}
	if g.settings.MetricsAddr != "" {
		s.metricsLn, err = net.Listen("tcp", g.settings.MetricsAddr)
		if err != nil {
			_ = s.proxyLn.Close()
			return nil, fmt.Errorf("failed to listen on %s: %w", g.settings.MetricsAddr, err)
		}
	}
	return s, nil
}

func (s *proxyServer) run(ctx context.Context) error {
	if s.log.Enabled(ctx, logging.LevelDebug) {
		martianlog.SetLevel(martianlog.Debug)
	} else {
		martianlog.SetLevel(martianlog.Silent)
	}

	p := martian.NewProxy()
	p.SetRoundTripper(monkey.NewTransport(s.engine, upstreamTransport()))
	p.SetTimeout(s.timeout)

	g, gctx := errgroup.WithContext(ctx)

	s.log.Info("proxy listening", "addr", s.proxyLn.Addr().String(), "rules", len(s.engine.Rules()))
	g.Go(func() error {
		err := p.Serve(s.proxyLn)
		if gctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("proxy stopped: %w", err)
	})

	var admin *http.Server
	if s.metricsLn != nil {
		admin = &http.Server{
			Handler:           s.adminHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		s.log.Info("metrics listening", "addr", s.metricsLn.Addr().String())
		g.Go(func() error {
			if err := admin.Serve(s.metricsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server stopped: %w", err)
			}
			return nil
		})
	}

	if s.watcher != nil {
		g.Go(func() error { return s.watcher.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down proxy")
		_ = s.proxyLn.Close()
		p.Close()
		if admin != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = admin.Shutdown(shutdownCtx)
		}
		return nil
	})

	err := g.Wait()
	stats := s.engine.Stats()
	s.log.Info("proxy stopped", "requests", stats.TotalRequests, "faults_fired", stats.FaultsFired)
	return err
}

func (s *proxyServer) adminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", s.registry.Handler())
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteOK(w, s.engine.Stats())
	})
	mux.HandleFunc("GET /rules", func(w http.ResponseWriter, _ *http.Request) {
		rules := s.engine.Rules()
		out := make([]ruleInfo, 0, len(rules))
		for _, r := range rules {
			out = append(out, newRuleInfo(r))
		}
		httputil.WriteOK(w, out)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteOK(w, map[string]string{"status": "ok"})
	})
	mux.Handle("/", httputil.NotFoundHandler())
	return mux
}

// upstreamTransport is the real transport behind the engine. It ignores
// HTTP_PROXY so the proxy never forwards to itself.
func upstreamTransport() http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	return t
}

// ruleInfo is the JSON form of a registered rule.
type ruleInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Method      string `json:"method"`
	URL         string `json:"url,omitempty"`
	Weight      int    `json:"weight"`
	Mandatory   bool   `json:"mandatory"`
}

func newRuleInfo(r *monkey.Rule) ruleInfo {
	return ruleInfo{
		ID:          r.ID(),
		Description: r.Description(),
		Method:      r.Method().String(),
		URL:         r.URL(),
		Weight:      r.Weight(),
		Mandatory:   r.Mandatory(),
	}
}
