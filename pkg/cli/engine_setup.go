package cli

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/getmockd/netmonkey/internal/cliconfig"
	"github.com/getmockd/netmonkey/pkg/config"
	"github.com/getmockd/netmonkey/pkg/monkey"
)

// faultFlags are the ad-hoc fault flags shared by commands that build an engine.
type faultFlags struct {
	code    int
	latency time.Duration
	fail    bool
}

func (f *faultFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&f.code, "code", 0, "Add a fault replacing the status code (e.g. 503)")
	fs.DurationVar(&f.latency, "latency", 0, "Add a fault delaying responses (e.g. 250ms)")
	fs.BoolVar(&f.fail, "fail", false, "Add a fault failing requests outright")
}

func (f *faultFlags) validate() error {
	if f.code != 0 && (f.code < 100 || f.code > 599) {
		return fmt.Errorf("--code must be between 100 and 599, got %d", f.code)
	}
	if f.latency < 0 {
		return fmt.Errorf("--latency must be positive, got %s", f.latency)
	}
	return nil
}

// engineSetup is the result of building an engine from settings and flags.
type engineSetup struct {
	engine *monkey.Engine
	// file is the loaded fault file, nil when none was given.
	file *config.File
}

// buildEngine creates an engine from the fault file, the resolved settings
// and the ad-hoc fault flags, in that order. Settings from flags or env
// override the file's mode and seed.
func (g *globals) buildEngine(faults *faultFlags, extra ...monkey.Option) (*engineSetup, error) {
	if err := faults.validate(); err != nil {
		return nil, err
	}

	setup := &engineSetup{}
	file := &config.File{Version: config.CurrentVersion}
	if path := g.settings.ConfigFile; path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		setup.file = loaded
		copied := *loaded
		file = &copied
	}

	if src := g.settings.Sources["mode"]; src != "" && src != cliconfig.SourceDefault {
		file.Mode = g.settings.Mode
	} else if file.Mode == "" {
		file.Mode = g.settings.Mode
	}
	if g.settings.HasSeed() {
		seed := g.settings.Seed
		file.Seed = &seed
	}

	opts := append([]monkey.Option{monkey.WithLogger(g.log)}, file.EngineOptions()...)
	opts = append(opts, extra...)
	setup.engine = monkey.New(opts...)

	if _, err := file.Apply(setup.engine); err != nil {
		return nil, err
	}

	if faults.code != 0 {
		setup.engine.RegisterCodeFault(faults.code)
	}
	if faults.latency > 0 {
		setup.engine.RegisterLatencyFault(faults.latency)
	}
	if faults.fail {
		setup.engine.RegisterFailureFault()
	}

	g.log.Debug("engine ready", "mode", file.Mode, "rules", len(setup.engine.Rules()))
	return setup, nil
}
