package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/getmockd/netmonkey/pkg/cli/internal/output"
	"github.com/getmockd/netmonkey/pkg/config"
)

// ValidateOutput is the JSON form of a validation result.
type ValidateOutput struct {
	File   string          `json:"file"`
	Valid  bool            `json:"valid"`
	Mode   string          `json:"mode"`
	Seed   *int64          `json:"seed,omitempty"`
	Faults []ValidateFault `json:"faults"`
}

// ValidateFault describes one fault as the engine will see it.
type ValidateFault struct {
	Name        string `json:"name,omitempty"`
	Type        string `json:"type"`
	Rule        string `json:"rule"`
	Method      string `json:"method"`
	URL         string `json:"url,omitempty"`
	Weight      int    `json:"weight"`
	Mandatory   bool   `json:"mandatory"`
	Description string `json:"description"`
}

func newValidateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate a fault file",
		Long: `Validate a fault file without sending any traffic.

This command checks:
  - YAML or JSON syntax
  - Schema validation (required fields, known keys, valid values)
  - Field rules (status code range, durations, methods, absolute URLs)

FILE defaults to --config or NETMONKEY_CONFIG.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.settings.ConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return ErrNoConfigFile
			}

			file, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			rules, err := file.Rules()
			if err != nil {
				return err
			}

			mode := file.Mode
			if mode == "" {
				mode = config.ModeDefault
			}
			result := ValidateOutput{File: path, Valid: true, Mode: mode, Seed: file.Seed}
			for i, fault := range file.Faults {
				rule := rules[i]
				result.Faults = append(result.Faults, ValidateFault{
					Name:        fault.Name,
					Type:        string(fault.Type),
					Rule:        rule.String(),
					Method:      rule.Method().String(),
					URL:         rule.URL(),
					Weight:      rule.Weight(),
					Mandatory:   rule.Mandatory(),
					Description: rule.Description(),
				})
			}

			out := cmd.OutOrStdout()
			return g.printResult(out, result, func() {
				fmt.Fprintf(out, "%s is valid (%d faults, mode %s)\n", path, len(result.Faults), result.Mode)
				if len(result.Faults) == 0 {
					return
				}
				fmt.Fprintln(out)
				tw := output.Table(out)
				fmt.Fprintln(tw, "NAME\tTYPE\tMETHOD\tURL\tWEIGHT\tMANDATORY\tDESCRIPTION")
				for _, f := range result.Faults {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
						dash(f.Name), f.Type, f.Method, orAny(f.URL), f.Weight, strconv.FormatBool(f.Mandatory), f.Description)
				}
				_ = tw.Flush()
			})
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func orAny(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
