package config

import (
	"fmt"
	"strings"

	"github.com/getmockd/netmonkey/pkg/monkey"
)

// EngineOptions translates the file-level settings into engine options.
func (f *File) EngineOptions() []monkey.Option {
	var opts []monkey.Option
	switch f.Mode {
	case ModeAggressive:
		opts = append(opts, monkey.WithAggressiveMode())
	case ModeTest:
		opts = append(opts, monkey.WithTestMode())
	}
	if f.Seed != nil {
		opts = append(opts, monkey.WithSeed(*f.Seed))
	}
	if f.CompleteDelays {
		opts = append(opts, monkey.WithCompleteDelays())
	}
	return opts
}

// Rules builds one rule per fault, in file order.
func (f *File) Rules() ([]*monkey.Rule, error) {
	rules := make([]*monkey.Rule, 0, len(f.Faults))
	for i := range f.Faults {
		rule, err := f.Faults[i].Rule(f.CompleteDelays)
		if err != nil {
			return nil, fmt.Errorf("faults[%d]: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Apply registers every fault on engine and returns how many were added.
// Mode and seed are not applied; use EngineOptions when creating the engine.
func (f *File) Apply(engine *monkey.Engine) (int, error) {
	rules, err := f.Rules()
	if err != nil {
		return 0, err
	}
	for i, rule := range rules {
		if err := engine.Register(rule); err != nil {
			return i, err
		}
	}
	return len(rules), nil
}

// Rule converts the fault into an engine rule.
func (fault *Fault) Rule(completeDelays bool) (*monkey.Rule, error) {
	method, err := monkey.ParseMethod(fault.Method)
	if err != nil {
		return nil, err
	}

	spec := monkey.RuleSpec{
		Description: fault.describe(),
		Method:      method,
		URL:         fault.URL,
		Weight:      fault.Weight,
		Mandatory:   fault.Mandatory,
	}

	switch fault.Type {
	case FaultCode:
		code := fault.Code
		if code == 0 {
			code = monkey.DefaultFaultCode
		}
		spec.Response = monkey.ReplaceStatus(code)
	case FaultLatency:
		spec.Response = monkey.Delay(fault.delay(), completeDelays)
	case FaultFailure:
		spec.Response = monkey.Fail()
	case FaultPassthrough:
	default:
		return nil, fmt.Errorf("unknown fault type %q", fault.Type)
	}

	return monkey.NewRule(spec)
}

// Key identifies a fault across reloads: its name, or its content when
// unnamed.
func (fault *Fault) Key() string {
	if fault.Name != "" {
		return "name:" + fault.Name
	}
	return strings.Join([]string{
		"content",
		string(fault.Type),
		strings.ToUpper(fault.Method),
		fault.URL,
		fmt.Sprint(fault.Weight),
		fmt.Sprint(fault.Mandatory),
		fmt.Sprint(fault.Code),
		fault.Delay,
	}, "|")
}

func (fault *Fault) describe() string {
	switch {
	case fault.Description != "":
		return fault.Description
	case fault.Name != "":
		return fault.Name
	}

	target := "any request"
	if fault.URL != "" {
		target = fault.URL
	}
	switch fault.Type {
	case FaultCode:
		code := fault.Code
		if code == 0 {
			code = monkey.DefaultFaultCode
		}
		return fmt.Sprintf("Return %d on %s", code, target)
	case FaultLatency:
		return fmt.Sprintf("Delay %s by %s", target, fault.Delay)
	case FaultFailure:
		return "Fail " + target
	default:
		return "Observe " + target
	}
}
