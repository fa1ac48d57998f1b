package config

// CurrentVersion is the only supported fault file version.
const CurrentVersion = "1"

// Engine modes.
const (
	ModeDefault    = "default"
	ModeAggressive = "aggressive"
	ModeTest       = "test"
)

// FaultType selects what a fault does to a matching request.
type FaultType string

// Fault types.
const (
	// FaultCode replaces the response status code.
	FaultCode FaultType = "code"
	// FaultLatency delays the response.
	FaultLatency FaultType = "latency"
	// FaultFailure fails the request with an injected error.
	FaultFailure FaultType = "failure"
	// FaultPassthrough fires without changing anything; it only logs.
	FaultPassthrough FaultType = "passthrough"
)

// File is the root of a fault file.
type File struct {
	// Version is the file format version (required, currently "1").
	Version string `json:"version" yaml:"version" validate:"required,eq=1"`

	// Mode is default, aggressive or test. Empty means default.
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty" validate:"omitempty,oneof=default aggressive test"`

	// Seed makes fault selection reproducible when set.
	Seed *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// CompleteDelays keeps latency faults running after the request context
	// is cancelled.
	CompleteDelays bool `json:"completeDelays,omitempty" yaml:"completeDelays,omitempty"`

	Faults []Fault `json:"faults" yaml:"faults" validate:"dive"`
}

// Fault describes a single fault rule.
type Fault struct {
	// Name identifies the fault for reloads and metrics. Optional but
	// unique when present.
	Name string `json:"name,omitempty" yaml:"name,omitempty" validate:"omitempty,max=100"`

	Description string `json:"description,omitempty" yaml:"description,omitempty" validate:"max=500"`

	Type FaultType `json:"type" yaml:"type" validate:"required,oneof=code latency failure passthrough"`

	// Method is one of GET, POST, PATCH, CREATE, DELETE, PUT or ANY.
	// Empty means ANY.
	Method string `json:"method,omitempty" yaml:"method,omitempty"`

	// URL restricts the fault to one exact absolute URL.
	URL string `json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,url"`

	// Weight is the relative selection weight. Zero means 1.
	Weight int `json:"weight,omitempty" yaml:"weight,omitempty" validate:"gte=0"`

	// Mandatory faults fire on every matching request.
	Mandatory bool `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`

	// Code is the status for code faults. Zero means 404.
	Code int `json:"code,omitempty" yaml:"code,omitempty" validate:"omitempty,gte=100,lte=599"`

	// Delay is a Go duration string for latency faults, e.g. "250ms".
	Delay string `json:"delay,omitempty" yaml:"delay,omitempty"`
}
