package monkey

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/getmockd/netmonkey/pkg/logging"
)

// RequestTransform rewrites an outgoing request before it reaches the transport.
type RequestTransform func(req *http.Request) *http.Request

// ResponseTransform rewrites a response before it is returned to the caller.
// Returning an error makes the whole round trip fail with that error.
type ResponseTransform func(resp *http.Response) (*http.Response, error)

// RuleSpec describes a Rule to build with NewRule.
type RuleSpec struct {
	// Description names the fault in diagnostics.
	Description string

	// Method restricts the rule to one verb. Empty means MethodAny.
	Method Method

	// URL restricts the rule to one exact URL. Empty matches every URL.
	URL string

	// Weight is the rule's share among co-eligible non-mandatory rules.
	// Zero defaults to 1; negative values are rejected.
	Weight int

	// Mandatory rules fire whenever they match, bypassing the probability gate.
	Mandatory bool

	Request  RequestTransform
	Response ResponseTransform
}

// Rule is one configured fault. Rules are immutable once built.
type Rule struct {
	id          string
	description string
	method      Method
	url         string
	weight      int
	mandatory   bool
	request     RequestTransform
	response    ResponseTransform
}

// NewRule validates spec and builds a Rule from it.
func NewRule(spec RuleSpec) (*Rule, error) {
	method := spec.Method
	if method == "" {
		method = MethodAny
	}
	if !knownMethods[method] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, string(spec.Method))
	}

	weight := spec.Weight
	if weight == 0 {
		weight = 1
	}
	if weight < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidWeight, spec.Weight)
	}

	var target string
	if spec.URL != "" {
		u, err := url.Parse(spec.URL)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidURL, spec.URL, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w %q: scheme and host are required", ErrInvalidURL, spec.URL)
		}
		target = u.String()
	}

	return &Rule{
		id:          uuid.NewString(),
		description: spec.Description,
		method:      method,
		url:         target,
		weight:      weight,
		mandatory:   spec.Mandatory,
		request:     spec.Request,
		response:    spec.Response,
	}, nil
}

// ID returns the identifier assigned to the rule at construction.
func (r *Rule) ID() string { return r.id }

// Description returns the human-readable description.
func (r *Rule) Description() string { return r.description }

// Method returns the verb the rule matches.
func (r *Rule) Method() Method { return r.method }

// URL returns the exact URL the rule matches, or "" for any URL.
func (r *Rule) URL() string { return r.url }

// Weight returns the selection weight.
func (r *Rule) Weight() int { return r.weight }

// Mandatory reports whether the rule bypasses the probability gate.
func (r *Rule) Mandatory() bool { return r.mandatory }

// Inert reports whether the rule has no transforms at all.
func (r *Rule) Inert() bool { return r.request == nil && r.response == nil }

// Matches reports whether the rule applies to req.
func (r *Rule) Matches(req *http.Request) bool {
	if req == nil {
		return false
	}
	if !r.method.Matches(req.Method) {
		return false
	}
	if r.url != "" && (req.URL == nil || req.URL.String() != r.url) {
		return false
	}
	return true
}

// ApplyToRequest runs the request transform if the rule matches req.
func (r *Rule) ApplyToRequest(req *http.Request, log *slog.Logger) *http.Request {
	if r.request == nil || !r.Matches(req) {
		return req
	}
	r.logOperation(log, req)
	return r.request(req)
}

// ApplyToResponse runs the response transform if the rule matches the request
// that produced resp. Errors from the transform are returned as is.
func (r *Rule) ApplyToResponse(resp *http.Response, log *slog.Logger) (*http.Response, error) {
	if resp == nil || !r.Matches(resp.Request) {
		return resp, nil
	}
	if r.response == nil {
		// Inert rules still announce that they fired.
		if r.request == nil {
			r.logOperation(log, resp.Request)
		}
		return resp, nil
	}
	r.logOperation(log, resp.Request)
	return r.response(resp)
}

func (r *Rule) logOperation(log *slog.Logger, req *http.Request) {
	if log == nil {
		log = logging.Nop()
	}
	log.Info("performing monkey operation",
		"rule", r.description,
		"id", r.id,
		"method", req.Method,
		"url", req.URL.String(),
	)
}

// String implements fmt.Stringer.
func (r *Rule) String() string {
	target := r.url
	if target == "" {
		target = "*"
	}
	s := fmt.Sprintf("%s [%s %s weight=%d", r.description, r.method, target, r.weight)
	if r.mandatory {
		s += " mandatory"
	}
	return s + "]"
}
