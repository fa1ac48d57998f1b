package monkey

import (
	"fmt"
	"net/http"
	"strings"
)

// Method is the HTTP verb a Rule matches.
type Method string

// Supported methods. MethodAny matches every verb.
const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPatch  Method = "PATCH"
	MethodCreate Method = "CREATE"
	MethodDelete Method = "DELETE"
	MethodPut    Method = "PUT"
	MethodAny    Method = "ANY"
)

var knownMethods = map[Method]bool{
	MethodGet:    true,
	MethodPost:   true,
	MethodPatch:  true,
	MethodCreate: true,
	MethodDelete: true,
	MethodPut:    true,
	MethodAny:    true,
}

// ParseMethod converts a verb name into a Method. Matching is case-insensitive
// and the empty string means MethodAny.
func ParseMethod(s string) (Method, error) {
	if s == "" {
		return MethodAny, nil
	}
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !knownMethods[m] {
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
	return m, nil
}

// Matches reports whether the method accepts the given request verb. An
// empty verb is GET, as in net/http.
func (m Method) Matches(verb string) bool {
	if verb == "" {
		verb = http.MethodGet
	}
	return m == MethodAny || string(m) == verb
}

// String returns the verb name.
func (m Method) String() string {
	return string(m)
}
