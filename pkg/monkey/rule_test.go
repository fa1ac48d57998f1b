package monkey

import (
	"bytes"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/netmonkey/pkg/logging"
)

func newRequest(t *testing.T, method, target string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, target, nil)
	require.NoError(t, err)
	return req
}

func mustRule(t *testing.T, spec RuleSpec) *Rule {
	t.Helper()
	rule, err := NewRule(spec)
	require.NoError(t, err)
	return rule
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		input   string
		want    Method
		wantErr bool
	}{
		{"GET", MethodGet, false},
		{"get", MethodGet, false},
		{" Post ", MethodPost, false},
		{"patch", MethodPatch, false},
		{"CREATE", MethodCreate, false},
		{"delete", MethodDelete, false},
		{"PUT", MethodPut, false},
		{"any", MethodAny, false},
		{"", MethodAny, false},
		{"HEAD", "", true},
		{"OPTIONS", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMethod(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownMethod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRule(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		rule := mustRule(t, RuleSpec{Description: "inert"})
		assert.Equal(t, MethodAny, rule.Method())
		assert.Equal(t, "", rule.URL())
		assert.Equal(t, 1, rule.Weight())
		assert.False(t, rule.Mandatory())
		assert.True(t, rule.Inert())
		assert.NotEmpty(t, rule.ID())
	})

	t.Run("canonicalizes url", func(t *testing.T) {
		rule := mustRule(t, RuleSpec{URL: "http://example.com/users?id=1"})
		assert.Equal(t, "http://example.com/users?id=1", rule.URL())
	})

	t.Run("rejects negative weight", func(t *testing.T) {
		_, err := NewRule(RuleSpec{Weight: -1})
		assert.ErrorIs(t, err, ErrInvalidWeight)
	})

	t.Run("rejects unknown method", func(t *testing.T) {
		_, err := NewRule(RuleSpec{Method: "TRACE"})
		assert.ErrorIs(t, err, ErrUnknownMethod)
	})

	t.Run("rejects relative url", func(t *testing.T) {
		_, err := NewRule(RuleSpec{URL: "/users"})
		assert.ErrorIs(t, err, ErrInvalidURL)
	})

	t.Run("ids are unique", func(t *testing.T) {
		a := mustRule(t, RuleSpec{})
		b := mustRule(t, RuleSpec{})
		assert.NotEqual(t, a.ID(), b.ID())
	})
}

func TestRule_Matches(t *testing.T) {
	tests := []struct {
		name   string
		spec   RuleSpec
		method string
		url    string
		want   bool
	}{
		{"any method any url", RuleSpec{}, "DELETE", "http://google.com/x", true},
		{"method matches", RuleSpec{Method: MethodGet}, "GET", "http://google.com", true},
		{"method differs", RuleSpec{Method: MethodGet}, "POST", "http://google.com", false},
		{"url matches", RuleSpec{URL: "http://google.com/a"}, "PUT", "http://google.com/a", true},
		{"url differs", RuleSpec{URL: "http://google.com/a"}, "PUT", "http://google.com/b", false},
		{"url differs by query", RuleSpec{URL: "http://google.com/a"}, "GET", "http://google.com/a?x=1", false},
		{"both match", RuleSpec{Method: MethodPost, URL: "http://google.com/a"}, "POST", "http://google.com/a", true},
		{"method ok url not", RuleSpec{Method: MethodPost, URL: "http://google.com/a"}, "POST", "http://google.com/c", false},
		{"url ok method not", RuleSpec{Method: MethodPost, URL: "http://google.com/a"}, "GET", "http://google.com/a", false},
		{"create verb", RuleSpec{Method: MethodCreate}, "CREATE", "http://google.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := mustRule(t, tt.spec)
			assert.Equal(t, tt.want, rule.Matches(newRequest(t, tt.method, tt.url)))
		})
	}

	t.Run("nil request", func(t *testing.T) {
		assert.False(t, mustRule(t, RuleSpec{}).Matches(nil))
	})

	t.Run("empty method is GET", func(t *testing.T) {
		req := &http.Request{URL: newRequest(t, "GET", "http://google.com/a").URL}

		assert.True(t, mustRule(t, RuleSpec{Method: MethodGet}).Matches(req))
		assert.True(t, mustRule(t, RuleSpec{}).Matches(req))
		assert.False(t, mustRule(t, RuleSpec{Method: MethodPost}).Matches(req))
	})
}

func TestRule_ApplyToRequest(t *testing.T) {
	tagged := func(req *http.Request) *http.Request {
		out := req.Clone(req.Context())
		out.Header.Set("X-Monkey", "1")
		return out
	}

	t.Run("transforms matching request and logs", func(t *testing.T) {
		var buf bytes.Buffer
		log := logging.New(logging.Config{Output: &buf})
		rule := mustRule(t, RuleSpec{Description: "tag requests", Request: tagged})

		req := newRequest(t, "GET", "http://google.com/users")
		out := rule.ApplyToRequest(req, log)

		assert.Equal(t, "1", out.Header.Get("X-Monkey"))
		assert.Empty(t, req.Header.Get("X-Monkey"))
		assert.Contains(t, buf.String(), "performing monkey operation")
		assert.Contains(t, buf.String(), "tag requests")
		assert.Contains(t, buf.String(), "method=GET")
		assert.Contains(t, buf.String(), "url=http://google.com/users")
	})

	t.Run("leaves non-matching request alone", func(t *testing.T) {
		var buf bytes.Buffer
		rule := mustRule(t, RuleSpec{Method: MethodPost, Request: tagged})

		req := newRequest(t, "GET", "http://google.com")
		assert.Same(t, req, rule.ApplyToRequest(req, logging.New(logging.Config{Output: &buf})))
		assert.Empty(t, buf.String())
	})

	t.Run("no transform returns request unchanged", func(t *testing.T) {
		rule := mustRule(t, RuleSpec{})
		req := newRequest(t, "GET", "http://google.com")
		assert.Same(t, req, rule.ApplyToRequest(req, nil))
	})
}

func TestRule_ApplyToResponse(t *testing.T) {
	req := newRequest(t, "GET", "http://google.com")
	resp := &http.Response{StatusCode: http.StatusOK, Status: "200 OK", Request: req, Header: http.Header{}}

	t.Run("runs transform on matching response", func(t *testing.T) {
		rule := mustRule(t, RuleSpec{Response: ReplaceStatus(http.StatusTeapot)})
		out, err := rule.ApplyToResponse(resp, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusTeapot, out.StatusCode)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("skips response of non-matching request", func(t *testing.T) {
		rule := mustRule(t, RuleSpec{Method: MethodDelete, Response: Fail()})
		out, err := rule.ApplyToResponse(resp, nil)
		require.NoError(t, err)
		assert.Same(t, resp, out)
	})

	t.Run("propagates transform error", func(t *testing.T) {
		boom := errors.New("boom")
		rule := mustRule(t, RuleSpec{Response: func(*http.Response) (*http.Response, error) { return nil, boom }})
		_, err := rule.ApplyToResponse(resp, nil)
		assert.Same(t, boom, err)
	})

	t.Run("inert rule logs and passes through", func(t *testing.T) {
		var buf bytes.Buffer
		rule := mustRule(t, RuleSpec{Description: "just watching"})
		out, err := rule.ApplyToResponse(resp, logging.New(logging.Config{Output: &buf}))
		require.NoError(t, err)
		assert.Same(t, resp, out)
		assert.Contains(t, buf.String(), "just watching")
	})
}

func TestRule_String(t *testing.T) {
	rule := mustRule(t, RuleSpec{Description: "users", Method: MethodGet, URL: "http://api/users", Weight: 3, Mandatory: true})
	assert.Equal(t, "users [GET http://api/users weight=3 mandatory]", rule.String())

	rule = mustRule(t, RuleSpec{Description: "all"})
	assert.Equal(t, "all [ANY * weight=1]", rule.String())
}
