package monkey

import (
	"errors"
	"net/http"
)

// Transport is an http.RoundTripper that routes every request through a
// Monkey before handing it to Base.
type Transport struct {
	Monkey Monkey

	// Base performs the real round trip. Defaults to http.DefaultTransport.
	Base http.RoundTripper
}

// NewTransport wraps base with m.
func NewTransport(m Monkey, base http.RoundTripper) *Transport {
	return &Transport{Monkey: m, Base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base()
	if t.Monkey == nil {
		return base.RoundTrip(req)
	}
	return t.Monkey.Intercept(req, base.RoundTrip)
}

// CloseIdleConnections forwards to Base when it supports it.
func (t *Transport) CloseIdleConnections() {
	type closeIdler interface {
		CloseIdleConnections()
	}
	if ci, ok := t.base().(closeIdler); ok {
		ci.CloseIdleConnections()
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// NewClient returns a copy of base whose transport goes through m. A nil base
// means http.DefaultClient.
func NewClient(m Monkey, base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	client := *base
	client.Transport = NewTransport(m, base.Transport)
	return &client
}

// IsInjected reports whether err was produced by a fault rather than by the
// network. It sees through the *url.Error wrapping done by http.Client.
func IsInjected(err error) bool {
	return errors.Is(err, ErrInjectedFailure) || errors.Is(err, ErrDelayInterrupted)
}
