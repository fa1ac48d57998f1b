package monkey

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultFaultCode is the status code used by RegisterCodeFault(0).
const DefaultFaultCode = http.StatusNotFound

// ReplaceStatus returns a transform that swaps the status code and keeps the
// body, headers and everything else from the real response.
func ReplaceStatus(code int) ResponseTransform {
	return func(resp *http.Response) (*http.Response, error) {
		out := *resp
		out.StatusCode = code
		out.Status = statusLine(code)
		return &out, nil
	}
}

// Delay returns a transform that holds the response back for d. The wait is
// bound to the request context: if it ends first, the real body is closed and
// ErrDelayInterrupted is returned. With completeOnCancel the full delay is
// always served and the response returned, whatever the context says.
func Delay(d time.Duration, completeOnCancel bool) ResponseTransform {
	return func(resp *http.Response) (*http.Response, error) {
		ctx := context.Background()
		if resp.Request != nil && !completeOnCancel {
			ctx = resp.Request.Context()
		}

		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
			return resp, nil
		case <-ctx.Done():
			if resp.Body != nil {
				_ = resp.Body.Close()
			}
			return nil, fmt.Errorf("%w after %s: %w", ErrDelayInterrupted, d, ctx.Err())
		}
	}
}

// Fail returns a transform that always fails with ErrInjectedFailure. The
// real response body is closed so the connection can be reused.
func Fail() ResponseTransform {
	return func(resp *http.Response) (*http.Response, error) {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, ErrInjectedFailure
	}
}

func statusLine(code int) string {
	if text := http.StatusText(code); text != "" {
		return fmt.Sprintf("%d %s", code, text)
	}
	return fmt.Sprintf("%d", code)
}
