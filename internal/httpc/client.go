// Package httpc builds HTTP clients with explicit timeouts. The remote
// detector holds a connection to one inference service for the length of
// a scan, so connections are kept alive and reused across frames.
package httpc

import (
	"net"
	"net/http"
	"time"
)

const (
	connectTimeout  = 10 * time.Second
	keepAlive       = 30 * time.Second
	idleConnTimeout = 90 * time.Second
)

// NewClient returns a client whose overall request timeout is the given
// duration. Inference on a large frame can be slow; pick the timeout per
// call site rather than relying on http.DefaultClient's none.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   connectTimeout,
				KeepAlive: keepAlive,
			}).DialContext,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     idleConnTimeout,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
