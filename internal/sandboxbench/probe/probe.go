// Package probe checks whether a sandbox is reachable from outside the platform.
package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/armadaproject/sandboxbench/internal/common/sandboxerrors"
)

// Prober issues a GET request and reports the status code received.
type Prober interface {
	Get(ctx context.Context, url string, timeout time.Duration) (int, error)
}

// HttpProber is a Prober backed by an http.Client.
type HttpProber struct {
	client *http.Client
}

// NewHttpProber returns a prober using client, or http.DefaultClient if client is nil.
func NewHttpProber(client *http.Client) *HttpProber {
	if client == nil {
		client = http.DefaultClient
	}
	return &HttpProber{client: client}
}

// Get returns the status code of a GET on url. Failing to get any response within timeout
// is reported as an ErrNetwork.
func (p *HttpProber) Get(ctx context.Context, url string, timeout time.Duration) (int, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, errors.WithStack(&sandboxerrors.ErrNetwork{URL: url, Err: err})
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused by the next probe.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, nil
}
