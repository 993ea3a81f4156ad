package lifecycle

import (
	"context"
	"net/http"
	"time"

	"github.com/armadaproject/sandboxbench/internal/common/sandboxerrors"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/platform"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/probe"
)

// Readiness decides when a started sandbox is usable.
type Readiness interface {
	Ready(ctx context.Context, handle *platform.Handle) (bool, error)
}

// HealthReadiness asks the control plane whether the sandbox reports healthy.
type HealthReadiness struct {
	Client platform.Client
}

func (r *HealthReadiness) Ready(ctx context.Context, handle *platform.Handle) (bool, error) {
	return r.Client.IsReady(ctx, handle)
}

// HTTPReadiness considers the sandbox ready once its public URL answers 200.
// Network failures mean the route is not serving yet and are not reported as errors.
type HTTPReadiness struct {
	Prober  probe.Prober
	Timeout time.Duration
}

func (r *HTTPReadiness) Ready(ctx context.Context, handle *platform.Handle) (bool, error) {
	if handle.PublicURL == "" {
		return false, &sandboxerrors.ErrInvalidArgument{
			Name:    "publicURL",
			Value:   handle.PublicURL,
			Message: "sandbox has no public route; expose a port to use http readiness",
		}
	}
	code, err := r.Prober.Get(ctx, handle.PublicURL, r.Timeout)
	if sandboxerrors.IsNetworkError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return code == http.StatusOK, nil
}
