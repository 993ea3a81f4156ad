// Package sandboxerrors contains the error types returned while measuring sandbox lifecycles.
// Errors are classified into a small set of kinds (see KindFromError) so the cycle
// scheduler can decide what is fatal and label failed cycles.
//
// If multiple errors occur in some function (e.g., both the service and the app fail to
// delete), that function should return an error of type multierror.Error from package
// github.com/hashicorp/go-multierror that encapsulates those individual errors.
package sandboxerrors

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Kind is a coarse classification of an error.
type Kind string

const (
	KindNone     Kind = ""
	KindConfig   Kind = "config"
	KindPlatform Kind = "platform"
	KindNetwork  Kind = "network"
	KindTimeout  Kind = "timeout"
	KindCanceled Kind = "canceled"
	KindUnknown  Kind = "unknown"
)

// ErrMissingCredential is returned at startup when the API token is not available.
type ErrMissingCredential struct {
	// Name of the environment variable expected to hold the credential
	EnvVar string
}

func (err *ErrMissingCredential) Error() string {
	return fmt.Sprintf("credential not set; export %s with a valid API token", err.EnvVar)
}

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "metricType"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message to include with the error message, e.g., explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %q is invalid for field %q", err.Value, err.Name)
	} else {
		return fmt.Sprintf("value %q is invalid for field %q; %s", err.Value, err.Name, err.Message)
	}
}

// ErrPlatform is returned when a control-plane call fails.
// StatusCode is zero if no response was received.
type ErrPlatform struct {
	// Control-plane operation, e.g., "create service"
	Operation  string
	StatusCode int
	Message    string
}

func (err *ErrPlatform) Error() (s string) {
	if err.StatusCode != 0 {
		s = fmt.Sprintf("%s failed with status %d (%s)", err.Operation, err.StatusCode, http.StatusText(err.StatusCode))
	} else {
		s = fmt.Sprintf("%s failed", err.Operation)
	}
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	return
}

// ErrResourceFailed is returned when the remote resource reaches a terminal state
// from which it will never become ready.
type ErrResourceFailed struct {
	Resource string
	Status   string
}

func (err *ErrResourceFailed) Error() string {
	return fmt.Sprintf("resource %q entered terminal status %s", err.Resource, err.Status)
}

// ErrPhaseTimeout is returned when a polled phase does not complete within its deadline.
type ErrPhaseTimeout struct {
	Phase   string
	Timeout time.Duration
	// Last status observed before the deadline, if any
	LastStatus string
}

func (err *ErrPhaseTimeout) Error() string {
	if err.LastStatus != "" {
		return fmt.Sprintf("phase %q did not complete within %s; last status %s", err.Phase, err.Timeout, err.LastStatus)
	}
	return fmt.Sprintf("phase %q did not complete within %s", err.Phase, err.Timeout)
}

// ErrNetwork wraps a transport level failure when probing a URL.
type ErrNetwork struct {
	URL string
	Err error
}

func (err *ErrNetwork) Error() string {
	return fmt.Sprintf("request to %s failed: %s", err.URL, err.Err)
}

func (err *ErrNetwork) Unwrap() error {
	return err.Err
}

// IsNetworkError reports whether any error in the chain is an ErrNetwork.
func IsNetworkError(err error) bool {
	var e *ErrNetwork
	return errors.As(err, &e)
}

// KindFromError maps error types to a Kind.
// Uses errors.As to look through the chain of errors, as opposed to just considering the topmost error in the chain.
func KindFromError(err error) Kind {
	if err == nil {
		return KindNone
	}

	// Using {} scopes just to re-use the "e" variable name for each case.
	{
		var e *ErrMissingCredential
		if errors.As(err, &e) {
			return KindConfig
		}
	}
	{
		var e *ErrInvalidArgument
		if errors.As(err, &e) {
			return KindConfig
		}
	}
	{
		var e *ErrPhaseTimeout
		if errors.As(err, &e) {
			return KindTimeout
		}
	}
	{
		var e *ErrPlatform
		if errors.As(err, &e) {
			return KindPlatform
		}
	}
	{
		var e *ErrResourceFailed
		if errors.As(err, &e) {
			return KindPlatform
		}
	}
	if IsNetworkError(err) {
		return KindNetwork
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	return KindUnknown
}
