// Package platform contains the control-plane client used to provision the sandbox
// being measured, and the model of the lifecycle it goes through.
package platform

import (
	"context"
	"time"
)

// CreateRequest describes the sandbox to provision.
type CreateRequest struct {
	// Container image to run, e.g. koyeb/sandbox
	Image string
	// Name of the app and service; must be unique among live sandboxes.
	Name string
	// Region to deploy to. Empty uses the platform default.
	Region string
	// Port exposed publicly; zero disables the public route.
	Port int
	// Time after which the platform deletes the sandbox by itself, in case teardown never happens.
	TTL time.Duration
}

// Handle identifies a provisioned sandbox.
type Handle struct {
	AppID     string `json:"appId"`
	ServiceID string `json:"serviceId"`
	Name      string `json:"name"`
	Region    string `json:"region,omitempty"`
	// Public URL of the sandbox, empty if it is not exposed.
	PublicURL string `json:"publicUrl,omitempty"`
}

// Client is the subset of the control-plane API needed to measure a sandbox lifecycle.
type Client interface {
	// Create provisions a sandbox and returns as soon as the platform accepted it.
	Create(ctx context.Context, req CreateRequest) (*Handle, error)
	// Delete removes everything Create provisioned.
	Delete(ctx context.Context, handle *Handle) error
	// ListStatus returns the status of the sandbox's instance, or StatusUnknown if none is visible yet.
	// An error is only returned if the platform could not be queried.
	ListStatus(ctx context.Context, handle *Handle) (InstanceStatus, error)
	// IsReady reports whether the platform considers the sandbox healthy.
	IsReady(ctx context.Context, handle *Handle) (bool, error)
}
