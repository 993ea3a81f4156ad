// Package fake provides a scripted, in-memory platform.Client for tests.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/armadaproject/sandboxbench/internal/sandboxbench/platform"
)

// Client replays the same status script for every sandbox it creates.
// Sandboxes are numbered from 1 in creation order.
type Client struct {
	// Statuses returned by successive ListStatus calls for a sandbox; the last one repeats.
	Statuses []platform.InstanceStatus
	// Number of IsReady calls returning false before a sandbox reports ready.
	ReadyAfter int
	// Time each status query takes.
	PollLatency time.Duration
	// Time Create takes.
	CreateLatency time.Duration

	// Error returned by Create for a given sandbox number. Failed creations still consume a number.
	CreateErrors map[int]error
	// Optional hook returning an error for the given sandbox and 1-based status poll.
	ListStatusErr func(sandbox int, poll int) error
	// Optional hook returning an error for the given sandbox and 1-based readiness check.
	IsReadyErr func(sandbox int, check int) error
	DeleteErr  error

	mu        sync.Mutex
	created   []platform.CreateRequest
	deleted   []*platform.Handle
	sandboxes map[string]*sandbox
}

type sandbox struct {
	number      int
	polls       int
	readyChecks int
}

func (c *Client) Create(ctx context.Context, req platform.CreateRequest) (*platform.Handle, error) {
	if err := sleep(ctx, c.CreateLatency); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, req)
	n := len(c.created)
	if err := c.CreateErrors[n]; err != nil {
		return nil, err
	}
	if c.sandboxes == nil {
		c.sandboxes = make(map[string]*sandbox)
	}
	id := fmt.Sprintf("svc-%d", n)
	c.sandboxes[id] = &sandbox{number: n}
	return &platform.Handle{
		AppID:     fmt.Sprintf("app-%d", n),
		ServiceID: id,
		Name:      req.Name,
		Region:    req.Region,
		PublicURL: fmt.Sprintf("https://%s.example.com", req.Name),
	}, nil
}

func (c *Client) Delete(_ context.Context, handle *platform.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, handle)
	return c.DeleteErr
}

func (c *Client) ListStatus(ctx context.Context, handle *platform.Handle) (platform.InstanceStatus, error) {
	if err := sleep(ctx, c.PollLatency); err != nil {
		return platform.StatusUnknown, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.lookup(handle)
	if err != nil {
		return platform.StatusUnknown, err
	}
	s.polls++
	if c.ListStatusErr != nil {
		if err := c.ListStatusErr(s.number, s.polls); err != nil {
			return platform.StatusUnknown, err
		}
	}
	if len(c.Statuses) == 0 {
		return platform.StatusUnknown, nil
	}
	i := s.polls - 1
	if i >= len(c.Statuses) {
		i = len(c.Statuses) - 1
	}
	return c.Statuses[i], nil
}

func (c *Client) IsReady(ctx context.Context, handle *platform.Handle) (bool, error) {
	if err := sleep(ctx, c.PollLatency); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.lookup(handle)
	if err != nil {
		return false, err
	}
	s.readyChecks++
	if c.IsReadyErr != nil {
		if err := c.IsReadyErr(s.number, s.readyChecks); err != nil {
			return false, err
		}
	}
	return s.readyChecks > c.ReadyAfter, nil
}

// Created returns the requests passed to Create, including failed ones.
func (c *Client) Created() []platform.CreateRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]platform.CreateRequest(nil), c.created...)
}

// Deleted returns the handles passed to Delete.
func (c *Client) Deleted() []*platform.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*platform.Handle(nil), c.deleted...)
}

// Polls returns the number of ListStatus calls made for the given sandbox.
func (c *Client) Polls(sandboxNumber int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.sandboxes {
		if s.number == sandboxNumber {
			return s.polls
		}
	}
	return 0
}

func (c *Client) lookup(handle *platform.Handle) (*sandbox, error) {
	s, ok := c.sandboxes[handle.ServiceID]
	if !ok {
		return nil, fmt.Errorf("unknown sandbox %q", handle.ServiceID)
	}
	return s, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
