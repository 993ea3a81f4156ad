package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/sandboxbench/internal/common/sandboxerrors"
)

const (
	DefaultKoyebBaseURL = "https://app.koyeb.com"
	// Error bodies larger than this are truncated.
	maxErrorBodyBytes = 64 * 1024
)

// KoyebClient implements Client against the Koyeb REST API.
// Each sandbox is an app holding a single service; deleting the app removes everything.
type KoyebClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	// Service type of the provisioned sandbox, e.g. WEB.
	ServiceType string
	// App deletion fails until the service is gone, so it is retried.
	// Defaults to 10 attempts, 2 seconds apart.
	DeleteAttempts   uint
	DeleteRetryDelay time.Duration
}

// NewKoyebClient returns a client authenticating with token.
// Provide a http client, e.g., to set timeouts, or set httpClient to nil to use the default client.
func NewKoyebClient(baseURL string, token string, httpClient *http.Client) (*KoyebClient, error) {
	if token == "" {
		return nil, errors.WithStack(&sandboxerrors.ErrInvalidArgument{
			Name:    "token",
			Value:   token,
			Message: "an API token is required",
		})
	}
	if baseURL == "" {
		baseURL = DefaultKoyebBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &KoyebClient{
		baseURL:          strings.TrimSuffix(baseURL, "/"),
		token:            token,
		httpClient:       httpClient,
		ServiceType:      "WEB",
		DeleteAttempts:   10,
		DeleteRetryDelay: 2 * time.Second,
	}, nil
}

type createAppRequest struct {
	Name string `json:"name"`
}

type appReply struct {
	App struct {
		ID      string `json:"id"`
		Domains []struct {
			Name string `json:"name"`
		} `json:"domains"`
	} `json:"app"`
}

type deploymentDefinition struct {
	Name      string               `json:"name"`
	Type      string               `json:"type"`
	Regions   []string             `json:"regions,omitempty"`
	Docker    dockerSource         `json:"docker"`
	Ports     []deploymentPort     `json:"ports,omitempty"`
	Routes    []deploymentRoute    `json:"routes,omitempty"`
	Scalings  []deploymentScaling  `json:"scalings"`
	LifeCycle *deploymentLifeCycle `json:"life_cycle,omitempty"`
}

type dockerSource struct {
	Image string `json:"image"`
}

type deploymentPort struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
}

type deploymentRoute struct {
	Path string `json:"path"`
	Port int    `json:"port"`
}

type deploymentScaling struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type deploymentLifeCycle struct {
	DeleteAfterCreate int64 `json:"delete_after_create,omitempty"`
}

type createServiceRequest struct {
	AppID      string               `json:"app_id"`
	Definition deploymentDefinition `json:"definition"`
}

type serviceReply struct {
	Service struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"service"`
}

type listInstancesReply struct {
	Instances []struct {
		ID     string         `json:"id"`
		Status InstanceStatus `json:"status"`
	} `json:"instances"`
}

type errorReply struct {
	Message string `json:"message"`
}

func (c *KoyebClient) Create(ctx context.Context, req CreateRequest) (*Handle, error) {
	var app appReply
	if err := c.do(ctx, "create app", http.MethodPost, "/v1/apps", nil, &createAppRequest{Name: req.Name}, &app); err != nil {
		return nil, err
	}
	handle := &Handle{
		AppID:  app.App.ID,
		Name:   req.Name,
		Region: req.Region,
	}

	definition := deploymentDefinition{
		Name:     req.Name,
		Type:     c.ServiceType,
		Docker:   dockerSource{Image: req.Image},
		Scalings: []deploymentScaling{{Min: 1, Max: 1}},
	}
	if req.Region != "" {
		definition.Regions = []string{req.Region}
	}
	if req.Port != 0 {
		definition.Ports = []deploymentPort{{Port: req.Port, Protocol: "http"}}
		definition.Routes = []deploymentRoute{{Path: "/", Port: req.Port}}
		if len(app.App.Domains) > 0 {
			handle.PublicURL = "https://" + app.App.Domains[0].Name
		}
	}
	if req.TTL > 0 {
		definition.LifeCycle = &deploymentLifeCycle{DeleteAfterCreate: int64(req.TTL.Seconds())}
	}

	var service serviceReply
	err := c.do(ctx, "create service", http.MethodPost, "/v1/services", nil, &createServiceRequest{
		AppID:      handle.AppID,
		Definition: definition,
	}, &service)
	if err != nil {
		// The app is useless without its service; don't leave it behind.
		if deleteErr := c.deleteApp(ctx, handle.AppID); deleteErr != nil {
			log.WithError(deleteErr).Warnf("failed to delete app %s after service creation failed", handle.AppID)
		}
		return nil, err
	}
	handle.ServiceID = service.Service.ID
	return handle, nil
}

func (c *KoyebClient) Delete(ctx context.Context, handle *Handle) error {
	var result *multierror.Error
	if handle.ServiceID != "" {
		err := c.do(ctx, "delete service", http.MethodDelete, "/v1/services/"+url.PathEscape(handle.ServiceID), nil, nil, nil)
		if err != nil && !isNotFound(err) {
			result = multierror.Append(result, err)
		}
	}
	if handle.AppID != "" {
		if err := c.deleteApp(ctx, handle.AppID); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (c *KoyebClient) deleteApp(ctx context.Context, appID string) error {
	attempts := c.DeleteAttempts
	if attempts == 0 {
		attempts = 1
	}
	return retry.Do(
		func() error {
			err := c.do(ctx, "delete app", http.MethodDelete, "/v1/apps/"+url.PathEscape(appID), nil, nil, nil)
			if isNotFound(err) {
				return nil
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.DeleteRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Debugf("app %s not deleted yet (attempt %d)", appID, n+1)
		}),
	)
}

func (c *KoyebClient) ListStatus(ctx context.Context, handle *Handle) (InstanceStatus, error) {
	query := url.Values{}
	query.Set("service_id", handle.ServiceID)
	query.Set("limit", "1")
	var reply listInstancesReply
	if err := c.do(ctx, "list instances", http.MethodGet, "/v1/instances", query, nil, &reply); err != nil {
		return StatusUnknown, err
	}
	if len(reply.Instances) == 0 {
		return StatusUnknown, nil
	}
	return reply.Instances[0].Status, nil
}

func (c *KoyebClient) IsReady(ctx context.Context, handle *Handle) (bool, error) {
	var reply serviceReply
	if err := c.do(ctx, "get service", http.MethodGet, "/v1/services/"+url.PathEscape(handle.ServiceID), nil, nil, &reply); err != nil {
		return false, err
	}
	return InstanceStatus(reply.Service.Status) == StatusHealthy, nil
}

// do sends a JSON request and decodes the JSON reply into out, if out is not nil.
// Any failure, including non-2xx replies, is returned as an ErrPlatform.
func (c *KoyebClient) do(ctx context.Context, operation string, method string, path string, query url.Values, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.WithStack(err)
		}
		reqBody = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(&sandboxerrors.ErrPlatform{Operation: operation, Message: err.Error()})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.WithStack(&sandboxerrors.ErrPlatform{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		})
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WithStack(&sandboxerrors.ErrPlatform{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("invalid reply: %s", err),
		})
	}
	return nil
}

func errorMessage(body io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil {
		return ""
	}
	var reply errorReply
	if err := json.Unmarshal(b, &reply); err == nil && reply.Message != "" {
		return reply.Message
	}
	return strings.TrimSpace(string(b))
}

func isNotFound(err error) bool {
	var e *sandboxerrors.ErrPlatform
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}
