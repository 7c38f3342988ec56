// Package client is the REST client for the ticket backend. Endpoint methods
// return raw response bodies; the model packages own the tolerant parsing.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/deskline/deskline/internal/apierrors"
	"github.com/deskline/deskline/internal/session"
)

// Client represents the ticket backend API client
type Client struct {
	httpClient *resty.Client
	baseURL    string
	log        zerolog.Logger
	metrics    *Metrics

	mu    sync.RWMutex
	token string

	// Service clients
	Auth         *AuthService
	Dictionaries *DictionaryService
	Users        *UsersService
	Tickets      *TicketsService
	Comments     *CommentsService
	Attachments  *AttachmentsService
}

// Config represents client configuration
type Config struct {
	// BaseURL is the versioned API root, e.g. http://localhost:8080/api/v1.
	BaseURL    string
	Token      string
	UserAgent  string
	Timeout    time.Duration
	Debug      bool
	Logger     zerolog.Logger
	Registerer prometheus.Registerer
}

// NewClient creates a new API client. Requests are never retried.
func NewClient(config *Config) *Client {
	if config.UserAgent == "" {
		config.UserAgent = "deskline/1.0"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	if config.Debug {
		httpClient.SetDebug(true)
	}

	client := &Client{
		httpClient: httpClient,
		baseURL:    config.BaseURL,
		log:        config.Logger.With().Str("component", "client").Logger(),
		metrics:    NewMetrics(config.Registerer),
		token:      config.Token,
	}

	client.Auth = &AuthService{client: client}
	client.Dictionaries = &DictionaryService{client: client}
	client.Users = &UsersService{client: client}
	client.Tickets = &TicketsService{client: client}
	client.Comments = &CommentsService{client: client}
	client.Attachments = &AttachmentsService{client: client}

	httpClient.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		return client.setAuth(req)
	})

	httpClient.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		return client.handleError(resp)
	})

	return client
}

// SetToken replaces the session token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) setAuth(req *resty.Request) error {
	if token := c.Token(); token != "" {
		req.SetHeader("Authorization", session.Bearer(token))
	}
	return nil
}

// handleError turns non-2xx responses into APIErrors.
func (c *Client) handleError(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return apierrors.FromResponse(resp.StatusCode(), resp.Body())
}

// execute sends req and records it under the route template. Server errors
// come back as *apierrors.APIError, everything else that stops a response
// from arriving as *apierrors.NetworkError.
func (c *Client) execute(req *resty.Request, method, route string) ([]byte, error) {
	start := time.Now()
	resp, err := req.Execute(method, route)
	elapsed := time.Since(start)

	if err != nil {
		var apiErr *apierrors.APIError
		if !errors.As(err, &apiErr) {
			err = &apierrors.NetworkError{
				Operation: method,
				URL:       c.baseURL + route,
				Err:       err,
			}
		}
	}
	c.metrics.observe(method, route, err, elapsed)

	event := c.log.Debug()
	if err != nil {
		event = c.log.Warn().Err(err)
	}
	event.Str("method", method).
		Str("route", route).
		Dur("elapsed", elapsed).
		Msg("request")

	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func (c *Client) r(ctx context.Context) *resty.Request {
	return c.httpClient.R().SetContext(ctx)
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, route string, params map[string]string) ([]byte, error) {
	return c.execute(c.r(ctx).SetPathParams(params), resty.MethodGet, route)
}

// Post performs a POST request with a JSON body
func (c *Client) Post(ctx context.Context, route string, params map[string]string, body any) ([]byte, error) {
	return c.execute(c.r(ctx).SetPathParams(params).SetBody(body), resty.MethodPost, route)
}

// Patch performs a PATCH request with a JSON body
func (c *Client) Patch(ctx context.Context, route string, params map[string]string, body any) ([]byte, error) {
	return c.execute(c.r(ctx).SetPathParams(params).SetBody(body), resty.MethodPatch, route)
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, route string, params map[string]string) error {
	_, err := c.execute(c.r(ctx).SetPathParams(params), resty.MethodDelete, route)
	return err
}

func invalid(operation, reason string) error {
	return &apierrors.InvalidResponseError{Operation: operation, Reason: reason}
}

func requireID(kind, id string) error {
	if id == "" {
		return &apierrors.ValidationError{Field: kind, Message: fmt.Sprintf("%s is required", kind)}
	}
	return nil
}
