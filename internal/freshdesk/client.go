package freshdesk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// Config holds the helpdesk connection settings.
type Config struct {
	Subdomain string
	APIKey    string
	Timeout   time.Duration
	// BaseURL overrides https://{subdomain}.freshdesk.com.
	BaseURL string
}

// Observer receives one call per upstream request.
type Observer func(op string, status int, elapsed time.Duration)

// Client talks to the Freshdesk REST API v2.
type Client struct {
	cfg     Config
	base    string
	http    *fiber.Client
	logger  *zap.Logger
	observe Observer
}

// NewClient builds a client for cfg. logger may be nil.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.freshdesk.com", cfg.Subdomain)
	}
	return &Client{
		cfg:    cfg,
		base:   base,
		http:   &fiber.Client{},
		logger: logger.Named("freshdesk"),
	}
}

// WithObserver registers fn for request metrics and returns c.
func (c *Client) WithObserver(fn Observer) *Client {
	c.observe = fn
	return c
}

// Subdomain returns the configured helpdesk subdomain.
func (c *Client) Subdomain() string { return c.cfg.Subdomain }

// TicketURL returns the agent-portal link of ticket id.
func (c *Client) TicketURL(id int64) string {
	return fmt.Sprintf("https://%s.freshdesk.com/a/tickets/%d", c.cfg.Subdomain, id)
}

type request struct {
	op     string
	method string
	path   string
	query  string
	body   any
}

// do sends req and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return context.DeadlineExceeded
		}
		if left < timeout {
			timeout = left
		}
	}

	url := c.base + req.path
	var a *fiber.Agent
	switch req.method {
	case http.MethodGet:
		a = c.http.Get(url)
	case http.MethodPost:
		a = c.http.Post(url)
	case http.MethodPut:
		a = c.http.Put(url)
	default:
		return fmt.Errorf("freshdesk: unsupported method %s", req.method)
	}
	a.BasicAuth(c.cfg.APIKey, "X").
		Timeout(timeout).
		Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if req.query != "" {
		a.QueryString(req.query)
	}
	if req.body != nil {
		a.JSON(req.body)
	}

	start := time.Now()
	status, body, errs := a.Bytes()
	elapsed := time.Since(start)
	if c.observe != nil {
		c.observe(req.op, status, elapsed)
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.logger.Warn("freshdesk request failed",
			zap.String("op", req.op),
			zap.String("path", req.path),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return fmt.Errorf("freshdesk %s: %w", req.op, err)
	}

	if status < 200 || status > 299 {
		apiErr := &APIError{Status: status}
		if len(body) > 0 {
			_ = json.Unmarshal(body, apiErr)
		}
		c.logger.Warn("freshdesk returned an error",
			zap.String("op", req.op),
			zap.String("path", req.path),
			zap.Int("status", status),
			zap.String("message", apiErr.Message()),
		)
		return apiErr
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Warn("freshdesk response could not be decoded",
			zap.String("op", req.op),
			zap.String("path", req.path),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
