// Package client talks to the ledger backend over HTTP, behind a circuit
// breaker, for the billing till.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"billdesk/m/domain"
)

// BillingPath is where the ledger mounts the billing counter endpoints.
const BillingPath = "/dashboard/products/billing"

const maxResponseBody = 1 << 20

var errServerStatus = errors.New("server error status")

// Client talks to the ledger backend over HTTP.
type Client struct {
	base       string
	httpClient *http.Client
	token      string
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker[*reply]
}

type reply struct {
	status int
	body   []byte
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds each request. Zero disables the per-request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithBreaker opens the circuit after threshold consecutive transport failures
// and lets one trial request through after cooldown.
func WithBreaker(threshold uint32, cooldown time.Duration) Option {
	return func(c *Client) { c.breaker = newBreaker(threshold, cooldown) }
}

// New returns a client for the ledger running at rootURL.
func New(rootURL string, opts ...Option) *Client {
	c := &Client{
		base:       strings.TrimRight(rootURL, "/") + BillingPath,
		httpClient: http.DefaultClient,
		timeout:    10 * time.Second,
		breaker:    newBreaker(5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newBreaker(threshold uint32, cooldown time.Duration) *gobreaker.CircuitBreaker[*reply] {
	return gobreaker.NewCircuitBreaker[*reply](gobreaker.Settings{
		Name:        "ledger",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A call the caller abandoned says nothing about the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit %s: %s -> %s", name, from, to)
		},
	})
}

// BaseURL is the billing endpoint root, used to derive print and export links.
func (c *Client) BaseURL() string {
	return c.base
}

// Search asks the catalog for products matching query.
func (c *Client) Search(ctx context.Context, query string) ([]domain.ProductSearchResult, error) {
	const op = "search"
	rep, err := c.do(ctx, op, http.MethodGet, "/search?q="+url.QueryEscape(query), nil, "")
	if err != nil {
		return nil, err
	}
	var results []domain.ProductSearchResult
	if err := json.Unmarshal(rep.body, &results); err != nil {
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return results, nil
}

// Checkout submits one bill. A non-empty idempotencyKey lets the ledger
// recognise a retried submission.
func (c *Client) Checkout(ctx context.Context, req domain.CheckoutRequest, idempotencyKey string) (domain.CheckoutResponse, error) {
	const op = "checkout"
	body, err := json.Marshal(req)
	if err != nil {
		return domain.CheckoutResponse{}, fmt.Errorf("%s: encode request: %w", op, err)
	}
	rep, err := c.do(ctx, op, http.MethodPost, "/checkout", body, idempotencyKey)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	var res domain.CheckoutResponse
	if err := json.Unmarshal(rep.body, &res); err != nil {
		return domain.CheckoutResponse{}, &domain.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !res.Succeeded() {
		return res, &domain.BackendRejection{Op: op, Status: rep.status, Message: rejectionMessage(res.Message, res.Error)}
	}
	return res, nil
}

// History returns the most recent bills, newest first.
func (c *Client) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	const op = "history"
	rep, err := c.do(ctx, op, http.MethodGet, "/history", nil, "")
	if err != nil {
		return nil, err
	}
	var entries []domain.HistoryEntry
	if err := json.Unmarshal(rep.body, &entries); err != nil {
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return entries, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, idempotencyKey string) (*reply, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var rep *reply
	_, err := c.breaker.Execute(func() (*reply, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if idempotencyKey != "" {
			req.Header.Set("Idempotency-Key", idempotencyKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return nil, err
		}
		rep = &reply{status: resp.StatusCode, body: data}
		if resp.StatusCode >= http.StatusInternalServerError {
			return rep, errServerStatus
		}
		return rep, nil
	})

	if rep == nil {
		log.Printf("%s %s: %v", method, path, err)
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	if rep.status >= 200 && rep.status < 300 {
		return rep, nil
	}

	// Non-2xx answers that still carry a message are explicit rejections.
	var failure struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(rep.body, &failure) == nil && failure.Error != "" {
		return nil, &domain.BackendRejection{Op: op, Status: rep.status, Message: failure.Error}
	}
	log.Printf("%s %s: status %d", method, path, rep.status)
	return nil, &domain.TransportError{Op: op, Status: rep.status}
}

func rejectionMessage(message, reason string) string {
	if reason != "" {
		return reason
	}
	if message != "" {
		return message
	}
	return "request was not accepted"
}
