// Package client is the Go client for the console admin API. It implements
// the query construction, response envelope handling and stale-response
// discarding the browser console relies on, so scripted tooling behaves
// identically.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/KHABI-TEQ/console-admin/internal/models"
	"github.com/KHABI-TEQ/console-admin/internal/services"
)

// ErrStaleResponse is returned when a list response arrives after a newer
// request for the same view was issued; the caller must drop it.
var ErrStaleResponse = errors.New("stale response superseded by a newer request")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsConflict reports whether err is the server rejecting an illegal
// lifecycle transition.
func IsConflict(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusConflict
}

// Booking is a decorated inspection booking as served by the admin API.
type Booking struct {
	models.InspectionBooking
	DisplayStage models.InspectionStage `json:"displayStage"`
	StatusLabel  string                 `json:"statusLabel"`
	Description  string                 `json:"statusDescription"`
	CanApprove   bool                   `json:"canApprove"`
	CanReject    bool                   `json:"canReject"`
	Badge        models.StyleToken      `json:"badge"`
}

// Client talks to the console admin API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// Request-key tracking: each list fetch records its filter key; a
	// response is only surfaced if its key still matches the latest issued
	// request for the booking list view.
	mu            sync.Mutex
	latestListKey string
}

// New creates a Client against baseURL authenticating with the given JWT.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ListBookings fetches a page of inspection bookings. If another
// ListBookings call is issued before this one's response is processed, the
// earlier response is discarded with ErrStaleResponse: results shown must
// always match the filters currently applied.
func (c *Client) ListBookings(ctx context.Context, filter models.InspectionFilter) (*models.PageResult, error) {
	key := filter.QueryKey()
	c.mu.Lock()
	c.latestListKey = key
	c.mu.Unlock()

	var result models.PageResult
	query := filter.Values().Encode()
	path := "/v1/admin/inspections"
	if query != "" {
		path += "?" + query
	}
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}

	c.mu.Lock()
	stale := c.latestListKey != key
	c.mu.Unlock()
	if stale {
		return nil, ErrStaleResponse
	}
	return &result, nil
}

// GetBooking fetches one booking with its presentation metadata.
func (c *Client) GetBooking(ctx context.Context, id string) (*Booking, error) {
	var envelope struct {
		Data Booking `json:"data"`
	}
	if err := c.get(ctx, "/v1/admin/inspections/"+id, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// Approve approves a pending transaction and returns the authoritative
// post-action booking. The refresh policy is pessimistic: the caller must
// replace any locally cached copy with this result, never patch the cache
// optimistically.
func (c *Client) Approve(ctx context.Context, id string) (*Booking, error) {
	return c.postBooking(ctx, "/v1/admin/inspections/"+id+"/approve", nil)
}

// Reject rejects a pending transaction with an optional reason.
func (c *Client) Reject(ctx context.Context, id, reason string) (*Booking, error) {
	var body interface{}
	if reason != "" {
		body = map[string]string{"reason": reason}
	}
	return c.postBooking(ctx, "/v1/admin/inspections/"+id+"/reject", body)
}

// RecordAction relays a buyer or seller action.
func (c *Client) RecordAction(ctx context.Context, id string, action services.PartyAction) (*Booking, error) {
	return c.postBooking(ctx, "/v1/admin/inspections/"+id+"/action", action)
}

// StatusModel fetches the server's status metadata table.
func (c *Client) StatusModel(ctx context.Context) (json.RawMessage, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.get(ctx, "/v1/admin/inspections/status-model", &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

func (c *Client) postBooking(ctx context.Context, path string, body interface{}) (*Booking, error) {
	var envelope struct {
		Data Booking `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, path, body, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

func (c *Client) get(ctx context.Context, path string, dest interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, dest)
}

func (c *Client) do(ctx context.Context, method, path string, body, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = strings.NewReader(string(payload))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &errBody)
		if errBody.Error == "" {
			errBody.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	if dest != nil {
		if err := json.Unmarshal(data, dest); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
