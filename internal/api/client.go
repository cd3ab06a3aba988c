// Package api implements the HTTP client for the tidewatch backend. The
// write side exposes exactly the success/failure contract the mutation
// queue needs; the read side returns typed marine collections for the
// refresh logic. Response bodies of writes are never interpreted beyond
// the status code.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// requestTimeout bounds every remote call so a hung connection can never
// stall a refresh or drain pass indefinitely.
const requestTimeout = 30 * time.Second

// maxErrorBodyBytes caps how much of an error response is read for the
// error message.
const maxErrorBodyBytes = 512

// StatusError reports a non-2xx response. The queue treats any StatusError
// as a delivery failure; it never inspects the body.
type StatusError struct {
	StatusCode int
	Method     string
	Endpoint   string
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
}

// Client is the remote API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client for the given base URL and bearer token.
func New(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// Do performs one HTTP-shaped write call. Any 2xx status is success;
// everything else (including transport errors) is failure. This is the
// whole contract the mutation queue drain relies on.
func (c *Client) Do(ctx context.Context, method, endpoint string, body []byte) error {
	resp, err := c.send(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return &StatusError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Endpoint:   endpoint,
			Body:       string(msg),
		}
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// send builds and executes one request with auth headers applied.
func (c *Client) send(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	url := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("api: building %s %s: %w", method, endpoint, err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("remote call",
		slog.String("method", method),
		slog.String("endpoint", endpoint),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: %w", method, endpoint, err)
	}

	return resp, nil
}

// getJSON performs a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := c.send(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return &StatusError{
			StatusCode: resp.StatusCode,
			Method:     http.MethodGet,
			Endpoint:   endpoint,
			Body:       string(msg),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decoding %s: %w", endpoint, err)
	}

	return nil
}

// Stations fetches the marine station list.
func (c *Client) Stations(ctx context.Context) ([]Station, error) {
	var out []Station

	if err := c.getJSON(ctx, "/v1/stations", &out); err != nil {
		return nil, err
	}

	return out, nil
}

// Observation fetches the latest point observation for one station.
func (c *Client) Observation(ctx context.Context, stationID string) (*Observation, error) {
	var out Observation

	if err := c.getJSON(ctx, "/v1/stations/"+stationID+"/observation", &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Alerts fetches the current marine alerts.
func (c *Client) Alerts(ctx context.Context) ([]Alert, error) {
	var out []Alert

	if err := c.getJSON(ctx, "/v1/alerts", &out); err != nil {
		return nil, err
	}

	return out, nil
}

// Forecast fetches the forecast for one station.
func (c *Client) Forecast(ctx context.Context, stationID string) (*Forecast, error) {
	var out Forecast

	if err := c.getJSON(ctx, "/v1/stations/"+stationID+"/forecast", &out); err != nil {
		return nil, err
	}

	return &out, nil
}
