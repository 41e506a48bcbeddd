package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client represents a client for the notification facade API
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

func NewClient(apiURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Send posts req to the facade API. "/notify" is appended unless the URL
// already ends with it.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.apiURL
	if !isFullURL(c.apiURL) {
		url = strings.TrimSuffix(c.apiURL, "/") + "/notify"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var notifResp Response
	if err := json.NewDecoder(resp.Body).Decode(&notifResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if notifResp.Error != "" {
			return &notifResp, fmt.Errorf("notification failed with status %d: %s", resp.StatusCode, notifResp.Error)
		}
		return &notifResp, fmt.Errorf("notification failed with status %d", resp.StatusCode)
	}

	return &notifResp, nil
}

func (c *Client) validateRequest(req *Request) error {
	if req.UserID == "" {
		return fmt.Errorf("userId is required")
	}

	switch req.EventType {
	case "":
		return fmt.Errorf("eventType is required")
	case EventTypeWeatherAlert, EventTypeSystemAlert:
	default:
		return fmt.Errorf("invalid eventType: %s", req.EventType)
	}

	switch req.Priority {
	case "", PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
	default:
		return fmt.Errorf("invalid priority: %s", req.Priority)
	}

	if req.Data == nil {
		req.Data = make(map[string]interface{})
	}

	return nil
}

// SendWeatherAlert sends a weather alert notification
func (c *Client) SendWeatherAlert(ctx context.Context, userID string, data WeatherAlertData, priority Priority) (*Response, error) {
	req := &Request{
		UserID:    userID,
		EventType: EventTypeWeatherAlert,
		Priority:  priority,
		Data: map[string]interface{}{
			"locationId": data.LocationID,
			"location":   data.Location,
			"alertType":  data.AlertType,
			"title":      data.Title,
			"message":    data.Message,
			"severity":   data.Severity,
			"startTime":  data.StartTime,
			"endTime":    data.EndTime,
		},
	}

	return c.Send(ctx, req)
}

func isFullURL(url string) bool {
	return strings.HasSuffix(url, "/notify")
}
