package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the LessonPay platform.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
	UserID string // Acting user's ID, e.g. "user_..."
}

// LessonPayClient is a pure HTTP client for the LessonPay platform API.
type LessonPayClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewLessonPayClient creates a new client for the LessonPay platform.
func NewLessonPayClient(cfg Config) *LessonPayClient {
	return &LessonPayClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the platform.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the platform and returns the response body.
func (c *LessonPayClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// GetRequest fetches a single lesson request by ID.
func (c *LessonPayClient) GetRequest(ctx context.Context, requestID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/requests/"+requestID, nil, nil)
}

// ListRequests lists the acting user's lesson requests.
func (c *LessonPayClient) ListRequests(ctx context.Context, limit int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("userId", c.cfg.UserID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/requests", q, nil)
}

// CreateRequest posts a new lesson request as the acting user.
func (c *LessonPayClient) CreateRequest(ctx context.Context, title, description string, budgetAmount int64) (json.RawMessage, error) {
	body := map[string]any{
		"title":        title,
		"description":  description,
		"budgetAmount": budgetAmount,
		"requesterId":  c.cfg.UserID,
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/requests", nil, body)
}

// AcceptRequest accepts a lesson request as the acting user (the tutor).
func (c *LessonPayClient) AcceptRequest(ctx context.Context, requestID string) (json.RawMessage, error) {
	body := map[string]string{"providerId": c.cfg.UserID}
	return c.doRequest(ctx, http.MethodPost, "/v1/requests/"+requestID+"/accept", nil, body)
}

// InitiateEscrow opens a checkout session holding the budget for a request.
func (c *LessonPayClient) InitiateEscrow(ctx context.Context, requestID string) (json.RawMessage, error) {
	body := map[string]string{"requestId": requestID, "actorId": c.cfg.UserID}
	return c.doRequest(ctx, http.MethodPost, "/v1/escrow/initiate", nil, body)
}

// CaptureEscrow releases held funds to the tutor.
func (c *LessonPayClient) CaptureEscrow(ctx context.Context, requestID string) (json.RawMessage, error) {
	body := map[string]string{"requestId": requestID, "actorId": c.cfg.UserID}
	return c.doRequest(ctx, http.MethodPost, "/v1/escrow/capture", nil, body)
}

// CancelEscrow voids the hold and returns funds to the student.
func (c *LessonPayClient) CancelEscrow(ctx context.Context, requestID string) (json.RawMessage, error) {
	body := map[string]string{"requestId": requestID, "actorId": c.cfg.UserID}
	return c.doRequest(ctx, http.MethodPost, "/v1/escrow/cancel", nil, body)
}

// GetProfile fetches a user's public profile.
func (c *LessonPayClient) GetProfile(ctx context.Context, userID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/profiles/"+userID, nil, nil)
}
