package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *LessonPayClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *LessonPayClient) *Handlers {
	return &Handlers{client: client}
}

// HandleGetRequest looks up a single lesson request.
func (h *Handlers) HandleGetRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID := req.GetString("request_id", "")
	if requestID == "" {
		return mcp.NewToolResultError("request_id is required"), nil
	}

	raw, err := h.client.GetRequest(ctx, requestID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get request: %v", err)), nil
	}

	text, err := formatRequest(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse request: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleListRequests lists the acting user's requests.
func (h *Handlers) HandleListRequests(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)

	raw, err := h.client.ListRequests(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list requests: %v", err)), nil
	}

	text, err := formatRequestList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse requests: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleCreateRequest posts a new lesson request.
func (h *Handlers) HandleCreateRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("title is required"), nil
	}
	budget := req.GetInt("budget_amount", 0)
	if budget <= 0 {
		return mcp.NewToolResultError("budget_amount must be a positive amount in yen"), nil
	}
	description := req.GetString("description", "")

	raw, err := h.client.CreateRequest(ctx, title, description, int64(budget))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create request: %v", err)), nil
	}

	id := extractString(raw, "id")
	return mcp.NewToolResultText(fmt.Sprintf(
		"Lesson request created.\n"+
			"ID: %s\n"+
			"Title: %s\n"+
			"Budget: ¥%d\n"+
			"Status: draft\n\n"+
			"Share the ID with a tutor so they can accept it.",
		id, title, budget)), nil
}

// HandleAcceptRequest accepts a request as the tutor.
func (h *Handlers) HandleAcceptRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID := req.GetString("request_id", "")
	if requestID == "" {
		return mcp.NewToolResultError("request_id is required"), nil
	}

	raw, err := h.client.AcceptRequest(ctx, requestID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to accept request: %v", err)), nil
	}

	text, err := formatRequest(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse request: %v", err)), nil
	}

	return mcp.NewToolResultText("Request accepted. The student can now set up payment.\n\n" + text), nil
}

// HandleInitiateEscrow opens a checkout session for an accepted request.
func (h *Handlers) HandleInitiateEscrow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID := req.GetString("request_id", "")
	if requestID == "" {
		return mcp.NewToolResultError("request_id is required"), nil
	}

	raw, err := h.client.InitiateEscrow(ctx, requestID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to initiate escrow: %v", err)), nil
	}

	checkoutURL := extractString(raw, "checkoutUrl")
	sessionID := extractString(raw, "sessionId")

	return mcp.NewToolResultText(fmt.Sprintf(
		"Checkout session opened.\n"+
			"Session: %s\n"+
			"Checkout URL: %s\n\n"+
			"Open the URL to authorize the payment. The money is held in escrow "+
			"and is only released to the tutor when you confirm the lesson is done.",
		sessionID, checkoutURL)), nil
}

// HandleCaptureEscrow releases held funds to the tutor.
func (h *Handlers) HandleCaptureEscrow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID := req.GetString("request_id", "")
	if requestID == "" {
		return mcp.NewToolResultError("request_id is required"), nil
	}

	raw, err := h.client.CaptureEscrow(ctx, requestID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to capture escrow: %v", err)), nil
	}

	text, err := formatRequest(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse request: %v", err)), nil
	}

	return mcp.NewToolResultText("Funds released to the tutor.\n\n" + text), nil
}

// HandleCancelEscrow cancels a request and voids any hold.
func (h *Handlers) HandleCancelEscrow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID := req.GetString("request_id", "")
	if requestID == "" {
		return mcp.NewToolResultError("request_id is required"), nil
	}

	raw, err := h.client.CancelEscrow(ctx, requestID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to cancel: %v", err)), nil
	}

	text, err := formatRequest(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse request: %v", err)), nil
	}

	return mcp.NewToolResultText("Request canceled. Any held funds are returned to the student.\n\n" + text), nil
}

// HandleGetProfile looks up a user's public profile.
func (h *Handlers) HandleGetProfile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	raw, err := h.client.GetProfile(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get profile: %v", err)), nil
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse profile: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("Profile:\n")
	sb.WriteString(fmt.Sprintf("  User: %s\n", getString(m, "userId")))
	sb.WriteString(fmt.Sprintf("  Name: %s\n", getString(m, "displayName")))
	if bio := getString(m, "bio"); bio != "" {
		sb.WriteString(fmt.Sprintf("  Bio: %s\n", bio))
	}
	if getString(m, "payoutAccount") != "" {
		sb.WriteString("  Payouts: enabled\n")
	} else {
		sb.WriteString("  Payouts: not set up\n")
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// --- Formatting helpers ---

func formatRequest(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Request %s\n", getString(m, "id")))
	sb.WriteString(fmt.Sprintf("  Title: %s\n", getString(m, "title")))
	if v, ok := getFloat(m, "budgetAmount"); ok {
		sb.WriteString(fmt.Sprintf("  Budget: ¥%.0f\n", v))
	}
	sb.WriteString(fmt.Sprintf("  Status: %s\n", getString(m, "status")))
	sb.WriteString(fmt.Sprintf("  Student: %s\n", getString(m, "requesterId")))
	if v := getString(m, "providerId"); v != "" {
		sb.WriteString(fmt.Sprintf("  Tutor: %s\n", v))
	}
	return sb.String(), nil
}

func formatRequestList(raw json.RawMessage) (string, error) {
	var resp struct {
		Requests []map[string]any `json:"requests"`
	}
	// Try as {"requests": [...]}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Requests == nil {
		// Try as direct array
		if err := json.Unmarshal(raw, &resp.Requests); err != nil {
			return "", fmt.Errorf("unexpected requests response format")
		}
	}

	if len(resp.Requests) == 0 {
		return "No lesson requests found.", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d request(s):\n\n", len(resp.Requests)))
	for i, r := range resp.Requests {
		sb.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, getString(r, "title"), getString(r, "status")))
		sb.WriteString(fmt.Sprintf("   ID: %s", getString(r, "id")))
		if v, ok := getFloat(r, "budgetAmount"); ok {
			sb.WriteString(fmt.Sprintf(" | Budget: ¥%.0f", v))
		}
		sb.WriteString("\n")
		if i < len(resp.Requests)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func extractString(raw json.RawMessage, key string) string {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	return getString(m, key)
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%g", f)
			}
		}
	}
	return ""
}

// getFloat extracts a float64 value from a map, trying multiple key names.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}
