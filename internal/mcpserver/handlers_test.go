package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test helpers ---

func newTestSetup(handler http.Handler) (*Handlers, func()) {
	ts := httptest.NewServer(handler)
	cfg := Config{
		APIURL: ts.URL,
		UserID: "user_0000000000000000000000aa",
	}
	client := NewLessonPayClient(cfg)
	h := NewHandlers(client)
	return h, ts.Close
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	if args == nil {
		args = map[string]any{}
	}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content block")
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func requestJSON(id, status string) map[string]any {
	return map[string]any{
		"id":           id,
		"title":        "Weekly calculus lessons",
		"budgetAmount": 12000,
		"requesterId":  "user_0000000000000000000000aa",
		"providerId":   "user_0000000000000000000000bb",
		"status":       status,
	}
}

// ============================================================
// Client tests
// ============================================================

func TestClient_DoRequest_HTTPError_WithAPIMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "status_conflict",
			"message": "request is not in the required status",
		})
	}))
	defer ts.Close()

	client := NewLessonPayClient(Config{APIURL: ts.URL, UserID: "user_0000000000000000000000aa"})
	_, err := client.CaptureEscrow(context.Background(), "req_0000000000000000000000bb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "not in the required status")
}

func TestClient_DoRequest_HTTPError_NonJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream timeout"))
	}))
	defer ts.Close()

	client := NewLessonPayClient(Config{APIURL: ts.URL, UserID: "user_0000000000000000000000aa"})
	_, err := client.GetRequest(context.Background(), "req_0000000000000000000000bb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream timeout")
}

func TestClient_DoRequest_ConnectionRefused(t *testing.T) {
	client := NewLessonPayClient(Config{APIURL: "http://127.0.0.1:1", UserID: "user_0000000000000000000000aa"})
	_, err := client.GetRequest(context.Background(), "req_0000000000000000000000bb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestClient_ListRequests_QueryParams(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"requests":[],"count":0}`))
	}))
	defer ts.Close()

	client := NewLessonPayClient(Config{APIURL: ts.URL, UserID: "user_0000000000000000000000aa"})
	_, err := client.ListRequests(context.Background(), 5)
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "userId=user_0000000000000000000000aa")
	assert.Contains(t, gotQuery, "limit=5")
}

func TestClient_InitiateEscrow_SendsActor(t *testing.T) {
	var gotBody map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{"sessionId":"cs_x","checkoutUrl":"https://pay.example.com/x"}`))
	}))
	defer ts.Close()

	client := NewLessonPayClient(Config{APIURL: ts.URL, UserID: "user_0000000000000000000000aa"})
	_, err := client.InitiateEscrow(context.Background(), "req_0000000000000000000000bb")
	require.NoError(t, err)
	assert.Equal(t, "req_0000000000000000000000bb", gotBody["requestId"])
	assert.Equal(t, "user_0000000000000000000000aa", gotBody["actorId"])
}

// ============================================================
// Handler tests
// ============================================================

func TestHandleGetRequest(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(requestJSON("req_0000000000000000000000bb", "escrowed"))
	}))
	defer cleanup()

	result, err := h.HandleGetRequest(context.Background(), makeRequest(map[string]any{
		"request_id": "req_0000000000000000000000bb",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "req_0000000000000000000000bb")
	assert.Contains(t, text, "Weekly calculus lessons")
	assert.Contains(t, text, "escrowed")
	assert.Contains(t, text, "¥12000")
}

func TestHandleGetRequest_MissingID(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("should not reach the API")
	}))
	defer cleanup()

	result, err := h.HandleGetRequest(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "request_id is required")
}

func TestHandleListRequests(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"requests": []map[string]any{
				requestJSON("req_0000000000000000000000aa", "draft"),
				requestJSON("req_0000000000000000000000bb", "completed"),
			},
			"count": 2,
		})
	}))
	defer cleanup()

	result, err := h.HandleListRequests(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Found 2 request(s)")
	assert.Contains(t, text, "[draft]")
	assert.Contains(t, text, "[completed]")
}

func TestHandleListRequests_Empty(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"requests":[],"count":0}`))
	}))
	defer cleanup()

	result, err := h.HandleListRequests(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "No lesson requests found")
}

func TestHandleCreateRequest(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(requestJSON("req_0000000000000000000000cc", "draft"))
	}))
	defer cleanup()

	result, err := h.HandleCreateRequest(context.Background(), makeRequest(map[string]any{
		"title":         "Weekly calculus lessons",
		"budget_amount": 12000,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "req_0000000000000000000000cc")
	assert.Contains(t, text, "draft")
}

func TestHandleCreateRequest_Validation(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("should not reach the API")
	}))
	defer cleanup()

	result, err := h.HandleCreateRequest(context.Background(), makeRequest(map[string]any{
		"budget_amount": 12000,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "title is required")

	result, err = h.HandleCreateRequest(context.Background(), makeRequest(map[string]any{
		"title": "Lessons",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "budget_amount")
}

func TestHandleInitiateEscrow(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sessionId":"cs_test123","checkoutUrl":"https://checkout.example.com/cs_test123"}`))
	}))
	defer cleanup()

	result, err := h.HandleInitiateEscrow(context.Background(), makeRequest(map[string]any{
		"request_id": "req_0000000000000000000000bb",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "cs_test123")
	assert.Contains(t, text, "https://checkout.example.com/cs_test123")
	assert.Contains(t, text, "held in escrow")
}

func TestHandleCaptureEscrow_APIError(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "forbidden",
			"message": "actor is not permitted to perform this transition",
		})
	}))
	defer cleanup()

	result, err := h.HandleCaptureEscrow(context.Background(), makeRequest(map[string]any{
		"request_id": "req_0000000000000000000000bb",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not permitted")
}

func TestHandleCancelEscrow(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(requestJSON("req_0000000000000000000000bb", "canceled"))
	}))
	defer cleanup()

	result, err := h.HandleCancelEscrow(context.Background(), makeRequest(map[string]any{
		"request_id": "req_0000000000000000000000bb",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "canceled")
	assert.Contains(t, text, "returned to the student")
}

func TestHandleGetProfile(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"userId":        "user_0000000000000000000000bb",
			"displayName":   "Aiko",
			"bio":           "Math tutor",
			"payoutAccount": "acct_1Test",
		})
	}))
	defer cleanup()

	result, err := h.HandleGetProfile(context.Background(), makeRequest(map[string]any{
		"user_id": "user_0000000000000000000000bb",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "Aiko")
	assert.Contains(t, text, "Payouts: enabled")
}

func TestHandleGetProfile_NoPayout(t *testing.T) {
	h, cleanup := newTestSetup(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"userId":      "user_0000000000000000000000cc",
			"displayName": "Kenji",
		})
	}))
	defer cleanup()

	result, err := h.HandleGetProfile(context.Background(), makeRequest(map[string]any{
		"user_id": "user_0000000000000000000000cc",
	}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Payouts: not set up")
}
