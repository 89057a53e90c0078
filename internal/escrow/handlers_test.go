package escrow

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knakagawa/lessonpay/internal/request"
)

func newEscrowRouter(t *testing.T) (*gin.Engine, *Coordinator, *request.MemoryStore, *fakeGateway) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	coord, store, gw := newTestCoordinator(t)
	r := gin.New()
	NewHandlers(coord).RegisterRoutes(r.Group("/v1"))
	return r, coord, store, gw
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInitiateHandler(t *testing.T) {
	r, _, store, _ := newEscrowRouter(t)
	req := seedRequest(t, store, request.StatusAccepted)

	w := postJSON(t, r, "/v1/escrow/initiate", gin.H{"requestId": req.ID, "actorId": requesterID})
	require.Equal(t, http.StatusOK, w.Code)

	var res InitiateResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.CheckoutURL)
}

func TestInitiateHandlerStatusConflictIs400(t *testing.T) {
	r, _, store, _ := newEscrowRouter(t)
	req := seedRequest(t, store, request.StatusDraft)

	w := postJSON(t, r, "/v1/escrow/initiate", gin.H{"requestId": req.ID, "actorId": requesterID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "status_conflict", body["error"])
}

func TestCaptureHandler(t *testing.T) {
	r, coord, store, gw := newEscrowRouter(t)
	req, _ := escrowRequest(t, coord, store, gw)

	w := postJSON(t, r, "/v1/escrow/capture", gin.H{"requestId": req.ID, "actorId": requesterID})
	require.Equal(t, http.StatusOK, w.Code)

	var got request.Request
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, request.StatusCompleted, got.Status)
}

func TestCaptureHandlerForbidden(t *testing.T) {
	r, coord, store, gw := newEscrowRouter(t)
	req, _ := escrowRequest(t, coord, store, gw)

	w := postJSON(t, r, "/v1/escrow/capture", gin.H{"requestId": req.ID, "actorId": providerID})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCancelHandlerNotFound(t *testing.T) {
	r, _, _, _ := newEscrowRouter(t)

	w := postJSON(t, r, "/v1/escrow/cancel", gin.H{
		"requestId": "req_000000000000000000000099", "actorId": requesterID,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
