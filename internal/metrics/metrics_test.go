package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStatusBucket(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		if got := statusBucket(tt.code); got != tt.want {
			t.Errorf("statusBucket(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	body := w.Body.String()
	// Gauges are always exported, even at their default 0 value.
	for _, name := range []string{
		"lessonpay_active_websocket_clients",
		"lessonpay_db_open_connections",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected metrics output to contain %s", name)
		}
	}
}

func TestEscrowTransitionCounter(t *testing.T) {
	EscrowTransitionsTotal.WithLabelValues("initiate", "ok").Inc()
	EscrowTransitionsTotal.WithLabelValues("initiate", "ok").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	var found *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "lessonpay_escrow_transitions_total" {
			found = mf
			break
		}
	}
	if found == nil {
		t.Fatal("escrow transitions metric family not exported")
	}

	for _, m := range found.GetMetric() {
		labels := map[string]string{}
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		if labels["transition"] == "initiate" && labels["result"] == "ok" {
			if m.GetCounter().GetValue() < 2 {
				t.Errorf("expected at least 2 observations, got %v", m.GetCounter().GetValue())
			}
			return
		}
	}
	t.Error("initiate/ok counter not found")
}
