package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestHandler(t *testing.T) {
	counter := promauto.NewCounter(prometheus.CounterOpts{
		Name: "cotd_metrics_handler_test_total",
		Help: "Counter used by the handler test",
	})
	counter.Add(3)

	server := httptest.NewServer(Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Read body: %v", err)
	}

	if !strings.Contains(string(body), "cotd_metrics_handler_test_total 3") {
		t.Errorf("Expected registered counter in output, got:\n%s", body)
	}
}
