package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Dicklesworthstone/hostinfo/internal/model"
)

func TestObserve(t *testing.T) {
	before := testutil.ToFloat64(SamplesTotal)
	Observe(model.Snapshot{
		CPU:    model.CPU{UsagePercent: 25, FrequencyMHz: 2500},
		Memory: model.Memory{RAMUsedPercent: 75, SwapUsedPercent: 50},
		Disk: model.Disk{
			UsedPercent:  54.2,
			ReadHistory:  model.History[uint64]{{Timestamp: 1, Value: 10}, {Timestamp: 2, Value: 12}},
			WriteHistory: model.History[uint64]{{Timestamp: 2, Value: 7}},
		},
		OS: model.OS{UptimeDays: 3},
	})

	if got := testutil.ToFloat64(SamplesTotal) - before; got != 1 {
		t.Errorf("samples delta = %v, want 1", got)
	}
	checks := map[string]struct{ got, want float64 }{
		"cpu":   {testutil.ToFloat64(CPUUsage), 25},
		"freq":  {testutil.ToFloat64(CPUFrequency), 2500},
		"ram":   {testutil.ToFloat64(RAMUsage), 75},
		"swap":  {testutil.ToFloat64(SwapUsage), 50},
		"disk":  {testutil.ToFloat64(DiskUsage), 54.2},
		"read":  {testutil.ToFloat64(DiskIO.WithLabelValues("read")), 12},
		"write": {testutil.ToFloat64(DiskIO.WithLabelValues("write")), 7},
		"up":    {testutil.ToFloat64(UptimeDays), 3},
	}
	for name, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", name, c.got, c.want)
		}
	}
}

func TestRestarted(t *testing.T) {
	before := testutil.ToFloat64(RestartsTotal.WithLabelValues("sampler"))
	Restarted("sampler", errors.New("x"))
	if got := testutil.ToFloat64(RestartsTotal.WithLabelValues("sampler")) - before; got != 1 {
		t.Errorf("restarts delta = %v, want 1", got)
	}
}

func TestMiddlewareLabelsByRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Middleware)
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := TotalRequests.WithLabelValues(http.MethodGet, "/items/{id}", "418")
	before := testutil.ToFloat64(counter)

	for _, p := range []string{"/items/1", "/items/2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		if rec.Code != http.StatusTeapot {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("requests delta = %v, want 2", got)
	}
}
