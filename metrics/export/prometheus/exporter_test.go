package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot goSession.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goSession.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestCollectorPassesLint(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{snapshot: goSession.MetricsSnapshot{}})
	problems, err := testutil.CollectAndLint(c)
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(problems) != 0 {
		t.Fatalf("lint problems: %+v", problems)
	}
}

func TestCollectorCounters(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{goSession.MetricLoginSuccess: 7},
		},
		dropped: 2,
	})

	expected := `
# HELP gosession_login_success_total Successful logins.
# TYPE gosession_login_success_total counter
gosession_login_success_total 7
# HELP gosession_audit_dropped_total Audit events dropped due to dispatcher backpressure.
# TYPE gosession_audit_dropped_total counter
gosession_audit_dropped_total 2
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"gosession_login_success_total", "gosession_audit_dropped_total"); err != nil {
		t.Fatal(err)
	}

	// Histograms are omitted until latency recording is enabled.
	want := len(internaldefs.CounterDefs) + 1
	if got := testutil.CollectAndCount(c); got != want {
		t.Fatalf("expected %d series, got %d", want, got)
	}
}

func TestHandlerServesHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricRefreshLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
	})

	srv := httptest.NewServer(Handler(c))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	out := string(body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, line := range []string{
		`gosession_refresh_latency_seconds_bucket{le="0.005"} 1`,
		`gosession_refresh_latency_seconds_bucket{le="+Inf"} 36`,
		`gosession_refresh_latency_seconds_count 36`,
		`go_goroutines`,
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("expected %q in output, got:\n%s", line, out)
		}
	}
}
