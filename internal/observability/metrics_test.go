package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	logs "github.com/danmuck/xconn/internal/logging"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordRequest("MapWindow")
	RecordReply(true)
	RecordReply(false)
	RecordServerError("Window")
	RecordEvent("Expose")
	RecordHandshake("success")
	RecordRoundTrip("InternAtom", 3*time.Millisecond)

	logs.Logf("observability/metrics: registration idempotent and recording paths executed")
}

// gathered reads one sample from the default registry.
func gathered(t *testing.T, name string, label string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label != "" {
				found := false
				for _, lp := range m.GetLabel() {
					if lp.GetValue() == label {
						found = true
					}
				}
				if !found {
					continue
				}
			}
			if g := m.GetGauge(); g != nil {
				return g.GetValue()
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestQueueDepthGauge(t *testing.T) {
	SetQueueDepth(3)
	if got := gathered(t, "xconn_session_queued_packets", ""); got != 3 {
		t.Fatalf("queue depth=%v", got)
	}
	SetQueueDepth(0)
	if got := gathered(t, "xconn_session_queued_packets", ""); got != 0 {
		t.Fatalf("queue depth=%v", got)
	}
}

func TestEventCounterByName(t *testing.T) {
	RegisterMetrics()
	before := gathered(t, "xconn_protocol_events_total", "MapNotify")
	RecordEvent("MapNotify")
	RecordEvent("MapNotify")
	if got := gathered(t, "xconn_protocol_events_total", "MapNotify"); got != before+2 {
		t.Fatalf("MapNotify count=%v before=%v", got, before)
	}
}
