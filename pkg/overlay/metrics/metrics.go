// Package metrics formats a point-in-time snapshot of the overlay's
// routing state as a Prometheus text-exposition payload. It gives
// github.com/prometheus/common a real, non-overlapping home alongside
// logrus: gauges describing current state, not log lines describing
// events (see DESIGN.md and SPEC_FULL.md §3).
package metrics

import (
	"bytes"
	"fmt"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Snapshot is the small set of point-in-time counters the controller's
// `metrics` command exposes.
type Snapshot struct {
	DirectPeers   int
	RemotePeers   int
	PendingTotal  int
	ActiveWorkers int32
}

const namespace = "overlay_"

// Render formats snap as Prometheus text exposition, the same format
// expfmt.NewEncoder writes for a /metrics HTTP endpoint, here printed
// directly to the interactive console instead.
func Render(snap Snapshot) (string, error) {
	families := []*dto.MetricFamily{
		gaugeFamily(namespace+"direct_peers", "number of directly connected peers", float64(snap.DirectPeers)),
		gaugeFamily(namespace+"remote_peers", "number of peers reachable only via another peer", float64(snap.RemotePeers)),
		gaugeFamily(namespace+"pending_messages", "total buffered messages awaiting a route", float64(snap.PendingTotal)),
		gaugeFamily(namespace+"active_workers", "number of live connection workers", float64(snap.ActiveWorkers)),
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return "", fmt.Errorf("encode metric family %s: %w", family.GetName(), err)
		}
	}
	return buf.String(), nil
}

func gaugeFamily(name, help string, value float64) *dto.MetricFamily {
	gaugeType := dto.MetricType_GAUGE
	return &dto.MetricFamily{
		Name: strPtr(name),
		Help: strPtr(help),
		Type: &gaugeType,
		Metric: []*dto.Metric{
			{Gauge: &dto.Gauge{Value: f64Ptr(value)}},
		},
	}
}

func strPtr(s string) *string { return &s }
func f64Ptr(f float64) *float64 { return &f }
