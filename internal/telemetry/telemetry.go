// Package telemetry exposes simulation metrics through OpenTelemetry.
// Instruments come from the global meter provider, which is a no-op until an
// exporter is configured.
package telemetry

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/cxd309/traffic-sim/internal/telemetry"

// Meter returns the meter for simulation instruments.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics records tick timing and vehicle outcomes. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	ticks        metric.Int64Counter
	tickDuration metric.Float64Histogram
	spawned      metric.Int64Counter
	removed      metric.Int64Counter
	deadlocks    metric.Int64Counter
	liveGauge    metric.Int64ObservableGauge

	live atomic.Int64
}

// New creates the instruments on m.
func New(m metric.Meter) (*Metrics, error) {
	t := &Metrics{}
	var err error

	t.ticks, err = m.Int64Counter(
		"sim.ticks",
		metric.WithDescription("Total simulation ticks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}

	t.tickDuration, err = m.Float64Histogram(
		"sim.tick.duration",
		metric.WithDescription("Wall time spent in one tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick duration histogram: %w", err)
	}

	t.spawned, err = m.Int64Counter(
		"sim.vehicles.spawned",
		metric.WithDescription("Vehicles placed on the network"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating spawned counter: %w", err)
	}

	t.removed, err = m.Int64Counter(
		"sim.vehicles.removed",
		metric.WithDescription("Vehicles taken off the network, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating removed counter: %w", err)
	}

	t.deadlocks, err = m.Int64Counter(
		"sim.deadlocks",
		metric.WithDescription("Deadlocks detected at intersections"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating deadlock counter: %w", err)
	}

	t.liveGauge, err = m.Int64ObservableGauge(
		"sim.vehicles.live",
		metric.WithDescription("Vehicles currently on the network"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating live gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(t.liveGauge, t.live.Load())
			return nil
		},
		t.liveGauge,
	)
	if err != nil {
		return nil, fmt.Errorf("registering live gauge callback: %w", err)
	}

	return t, nil
}

// Tick records one completed tick.
func (t *Metrics) Tick(ctx context.Context, d time.Duration, live int) {
	if t == nil {
		return
	}
	t.ticks.Add(ctx, 1)
	t.tickDuration.Record(ctx, float64(d.Microseconds())/1000)
	t.live.Store(int64(live))
}

// Spawned records a vehicle entering the network.
func (t *Metrics) Spawned(ctx context.Context) {
	if t == nil {
		return
	}
	t.spawned.Add(ctx, 1)
}

// Removed records a vehicle leaving the network.
func (t *Metrics) Removed(ctx context.Context, reason string) {
	if t == nil {
		return
	}
	t.removed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// Deadlock records a deadlock at an intersection.
func (t *Metrics) Deadlock(ctx context.Context, intersection string) {
	if t == nil {
		return
	}
	t.deadlocks.Add(ctx, 1, metric.WithAttributes(attribute.String("intersection", intersection)))
}

// Live returns the vehicle count from the last recorded tick.
func (t *Metrics) Live() int64 {
	if t == nil {
		return 0
	}
	return t.live.Load()
}
