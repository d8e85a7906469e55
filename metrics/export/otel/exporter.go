package otel

import (
	"context"
	"errors"
	"fmt"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// observeFunc reports one instrument from a snapshot taken for the current
// collection cycle.
type observeFunc func(o metric.Observer, snap goSession.MetricsSnapshot, auditDropped uint64)

// Exporter registers observable instruments for every engine metric and
// reads one snapshot per collection cycle.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	observers    []observeFunc
}

// NewExporter registers engine metrics on meter.
func NewExporter(meter metric.Meter, engine *goSession.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource registers the metrics of any source on meter.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	r := &registrar{meter: meter}
	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		r.counter(def.Name, def.Help, func(s goSession.MetricsSnapshot, _ uint64) uint64 { return s.Counters[id] })
	}
	les := make([]metric.ObserveOption, len(internaldefs.HistogramBounds))
	for i, le := range internaldefs.HistogramBounds {
		les[i] = metric.WithAttributes(attribute.String("le", le))
	}
	for _, def := range internaldefs.HistogramDefs {
		r.histogram(def.Name, def.ID, les)
	}
	r.counter(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp,
		func(_ goSession.MetricsSnapshot, dropped uint64) uint64 { return dropped })
	if r.err != nil {
		return nil, r.err
	}

	exporter := &Exporter{source: source, observers: r.observers}
	registration, err := meter.RegisterCallback(exporter.observe, r.observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	exporter.registration = registration
	return exporter, nil
}

// registrar creates instruments and records how to observe each one. The
// first creation error stops further registration.
type registrar struct {
	meter       metric.Meter
	observables []metric.Observable
	observers   []observeFunc
	err         error
}

func (r *registrar) counter(name, help string, value func(goSession.MetricsSnapshot, uint64) uint64) {
	if r.err != nil {
		return
	}
	ins, err := r.meter.Int64ObservableCounter(name, metric.WithDescription(help))
	if err != nil {
		r.err = fmt.Errorf("create observable counter %s: %w", name, err)
		return
	}
	r.observables = append(r.observables, ins)
	r.observers = append(r.observers, func(o metric.Observer, s goSession.MetricsSnapshot, dropped uint64) {
		o.ObserveInt64(ins, int64(value(s, dropped)))
	})
}

// histogram publishes cumulative bucket counts as one gauge with an "le"
// attribute per bucket, plus a sample count gauge.
func (r *registrar) histogram(name string, id goSession.MetricID, les []metric.ObserveOption) {
	if r.err != nil {
		return
	}
	buckets, err := r.meter.Int64ObservableGauge(name+"_bucket", metric.WithDescription("Cumulative histogram bucket count."))
	if err != nil {
		r.err = fmt.Errorf("create histogram bucket gauge %s_bucket: %w", name, err)
		return
	}
	count, err := r.meter.Int64ObservableGauge(name+"_count", metric.WithDescription("Histogram total sample count."))
	if err != nil {
		r.err = fmt.Errorf("create histogram count gauge %s_count: %w", name, err)
		return
	}
	r.observables = append(r.observables, buckets, count)
	r.observers = append(r.observers, func(o metric.Observer, s goSession.MetricsSnapshot, _ uint64) {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(s.Histograms[id]))
		for i, v := range cumulative {
			o.ObserveInt64(buckets, int64(v), les[i])
		}
		o.ObserveInt64(count, int64(cumulative[len(cumulative)-1]))
	})
}

func (e *Exporter) observe(_ context.Context, observer metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	dropped := e.source.AuditDropped()
	for _, observe := range e.observers {
		observe(observer, snap, dropped)
	}
	return nil
}

// Close unregisters the callback. Instruments stay registered on the meter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
