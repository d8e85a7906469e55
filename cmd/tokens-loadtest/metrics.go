package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	goSession "github.com/MrEthical07/goSession"
	otelexport "github.com/MrEthical07/goSession/metrics/export/otel"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const (
	metricsPrometheus = "prometheus"
	metricsOTel       = "otel"
)

func printMetrics(ctx context.Context, w io.Writer, format string, engine *goSession.Engine) error {
	if format == metricsOTel {
		return printOTel(ctx, w, engine)
	}
	_, err := io.WriteString(w, promexport.NewExporter(engine).Render())
	return err
}

// printOTel collects one cycle through an OpenTelemetry manual reader and
// prints every data point as "name{attrs} value".
func printOTel(ctx context.Context, w io.Writer, engine *goSession.Engine) error {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	exporter, err := otelexport.NewExporter(provider.Meter("gosession-loadtest"), engine)
	if err != nil {
		return err
	}
	defer func() { _ = exporter.Close() }()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return err
	}

	var lines []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					lines = append(lines, formatPoint(m.Name, dp))
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					lines = append(lines, formatPoint(m.Name, dp))
				}
			}
		}
	}
	sort.Strings(lines)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatPoint(name string, dp metricdata.DataPoint[int64]) string {
	if dp.Attributes.Len() == 0 {
		return fmt.Sprintf("%s %d", name, dp.Value)
	}
	return fmt.Sprintf("%s{%s} %d", name, dp.Attributes.Encoded(attribute.DefaultEncoder()), dp.Value)
}
