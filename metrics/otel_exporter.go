package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/marcelsud/webhook-inspector/webhook"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter records capture and listing metrics with OpenTelemetry and
// exposes them in Prometheus format. It is a webhook.Observer.
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector
	registry      *promclient.Registry

	// OTel meters and instruments
	meter        metric.Meter
	captures     metric.Int64Counter
	bodySize     metric.Int64Histogram
	listings     metric.Int64Counter
	recordsGauge metric.Int64ObservableGauge
}

// NewOTelExporter creates an exporter writing to its own Prometheus registry
func NewOTelExporter(collector Collector, registry *promclient.Registry) (*OTelExporter, error) {
	if registry == nil {
		registry = promclient.NewRegistry()
	}

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(
		"webhook-inspector",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		registry:      registry,
		meter:         meter,
	}

	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	oe.captures, err = oe.meter.Int64Counter(
		"webhook.captures",
		metric.WithDescription("Number of captured webhooks"),
		metric.WithUnit("{webhooks}"),
	)
	if err != nil {
		return fmt.Errorf("creating captures counter: %w", err)
	}

	oe.bodySize, err = oe.meter.Int64Histogram(
		"webhook.capture.body.size",
		metric.WithDescription("Size of stored capture bodies"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(0, 256, 1024, 4096, 16384, 65536, 262144, 1048576),
	)
	if err != nil {
		return fmt.Errorf("creating body size histogram: %w", err)
	}

	oe.listings, err = oe.meter.Int64Counter(
		"webhook.listings",
		metric.WithDescription("Number of listing pages served"),
		metric.WithUnit("{pages}"),
	)
	if err != nil {
		return fmt.Errorf("creating listings counter: %w", err)
	}

	if oe.collector != nil {
		oe.recordsGauge, err = oe.meter.Int64ObservableGauge(
			"webhook.records",
			metric.WithDescription("Number of stored webhooks"),
			metric.WithUnit("{webhooks}"),
			metric.WithInt64Callback(oe.observeRecords),
		)
		if err != nil {
			return fmt.Errorf("creating records gauge: %w", err)
		}
	}

	return nil
}

// observeRecords is a callback that reports the store size on scrape
func (oe *OTelExporter) observeRecords(ctx context.Context, observer metric.Int64Observer) error {
	n, err := oe.collector.GetRecordCount(ctx)
	if err != nil {
		return err
	}
	observer.Observe(n)
	return nil
}

// Captured counts one stored capture
func (oe *OTelExporter) Captured(ctx context.Context, wh webhook.Webhook) {
	oe.captures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.request.method", wh.Method),
	))
	var size int64
	if wh.ContentLength != nil {
		size = *wh.ContentLength
	}
	oe.bodySize.Record(ctx, size)
}

// Listed counts one served listing page
func (oe *OTelExporter) Listed(ctx context.Context, page webhook.Page) {
	oe.listings.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("page.has_more", page.HasMore),
	))
}

// Handler serves Prometheus-formatted metrics from the exporter's registry
func (oe *OTelExporter) Handler() http.Handler {
	return promhttp.HandlerFor(oe.registry, promhttp.HandlerOpts{})
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
