package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes the billing instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	invoicesCreated    metric.Int64Counter
	invoicesUpdated    metric.Int64Counter
	invoicesVoided     metric.Int64Counter
	paymentsApplied    metric.Int64Counter
	paymentsRejected   metric.Int64Counter
	statementsBuilt    metric.Int64Counter
	statementDuration  metric.Float64Histogram
	statementCacheHits metric.Int64Counter
	rateLimitDenied    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "schoolbilling"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.invoicesCreated, "schoolbilling_invoices_created_total", "Invoices issued."},
		{&m.invoicesUpdated, "schoolbilling_invoices_updated_total", "Invoice amendments."},
		{&m.invoicesVoided, "schoolbilling_invoices_voided_total", "Invoices voided."},
		{&m.paymentsApplied, "schoolbilling_payments_applied_total", "Payments recorded against invoices."},
		{&m.paymentsRejected, "schoolbilling_payments_rejected_total", "Payments refused by validation."},
		{&m.statementsBuilt, "schoolbilling_statements_total", "Statements generated."},
		{&m.statementCacheHits, "schoolbilling_statement_cache_hits_total", "Statements served from cache."},
		{&m.rateLimitDenied, "schoolbilling_rate_limit_denied_total", "Requests refused by the rate limiter."},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
	}

	m.statementDuration, err = meter.Float64Histogram("schoolbilling_statement_duration_ms",
		metric.WithDescription("Statement build latency."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) RecordInvoiceCreated(ctx context.Context, currency string) {
	if m == nil {
		return
	}
	m.invoicesCreated.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("currency", strings.ToUpper(currency)),
	)...))
}

func (m *Metrics) RecordInvoiceUpdated(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.invoicesUpdated.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("status", status),
	)...))
}

func (m *Metrics) RecordInvoiceVoided(ctx context.Context, previousStatus string) {
	if m == nil {
		return
	}
	m.invoicesVoided.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("previous_status", previousStatus),
	)...))
}

func (m *Metrics) RecordPaymentApplied(ctx context.Context, method, resultingStatus string) {
	if m == nil {
		return
	}
	m.paymentsApplied.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("method", method),
		attribute.String("status", resultingStatus),
	)...))
}

func (m *Metrics) RecordPaymentRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.paymentsRejected.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("reason", reason),
	)...))
}

// RecordStatement observes one statement build. scope is "student" or "school".
func (m *Metrics) RecordStatement(ctx context.Context, scope string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("scope", scope))...)
	m.statementsBuilt.Add(ctx, 1, attrs)
	m.statementDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

func (m *Metrics) RecordStatementCacheHit(ctx context.Context, scope string) {
	if m == nil {
		return
	}
	m.statementCacheHits.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("scope", scope),
	)...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("endpoint", endpoint),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"currency":        {},
	"status":          {},
	"previous_status": {},
	"method":          {},
	"reason":          {},
	"scope":           {},
	"endpoint":        {},
}

// FilterAttributes strips labels outside the allow list so ids never become
// metric dimensions.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
