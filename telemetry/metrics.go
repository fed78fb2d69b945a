package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
)

const meterName = "github.com/dev-mohitbeniwal/echo/authz"

// UnknownPrivilege is the decision label for privileges no policy declares.
const UnknownPrivilege = "unknown"

// Metrics holds the instruments recorded by the policy cache and the
// decision path.
type Metrics struct {
	refreshCycles   metric.Int64Counter
	refreshDuration metric.Float64Histogram
	indexedPolicies metric.Int64Gauge
	decisions       metric.Int64Counter
	invalidations   metric.Int64Counter
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide instruments, created from the global
// meter provider on first use.
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.Meter(meterName))
		if err != nil {
			logger.Warn("Failed to create metric instruments, metrics disabled", zap.Error(err))
			m, _ = NewMetrics(noop.NewMeterProvider().Meter(meterName))
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.refreshCycles, err = meter.Int64Counter("authz.policy_cache.refresh.cycles",
		metric.WithDescription("Policy cache refresh cycles by outcome"))
	if err != nil {
		return nil, err
	}

	m.refreshDuration, err = meter.Float64Histogram("authz.policy_cache.refresh.duration",
		metric.WithDescription("Duration of policy cache refresh cycles"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	m.indexedPolicies, err = meter.Int64Gauge("authz.policy_cache.policies",
		metric.WithDescription("Policies in the published policy index"))
	if err != nil {
		return nil, err
	}

	m.decisions, err = meter.Int64Counter("authz.decisions",
		metric.WithDescription("Authorization decisions by privilege and outcome"))
	if err != nil {
		return nil, err
	}

	m.invalidations, err = meter.Int64Counter("authz.policy_cache.invalidations",
		metric.WithDescription("Out-of-cycle refresh requests"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRefresh records one finished refresh cycle. The policy gauge only
// moves when the cycle published a new index.
func (m *Metrics) RecordRefresh(ctx context.Context, status string, published bool, policies int, duration time.Duration) {
	m.refreshCycles.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.refreshDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attribute.String("status", status)))
	if published {
		m.indexedPolicies.Record(ctx, int64(policies))
	}
}

func (m *Metrics) RecordDecision(ctx context.Context, privilege string, decision string) {
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("privilege", privilege),
		attribute.String("decision", decision),
	))
}

func (m *Metrics) RecordInvalidation(ctx context.Context, source string) {
	m.invalidations.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}
