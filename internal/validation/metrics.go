package validation

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/restoration-monitor/polyvalidate/internal/geometry"
)

const (
	metricPrefix = "polyvalidate_"

	methodPolygon  = "polygon"
	methodPolygons = "polygons"
	methodGeometry = "geometry"

	outcomeValid        = "valid"
	outcomeInvalid      = "invalid"
	outcomeNotFound     = "not_found"
	outcomeNotSupported = "not_supported"
	outcomeError        = "error"
	outcomeUnevaluated  = "unevaluated"
)

var (
	registerOnce sync.Once

	validationsTotal   *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
)

// RegisterMetrics creates the validator collectors and registers them with
// reg. Only the first call has an effect; until then observations are dropped.
func RegisterMetrics(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		validationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "validations_total",
				Help: "Total polygon validations by kind, method and outcome",
			},
			[]string{"kind", "method", "outcome"},
		)
		validationDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "validation_duration_seconds",
				Help:    "Validator call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "method"},
		)
		reg.MustRegister(validationsTotal, validationDuration)
	})
}

func observe(kind Kind, method string, start time.Time, outcomes ...string) {
	if validationsTotal == nil || validationDuration == nil {
		return
	}
	validationDuration.WithLabelValues(string(kind), method).Observe(time.Since(start).Seconds())
	for _, outcome := range outcomes {
		validationsTotal.WithLabelValues(string(kind), method, outcome).Inc()
	}
}

func outcomeOf(valid bool, err error) string {
	switch {
	case err == nil && valid:
		return outcomeValid
	case err == nil:
		return outcomeInvalid
	case errors.Is(err, ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, ErrNotSupported):
		return outcomeNotSupported
	default:
		return outcomeError
	}
}

// resultOutcome classifies a completed call, separating geometry that could
// not be checked from a plain invalid result.
func resultOutcome(valid bool, extra any, err error) string {
	if err == nil {
		switch extra.(type) {
		case ErrorInfo:
			return outcomeNotFound
		case GeometryError:
			return outcomeUnevaluated
		}
	}
	return outcomeOf(valid, err)
}

// instrumented records metrics around a validator and logs store failures.
// geo is nil when the wrapped validator has no geometry mode.
type instrumented struct {
	kind  Kind
	inner Validator
	geo   GeometryValidator
}

func instrument(kind Kind, v Validator) *instrumented {
	geo, _ := v.(GeometryValidator)
	return &instrumented{kind: kind, inner: v, geo: geo}
}

func (i *instrumented) ValidatePolygon(ctx context.Context, id uuid.UUID) (Result, error) {
	start := time.Now()
	res, err := i.inner.ValidatePolygon(ctx, id)
	outcome := resultOutcome(res.Valid, res.ExtraInfo, err)
	i.logFailure(methodPolygon, outcome, err)
	observe(i.kind, methodPolygon, start, outcome)
	return res, err
}

func (i *instrumented) ValidatePolygons(ctx context.Context, ids []uuid.UUID) ([]PolygonResult, error) {
	start := time.Now()
	results, err := i.inner.ValidatePolygons(ctx, ids)
	if err != nil {
		outcome := outcomeOf(false, err)
		i.logFailure(methodPolygons, outcome, err)
		observe(i.kind, methodPolygons, start, outcome)
		return nil, err
	}

	outcomes := make([]string, 0, len(results))
	for _, r := range results {
		outcomes = append(outcomes, resultOutcome(r.Valid, r.ExtraInfo, nil))
	}
	observe(i.kind, methodPolygons, start, outcomes...)
	return results, nil
}

func (i *instrumented) ValidateGeometry(ctx context.Context, feature geometry.Feature) (Result, error) {
	if i.geo == nil {
		return Result{}, ErrNotSupported
	}
	start := time.Now()
	res, err := i.geo.ValidateGeometry(ctx, feature)
	outcome := resultOutcome(res.Valid, res.ExtraInfo, err)
	i.logFailure(methodGeometry, outcome, err)
	observe(i.kind, methodGeometry, start, outcome)
	return res, err
}

func (i *instrumented) logFailure(method, outcome string, err error) {
	if outcome == outcomeError {
		log.Printf("[validation] %s %s failed: %v", i.kind, method, err)
	}
}
