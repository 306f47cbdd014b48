package keys

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	keysMeterName        = "keyrelay.keys"
	keysTypeAttribute    = "keyrelay.keys.type"
	keysOutcomeAttribute = "keyrelay.keys.outcome"
)

type keyType string

const (
	keyTypeEC           keyType = "ec"
	keyTypePQ           keyType = "pq"
	keyTypePQLastResort keyType = "pq_last_resort"
	keyTypeECSigned     keyType = "ec_signed"
)

type metrics struct {
	meter  metric.Meter
	taken  metric.Int64Counter
	stored metric.Int64Counter
}

func initMetrics() (*metrics, error) {
	result := &metrics{}
	var errs error
	var err error

	result.meter = otel.Meter(keysMeterName)

	counterName := fmt.Sprintf("%s.taken", keysMeterName)
	if result.taken, err = result.meter.Int64Counter(
		counterName,
		metric.WithUnit("1"),
		metric.WithDescription("the number of pre-key take requests")); err != nil {
		errs = handleInitCounterError(errs, err, counterName)
		result.taken = noop.Int64Counter{}
	}

	counterName = fmt.Sprintf("%s.stored", keysMeterName)
	if result.stored, err = result.meter.Int64Counter(
		counterName,
		metric.WithUnit("1"),
		metric.WithDescription("the number of pre-keys written")); err != nil {
		errs = handleInitCounterError(errs, err, counterName)
		result.stored = noop.Int64Counter{}
	}

	return result, errs
}

func handleInitCounterError(errs error, err error, counterName string) error {
	return errors.Join(errs, fmt.Errorf("%q counter init failed; falling back to noop: %w", counterName, err))
}

func (m *metrics) Taken(ctx context.Context, typ keyType, hit bool) {
	outcome := "empty"
	if hit {
		outcome = "hit"
	}
	m.taken.Add(ctx, 1, metric.WithAttributes(
		attribute.String(keysTypeAttribute, string(typ)),
		attribute.String(keysOutcomeAttribute, outcome),
	))
}

func (m *metrics) Stored(ctx context.Context, typ keyType, n int) {
	if n == 0 {
		return
	}
	m.stored.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String(keysTypeAttribute, string(typ)),
	))
}
