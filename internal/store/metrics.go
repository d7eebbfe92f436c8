package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts store operations.
	// Labels: backend, op (get, put, delete, keys, ping), result (success, not_found, error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "notesd",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of key-value store operations",
		},
		[]string{"backend", "op", "result"},
	)

	// OperationDuration tracks how long store operations take.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "notesd",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of key-value store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

// instrumented records metrics around every call to the wrapped Store.
type instrumented struct {
	Store
}

// Instrument wraps s with Prometheus metrics. Wrapping twice is a no-op.
func Instrument(s Store) Store {
	if _, ok := s.(*instrumented); ok {
		return s
	}
	return &instrumented{Store: s}
}

// Unwrap returns the backend beneath the instrumentation.
func Unwrap(s Store) Store {
	if i, ok := s.(*instrumented); ok {
		return i.Store
	}
	return s
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	backend := i.Store.Name()
	OperationDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())

	result := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	OperationsTotal.WithLabelValues(backend, op, result).Inc()
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	v, err := i.Store.Get(ctx, key)
	i.observe("get", start, err)
	return v, err
}

func (i *instrumented) Put(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := i.Store.Put(ctx, key, value)
	i.observe("put", start, err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := i.Store.Delete(ctx, key)
	i.observe("delete", start, err)
	return err
}

func (i *instrumented) Keys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := i.Store.Keys(ctx)
	i.observe("keys", start, err)
	return keys, err
}

func (i *instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := i.Store.Ping(ctx)
	i.observe("ping", start, err)
	return err
}
