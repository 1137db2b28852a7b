// Package telemetry maintains in-process RPC metrics on the OpenTelemetry
// metric SDK. Nothing is exported out of the process: the SDK is wired to a
// ManualReader whose snapshots back the :rpc-stats command.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var (
	initOnce sync.Once

	reader *sdkmetric.ManualReader

	rpcCalls   metric.Int64Counter
	rpcErrors  metric.Int64Counter
	rpcLatency metric.Float64Histogram
)

// Init builds the meter provider and instruments. Safe to call more than
// once; only the first call has effect.
func Init() {
	initOnce.Do(func() {
		reader = sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		meter := provider.Meter("poke/rpc")

		rpcCalls, _ = meter.Int64Counter("rpc.calls",
			metric.WithDescription("JSON-RPC requests issued"))
		rpcErrors, _ = meter.Int64Counter("rpc.errors",
			metric.WithDescription("JSON-RPC requests that failed"))
		rpcLatency, _ = meter.Float64Histogram("rpc.latency",
			metric.WithUnit("ms"),
			metric.WithDescription("JSON-RPC round-trip latency"))
	})
}

// RecordCall registers one completed RPC round trip.
func RecordCall(ctx context.Context, method string, elapsed time.Duration, failed bool) {
	if rpcCalls == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("rpc.method", method))
	rpcCalls.Add(ctx, 1, attrs)
	if failed {
		rpcErrors.Add(ctx, 1, attrs)
	}
	rpcLatency.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

// Stats is the aggregate view :rpc-stats renders.
type Stats struct {
	TotalCalls  uint64
	FailedCalls uint64
	AvgLatency  time.Duration
	MaxLatency  time.Duration
}

// Collect drains the manual reader and folds the instrument data into Stats.
func Collect(ctx context.Context) Stats {
	var stats Stats
	if reader == nil {
		return stats
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return stats
	}

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch m.Name {
			case "rpc.calls":
				if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
					for _, dp := range sum.DataPoints {
						stats.TotalCalls += uint64(dp.Value)
					}
				}
			case "rpc.errors":
				if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
					for _, dp := range sum.DataPoints {
						stats.FailedCalls += uint64(dp.Value)
					}
				}
			case "rpc.latency":
				if hist, ok := m.Data.(metricdata.Histogram[float64]); ok {
					var total float64
					var count uint64
					for _, dp := range hist.DataPoints {
						total += dp.Sum
						count += dp.Count
						if max, ok := dp.Max.Value(); ok {
							if d := time.Duration(max) * time.Millisecond; d > stats.MaxLatency {
								stats.MaxLatency = d
							}
						}
					}
					if count > 0 {
						stats.AvgLatency = time.Duration(total/float64(count)) * time.Millisecond
					}
				}
			}
		}
	}

	return stats
}
