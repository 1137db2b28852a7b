package transport

import (
	"context"
	"time"

	"poke/internal/pkg/telemetry"
)

// observeCall feeds the in-process RPC metrics behind :rpc-stats.
func observeCall(ctx context.Context, method string, elapsed time.Duration, err error) {
	telemetry.RecordCall(ctx, method, elapsed, err != nil)
}
