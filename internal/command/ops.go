package command

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"poke/internal/pkg/telemetry"
)

// cmdHealth summarizes what the projection knows about the endpoint.
func (e *Engine) cmdHealth(_ string) Action {
	ep := e.model.Endpoint
	if !ep.Connected {
		return notifyErr("health: disconnected")
	}

	sync := "synced"
	if ep.Syncing {
		sync = fmt.Sprintf("syncing %d/%d", ep.SyncCurrent, ep.SyncTarget)
	}
	return notifyInfo(fmt.Sprintf("health: %s | %s | peers %d | rpc %dms | head #%d",
		ep.NodeKind, sync, ep.PeerCount, ep.LatencyMillis, ep.Head))
}

// cmdPeers reports the last observed peer count.
func (e *Engine) cmdPeers(_ string) Action {
	return notifyInfo(fmt.Sprintf("peers: %d", e.model.Endpoint.PeerCount))
}

// cmdRpcStats collects the in-process request metrics.
func (e *Engine) cmdRpcStats(_ string) Action {
	stats := telemetry.Collect(context.Background())
	if stats.TotalCalls == 0 {
		return notifyInfo("rpc-stats: no calls yet")
	}

	errorRate := float64(stats.FailedCalls) / float64(stats.TotalCalls) * 100
	return notifyInfo(fmt.Sprintf("rpc-stats: %d calls | avg %s | max %s | errors %.1f%%",
		stats.TotalCalls, stats.AvgLatency, stats.MaxLatency, errorRate))
}

// logTailLines bounds how many trailing lines :logs keeps while scanning the
// whole session log; only the last of them is reported.
const logTailLines = 5

// cmdLogs reports the tail of the session log file.
func (e *Engine) cmdLogs(_ string) Action {
	f, err := os.Open(e.logPath)
	if err != nil {
		return notifyErr("logs: " + err.Error())
	}
	defer f.Close()

	var tail []string
	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		count++
		tail = append(tail, scanner.Text())
		if len(tail) > logTailLines {
			tail = tail[1:]
		}
	}

	if count == 0 {
		return notifyInfo("logs: empty")
	}
	return notifyInfo(fmt.Sprintf("logs: %d entries, last: %s", count, tail[len(tail)-1]))
}
