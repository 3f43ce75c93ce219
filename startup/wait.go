package startup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"listings/utils"
)

// ErrWaitTimeout is returned when a bounded wait gives up
var ErrWaitTimeout = errors.New("timed out waiting for service")

// WaitForTCP blocks until addr accepts a TCP connection, trying once per
// interval. A zero timeout waits forever; only ctx can stop it then.
func WaitForTCP(ctx context.Context, name, addr string, interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}

	start := time.Now()
	dialer := &net.Dialer{Timeout: interval}
	attempts := 0

	for {
		attempts++
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			_ = conn.Close()
			utils.LogInfo(fmt.Sprintf("%s is available", name),
				"address", addr, "attempts", attempts, "waited", time.Since(start).Round(time.Millisecond))
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if timeout > 0 && time.Since(start)+interval > timeout {
			return fmt.Errorf("%w: %s at %s after %s: %v", ErrWaitTimeout, name, addr, timeout, err)
		}

		utils.LogInfo(fmt.Sprintf("Waiting for %s at %s...", name, addr), "attempt", attempts)
		utils.LogDebug("Dial failed", "service", name, "error", err)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
