package checker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

type tcpChecker struct{}

func (c *tcpChecker) Probe(ctx context.Context, req Request) Result {
	addr := fmt.Sprintf("127.0.0.1:%d", req.Port)
	start := time.Now()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	elapsed := time.Since(start)
	if err != nil {
		if isTimeout(err) {
			return Result{503, fmt.Sprintf("Connection timed out after %.2fs", elapsed.Seconds())}
		}
		return Result{503, fmt.Sprintf("Unexpected error %v after %.2fs", err, elapsed.Seconds())}
	}
	conn.Close()
	return Result{200, fmt.Sprintf("Connected in %.2fs", elapsed.Seconds())}
}

// isTimeout reports whether err is a deadline expiry, from either the check's
// context or the socket itself.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
