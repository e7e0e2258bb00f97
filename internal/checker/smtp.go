package checker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// smtpChecker connects, reads the greeting, sends QUIT and expects a 221 reply.
type smtpChecker struct{}

func (c *smtpChecker) Probe(ctx context.Context, req Request) Result {
	addr := fmt.Sprintf("127.0.0.1:%d", req.Port)
	start := time.Now()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return smtpFailure(err, start)
	}
	defer conn.Close()

	// The context deadline covers the whole handshake, not just the connect.
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	reader := bufio.NewReader(conn)
	if _, err := reader.ReadString('\n'); err != nil {
		return smtpFailure(err, start)
	}
	if _, err := conn.Write([]byte("QUIT\r\n")); err != nil {
		return smtpFailure(err, start)
	}
	reply, err := reader.ReadString('\n')
	if err != nil {
		return smtpFailure(err, start)
	}
	if fields := strings.Fields(reply); len(fields) == 0 || fields[0] != "221" {
		return Result{503, fmt.Sprintf("Got unexpected QUIT response %q", reply)}
	}
	return Result{200, fmt.Sprintf("Connected in %.2fs", time.Since(start).Seconds())}
}

func smtpFailure(err error, start time.Time) Result {
	elapsed := time.Since(start).Seconds()
	switch {
	case isTimeout(err):
		return Result{503, fmt.Sprintf("Connection timed out after %.2fs", elapsed)}
	case errors.Is(err, io.EOF):
		return Result{503, "Peer unexpectedly closed connection"}
	default:
		return Result{503, fmt.Sprintf("Unexpected socket error %v after %.2fs", err, elapsed)}
	}
}
