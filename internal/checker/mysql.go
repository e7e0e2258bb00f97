package checker

import (
	"context"
	"fmt"
	"time"
)

// HandshakeClient is the opaque MySQL protocol collaborator: one handshake
// attempt followed by a clean shutdown. The wire encoding lives behind it.
type HandshakeClient interface {
	Connect(ctx context.Context, username, password string) (ok bool, detail string, err error)
	Quit() error
}

// MySQLDialer constructs a HandshakeClient for a local port.
type MySQLDialer func(port uint16) HandshakeClient

type mysqlChecker struct {
	username string
	password string
	dial     MySQLDialer
}

func newMySQLChecker(username, password string, dial MySQLDialer) *mysqlChecker {
	return &mysqlChecker{username: username, password: password, dial: dial}
}

func (c *mysqlChecker) Probe(ctx context.Context, req Request) Result {
	if c.username == "" || c.password == "" {
		return Result{500, "No MySQL username/password in config file"}
	}

	start := time.Now()
	client := c.dial(req.Port)
	defer client.Quit()

	ok, detail, err := client.Connect(ctx, c.username, c.password)
	if err != nil && isTimeout(err) {
		return Result{503, fmt.Sprintf("MySQL timed out after %.2fs", time.Since(start).Seconds())}
	}
	if err != nil {
		return Result{500, fmt.Sprintf("MySQL sez %v", err)}
	}
	if !ok {
		return Result{500, fmt.Sprintf("MySQL sez %s", detail)}
	}
	return Result{200, fmt.Sprintf("MySQL connect response: %s", detail)}
}
