package checker_test

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/hazz-dev/healthd/internal/checker"
	"github.com/hazz-dev/healthd/internal/config"
)

// smtpServer runs a scripted SMTP endpoint: it sends greeting, waits for one
// line from the client, then answers with quitReply. Empty quitReply closes
// the connection instead of answering.
func smtpServer(t *testing.T, greeting, quitReply string) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				if _, err := conn.Write([]byte(greeting)); err != nil {
					return
				}
				if _, err := bufio.NewReader(conn).ReadString('\n'); err != nil {
					return
				}
				if quitReply != "" {
					conn.Write([]byte(quitReply))
				}
			}(conn)
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln
}

func smtpCheck(t *testing.T, ln net.Listener, extras ...func(*config.Config)) checker.Result {
	t.Helper()
	d := makeDispatcher(t, nil, extras...)
	return d.Check(context.Background(), checker.Request{
		Service:  "test-smtp",
		Port:     listenerPort(t, ln),
		Protocol: checker.ProtocolSMTP,
	})
}

func TestSMTPChecker_CleanQuit(t *testing.T) {
	ln := smtpServer(t, "220 ok\r\n", "221 bye\r\n")

	result := smtpCheck(t, ln)
	if result.Code != 200 {
		t.Errorf("expected 200, got %d: %s", result.Code, result.Reason)
	}
	if !strings.HasPrefix(result.Reason, "Connected in ") {
		t.Errorf("expected elapsed time in reason, got %q", result.Reason)
	}
}

func TestSMTPChecker_UnexpectedQuitResponse(t *testing.T) {
	ln := smtpServer(t, "220 ok\r\n", "500 error\r\n")

	result := smtpCheck(t, ln)
	if result.Code != 503 {
		t.Errorf("expected 503, got %d: %s", result.Code, result.Reason)
	}
	want := `Got unexpected QUIT response "500 error\r\n"`
	if result.Reason != want {
		t.Errorf("expected %q, got %q", want, result.Reason)
	}
}

func TestSMTPChecker_PeerClosesConnection(t *testing.T) {
	ln := smtpServer(t, "220 ok\r\n", "")

	result := smtpCheck(t, ln)
	if result.Code != 503 {
		t.Errorf("expected 503, got %d: %s", result.Code, result.Reason)
	}
	if result.Reason != "Peer unexpectedly closed connection" {
		t.Errorf("expected peer-closed reason, got %q", result.Reason)
	}
}

func TestSMTPChecker_GreetingTimeout(t *testing.T) {
	// A server that accepts but never greets.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	d := makeDispatcher(t, nil, func(c *config.Config) {
		c.Timeout = config.Duration{Duration: 100 * time.Millisecond}
	})
	start := time.Now()
	result := d.Check(context.Background(), checker.Request{
		Service:  "test-smtp",
		Port:     listenerPort(t, ln),
		Protocol: checker.ProtocolSMTP,
	})

	if result.Code != 503 {
		t.Errorf("expected 503 on timeout, got %d: %s", result.Code, result.Reason)
	}
	if !strings.HasPrefix(result.Reason, "Connection timed out after ") {
		t.Errorf("expected timeout reason, got %q", result.Reason)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("check took %v, expected completion near the 100ms budget", elapsed)
	}
}
