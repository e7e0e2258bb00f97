package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazz-dev/healthd/internal/checker"
	"github.com/hazz-dev/healthd/internal/server"
)

// mockRunner records the last request and returns a scripted result.
type mockRunner struct {
	last   checker.Request
	result checker.Result
}

func (m *mockRunner) Check(_ context.Context, req checker.Request) checker.Result {
	m.last = req
	return m.result
}

func newTestServer(t *testing.T, result checker.Result) (*mockRunner, *httptest.Server) {
	t.Helper()
	runner := &mockRunner{result: result}
	srv := httptest.NewServer(server.New(runner, nil).Router())
	t.Cleanup(srv.Close)
	return runner, srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestServer_CheckEndpoint(t *testing.T) {
	runner, srv := newTestServer(t, checker.Result{Code: 200, Reason: "Connected in 0.01s"})

	resp, body := get(t, srv.URL+"/tcp/api/8080")
	if resp.StatusCode != 200 {
		t.Errorf("expected the result code as HTTP status, got %d", resp.StatusCode)
	}
	if strings.TrimSpace(body) != "Connected in 0.01s" {
		t.Errorf("expected the reason as body, got %q", body)
	}

	if runner.last.Protocol != checker.ProtocolTCP {
		t.Errorf("expected tcp protocol, got %q", runner.last.Protocol)
	}
	if runner.last.Service != "api" || runner.last.Port != 8080 {
		t.Errorf("unexpected request %+v", runner.last)
	}
}

func TestServer_CheckEndpointDegraded(t *testing.T) {
	_, srv := newTestServer(t, checker.Result{Code: 503, Reason: "Connection timed out after 10.00s"})

	resp, body := get(t, srv.URL+"/http/api/8080/health")
	if resp.StatusCode != 503 {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "timed out") {
		t.Errorf("expected the reason in the body, got %q", body)
	}
}

func TestServer_CheckPathAndQueryForwarded(t *testing.T) {
	runner, srv := newTestServer(t, checker.Result{Code: 200})

	get(t, srv.URL+"/https/api/8443/deep/health?verbose=1")
	if runner.last.Protocol != checker.ProtocolHTTPS {
		t.Errorf("expected https protocol, got %q", runner.last.Protocol)
	}
	if runner.last.Path != "deep/health" {
		t.Errorf("expected wildcard path forwarded, got %q", runner.last.Path)
	}
	if runner.last.Query != "verbose=1" {
		t.Errorf("expected query forwarded, got %q", runner.last.Query)
	}
}

func TestServer_CheckHeadersForwarded(t *testing.T) {
	runner, srv := newTestServer(t, checker.Result{Code: 200})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/http/api/8080/health", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if runner.last.Headers["X-Forwarded-For"] != "10.0.0.1" {
		t.Errorf("expected inbound headers forwarded, got %v", runner.last.Headers)
	}
}

func TestServer_InvalidPort(t *testing.T) {
	_, srv := newTestServer(t, checker.Result{Code: 200})

	resp, _ := get(t, srv.URL+"/tcp/api/notaport")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for an unparseable port, got %d", resp.StatusCode)
	}
}

func TestServer_Status(t *testing.T) {
	_, srv := newTestServer(t, checker.Result{})

	resp, body := get(t, srv.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var status struct {
		Version string `json:"version"`
		Uptime  string `json:"uptime"`
	}
	if err := json.Unmarshal([]byte(body), &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.Version == "" || status.Uptime == "" {
		t.Errorf("expected version and uptime, got %+v", status)
	}
}

func TestServer_Metrics(t *testing.T) {
	_, srv := newTestServer(t, checker.Result{})

	resp, _ := get(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from /metrics, got %d", resp.StatusCode)
	}
}
