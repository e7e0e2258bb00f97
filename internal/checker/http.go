package checker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"

	"github.com/hazz-dev/healthd/internal/version"
)

type httpChecker struct {
	scheme            string
	serviceNameHeader string
	client            *http.Client
}

func newHTTPChecker(scheme, serviceNameHeader string) *httpChecker {
	return &httpChecker{
		scheme:            scheme,
		serviceNameHeader: serviceNameHeader,
		client: &http.Client{
			Transport: &http.Transport{
				// The target is co-located on this host; its certificate is
				// not expected to be valid for 127.0.0.1.
				TLSClientConfig:   &tls.Config{InsecureSkipVerify: true},
				DisableKeepAlives: true,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Report the redirect verbatim rather than chasing it.
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *httpChecker) Probe(ctx context.Context, req Request) Result {
	url := fmt.Sprintf("%s://127.0.0.1:%d%s", c.scheme, req.Port, req.Path)
	if req.Query != "" {
		url += "?" + req.Query
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{CodeUnhandled, fmt.Sprintf("Unhandled exception %v", err)}
	}
	httpReq.Header.Set("User-Agent", "healthd/"+version.Version)
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}
	if c.serviceNameHeader != "" {
		httpReq.Header.Set(c.serviceNameHeader, req.Service)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{CodeUnhandled, fmt.Sprintf("Unhandled exception %v", err)}
	}
	defer resp.Body.Close()

	// The upstream committed to a status code; pass it through with whatever
	// body made it across, even if the read is cut short.
	body, _ := io.ReadAll(resp.Body)
	return Result{resp.StatusCode, string(body)}
}
