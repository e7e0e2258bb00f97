package checker

import (
	"fmt"
	"sort"
	"strings"
)

// Protocol names a supported check type.
type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
	ProtocolTCP   Protocol = "tcp"
	ProtocolMySQL Protocol = "mysql"
	ProtocolSMTP  Protocol = "smtp"
	ProtocolSpool Protocol = "spool"
)

// ParseProtocol maps a protocol name to a Protocol, reporting whether it is known.
func ParseProtocol(s string) (Protocol, bool) {
	switch p := Protocol(strings.ToLower(s)); p {
	case ProtocolHTTP, ProtocolHTTPS, ProtocolTCP, ProtocolMySQL, ProtocolSMTP, ProtocolSpool:
		return p, true
	default:
		return "", false
	}
}

// Request describes a single health check against 127.0.0.1:Port.
// Path, Query and Headers are only meaningful for the HTTP family;
// the Dispatcher normalizes them before dispatch.
type Request struct {
	Service  string
	Port     uint16
	Protocol Protocol
	Path     string
	Query    string
	Headers  map[string]string
}

// Result is the outcome of a check. Code follows HTTP conventions:
// 200 healthy, 5xx config/transport failures, 599 unclassified; HTTP-family
// checks pass upstream codes through verbatim.
type Result struct {
	Code   int
	Reason string
}

// CodeUnhandled marks failures no other classification fits.
const CodeUnhandled = 599

// cacheKey derives the memoization identity of a normalized request.
// Headers must already be reduced to the configured allow-list.
func (r Request) cacheKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|%s|%s", r.Protocol, r.Service, r.Port, r.Path, r.Query)
	if len(r.Headers) > 0 {
		names := make([]string, 0, len(r.Headers))
		for name := range r.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "|%s=%s", name, r.Headers[name])
		}
	}
	return b.String()
}
