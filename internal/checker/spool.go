package checker

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// spoolChecker reports administrative maintenance state. It is never wrapped
// by the cache: operators expect an up/down toggle to take effect on the very
// next check.
type spoolChecker struct {
	store SpoolReader
}

func (c *spoolChecker) Probe(ctx context.Context, req Request) Result {
	up, info, err := c.store.IsUp(ctx, req.Service, req.Port)
	if err != nil {
		return Result{500, fmt.Sprintf("reading spool state: %v", err)}
	}
	if up {
		return Result{200, info.Reason}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Service %s in down state", info.Service)
	if info.Creation != nil {
		fmt.Fprintf(&b, " since %s", info.Creation.Format(time.RFC3339))
	}
	if info.Expiration != nil {
		fmt.Fprintf(&b, " until %s", info.Expiration.Format(time.RFC3339))
	}
	if info.Reason != "" {
		fmt.Fprintf(&b, ": %s", info.Reason)
	}
	return Result{503, b.String()}
}
