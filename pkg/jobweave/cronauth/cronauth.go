// Package cronauth implements the header-compare authorization check
// for externally-triggered cron pings (spec.md §6's "authorization
// check for externally-triggered cron endpoints" — out of scope for
// the core, but specified completely enough here to give platform
// route emitters a concrete middleware to call). Grounded on the
// teacher's devclaw/gateway.go auth-header check, generalized from a
// single static token compare into an env-driven one with a
// development bypass.
package cronauth

import (
	"fmt"
	"net/http"
	"os"
)

// Verify checks r's Authorization header against the CRON_SECRET
// environment variable. In development (NODE_ENV=development) it
// always succeeds, matching the teacher's local-dev bypass. Outside
// development, a missing CRON_SECRET is a server misconfiguration and
// is reported as an error distinct from a missing/invalid header.
func Verify(r *http.Request) error {
	if os.Getenv("NODE_ENV") == "development" {
		return nil
	}

	secret := os.Getenv("CRON_SECRET")
	if secret == "" {
		return fmt.Errorf("cronauth: CRON_SECRET is not configured")
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return fmt.Errorf("cronauth: missing Authorization header")
	}
	if header != "Bearer "+secret {
		return fmt.Errorf("cronauth: invalid Authorization header")
	}
	return nil
}
