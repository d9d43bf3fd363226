package worker

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jholhewres/jobweave/internal/config"
	"github.com/jholhewres/jobweave/pkg/jobweave/registry"
)

var processStart = time.Now()

type healthResponse struct {
	Status   string `json:"status"`
	Jobs     int    `json:"jobs"`
	Uptime   int64  `json:"uptime"`
	CronAuth string `json:"cron_auth"`
}

// HealthHandler serves GET /health → {status:"ok", jobs:<n>, uptime:<s>,
// cron_auth:<status>} per spec.md §6's worker-mode health endpoint,
// grounded on the teacher's `copilot health` JSON response shape.
// cron_auth surfaces config.CronSecretStatus so an operator can catch a
// misconfigured CRON_SECRET without grepping logs.
func HealthHandler(reg *registry.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		resp := healthResponse{
			Status:   "ok",
			Jobs:     reg.Size(),
			Uptime:   int64(time.Since(processStart).Seconds()),
			CronAuth: config.CronSecretStatus(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
}
