package runtime

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// ReadyCheck is a named dependency probe reported through /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

const readyProbeTimeout = 2 * time.Second

// NewBaseMuxWithReady returns a mux pre-wired with liveness and readiness
// endpoints. /healthz always answers ok; /readyz runs every check and lists
// the ones that failed.
func NewBaseMuxWithReady(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		failures := runChecks(r.Context(), checks)
		if len(failures) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(strings.Join(failures, "; ")))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func runChecks(parent context.Context, checks []ReadyCheck) []string {
	var failures []string
	for _, probe := range checks {
		if probe.Check == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(parent, readyProbeTimeout)
		err := probe.Check(ctx)
		cancel()
		if err == nil {
			continue
		}
		name := probe.Name
		if name == "" {
			name = "dependency"
		}
		failures = append(failures, name+": "+err.Error())
	}
	return failures
}
