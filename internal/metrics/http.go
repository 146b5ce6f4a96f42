package metrics

import (
	"encoding/json"
	"net/http"
)

// Section adds a named group of stats from another component to /metrics.
type Section struct {
	Name  string
	Stats func() map[string]interface{}
}

// Handler exposes /health and /metrics for m, with sections nested under
// their names in the /metrics body.
func Handler(m *Metrics, sections ...Section) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := m.GetStats()

		status := "ok"
		code := http.StatusOK
		if healthy, _ := stats["is_healthy"].(bool); !healthy {
			status = "error"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, map[string]interface{}{
			"status":     status,
			"last_run":   stats["last_run_time"],
			"last_error": stats["last_error"],
		})
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		stats := m.GetStats()
		for _, s := range sections {
			if s.Stats != nil {
				stats[s.Name] = s.Stats()
			}
		}
		writeJSON(w, http.StatusOK, stats)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
