package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/harmonysync/harmony/internal/txstore"
)

// HealthHandler reports service liveness and the OAuth transaction store's
// current status.
type HealthHandler struct {
	store  txstore.Store
	logger *log.Logger
}

// NewHealthHandler creates a health endpoint backed by the given store.
func NewHealthHandler(store txstore.Store, logger *log.Logger) *HealthHandler {
	if logger == nil {
		logger = log.Default()
	}

	return &HealthHandler{store: store, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"/api/health"}
}

// ServeHTTP reports overall status plus pending-transaction count and TTL.
// Stores with a startup check re-run it so a health probe also verifies the
// state directory is still writable.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := http.StatusOK
	payload := map[string]any{
		"status": "ok",
	}

	oauthStatus := map[string]any{
		"ttl_seconds": int(h.store.TTL().Seconds()),
	}

	if count, err := h.store.Count(); err != nil {
		status = http.StatusServiceUnavailable
		payload["status"] = "degraded"
		oauthStatus["error"] = err.Error()
	} else {
		oauthStatus["pending"] = count
	}

	if checker, ok := h.store.(txstore.Checker); ok {
		if details, err := checker.StartupCheck(); err != nil {
			status = http.StatusServiceUnavailable
			payload["status"] = "degraded"
			oauthStatus["error"] = err.Error()
			h.logger.Error("oauth store check failed", "error", err)
		} else {
			oauthStatus["backend"] = details
		}
	}

	payload["oauth_store"] = oauthStatus

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode health response", "error", err)
	}
}
