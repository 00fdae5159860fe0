package server

import (
	"net/http"
	"time"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status         string                 `json:"status"`
	Timestamp      time.Time              `json:"timestamp"`
	Uptime         string                 `json:"uptime"`
	Database       string                 `json:"database"`
	Sessions       int                    `json:"activeSessions"`
	Artists        int                    `json:"artistCount"`
	Albums         int                    `json:"albumCount"`
	CatalogVersion uint64                 `json:"catalogVersion"`
	PublicURL      string                 `json:"publicUrl,omitempty"`
	Details        map[string]interface{} `json:"details,omitempty"`
}

// handleHealthCheck returns basic liveness + dependency checks.
func (ms *StoreServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := ms.catalog.Current()

	health := &HealthStatus{
		Status:         "healthy",
		Timestamp:      time.Now(),
		Uptime:         time.Since(ms.startedAt).Round(time.Second).String(),
		Database:       "ok",
		Sessions:       ms.sessions.Count(),
		Artists:        len(snap.Catalog.Artists()),
		Albums:         len(snap.Catalog.Albums()),
		CatalogVersion: snap.Version,
		PublicURL:      ms.ngrokService.GetPublicURL(),
		Details:        make(map[string]interface{}),
	}

	if err := ms.checkDatabaseHealth(); err != nil {
		health.Status = "unhealthy"
		health.Database = "error"
		health.Details["database_error"] = err.Error()
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	ms.respondJSON(w, status, health)
}

// checkDatabaseHealth pings durable storage when one is configured.
func (ms *StoreServer) checkDatabaseHealth() error {
	if ms.storage == nil {
		return nil
	}
	return ms.storage.Ping()
}
