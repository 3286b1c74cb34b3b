// internal/handlers/health.go
package handlers

import (
	"encoding/json"
	"net/http"
)

// HealthHandler reports static liveness, independent of any lobby state.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
