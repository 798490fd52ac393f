// internal/api/router.go
package api

import "net/http"

func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Sessions
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("GET /sessions/{sessionID}", h.getSession)
	mux.HandleFunc("DELETE /sessions/{sessionID}", h.abandonSession)
	mux.HandleFunc("POST /sessions/{sessionID}/load", h.loadSession)
	mux.HandleFunc("POST /sessions/{sessionID}/answers", h.submitAnswer)
	mux.HandleFunc("POST /sessions/{sessionID}/advance", h.advanceSession)
	mux.HandleFunc("POST /sessions/{sessionID}/finish", h.finishSession)
	mux.HandleFunc("POST /sessions/{sessionID}/review", h.toggleReview)
	mux.HandleFunc("GET /sessions/{sessionID}/report", h.getReport)
	mux.HandleFunc("POST /sessions/{sessionID}/report/retry", h.retryReport)

	// Progress & ranking
	mux.HandleFunc("GET /learners/{learnerID}/progress", h.getProgress)
	mux.HandleFunc("GET /leaderboard", h.getLeaderboard)

	// Catalog
	mux.HandleFunc("GET /areas", h.listAreas)
	mux.HandleFunc("GET /areas/{areaID}/units", h.listUnits)
	mux.HandleFunc("GET /catalog/export", h.exportCatalog)
	mux.HandleFunc("POST /catalog/import", h.importCatalog)
}
