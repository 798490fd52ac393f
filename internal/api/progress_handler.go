package api

import (
	"net/http"
	"strconv"
	"time"
)

// ── Request / Response types ────────────────────────────────────────────────

type UnitProgressResponse struct {
	UnitID       string  `json:"unit_id"`
	Total        int     `json:"total" example:"40"`
	Attempted    int     `json:"attempted" example:"12"`
	Correct      int     `json:"correct" example:"9"`
	AttemptedPct float64 `json:"attempted_pct" example:"30"`
	CorrectPct   float64 `json:"correct_pct" example:"22.5"`
}

type ProgressResponse struct {
	LearnerID string                 `json:"learner_id"`
	Units     []UnitProgressResponse `json:"units"`
}

type RankEntryResponse struct {
	Rank      int       `json:"rank" example:"1"`
	LearnerID string    `json:"learner_id"`
	Points    float64   `json:"points" example:"14.4"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AreaResponse struct {
	ID   string `json:"id"`
	Name string `json:"name" example:"Mathematics"`
}

type UnitResponse struct {
	ID     string `json:"id"`
	AreaID string `json:"area_id"`
	Name   string `json:"name" example:"Algebra"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// getProgress reports a learner's progress per unit.
// @Summary      Learner progress
// @Description  Per-unit counts of attempted and correctly resolved questions. Pass unit (repeatable) or area.
// @Tags         Progress
// @Produce      json
// @Param        learnerID  path      string  true   "Learner ID"
// @Param        unit       query     []string  false  "Unit IDs"  collectionFormat(multi)
// @Param        area       query     string  false  "Area ID, expands to all its units"
// @Success      200        {object}  ProgressResponse
// @Failure      400        {object}  ErrorResponse
// @Failure      500        {object}  ErrorResponse
// @Router       /learners/{learnerID}/progress [get]
func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	learnerID := r.PathValue("learnerID")

	unitIDs := r.URL.Query()["unit"]
	if areaID := r.URL.Query().Get("area"); areaID != "" {
		areaUnits, err := h.progress.AreaUnits(ctx, areaID)
		if h.handleError(w, err, "area") {
			return
		}
		unitIDs = append(unitIDs, areaUnits...)
	}
	if len(unitIDs) == 0 {
		respondError(w, http.StatusBadRequest, "unit or area query parameter is required")
		return
	}

	progress, err := h.progress.SubjectProgress(ctx, learnerID, unitIDs)
	if h.handleError(w, err, "progress") {
		return
	}

	resp := ProgressResponse{LearnerID: learnerID, Units: make([]UnitProgressResponse, len(progress))}
	for i, p := range progress {
		resp.Units[i] = UnitProgressResponse{
			UnitID:       p.UnitID,
			Total:        p.Total,
			Attempted:    p.Attempted,
			Correct:      p.Correct,
			AttemptedPct: p.AttemptedPct,
			CorrectPct:   p.CorrectPct,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// getLeaderboard lists learners by cumulative points.
// @Summary      Leaderboard
// @Tags         Progress
// @Produce      json
// @Param        limit  query     int  false  "Max entries (default 20, max 100)"
// @Success      200    {array}   RankEntryResponse
// @Failure      400    {object}  ErrorResponse
// @Router       /leaderboard [get]
func (h *Handler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.progress.Leaderboard(r.Context(), limit)
	if h.handleError(w, err, "leaderboard") {
		return
	}

	resp := make([]RankEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = RankEntryResponse{
			Rank:      i + 1,
			LearnerID: e.LearnerID,
			Points:    e.Points,
			UpdatedAt: e.UpdatedAt,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// listAreas lists subject areas.
// @Summary      List subject areas
// @Tags         Catalog
// @Produce      json
// @Success      200  {array}   AreaResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /areas [get]
func (h *Handler) listAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.progress.Areas(r.Context())
	if h.handleError(w, err, "areas") {
		return
	}
	resp := make([]AreaResponse, len(areas))
	for i, a := range areas {
		resp[i] = AreaResponse{ID: a.ID, Name: a.Name}
	}
	respondJSON(w, http.StatusOK, resp)
}

// listUnits lists the units of a subject area.
// @Summary      List units of an area
// @Tags         Catalog
// @Produce      json
// @Param        areaID  path      string  true  "Area ID"
// @Success      200     {array}   UnitResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /areas/{areaID}/units [get]
func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.progress.Units(r.Context(), r.PathValue("areaID"))
	if h.handleError(w, err, "units") {
		return
	}
	resp := make([]UnitResponse, len(units))
	for i, u := range units {
		resp[i] = UnitResponse{ID: u.ID, AreaID: u.AreaID, Name: u.Name}
	}
	respondJSON(w, http.StatusOK, resp)
}
