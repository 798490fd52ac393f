package api

import (
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/quizwise/backend/internal/domain/scoring"
	"github.com/quizwise/backend/internal/domain/session"
	"github.com/quizwise/backend/internal/service"
)

// ── Request / Response types ────────────────────────────────────────────────

type CreateSessionRequest struct {
	LearnerID     string   `json:"learner_id" validate:"required" example:"learner-42"`
	AreaID        string   `json:"area_id,omitempty" example:"c0a8012e-8d1f-4c3e-9a51-1f6f2b7d9e10"`
	UnitIDs       []string `json:"unit_ids" validate:"required,min=1,dive,required"`
	QuestionCount *int     `json:"question_count,omitempty" validate:"omitempty,gte=1,lte=500" example:"10"`
	Kind          string   `json:"kind,omitempty" validate:"omitempty,oneof=practice timed_exam" example:"practice"`
	TimeLimitSec  *int     `json:"time_limit_sec,omitempty" validate:"omitempty,gt=0" example:"900"`
}

func (r CreateSessionRequest) config() session.Config {
	cfg := session.DefaultConfig()
	cfg.LearnerID = r.LearnerID
	cfg.AreaID = r.AreaID
	cfg.UnitIDs = r.UnitIDs
	if r.QuestionCount != nil {
		cfg.QuestionCount = *r.QuestionCount
	}
	if r.Kind != "" {
		cfg.Kind = session.Kind(r.Kind)
	}
	if r.TimeLimitSec != nil {
		limit := time.Duration(*r.TimeLimitSec) * time.Second
		cfg.TimeLimit = &limit
	}
	return cfg
}

// SubmitAnswerRequest carries exactly one of choice_id, assessment or skip.
type SubmitAnswerRequest struct {
	ChoiceID   string `json:"choice_id,omitempty" example:"5b0e6f3a-2c1d-4e8f-9a7b-3c2d1e0f9a8b"`
	Assessment string `json:"assessment,omitempty" validate:"omitempty,oneof=correct partial incorrect" example:"partial"`
	Skip       bool   `json:"skip,omitempty"`
}

func (r SubmitAnswerRequest) fieldsSet() int {
	n := 0
	if r.ChoiceID != "" {
		n++
	}
	if r.Assessment != "" {
		n++
	}
	if r.Skip {
		n++
	}
	return n
}

type ChoiceResponse struct {
	ID   string `json:"id"`
	Text string `json:"text" example:"4"`
}

type AnswerResponse struct {
	ChoiceID   string    `json:"choice_id,omitempty"`
	Assessment string    `json:"assessment,omitempty" example:"correct"`
	AnsweredAt time.Time `json:"answered_at"`
}

type QuestionResponse struct {
	ID       string           `json:"id"`
	UnitID   string           `json:"unit_id"`
	Kind     string           `json:"kind" example:"single_choice"`
	Body     string           `json:"body" example:"What is 2 + 2?"`
	ImageURL *string          `json:"image_url,omitempty"`
	Choices  []ChoiceResponse `json:"choices,omitempty"`
	Answer   *AnswerResponse  `json:"answer,omitempty"`

	// Only present once the session is finalized.
	Correct          *bool   `json:"correct,omitempty"`
	CorrectChoiceID  string  `json:"correct_choice_id,omitempty"`
	Explanation      string  `json:"explanation,omitempty"`
	SolutionImageURL *string `json:"solution_image_url,omitempty"`
}

type ScoreResponse struct {
	Correct    int     `json:"correct" example:"1"`
	Total      int     `json:"total" example:"2"`
	Percentage float64 `json:"percentage" example:"50"`
	Tier       string  `json:"tier" example:"needs improvement"`
	Emoji      string  `json:"emoji" example:"📚"`
}

type SessionResponse struct {
	ID          string             `json:"id"`
	LearnerID   string             `json:"learner_id"`
	AreaID      string             `json:"area_id,omitempty"`
	Kind        string             `json:"kind" example:"practice"`
	State       string             `json:"state" example:"in_progress"`
	Position    int                `json:"position" example:"0"`
	Total       int                `json:"total" example:"10"`
	Questions   []QuestionResponse `json:"questions"`
	Score       *ScoreResponse     `json:"score,omitempty"`
	Points      float64            `json:"points" example:"1.5"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	Deadline    *time.Time         `json:"deadline,omitempty"`
	FinalizedAt *time.Time         `json:"finalized_at,omitempty"`
}

// SessionErrorResponse is returned when a session was created but could
// not start; the ID lets the client retry or inspect it.
type SessionErrorResponse struct {
	Error   string          `json:"error"`
	Session SessionResponse `json:"session"`
}

func scoreResponse(s scoring.Score) *ScoreResponse {
	return &ScoreResponse{
		Correct:    s.Correct,
		Total:      s.Total,
		Percentage: s.Percentage,
		Tier:       string(s.Tier),
		Emoji:      s.Tier.Emoji(),
	}
}

func toSessionResponse(snap session.Snapshot) SessionResponse {
	reveal := snap.State == session.StateFinalized || snap.State == session.StateReviewing

	resp := SessionResponse{
		ID:          snap.ID,
		LearnerID:   snap.LearnerID,
		AreaID:      snap.AreaID,
		Kind:        string(snap.Kind),
		State:       string(snap.State),
		Position:    snap.Position,
		Total:       len(snap.Questions),
		Questions:   make([]QuestionResponse, len(snap.Questions)),
		Points:      snap.Points,
		Deadline:    snap.Deadline,
		FinalizedAt: snap.FinalizedAt,
	}
	if !snap.StartedAt.IsZero() {
		started := snap.StartedAt
		resp.StartedAt = &started
	}
	if snap.Score != nil {
		resp.Score = scoreResponse(*snap.Score)
	}

	for i, q := range snap.Questions {
		qr := QuestionResponse{
			ID:       q.ID,
			UnitID:   q.UnitID,
			Kind:     string(q.Kind()),
			Body:     q.Body,
			ImageURL: q.ImageURL,
		}
		for _, c := range q.Choices() {
			qr.Choices = append(qr.Choices, ChoiceResponse{ID: c.ID, Text: c.Text})
		}
		a, answered := snap.Answers[q.ID]
		if answered {
			qr.Answer = &AnswerResponse{
				ChoiceID:   a.ChoiceID,
				Assessment: string(a.Assessment),
				AnsweredAt: a.AnsweredAt,
			}
		}
		if reveal {
			correct := answered && session.Resolve(q, a)
			qr.Correct = &correct
			qr.CorrectChoiceID, _ = q.CorrectChoiceID()
			qr.Explanation = q.Explanation
			qr.SolutionImageURL = q.SolutionImageURL
		}
		resp.Questions[i] = qr
	}
	return resp
}

// ── Handlers ────────────────────────────────────────────────────────────────

// createSession starts a new quiz session.
// @Summary      Start a session
// @Description  Creates a session, fetches the question pool of the given units and draws the questions.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        body  body      CreateSessionRequest  true  "Session settings"
// @Success      201   {object}  SessionResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      422   {object}  SessionErrorResponse  "no usable questions"
// @Failure      503   {object}  SessionErrorResponse  "question pool unavailable"
// @Router       /sessions [post]
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	snap, err := h.sessions.Start(r.Context(), req.config())
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, toSessionResponse(snap))
	case snap.ID != "" && errors.Is(err, service.ErrFetchFailed):
		respondJSON(w, http.StatusServiceUnavailable, SessionErrorResponse{
			Error:   "question pool unavailable, retry loading the session",
			Session: toSessionResponse(snap),
		})
	case snap.ID != "" && errors.Is(err, session.ErrPoolEmpty):
		respondJSON(w, http.StatusUnprocessableEntity, SessionErrorResponse{
			Error:   err.Error(),
			Session: toSessionResponse(snap),
		})
	default:
		h.handleError(w, err, "session")
	}
}

// getSession returns the current state of a session.
// @Summary      Get a session
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {object}  SessionResponse
// @Failure      404        {object}  ErrorResponse
// @Router       /sessions/{sessionID} [get]
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Get(r.PathValue("sessionID"))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(snap))
}

// loadSession retries fetching the question pool of a session.
// @Summary      Retry loading a session
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {object}  SessionResponse
// @Failure      404        {object}  ErrorResponse
// @Failure      422        {object}  ErrorResponse
// @Failure      503        {object}  ErrorResponse
// @Router       /sessions/{sessionID}/load [post]
func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Load(r.Context(), r.PathValue("sessionID"))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(snap))
}

// submitAnswer records an answer for the current question.
// @Summary      Answer the current question
// @Description  Send choice_id for single choice questions, assessment for open responses, or skip.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        sessionID  path      string               true  "Session ID"
// @Param        body       body      SubmitAnswerRequest  true  "Answer"
// @Success      200        {object}  SessionResponse
// @Failure      400        {object}  ErrorResponse
// @Failure      404        {object}  ErrorResponse
// @Failure      409        {object}  ErrorResponse  "answer rejected"
// @Router       /sessions/{sessionID}/answers [post]
func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")

	var req SubmitAnswerRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.fieldsSet() != 1 {
		respondError(w, http.StatusBadRequest, "exactly one of choice_id, assessment or skip is required")
		return
	}

	var (
		snap session.Snapshot
		err  error
	)
	switch {
	case req.ChoiceID != "":
		snap, err = h.sessions.SubmitChoice(sessionID, req.ChoiceID)
	case req.Assessment != "":
		snap, err = h.sessions.SubmitAssessment(sessionID, session.Assessment(req.Assessment))
	default:
		snap, err = h.sessions.Skip(sessionID)
	}
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(snap))
}

// advanceSession moves to the next question.
// @Summary      Advance to the next question
// @Description  On the last question the session is finalized.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {object}  SessionResponse
// @Failure      404        {object}  ErrorResponse
// @Failure      409        {object}  ErrorResponse
// @Router       /sessions/{sessionID}/advance [post]
func (h *Handler) advanceSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Advance(r.PathValue("sessionID"))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(snap))
}

// finishSession finalizes a session early.
// @Summary      Finish a session
// @Description  Finalizes the session and returns its score. Repeated calls return the same score.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {object}  ScoreResponse
// @Failure      404        {object}  ErrorResponse
// @Failure      409        {object}  ErrorResponse
// @Router       /sessions/{sessionID}/finish [post]
func (h *Handler) finishSession(w http.ResponseWriter, r *http.Request) {
	score, err := h.sessions.Finish(r.PathValue("sessionID"))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, scoreResponse(score))
}

// toggleReview switches a finalized session between results and answer review.
// @Summary      Toggle answer review
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {object}  SessionResponse
// @Failure      404        {object}  ErrorResponse
// @Failure      409        {object}  ErrorResponse
// @Router       /sessions/{sessionID}/review [post]
func (h *Handler) toggleReview(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.ToggleReview(r.PathValue("sessionID"))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(snap))
}

// abandonSession discards a session without saving anything.
// @Summary      Abandon a session
// @Tags         Sessions
// @Param        sessionID  path  string  true  "Session ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /sessions/{sessionID} [delete]
func (h *Handler) abandonSession(w http.ResponseWriter, r *http.Request) {
	if h.handleError(w, h.sessions.Abandon(r.PathValue("sessionID")), "session") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getReport returns the persistence report of a finalized session.
// @Summary      Get the persistence report
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {object}  service.Report
// @Success      202        {object}  ErrorResponse  "still persisting"
// @Failure      404        {object}  ErrorResponse
// @Failure      409        {object}  ErrorResponse  "session not finalized"
// @Router       /sessions/{sessionID}/report [get]
func (h *Handler) getReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.sessions.Report(r.PathValue("sessionID"))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// retryReport re-runs failed persistence steps.
// @Summary      Retry failed persistence steps
// @Tags         Sessions
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200        {object}  service.Report
// @Failure      404        {object}  ErrorResponse
// @Failure      409        {object}  ErrorResponse
// @Failure      502        {object}  service.Report  "some steps still failing"
// @Router       /sessions/{sessionID}/report/retry [post]
func (h *Handler) retryReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.sessions.RetryPersistence(r.Context(), r.PathValue("sessionID"))
	var pe *service.PersistenceError
	if errors.As(err, &pe) {
		respondJSON(w, http.StatusBadGateway, report)
		return
	}
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, report)
}
