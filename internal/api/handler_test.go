package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizwise/backend/internal/api"
	"github.com/quizwise/backend/internal/domain/question"
	"github.com/quizwise/backend/internal/domain/subject"
	"github.com/quizwise/backend/internal/service"
	"github.com/quizwise/backend/internal/store"
)

type testServer struct {
	mux      http.Handler
	store    *store.MemoryStore
	sessions *service.SessionService
	area     *subject.Area
	unit     *subject.Unit
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := store.NewMemory()
	ctx := context.Background()

	area, err := subject.NewArea("Mathematics")
	require.NoError(t, err)
	require.NoError(t, mem.SaveArea(ctx, area))
	unit, err := subject.NewUnit(area.ID, "Arithmetic")
	require.NoError(t, err)
	require.NoError(t, mem.SaveUnit(ctx, unit))

	sc, err := question.NewSingleChoice(unit.ID, "2 + 2 = ?", "four", []string{"3", "4", "5"}, 1)
	require.NoError(t, err)
	require.NoError(t, mem.SaveQuestion(ctx, sc))
	open, err := question.New(unit.ID, "Why is addition commutative?", "")
	require.NoError(t, err)
	require.NoError(t, mem.SaveQuestion(ctx, open))

	rec := service.NewRecorder(mem, logger, 1, 0)
	sessions := service.NewSessionService(mem, rec, logger, service.SessionOptions{PersistWorkers: 1})
	t.Cleanup(sessions.Close)
	progress := service.NewProgressService(mem, mem)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.NewHandler(sessions, progress, mem, logger))

	return &testServer{
		mux:      api.Logging(logger)(api.CORS(mux)),
		store:    mem,
		sessions: sessions,
		area:     area,
		unit:     unit,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.mux.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) start(t *testing.T) api.SessionResponse {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/sessions", map[string]any{
		"learner_id":     "learner-1",
		"area_id":        ts.area.ID,
		"unit_ids":       []string{ts.unit.ID},
		"question_count": 2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[api.SessionResponse](t, w)
}

func TestSessionFlow(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.start(t)

	assert.Equal(t, "in_progress", sess.State)
	require.Len(t, sess.Questions, 2)
	for _, q := range sess.Questions {
		assert.Nil(t, q.Correct, "correctness is hidden while in progress")
		assert.Empty(t, q.CorrectChoiceID)
		assert.Empty(t, q.Explanation)
	}

	for i, q := range sess.Questions {
		var body map[string]any
		switch q.Kind {
		case string(question.KindSingleChoice):
			var choiceID string
			for _, c := range q.Choices {
				if c.Text == "4" {
					choiceID = c.ID
				}
			}
			body = map[string]any{"choice_id": choiceID}
		default:
			body = map[string]any{"assessment": "partial"}
		}
		w := ts.do(t, http.MethodPost, "/sessions/"+sess.ID+"/answers", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = ts.do(t, http.MethodPost, "/sessions/"+sess.ID+"/advance", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		sess = decode[api.SessionResponse](t, w)
		if i == 0 {
			assert.Equal(t, "in_progress", sess.State)
		}
	}

	assert.Equal(t, "finalized", sess.State)
	require.NotNil(t, sess.Score)
	assert.Equal(t, 50.0, sess.Score.Percentage)
	assert.Equal(t, "needs improvement", sess.Score.Tier)
	assert.InDelta(t, 1.5, sess.Points, 1e-9)
	for _, q := range sess.Questions {
		require.NotNil(t, q.Correct)
		assert.Equal(t, q.Kind == string(question.KindSingleChoice), *q.Correct)
	}

	// finishing again returns the same score
	w := ts.do(t, http.MethodPost, "/sessions/"+sess.ID+"/finish", nil)
	require.Equal(t, http.StatusOK, w.Code)
	score := decode[api.ScoreResponse](t, w)
	assert.Equal(t, 1, score.Correct)
	assert.Equal(t, "📚", score.Emoji)

	// late answers are rejected
	w = ts.do(t, http.MethodPost, "/sessions/"+sess.ID+"/answers", map[string]any{"skip": true})
	assert.Equal(t, http.StatusConflict, w.Code)

	ts.sessions.WaitForSession(sess.ID)
	w = ts.do(t, http.MethodGet, "/sessions/"+sess.ID+"/report", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[service.Report](t, w)
	assert.True(t, report.Complete())
	assert.Len(t, ts.store.SessionRecords(), 1)

	w = ts.do(t, http.MethodGet, "/leaderboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[[]api.RankEntryResponse](t, w)
	require.Len(t, board, 1)
	assert.Equal(t, "learner-1", board[0].LearnerID)
	assert.InDelta(t, 1.5, board[0].Points, 1e-9)

	w = ts.do(t, http.MethodGet, "/learners/learner-1/progress?unit="+ts.unit.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	progress := decode[api.ProgressResponse](t, w)
	require.Len(t, progress.Units, 1)
	assert.Equal(t, 2, progress.Units[0].Total)
	assert.Equal(t, 2, progress.Units[0].Attempted)
	assert.Equal(t, 1, progress.Units[0].Correct)
	assert.Equal(t, 50.0, progress.Units[0].CorrectPct)

	w = ts.do(t, http.MethodPost, "/sessions/"+sess.ID+"/review", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reviewing", decode[api.SessionResponse](t, w).State)
}

func TestCreateSessionValidation(t *testing.T) {
	ts := newTestServer(t)

	cases := map[string]map[string]any{
		"missing learner":  {"unit_ids": []string{ts.unit.ID}},
		"no units":         {"learner_id": "l", "unit_ids": []string{}},
		"bad kind":         {"learner_id": "l", "unit_ids": []string{ts.unit.ID}, "kind": "marathon"},
		"timed, no limit":  {"learner_id": "l", "unit_ids": []string{ts.unit.ID}, "kind": "timed_exam"},
		"too many":         {"learner_id": "l", "unit_ids": []string{ts.unit.ID}, "question_count": 501},
		"unknown property": {"learner_id": "l", "unit_ids": []string{ts.unit.ID}, "shuffle": true},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/sessions", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestCreateSessionEmptyPool(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/sessions", map[string]any{
		"learner_id": "learner-1",
		"unit_ids":   []string{"unknown-unit"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode[api.SessionErrorResponse](t, w)
	assert.Equal(t, "empty", resp.Session.State)
}

func TestSubmitAnswerNeedsExactlyOneField(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.start(t)

	w := ts.do(t, http.MethodPost, "/sessions/"+sess.ID+"/answers", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/sessions/"+sess.ID+"/answers", map[string]any{"skip": true, "assessment": "correct"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/sessions/"+sess.ID+"/answers", map[string]any{"assessment": "brilliant"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWrongAnswerKindIsConflict(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.start(t)

	var body map[string]any
	if sess.Questions[0].Kind == string(question.KindSingleChoice) {
		body = map[string]any{"assessment": "correct"}
	} else {
		body = map[string]any{"choice_id": "nope"}
	}
	w := ts.do(t, http.MethodPost, "/sessions/"+sess.ID+"/answers", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAbandonSession(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.start(t)

	w := ts.do(t, http.MethodDelete, "/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, ts.store.SessionRecords())
}

func TestReportBeforeFinalizeIsConflict(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.start(t)

	w := ts.do(t, http.MethodGet, "/sessions/"+sess.ID+"/report", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/areas", nil)
	require.Equal(t, http.StatusOK, w.Code)
	areas := decode[[]api.AreaResponse](t, w)
	require.Len(t, areas, 1)

	w = ts.do(t, http.MethodGet, "/areas/"+areas[0].ID+"/units", nil)
	require.Equal(t, http.StatusOK, w.Code)
	units := decode[[]api.UnitResponse](t, w)
	require.Len(t, units, 1)
	assert.Equal(t, "Arithmetic", units[0].Name)

	w = ts.do(t, http.MethodGet, "/catalog/export?format=yaml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "name: Arithmetic")

	req := httptest.NewRequest(http.MethodPost, "/catalog/import", strings.NewReader(w.Body.String()))
	req.Header.Set("Content-Type", "application/x-yaml")
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"questions_created":2`)
}

func TestProgressRequiresUnits(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/learners/learner-1/progress", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/learners/learner-1/progress?area="+ts.area.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	progress := decode[api.ProgressResponse](t, w)
	require.Len(t, progress.Units, 1)
	assert.Zero(t, progress.Units[0].Attempted)
}

func TestLeaderboardLimit(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/leaderboard?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodOptions, "/sessions", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTimedSessionResponseHasDeadline(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/sessions", map[string]any{
		"learner_id":     "learner-1",
		"unit_ids":       []string{ts.unit.ID},
		"kind":           "timed_exam",
		"time_limit_sec": 600,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sess := decode[api.SessionResponse](t, w)
	require.NotNil(t, sess.Deadline)
	require.NotNil(t, sess.StartedAt)
	assert.WithinDuration(t, sess.StartedAt.Add(10*time.Minute), *sess.Deadline, time.Second)
}
