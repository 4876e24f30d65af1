package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/adaptly/internal/analytics"
	"github.com/abhisek/adaptly/internal/circuit"
	"github.com/abhisek/adaptly/internal/engine"
	"github.com/abhisek/adaptly/internal/metrics"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeEngine struct {
	err       error
	submit    *engine.SubmitResult
	gotSubmit engine.SubmitRequest
	gotNext   engine.NextRequest
	gotMerge  [2]string
}

func (f *fakeEngine) StartSession(_ context.Context, req engine.StartRequest) (*engine.StartResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &engine.StartResponse{SessionID: "s1", Phase: "warmup", ActiveDifficulty: "easy"}, nil
}

func (f *fakeEngine) NextQuestion(_ context.Context, req engine.NextRequest) (*engine.NextResponse, error) {
	f.gotNext = req
	if f.err != nil {
		return nil, f.err
	}
	return &engine.NextResponse{SelectionMeta: engine.SelectionMeta{Reason: "difficulty_match"}}, nil
}

func (f *fakeEngine) SubmitAndNext(_ context.Context, req engine.SubmitRequest) (*engine.SubmitResult, error) {
	f.gotSubmit = req
	if f.err != nil {
		return nil, f.err
	}
	return f.submit, nil
}

func (f *fakeEngine) ScoreBreakdown(_ context.Context, q analytics.Query) (*analytics.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &analytics.Report{StudentID: q.StudentID, Rows: []analytics.Row{}}, nil
}

func (f *fakeEngine) MergeGuest(_ context.Context, guestID, studentID string) (*engine.MergeResult, error) {
	f.gotMerge = [2]string{guestID, studentID}
	if f.err != nil {
		return nil, f.err
	}
	return &engine.MergeResult{Merged: true, GuestStudentID: guestID, StudentID: studentID}, nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubmit_PassesStoredBytes(t *testing.T) {
	payload := `{"result":{"isCorrect":true},"selectionMeta":{"reason":"difficulty_match"}}`
	f := &fakeEngine{submit: &engine.SubmitResult{Payload: json.RawMessage(payload), Source: engine.SourceFresh}}
	srv := New(f, Options{})

	rec := do(t, srv, http.MethodPost, "/v1/sessions/sess-9/submit",
		`{"studentId":"u1","microSkillId":"m1","questionId":"q1","answer":[1,2],"attemptId":"a1","responseMs":2500}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.String())
	assert.Empty(t, rec.Header().Get(HeaderReplay))
	assert.Equal(t, engine.SourceFresh, rec.Header().Get(HeaderSource))

	assert.Equal(t, "sess-9", f.gotSubmit.SessionID)
	assert.JSONEq(t, `[1,2]`, string(f.gotSubmit.Answer))
	assert.Equal(t, 2500, f.gotSubmit.ResponseMs)

	f.submit.Source = engine.SourceReplay
	rec = do(t, srv, http.MethodPost, "/v1/sessions/sess-9/submit", `{"studentId":"u1"}`)
	assert.Equal(t, "true", rec.Header().Get(HeaderReplay))
	assert.Equal(t, payload, rec.Body.String())
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		retryAfter bool
	}{
		{"invalid", &engine.InvalidInputError{Field: "studentId", Reason: "is required"}, http.StatusBadRequest, false},
		{"not found", &engine.NotFoundError{Kind: "question", ID: "q"}, http.StatusNotFound, false},
		{"conflict", &engine.StateConflictError{Reason: "done"}, http.StatusConflict, false},
		{"storage", &engine.StorageError{Op: "commit", Err: errors.New("disk")}, http.StatusServiceUnavailable, true},
		{"breaker", &engine.StorageError{Op: "catalog", Err: circuit.ErrOpen}, http.StatusServiceUnavailable, true},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(&fakeEngine{err: tt.err}, Options{})
			rec := do(t, srv, http.MethodPost, "/v1/sessions", `{"studentId":"u1","microSkillId":"m1"}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After") != "")

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestBadJSON(t *testing.T) {
	srv := New(&fakeEngine{}, Options{})
	rec := do(t, srv, http.MethodPost, "/v1/sessions", `{"studentId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutesPassPathParams(t *testing.T) {
	f := &fakeEngine{}
	srv := New(f, Options{})

	rec := do(t, srv, http.MethodPost, "/v1/sessions/s7/next", `{"studentId":"u1","microSkillId":"m1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, engine.NextRequest{SessionID: "s7", StudentID: "u1", MicroskillID: "m1"}, f.gotNext)

	rec = do(t, srv, http.MethodPost, "/v1/guests/g1/merge", `{"studentId":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]string{"g1", "u1"}, f.gotMerge)

	rec = do(t, srv, http.MethodPost, "/v1/analytics/score-breakdown", `{"studentId":"u1","microSkillId":"m1","limit":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"studentId":"u1"`)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealthzAndMetrics(t *testing.T) {
	m := metrics.New()
	m.Selection("difficulty_match")
	srv := New(&fakeEngine{}, Options{Health: pinger{}, Metrics: m.Handler()})

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", "").Code)

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "adaptly_question_selections_total")

	down := New(&fakeEngine{}, Options{Health: pinger{err: errors.New("db down")}})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, down, http.MethodGet, "/healthz", "").Code)
}
