package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pomodoro-backend/internal/database"
	"pomodoro-backend/internal/handlers"
	"pomodoro-backend/internal/middleware"
	"pomodoro-backend/internal/models"
	"pomodoro-backend/internal/repository"
	"pomodoro-backend/internal/services"
	"pomodoro-backend/internal/websocket"
)

func newTestRouter(t *testing.T, writeLimit int) http.Handler {
	t.Helper()
	return newTestRouterWithProxy(t, writeLimit, false)
}

func newTestRouterWithProxy(t *testing.T, writeLimit int, trustProxy bool) http.Handler {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "pomodoro_data.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	store, err := repository.NewSQLiteSessionStore(ctx, db)
	if err != nil {
		t.Fatalf("NewSQLiteSessionStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	hub := websocket.NewHub(nil)
	t.Cleanup(hub.Close)

	limiter := middleware.NewRateLimiter(writeLimit, time.Minute)
	t.Cleanup(limiter.Stop)

	svc := services.NewSessionService(store, hub, "study")
	return New(handlers.NewSessionHandler(svc), hub, Options{
		FrontendURL:   "http://localhost:5173",
		DefaultUserID: "guest_user",
		WriteLimiter:  limiter,
		TrustProxy:    trustProxy,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func getRecommendation(t *testing.T, h http.Handler, theme string) models.Recommendation {
	t.Helper()
	rr := do(t, h, http.MethodGet, "/api/session/recommendation?theme="+theme, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("recommendation status %d: %s", rr.Code, rr.Body.String())
	}
	var rec models.Recommendation
	if err := json.NewDecoder(rr.Body).Decode(&rec); err != nil {
		t.Fatalf("decode recommendation: %v", err)
	}
	return rec
}

func TestRouter_SessionFlow(t *testing.T) {
	h := newTestRouter(t, 100)

	if rec := getRecommendation(t, h, "study"); rec.RecommendedFocus != 25 || rec.RecommendedRest != 5 {
		t.Fatalf("cold start = %+v", rec)
	}

	rr := do(t, h, http.MethodPost, "/api/session/end", `{"is_focus": true, "theme": "study", "planned_duration": 30, "actual_duration": 30}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("end session status %d: %s", rr.Code, rr.Body.String())
	}

	first := getRecommendation(t, h, "study")
	if first.RecommendedFocus != 33 || first.RecommendedRest != 7 {
		t.Fatalf("after success = %+v, want 33/7", first)
	}
	if again := getRecommendation(t, h, "study"); again != first {
		t.Fatalf("recommendation not idempotent: %+v vs %+v", again, first)
	}

	rr = do(t, h, http.MethodPost, "/api/session/end", `{"is_focus": true, "theme": "study", "planned_duration": 25, "actual_duration": 10}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("end session status %d", rr.Code)
	}
	if rec := getRecommendation(t, h, "study"); rec.RecommendedFocus != 20 || rec.RecommendedRest != 5 {
		t.Fatalf("after struggle = %+v, want 20/5", rec)
	}

	rr = do(t, h, http.MethodPost, "/api/quest/claim", `{"quest_id": "q1", "stat_type": "strength", "reward": 15}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("claim status %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/api/stats", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status %d", rr.Code)
	}
	var stats models.Stats
	if err := json.NewDecoder(rr.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats != (models.Stats{Intelligence: 40, Strength: 15}) {
		t.Fatalf("unexpected stats %+v", stats)
	}

	rr = do(t, h, http.MethodGet, "/api/sessions?focus_only=true", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status %d", rr.Code)
	}
	var list struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 3 {
		t.Fatalf("expected 3 focus sessions, got %d", list.Count)
	}
}

func TestRouter_MissingFields(t *testing.T) {
	h := newTestRouter(t, 100)

	rr := do(t, h, http.MethodPost, "/api/session/end", `{"theme": "study"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, field := range []string{"is_focus", "planned_duration", "actual_duration"} {
		if _, ok := resp.Error.Fields[field]; !ok {
			t.Errorf("expected field error for %s, got %v", field, resp.Error.Fields)
		}
	}
	if resp.Error.RequestID == "" {
		t.Errorf("expected request id in error response")
	}
}

func TestRouter_WriteRateLimit(t *testing.T) {
	h := newTestRouter(t, 1)

	body := `{"is_focus": false, "planned_duration": 5, "actual_duration": 5}`
	if rr := do(t, h, http.MethodPost, "/api/session/end", body); rr.Code != http.StatusCreated {
		t.Fatalf("first write status %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/api/session/end", body); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected rate limit, got %d", rr.Code)
	}
	// Reads are not limited.
	if rr := do(t, h, http.MethodGet, "/api/stats", ""); rr.Code != http.StatusOK {
		t.Fatalf("stats status %d", rr.Code)
	}
}

func TestRouter_WriteRateLimitIgnoresForwardedFor(t *testing.T) {
	body := `{"is_focus": false, "planned_duration": 5, "actual_duration": 5}`
	post := func(h http.Handler, forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/session/end", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	tests := []struct {
		name       string
		trustProxy bool
		wantSecond int
	}{
		{"direct clients keyed by socket address", false, http.StatusTooManyRequests},
		{"trusted proxy keyed by forwarded address", true, http.StatusCreated},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestRouterWithProxy(t, 1, tc.trustProxy)
			if code := post(h, "203.0.113.1"); code != http.StatusCreated {
				t.Fatalf("first write status %d", code)
			}
			if code := post(h, "203.0.113.2"); code != tc.wantSecond {
				t.Fatalf("second write status %d, want %d", code, tc.wantSecond)
			}
		})
	}
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(t, 100)

	rr := do(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %q", rr.Code, rr.Body.String())
	}
}
