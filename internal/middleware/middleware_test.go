package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Error.Code
}

func signed(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tok
}

func TestJWTAuth_Middleware(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	learner := uuid.New()

	valid, err := auth.IssueToken(learner, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name     string
		header   string
		wantCode string
		wantID   uuid.UUID
	}{
		{"sub claim", "Bearer " + valid, "", learner},
		{"learner_id claim", "Bearer " + signed(t, "test-secret", jwt.SigningMethodHS256, jwt.MapClaims{"learner_id": learner.String(), "exp": exp}), "", learner},
		{"missing header", "", "UNAUTHORIZED", uuid.Nil},
		{"wrong scheme", "Token " + valid, "UNAUTHORIZED", uuid.Nil},
		{"wrong secret", "Bearer " + signed(t, "other", jwt.SigningMethodHS256, jwt.MapClaims{"sub": learner.String(), "exp": exp}), "UNAUTHORIZED", uuid.Nil},
		{"expired", "Bearer " + signed(t, "test-secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": learner.String(), "exp": time.Now().Add(-time.Hour).Unix()}), "TOKEN_EXPIRED", uuid.Nil},
		{"not a uuid", "Bearer " + signed(t, "test-secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice", "exp": exp}), "UNAUTHORIZED", uuid.Nil},
		{"hs512 rejected", "Bearer " + signed(t, "test-secret", jwt.SigningMethodHS512, jwt.MapClaims{"sub": learner.String(), "exp": exp}), "UNAUTHORIZED", uuid.Nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got uuid.UUID
			h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = GetLearnerID(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if tc.wantCode == "" {
				if rec.Code != http.StatusNoContent {
					t.Fatalf("Expected 204, got %d", rec.Code)
				}
				if got != tc.wantID {
					t.Errorf("Expected learner %s, got %s", tc.wantID, got)
				}
				return
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("Expected 401, got %d", rec.Code)
			}
			if code := errorCode(t, rec); code != tc.wantCode {
				t.Errorf("Expected code %s, got %s", tc.wantCode, code)
			}
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.1.1.1") || !rl.Allow("1.1.1.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.1.1.1") {
		t.Error("third request in the window should be limited")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("other clients have their own budget")
	}

	now = now.Add(2 * time.Minute)
	if !rl.Allow("1.1.1.1") {
		t.Error("a new window should reset the count")
	}

	now = now.Add(2 * time.Minute)
	rl.sweep()
	if len(rl.visitors) != 0 {
		t.Errorf("sweep should drop idle visitors, %d left", len(rl.visitors))
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewRateLimiter(ctx, 1, time.Minute).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/learn/simplify", nil)
		req.RemoteAddr = "10.0.0.1"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rec.Code)
		}
		if want == http.StatusTooManyRequests && errorCode(t, rec) != "RATE_LIMITED" {
			t.Error("expected RATE_LIMITED code")
		}
	}
}

func TestRequestIDAndCORS(t *testing.T) {
	h := RequestID(CORS("http://localhost:5173")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Errorf("Expected request id echoed, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Expected allowed origin, got %q", got)
	}

	pre := httptest.NewRequest(http.MethodOptions, "/api/v1/profile", nil)
	pre.Header.Set("Origin", "http://evil.example")
	pre.Header.Set("Access-Control-Request-Method", "PUT")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, pre)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected preflight 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected origin header for foreign origin: %q", got)
	}
}
