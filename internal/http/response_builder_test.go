package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestErrorResponseEscapes(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequestError(`<script>alert("x")</script>`).Write(rec)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<script>") {
		t.Fatalf("message was not escaped: %s", rec.Body.String())
	}
}

func TestJSONResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponse().Status(http.StatusAccepted).JSON(map[string]int{"n": 1}).Write(rec)
	if rec.Code != http.StatusAccepted || rec.Body.String() != `{"n":1}` {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	NewResponse().JSON(func() {}).Write(rec)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unencodable value, got %d", rec.Code)
	}
}

func TestRequireMethod(t *testing.T) {
	r := httptest.NewRequest(http.MethodDelete, "/day", nil)
	rb := RequireMethod(r, http.MethodGet, http.MethodPost)
	if rb == nil {
		t.Fatal("expected a 405 builder")
	}
	rec := httptest.NewRecorder()
	rb.Write(rec)
	if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != "GET, POST" {
		t.Fatalf("unexpected response %d Allow=%q", rec.Code, rec.Header().Get("Allow"))
	}
	if RequireMethod(httptest.NewRequest(http.MethodPost, "/day", nil), http.MethodGet, http.MethodPost) != nil {
		t.Fatal("POST should be allowed")
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	for i, want := range []bool{true, true, false} {
		if got := rl.allow("10.0.0.1"); got != want {
			t.Fatalf("request %d: allow = %v, want %v", i+1, got, want)
		}
	}
	if !rl.allow("10.0.0.2") {
		t.Fatal("other clients have their own window")
	}

	now = now.Add(2 * time.Minute)
	if !rl.allow("10.0.0.1") {
		t.Fatal("expected a new window")
	}

	now = now.Add(5 * time.Minute)
	rl.cleanupStaleEntries()
	if len(rl.clients) != 0 {
		t.Fatalf("expected stale clients dropped, %d left", len(rl.clients))
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name, remote, xff, want string
	}{
		{"direct", "203.0.113.9:5000", "", "203.0.113.9"},
		{"untrusted proxy header ignored", "203.0.113.9:5000", "1.2.3.4", "203.0.113.9"},
		{"trusted proxy", "10.0.0.2:5000", "198.51.100.7, 10.0.0.2", "198.51.100.7"},
		{"trusted proxy bad header", "127.0.0.1:80", "garbage", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(r); got != tt.want {
				t.Fatalf("extractClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Ice\x07 cubes\t"); got != "Ice cubes" {
		t.Fatalf("sanitizeInput = %q", got)
	}
}
