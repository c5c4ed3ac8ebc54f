package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/copypaster/server/internal/server/auth"
)

func TestAuthMiddleware_ValidToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := auth.GenerateToken("user-42", secret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	authMiddleware(secret)(next).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if gotUserID != "user-42" {
		t.Fatalf("user id %q", gotUserID)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	secret := []byte("test-secret")

	expired, err := auth.GenerateToken("user-42", secret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	foreign, err := auth.GenerateToken("user-42", []byte("other-secret"), time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong secret", "Bearer " + foreign},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

			req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()

			authMiddleware(secret)(next).ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status %d", w.Code)
			}
			if called {
				t.Fatalf("handler reached without valid token")
			}
		})
	}
}

func TestUserIDFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := UserIDFromContext(req.Context()); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}
