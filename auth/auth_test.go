package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignerIssueAndParse(t *testing.T) {
	s := NewSigner("test-secret", 24*time.Hour)
	token, exp, err := s.Issue(Principal{UserID: 3, Email: "a@shop.tn", Role: "CLIENT"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if d := time.Until(exp); d < 23*time.Hour || d > 25*time.Hour {
		t.Fatalf("unexpected expiry %v", exp)
	}
	p, err := s.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.UserID != 3 || p.Email != "a@shop.tn" || p.Role != "CLIENT" {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestSignerRejectsExpiredAndForeignTokens(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)
	past := time.Now().Add(-3 * time.Hour)
	s.now = func() time.Time { return past }
	old, _, err := s.Issue(Principal{UserID: 1, Email: "x@y.z", Role: "ADMIN"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	s.now = time.Now
	if _, err := s.Parse(old); err != ErrInvalidToken {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	other := NewSigner("other-secret", time.Hour)
	foreign, _, _ := other.Issue(Principal{UserID: 1, Email: "x@y.z", Role: "ADMIN"})
	if _, err := s.Parse(foreign); err != ErrInvalidToken {
		t.Fatalf("expected foreign token to be rejected, got %v", err)
	}
	if _, err := s.Parse("garbage"); err != ErrInvalidToken {
		t.Fatalf("expected garbage to be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret!" {
		t.Fatalf("password stored in clear")
	}
	if !CheckPassword(hash, "s3cret!") {
		t.Fatalf("expected match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected mismatch")
	}
}

func TestMiddlewareAndRequireAuth(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)
	token, _, _ := s.Issue(Principal{UserID: 9, Email: "c@shop.tn", Role: "CLIENT"})

	var seen Principal
	h := s.Middleware(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/client/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent || seen.UserID != 9 {
		t.Fatalf("expected authenticated call, got %d %+v", w.Code, seen)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/client/orders", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestRequireAuthUsesVerifier(t *testing.T) {
	SetUserVerifier(func(_ context.Context, uid uint) bool { return uid != 9 })
	defer SetUserVerifier(nil)

	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithPrincipal(req.Context(), Principal{UserID: 9, Email: "gone@shop.tn"}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted user, got %d", w.Code)
	}
}
