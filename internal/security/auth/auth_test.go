package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndVerifyToken(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := IssueToken(secret, "agent_1", 2*time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	claims, err := VerifyToken(secret, tok)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Subject != "agent_1" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) <= 0 {
		t.Fatalf("token already expired")
	}
	if claims.ID == "" {
		t.Fatalf("expected token id")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, err := IssueToken([]byte("a"), "x", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := VerifyToken([]byte("b"), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestIssueRejectsEmptySecret(t *testing.T) {
	if _, err := IssueToken(nil, "x", time.Minute); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	if tok, err := BearerToken("Bearer abc"); err != nil || tok != "abc" {
		t.Fatalf("got %q, %v", tok, err)
	}
	for _, h := range []string{"", "Basic abc", "Bearer ", "abc"} {
		if _, err := BearerToken(h); !errors.Is(err, ErrMissingToken) {
			t.Fatalf("%q: expected ErrMissingToken, got %v", h, err)
		}
	}
}

func TestMiddleware(t *testing.T) {
	secret := []byte("s3cret")
	h := Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClaimsFrom(r.Context())
		if !ok {
			t.Errorf("claims missing from context")
			return
		}
		_, _ = w.Write([]byte(c.Subject))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	tok, _ := IssueToken(secret, "ops", time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "ops" {
		t.Fatalf("expected 200 ops, got %d %q", rr.Code, rr.Body.String())
	}
}
