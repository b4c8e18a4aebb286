package authhandler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hrops/internal/domain/auth"
)

func TestHandleLoginRejectsInvalidPayload(t *testing.T) {
	h := NewHandler(nil, "secret", time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleMeRequiresAuthentication(t *testing.T) {
	h := NewHandler(nil, "secret", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	h.HandleMe(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleRefreshRejectsBadToken(t *testing.T) {
	h := NewHandler(nil, "secret", time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	h.HandleRefresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGenerateTokenIsOpaqueAndUnique(t *testing.T) {
	first, err := generateToken()
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	second, err := generateToken()
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	if first == second {
		t.Fatal("expected unique tokens")
	}
	if auth.HashToken(first) == first {
		t.Fatal("expected hash to differ from token")
	}
}
