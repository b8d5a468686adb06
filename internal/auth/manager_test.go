package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/models"
)

func newTestManager(store SessionStore) *Manager {
	return NewManager("test-secret", time.Minute, time.Hour, store)
}

func TestManagerIssueAndVerify(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := newTestManager(store)

	user := models.User{ID: "user-123", Username: "alice"}
	tokens, err := manager.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", tokens)
	}
	if !store.Has(tokens.RefreshToken) {
		t.Fatal("expected refresh token to be persisted")
	}

	principal, err := manager.Verify(tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if principal.UserID != "user-123" || principal.Username != "alice" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}

func TestManagerVerifyRejectsForgedToken(t *testing.T) {
	manager := newTestManager(NewInMemorySessionStore())

	other := NewManager("other-secret", time.Minute, time.Hour, NewInMemorySessionStore())
	tokens, err := other.Issue(context.Background(), models.User{ID: "user-1", Username: "eve"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := manager.Verify(tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}

	if _, err := manager.Verify("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage input, got %v", err)
	}
}

func TestManagerRefreshRotatesToken(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := newTestManager(store)
	ctx := context.Background()

	tokens, err := manager.Issue(ctx, models.User{ID: "user-9", Username: "bob"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rotated, err := manager.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if rotated.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected refresh token to rotate")
	}
	if store.Has(tokens.RefreshToken) {
		t.Fatal("expected the consumed refresh token to be removed")
	}

	// Reusing the rotated-out token must fail.
	if _, err := manager.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on token reuse, got %v", err)
	}

	// The new access token still names the same principal.
	principal, err := manager.Verify(rotated.AccessToken)
	if err != nil {
		t.Fatalf("verify rotated: %v", err)
	}
	if principal.UserID != "user-9" || principal.Username != "bob" {
		t.Fatalf("unexpected principal after rotation: %+v", principal)
	}
}

func TestManagerRefreshRejectsExpiredSession(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := newTestManager(store)
	ctx := context.Background()

	expired := Session{
		RefreshToken: "stale-token",
		UserID:       "user-2",
		Username:     "carol",
		ExpiresAt:    time.Now().UTC().Add(-time.Minute),
	}
	if err := store.Save(ctx, expired); err != nil {
		t.Fatalf("save session: %v", err)
	}

	if _, err := manager.Refresh(ctx, "stale-token"); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired, got %v", err)
	}
	if store.Has("stale-token") {
		t.Fatal("expected expired session to be deleted")
	}
}

func TestManagerRevoke(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := newTestManager(store)
	ctx := context.Background()

	tokens, err := manager.Issue(ctx, models.User{ID: "user-3", Username: "dan"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager.Revoke(ctx, tokens.RefreshToken)
	if store.Has(tokens.RefreshToken) {
		t.Fatal("expected revoked session to be removed")
	}

	if _, err := manager.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after revoke, got %v", err)
	}
}
