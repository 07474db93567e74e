package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/chat-relay/internal/persistence"
	"github.com/example/chat-relay/internal/testfixtures"
)

func TestSessionRepository_CreateAndGet(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	expires := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
	session := testfixtures.NewSessionFixture(
		testfixtures.WithSessionToken("tok-1"),
		testfixtures.WithSessionDisplayName("alice"),
		testfixtures.WithSessionAdmin(true),
		testfixtures.WithSessionExpiresAt(expires),
	)

	if _, err := harness.Sessions.CreateSession(ctx, session.Persistence()); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	stored, err := harness.Sessions.GetSession(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if stored.DisplayName != "alice" || !stored.IsAdmin {
		t.Errorf("unexpected session: %+v", stored)
	}
	if !stored.ExpiresAt.Equal(expires) {
		t.Errorf("expected expiry %v, got %v", expires, stored.ExpiresAt)
	}
	if stored.RevokedAt != nil {
		t.Errorf("expected active session, got revoked at %v", stored.RevokedAt)
	}
}

func TestSessionRepository_GetSession_Unknown(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	if _, err := harness.Sessions.GetSession(context.Background(), "ghost"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_CreateSession_DuplicateToken(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	first := testfixtures.NewSessionFixture(testfixtures.WithSessionToken("tok-1"))
	if _, err := harness.Sessions.CreateSession(ctx, first.Persistence()); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	duplicate := testfixtures.NewSessionFixture(testfixtures.WithSessionToken("tok-1"))
	if _, err := harness.Sessions.CreateSession(ctx, duplicate.Persistence()); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestSessionRepository_CreateSession_PersistsRevocation(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	revokedAt := time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)
	session := testfixtures.NewSessionFixture(
		testfixtures.WithSessionToken("tok-1"),
		testfixtures.WithSessionRevokedAt(revokedAt),
	)
	if _, err := harness.Sessions.CreateSession(ctx, session.Persistence()); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	stored, err := harness.Sessions.GetSession(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if stored.RevokedAt == nil || !stored.RevokedAt.Equal(revokedAt) {
		t.Errorf("expected revocation %v round-tripped, got %v", revokedAt, stored.RevokedAt)
	}
}

func TestSessionRepository_RevokeSession(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	session := testfixtures.NewSessionFixture(testfixtures.WithSessionToken("tok-1"))
	if _, err := harness.Sessions.CreateSession(ctx, session.Persistence()); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	revokedAt := time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)
	revoked, err := harness.Sessions.RevokeSession(ctx, "tok-1", revokedAt)
	if err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(revokedAt) {
		t.Errorf("expected revoked at %v, got %v", revokedAt, revoked.RevokedAt)
	}

	stored, err := harness.Sessions.GetSession(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if stored.RevokedAt == nil {
		t.Errorf("expected revocation persisted")
	}

	if _, err := harness.Sessions.RevokeSession(ctx, "ghost", revokedAt); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepository_DeleteExpiredSessions(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	reference := time.Date(2024, time.March, 14, 12, 0, 0, 0, time.UTC)
	for token, expires := range map[string]time.Time{
		"stale":    reference.Add(-time.Minute),
		"boundary": reference,
		"live":     reference.Add(time.Hour),
	} {
		session := testfixtures.NewSessionFixture(
			testfixtures.WithSessionToken(token),
			testfixtures.WithSessionExpiresAt(expires),
		)
		if _, err := harness.Sessions.CreateSession(ctx, session.Persistence()); err != nil {
			t.Fatalf("CreateSession %q failed: %v", token, err)
		}
	}

	if err := harness.Sessions.DeleteExpiredSessions(ctx, reference); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}

	if _, err := harness.Sessions.GetSession(ctx, "stale"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected stale session deleted, got %v", err)
	}
	if _, err := harness.Sessions.GetSession(ctx, "boundary"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected boundary session deleted, got %v", err)
	}
	if _, err := harness.Sessions.GetSession(ctx, "live"); err != nil {
		t.Fatalf("expected live session kept, got %v", err)
	}
}
