package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/chat-relay/internal/persistence"
	"github.com/example/chat-relay/internal/testfixtures"
)

func appendText(t *testing.T, repo persistence.MessageRepository, id, room, body string, at time.Time) persistence.Message {
	t.Helper()
	fixture := testfixtures.NewMessageFixture(
		testfixtures.WithMessageID(id),
		testfixtures.WithMessageRoom(room),
		testfixtures.WithMessageAuthor("alice"),
		testfixtures.WithMessageBody(body),
		testfixtures.WithMessageCreatedAt(at),
	)
	stored, err := repo.AppendMessage(context.Background(), fixture.Persistence())
	if err != nil {
		t.Fatalf("AppendMessage %q failed: %v", id, err)
	}
	return stored
}

func TestMessageRepository_AppendMessage(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	at := time.Date(2024, time.March, 14, 9, 0, 0, 123456789, time.UTC)
	stored := appendText(t, harness.Messages, "m1", "general", "hi", at)

	if stored.CreatedAt.Nanosecond() != 0 {
		t.Errorf("expected second precision, got %v", stored.CreatedAt)
	}
	if stored.CreatedAt.Unix() != at.Unix() {
		t.Errorf("expected unix %d, got %d", at.Unix(), stored.CreatedAt.Unix())
	}
	if stored.Author != "alice" {
		t.Errorf("expected author preserved, got %q", stored.Author)
	}
}

func TestMessageRepository_AppendMessage_RequiresIDAndRoom(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	blankID := testfixtures.NewMessageFixture(testfixtures.WithMessageID(""))
	if _, err := harness.Messages.AppendMessage(ctx, blankID.Persistence()); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for missing id, got %v", err)
	}

	blankRoom := testfixtures.NewMessageFixture(testfixtures.WithMessageRoom(""))
	if _, err := harness.Messages.AppendMessage(ctx, blankRoom.Persistence()); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for missing room, got %v", err)
	}
}

func TestMessageRepository_AppendMessage_RejectsUnknownKind(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	fixture := testfixtures.NewMessageFixture(testfixtures.WithMessageKind("video"))
	_, err := harness.Messages.AppendMessage(context.Background(), fixture.Persistence())
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestMessageRepository_ListMessages_AppendOrder(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	base := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)
	appendText(t, harness.Messages, "m1", "general", "first", base)
	appendText(t, harness.Messages, "m2", "general", "second", base) // same second, arrival order decides
	appendText(t, harness.Messages, "m3", "general", "third", base.Add(time.Second))
	appendText(t, harness.Messages, "other", "random", "elsewhere", base)

	messages, err := harness.Messages.ListMessages(context.Background(), "general")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if messages[i].Body != want {
			t.Errorf("position %d: expected %q, got %q", i, want, messages[i].Body)
		}
	}
}

func TestMessageRepository_ListMessagesSince_StrictWatermark(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	t1 := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)
	t3 := t2.Add(time.Second)
	appendText(t, harness.Messages, "m1", "general", "first", t1)
	appendText(t, harness.Messages, "m2", "general", "second", t2)
	appendText(t, harness.Messages, "m3", "general", "third", t3)

	since, err := harness.Messages.ListMessagesSince(ctx, "general", t1)
	if err != nil {
		t.Fatalf("ListMessagesSince failed: %v", err)
	}
	if len(since) != 2 || since[0].Body != "second" || since[1].Body != "third" {
		t.Fatalf("expected messages after t1 in order, got %+v", since)
	}

	since, err = harness.Messages.ListMessagesSince(ctx, "general", t3)
	if err != nil {
		t.Fatalf("ListMessagesSince failed: %v", err)
	}
	if len(since) != 0 {
		t.Fatalf("expected no messages after t3, got %d", len(since))
	}
}

func TestMessageRepository_AttachmentRoundTrip(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	attachment := "1710406800_notes.txt"
	fixture := testfixtures.NewMessageFixture(
		testfixtures.WithMessageRoom("general"),
		testfixtures.WithMessageBody("notes.txt"),
		testfixtures.WithMessageAttachment(attachment),
	)
	if _, err := harness.Messages.AppendMessage(ctx, fixture.Persistence()); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	messages, err := harness.Messages.ListMessages(ctx, "general")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].AttachmentID == nil || *messages[0].AttachmentID != attachment {
		t.Errorf("expected attachment id %q, got %v", attachment, messages[0].AttachmentID)
	}
	if messages[0].Kind != persistence.KindFile {
		t.Errorf("expected file kind, got %q", messages[0].Kind)
	}
}

func TestMessageRepository_DeleteMessages(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	now := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)
	appendText(t, harness.Messages, "m1", "general", "hi", now)

	if err := harness.Messages.DeleteMessages(ctx, "general"); err != nil {
		t.Fatalf("DeleteMessages failed: %v", err)
	}
	if err := harness.Messages.DeleteMessages(ctx, "general"); err != nil {
		t.Fatalf("expected idempotent delete, got %v", err)
	}

	messages, err := harness.Messages.ListMessages(ctx, "general")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected empty log, got %d", len(messages))
	}
}
