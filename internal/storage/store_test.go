package storage

import (
	"context"
	"testing"
)

func TestMessageLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	msg, err := store.AppendMessage(ctx, "alice", "hi", nil)
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if msg.ID == "" {
		t.Fatalf("expected assigned id")
	}
	if msg.CreatedAt.IsZero() {
		t.Fatalf("expected assigned timestamp")
	}

	messages, err := store.ListActiveMessages(ctx)
	if err != nil {
		t.Fatalf("ListActiveMessages: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].ID != msg.ID || messages[0].Username != "alice" || messages[0].Text != "hi" {
		t.Fatalf("unexpected message: %+v", messages[0])
	}
	if messages[0].File != nil {
		t.Fatalf("text message should carry no file ref")
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, body := range []string{"first", "second", "third"} {
		if _, err := store.AppendMessage(ctx, "alice", body, nil); err != nil {
			t.Fatalf("AppendMessage %q: %v", body, err)
		}
	}
	messages, err := store.ListActiveMessages(ctx)
	if err != nil {
		t.Fatalf("ListActiveMessages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if messages[i].Text != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, messages[i].Text)
		}
	}
}

func TestAppendFileMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ref := &FileRef{Filename: "photo.png", Path: "/uploads/123-abc.png", Mimetype: "image/png"}
	msg, err := store.AppendMessage(ctx, "bob", "", ref)
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	messages, err := store.ListActiveMessages(ctx)
	if err != nil {
		t.Fatalf("ListActiveMessages: %v", err)
	}
	if len(messages) != 1 || messages[0].ID != msg.ID {
		t.Fatalf("unexpected messages: %+v", messages)
	}
	got := messages[0].File
	if got == nil {
		t.Fatalf("expected file ref")
	}
	if got.Filename != ref.Filename || got.Path != ref.Path || got.Mimetype != ref.Mimetype {
		t.Fatalf("unexpected file ref: %+v", got)
	}
}

func TestDeleteMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	msg, err := store.AppendMessage(ctx, "alice", "hi", nil)
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	deleted, err := store.DeleteMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if !deleted {
		t.Fatalf("expected delete to report true")
	}

	messages, err := store.ListActiveMessages(ctx)
	if err != nil {
		t.Fatalf("ListActiveMessages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("deleted message still listed: %+v", messages)
	}

	// second delete of the same id reports false
	deleted, err = store.DeleteMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("DeleteMessage again: %v", err)
	}
	if deleted {
		t.Fatalf("expected repeat delete to report false")
	}
}

func TestDeleteMessageUnknownID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	deleted, err := store.DeleteMessage(ctx, "3b9c8f3e-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if deleted {
		t.Fatalf("expected false for unknown id")
	}
}

func TestDeleteAllMessagesIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := store.AppendMessage(ctx, "alice", "one", nil); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if _, err := store.AppendMessage(ctx, "bob", "two", nil); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := store.DeleteAllMessages(ctx); err != nil {
		t.Fatalf("DeleteAllMessages: %v", err)
	}
	if err := store.DeleteAllMessages(ctx); err != nil {
		t.Fatalf("DeleteAllMessages repeat: %v", err)
	}
	messages, err := store.ListActiveMessages(ctx)
	if err != nil {
		t.Fatalf("ListActiveMessages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected empty log, got %d messages", len(messages))
	}
}

func TestUploadedFileAudit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	entry := UploadedFile{
		Filename:  "photo.png",
		Path:      "/uploads/123-abc.png",
		Mimetype:  "image/png",
		SizeBytes: 2048,
	}
	if err := store.RecordUploadedFile(ctx, entry); err != nil {
		t.Fatalf("RecordUploadedFile: %v", err)
	}
	files, err := store.ListUploadedFiles(ctx)
	if err != nil {
		t.Fatalf("ListUploadedFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(files))
	}
	got := files[0]
	if got.ID == "" || got.CreatedAt.IsZero() {
		t.Fatalf("expected assigned id and timestamp: %+v", got)
	}
	if got.Filename != entry.Filename || got.Path != entry.Path || got.SizeBytes != entry.SizeBytes {
		t.Fatalf("unexpected audit record: %+v", got)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := "sqlite://file:" + t.Name() + "?mode=memory&cache=shared"
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
