package wal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Baaaki/flavorshare/internal/broker"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/google/uuid"
)

func openTestWAL(t *testing.T) *WAL {
	t.Helper()
	logger.Init(false)

	w, err := Open(filepath.Join(t.TempDir(), "spool", "events.wal"))
	if err != nil {
		t.Fatalf("Failed to open WAL: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func testEvent(eventType broker.EventType) broker.Event {
	return broker.NewEvent(eventType, uuid.New(), uuid.New(), map[string]string{"k": "v"})
}

func TestWAL_AppendAfterRemove(t *testing.T) {
	w := openTestWAL(t)

	var ids []string
	for _, et := range []broker.EventType{broker.EventRecipeCreated, broker.EventRecipeLiked, broker.EventCommentAdded} {
		entry, err := w.Append(testEvent(et))
		if err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
		ids = append(ids, entry.ID)
	}

	if err := w.Remove(ids[:2]); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	remaining, err := w.Entries()
	if err != nil {
		t.Fatalf("Failed to read WAL: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != ids[2] {
		t.Fatalf("Expected only %s to remain, got %+v", ids[2], remaining)
	}

	// Appends must land in the rewritten file, not the replaced one.
	if _, err := w.Append(testEvent(broker.EventRecipeDeleted)); err != nil {
		t.Fatalf("Failed to append after remove: %v", err)
	}

	final, err := w.Entries()
	if err != nil {
		t.Fatalf("Failed to read WAL: %v", err)
	}
	if len(final) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(final))
	}
	if final[0].Event.Type != broker.EventCommentAdded || final[1].Event.Type != broker.EventRecipeDeleted {
		t.Fatalf("Unexpected order: %s, %s", final[0].Event.Type, final[1].Event.Type)
	}
}

func TestWAL_FailedReplaceKeepsLogWritable(t *testing.T) {
	w := openTestWAL(t)

	first, err := w.Append(testEvent(broker.EventRecipeCreated))
	if err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	replaceErr := errors.New("disk full")
	rename = func(string, string) error { return replaceErr }
	defer func() { rename = os.Rename }()

	if err := w.Remove([]string{first.ID}); !errors.Is(err, replaceErr) {
		t.Fatalf("Expected replace error, got %v", err)
	}
	if _, err := os.Stat(w.filePath + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("Expected temp file to be cleaned up, got %v", err)
	}

	if _, err := w.Append(testEvent(broker.EventRecipeLiked)); err != nil {
		t.Fatalf("Failed to append after failed remove: %v", err)
	}

	entries, err := w.Entries()
	if err != nil {
		t.Fatalf("Failed to read WAL: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != first.ID {
		t.Fatalf("Expected both entries to remain, got %+v", entries)
	}
}

func TestWAL_SurvivesReopen(t *testing.T) {
	logger.Init(false)
	path := filepath.Join(t.TempDir(), "events.wal")

	w, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open WAL: %v", err)
	}
	event := testEvent(broker.EventRecipeUpdated)
	if _, err := w.Append(event); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	w.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to reopen WAL: %v", err)
	}
	defer reopened.Close()

	entries, err := reopened.Entries()
	if err != nil {
		t.Fatalf("Failed to read WAL: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Event.RecipeID != event.RecipeID || entries[0].Event.Type != event.Type {
		t.Fatalf("Entry changed across reopen: %+v", entries[0].Event)
	}
}

func TestWAL_RemoveNothing(t *testing.T) {
	w := openTestWAL(t)
	if _, err := w.Append(testEvent(broker.EventRecipeLiked)); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}
	if err := w.Remove(nil); err != nil {
		t.Fatalf("Remove(nil) failed: %v", err)
	}
	if err := w.Remove([]string{"unknown"}); err != nil {
		t.Fatalf("Remove(unknown) failed: %v", err)
	}

	entries, _ := w.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
}

// flakyBroker fails every publish while down is set.
type flakyBroker struct {
	broker.NopBroker
	down      bool
	published []broker.Event
}

var errBrokerDown = errors.New("broker down")

func (b *flakyBroker) Publish(_ context.Context, event broker.Event) error {
	if b.down {
		return errBrokerDown
	}
	b.published = append(b.published, event)
	return nil
}

func TestOutbox_SpoolsAndReplays(t *testing.T) {
	w := openTestWAL(t)
	inner := &flakyBroker{down: true}
	outbox := NewOutbox(inner, w)
	ctx := context.Background()

	first, second := testEvent(broker.EventRecipeCreated), testEvent(broker.EventRecipeLiked)
	for _, event := range []broker.Event{first, second} {
		if err := outbox.Publish(ctx, event); !errors.Is(err, errBrokerDown) {
			t.Fatalf("Expected broker error, got %v", err)
		}
	}

	entries, _ := w.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 spooled events, got %d", len(entries))
	}

	if n, err := outbox.Replay(ctx); n != 0 || !errors.Is(err, errBrokerDown) {
		t.Fatalf("Replay while down: delivered %d, err %v", n, err)
	}

	inner.down = false
	n, err := outbox.Replay(ctx)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("Expected 2 delivered, got %d", n)
	}
	if inner.published[0].RecipeID != first.RecipeID || inner.published[1].RecipeID != second.RecipeID {
		t.Fatal("Replay changed delivery order")
	}

	entries, _ = w.Entries()
	if len(entries) != 0 {
		t.Fatalf("Expected empty spool, got %d entries", len(entries))
	}

	if err := outbox.Publish(ctx, testEvent(broker.EventCommentAdded)); err != nil {
		t.Fatalf("Publish while up failed: %v", err)
	}
	entries, _ = w.Entries()
	if len(entries) != 0 {
		t.Fatal("Delivered events must not be spooled")
	}
}
