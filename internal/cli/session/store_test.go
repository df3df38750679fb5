package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "sessions.json"))
}

func testMessage(role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().Truncate(time.Millisecond),
	}
}

func TestRoundTripPreservesTranscript(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	msgs := []Message{
		testMessage("user", "what is AAPL doing?"),
		testMessage("assistant", "Apple ($AAPL) is up today."),
		testMessage("user", "and tomorrow?"),
		testMessage("assistant", "I cannot predict the future."),
	}
	for _, msg := range msgs {
		if err := store.AddMessage(sess.ID, msg); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}

	// A second store over the same file simulates the next CLI invocation
	reloaded, err := NewStore(store.path).Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if len(reloaded.Messages) != len(msgs) {
		t.Fatalf("got %d messages, want %d", len(reloaded.Messages), len(msgs))
	}
	for i, want := range msgs {
		got := reloaded.Messages[i]
		if got.ID != want.ID || got.Role != want.Role || got.Content != want.Content {
			t.Errorf("message %d = %+v, want %+v", i, got, want)
		}
		if !got.Timestamp.Equal(want.Timestamp) {
			t.Errorf("message %d timestamp = %v, want %v", i, got.Timestamp, want.Timestamp)
		}
	}
}

func TestTitleDerivedFromFirstUserMessage(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "short message kept whole", content: "hello there", want: "hello there"},
		{
			name:    "long message truncated",
			content: strings.Repeat("a", 50),
			want:    strings.Repeat("a", 30) + "...",
		},
		{name: "exactly thirty characters", content: strings.Repeat("b", 30), want: strings.Repeat("b", 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			sess, _ := store.Create()

			if err := store.AddMessage(sess.ID, testMessage("user", tt.content)); err != nil {
				t.Fatalf("AddMessage() error = %v", err)
			}

			got, _ := store.Get(sess.ID)
			if got.Title != tt.want {
				t.Errorf("title = %q, want %q", got.Title, tt.want)
			}
		})
	}
}

func TestTitleNotOverwrittenByLaterMessages(t *testing.T) {
	store := newTestStore(t)
	sess, _ := store.Create()

	store.AddMessage(sess.ID, testMessage("user", "first question"))
	store.AddMessage(sess.ID, testMessage("assistant", "an answer"))
	store.AddMessage(sess.ID, testMessage("user", "second question"))

	got, _ := store.Get(sess.ID)
	if got.Title != "first question" {
		t.Errorf("title = %q, want the first user message", got.Title)
	}
}

func TestCreatePrependsSessions(t *testing.T) {
	store := newTestStore(t)

	first, _ := store.Create()
	store.AddMessage(first.ID, testMessage("user", "old"))
	second, _ := store.Create()
	store.AddMessage(second.ID, testMessage("user", "new"))

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != second.ID {
		t.Errorf("newest session not first: got %s", sessions[0].ID)
	}
}

func TestDeletePrunesEmptySessions(t *testing.T) {
	store := newTestStore(t)

	empty, _ := store.Create()
	withMsgs, _ := store.Create()
	store.AddMessage(withMsgs.ID, testMessage("user", "keep me"))
	target, _ := store.Create()
	store.AddMessage(target.ID, testMessage("user", "delete me"))

	if err := store.Delete(target.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	sessions, _ := store.List()
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1 (empty one pruned too)", len(sessions))
	}
	if sessions[0].ID != withMsgs.ID {
		t.Errorf("surviving session = %s, want %s", sessions[0].ID, withMsgs.ID)
	}
	if sessions[0].ID == empty.ID {
		t.Error("empty session survived the prune")
	}
}

func TestDeleteUnknownSession(t *testing.T) {
	store := newTestStore(t)
	if err := store.Delete("no-such-id"); err == nil {
		t.Error("Delete() of unknown session succeeded, want error")
	}
}

func TestClearRemovesEverything(t *testing.T) {
	store := newTestStore(t)
	sess, _ := store.Create()
	store.AddMessage(sess.ID, testMessage("user", "hello"))

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List() after Clear error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("got %d sessions after Clear, want 0", len(sessions))
	}
}

func TestMissingFileIsEmptyStore(t *testing.T) {
	store := newTestStore(t)
	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List() on missing file error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("got %d sessions from missing file, want 0", len(sessions))
	}
}

func TestNewerSchemaVersionRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "sessions": []}`), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStore(path).List(); err == nil {
		t.Error("List() accepted a newer schema version, want error")
	}
}
