package tui

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/lvyanru/stockchat/internal/cli/session"
	"github.com/lvyanru/stockchat/internal/cli/types"
)

func newTestModel(t *testing.T) (chatModel, *session.Store) {
	t.Helper()
	store := session.NewStore(filepath.Join(t.TempDir(), "sessions.json"))
	sess, err := store.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return initialModel(nil, store, sess), store
}

func feedDeltas(m *chatModel, deltas ...string) {
	m.state = streamStreaming
	for _, d := range deltas {
		m.handleEvent(m.gen, types.StreamEvent{Text: d})
	}
}

func TestDoneFinalizesExactlyOneAssistantMessage(t *testing.T) {
	m, store := newTestModel(t)

	feedDeltas(&m, "Hello ", "world")
	m.handleEvent(m.gen, types.StreamEvent{Done: true})

	sess, err := store.Get(m.sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(sess.Messages) != 1 {
		t.Fatalf("got %d persisted messages, want exactly 1", len(sess.Messages))
	}
	if sess.Messages[0].Role != "assistant" || sess.Messages[0].Content != "Hello world" {
		t.Errorf("message = %s/%q, want assistant/%q", sess.Messages[0].Role, sess.Messages[0].Content, "Hello world")
	}

	if !m.acc.Empty() {
		t.Error("accumulator not cleared after finalization")
	}
	if m.state != streamIdle {
		t.Error("state still streaming after Done")
	}
	if len(m.transcript) != 1 || m.transcript[0].Content != "Hello world" {
		t.Errorf("transcript = %+v, want the finalized reply", m.transcript)
	}
}

func TestImplicitEndFinalizesNonEmptyAccumulator(t *testing.T) {
	m, store := newTestModel(t)

	feedDeltas(&m, "truncated reply")
	// Channel closed without a Done sentinel
	m.finalizeReply()

	sess, _ := store.Get(m.sess.ID)
	if len(sess.Messages) != 1 || sess.Messages[0].Content != "truncated reply" {
		t.Errorf("messages = %+v, want the accumulator finalized on implicit end", sess.Messages)
	}
}

func TestEmptyStreamAppendsNothing(t *testing.T) {
	m, store := newTestModel(t)

	m.state = streamStreaming
	m.handleEvent(m.gen, types.StreamEvent{Done: true})

	sess, _ := store.Get(m.sess.ID)
	if len(sess.Messages) != 0 {
		t.Errorf("got %d messages, want none for an empty stream", len(sess.Messages))
	}
}

func TestCancelDiscardsPartialReply(t *testing.T) {
	m, store := newTestModel(t)

	feedDeltas(&m, "partial rep")
	oldGen := m.gen
	m.cancelStream()

	if !m.acc.Empty() {
		t.Error("accumulator not cleared by cancel")
	}
	if m.state != streamIdle {
		t.Error("state still streaming after cancel")
	}
	sess, _ := store.Get(m.sess.ID)
	if len(sess.Messages) != 0 {
		t.Errorf("got %d persisted messages after cancel, want none", len(sess.Messages))
	}

	// Late events from the cancelled stream must not revive the buffer
	if m.gen == oldGen {
		t.Fatal("generation not bumped by cancel")
	}
	updated, _ := m.Update(streamEventMsg{gen: oldGen, ev: types.StreamEvent{Text: "stale"}})
	um := updated.(chatModel)
	if !um.acc.Empty() {
		t.Error("stale event from cancelled stream reached the accumulator")
	}
}

func TestErrorEventRendersDistinctBubble(t *testing.T) {
	m, store := newTestModel(t)

	feedDeltas(&m, "will be dropped")
	m.handleEvent(m.gen, types.StreamEvent{Err: "upstream exploded"})

	if !m.acc.Empty() {
		t.Error("accumulator kept partial content through an error")
	}
	if m.state != streamIdle {
		t.Error("state still streaming after error")
	}
	sess, _ := store.Get(m.sess.ID)
	if len(sess.Messages) != 0 {
		t.Errorf("error persisted %d messages, want none", len(sess.Messages))
	}
	if view := m.content.String(); !strings.Contains(view, "Error: upstream exploded") {
		t.Errorf("rendered content missing the error marker:\n%s", view)
	}
}

func TestResumedSessionReplaysTranscript(t *testing.T) {
	store := session.NewStore(filepath.Join(t.TempDir(), "sessions.json"))
	sess, _ := store.Create()
	store.AddMessage(sess.ID, session.Message{ID: "1", Role: "user", Content: "earlier question"})
	store.AddMessage(sess.ID, session.Message{ID: "2", Role: "assistant", Content: "earlier answer"})

	reloaded, _ := store.Get(sess.ID)
	m := initialModel(nil, store, reloaded)

	if len(m.transcript) != 2 {
		t.Fatalf("transcript has %d messages, want 2", len(m.transcript))
	}
	if m.transcript[0].Role != "user" || m.transcript[1].Role != "assistant" {
		t.Errorf("transcript roles = %s, %s", m.transcript[0].Role, m.transcript[1].Role)
	}
	if view := m.content.String(); !strings.Contains(view, "earlier answer") {
		t.Error("rendered content missing the replayed messages")
	}
}
