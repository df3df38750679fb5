// Package session is the CLI's session store: chat transcripts persisted
// as a single JSON file under the user's config directory. Last write
// wins; no durability guarantees beyond that.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// schemaVersion tags the on-disk format so a future revision can migrate.
const schemaVersion = 1

const (
	defaultTitle   = "New Chat"
	titleMaxLength = 30
)

// Message is a persisted transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one chat transcript with its metadata.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// file is the on-disk envelope.
type file struct {
	Version  int       `json:"version"`
	Sessions []Session `json:"sessions"`
}

// Store reads and writes the session file. All operations are synchronous;
// concurrent CLI invocations reconcile via last write wins.
type Store struct {
	path string
}

// DefaultPath returns ~/.stockchat/sessions.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".stockchat", "sessions.json"), nil
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// List returns all sessions, most recently created first.
func (s *Store) List() ([]Session, error) {
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	return f.Sessions, nil
}

// Get returns the session with the given ID.
func (s *Store) Get(id string) (*Session, error) {
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	for i := range f.Sessions {
		if f.Sessions[i].ID == id {
			return &f.Sessions[i], nil
		}
	}
	return nil, fmt.Errorf("session %q not found", id)
}

// Create adds a new empty session at the front of the list.
func (s *Store) Create() (*Session, error) {
	f, err := s.read()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := Session{
		ID:        uuid.New().String(),
		Title:     defaultTitle,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	f.Sessions = append([]Session{session}, f.Sessions...)
	if err := s.write(f); err != nil {
		return nil, err
	}
	return &session, nil
}

// AddMessage appends a message to a session. The first user message of a
// fresh session becomes its title, truncated to 30 characters.
func (s *Store) AddMessage(sessionID string, msg Message) error {
	f, err := s.read()
	if err != nil {
		return err
	}

	for i := range f.Sessions {
		if f.Sessions[i].ID != sessionID {
			continue
		}

		f.Sessions[i].Messages = append(f.Sessions[i].Messages, msg)
		f.Sessions[i].UpdatedAt = time.Now()

		if f.Sessions[i].Title == defaultTitle && msg.Role == "user" {
			f.Sessions[i].Title = deriveTitle(msg.Content)
		}

		return s.write(f)
	}

	return fmt.Errorf("session %q not found", sessionID)
}

// Delete removes a session and prunes any sessions left with no messages.
func (s *Store) Delete(id string) error {
	f, err := s.read()
	if err != nil {
		return err
	}

	kept := f.Sessions[:0]
	found := false
	for _, sess := range f.Sessions {
		if sess.ID == id {
			found = true
			continue
		}
		if len(sess.Messages) == 0 {
			continue
		}
		kept = append(kept, sess)
	}
	if !found {
		return fmt.Errorf("session %q not found", id)
	}

	f.Sessions = kept
	return s.write(f)
}

// Clear removes all sessions.
func (s *Store) Clear() error {
	return s.write(&file{Version: schemaVersion, Sessions: []Session{}})
}

func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleMaxLength {
		return content
	}
	return string(runes[:titleMaxLength]) + "..."
}

func (s *Store) read() (*file, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &file{Version: schemaVersion, Sessions: []Session{}}, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if f.Version > schemaVersion {
		return nil, fmt.Errorf("session file version %d is newer than supported version %d", f.Version, schemaVersion)
	}
	if f.Sessions == nil {
		f.Sessions = []Session{}
	}
	return &f, nil
}

func (s *Store) write(f *file) error {
	f.Version = schemaVersion

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
