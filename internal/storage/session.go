package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Lin-Jiong-HDU/tadash/internal/core/background"
)

const SessionDirName = "sessions"

// Session identifies one tadash process run; its background task
// snapshots live in the session directory.
type Session struct {
	ID        string    `json:"id"`
	Directory string    `json:"directory"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	root string
}

// NewSession creates a session rooted in the tadash config directory.
func NewSession() (*Session, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}
	return NewSessionIn(filepath.Join(configDir, SessionDirName)), nil
}

// NewSessionIn creates a session whose directory lives under sessionsDir.
func NewSessionIn(sessionsDir string) *Session {
	wd, _ := os.Getwd()
	now := time.Now()
	return &Session{
		ID:        generateSessionID(),
		Directory: wd,
		StartedAt: now,
		UpdatedAt: now,
		root:      sessionsDir,
	}
}

// SessionsDir returns the default directory holding all sessions.
func SessionsDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, SessionDirName), nil
}

// Dir returns the session directory.
func (s *Session) Dir() string {
	return filepath.Join(s.root, s.ID)
}

// TaskStore returns the snapshot store for this session's background tasks.
func (s *Session) TaskStore() *background.Store {
	return background.NewStore(filepath.Join(s.Dir(), background.TasksFileName))
}

// Save writes session.json into the session directory.
func (s *Session) Save() error {
	if err := os.MkdirAll(s.Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	s.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.Dir(), "session.json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	return nil
}

func generateSessionID() string {
	now := time.Now()
	return fmt.Sprintf("%d-%02d-%02d-%02d%02d%02d-%09d",
		now.Year(),
		now.Month(),
		now.Day(),
		now.Hour(),
		now.Minute(),
		now.Second(),
		now.Nanosecond())
}
