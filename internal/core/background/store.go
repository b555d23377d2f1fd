package background

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// TasksFileName is the snapshot file inside a session directory.
const TasksFileName = "tasks.json"

// TasksFile represents the persisted registry snapshot
type TasksFile struct {
	Tasks []*Task `json:"tasks"`
}

// Store handles JSON persistence of registry snapshots
type Store struct {
	filePath string
	mu       sync.Mutex
}

// NewStore creates a new store for the given file path
func NewStore(filePath string) *Store {
	return &Store{filePath: filePath}
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.filePath
}

// Save persists tasks to JSON file
func (s *Store) Save(tasks []*Task) error {
	return s.SaveSnapshot(func() []*Task { return tasks })
}

// SaveSnapshot calls snapshot and writes its result while holding the store
// lock, so concurrent saves land in the order their snapshots were taken.
func (s *Store) SaveSnapshot(snapshot func() []*Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := snapshot()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(TasksFile{Tasks: tasks}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tasks: %w", err)
	}

	// Write to a sibling file first so readers never see a torn snapshot.
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write tasks file: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("failed to replace tasks file: %w", err)
	}

	return nil
}

// Load loads tasks from JSON file
func (s *Store) Load() ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Task{}, nil
		}
		return nil, fmt.Errorf("failed to read tasks file: %w", err)
	}

	var file TasksFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tasks: %w", err)
	}

	return file.Tasks, nil
}

// LoadSessions reads the snapshot of every session under sessionsDir,
// keyed by session directory name.
func LoadSessions(sessionsDir string) (map[string][]*Task, error) {
	result := make(map[string][]*Task)

	entries, err := os.ReadDir(sessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		store := NewStore(filepath.Join(sessionsDir, entry.Name(), TasksFileName))
		tasks, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", entry.Name(), err)
		}
		if len(tasks) > 0 {
			result[entry.Name()] = tasks
		}
	}

	return result, nil
}
