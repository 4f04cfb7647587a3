package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/venturahq/ventura/internal/domain"
)

type FileStore struct {
	path  string
	mu    sync.RWMutex
	state domain.State
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:  path,
		state: domain.EmptyState(),
	}
}

func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return domain.Internal("failed to create data directory", err)
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.state = domain.EmptyState()
			return s.persistLocked()
		}
		return domain.Internal("failed to read data file", err)
	}

	var parsed domain.State
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.Internal("failed to parse data file", err)
	}

	s.state = withDefaults(parsed)
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) Snapshot() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}

func (s *FileStore) Mutate(mutate func(*domain.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneState(s.state)
	if err := mutate(&next); err != nil {
		return err
	}

	s.state = withDefaults(next)
	return s.persistLocked()
}

func (s *FileStore) persistLocked() error {
	serialized, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return domain.Internal("failed to serialize state", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, append(serialized, '\n'), 0o600); err != nil {
		return domain.Internal("failed to write temporary state file", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return domain.Internal("failed to atomically persist state file", err)
	}
	return nil
}

func withDefaults(state domain.State) domain.State {
	if state.Sessions == nil {
		state.Sessions = []domain.ValidationSession{}
	}
	if state.Errors == nil {
		state.Errors = []domain.ErrorEvent{}
	}
	if len(state.Errors) > maxErrorEvents {
		state.Errors = state.Errors[len(state.Errors)-maxErrorEvents:]
	}
	return state
}

func cloneState(in domain.State) domain.State {
	raw, _ := json.Marshal(in)
	var out domain.State
	_ = json.Unmarshal(raw, &out)
	return withDefaults(out)
}

func (s *FileStore) ExportState() (domain.State, error) {
	return s.Snapshot(), nil
}

func (s *FileStore) ListSessions() ([]domain.ValidationSession, error) {
	return s.Snapshot().Sessions, nil
}

func (s *FileStore) GetSession(id string) (domain.ValidationSession, bool, error) {
	for _, session := range s.Snapshot().Sessions {
		if session.ID == id {
			return session, true, nil
		}
	}
	return domain.ValidationSession{}, false, nil
}

func (s *FileStore) InsertSession(session domain.ValidationSession) error {
	return s.Mutate(func(state *domain.State) error {
		for i := range state.Sessions {
			if state.Sessions[i].ID == session.ID {
				return domain.Conflict("session already exists: " + session.ID)
			}
		}
		state.Sessions = append(state.Sessions, session)
		return nil
	})
}

func (s *FileStore) UpdateSession(session domain.ValidationSession) error {
	return s.Mutate(func(state *domain.State) error {
		for i := range state.Sessions {
			if state.Sessions[i].ID == session.ID {
				state.Sessions[i] = session
				return nil
			}
		}
		return domain.NotFound("session not found: " + session.ID)
	})
}

func (s *FileStore) InsertError(event domain.ErrorEvent) error {
	return s.Mutate(func(state *domain.State) error {
		state.Errors = append(state.Errors, event)
		return nil
	})
}

func (s *FileStore) RecentErrors(limit int) ([]domain.ErrorEvent, error) {
	events := s.Snapshot().Errors
	if limit <= 0 || limit >= len(events) {
		return events, nil
	}
	return events[len(events)-limit:], nil
}
