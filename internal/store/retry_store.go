package store

import (
	"context"

	"github.com/venturahq/ventura/internal/domain"
	"github.com/venturahq/ventura/internal/retry"
)

// RetryingStore routes every persistence call through the executor's
// database class, so a transient storage failure is retried instead of
// surfacing to the caller, and repeated failures trip the database breaker.
// Calls run under context.Background: a cancelled session still has to
// persist its final state.
type RetryingStore struct {
	inner  SessionStore
	exec   *retry.Executor
	policy retry.Policy
}

func NewRetryingStore(inner SessionStore, exec *retry.Executor) *RetryingStore {
	return &RetryingStore{inner: inner, exec: exec, policy: retry.DatabasePolicy}
}

func (s *RetryingStore) Load() error {
	return s.run(func() error { return s.inner.Load() })
}

// Close is not retried; shutdown should not wait out a backoff schedule.
func (s *RetryingStore) Close() error {
	return s.inner.Close()
}

func (s *RetryingStore) ExportState() (domain.State, error) {
	return call(s, func() (domain.State, error) { return s.inner.ExportState() })
}

func (s *RetryingStore) ListSessions() ([]domain.ValidationSession, error) {
	return call(s, func() ([]domain.ValidationSession, error) { return s.inner.ListSessions() })
}

func (s *RetryingStore) GetSession(id string) (domain.ValidationSession, bool, error) {
	type lookup struct {
		session domain.ValidationSession
		found   bool
	}
	result, err := call(s, func() (lookup, error) {
		session, found, err := s.inner.GetSession(id)
		return lookup{session: session, found: found}, err
	})
	return result.session, result.found, err
}

func (s *RetryingStore) InsertSession(session domain.ValidationSession) error {
	return s.run(func() error { return s.inner.InsertSession(session) })
}

func (s *RetryingStore) UpdateSession(session domain.ValidationSession) error {
	return s.run(func() error { return s.inner.UpdateSession(session) })
}

func (s *RetryingStore) InsertError(event domain.ErrorEvent) error {
	return s.run(func() error { return s.inner.InsertError(event) })
}

func (s *RetryingStore) RecentErrors(limit int) ([]domain.ErrorEvent, error) {
	return call(s, func() ([]domain.ErrorEvent, error) { return s.inner.RecentErrors(limit) })
}

func (s *RetryingStore) run(op func() error) error {
	_, err := call(s, func() (struct{}, error) { return struct{}{}, op() })
	return err
}

func call[T any](s *RetryingStore, op func() (T, error)) (T, error) {
	value, _, err := retry.Do(context.Background(), s.exec, retry.ClassDatabase, s.policy, func(context.Context) (T, error) {
		return op()
	})
	return value, err
}
