package store

import "github.com/venturahq/ventura/internal/domain"

// SessionStore is the persistence contract used by the service layer.
type SessionStore interface {
	Load() error
	Close() error

	ExportState() (domain.State, error)

	ListSessions() ([]domain.ValidationSession, error)
	GetSession(id string) (domain.ValidationSession, bool, error)
	InsertSession(domain.ValidationSession) error
	UpdateSession(domain.ValidationSession) error

	InsertError(domain.ErrorEvent) error
	RecentErrors(limit int) ([]domain.ErrorEvent, error)
}

// Retained error events are capped; older ones roll off.
const maxErrorEvents = 200
