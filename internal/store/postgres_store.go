package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/venturahq/ventura/internal/domain"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStore struct {
	db *sql.DB
}

const (
	defaultDBMaxOpenConns    = 25
	defaultDBMaxIdleConns    = 10
	defaultDBConnMaxLifetime = 30 * time.Minute
	defaultDBConnMaxIdleTime = 5 * time.Minute
	defaultDBPingTimeout     = 5 * time.Second
)

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, domain.InvalidArgument("DATABASE_URL is required when STORE_DRIVER=postgres")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, domain.Internal("failed to open postgres connection", err)
	}
	db.SetMaxOpenConns(defaultDBMaxOpenConns)
	db.SetMaxIdleConns(defaultDBMaxIdleConns)
	db.SetConnMaxLifetime(defaultDBConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultDBConnMaxIdleTime)

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Load() error {
	pingCtx, cancel := context.WithTimeout(context.Background(), defaultDBPingTimeout)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		return domain.Internal("failed to connect to postgres", err)
	}
	return s.verifySchemaReady()
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) verifySchemaReady() error {
	requiredTables := []string{
		"validation_sessions",
		"error_events",
	}
	for _, tableName := range requiredTables {
		var exists bool
		if err := s.db.QueryRow(`SELECT to_regclass($1) IS NOT NULL`, "public."+tableName).Scan(&exists); err != nil {
			return domain.Internal("failed to verify database schema", err)
		}
		if !exists {
			return domain.FailedPrecondition(fmt.Sprintf("required table %q is missing; run database migrations before starting ventura", tableName))
		}
	}
	return nil
}

func (s *PostgresStore) ExportState() (domain.State, error) {
	sessions, err := s.ListSessions()
	if err != nil {
		return domain.State{}, err
	}
	errorEvents, err := s.RecentErrors(maxErrorEvents)
	if err != nil {
		return domain.State{}, err
	}
	return withDefaults(domain.State{Sessions: sessions, Errors: errorEvents}), nil
}

// Sessions are stored as one row each with the full document in a jsonb
// payload. The hot filter columns (mode, state) are split out for queries.
func (s *PostgresStore) ListSessions() ([]domain.ValidationSession, error) {
	rows, err := s.db.Query(`
		SELECT payload
		FROM validation_sessions
		ORDER BY started_at ASC, id ASC
	`)
	if err != nil {
		return nil, domain.Internal("failed to list sessions", err)
	}
	defer rows.Close()

	sessions := []domain.ValidationSession{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, domain.Internal("failed to scan session row", err)
		}
		var session domain.ValidationSession
		if err := json.Unmarshal(payload, &session); err != nil {
			return nil, domain.Internal("failed to decode session payload", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("failed to iterate session rows", err)
	}
	return sessions, nil
}

func (s *PostgresStore) GetSession(id string) (domain.ValidationSession, bool, error) {
	var payload []byte
	err := s.db.QueryRow(`
		SELECT payload
		FROM validation_sessions
		WHERE id = $1
	`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.ValidationSession{}, false, nil
	}
	if err != nil {
		return domain.ValidationSession{}, false, domain.Internal("failed to get session", err)
	}
	var session domain.ValidationSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return domain.ValidationSession{}, false, domain.Internal("failed to decode session payload", err)
	}
	return session, true, nil
}

func (s *PostgresStore) InsertSession(session domain.ValidationSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return domain.Internal("failed to encode session", err)
	}
	result, err := s.db.Exec(`
		INSERT INTO validation_sessions (id, mode, state, payload, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, session.ID, string(session.Mode), string(session.State), payload, session.StartedAt, nullableString(session.EndedAt))
	if err != nil {
		return domain.Internal("failed to insert session", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Internal("failed to read insert result", err)
	}
	if affected == 0 {
		return domain.Conflict("session already exists: " + session.ID)
	}
	return nil
}

func (s *PostgresStore) UpdateSession(session domain.ValidationSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return domain.Internal("failed to encode session", err)
	}
	result, err := s.db.Exec(`
		UPDATE validation_sessions
		SET mode = $2, state = $3, payload = $4, started_at = $5, ended_at = $6
		WHERE id = $1
	`, session.ID, string(session.Mode), string(session.State), payload, session.StartedAt, nullableString(session.EndedAt))
	if err != nil {
		return domain.Internal("failed to update session", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Internal("failed to read update result", err)
	}
	if affected == 0 {
		return domain.NotFound("session not found: " + session.ID)
	}
	return nil
}

func (s *PostgresStore) InsertError(event domain.ErrorEvent) error {
	if _, err := s.db.Exec(`
		INSERT INTO error_events (code, message, source, created_at)
		VALUES ($1, $2, $3, $4)
	`, event.Code, event.Message, event.Source, event.CreatedAt); err != nil {
		return domain.Internal("failed to insert error event", err)
	}
	return nil
}

func (s *PostgresStore) RecentErrors(limit int) ([]domain.ErrorEvent, error) {
	if limit <= 0 {
		limit = maxErrorEvents
	}
	rows, err := s.db.Query(`
		SELECT code, message, source, created_at
		FROM (
			SELECT code, message, source, created_at
			FROM error_events
			ORDER BY created_at DESC
			LIMIT $1
		) recent
		ORDER BY created_at ASC
	`, limit)
	if err != nil {
		return nil, domain.Internal("failed to list error events", err)
	}
	defer rows.Close()

	events := []domain.ErrorEvent{}
	for rows.Next() {
		var event domain.ErrorEvent
		if err := rows.Scan(&event.Code, &event.Message, &event.Source, &event.CreatedAt); err != nil {
			return nil, domain.Internal("failed to scan error event", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal("failed to iterate error events", err)
	}
	return events, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
