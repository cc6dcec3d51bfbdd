// Package archive persists archived guidance sessions and failover
// transitions in a local SQLite database.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"agenthub/internal/domain"
	"agenthub/internal/usecase/consult"
	"agenthub/internal/usecase/guidance"
)

// ArchivedSession is one archived session row read back from the store.
type ArchivedSession struct {
	Session     guidance.SessionSnapshot
	Specialized map[guidance.Family]map[string][]string
	ArchivedAt  time.Time
}

// Transition is one recorded failover status change.
type Transition struct {
	AgentID    string
	From       consult.FailoverStatus
	To         consult.FailoverStatus
	Reason     string
	OccurredAt time.Time
}

// Store implements guidance.Archiver and consult.TransitionRecorder backed
// by SQLite. Archived sessions keep the full snapshot plus the specialized
// contexts that existed at archival time, so a session can be inspected
// long after the guidance manager dropped it.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	dbPath string
}

var (
	_ guidance.Archiver          = (*Store)(nil)
	_ consult.TransitionRecorder = (*Store)(nil)
)

// New opens (or creates) a SQLite database at dbPath, runs migrations, and
// returns a ready Store.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", domain.ErrArchiveStore, err)
	}

	// SQLite write safety: single writer.
	db.SetMaxOpenConns(1)

	// Pragmas for performance.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: pragma: %v", domain.ErrArchiveStore, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrArchiveStore, err)
	}

	return &Store{
		db:     db,
		logger: logger,
		dbPath: dbPath,
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ArchiveSession implements guidance.Archiver.
func (s *Store) ArchiveSession(ctx context.Context, session guidance.SessionSnapshot, specialized map[guidance.Family]map[string][]string) error {
	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%w: marshal session: %v", domain.ErrArchiveStore, err)
	}
	if specialized == nil {
		specialized = map[guidance.Family]map[string][]string{}
	}
	specializedJSON, err := json.Marshal(specialized)
	if err != nil {
		return fmt.Errorf("%w: marshal specialized contexts: %v", domain.ErrArchiveStore, err)
	}

	const insert = `
		INSERT INTO archived_sessions (id, session_id, session, specialized, archived_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, insert,
		domain.NewID(),
		session.SessionID,
		string(sessionJSON),
		string(specializedJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: insert session %q: %v", domain.ErrArchiveStore, session.SessionID, err)
	}

	s.logger.Debug("session archived", "session_id", session.SessionID)
	return nil
}

// LoadSession returns the most recently archived row for sessionID.
func (s *Store) LoadSession(ctx context.Context, sessionID string) (ArchivedSession, error) {
	const query = `
		SELECT session, specialized, archived_at
		FROM archived_sessions
		WHERE session_id = ?
		ORDER BY archived_at DESC
		LIMIT 1
	`
	var (
		archived        ArchivedSession
		sessionJSON     string
		specializedJSON string
		archivedAt      string
	)
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&sessionJSON, &specializedJSON, &archivedAt)
	if err == sql.ErrNoRows {
		return archived, domain.NewDomainError("Archive.LoadSession", domain.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return archived, fmt.Errorf("%w: load session %q: %v", domain.ErrArchiveStore, sessionID, err)
	}

	if err := json.Unmarshal([]byte(sessionJSON), &archived.Session); err != nil {
		return archived, fmt.Errorf("%w: unmarshal session %q: %v", domain.ErrArchiveStore, sessionID, err)
	}
	if err := json.Unmarshal([]byte(specializedJSON), &archived.Specialized); err != nil {
		return archived, fmt.Errorf("%w: unmarshal specialized contexts %q: %v", domain.ErrArchiveStore, sessionID, err)
	}
	if t, err := time.Parse(time.RFC3339, archivedAt); err == nil {
		archived.ArchivedAt = t
	}
	return archived, nil
}

// RecordTransition implements consult.TransitionRecorder.
func (s *Store) RecordTransition(ctx context.Context, agentID string, from, to consult.FailoverStatus, reason string) error {
	const insert = `
		INSERT INTO failover_transitions (id, agent_id, from_status, to_status, reason, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, insert,
		domain.NewID(),
		agentID,
		string(from),
		string(to),
		reason,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: record transition for %q: %v", domain.ErrArchiveStore, agentID, err)
	}
	return nil
}

// Transitions returns recorded status changes for agentID, oldest first.
func (s *Store) Transitions(ctx context.Context, agentID string) ([]Transition, error) {
	const query = `
		SELECT agent_id, from_status, to_status, reason, occurred_at
		FROM failover_transitions
		WHERE agent_id = ?
		ORDER BY occurred_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("%w: query transitions for %q: %v", domain.ErrArchiveStore, agentID, err)
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var (
			tr         Transition
			from       string
			to         string
			occurredAt string
		)
		if err := rows.Scan(&tr.AgentID, &from, &to, &tr.Reason, &occurredAt); err != nil {
			return nil, fmt.Errorf("%w: scan transition: %v", domain.ErrArchiveStore, err)
		}
		tr.From = consult.FailoverStatus(from)
		tr.To = consult.FailoverStatus(to)
		if t, err := time.Parse(time.RFC3339, occurredAt); err == nil {
			tr.OccurredAt = t
		}
		transitions = append(transitions, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate transitions: %v", domain.ErrArchiveStore, err)
	}
	return transitions, nil
}
