package archive

import "database/sql"

// migrate creates the schema if it doesn't exist.
func migrate(db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS archived_sessions (
			id          TEXT PRIMARY KEY,
			session_id  TEXT NOT NULL,
			session     TEXT NOT NULL,
			specialized TEXT NOT NULL DEFAULT '{}',
			archived_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS archived_sessions_session_id
			ON archived_sessions(session_id);

		CREATE TABLE IF NOT EXISTS failover_transitions (
			id          TEXT PRIMARY KEY,
			agent_id    TEXT NOT NULL,
			from_status TEXT NOT NULL,
			to_status   TEXT NOT NULL,
			reason      TEXT NOT NULL DEFAULT '',
			occurred_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS failover_transitions_agent_id
			ON failover_transitions(agent_id);
	`
	_, err := db.Exec(schema)
	return err
}
