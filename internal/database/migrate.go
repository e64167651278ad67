package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at startup under an advisory lock so that several
// replicas can start concurrently. Every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS categories (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS locations (
	id  TEXT PRIMARY KEY,
	lat DOUBLE PRECISION NOT NULL,
	lon DOUBLE PRECISION NOT NULL,
	UNIQUE (lat, lon)
);

CREATE TABLE IF NOT EXISTS events (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	annotation         TEXT NOT NULL,
	description        TEXT NOT NULL,
	category_id        TEXT NOT NULL REFERENCES categories (id),
	initiator_id       TEXT NOT NULL REFERENCES users (id),
	location_id        TEXT NOT NULL REFERENCES locations (id),
	event_date         TIMESTAMPTZ NOT NULL,
	state              TEXT NOT NULL,
	paid               BOOLEAN NOT NULL DEFAULT FALSE,
	participant_limit  INTEGER NOT NULL DEFAULT 0 CHECK (participant_limit >= 0),
	request_moderation BOOLEAN NOT NULL DEFAULT TRUE,
	confirmed_requests INTEGER NOT NULL DEFAULT 0 CHECK (confirmed_requests >= 0),
	created_on         TIMESTAMPTZ NOT NULL,
	published_on       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS ix_events_state_date ON events (state, event_date);
CREATE INDEX IF NOT EXISTS ix_events_initiator ON events (initiator_id);

CREATE TABLE IF NOT EXISTS requests (
	id           TEXT PRIMARY KEY,
	requester_id TEXT NOT NULL REFERENCES users (id),
	event_id     TEXT NOT NULL REFERENCES events (id),
	created      TIMESTAMPTZ NOT NULL,
	status       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS ix_requests_event ON requests (event_id);
CREATE INDEX IF NOT EXISTS ix_requests_requester ON requests (requester_id);

-- At most one active (non-canceled) request per requester and event.
CREATE UNIQUE INDEX IF NOT EXISTS uq_requests_active
	ON requests (requester_id, event_id) WHERE status <> 'CANCELED';
`

const migrationLockID int64 = 730155201

// Migrate applies the schema, serialising concurrent starters with an
// advisory lock.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
