package outbox

import (
	"context"
	"database/sql"
	"time"
)

// EnqueueTx inserts an entry inside the caller's transaction. This is the only
// write path: an intent either commits with its primary row or not at all.
func EnqueueTx(ctx context.Context, tx *sql.Tx, e Entry) error {
	const q = `
INSERT INTO nexuscrm.outbox (
  id, organization_id, kind, payload, attempts, next_attempt_at, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7
)
`
	_, err := tx.ExecContext(ctx, q,
		e.ID,
		e.OrganizationID,
		e.Kind,
		[]byte(e.Payload),
		e.Attempts,
		e.NextAttemptAt,
		e.CreatedAt,
	)
	return err
}

// PostgresStore drains the outbox table. Draining runs outside tenant context:
// the worker is a trusted internal actor operating across organizations.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Due(ctx context.Context, now time.Time, limit int) ([]Entry, error) {
	const q = `
SELECT id, organization_id, kind, payload, attempts, next_attempt_at, COALESCE(last_error, ''), created_at
FROM nexuscrm.outbox
WHERE done_at IS NULL AND dead_at IS NULL AND next_attempt_at <= $1
ORDER BY next_attempt_at
LIMIT $2
`
	rows, err := s.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var payload []byte
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.Kind, &payload, &e.Attempts, &e.NextAttemptAt, &e.LastError, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkDone(ctx context.Context, id string) error {
	const q = `UPDATE nexuscrm.outbox SET done_at = now() WHERE id = $1`
	_, err := s.db.ExecContext(ctx, q, id)
	return err
}

func (s *PostgresStore) Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	const q = `
UPDATE nexuscrm.outbox
SET attempts = $2, next_attempt_at = $3, last_error = $4
WHERE id = $1
`
	_, err := s.db.ExecContext(ctx, q, id, attempts, next, lastErr)
	return err
}

func (s *PostgresStore) MarkDead(ctx context.Context, id string, lastErr string) error {
	const q = `UPDATE nexuscrm.outbox SET dead_at = now(), last_error = $2 WHERE id = $1`
	_, err := s.db.ExecContext(ctx, q, id, lastErr)
	return err
}
