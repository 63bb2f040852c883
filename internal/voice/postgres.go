package voice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nexuscrm/internal/auth"
	"nexuscrm/internal/clients"
	"nexuscrm/pkg/utils"

	"github.com/google/uuid"
)

// PostgresStore implements Store on nexuscrm.voice_calls.
//
// User-facing methods run inside utils.WithTenantTx like the CRM stores.
// Webhook-path methods run on the plain connection: they are keyed by the
// provider's call id, which is unguessable and unique across tenants.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

const callColumns = `
id, organization_id, contact_id, activity_id, campaign_id,
external_call_id, phone_number, status, script, first_message,
started_at, ended_at, duration_seconds,
transcript, recording_url, ended_reason,
sentiment, topics, objections, action_items, deal_score, summary, analysis,
created_at, updated_at
`

func scanCall(row interface{ Scan(...any) error }, c *Call) error {
	// Lifecycle and analysis columns stay NULL until the matching webhook or
	// analysis pass fills them in; every one needs a Null destination.
	var contactID, activityID, campaignID, externalCallID sql.NullString
	var transcript, recordingURL, endedReason, sentiment, summary sql.NullString
	var durationSeconds, dealScore sql.NullInt64
	var topics, objections, actionItems, analysis []byte
	err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&contactID,
		&activityID,
		&campaignID,
		&externalCallID,
		&c.PhoneNumber,
		&c.Status,
		&c.Script,
		&c.FirstMessage,
		&c.StartedAt,
		&c.EndedAt,
		&durationSeconds,
		&transcript,
		&recordingURL,
		&endedReason,
		&sentiment,
		&topics,
		&objections,
		&actionItems,
		&dealScore,
		&summary,
		&analysis,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	c.ContactID = contactID.String
	c.ActivityID = activityID.String
	c.CampaignID = campaignID.String
	c.ExternalCallID = externalCallID.String
	c.DurationSeconds = int(durationSeconds.Int64)
	c.Transcript = transcript.String
	c.RecordingURL = recordingURL.String
	c.EndedReason = endedReason.String
	c.Sentiment = sentiment.String
	c.DealScore = int(dealScore.Int64)
	c.Summary = summary.String
	c.Analysis = analysis
	for _, pair := range []struct {
		raw []byte
		dst *[]string
	}{
		{topics, &c.Topics},
		{objections, &c.Objections},
		{actionItems, &c.ActionItems},
	} {
		if len(pair.raw) > 0 {
			if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
				return fmt.Errorf("decode call list field: %w", err)
			}
		}
	}
	return nil
}

func (s *PostgresStore) CreateCall(ctx context.Context, tc auth.TenantContext, c *Call) error {
	if c == nil || c.PhoneNumber == "" {
		return fmt.Errorf("%w: phone number is required", ErrInvalidArgument)
	}
	now := s.clock().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.OrganizationID = tc.OrganizationID()
	if c.Status == "" {
		c.Status = CallStatusInitiated
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	const q = `
INSERT INTO nexuscrm.voice_calls (
  id, organization_id, contact_id, activity_id, campaign_id,
  external_call_id, phone_number, status, script, first_message,
  created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
`
	return utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			c.ID, c.OrganizationID, nullString(c.ContactID), nullString(c.ActivityID),
			nullString(c.CampaignID), nullString(c.ExternalCallID), c.PhoneNumber,
			c.Status, c.Script, c.FirstMessage, c.CreatedAt, c.UpdatedAt,
		)
		return err
	})
}

func (s *PostgresStore) GetCall(ctx context.Context, tc auth.TenantContext, id string) (Call, error) {
	q := `SELECT ` + callColumns + ` FROM nexuscrm.voice_calls WHERE id = $1`
	var c Call
	err := utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		return scanCall(tx.QueryRowContext(ctx, q, id), &c)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	if err != nil {
		return Call{}, err
	}
	return c, nil
}

func (s *PostgresStore) ListCalls(ctx context.Context, tc auth.TenantContext, f CallFilter, limit, offset int) ([]Call, error) {
	conds := []string{"TRUE"}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.ContactID != nil {
		add("contact_id", *f.ContactID)
	}
	if f.CampaignID != nil {
		add("campaign_id", *f.CampaignID)
	}
	if f.Status != nil {
		add("status", string(*f.Status))
	}
	args = append(args, clampLimit(limit))
	l := len(args)
	args = append(args, clampOffset(offset))
	q := fmt.Sprintf(`SELECT %s FROM nexuscrm.voice_calls WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		callColumns, strings.Join(conds, " AND "), l, l+1)

	var out []Call
	err := utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c Call
			if err := scanCall(rows, &c); err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) SetExternalCallID(ctx context.Context, tc auth.TenantContext, id, externalCallID string) error {
	const q = `
UPDATE nexuscrm.voice_calls
SET external_call_id = $2, updated_at = $3
WHERE id = $1
`
	return utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, id, externalCallID, s.clock().UTC())
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

func (s *PostgresStore) MarkCallFailed(ctx context.Context, tc auth.TenantContext, id, reason string) error {
	const q = `
UPDATE nexuscrm.voice_calls
SET status = $2, ended_reason = $3, ended_at = $4, updated_at = $4
WHERE id = $1
`
	return utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, id, CallStatusFailed, reason, s.clock().UTC())
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

func (s *PostgresStore) GetCallByExternalID(ctx context.Context, externalCallID string) (Call, error) {
	q := `SELECT ` + callColumns + ` FROM nexuscrm.voice_calls WHERE external_call_id = $1`
	var c Call
	err := scanCall(s.db.QueryRowContext(ctx, q, externalCallID), &c)
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	if err != nil {
		return Call{}, err
	}
	return c, nil
}

// ApplyStatusUpdate merges an event into the call row. COALESCE keeps values
// from earlier events when the current one omits a field.
func (s *PostgresStore) ApplyStatusUpdate(ctx context.Context, externalCallID string, u StatusUpdate) (Call, error) {
	if u.Status == "" {
		return Call{}, fmt.Errorf("%w: status is required", ErrInvalidArgument)
	}
	q := `
UPDATE nexuscrm.voice_calls
SET status = $2,
    started_at = COALESCE($3, started_at),
    ended_at = COALESCE($4, ended_at),
    duration_seconds = COALESCE($5, duration_seconds),
    transcript = COALESCE($6, transcript),
    recording_url = COALESCE($7, recording_url),
    ended_reason = COALESCE($8, ended_reason),
    updated_at = $9
WHERE external_call_id = $1
RETURNING ` + callColumns

	var c Call
	err := scanCall(s.db.QueryRowContext(ctx, q,
		externalCallID, u.Status, u.StartedAt, u.EndedAt, u.DurationSeconds,
		u.Transcript, u.RecordingURL, u.EndedReason, s.clock().UTC(),
	), &c)
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	if err != nil {
		return Call{}, err
	}
	return c, nil
}

// SetAnalysis writes the transcript analysis onto the call row and, when the
// call has a linked activity, mirrors the outcome onto that activity.
func (s *PostgresStore) SetAnalysis(ctx context.Context, callID string, a clients.CallAnalysis, raw json.RawMessage) error {
	topics, err := json.Marshal(a.Topics)
	if err != nil {
		return err
	}
	objections, err := json.Marshal(a.Objections)
	if err != nil {
		return err
	}
	actionItems, err := json.Marshal(a.ActionItems)
	if err != nil {
		return err
	}
	now := s.clock().UTC()

	const callQ = `
UPDATE nexuscrm.voice_calls
SET sentiment = $2, topics = $3, objections = $4, action_items = $5,
    deal_score = $6, summary = $7, analysis = $8, updated_at = $9
WHERE id = $1
RETURNING activity_id, duration_seconds
`
	const activityQ = `
UPDATE nexuscrm.activities
SET body = $2, call_duration_seconds = $3, metadata = $4, updated_at = $5
WHERE id = $1
`
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var activityID sql.NullString
		var duration int
		err := tx.QueryRowContext(ctx, callQ,
			callID, a.Sentiment, topics, objections, actionItems,
			a.DealScore, a.Summary, nullJSON(raw), now,
		).Scan(&activityID, &duration)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !activityID.Valid {
			return nil
		}
		meta, err := json.Marshal(map[string]any{
			"sentiment":  a.Sentiment,
			"outcome":    a.Outcome,
			"deal_score": a.DealScore,
		})
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, activityQ, activityID.String, a.Summary, duration, meta, now)
		return err
	})
}

func clampLimit(limit int) int {
	const def, max = 50, 200
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
