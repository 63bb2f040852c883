package crm

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nexuscrm/internal/auth"
	"nexuscrm/internal/outbox"
	"nexuscrm/pkg/utils"

	"github.com/google/uuid"
)

// PostgresStore implements Store on the shared nexuscrm.* schema.
// Every method runs inside utils.WithTenantTx so row-level-security policies
// see the caller's organization id; no query filters by tenant ad hoc.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

/* ===================== CONTACTS ===================== */

const contactColumns = `
id, organization_id, first_name, last_name, email, phone, title, company_id,
lead_score, lead_status, lifecycle_stage,
do_not_call, do_not_email, email_bounced, unsubscribed,
enrichment, custom_fields, owner_id, created_at, updated_at, deleted_at
`

func scanContact(row interface{ Scan(...any) error }, c *Contact) error {
	var companyID sql.NullString
	var enrichment, customFields []byte
	err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&c.Title,
		&companyID,
		&c.LeadScore,
		&c.LeadStatus,
		&c.LifecycleStage,
		&c.DoNotCall,
		&c.DoNotEmail,
		&c.EmailBounced,
		&c.Unsubscribed,
		&enrichment,
		&customFields,
		&c.OwnerID,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	if err != nil {
		return err
	}
	c.CompanyID = companyID.String
	c.Enrichment = enrichment
	c.CustomFields = customFields
	return nil
}

func (s *PostgresStore) CreateContact(ctx context.Context, tc auth.TenantContext, c *Contact, intents []outbox.Entry) error {
	if c == nil {
		return ErrInvalidArgument
	}
	now := s.clock().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.OrganizationID = tc.OrganizationID()
	if c.LeadStatus == "" {
		c.LeadStatus = LeadStatusNew
	}
	if c.LifecycleStage == "" {
		c.LifecycleStage = LifecycleStageLead
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	const q = `
INSERT INTO nexuscrm.contacts (
  id, organization_id, first_name, last_name, email, phone, title, company_id,
  lead_score, lead_status, lifecycle_stage,
  do_not_call, do_not_email, email_bounced, unsubscribed,
  enrichment, custom_fields, owner_id, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20
)
`
	return utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			c.ID,
			c.OrganizationID,
			c.FirstName,
			c.LastName,
			c.Email,
			c.Phone,
			c.Title,
			nullString(c.CompanyID),
			c.LeadScore,
			c.LeadStatus,
			c.LifecycleStage,
			c.DoNotCall,
			c.DoNotEmail,
			c.EmailBounced,
			c.Unsubscribed,
			nullJSON(c.Enrichment),
			nullJSON(c.CustomFields),
			c.OwnerID,
			c.CreatedAt,
			c.UpdatedAt,
		)
		if err != nil {
			return err
		}
		for _, e := range intents {
			if err := outbox.EnqueueTx(ctx, tx, e); err != nil {
				return fmt.Errorf("enqueue %s: %w", e.Kind, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) GetContact(ctx context.Context, tc auth.TenantContext, id string) (Contact, error) {
	q := `SELECT ` + contactColumns + ` FROM nexuscrm.contacts WHERE id = $1 AND deleted_at IS NULL`
	var c Contact
	err := utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		return scanContact(tx.QueryRowContext(ctx, q, id), &c)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, err
	}
	return c, nil
}

func (s *PostgresStore) ListContacts(ctx context.Context, tc auth.TenantContext, f ContactFilter, limit, offset int) ([]Contact, error) {
	b := newWhereBuilder()
	f.apply(b)
	page := b.page(limit, offset)
	q := `SELECT ` + contactColumns + ` FROM nexuscrm.contacts ` + b.clause() + ` ORDER BY created_at DESC ` + page

	var out []Contact
	err := utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, q, b.args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c Contact
			if err := scanContact(rows, &c); err != nil {
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

func (s *PostgresStore) UpdateContact(ctx context.Context, tc auth.TenantContext, id string, u ContactUpdate) (Contact, error) {
	if u.empty() {
		return Contact{}, fmt.Errorf("%w: no fields to update", ErrInvalidArgument)
	}

	// Only columns present in the update reach the SET clause.
	set := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.FirstName != nil {
		add("first_name", *u.FirstName)
	}
	if u.LastName != nil {
		add("last_name", *u.LastName)
	}
	if u.Email != nil {
		add("email", *u.Email)
	}
	if u.Phone != nil {
		add("phone", *u.Phone)
	}
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.CompanyID != nil {
		add("company_id", nullString(*u.CompanyID))
	}
	if u.LeadScore != nil {
		add("lead_score", *u.LeadScore)
	}
	if u.LeadStatus != nil {
		add("lead_status", string(*u.LeadStatus))
	}
	if u.LifecycleStage != nil {
		add("lifecycle_stage", string(*u.LifecycleStage))
	}
	if u.DoNotCall != nil {
		add("do_not_call", *u.DoNotCall)
	}
	if u.DoNotEmail != nil {
		add("do_not_email", *u.DoNotEmail)
	}
	if u.EmailBounced != nil {
		add("email_bounced", *u.EmailBounced)
	}
	if u.Unsubscribed != nil {
		add("unsubscribed", *u.Unsubscribed)
	}
	if u.OwnerID != nil {
		add("owner_id", *u.OwnerID)
	}
	if u.CustomFields != nil {
		add("custom_fields", []byte(u.CustomFields))
	}
	add("updated_at", s.clock().UTC())

	args = append(args, id)
	q := fmt.Sprintf(`
UPDATE nexuscrm.contacts
SET %s
WHERE id = $%d AND deleted_at IS NULL
RETURNING %s`, strings.Join(set, ", "), len(args), contactColumns)

	var c Contact
	err := utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		return scanContact(tx.QueryRowContext(ctx, q, args...), &c)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, err
	}
	return c, nil
}

func (s *PostgresStore) SoftDeleteContact(ctx context.Context, tc auth.TenantContext, id string) error {
	const q = `
UPDATE nexuscrm.contacts
SET deleted_at = $2, updated_at = $2
WHERE id = $1 AND deleted_at IS NULL
`
	return utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, id, s.clock().UTC())
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

func (s *PostgresStore) SetContactEnrichment(ctx context.Context, tc auth.TenantContext, id string, enrichment json.RawMessage) error {
	const q = `
UPDATE nexuscrm.contacts
SET enrichment = $2, updated_at = $3
WHERE id = $1 AND deleted_at IS NULL
`
	return utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, id, []byte(enrichment), s.clock().UTC())
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

/* ===================== COMPANIES ===================== */

const companyColumns = `
id, organization_id, name, domain, industry, employee_count, address,
enrichment, owner_id, created_at, updated_at, deleted_at
`

func scanCompany(row interface{ Scan(...any) error }, c *Company) error {
	var enrichment []byte
	err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.Name,
		&c.Domain,
		&c.Industry,
		&c.EmployeeCount,
		&c.Address,
		&enrichment,
		&c.OwnerID,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	if err != nil {
		return err
	}
	c.Enrichment = enrichment
	return nil
}

func (s *PostgresStore) CreateCompany(ctx context.Context, tc auth.TenantContext, c *Company) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("%w: company name is required", ErrInvalidArgument)
	}
	now := s.clock().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.OrganizationID = tc.OrganizationID()
	c.CreatedAt = now
	c.UpdatedAt = now

	const q = `
INSERT INTO nexuscrm.companies (
  id, organization_id, name, domain, industry, employee_count, address,
  enrichment, owner_id, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
`
	return utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			c.ID, c.OrganizationID, c.Name, c.Domain, c.Industry, c.EmployeeCount,
			c.Address, nullJSON(c.Enrichment), c.OwnerID, c.CreatedAt, c.UpdatedAt,
		)
		return err
	})
}

func (s *PostgresStore) GetCompany(ctx context.Context, tc auth.TenantContext, id string) (Company, error) {
	q := `SELECT ` + companyColumns + ` FROM nexuscrm.companies WHERE id = $1 AND deleted_at IS NULL`
	var c Company
	err := utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		return scanCompany(tx.QueryRowContext(ctx, q, id), &c)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Company{}, ErrNotFound
	}
	if err != nil {
		return Company{}, err
	}
	return c, nil
}

func (s *PostgresStore) ListCompanies(ctx context.Context, tc auth.TenantContext, f CompanyFilter, limit, offset int) ([]Company, error) {
	b := newWhereBuilder()
	f.apply(b)
	page := b.page(limit, offset)
	q := `SELECT ` + companyColumns + ` FROM nexuscrm.companies ` + b.clause() + ` ORDER BY created_at DESC ` + page

	var out []Company
	err := utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, q, b.args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c Company
			if err := scanCompany(rows, &c); err != nil {
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

/* ===================== DEALS ===================== */

const dealColumns = `
id, organization_id, contact_id, company_id, name, amount, currency, stage, probability,
expected_close_date, closed_at, lost_reason, lost_reason_detail,
owner_id, created_at, updated_at, deleted_at
`

func scanDeal(row interface{ Scan(...any) error }, d *Deal) error {
	var contactID, companyID, lostReason, lostReasonDetail sql.NullString
	err := row.Scan(
		&d.ID,
		&d.OrganizationID,
		&contactID,
		&companyID,
		&d.Name,
		&d.Amount,
		&d.Currency,
		&d.Stage,
		&d.Probability,
		&d.ExpectedCloseDate,
		&d.ClosedAt,
		&lostReason,
		&lostReasonDetail,
		&d.OwnerID,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.DeletedAt,
	)
	if err != nil {
		return err
	}
	d.ContactID = contactID.String
	d.CompanyID = companyID.String
	d.LostReason = lostReason.String
	d.LostReasonDetail = lostReasonDetail.String
	return nil
}

func (s *PostgresStore) CreateDeal(ctx context.Context, tc auth.TenantContext, d *Deal) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("%w: deal name is required", ErrInvalidArgument)
	}
	now := s.clock().UTC()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.OrganizationID = tc.OrganizationID()
	if d.Currency == "" {
		d.Currency = "USD"
	}
	if d.Stage == "" {
		d.Stage = "new"
	}
	d.CreatedAt = now
	d.UpdatedAt = now

	const q = `
INSERT INTO nexuscrm.deals (
  id, organization_id, contact_id, company_id, name, amount, currency, stage, probability,
  expected_close_date, owner_id, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)
`
	return utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			d.ID, d.OrganizationID, nullString(d.ContactID), nullString(d.CompanyID),
			d.Name, d.Amount, d.Currency, d.Stage, d.Probability,
			d.ExpectedCloseDate, d.OwnerID, d.CreatedAt, d.UpdatedAt,
		)
		return err
	})
}

func (s *PostgresStore) GetDeal(ctx context.Context, tc auth.TenantContext, id string) (Deal, error) {
	q := `SELECT ` + dealColumns + ` FROM nexuscrm.deals WHERE id = $1 AND deleted_at IS NULL`
	var d Deal
	err := utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		return scanDeal(tx.QueryRowContext(ctx, q, id), &d)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Deal{}, ErrNotFound
	}
	if err != nil {
		return Deal{}, err
	}
	return d, nil
}

func (s *PostgresStore) ListDeals(ctx context.Context, tc auth.TenantContext, f DealFilter, limit, offset int) ([]Deal, error) {
	b := newWhereBuilder()
	f.apply(b)
	page := b.page(limit, offset)
	q := `SELECT ` + dealColumns + ` FROM nexuscrm.deals ` + b.clause() + ` ORDER BY created_at DESC ` + page

	var out []Deal
	err := utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, q, b.args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var d Deal
			if err := scanDeal(rows, &d); err != nil {
				return err
			}
			out = append(out, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) UpdateDealStage(ctx context.Context, tc auth.TenantContext, id string, u DealStageUpdate) (Deal, error) {
	if u.Stage == "" {
		return Deal{}, fmt.Errorf("%w: stage is required", ErrInvalidArgument)
	}
	const q = `
UPDATE nexuscrm.deals
SET stage = $2,
    probability = COALESCE($3, probability),
    closed_at = COALESCE($4, closed_at),
    lost_reason = COALESCE($5, lost_reason),
    lost_reason_detail = COALESCE($6, lost_reason_detail),
    updated_at = $7
WHERE id = $1 AND deleted_at IS NULL
RETURNING ` + dealColumns

	var d Deal
	err := utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		return scanDeal(tx.QueryRowContext(ctx, q,
			id, u.Stage, u.Probability, u.ClosedAt, u.LostReason, u.LostReasonDetail, s.clock().UTC(),
		), &d)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Deal{}, ErrNotFound
	}
	if err != nil {
		return Deal{}, err
	}
	return d, nil
}

/* ===================== ACTIVITIES ===================== */

const activityColumns = `
id, organization_id, contact_id, deal_id, type, subject, body,
call_duration_seconds, email_opened, email_clicked,
meeting_starts_at, meeting_ends_at, task_status,
metadata, owner_id, created_at, updated_at, deleted_at
`

func scanActivity(row interface{ Scan(...any) error }, a *Activity) error {
	var contactID, dealID, taskStatus sql.NullString
	var metadata []byte
	err := row.Scan(
		&a.ID,
		&a.OrganizationID,
		&contactID,
		&dealID,
		&a.Type,
		&a.Subject,
		&a.Body,
		&a.CallDurationSeconds,
		&a.EmailOpened,
		&a.EmailClicked,
		&a.MeetingStartsAt,
		&a.MeetingEndsAt,
		&taskStatus,
		&metadata,
		&a.OwnerID,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.DeletedAt,
	)
	if err != nil {
		return err
	}
	a.ContactID = contactID.String
	a.DealID = dealID.String
	a.TaskStatus = taskStatus.String
	a.Metadata = metadata
	return nil
}

func (s *PostgresStore) CreateActivity(ctx context.Context, tc auth.TenantContext, a *Activity) error {
	if a == nil || a.Type == "" {
		return fmt.Errorf("%w: activity type is required", ErrInvalidArgument)
	}
	now := s.clock().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.OrganizationID = tc.OrganizationID()
	a.CreatedAt = now
	a.UpdatedAt = now

	const q = `
INSERT INTO nexuscrm.activities (
  id, organization_id, contact_id, deal_id, type, subject, body,
  call_duration_seconds, email_opened, email_clicked,
  meeting_starts_at, meeting_ends_at, task_status,
  metadata, owner_id, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)
`
	return utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			a.ID, a.OrganizationID, nullString(a.ContactID), nullString(a.DealID),
			a.Type, a.Subject, a.Body,
			a.CallDurationSeconds, a.EmailOpened, a.EmailClicked,
			a.MeetingStartsAt, a.MeetingEndsAt, nullString(a.TaskStatus),
			nullJSON(a.Metadata), a.OwnerID, a.CreatedAt, a.UpdatedAt,
		)
		return err
	})
}

func (s *PostgresStore) GetActivity(ctx context.Context, tc auth.TenantContext, id string) (Activity, error) {
	q := `SELECT ` + activityColumns + ` FROM nexuscrm.activities WHERE id = $1 AND deleted_at IS NULL`
	var a Activity
	err := utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		return scanActivity(tx.QueryRowContext(ctx, q, id), &a)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Activity{}, ErrNotFound
	}
	if err != nil {
		return Activity{}, err
	}
	return a, nil
}

func (s *PostgresStore) ListActivities(ctx context.Context, tc auth.TenantContext, f ActivityFilter, limit, offset int) ([]Activity, error) {
	b := newWhereBuilder()
	f.apply(b)
	page := b.page(limit, offset)
	q := `SELECT ` + activityColumns + ` FROM nexuscrm.activities ` + b.clause() + ` ORDER BY created_at DESC ` + page

	var out []Activity
	err := utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, q, b.args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var a Activity
			if err := scanActivity(rows, &a); err != nil {
				return err
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

/* ===================== CAMPAIGNS ===================== */

const campaignColumns = `
id, organization_id, name, channels, status, execution_id,
sent, delivered, opened, clicked, replied, converted, bounced,
start_date, end_date, created_at, updated_at, deleted_at
`

func scanCampaign(row interface{ Scan(...any) error }, c *Campaign) error {
	var executionID sql.NullString
	var channels []byte
	err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.Name,
		&channels,
		&c.Status,
		&executionID,
		&c.Sent,
		&c.Delivered,
		&c.Opened,
		&c.Clicked,
		&c.Replied,
		&c.Converted,
		&c.Bounced,
		&c.StartDate,
		&c.EndDate,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	if err != nil {
		return err
	}
	c.ExecutionID = executionID.String
	if len(channels) > 0 {
		if err := json.Unmarshal(channels, &c.Channels); err != nil {
			return fmt.Errorf("decode channels: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateCampaign(ctx context.Context, tc auth.TenantContext, c *Campaign) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("%w: campaign name is required", ErrInvalidArgument)
	}
	now := s.clock().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.OrganizationID = tc.OrganizationID()
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	channels, err := json.Marshal(c.Channels)
	if err != nil {
		return fmt.Errorf("encode channels: %w", err)
	}

	const q = `
INSERT INTO nexuscrm.campaigns (
  id, organization_id, name, channels, status, start_date, end_date, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
)
`
	return utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			c.ID, c.OrganizationID, c.Name, channels, c.Status,
			c.StartDate, c.EndDate, c.CreatedAt, c.UpdatedAt,
		)
		return err
	})
}

func (s *PostgresStore) GetCampaign(ctx context.Context, tc auth.TenantContext, id string) (Campaign, error) {
	q := `SELECT ` + campaignColumns + ` FROM nexuscrm.campaigns WHERE id = $1 AND deleted_at IS NULL`
	var c Campaign
	err := utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		return scanCampaign(tx.QueryRowContext(ctx, q, id), &c)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	if err != nil {
		return Campaign{}, err
	}
	return c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context, tc auth.TenantContext, f CampaignFilter, limit, offset int) ([]Campaign, error) {
	b := newWhereBuilder()
	f.apply(b)
	page := b.page(limit, offset)
	q := `SELECT ` + campaignColumns + ` FROM nexuscrm.campaigns ` + b.clause() + ` ORDER BY created_at DESC ` + page

	var out []Campaign
	err := utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, q, b.args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c Campaign
			if err := scanCampaign(rows, &c); err != nil {
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

func (s *PostgresStore) SetCampaignExecution(ctx context.Context, tc auth.TenantContext, id, executionID string, status CampaignStatus) error {
	const q = `
UPDATE nexuscrm.campaigns
SET execution_id = $2, status = $3, updated_at = $4
WHERE id = $1 AND deleted_at IS NULL
`
	return utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, id, executionID, status, s.clock().UTC())
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

func (s *PostgresStore) SetCampaignStatus(ctx context.Context, tc auth.TenantContext, id string, status CampaignStatus) error {
	const q = `
UPDATE nexuscrm.campaigns
SET status = $2, updated_at = $3
WHERE id = $1 AND deleted_at IS NULL
`
	return utils.WithTenantTx(ctx, s.db, tc.OrganizationID(), func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, id, status, s.clock().UTC())
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

/* ===================== HELPERS ===================== */

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
