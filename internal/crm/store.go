package crm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"nexuscrm/internal/auth"
	"nexuscrm/internal/outbox"
)

var (
	ErrNotFound        = errors.New("crm: not found")
	ErrInvalidArgument = errors.New("crm: invalid argument")
)

// ContactUpdate is a partial update: only non-nil fields reach the SET clause.
type ContactUpdate struct {
	FirstName      *string
	LastName       *string
	Email          *string
	Phone          *string
	Title          *string
	CompanyID      *string
	LeadScore      *int
	LeadStatus     *LeadStatus
	LifecycleStage *LifecycleStage
	DoNotCall      *bool
	DoNotEmail     *bool
	EmailBounced   *bool
	Unsubscribed   *bool
	OwnerID        *string
	CustomFields   json.RawMessage
}

func (u ContactUpdate) empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil && u.Phone == nil &&
		u.Title == nil && u.CompanyID == nil && u.LeadScore == nil && u.LeadStatus == nil &&
		u.LifecycleStage == nil && u.DoNotCall == nil && u.DoNotEmail == nil &&
		u.EmailBounced == nil && u.Unsubscribed == nil && u.OwnerID == nil && u.CustomFields == nil
}

// DealStageUpdate moves a deal through its pipeline.
type DealStageUpdate struct {
	Stage            string
	Probability      *int
	ClosedAt         *time.Time
	LostReason       *string
	LostReasonDetail *string
}

// Store is the persistence contract for CRM entities. All methods require a
// TenantContext; the Postgres implementation runs each call inside a
// tenant-scoped transaction so row-level security applies.
type Store interface {
	// CreateContact persists the contact and any side-effect intents in one
	// atomic unit.
	CreateContact(ctx context.Context, tc auth.TenantContext, c *Contact, intents []outbox.Entry) error
	GetContact(ctx context.Context, tc auth.TenantContext, id string) (Contact, error)
	ListContacts(ctx context.Context, tc auth.TenantContext, f ContactFilter, limit, offset int) ([]Contact, error)
	UpdateContact(ctx context.Context, tc auth.TenantContext, id string, u ContactUpdate) (Contact, error)
	SoftDeleteContact(ctx context.Context, tc auth.TenantContext, id string) error
	SetContactEnrichment(ctx context.Context, tc auth.TenantContext, id string, enrichment json.RawMessage) error

	CreateCompany(ctx context.Context, tc auth.TenantContext, c *Company) error
	GetCompany(ctx context.Context, tc auth.TenantContext, id string) (Company, error)
	ListCompanies(ctx context.Context, tc auth.TenantContext, f CompanyFilter, limit, offset int) ([]Company, error)

	CreateDeal(ctx context.Context, tc auth.TenantContext, d *Deal) error
	GetDeal(ctx context.Context, tc auth.TenantContext, id string) (Deal, error)
	ListDeals(ctx context.Context, tc auth.TenantContext, f DealFilter, limit, offset int) ([]Deal, error)
	UpdateDealStage(ctx context.Context, tc auth.TenantContext, id string, u DealStageUpdate) (Deal, error)

	CreateActivity(ctx context.Context, tc auth.TenantContext, a *Activity) error
	GetActivity(ctx context.Context, tc auth.TenantContext, id string) (Activity, error)
	ListActivities(ctx context.Context, tc auth.TenantContext, f ActivityFilter, limit, offset int) ([]Activity, error)

	CreateCampaign(ctx context.Context, tc auth.TenantContext, c *Campaign) error
	GetCampaign(ctx context.Context, tc auth.TenantContext, id string) (Campaign, error)
	ListCampaigns(ctx context.Context, tc auth.TenantContext, f CampaignFilter, limit, offset int) ([]Campaign, error)
	SetCampaignExecution(ctx context.Context, tc auth.TenantContext, id, executionID string, status CampaignStatus) error
	SetCampaignStatus(ctx context.Context, tc auth.TenantContext, id string, status CampaignStatus) error
}
