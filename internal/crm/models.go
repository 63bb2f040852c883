package crm

import (
	"encoding/json"
	"time"
)

// Models map 1:1 onto the nexuscrm.* relational schema, which is owned by the
// platform's migration service. This repository assumes the schema exists and
// fails startup if it does not.
//
// Multi-tenant invariant: every row carries OrganizationID, enforced by
// row-level-security policies keyed on the nexuscrm.org_id session variable.
// Soft delete only: DeletedAt is set, rows are never physically removed here.

type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusUnqualified LeadStatus = "unqualified"
	LeadStatusCustomer    LeadStatus = "customer"
)

type LifecycleStage string

const (
	LifecycleStageSubscriber  LifecycleStage = "subscriber"
	LifecycleStageLead        LifecycleStage = "lead"
	LifecycleStageMQL         LifecycleStage = "mql"
	LifecycleStageSQL         LifecycleStage = "sql"
	LifecycleStageOpportunity LifecycleStage = "opportunity"
	LifecycleStageCustomer    LifecycleStage = "customer"
)

// Contact is a tenant-scoped person record. LeadScore and Enrichment are
// written by remote platform services, never computed locally.
type Contact struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`

	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Title     string `json:"title"`
	CompanyID string `json:"companyId,omitempty"`

	LeadScore      int            `json:"leadScore"`
	LeadStatus     LeadStatus     `json:"leadStatus"`
	LifecycleStage LifecycleStage `json:"lifecycleStage"`

	// Communication consent flags.
	DoNotCall    bool `json:"doNotCall"`
	DoNotEmail   bool `json:"doNotEmail"`
	EmailBounced bool `json:"emailBounced"`
	Unsubscribed bool `json:"unsubscribed"`

	Enrichment   json.RawMessage `json:"enrichment,omitempty"`
	CustomFields json.RawMessage `json:"customFields,omitempty"`

	OwnerID string `json:"ownerId"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Reachable reports whether the contact has any usable channel; contacts
// without one are not mirrored into the search index.
func (c Contact) Reachable() bool {
	return c.Email != "" || c.Phone != ""
}

type Company struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`

	Name          string `json:"name"`
	Domain        string `json:"domain"`
	Industry      string `json:"industry"`
	EmployeeCount int    `json:"employeeCount"`
	Address       string `json:"address"`

	Enrichment json.RawMessage `json:"enrichment,omitempty"`

	OwnerID string `json:"ownerId"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Deal stage is free text at the data layer; pipelines are tenant-defined.
type Deal struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`

	ContactID string `json:"contactId,omitempty"`
	CompanyID string `json:"companyId,omitempty"`

	Name        string  `json:"name"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Stage       string  `json:"stage"`
	Probability int     `json:"probability"`

	ExpectedCloseDate *time.Time `json:"expectedCloseDate,omitempty"`
	ClosedAt          *time.Time `json:"closedAt,omitempty"`

	LostReason       string `json:"lostReason,omitempty"`
	LostReasonDetail string `json:"lostReasonDetail,omitempty"`

	OwnerID string `json:"ownerId"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

type ActivityType string

const (
	ActivityTypeCall     ActivityType = "call"
	ActivityTypeEmail    ActivityType = "email"
	ActivityTypeMeeting  ActivityType = "meeting"
	ActivityTypeTask     ActivityType = "task"
	ActivityTypeNote     ActivityType = "note"
	ActivityTypeSMS      ActivityType = "sms"
	ActivityTypeWhatsApp ActivityType = "whatsapp"
)

// Activity is a polymorphic interaction record: one wide table with
// channel-specific optional fields rather than per-type tables.
type Activity struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`

	ContactID string `json:"contactId,omitempty"`
	DealID    string `json:"dealId,omitempty"`

	Type    ActivityType `json:"type"`
	Subject string       `json:"subject"`
	Body    string       `json:"body,omitempty"`

	// call
	CallDurationSeconds int `json:"callDurationSeconds,omitempty"`
	// email
	EmailOpened  bool `json:"emailOpened,omitempty"`
	EmailClicked bool `json:"emailClicked,omitempty"`
	// meeting
	MeetingStartsAt *time.Time `json:"meetingStartsAt,omitempty"`
	MeetingEndsAt   *time.Time `json:"meetingEndsAt,omitempty"`
	// task
	TaskStatus string `json:"taskStatus,omitempty"`

	Metadata json.RawMessage `json:"metadata,omitempty"`

	OwnerID string `json:"ownerId"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCancelled CampaignStatus = "cancelled"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// Campaign is a multi-channel outreach definition. ExecutionID points at the
// orchestration service's workflow execution once the campaign is launched.
type Campaign struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`

	Name     string         `json:"name"`
	Channels []string       `json:"channels"`
	Status   CampaignStatus `json:"status"`

	ExecutionID string `json:"executionId,omitempty"`

	// Funnel counters, updated by orchestration callbacks.
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Opened    int `json:"opened"`
	Clicked   int `json:"clicked"`
	Replied   int `json:"replied"`
	Converted int `json:"converted"`
	Bounced   int `json:"bounced"`

	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}
