package crm

import (
	"fmt"
	"strings"
)

// List query defaults. The upstream surface had no server-side cap on limit;
// that allowed arbitrarily large result sets, so a hard maximum is enforced
// here instead.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ClampLimit applies the default and the server-side maximum.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// ClampOffset floors negative offsets.
func ClampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

// whereBuilder accumulates AND-ed conditions with positional parameters.
// Tenant scoping is intentionally absent: row-level security filters by the
// nexuscrm.org_id session variable set in WithTenantTx.
type whereBuilder struct {
	conds []string
	args  []any
}

func newWhereBuilder() *whereBuilder {
	// Soft-deleted rows are excluded from every default read.
	return &whereBuilder{conds: []string{"deleted_at IS NULL"}}
}

func (b *whereBuilder) add(column, op string, val any) {
	b.args = append(b.args, val)
	b.conds = append(b.conds, fmt.Sprintf("%s %s $%d", column, op, len(b.args)))
}

// addExpr appends a condition where format receives the parameter ordinal.
// Use it when the expression needs a cast or operator add cannot express.
func (b *whereBuilder) addExpr(format string, val any) {
	b.args = append(b.args, val)
	b.conds = append(b.conds, fmt.Sprintf(format, len(b.args)))
}

// search adds a case-insensitive substring match across the given columns.
func (b *whereBuilder) search(term string, columns ...string) {
	b.args = append(b.args, "%"+term+"%")
	n := len(b.args)
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, fmt.Sprintf("%s ILIKE $%d", col, n))
	}
	b.conds = append(b.conds, "("+strings.Join(parts, " OR ")+")")
}

func (b *whereBuilder) clause() string {
	return "WHERE " + strings.Join(b.conds, " AND ")
}

// page appends LIMIT/OFFSET parameters and returns the SQL fragment.
func (b *whereBuilder) page(limit, offset int) string {
	b.args = append(b.args, ClampLimit(limit))
	l := len(b.args)
	b.args = append(b.args, ClampOffset(offset))
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", l, l+1)
}

// ContactFilter selects contacts; nil fields are ignored.
type ContactFilter struct {
	LeadStatus     *LeadStatus
	LifecycleStage *LifecycleStage
	OwnerID        *string
	CompanyID      *string
	MinLeadScore   *int
	Search         *string
}

func (f ContactFilter) apply(b *whereBuilder) {
	if f.LeadStatus != nil {
		b.add("lead_status", "=", string(*f.LeadStatus))
	}
	if f.LifecycleStage != nil {
		b.add("lifecycle_stage", "=", string(*f.LifecycleStage))
	}
	if f.OwnerID != nil {
		b.add("owner_id", "=", *f.OwnerID)
	}
	if f.CompanyID != nil {
		b.add("company_id", "=", *f.CompanyID)
	}
	if f.MinLeadScore != nil {
		b.add("lead_score", ">=", *f.MinLeadScore)
	}
	if f.Search != nil && *f.Search != "" {
		b.search(*f.Search, "first_name", "last_name", "email")
	}
}

type CompanyFilter struct {
	Industry *string
	OwnerID  *string
	Search   *string
}

func (f CompanyFilter) apply(b *whereBuilder) {
	if f.Industry != nil {
		b.add("industry", "=", *f.Industry)
	}
	if f.OwnerID != nil {
		b.add("owner_id", "=", *f.OwnerID)
	}
	if f.Search != nil && *f.Search != "" {
		b.search(*f.Search, "name", "domain")
	}
}

type DealFilter struct {
	Stage     *string
	ContactID *string
	CompanyID *string
	OwnerID   *string
	MinAmount *float64
}

func (f DealFilter) apply(b *whereBuilder) {
	if f.Stage != nil {
		b.add("stage", "=", *f.Stage)
	}
	if f.ContactID != nil {
		b.add("contact_id", "=", *f.ContactID)
	}
	if f.CompanyID != nil {
		b.add("company_id", "=", *f.CompanyID)
	}
	if f.OwnerID != nil {
		b.add("owner_id", "=", *f.OwnerID)
	}
	if f.MinAmount != nil {
		b.add("amount", ">=", *f.MinAmount)
	}
}

type ActivityFilter struct {
	Type      *ActivityType
	ContactID *string
	DealID    *string
	OwnerID   *string
}

func (f ActivityFilter) apply(b *whereBuilder) {
	if f.Type != nil {
		b.add("type", "=", string(*f.Type))
	}
	if f.ContactID != nil {
		b.add("contact_id", "=", *f.ContactID)
	}
	if f.DealID != nil {
		b.add("deal_id", "=", *f.DealID)
	}
	if f.OwnerID != nil {
		b.add("owner_id", "=", *f.OwnerID)
	}
}

type CampaignFilter struct {
	Status  *CampaignStatus
	Channel *string
}

func (f CampaignFilter) apply(b *whereBuilder) {
	if f.Status != nil {
		b.add("status", "=", string(*f.Status))
	}
	if f.Channel != nil {
		b.addExpr("channels @> $%d::jsonb", fmt.Sprintf(`[%q]`, *f.Channel))
	}
}
