package graphqlapi

import (
	"context"
	"log/slog"
	"sort"

	"nexuscrm/internal/auth"
	"nexuscrm/internal/crm"
	"nexuscrm/internal/httpapi"
	"nexuscrm/internal/voice"

	"github.com/graphql-go/graphql"
)

// HealthSource provides the aggregate dependency report for the health query.
type HealthSource interface {
	Check(ctx context.Context) httpapi.Report
}

// Resolver holds the services the schema resolves against.
type Resolver struct {
	crm    *crm.Service
	voice  *voice.Manager
	health HealthSource
	log    *slog.Logger
}

func NewResolver(crmSvc *crm.Service, voiceMgr *voice.Manager, health HealthSource, log *slog.Logger) *Resolver {
	return &Resolver{crm: crmSvc, voice: voiceMgr, health: health, log: log}
}

// tenant extracts the verified tenant context. Every tenant-scoped resolver
// starts here; an unauthenticated request yields a clean GraphQL error.
func tenant(p graphql.ResolveParams) (auth.TenantContext, error) {
	return auth.Tenant(p.Context)
}

var contactFilterInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ContactFilter",
	Fields: graphql.InputObjectConfigFieldMap{
		"leadStatus":     &graphql.InputObjectFieldConfig{Type: graphql.String},
		"lifecycleStage": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"ownerId":        &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"companyId":      &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"minLeadScore":   &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"search":         &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var companyFilterInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "CompanyFilter",
	Fields: graphql.InputObjectConfigFieldMap{
		"industry": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"ownerId":  &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"search":   &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var dealFilterInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "DealFilter",
	Fields: graphql.InputObjectConfigFieldMap{
		"stage":     &graphql.InputObjectFieldConfig{Type: graphql.String},
		"contactId": &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"companyId": &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"ownerId":   &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"minAmount": &graphql.InputObjectFieldConfig{Type: graphql.Float},
	},
})

var activityFilterInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ActivityFilter",
	Fields: graphql.InputObjectConfigFieldMap{
		"type":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		"contactId": &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"dealId":    &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"ownerId":   &graphql.InputObjectFieldConfig{Type: graphql.ID},
	},
})

var campaignFilterInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "CampaignFilter",
	Fields: graphql.InputObjectConfigFieldMap{
		"status":  &graphql.InputObjectFieldConfig{Type: graphql.String},
		"channel": &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var voiceCallFilterInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "VoiceCallFilter",
	Fields: graphql.InputObjectConfigFieldMap{
		"contactId":  &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"campaignId": &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"status":     &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var contactInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ContactInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"firstName":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		"lastName":       &graphql.InputObjectFieldConfig{Type: graphql.String},
		"email":          &graphql.InputObjectFieldConfig{Type: graphql.String},
		"phone":          &graphql.InputObjectFieldConfig{Type: graphql.String},
		"title":          &graphql.InputObjectFieldConfig{Type: graphql.String},
		"companyId":      &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"leadStatus":     &graphql.InputObjectFieldConfig{Type: graphql.String},
		"lifecycleStage": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"doNotCall":      &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
		"doNotEmail":     &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
		"customFields":   &graphql.InputObjectFieldConfig{Type: jsonScalar},
		"ownerId":        &graphql.InputObjectFieldConfig{Type: graphql.ID},
	},
})

var contactUpdateInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ContactUpdateInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"firstName":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		"lastName":       &graphql.InputObjectFieldConfig{Type: graphql.String},
		"email":          &graphql.InputObjectFieldConfig{Type: graphql.String},
		"phone":          &graphql.InputObjectFieldConfig{Type: graphql.String},
		"title":          &graphql.InputObjectFieldConfig{Type: graphql.String},
		"companyId":      &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"leadScore":      &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"leadStatus":     &graphql.InputObjectFieldConfig{Type: graphql.String},
		"lifecycleStage": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"doNotCall":      &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
		"doNotEmail":     &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
		"emailBounced":   &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
		"unsubscribed":   &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
		"customFields":   &graphql.InputObjectFieldConfig{Type: jsonScalar},
		"ownerId":        &graphql.InputObjectFieldConfig{Type: graphql.ID},
	},
})

var companyInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "CompanyInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"name":          &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"domain":        &graphql.InputObjectFieldConfig{Type: graphql.String},
		"industry":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		"employeeCount": &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"address":       &graphql.InputObjectFieldConfig{Type: graphql.String},
		"ownerId":       &graphql.InputObjectFieldConfig{Type: graphql.ID},
	},
})

var dealInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "DealInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"name":              &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"contactId":         &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"companyId":         &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"amount":            &graphql.InputObjectFieldConfig{Type: graphql.Float},
		"currency":          &graphql.InputObjectFieldConfig{Type: graphql.String},
		"stage":             &graphql.InputObjectFieldConfig{Type: graphql.String},
		"probability":       &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"expectedCloseDate": &graphql.InputObjectFieldConfig{Type: dateTime},
		"ownerId":           &graphql.InputObjectFieldConfig{Type: graphql.ID},
	},
})

var activityInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ActivityInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"type":                &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"subject":             &graphql.InputObjectFieldConfig{Type: graphql.String},
		"body":                &graphql.InputObjectFieldConfig{Type: graphql.String},
		"contactId":           &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"dealId":              &graphql.InputObjectFieldConfig{Type: graphql.ID},
		"callDurationSeconds": &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"meetingStartsAt":     &graphql.InputObjectFieldConfig{Type: dateTime},
		"meetingEndsAt":       &graphql.InputObjectFieldConfig{Type: dateTime},
		"taskStatus":          &graphql.InputObjectFieldConfig{Type: graphql.String},
		"metadata":            &graphql.InputObjectFieldConfig{Type: jsonScalar},
		"ownerId":             &graphql.InputObjectFieldConfig{Type: graphql.ID},
	},
})

var campaignInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "CampaignInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"name":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"channels":  &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.String)},
		"startDate": &graphql.InputObjectFieldConfig{Type: dateTime},
		"endDate":   &graphql.InputObjectFieldConfig{Type: dateTime},
	},
})

func listArgs(filterType *graphql.InputObject) graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"filter": &graphql.ArgumentConfig{Type: filterType},
		"limit":  &graphql.ArgumentConfig{Type: graphql.Int},
		"offset": &graphql.ArgumentConfig{Type: graphql.Int},
	}
}

func idArg() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
	}
}

// NewSchema wires the full query and mutation surface.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"contact": &graphql.Field{
				Type: contactType,
				Args: idArg(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.Store().GetContact(p.Context, tc, argString(p.Args, "id"))
				},
			},
			"contacts": &graphql.Field{
				Type: graphql.NewList(contactType),
				Args: listArgs(contactFilterInput),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.Store().ListContacts(p.Context, tc, contactFilter(p.Args),
						argInt(p.Args, "limit"), argInt(p.Args, "offset"))
				},
			},
			"company": &graphql.Field{
				Type: companyType,
				Args: idArg(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.Store().GetCompany(p.Context, tc, argString(p.Args, "id"))
				},
			},
			"companies": &graphql.Field{
				Type: graphql.NewList(companyType),
				Args: listArgs(companyFilterInput),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.Store().ListCompanies(p.Context, tc, companyFilter(p.Args),
						argInt(p.Args, "limit"), argInt(p.Args, "offset"))
				},
			},
			"deal": &graphql.Field{
				Type: dealType,
				Args: idArg(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.Store().GetDeal(p.Context, tc, argString(p.Args, "id"))
				},
			},
			"deals": &graphql.Field{
				Type: graphql.NewList(dealType),
				Args: listArgs(dealFilterInput),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.Store().ListDeals(p.Context, tc, dealFilter(p.Args),
						argInt(p.Args, "limit"), argInt(p.Args, "offset"))
				},
			},
			"activity": &graphql.Field{
				Type: activityType,
				Args: idArg(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.Store().GetActivity(p.Context, tc, argString(p.Args, "id"))
				},
			},
			"activities": &graphql.Field{
				Type: graphql.NewList(activityType),
				Args: listArgs(activityFilterInput),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.Store().ListActivities(p.Context, tc, activityFilter(p.Args),
						argInt(p.Args, "limit"), argInt(p.Args, "offset"))
				},
			},
			"campaign": &graphql.Field{
				Type: campaignType,
				Args: idArg(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.Store().GetCampaign(p.Context, tc, argString(p.Args, "id"))
				},
			},
			"campaigns": &graphql.Field{
				Type: graphql.NewList(campaignType),
				Args: listArgs(campaignFilterInput),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.Store().ListCampaigns(p.Context, tc, campaignFilter(p.Args),
						argInt(p.Args, "limit"), argInt(p.Args, "offset"))
				},
			},
			"searchContacts": &graphql.Field{
				Type: graphql.NewList(contactType),
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.SearchContacts(p.Context, tc,
						argString(p.Args, "query"), argInt(p.Args, "limit"))
				},
			},
			"visitRoute": &graphql.Field{
				Type: visitRouteType,
				Args: graphql.FieldConfigArgument{
					"companyIds": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.ID))),
					},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.PlanVisitRoute(p.Context, tc, argStrings(p.Args, "companyIds"))
				},
			},
			"voiceCall": &graphql.Field{
				Type: voiceCallType,
				Args: idArg(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.voice.Store().GetCall(p.Context, tc, argString(p.Args, "id"))
				},
			},
			"voiceCalls": &graphql.Field{
				Type: graphql.NewList(voiceCallType),
				Args: listArgs(voiceCallFilterInput),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.voice.Store().ListCalls(p.Context, tc, callFilter(p.Args),
						argInt(p.Args, "limit"), argInt(p.Args, "offset"))
				},
			},
			"health": &graphql.Field{
				Type: healthType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return r.resolveHealth(p.Context), nil
				},
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createContact": &graphql.Field{
				Type: contactType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(contactInput)},
				},
				Resolve: r.resolveCreateContact,
			},
			"updateContact": &graphql.Field{
				Type: contactType,
				Args: graphql.FieldConfigArgument{
					"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(contactUpdateInput)},
				},
				Resolve: r.resolveUpdateContact,
			},
			"deleteContact": &graphql.Field{
				Type: graphql.Boolean,
				Args: idArg(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					if err := r.crm.Store().SoftDeleteContact(p.Context, tc, argString(p.Args, "id")); err != nil {
						return nil, err
					}
					return true, nil
				},
			},
			"enrichContact": &graphql.Field{
				Type: contactType,
				Args: idArg(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.EnrichContact(p.Context, tc, argString(p.Args, "id"))
				},
			},
			"createCompany": &graphql.Field{
				Type: companyType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(companyInput)},
				},
				Resolve: r.resolveCreateCompany,
			},
			"createDeal": &graphql.Field{
				Type: dealType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(dealInput)},
				},
				Resolve: r.resolveCreateDeal,
			},
			"updateDealStage": &graphql.Field{
				Type: dealType,
				Args: graphql.FieldConfigArgument{
					"id":               &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"stage":            &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"probability":      &graphql.ArgumentConfig{Type: graphql.Int},
					"closedAt":         &graphql.ArgumentConfig{Type: dateTime},
					"lostReason":       &graphql.ArgumentConfig{Type: graphql.String},
					"lostReasonDetail": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.resolveUpdateDealStage,
			},
			"logActivity": &graphql.Field{
				Type: activityType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(activityInput)},
				},
				Resolve: r.resolveLogActivity,
			},
			"createCampaign": &graphql.Field{
				Type: campaignType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(campaignInput)},
				},
				Resolve: r.resolveCreateCampaign,
			},
			"launchCampaign": &graphql.Field{
				Type: campaignType,
				Args: idArg(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.LaunchCampaign(p.Context, tc, argString(p.Args, "id"))
				},
			},
			"pauseCampaign": &graphql.Field{
				Type: campaignType,
				Args: idArg(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.PauseCampaign(p.Context, tc, argString(p.Args, "id"))
				},
			},
			"resumeCampaign": &graphql.Field{
				Type: campaignType,
				Args: idArg(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.ResumeCampaign(p.Context, tc, argString(p.Args, "id"))
				},
			},
			"cancelCampaign": &graphql.Field{
				Type: campaignType,
				Args: idArg(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.crm.CancelCampaign(p.Context, tc, argString(p.Args, "id"))
				},
			},
			"makeCall": &graphql.Field{
				Type: voiceCallType,
				Args: graphql.FieldConfigArgument{
					"contactId":   &graphql.ArgumentConfig{Type: graphql.ID},
					"phoneNumber": &graphql.ArgumentConfig{Type: graphql.String},
					"script":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"campaignId":  &graphql.ArgumentConfig{Type: graphql.ID},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.voice.MakeCall(p.Context, tc, voice.MakeCallRequest{
						ContactID:   argString(p.Args, "contactId"),
						PhoneNumber: argString(p.Args, "phoneNumber"),
						Script:      argString(p.Args, "script"),
						CampaignID:  argString(p.Args, "campaignId"),
					})
				},
			},
			"cancelCall": &graphql.Field{
				Type: voiceCallType,
				Args: idArg(),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					tc, err := tenant(p)
					if err != nil {
						return nil, err
					}
					return r.voice.CancelCall(p.Context, tc, argString(p.Args, "id"))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query, Mutation: mutation})
}

func (r *Resolver) resolveCreateContact(p graphql.ResolveParams) (any, error) {
	tc, err := tenant(p)
	if err != nil {
		return nil, err
	}
	input, _ := p.Args["input"].(map[string]any)
	customFields, err := optJSON(input, "customFields")
	if err != nil {
		return nil, err
	}
	c := &crm.Contact{
		FirstName:    argString(input, "firstName"),
		LastName:     argString(input, "lastName"),
		Email:        argString(input, "email"),
		Phone:        argString(input, "phone"),
		Title:        argString(input, "title"),
		CompanyID:    argString(input, "companyId"),
		CustomFields: customFields,
		OwnerID:      argString(input, "ownerId"),
	}
	if v := optString(input, "leadStatus"); v != nil {
		c.LeadStatus = crm.LeadStatus(*v)
	}
	if v := optString(input, "lifecycleStage"); v != nil {
		c.LifecycleStage = crm.LifecycleStage(*v)
	}
	if v := optBool(input, "doNotCall"); v != nil {
		c.DoNotCall = *v
	}
	if v := optBool(input, "doNotEmail"); v != nil {
		c.DoNotEmail = *v
	}
	if c.OwnerID == "" {
		c.OwnerID = tc.UserID()
	}
	return r.crm.CreateContact(p.Context, tc, c)
}

func (r *Resolver) resolveUpdateContact(p graphql.ResolveParams) (any, error) {
	tc, err := tenant(p)
	if err != nil {
		return nil, err
	}
	input, _ := p.Args["input"].(map[string]any)
	customFields, err := optJSON(input, "customFields")
	if err != nil {
		return nil, err
	}
	u := crm.ContactUpdate{
		FirstName:    optString(input, "firstName"),
		LastName:     optString(input, "lastName"),
		Email:        optString(input, "email"),
		Phone:        optString(input, "phone"),
		Title:        optString(input, "title"),
		CompanyID:    optString(input, "companyId"),
		LeadScore:    optInt(input, "leadScore"),
		DoNotCall:    optBool(input, "doNotCall"),
		DoNotEmail:   optBool(input, "doNotEmail"),
		EmailBounced: optBool(input, "emailBounced"),
		Unsubscribed: optBool(input, "unsubscribed"),
		OwnerID:      optString(input, "ownerId"),
		CustomFields: customFields,
	}
	if v := optString(input, "leadStatus"); v != nil {
		s := crm.LeadStatus(*v)
		u.LeadStatus = &s
	}
	if v := optString(input, "lifecycleStage"); v != nil {
		s := crm.LifecycleStage(*v)
		u.LifecycleStage = &s
	}
	return r.crm.Store().UpdateContact(p.Context, tc, argString(p.Args, "id"), u)
}

func (r *Resolver) resolveCreateCompany(p graphql.ResolveParams) (any, error) {
	tc, err := tenant(p)
	if err != nil {
		return nil, err
	}
	input, _ := p.Args["input"].(map[string]any)
	c := &crm.Company{
		Name:          argString(input, "name"),
		Domain:        argString(input, "domain"),
		Industry:      argString(input, "industry"),
		EmployeeCount: argInt(input, "employeeCount"),
		Address:       argString(input, "address"),
		OwnerID:       argString(input, "ownerId"),
	}
	if c.OwnerID == "" {
		c.OwnerID = tc.UserID()
	}
	if err := r.crm.Store().CreateCompany(p.Context, tc, c); err != nil {
		return nil, err
	}
	return *c, nil
}

func (r *Resolver) resolveCreateDeal(p graphql.ResolveParams) (any, error) {
	tc, err := tenant(p)
	if err != nil {
		return nil, err
	}
	input, _ := p.Args["input"].(map[string]any)
	d := &crm.Deal{
		Name:              argString(input, "name"),
		ContactID:         argString(input, "contactId"),
		CompanyID:         argString(input, "companyId"),
		Currency:          argString(input, "currency"),
		Stage:             argString(input, "stage"),
		Probability:       argInt(input, "probability"),
		ExpectedCloseDate: optTime(input, "expectedCloseDate"),
		OwnerID:           argString(input, "ownerId"),
	}
	if v := optFloat(input, "amount"); v != nil {
		d.Amount = *v
	}
	if d.OwnerID == "" {
		d.OwnerID = tc.UserID()
	}
	if err := r.crm.Store().CreateDeal(p.Context, tc, d); err != nil {
		return nil, err
	}
	return *d, nil
}

func (r *Resolver) resolveUpdateDealStage(p graphql.ResolveParams) (any, error) {
	tc, err := tenant(p)
	if err != nil {
		return nil, err
	}
	u := crm.DealStageUpdate{
		Stage:            argString(p.Args, "stage"),
		Probability:      optInt(p.Args, "probability"),
		ClosedAt:         optTime(p.Args, "closedAt"),
		LostReason:       optString(p.Args, "lostReason"),
		LostReasonDetail: optString(p.Args, "lostReasonDetail"),
	}
	return r.crm.Store().UpdateDealStage(p.Context, tc, argString(p.Args, "id"), u)
}

func (r *Resolver) resolveLogActivity(p graphql.ResolveParams) (any, error) {
	tc, err := tenant(p)
	if err != nil {
		return nil, err
	}
	input, _ := p.Args["input"].(map[string]any)
	metadata, err := optJSON(input, "metadata")
	if err != nil {
		return nil, err
	}
	a := &crm.Activity{
		Type:                crm.ActivityType(argString(input, "type")),
		Subject:             argString(input, "subject"),
		Body:                argString(input, "body"),
		ContactID:           argString(input, "contactId"),
		DealID:              argString(input, "dealId"),
		CallDurationSeconds: argInt(input, "callDurationSeconds"),
		MeetingStartsAt:     optTime(input, "meetingStartsAt"),
		MeetingEndsAt:       optTime(input, "meetingEndsAt"),
		TaskStatus:          argString(input, "taskStatus"),
		Metadata:            metadata,
		OwnerID:             argString(input, "ownerId"),
	}
	if a.OwnerID == "" {
		a.OwnerID = tc.UserID()
	}
	if err := r.crm.Store().CreateActivity(p.Context, tc, a); err != nil {
		return nil, err
	}
	return *a, nil
}

func (r *Resolver) resolveCreateCampaign(p graphql.ResolveParams) (any, error) {
	tc, err := tenant(p)
	if err != nil {
		return nil, err
	}
	input, _ := p.Args["input"].(map[string]any)
	c := &crm.Campaign{
		Name:      argString(input, "name"),
		Channels:  argStrings(input, "channels"),
		StartDate: optTime(input, "startDate"),
		EndDate:   optTime(input, "endDate"),
	}
	if err := r.crm.Store().CreateCampaign(p.Context, tc, c); err != nil {
		return nil, err
	}
	return *c, nil
}

type healthEntry struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// resolveHealth flattens the checker's report into a stable list.
func (r *Resolver) resolveHealth(ctx context.Context) any {
	if r.health == nil {
		return map[string]any{"healthy": false, "services": []healthEntry{}}
	}
	report := r.health.Check(ctx)
	entries := make([]healthEntry, 0, len(report.Services))
	for name, s := range report.Services {
		entries = append(entries, healthEntry{Name: name, Healthy: s.Healthy, Detail: s.Detail})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return map[string]any{
		"healthy":  report.Healthy,
		"services": entries,
		"search":   report.Search,
		"time":     report.Time,
	}
}
