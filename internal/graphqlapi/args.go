package graphqlapi

import (
	"encoding/json"
	"fmt"
	"time"

	"nexuscrm/internal/crm"
	"nexuscrm/internal/voice"
)

// Argument extraction helpers. graphql-go hands resolvers map[string]any; the
// coercion layer has already enforced the declared scalar types.

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argInt(args map[string]any, key string) int {
	if v, ok := args[key].(int); ok {
		return v
	}
	return 0
}

func optString(args map[string]any, key string) *string {
	if v, ok := args[key].(string); ok {
		return &v
	}
	return nil
}

func optInt(args map[string]any, key string) *int {
	if v, ok := args[key].(int); ok {
		return &v
	}
	return nil
}

func optFloat(args map[string]any, key string) *float64 {
	switch v := args[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

func optBool(args map[string]any, key string) *bool {
	if v, ok := args[key].(bool); ok {
		return &v
	}
	return nil
}

func optTime(args map[string]any, key string) *time.Time {
	if v, ok := args[key].(time.Time); ok {
		return &v
	}
	return nil
}

func optJSON(args map[string]any, key string) (json.RawMessage, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return raw, nil
}

func argStrings(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func filterMap(args map[string]any) map[string]any {
	if f, ok := args["filter"].(map[string]any); ok {
		return f
	}
	return map[string]any{}
}

func contactFilter(args map[string]any) crm.ContactFilter {
	f := filterMap(args)
	var out crm.ContactFilter
	if v := optString(f, "leadStatus"); v != nil {
		s := crm.LeadStatus(*v)
		out.LeadStatus = &s
	}
	if v := optString(f, "lifecycleStage"); v != nil {
		s := crm.LifecycleStage(*v)
		out.LifecycleStage = &s
	}
	out.OwnerID = optString(f, "ownerId")
	out.CompanyID = optString(f, "companyId")
	out.MinLeadScore = optInt(f, "minLeadScore")
	out.Search = optString(f, "search")
	return out
}

func companyFilter(args map[string]any) crm.CompanyFilter {
	f := filterMap(args)
	return crm.CompanyFilter{
		Industry: optString(f, "industry"),
		OwnerID:  optString(f, "ownerId"),
		Search:   optString(f, "search"),
	}
}

func dealFilter(args map[string]any) crm.DealFilter {
	f := filterMap(args)
	return crm.DealFilter{
		Stage:     optString(f, "stage"),
		ContactID: optString(f, "contactId"),
		CompanyID: optString(f, "companyId"),
		OwnerID:   optString(f, "ownerId"),
		MinAmount: optFloat(f, "minAmount"),
	}
}

func activityFilter(args map[string]any) crm.ActivityFilter {
	f := filterMap(args)
	var out crm.ActivityFilter
	if v := optString(f, "type"); v != nil {
		t := crm.ActivityType(*v)
		out.Type = &t
	}
	out.ContactID = optString(f, "contactId")
	out.DealID = optString(f, "dealId")
	out.OwnerID = optString(f, "ownerId")
	return out
}

func campaignFilter(args map[string]any) crm.CampaignFilter {
	f := filterMap(args)
	var out crm.CampaignFilter
	if v := optString(f, "status"); v != nil {
		s := crm.CampaignStatus(*v)
		out.Status = &s
	}
	out.Channel = optString(f, "channel")
	return out
}

func callFilter(args map[string]any) voice.CallFilter {
	f := filterMap(args)
	var out voice.CallFilter
	out.ContactID = optString(f, "contactId")
	out.CampaignID = optString(f, "campaignId")
	if v := optString(f, "status"); v != nil {
		s := voice.CallStatus(*v)
		out.Status = &s
	}
	return out
}
