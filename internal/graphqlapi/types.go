package graphqlapi

import (
	"github.com/graphql-go/graphql"
)

// Object types lean on the default resolver: model json tags line up with
// the GraphQL field names.

var contactType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Contact",
	Fields: graphql.Fields{
		"id":             &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"organizationId": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"firstName":      &graphql.Field{Type: graphql.String},
		"lastName":       &graphql.Field{Type: graphql.String},
		"email":          &graphql.Field{Type: graphql.String},
		"phone":          &graphql.Field{Type: graphql.String},
		"title":          &graphql.Field{Type: graphql.String},
		"companyId":      &graphql.Field{Type: graphql.ID},
		"leadScore":      &graphql.Field{Type: graphql.Int},
		"leadStatus":     &graphql.Field{Type: graphql.String},
		"lifecycleStage": &graphql.Field{Type: graphql.String},
		"doNotCall":      &graphql.Field{Type: graphql.Boolean},
		"doNotEmail":     &graphql.Field{Type: graphql.Boolean},
		"emailBounced":   &graphql.Field{Type: graphql.Boolean},
		"unsubscribed":   &graphql.Field{Type: graphql.Boolean},
		"enrichment":     &graphql.Field{Type: jsonScalar},
		"customFields":   &graphql.Field{Type: jsonScalar},
		"ownerId":        &graphql.Field{Type: graphql.ID},
		"createdAt":      &graphql.Field{Type: dateTime},
		"updatedAt":      &graphql.Field{Type: dateTime},
	},
})

var companyType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Company",
	Fields: graphql.Fields{
		"id":             &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"organizationId": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":           &graphql.Field{Type: graphql.String},
		"domain":         &graphql.Field{Type: graphql.String},
		"industry":       &graphql.Field{Type: graphql.String},
		"employeeCount":  &graphql.Field{Type: graphql.Int},
		"address":        &graphql.Field{Type: graphql.String},
		"enrichment":     &graphql.Field{Type: jsonScalar},
		"ownerId":        &graphql.Field{Type: graphql.ID},
		"createdAt":      &graphql.Field{Type: dateTime},
		"updatedAt":      &graphql.Field{Type: dateTime},
	},
})

var dealType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Deal",
	Fields: graphql.Fields{
		"id":                &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"organizationId":    &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"contactId":         &graphql.Field{Type: graphql.ID},
		"companyId":         &graphql.Field{Type: graphql.ID},
		"name":              &graphql.Field{Type: graphql.String},
		"amount":            &graphql.Field{Type: graphql.Float},
		"currency":          &graphql.Field{Type: graphql.String},
		"stage":             &graphql.Field{Type: graphql.String},
		"probability":       &graphql.Field{Type: graphql.Int},
		"expectedCloseDate": &graphql.Field{Type: dateTime},
		"closedAt":          &graphql.Field{Type: dateTime},
		"lostReason":        &graphql.Field{Type: graphql.String},
		"lostReasonDetail":  &graphql.Field{Type: graphql.String},
		"ownerId":           &graphql.Field{Type: graphql.ID},
		"createdAt":         &graphql.Field{Type: dateTime},
		"updatedAt":         &graphql.Field{Type: dateTime},
	},
})

var activityType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Activity",
	Fields: graphql.Fields{
		"id":                  &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"organizationId":      &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"contactId":           &graphql.Field{Type: graphql.ID},
		"dealId":              &graphql.Field{Type: graphql.ID},
		"type":                &graphql.Field{Type: graphql.String},
		"subject":             &graphql.Field{Type: graphql.String},
		"body":                &graphql.Field{Type: graphql.String},
		"callDurationSeconds": &graphql.Field{Type: graphql.Int},
		"emailOpened":         &graphql.Field{Type: graphql.Boolean},
		"emailClicked":        &graphql.Field{Type: graphql.Boolean},
		"meetingStartsAt":     &graphql.Field{Type: dateTime},
		"meetingEndsAt":       &graphql.Field{Type: dateTime},
		"taskStatus":          &graphql.Field{Type: graphql.String},
		"metadata":            &graphql.Field{Type: jsonScalar},
		"ownerId":             &graphql.Field{Type: graphql.ID},
		"createdAt":           &graphql.Field{Type: dateTime},
		"updatedAt":           &graphql.Field{Type: dateTime},
	},
})

var campaignType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Campaign",
	Fields: graphql.Fields{
		"id":             &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"organizationId": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":           &graphql.Field{Type: graphql.String},
		"channels":       &graphql.Field{Type: graphql.NewList(graphql.String)},
		"status":         &graphql.Field{Type: graphql.String},
		"executionId":    &graphql.Field{Type: graphql.String},
		"sent":           &graphql.Field{Type: graphql.Int},
		"delivered":      &graphql.Field{Type: graphql.Int},
		"opened":         &graphql.Field{Type: graphql.Int},
		"clicked":        &graphql.Field{Type: graphql.Int},
		"replied":        &graphql.Field{Type: graphql.Int},
		"converted":      &graphql.Field{Type: graphql.Int},
		"bounced":        &graphql.Field{Type: graphql.Int},
		"startDate":      &graphql.Field{Type: dateTime},
		"endDate":        &graphql.Field{Type: dateTime},
		"createdAt":      &graphql.Field{Type: dateTime},
		"updatedAt":      &graphql.Field{Type: dateTime},
	},
})

var voiceCallType = graphql.NewObject(graphql.ObjectConfig{
	Name: "VoiceCall",
	Fields: graphql.Fields{
		"id":              &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"organizationId":  &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"contactId":       &graphql.Field{Type: graphql.ID},
		"activityId":      &graphql.Field{Type: graphql.ID},
		"campaignId":      &graphql.Field{Type: graphql.ID},
		"externalCallId":  &graphql.Field{Type: graphql.String},
		"phoneNumber":     &graphql.Field{Type: graphql.String},
		"status":          &graphql.Field{Type: graphql.String},
		"script":          &graphql.Field{Type: graphql.String},
		"firstMessage":    &graphql.Field{Type: graphql.String},
		"startedAt":       &graphql.Field{Type: dateTime},
		"endedAt":         &graphql.Field{Type: dateTime},
		"durationSeconds": &graphql.Field{Type: graphql.Int},
		"transcript":      &graphql.Field{Type: graphql.String},
		"recordingUrl":    &graphql.Field{Type: graphql.String},
		"endedReason":     &graphql.Field{Type: graphql.String},
		"sentiment":       &graphql.Field{Type: graphql.String},
		"topics":          &graphql.Field{Type: graphql.NewList(graphql.String)},
		"objections":      &graphql.Field{Type: graphql.NewList(graphql.String)},
		"actionItems":     &graphql.Field{Type: graphql.NewList(graphql.String)},
		"dealScore":       &graphql.Field{Type: graphql.Int},
		"summary":         &graphql.Field{Type: graphql.String},
		"analysis":        &graphql.Field{Type: jsonScalar},
		"createdAt":       &graphql.Field{Type: dateTime},
		"updatedAt":       &graphql.Field{Type: dateTime},
	},
})

var visitRouteType = graphql.NewObject(graphql.ObjectConfig{
	Name: "VisitRoute",
	Fields: graphql.Fields{
		"companies":       &graphql.Field{Type: graphql.NewList(companyType)},
		"distanceMeters":  &graphql.Field{Type: graphql.Int},
		"durationSeconds": &graphql.Field{Type: graphql.Int},
	},
})

var serviceHealthType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ServiceHealth",
	Fields: graphql.Fields{
		"name":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"healthy": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"detail":  &graphql.Field{Type: graphql.String},
	},
})

var searchHealthType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SearchHealth",
	Fields: graphql.Fields{
		"vector":   &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"graph":    &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"fulltext": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
	},
})

var healthType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Health",
	Fields: graphql.Fields{
		"healthy":  &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"services": &graphql.Field{Type: graphql.NewList(serviceHealthType)},
		"search":   &graphql.Field{Type: searchHealthType},
		"time":     &graphql.Field{Type: dateTime},
	},
})
