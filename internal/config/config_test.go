package config

import (
	"testing"
	"time"
)

func validConfig(env string) Config {
	return Config{
		App:   AppConfig{Env: env, Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "nexuscrm", SSLMode: "disable"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
		Services: ServicesConfig{
			OrchestrationURL: "http://orchestration:9000",
			ReasoningURL:     "http://reasoning:9001",
			SearchURL:        "http://search:9002",
			GeospatialURL:    "http://geo:9003",
			IdentityURL:      "http://identity:9004",
		},
		Vapi: VapiConfig{
			BaseURL:       "https://api.vapi.ai",
			APIKey:        "k",
			PhoneNumberID: "pn-1",
			WebhookSecret: "whsec",
		},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_OK(t *testing.T) {
	c := validConfig("local")
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Services.OrchestrationTimeout != 120*time.Second {
		t.Fatalf("expected orchestration timeout default, got %v", c.Services.OrchestrationTimeout)
	}
	if c.Vapi.MaxConcurrentCalls != 10 {
		t.Fatalf("expected concurrent call default, got %d", c.Vapi.MaxConcurrentCalls)
	}
}

func TestValidate_ProductionRequiresWebhookSecret(t *testing.T) {
	c := validConfig("production")
	c.Vapi.WebhookSecret = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without VAPI_WEBHOOK_SECRET")
	}
}

func TestValidate_ProductionRequiresIdentityService(t *testing.T) {
	c := validConfig("production")
	c.Services.IdentityURL = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without IDENTITY_SERVICE_URL")
	}
}

func TestValidate_LocalAllowsJWTSecretOnly(t *testing.T) {
	c := validConfig("local")
	c.Services.IdentityURL = ""
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_RejectsMissingTokenVerification(t *testing.T) {
	c := validConfig("local")
	c.Services.IdentityURL = ""
	c.Auth.JWTSecret = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when no verification mode is configured")
	}
}

func TestValidate_LocalDefaultsSSLMode(t *testing.T) {
	c := validConfig("local")
	c.DB.SSLMode = ""
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
}
