package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// All values must come from env (or a local .env file in dev).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Services ServicesConfig
	Vapi     VapiConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for managed-Postgres posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

// AuthConfig selects the token verification mode.
// When Services.IdentityURL is set, tokens are verified remotely against the
// identity service. JWTSecret enables local HS256 verification for dev/test.
type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

// ServicesConfig carries the base URLs for the five platform services NexusCRM
// delegates to. Timeouts are fixed per client; only the slow orchestration
// timeout is tunable because workflow launches can legitimately take minutes.
type ServicesConfig struct {
	OrchestrationURL     string
	OrchestrationTimeout time.Duration
	ReasoningURL         string
	SearchURL            string
	GeospatialURL        string
	IdentityURL          string
}

type VapiConfig struct {
	BaseURL       string
	APIKey        string
	PhoneNumberID string
	WebhookSecret string

	// MaxConcurrentCalls caps in-flight outbound calls per organization.
	MaxConcurrentCalls int
}

func Load() (Config, error) {
	// Best-effort .env load for local development; real deployments inject env.
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))

	c.Services.OrchestrationURL = trimURL(os.Getenv("ORCHESTRATION_SERVICE_URL"))
	c.Services.OrchestrationTimeout = mustDuration("ORCHESTRATION_TIMEOUT")
	c.Services.ReasoningURL = trimURL(os.Getenv("REASONING_SERVICE_URL"))
	c.Services.SearchURL = trimURL(os.Getenv("SEARCH_SERVICE_URL"))
	c.Services.GeospatialURL = trimURL(os.Getenv("GEOSPATIAL_SERVICE_URL"))
	c.Services.IdentityURL = trimURL(os.Getenv("IDENTITY_SERVICE_URL"))

	c.Vapi.BaseURL = trimURL(os.Getenv("VAPI_BASE_URL"))
	c.Vapi.APIKey = os.Getenv("VAPI_API_KEY")
	c.Vapi.PhoneNumberID = strings.TrimSpace(os.Getenv("VAPI_PHONE_NUMBER_ID"))
	c.Vapi.WebhookSecret = os.Getenv("VAPI_WEBHOOK_SECRET")
	if v := strings.TrimSpace(os.Getenv("VAPI_MAX_CONCURRENT_CALLS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("VAPI_MAX_CONCURRENT_CALLS must be an integer, got %q", v))
		}
		c.Vapi.MaxConcurrentCalls = n
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	// Token verification needs either the identity service or a local secret.
	if c.Services.IdentityURL == "" && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("IDENTITY_SERVICE_URL or JWT_SECRET is required"))
	}
	if c.IsProduction() && c.Services.IdentityURL == "" {
		errs = append(errs, errors.New("IDENTITY_SERVICE_URL is required in production"))
	}

	if c.Services.OrchestrationURL == "" {
		errs = append(errs, errors.New("ORCHESTRATION_SERVICE_URL is required"))
	}
	if c.Services.ReasoningURL == "" {
		errs = append(errs, errors.New("REASONING_SERVICE_URL is required"))
	}
	if c.Services.SearchURL == "" {
		errs = append(errs, errors.New("SEARCH_SERVICE_URL is required"))
	}
	if c.Services.GeospatialURL == "" {
		errs = append(errs, errors.New("GEOSPATIAL_SERVICE_URL is required"))
	}
	if c.Services.OrchestrationTimeout <= 0 {
		c.Services.OrchestrationTimeout = 120 * time.Second
	}

	if c.Vapi.BaseURL == "" {
		errs = append(errs, errors.New("VAPI_BASE_URL is required"))
	}
	if c.Vapi.APIKey == "" {
		errs = append(errs, errors.New("VAPI_API_KEY is required"))
	}
	if c.Vapi.PhoneNumberID == "" {
		errs = append(errs, errors.New("VAPI_PHONE_NUMBER_ID is required"))
	}
	// An unset webhook secret disables signature verification. That is tolerated
	// for local development only; production must fail fast at startup.
	if c.Vapi.WebhookSecret == "" && c.IsProduction() {
		errs = append(errs, errors.New("VAPI_WEBHOOK_SECRET is required in production"))
	}
	if c.Vapi.MaxConcurrentCalls <= 0 {
		c.Vapi.MaxConcurrentCalls = 10
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func trimURL(v string) string {
	return strings.TrimRight(strings.TrimSpace(v), "/")
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
