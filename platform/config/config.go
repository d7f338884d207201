// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// GeocoderConfig provides settings for the address geocoding provider.
type GeocoderConfig interface {
	GetGeocoderURL() string
	GetGeocoderUserAgent() string
	GetGeocoderCountryCodes() string
	GetGeocoderRatePerSecond() float64
}

// PipelineConfig provides the switches and thresholds of the property
// qualification pipeline.
type PipelineConfig interface {
	GetServiceRadiusMiles() float64
	GetAllowedPickupDays() []string
	GetRouteMaxStopsPerDay() int
	IsAutoAssignPickupDayEnabled() bool
	IsAutoApproveEnabled() bool
	GetAutoApproveMaxMiles() float64
	GetAutoApproveMaxMinutes() float64
	GetAverageRouteSpeedMPH() float64
	IsFeasibilityCheckEnabled() bool
}

// DispatchConfig provides settings for the external dispatch/routing provider.
type DispatchConfig interface {
	GetDispatchBaseURL() string
	GetDispatchAPIKey() string
	IsDispatchConfigured() bool
}

// BillingConfig provides settings for the billing provider.
type BillingConfig interface {
	GetStripeSecretKey() string
	IsBillingEnabled() bool
}

// OperatorMailConfig provides settings for operator notification emails.
type OperatorMailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromAddress() string
	GetEmailFromName() string
	GetOperatorEmails() []string
	IsOperatorMailEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	DatabaseURL             string
	MigrationsDir           string
	JWTAccessSecret         string
	AccessTokenTTL          time.Duration
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	ActivationSweepInterval time.Duration
	GeocoderURL             string
	GeocoderUserAgent       string
	GeocoderCountryCodes    string
	GeocoderRatePerSecond   float64
	ServiceRadiusMiles      float64
	AllowedPickupDays       []string
	RouteMaxStopsPerDay     int
	AutoAssignPickupDay     bool
	AutoApprove             bool
	AutoApproveMaxMiles     float64
	AutoApproveMaxMinutes   float64
	AverageRouteSpeedMPH    float64
	UseFeasibilityCheck     bool
	DispatchBaseURL         string
	DispatchAPIKey          string
	StripeSecretKey         string
	SMTPHost                string
	SMTPPort                int
	SMTPUsername            string
	SMTPPassword            string
	EmailFromAddress        string
	EmailFromName           string
	OperatorEmails          []string
	ZonesFile               string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string         { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool   { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string   { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int    { return c.AsynqConcurrency }

// GeocoderConfig implementation
func (c *Config) GetGeocoderURL() string             { return c.GeocoderURL }
func (c *Config) GetGeocoderUserAgent() string       { return c.GeocoderUserAgent }
func (c *Config) GetGeocoderCountryCodes() string    { return c.GeocoderCountryCodes }
func (c *Config) GetGeocoderRatePerSecond() float64  { return c.GeocoderRatePerSecond }

// PipelineConfig implementation
func (c *Config) GetServiceRadiusMiles() float64    { return c.ServiceRadiusMiles }
func (c *Config) GetAllowedPickupDays() []string    { return c.AllowedPickupDays }
func (c *Config) GetRouteMaxStopsPerDay() int       { return c.RouteMaxStopsPerDay }
func (c *Config) IsAutoAssignPickupDayEnabled() bool { return c.AutoAssignPickupDay }
func (c *Config) IsAutoApproveEnabled() bool        { return c.AutoApprove }
func (c *Config) GetAutoApproveMaxMiles() float64   { return c.AutoApproveMaxMiles }
func (c *Config) GetAutoApproveMaxMinutes() float64 { return c.AutoApproveMaxMinutes }
func (c *Config) GetAverageRouteSpeedMPH() float64  { return c.AverageRouteSpeedMPH }
func (c *Config) IsFeasibilityCheckEnabled() bool   { return c.UseFeasibilityCheck }

// DispatchConfig implementation
func (c *Config) GetDispatchBaseURL() string { return c.DispatchBaseURL }
func (c *Config) GetDispatchAPIKey() string  { return c.DispatchAPIKey }
func (c *Config) IsDispatchConfigured() bool {
	return c.DispatchAPIKey != "" && c.DispatchBaseURL != ""
}

// BillingConfig implementation
func (c *Config) GetStripeSecretKey() string { return c.StripeSecretKey }
func (c *Config) IsBillingEnabled() bool     { return c.StripeSecretKey != "" }

// OperatorMailConfig implementation
func (c *Config) GetSMTPHost() string          { return c.SMTPHost }
func (c *Config) GetSMTPPort() int             { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string      { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string      { return c.SMTPPassword }
func (c *Config) GetEmailFromAddress() string  { return c.EmailFromAddress }
func (c *Config) GetEmailFromName() string     { return c.EmailFromName }
func (c *Config) GetOperatorEmails() []string  { return c.OperatorEmails }
func (c *Config) IsOperatorMailEnabled() bool {
	return c.SMTPHost != "" && c.EmailFromAddress != "" && len(c.OperatorEmails) > 0
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		MigrationsDir:           getEnv("MIGRATIONS_DIR", "migrations"),
		JWTAccessSecret:         getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:          mustDuration(getEnv("JWT_ACCESS_TTL", "12h")),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        parseBool(getEnv("REDIS_TLS_INSECURE", "false")),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		ActivationSweepInterval: mustDuration(getEnv("ACTIVATION_SWEEP_INTERVAL", "15m")),
		GeocoderURL:             getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org/search"),
		GeocoderUserAgent:       getEnv("GEOCODER_USER_AGENT", "CollectionPortal/1.0"),
		GeocoderCountryCodes:    getEnv("GEOCODER_COUNTRY_CODES", "us"),
		GeocoderRatePerSecond:   mustFloat(getEnv("GEOCODER_RATE_PER_SECOND", "1")),
		ServiceRadiusMiles:      mustFloat(getEnv("SERVICE_RADIUS_MILES", "5")),
		AllowedPickupDays:       splitCSV(getEnv("ALLOWED_PICKUP_DAYS", "monday,tuesday,wednesday,thursday,friday,saturday")),
		RouteMaxStopsPerDay:     mustInt(getEnv("ROUTE_MAX_STOPS_PER_DAY", "0")),
		AutoAssignPickupDay:     parseBool(getEnv("AUTO_ASSIGN_PICKUP_DAY", "true")),
		AutoApprove:             parseBool(getEnv("AUTO_APPROVE_PROPERTIES", "false")),
		AutoApproveMaxMiles:     mustFloat(getEnv("AUTO_APPROVE_MAX_MILES", "0")),
		AutoApproveMaxMinutes:   mustFloat(getEnv("AUTO_APPROVE_MAX_MINUTES", "0")),
		AverageRouteSpeedMPH:    mustFloat(getEnv("AVERAGE_ROUTE_SPEED_MPH", "25")),
		UseFeasibilityCheck:     parseBool(getEnv("USE_DISPATCH_FEASIBILITY_CHECK", "false")),
		DispatchBaseURL:         getEnv("DISPATCH_BASE_URL", ""),
		DispatchAPIKey:          getEnv("DISPATCH_API_KEY", ""),
		StripeSecretKey:         getEnv("STRIPE_SECRET_KEY", ""),
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:            getEnv("SMTP_USERNAME", ""),
		SMTPPassword:            getEnv("SMTP_PASSWORD", ""),
		EmailFromAddress:        getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:           getEnv("EMAIL_FROM_NAME", "Collection Portal"),
		OperatorEmails:          splitCSV(getEnv("OPERATOR_EMAILS", "")),
		ZonesFile:               getEnv("ZONES_FILE", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.AverageRouteSpeedMPH <= 0 {
		return nil, fmt.Errorf("AVERAGE_ROUTE_SPEED_MPH must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func parseBool(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
