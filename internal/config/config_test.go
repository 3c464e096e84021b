package config

import (
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "ivr"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "issuer"
	c.Auth.JWTAudience = "aud"
	c.Webhook.SharedSecret = "s"
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
	if !strings.Contains(err.Error(), "DB_SSLMODE") {
		t.Fatalf("expected DB_SSLMODE error, got %v", err)
	}
}

func TestValidate_ProductionRequiresWebhookSecret(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.DB.SSLMode = "require"
	c.Auth.JWTIssuer = "issuer"
	c.Auth.JWTAudience = "aud"
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "WEBHOOK_SHARED_SECRET") {
		t.Fatalf("expected WEBHOOK_SHARED_SECRET error, got %v", err)
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Engine.RepoTimeout != 2*time.Second {
		t.Fatalf("expected repo timeout default, got %s", c.Engine.RepoTimeout)
	}
	if c.Webhook.RateLimitPerSecond != 50 || c.Webhook.RateLimitBurst != 100 {
		t.Fatalf("expected rate limit defaults, got %v/%v", c.Webhook.RateLimitPerSecond, c.Webhook.RateLimitBurst)
	}
}

func TestValidate_SweeperMaxAgeDefaultsWhenScheduled(t *testing.T) {
	c := validLocal()
	c.Sweeper.Schedule = "@every 10m"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Sweeper.MaxAge != 6*time.Hour {
		t.Fatalf("expected max age default, got %s", c.Sweeper.MaxAge)
	}
}
