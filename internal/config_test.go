package internal

import (
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if !cfg.App.Verbose() {
		t.Error("development env should be verbose")
	}
	if got := cfg.App.HTTP.Address(); got != ":8080" {
		t.Errorf("address = %q", got)
	}
}

func TestApplicationConfig_ProductionNotVerbose(t *testing.T) {
	cfg := ApplicationConfig{Env: EnvProduction}
	if cfg.Verbose() {
		t.Error("production should hide error detail")
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail", port)
		}
	}
}

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_JWTMode(t *testing.T) {
	cfg := AuthConfig{Mode: "jwt"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("jwt mode without secret: %v", err)
	}
	cfg.JWTSecret = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("jwt mode with secret should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("jwt mode should be enabled")
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDatabaseConfig_Drivers(t *testing.T) {
	cfg := DatabaseConfig{SQLite: SQLiteConfig{Path: "x.db"}}
	if err := cfg.Validate(); err != nil || cfg.Driver != DriverSQLite {
		t.Fatalf("empty driver should default to sqlite: %v, %q", err, cfg.Driver)
	}

	cfg = DatabaseConfig{Driver: "postgres"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown driver should fail")
	}

	// The sqlite section is ignored when mongo is selected.
	cfg = DatabaseConfig{Driver: DriverMongo, Mongo: MongoConfig{URI: "mongodb://localhost", Database: "cities"}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("mongo config should pass: %v", err)
	}

	cfg.Mongo.Username = "admin"
	if err := cfg.Validate(); err == nil {
		t.Error("username without password should fail")
	}
}

func TestFullConfig_SectionValidationCalled(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"auth", func(c *Config) { c.Auth.Mode = "token" }},
		{"pages", func(c *Config) { c.Pages.Root = "" }},
		{"sqlite", func(c *Config) { c.Database.SQLite.Path = "" }},
		{"assets", func(c *Config) { c.Assets.Dir = "" }},
		{"log", func(c *Config) { c.App.Log.MaxBackups = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("full config validate should catch the error")
			}
		})
	}
}
