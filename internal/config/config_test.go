package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: test-secret
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.App.Env != "dev" || c.Log.Level != "info" {
		t.Fatalf("app defaults: %+v", c.App)
	}
	if c.Server.Addr != ":8080" {
		t.Fatalf("addr = %q", c.Server.Addr)
	}
	if c.Storage.Driver != "memory" || c.Cache.Kind != "memory" {
		t.Fatalf("driver defaults: %s / %s", c.Storage.Driver, c.Cache.Kind)
	}
	if c.JWT.Issuer != "socialauth" || c.AccessTTL() != 24*time.Hour {
		t.Fatalf("jwt defaults: %+v", c.JWT)
	}
	if c.StateTTL() != 10*time.Minute || c.LoginCodeTTL() != 2*time.Minute {
		t.Fatalf("auth ttl defaults: %s / %s", c.StateTTL(), c.LoginCodeTTL())
	}
	if c.Redirect.Success != "/auth/success" || c.Redirect.Failure != "/auth/error" {
		t.Fatalf("redirect defaults: %+v", c.Redirect)
	}
	if c.Providers.Microsoft.Tenant != "common" {
		t.Fatalf("microsoft tenant = %q", c.Providers.Microsoft.Tenant)
	}
}

func TestLoad_MissingSecretFails(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("missing jwt.secret should fail validation")
	}
}

func TestLoad_InvalidDurationFails(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: s
  access_ttl: "un rato"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("invalid duration should fail validation")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
jwt:
  secret: from-yaml
server:
  addr: ":8080"
providers:
  github:
    client_id: yaml-id
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("PROVIDERS_GITHUB_CLIENT_SECRET", "env-secret")
	t.Setenv("PROVIDERS_GITHUB_SCOPES", "read:user, user:email")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.JWT.Secret != "from-env" || c.Server.Addr != ":9999" {
		t.Fatalf("env should win: %+v", c)
	}
	gh := c.Providers.Github
	if gh.ClientID != "yaml-id" || gh.ClientSecret != "env-secret" {
		t.Fatalf("provider merge: %+v", gh)
	}
	if len(gh.Scopes) != 2 || gh.Scopes[0] != "read:user" || gh.Scopes[1] != "user:email" {
		t.Fatalf("scopes CSV: %v", gh.Scopes)
	}
	if !gh.Configured() {
		t.Fatalf("github should be configured")
	}
}

func TestProvider_TwitterAliases(t *testing.T) {
	p := Provider{ConsumerKey: "ck", ConsumerSecret: "cs"}
	id, secret := p.Credentials()
	if id != "ck" || secret != "cs" {
		t.Fatalf("aliases: %q / %q", id, secret)
	}
	if !p.Configured() {
		t.Fatalf("consumer pair should count as configured")
	}

	// client_id explícito gana sobre el alias.
	p.ClientID = "real-id"
	id, _ = p.Credentials()
	if id != "real-id" {
		t.Fatalf("client_id should win: %q", id)
	}
}

func TestProvider_Unconfigured(t *testing.T) {
	if (Provider{ClientID: "only-id"}).Configured() {
		t.Fatalf("id without secret must not be configured")
	}
	if (Provider{}).Configured() {
		t.Fatalf("empty provider must not be configured")
	}
}

func TestLoad_FileMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("missing file should fail")
	}
}
