package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider es la registración OAuth de un proveedor social.
// Un proveedor sin client_id/client_secret queda deshabilitado.
type Provider struct {
	Enabled      bool     `yaml:"enabled"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	CallbackURL  string   `yaml:"callback_url"`
	Scopes       []string `yaml:"scopes"`

	// Extras por proveedor
	Tenant          string `yaml:"tenant"`            // microsoft: default "common"
	GraphAPIVersion string `yaml:"graph_api_version"` // facebook: default v12.0
	ConsumerKey     string `yaml:"consumer_key"`      // twitter: alias de client_id
	ConsumerSecret  string `yaml:"consumer_secret"`   // twitter: alias de client_secret
}

// Configured dice si el proveedor tiene credenciales usables.
func (p Provider) Configured() bool {
	id, secret := p.Credentials()
	return id != "" && secret != ""
}

// Credentials resuelve id/secret honrando los alias de Twitter.
func (p Provider) Credentials() (id, secret string) {
	id, secret = p.ClientID, p.ClientSecret
	if id == "" {
		id = p.ConsumerKey
	}
	if secret == "" {
		secret = p.ConsumerSecret
	}
	return id, secret
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // memory | postgres
		DSN      string `yaml:"dsn"`
		Migrate  bool   `yaml:"migrate"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	JWT struct {
		Secret    string `yaml:"secret"`
		Issuer    string `yaml:"issuer"`
		AccessTTL string `yaml:"access_ttl"`
	} `yaml:"jwt"`

	Auth struct {
		StateTTL     string `yaml:"state_ttl"`
		LoginCodeTTL string `yaml:"login_code_ttl"`
		Session      struct {
			CookieName string `yaml:"cookie_name"`
			Domain     string `yaml:"domain"`
			SameSite   string `yaml:"samesite"`
			Secure     bool   `yaml:"secure"`
			TTL        string `yaml:"ttl"`
		} `yaml:"session"`
	} `yaml:"auth"`

	// URLs de aterrizaje post-login de la aplicación integradora.
	Redirect struct {
		Success string `yaml:"success"`
		Failure string `yaml:"failure"`
	} `yaml:"redirect"`

	Providers struct {
		Google    Provider `yaml:"google"`
		Facebook  Provider `yaml:"facebook"`
		Github    Provider `yaml:"github"`
		Linkedin  Provider `yaml:"linkedin"`
		Microsoft Provider `yaml:"microsoft"`
		Twitter   Provider `yaml:"twitter"`
	} `yaml:"providers"`
}

// Load lee el YAML, aplica defaults, pisa con variables de entorno y
// valida las duraciones.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "socialauth"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "24h"
	}
	if c.Auth.StateTTL == "" {
		c.Auth.StateTTL = "10m"
	}
	if c.Auth.LoginCodeTTL == "" {
		c.Auth.LoginCodeTTL = "2m"
	}
	if c.Auth.Session.CookieName == "" {
		c.Auth.Session.CookieName = "sa_session"
	}
	if c.Auth.Session.TTL == "" {
		c.Auth.Session.TTL = "24h"
	}
	if c.Redirect.Success == "" {
		c.Redirect.Success = "/auth/success"
	}
	if c.Redirect.Failure == "" {
		c.Redirect.Failure = "/auth/error"
	}
	if c.Providers.Microsoft.Tenant == "" {
		c.Providers.Microsoft.Tenant = "common"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("CACHE_REDIS_HOST"); ok {
		c.Cache.Redis.Host = v
	}
	if v, ok := getEnvInt("CACHE_REDIS_PORT"); ok {
		c.Cache.Redis.Port = v
	}
	if v, ok := getEnvStr("CACHE_REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.JWT.Secret = v
	}
	if v, ok := getEnvStr("REDIRECT_SUCCESS"); ok {
		c.Redirect.Success = v
	}
	if v, ok := getEnvStr("REDIRECT_FAILURE"); ok {
		c.Redirect.Failure = v
	}

	for name, p := range map[string]*Provider{
		"GOOGLE":    &c.Providers.Google,
		"FACEBOOK":  &c.Providers.Facebook,
		"GITHUB":    &c.Providers.Github,
		"LINKEDIN":  &c.Providers.Linkedin,
		"MICROSOFT": &c.Providers.Microsoft,
		"TWITTER":   &c.Providers.Twitter,
	} {
		if v, ok := getEnvStr("PROVIDERS_" + name + "_CLIENT_ID"); ok {
			p.ClientID = v
		}
		if v, ok := getEnvStr("PROVIDERS_" + name + "_CLIENT_SECRET"); ok {
			p.ClientSecret = v
		}
		if v, ok := getEnvStr("PROVIDERS_" + name + "_CALLBACK_URL"); ok {
			p.CallbackURL = v
		}
		if v, ok := getEnvCSV("PROVIDERS_" + name + "_SCOPES"); ok {
			p.Scopes = v
		}
	}
}

// ---- Duraciones ----

// duration parsea una duración ya validada por Validate.
func duration(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return fallback
}

func (c *Config) AccessTTL() time.Duration       { return duration(c.JWT.AccessTTL, 24*time.Hour) }
func (c *Config) StateTTL() time.Duration        { return duration(c.Auth.StateTTL, 10*time.Minute) }
func (c *Config) LoginCodeTTL() time.Duration    { return duration(c.Auth.LoginCodeTTL, 2*time.Minute) }
func (c *Config) SessionTTL() time.Duration      { return duration(c.Auth.Session.TTL, 24*time.Hour) }
func (c *Config) CacheDefaultTTL() time.Duration { return duration(c.Cache.Memory.DefaultTTL, 2*time.Minute) }

// Validate chequea los valores críticos.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"jwt.access_ttl":       c.JWT.AccessTTL,
		"auth.state_ttl":       c.Auth.StateTTL,
		"auth.login_code_ttl":  c.Auth.LoginCodeTTL,
		"auth.session.ttl":     c.Auth.Session.TTL,
		"cache.memory.default_ttl": c.Cache.Memory.DefaultTTL,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: %s: invalid duration %q", name, v)
		}
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return fmt.Errorf("config: storage.postgres.conn_max_lifetime: invalid duration %q", c.Storage.Postgres.ConnMaxLifetime)
		}
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: jwt.secret is required")
	}
	return nil
}
