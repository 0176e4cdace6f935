package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda "dev".
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	JWT struct {
		// Secret es la clave simétrica HMAC. Obligatoria: sin ella el
		// proceso no arranca (Validate).
		Secret     string `yaml:"secret"`
		Issuer     string `yaml:"issuer"`
		AccessTTL  string `yaml:"access_ttl"`
		RefreshTTL string `yaml:"refresh_ttl"`
	} `yaml:"jwt"`

	Auth struct {
		// RedirectURL es la URL del front-end a la que se redirige tras un
		// login social exitoso (el access token viaja como query param).
		RedirectURL string `yaml:"redirect_url"`

		// SyntheticEmailDomain se usa para sintetizar emails cuando el
		// proveedor no los entrega: {provider}_{providerID}@{dominio}.
		SyntheticEmailDomain string `yaml:"synthetic_email_domain"`

		Cookie struct {
			Domain   string `yaml:"domain"`
			SameSite string `yaml:"samesite"`
			Secure   bool   `yaml:"secure"`
		} `yaml:"cookie"`

		// StateTTL limita la vida del parámetro "state" de OAuth.
		StateTTL string `yaml:"state_ttl"`
	} `yaml:"auth"`

	Providers map[string]Provider `yaml:"providers"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
		Social struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"social"`
	} `yaml:"rate"`
}

// Provider son las credenciales de un proveedor de identidad social.
type Provider struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.finish()
	return &c, nil
}

// FromEnv construye la config sin archivo: defaults + variables de
// entorno. Útil en contenedores donde todo viene por env.
func FromEnv() *Config {
	var c Config
	c.finish()
	return &c
}

func (c *Config) finish() {
	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "communo"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "15m"
	}
	if c.JWT.RefreshTTL == "" {
		c.JWT.RefreshTTL = "720h" // 30d
	}
	if c.Auth.SyntheticEmailDomain == "" {
		c.Auth.SyntheticEmailDomain = "users.communo.app"
	}
	if c.Auth.StateTTL == "" {
		c.Auth.StateTTL = "10m"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Rate.Social.Limit == 0 {
		c.Rate.Social.Limit = 30
	}
	if c.Rate.Social.Window == "" {
		c.Rate.Social.Window = "1m"
	}

	c.applyEnvOverrides()
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
// En prod el secret suele venir por env y no por archivo.
func (c *Config) applyEnvOverrides() {
	if v := getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.Server.CORSAllowedOrigins = splitCSV(v)
	}
	if v := getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Kind = "redis"
		c.Cache.Redis.Addr = v
	}
	if v := getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := getenv("JWT_ACCESS_TTL"); v != "" {
		c.JWT.AccessTTL = v
	}
	if v := getenv("JWT_REFRESH_TTL"); v != "" {
		c.JWT.RefreshTTL = v
	}
	if v := getenv("AUTH_REDIRECT_URL"); v != "" {
		c.Auth.RedirectURL = v
	}
	if v := getenv("RATE_ENABLED"); v != "" {
		c.Rate.Enabled, _ = strconv.ParseBool(v)
	}

	// Credenciales de providers: KAKAO_CLIENT_ID, GOOGLE_CLIENT_SECRET, etc.
	for _, name := range []string{"kakao", "google", "naver"} {
		up := strings.ToUpper(name)
		p := c.Providers[name]
		changed := false
		if v := getenv(up + "_CLIENT_ID"); v != "" {
			p.ClientID, changed = v, true
		}
		if v := getenv(up + "_CLIENT_SECRET"); v != "" {
			p.ClientSecret, changed = v, true
		}
		if v := getenv(up + "_REDIRECT_URL"); v != "" {
			p.RedirectURL, changed = v, true
		}
		if changed {
			if c.Providers == nil {
				c.Providers = map[string]Provider{}
			}
			c.Providers[name] = p
		}
	}
}

// Validate chequea valores críticos. La clave de firma ausente o corta es la
// única condición fatal del subsistema: se corta acá, nunca por request.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("jwt.secret es obligatorio (o env JWT_SECRET)")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt.secret demasiado corto: se requieren >= 32 bytes para HS256")
	}
	if _, err := time.ParseDuration(c.JWT.AccessTTL); err != nil {
		return fmt.Errorf("jwt.access_ttl inválido: %w", err)
	}
	if _, err := time.ParseDuration(c.JWT.RefreshTTL); err != nil {
		return fmt.Errorf("jwt.refresh_ttl inválido: %w", err)
	}
	if c.Storage.Driver != "postgres" && c.Storage.Driver != "memory" {
		return fmt.Errorf("storage.driver desconocido: %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("storage.dsn es obligatorio con driver postgres")
	}
	if c.Auth.RedirectURL != "" {
		if _, err := url.Parse(c.Auth.RedirectURL); err != nil {
			return fmt.Errorf("auth.redirect_url inválida: %w", err)
		}
	}
	return nil
}

// AccessTTL retorna el TTL del access token ya parseado.
// Load+Validate garantizan que el parseo no falla.
func (c *Config) AccessTTL() time.Duration {
	d, _ := time.ParseDuration(c.JWT.AccessTTL)
	return d
}

// RefreshTTL retorna el TTL del refresh credential ya parseado.
func (c *Config) RefreshTTL() time.Duration {
	d, _ := time.ParseDuration(c.JWT.RefreshTTL)
	return d
}

// StateTTL retorna la vida máxima del state de OAuth.
func (c *Config) StateTTL() time.Duration {
	d, err := time.ParseDuration(c.Auth.StateTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// ---- Helpers env ----

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
