// Package config loads service settings from defaults, a YAML file,
// CONDO_* environment variables and command flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "condo"
	configName = "condo"
)

type HTTP struct {
	Addr         string   `mapstructure:"addr"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
	RateLimit    float64  `mapstructure:"rate_limit"`
	RateBurst    int      `mapstructure:"rate_burst"`
	MaxBodyBytes int64    `mapstructure:"max_body_bytes"`

	// TrustedProxies are addresses or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// Proxies parses TrustedProxies; bare addresses become single-host prefixes.
func (h HTTP) Proxies() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(h.TrustedProxies))
	for _, raw := range h.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("http.trusted_proxies: %w", err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("http.trusted_proxies: %w", err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

type Auth struct {
	Secret        string        `mapstructure:"secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	SeedFile      string        `mapstructure:"seed_file"`
}

// Remote is the PostgreSQL backend; an empty DSN runs local-only.
type Remote struct {
	DSN string `mapstructure:"dsn"`
}

type Local struct {
	Path       string `mapstructure:"path"`
	QuotaBytes int64  `mapstructure:"quota_bytes"`
}

type Logos struct {
	MaxDimension int `mapstructure:"max_dimension"`
}

// S3 enables object storage for logo images when Bucket is set.
type S3 struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PathStyle bool   `mapstructure:"path_style"`
}

type Config struct {
	HTTP   HTTP   `mapstructure:"http"`
	Auth   Auth   `mapstructure:"auth"`
	Remote Remote `mapstructure:"remote"`
	Local  Local  `mapstructure:"local"`
	Logos  Logos  `mapstructure:"logos"`
	S3     S3     `mapstructure:"s3"`
}

// Defaults returns every known key with its default value.
func Defaults() map[string]any {
	return map[string]any{
		"http.addr":            ":8080",
		"http.cors_origins":    []string{},
		"http.rate_limit":      10.0,
		"http.rate_burst":      20,
		"http.max_body_bytes":  int64(8 << 20),
		"http.trusted_proxies": []string{},
		"auth.secret":          "",
		"auth.token_ttl":       12 * time.Hour,
		"auth.idle_timeout":    30 * time.Minute,
		"auth.sweep_interval":  time.Minute,
		"auth.seed_file":       "",
		"remote.dsn":           "",
		"local.path":           "./condo.db",
		"local.quota_bytes":    int64(5 << 20),
		"logos.max_dimension":  512,
		"s3.bucket":            "",
		"s3.region":            "us-east-1",
		"s3.endpoint":          "",
		"s3.access_key":        "",
		"s3.secret_key":        "",
		"s3.path_style":        false,
	}
}

// flagKeys maps command flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":         "http.addr",
	"secret":       "auth.secret",
	"idle-timeout": "auth.idle_timeout",
	"seed-file":    "auth.seed_file",
	"pg-dsn":       "remote.dsn",
	"local-path":   "local.path",
	"local-quota":  "local.quota_bytes",
}

// RegisterFlags adds the overridable settings to cmd.
func RegisterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("addr", "", "HTTP listen address")
	f.String("secret", "", "token signing secret")
	f.Duration("idle-timeout", 0, "session idle timeout")
	f.String("seed-file", "", "YAML file with bootstrap users")
	f.String("pg-dsn", "", "PostgreSQL DSN of the remote backend (empty runs local-only)")
	f.String("local-path", "", "SQLite file for local collections")
	f.Int64("local-quota", 0, "local storage quota in bytes")
}

// Load builds the configuration. configFile, when non-empty, replaces the
// default search for condo.yaml in the working directory and /etc/up-control-access.
func Load(cmd *cobra.Command, configFile string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/up-control-access")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		for name, key := range flagKeys {
			fl := cmd.Flags().Lookup(name)
			if fl == nil {
				continue
			}
			if err := v.BindPFlag(key, fl); err != nil {
				return c, err
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// Validate checks the settings the API server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.Secret) == "" {
		errs = append(errs, errors.New("auth.secret is required (CONDO_AUTH_SECRET)"))
	}
	if c.Auth.IdleTimeout <= 0 {
		errs = append(errs, errors.New("auth.idle_timeout must be positive"))
	}
	if c.Local.QuotaBytes <= 0 {
		errs = append(errs, errors.New("local.quota_bytes must be positive"))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if _, err := c.HTTP.Proxies(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
