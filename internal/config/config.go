package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                  = "SIGNROOM"
	defaultHTTPAddress         = "0.0.0.0:8080"
	defaultDatabasePath        = "signroom.db"
	defaultLogLevel            = "info"
	defaultLogFormat           = "json"
	defaultIssuer              = "signroom"
	defaultCookieName          = "app_session"
	defaultTokenTTLMinutes     = 60
	defaultLocation            = "São Paulo, SP"
	defaultDraftingModel       = "gemini-2.5-flash"
	defaultRequestsPerMinute   = 30
	defaultNotifyDelayMillis   = 1500
	defaultAttachmentsMaxBytes = 10 << 20
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	AllowedOrigins []string
	DatabasePath   string
	LogLevel       string
	LogFormat      string

	AuthSigningSecret string
	AuthIssuer        string
	AuthCookieName    string
	AuthTokenTTL      time.Duration

	DefaultLocation string
	SeedDemo        bool

	DraftingAPIKey            string
	DraftingBaseURL           string
	DraftingModel             string
	DraftingRequestsPerMinute int

	NotifyDelay         time.Duration
	AttachmentsMaxBytes int64
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", []string{"*"})
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("auth.issuer", defaultIssuer)
	configViper.SetDefault("auth.cookie_name", defaultCookieName)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("contracts.default_location", defaultLocation)
	configViper.SetDefault("contracts.seed_demo", false)
	configViper.SetDefault("drafting.model", defaultDraftingModel)
	configViper.SetDefault("drafting.requests_per_minute", defaultRequestsPerMinute)
	configViper.SetDefault("notify.delay_ms", defaultNotifyDelayMillis)
	configViper.SetDefault("attachments.max_bytes", defaultAttachmentsMaxBytes)

	// AutomaticEnv only resolves keys viper already knows about.
	configViper.SetDefault("auth.signing_secret", "")
	configViper.SetDefault("drafting.api_key", "")
	configViper.SetDefault("drafting.base_url", "")
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:               configViper.GetString("http.address"),
		AllowedOrigins:            configViper.GetStringSlice("http.allowed_origins"),
		DatabasePath:              configViper.GetString("database.path"),
		LogLevel:                  configViper.GetString("log.level"),
		LogFormat:                 configViper.GetString("log.format"),
		AuthSigningSecret:         configViper.GetString("auth.signing_secret"),
		AuthIssuer:                configViper.GetString("auth.issuer"),
		AuthCookieName:            configViper.GetString("auth.cookie_name"),
		AuthTokenTTL:              time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		DefaultLocation:           configViper.GetString("contracts.default_location"),
		SeedDemo:                  configViper.GetBool("contracts.seed_demo"),
		DraftingAPIKey:            configViper.GetString("drafting.api_key"),
		DraftingBaseURL:           configViper.GetString("drafting.base_url"),
		DraftingModel:             configViper.GetString("drafting.model"),
		DraftingRequestsPerMinute: configViper.GetInt("drafting.requests_per_minute"),
		NotifyDelay:               time.Duration(configViper.GetInt("notify.delay_ms")) * time.Millisecond,
		AttachmentsMaxBytes:       configViper.GetInt64("attachments.max_bytes"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.AuthSigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.AuthCookieName) == "" {
		return fmt.Errorf("auth.cookie_name is required")
	}
	if c.AuthTokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	if c.NotifyDelay < 0 {
		return fmt.Errorf("notify.delay_ms must not be negative")
	}
	if c.AttachmentsMaxBytes <= 0 {
		return fmt.Errorf("attachments.max_bytes must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "json", "console", "":
	default:
		return fmt.Errorf("log.format must be json or console")
	}
	return nil
}
