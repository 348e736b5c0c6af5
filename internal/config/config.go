package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/soaringjerry/MoodMetrics/internal/models"
	"github.com/soaringjerry/MoodMetrics/internal/services"
)

// EnvPrefix namespaces environment overrides, e.g. MOODMETRICS_SERVER_PORT.
const EnvPrefix = "MOODMETRICS"

// Config struct is the top-level configuration structure.
type Config struct {
	Server     ServerConfig        `mapstructure:"server"`
	Database   DatabaseConfig      `mapstructure:"database"`
	Auth       AuthConfig          `mapstructure:"auth"`
	Logging    LoggingConfig       `mapstructure:"logging"`
	Dashboard  DashboardConfig     `mapstructure:"dashboard"`
	Thresholds services.Thresholds `mapstructure:"thresholds"`
	Settings   SettingsDefaults    `mapstructure:"settings"`
	AI         services.ChatConfig `mapstructure:"ai"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	StaticDir       string        `mapstructure:"static_dir"`
	Commit          string        `mapstructure:"commit"`
	BuildTime       string        `mapstructure:"build_time"`
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	if strings.Contains(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}

// DatabaseConfig selects the store. Driver "memory" keeps everything in
// process and is meant for development.
type DatabaseConfig struct {
	Driver        string `mapstructure:"driver"`
	Path          string `mapstructure:"path"`
	MigrationsDir string `mapstructure:"migrations_dir"`
	// LegacyResponses points at an old JSON response log imported on the
	// first start against a new database.
	LegacyResponses string `mapstructure:"legacy_responses"`
	// Seed creates the admin account and default templates on start.
	Seed bool `mapstructure:"seed"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	AdminEmail    string        `mapstructure:"admin_email"`
	AdminPassword string        `mapstructure:"admin_password"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Console    bool   `mapstructure:"console"`
}

type DashboardConfig struct {
	services.DashboardOptions `mapstructure:",squash"`
	KeywordsFile              string `mapstructure:"keywords_file"`
}

// SettingsDefaults seed the workspace settings record until one is saved.
type SettingsDefaults struct {
	AnonymityThreshold int  `mapstructure:"anonymity_threshold"`
	RemindersEnabled   bool `mapstructure:"reminders_enabled"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.commit", "")
	v.SetDefault("server.build_time", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/moodmetrics.db")
	v.SetDefault("database.migrations_dir", "")
	v.SetDefault("database.legacy_responses", "data/responses.json")
	v.SetDefault("database.seed", true)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "168h")
	v.SetDefault("auth.admin_email", "admin@psycheck.com")
	v.SetDefault("auth.admin_password", "admin123")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // MB
	v.SetDefault("logging.max_backups", 3) // files
	v.SetDefault("logging.max_age", 7)     // days
	v.SetDefault("logging.compress", true)
	v.SetDefault("logging.console", true)

	dash := services.DefaultDashboardOptions()
	v.SetDefault("dashboard.window_days", dash.WindowDays)
	v.SetDefault("dashboard.dynamics_weeks", dash.DynamicsWeeks)
	v.SetDefault("dashboard.zone_limit", dash.ZoneLimit)
	v.SetDefault("dashboard.recommendation_limit", dash.RecommendationLimit)
	v.SetDefault("dashboard.keywords_file", "")

	th := services.DefaultThresholds()
	v.SetDefault("thresholds.high_answer", th.HighAnswer)
	v.SetDefault("thresholds.wellbeing_ok", th.WellbeingOK)
	v.SetDefault("thresholds.wellbeing_risk", th.WellbeingRisk)
	v.SetDefault("thresholds.percent_risk", th.PercentRisk)
	v.SetDefault("thresholds.percent_critical", th.PercentCritical)
	v.SetDefault("thresholds.zone_risk", th.ZoneRisk)
	v.SetDefault("thresholds.zone_critical", th.ZoneCritical)
	v.SetDefault("thresholds.wellbeing_weight", th.WellbeingWeight)
	v.SetDefault("thresholds.burnout_weight", th.BurnoutWeight)
	v.SetDefault("thresholds.tension_weight", th.TensionWeight)
	v.SetDefault("thresholds.rec_burnout", th.RecBurnout)
	v.SetDefault("thresholds.rec_burnout_critical", th.RecBurnoutCritical)
	v.SetDefault("thresholds.rec_tension", th.RecTension)
	v.SetDefault("thresholds.rec_tension_critical", th.RecTensionCritical)
	v.SetDefault("thresholds.rec_wellbeing", th.RecWellbeing)
	v.SetDefault("thresholds.rec_wellbeing_critical", th.RecWellbeingCritical)

	st := services.DefaultSettings()
	v.SetDefault("settings.anonymity_threshold", st.AnonymityThreshold)
	v.SetDefault("settings.reminders_enabled", st.RemindersEnabled)

	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.temperature", 0.6)
	v.SetDefault("ai.system_prompt", "")
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.max_retry_time", "20s")
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and MOODMETRICS_* environment variables, in increasing
// order of precedence. An empty file searches config/config.yaml under the
// working directory; a missing file there is not an error.
func Load(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(filepath.Join(".", "config"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.Server.AllowedOrigins = splitOrigins(cfg.Server.AllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitOrigins accepts both YAML lists and a comma separated env value.
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, o := range strings.Split(item, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for the sqlite driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if len(c.Auth.AdminPassword) > services.MaxPasswordLength {
		errs = append(errs, fmt.Errorf("auth.admin_password must not exceed %d bytes", services.MaxPasswordLength))
	}
	t := c.Thresholds
	if t.HighAnswer < services.LikertMin || t.HighAnswer > services.LikertMax {
		errs = append(errs, errors.New("thresholds.high_answer must be within 1..5"))
	}
	if t.WellbeingRisk > t.WellbeingOK {
		errs = append(errs, errors.New("thresholds.wellbeing_risk must not exceed wellbeing_ok"))
	}
	if t.PercentRisk > t.PercentCritical {
		errs = append(errs, errors.New("thresholds.percent_risk must not exceed percent_critical"))
	}
	if t.ZoneRisk > t.ZoneCritical {
		errs = append(errs, errors.New("thresholds.zone_risk must not exceed zone_critical"))
	}
	if w := t.WellbeingWeight + t.BurnoutWeight + t.TensionWeight; w <= 0 {
		errs = append(errs, errors.New("thresholds weights must add up to a positive value"))
	}
	if a := c.Settings.AnonymityThreshold; a < services.MinAnonymityThreshold || a > services.MaxAnonymityThreshold {
		errs = append(errs, errors.New("settings.anonymity_threshold must be within 1..100"))
	}
	return errors.Join(errs...)
}

// DevSecret is used when auth.jwt_secret is unset. Tokens signed with it
// are only safe on a developer machine.
const DevSecret = "moodmetrics-dev-secret"

// Secret returns the configured JWT secret or DevSecret.
func (a AuthConfig) Secret() string {
	if a.JWTSecret == "" {
		return DevSecret
	}
	return a.JWTSecret
}

// Record converts the defaults into a settings record.
func (s SettingsDefaults) Record() models.Settings {
	return models.Settings{AnonymityThreshold: s.AnonymityThreshold, RemindersEnabled: s.RemindersEnabled}
}
