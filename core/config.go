package core

import (
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

type (
	Config struct {
		Env                       string
		Build                     string
		AppName                   string
		Debug                     bool
		TestMode                  bool
		FrontendBaseURL           string
		SessionSecret             string
		RollbarToken              string
		SendgridAPIKey            string
		DefaultFromEmail          mail.Address
		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
	}

	ServerConfig struct {
		Host            string
		Port            string
		DebugHost       string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		URL       string
		AuthToken string
	}
)

// Address returns the address the API server listens on.
func (c ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// IsLocal reports whether URL points to an embedded sqlite database, which needs no auth token.
func (c DatabaseConfig) IsLocal() bool {
	return c.URL == ":memory:" || strings.HasPrefix(c.URL, "file:") || strings.HasPrefix(c.URL, "sqlite:")
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// NewConfig reads the configuration from the environment (and optional .env files)
// and fails when a required value is missing.
func NewConfig() (*Config, error) {
	env := strings.ToLower(os.Getenv("ENV"))
	if env == "" {
		env = EnvDevelopment
	}

	// load .env files if they exist (ignore if they do not)
	for _, name := range []string{".env." + env, ".env"} {
		if _, err := os.Stat(name); err == nil {
			if err = godotenv.Load(name); err != nil {
				return nil, errors.Wrapf(err, "loading %s", name)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "stat %s", name)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.AutomaticEnv()

	// defaults
	v.SetDefault("BUILD", "develop")
	v.SetDefault("APP_NAME", "TDM")
	v.SetDefault("FRONTEND_BASE_URL", "http://localhost:8000")
	v.SetDefault("DEFAULT_FROM_EMAIL", "TDM <noreply@localhost>")
	v.SetDefault("PASSWORD_RESET_TIMEOUT", 72*time.Hour)
	v.SetDefault("SERVER_HOST", "")
	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("SERVER_DEBUG_HOST", "localhost:4000")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second)
	v.SetDefault("SERVER_DISABLE_REQ_LOGS", false)

	from, err := mail.ParseAddress(v.GetString("DEFAULT_FROM_EMAIL"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing DEFAULT_FROM_EMAIL")
	}

	conf := &Config{
		Env:                       env,
		Build:                     v.GetString("BUILD"),
		AppName:                   v.GetString("APP_NAME"),
		Debug:                     env == EnvDevelopment,
		TestMode:                  env == EnvTest,
		FrontendBaseURL:           strings.TrimRight(v.GetString("FRONTEND_BASE_URL"), "/"),
		SessionSecret:             v.GetString("SESSION_SECRET"),
		RollbarToken:              v.GetString("ROLLBAR_TOKEN"),
		SendgridAPIKey:            v.GetString("SENDGRID_API_KEY"),
		DefaultFromEmail:          *from,
		PasswordResetTimeoutDelta: v.GetDuration("PASSWORD_RESET_TIMEOUT"),
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetString("SERVER_PORT"),
			DebugHost:       v.GetString("SERVER_DEBUG_HOST"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			DisableReqLogs:  v.GetBool("SERVER_DISABLE_REQ_LOGS"),
		},
		Database: DatabaseConfig{
			URL:       v.GetString("TURSO_DB_URL"),
			AuthToken: v.GetString("TURSO_DB_AUTH_TOKEN"),
		},
	}
	if err = conf.check(); err != nil {
		return nil, err
	}
	return conf, nil
}

// check fails fast on missing required values.
func (c *Config) check() error {
	checks := []vala.Checker{
		vala.StringNotEmpty(c.Database.URL, "TURSO_DB_URL"),
		vala.StringNotEmpty(c.SessionSecret, "SESSION_SECRET"),
	}
	if !c.Database.IsLocal() {
		checks = append(checks, vala.StringNotEmpty(c.Database.AuthToken, "TURSO_DB_AUTH_TOKEN"))
	}
	if err := vala.BeginValidation().Validate(checks...).Check(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}
