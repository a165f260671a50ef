package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Google   GoogleConfig   `yaml:"google"`
	Crypto   CryptoConfig   `yaml:"crypto"`
	Calendar CalendarConfig `yaml:"calendar"`
	Sharing  SharingConfig  `yaml:"sharing"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	// BaseURL is the public origin used for share links and the OAuth redirect URI.
	BaseURL string `yaml:"base_url"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// JWTConfig holds session token configuration
type JWTConfig struct {
	Secret          string `yaml:"secret"`
	SessionTTLHours int    `yaml:"session_ttl_hours"`
}

// GoogleConfig holds Google OAuth and Calendar API configuration
type GoogleConfig struct {
	ClientID    string        `yaml:"client_id"`
	Scopes      []string      `yaml:"scopes"`
	Timeout     time.Duration `yaml:"timeout"`
	APIEndpoint string        `yaml:"api_endpoint"`
	// EventSource selects where shared calendar events come from: "mock" or "google".
	EventSource string `yaml:"event_source"`
}

// CryptoConfig holds at-rest encryption settings for stored access tokens
type CryptoConfig struct {
	// TokenKey is a base64 encoded 32 byte key. Empty stores tokens as plaintext.
	TokenKey string `yaml:"token_key"`
}

// CalendarConfig controls the week window
type CalendarConfig struct {
	Timezone  string `yaml:"timezone"`
	WeekStart string `yaml:"week_start"` // "sunday" or "monday"
}

// SharingConfig controls access to another user's shared calendar
type SharingConfig struct {
	RequirePair bool `yaml:"require_pair"`
}

// AuthConfig holds account rules
type AuthConfig struct {
	RequireEmailConfirmation bool `yaml:"require_email_confirmation"`
	MinPasswordLength        int  `yaml:"min_password_length"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.Normalize()

	return &cfg, nil
}

// applyEnv lets secrets come from the environment instead of the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		c.Google.ClientID = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("TOKEN_ENCRYPTION_KEY"); v != "" {
		c.Crypto.TokenKey = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
}

// Normalize fills in missing values with defaults
func (c *Config) Normalize() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")

	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.JWT.SessionTTLHours <= 0 {
		c.JWT.SessionTTLHours = 24 * 7
	}

	if len(c.Google.Scopes) == 0 {
		c.Google.Scopes = []string{
			"https://www.googleapis.com/auth/calendar.readonly",
			"https://www.googleapis.com/auth/calendar.events.readonly",
		}
	}
	if c.Google.Timeout <= 0 {
		c.Google.Timeout = 10 * time.Second
	}
	switch c.Google.EventSource {
	case "mock", "google":
	default:
		c.Google.EventSource = "mock"
	}

	if c.Calendar.Timezone == "" {
		c.Calendar.Timezone = "UTC"
	}
	switch strings.ToLower(c.Calendar.WeekStart) {
	case "monday":
		c.Calendar.WeekStart = "monday"
	default:
		c.Calendar.WeekStart = "sunday"
	}

	if c.Auth.MinPasswordLength <= 0 {
		c.Auth.MinPasswordLength = 6
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Location resolves the configured display timezone, falling back to UTC.
func (c *CalendarConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SessionTTL returns the lifetime of a signed-in session
func (c *JWTConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// MigrateURL returns the connection URL understood by the pgx5 migrate driver
func (c *DatabaseConfig) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
