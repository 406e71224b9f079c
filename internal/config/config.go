// Package config provides layered configuration loading: defaults, an
// optional YAML or TOML file, a .env file and finally environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultDotEnv is the .env file read by Load and LoadFromFile.
const DefaultDotEnv = ".env"

// Config holds the complete application configuration.
type Config struct {
	// Provider selects the delivery backend. Empty means auto-detect.
	Provider  string          `yaml:"provider" toml:"provider"`
	Mail      MailConfig      `yaml:"mail" toml:"mail"`
	Templates TemplatesConfig `yaml:"templates" toml:"templates"`
	SMTP      SMTPConfig      `yaml:"smtp" toml:"smtp"`
	SES       SESConfig       `yaml:"ses" toml:"ses"`
	Graph     GraphConfig     `yaml:"graph" toml:"graph"`
	Resend    ResendConfig    `yaml:"resend" toml:"resend"`
	File      FileConfig      `yaml:"file" toml:"file"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// MailConfig holds message defaults and rendering options.
type MailConfig struct {
	DefaultFrom    string `yaml:"default_from" toml:"default_from"`
	CSSFile        string `yaml:"css_file" toml:"css_file"`
	ImageRoot      string `yaml:"image_root" toml:"image_root"`
	HighlightStyle string `yaml:"highlight_style" toml:"highlight_style"`
	AllowRawHTML   bool   `yaml:"allow_raw_html" toml:"allow_raw_html"`
	Sanitize       bool   `yaml:"sanitize" toml:"sanitize"`
}

// TemplatesConfig describes where Markdown templates live.
type TemplatesConfig struct {
	BaseDir string      `yaml:"base_dir" toml:"base_dir"`
	Apps    []AppConfig `yaml:"apps" toml:"apps"`
	// Dirs are converted in addition to the app template directories.
	Dirs          []string `yaml:"dirs" toml:"dirs"`
	Subdir        string   `yaml:"subdir" toml:"subdir"`
	CommentSyntax string   `yaml:"comment_syntax" toml:"comment_syntax"`
}

// AppConfig names an application and its root directory.
type AppConfig struct {
	Name string `yaml:"name" toml:"name"`
	Path string `yaml:"path" toml:"path"`
}

// SMTPConfig holds SMTP relay configuration.
type SMTPConfig struct {
	Host               string `yaml:"host" toml:"host"`
	Port               int    `yaml:"port" toml:"port"`
	Username           string `yaml:"username" toml:"username"`
	Password           string `yaml:"password" toml:"password"`
	SSL                bool   `yaml:"ssl" toml:"ssl"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" toml:"insecure_skip_verify"`
	LocalName          string `yaml:"local_name" toml:"local_name"`
}

// SESConfig holds AWS SES configuration.
type SESConfig struct {
	Region           string `yaml:"region" toml:"region"`
	AccessKeyID      string `yaml:"access_key_id" toml:"access_key_id"`
	SecretAccessKey  string `yaml:"secret_access_key" toml:"secret_access_key"`
	Sender           string `yaml:"sender" toml:"sender"`
	ConfigurationSet string `yaml:"configuration_set" toml:"configuration_set"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID        string `yaml:"tenant_id" toml:"tenant_id"`
	ClientID        string `yaml:"client_id" toml:"client_id"`
	ClientSecret    string `yaml:"client_secret" toml:"client_secret"`
	Sender          string `yaml:"sender" toml:"sender"`
	SaveToSentItems bool   `yaml:"save_to_sent_items" toml:"save_to_sent_items"`
}

// ResendConfig holds Resend API configuration.
type ResendConfig struct {
	APIKey      string `yaml:"api_key" toml:"api_key"`
	SenderEmail string `yaml:"sender_email" toml:"sender_email"`
	SenderName  string `yaml:"sender_name" toml:"sender_name"`
}

// FileConfig holds the directory the file provider writes to.
type FileConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	// File additionally writes JSON logs to a rotated file.
	File string `yaml:"file" toml:"file"`
}

// MetricsConfig holds the optional Prometheus textfile output path.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" toml:"textfile"`
}

// Load loads configuration from defaults, the .env file and environment
// variables. Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := loadDotEnv(DefaultDotEnv); err != nil {
		return nil, err
	}
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file, or a TOML file when
// the extension is .toml, as the base layer, then overrides with the .env
// file and environment variables. Returns an error if the file does not
// exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := loadDotEnv(DefaultDotEnv); err != nil {
		return nil, err
	}
	// Environment variables always override file values
	cfg.applyEnvVars()

	return cfg, nil
}

// loadDotEnv exports the variables in path that are not already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// GraphConfigured returns true if all four Graph API credentials are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != "" &&
		c.Graph.Sender != ""
}

// SESConfigured returns true if the SES region and sender are set.
// Credentials may come from the default AWS chain.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.SES.Sender != ""
}

// SMTPConfigured returns true if an SMTP relay host is set.
func (c *Config) SMTPConfigured() bool {
	return c.SMTP.Host != ""
}

// ResendConfigured returns true if the Resend API key and sender are set.
func (c *Config) ResendConfigured() bool {
	return c.Resend.APIKey != "" && c.Resend.SenderEmail != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.SMTP.Port = 587
	c.Templates.BaseDir = "."
	c.Templates.Subdir = "templates"
	c.Templates.CommentSyntax = "go"
	c.File.Dir = "sent"
	c.Logging.Level = "info"
	c.Logging.Format = "text"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	setString(&c.Mail.DefaultFrom, "MAIL_DEFAULT_FROM")
	setString(&c.Mail.CSSFile, "MAIL_CSS_FILE")
	setString(&c.Mail.ImageRoot, "MAIL_IMAGE_ROOT")
	setString(&c.Mail.HighlightStyle, "MAIL_HIGHLIGHT_STYLE")
	setBool(&c.Mail.AllowRawHTML, "MAIL_ALLOW_RAW_HTML")
	setBool(&c.Mail.Sanitize, "MAIL_SANITIZE")

	setString(&c.Templates.BaseDir, "TEMPLATES_BASE_DIR")
	setString(&c.Templates.Subdir, "TEMPLATES_SUBDIR")
	setString(&c.Templates.CommentSyntax, "TEMPLATES_COMMENT_SYNTAX")
	if v := os.Getenv("TEMPLATES_DIRS"); v != "" {
		c.Templates.Dirs = filepath.SplitList(v)
	}

	setString(&c.SMTP.Host, "SMTP_HOST")
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = port
		}
	}
	setString(&c.SMTP.Username, "SMTP_USERNAME")
	setString(&c.SMTP.Password, "SMTP_PASSWORD")
	setBool(&c.SMTP.SSL, "SMTP_SSL")
	setBool(&c.SMTP.InsecureSkipVerify, "SMTP_INSECURE_SKIP_VERIFY")
	setString(&c.SMTP.LocalName, "SMTP_LOCAL_NAME")

	setString(&c.SES.Region, "SES_REGION")
	setString(&c.SES.AccessKeyID, "SES_ACCESS_KEY_ID")
	setString(&c.SES.SecretAccessKey, "SES_SECRET_ACCESS_KEY")
	setString(&c.SES.Sender, "SES_SENDER")
	setString(&c.SES.ConfigurationSet, "SES_CONFIGURATION_SET")

	setString(&c.Graph.TenantID, "GRAPH_TENANT_ID")
	setString(&c.Graph.ClientID, "GRAPH_CLIENT_ID")
	setString(&c.Graph.ClientSecret, "GRAPH_CLIENT_SECRET")
	setString(&c.Graph.Sender, "GRAPH_SENDER")
	setBool(&c.Graph.SaveToSentItems, "GRAPH_SAVE_TO_SENT_ITEMS")

	setString(&c.Resend.APIKey, "RESEND_API_KEY")
	setString(&c.Resend.SenderEmail, "RESEND_FROM_EMAIL")
	setString(&c.Resend.SenderName, "RESEND_FROM_NAME")

	setString(&c.File.Dir, "FILE_DIR")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	setString(&c.Logging.File, "LOG_FILE")

	setString(&c.Metrics.Textfile, "METRICS_TEXTFILE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setBool ignores values strconv.ParseBool does not accept.
func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
