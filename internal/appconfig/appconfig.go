package appconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v2"
)

// Config holds all configuration details
type Config struct {
	Host     string         `yaml:"host" env:"SERVICE_HOST, overwrite"`
	BasePath string         `yaml:"basePath"`
	DocsPath string         `yaml:"docsPath"`
	Auth     AuthConfig     `yaml:"auth"`
	Keycloak KeycloakConfig `yaml:"keycloak"`
	Database DatabaseConfig `yaml:"database"`
	Pulsar   PulsarConfig   `yaml:"pulsar"`
	AWS      AWSConfig      `yaml:"aws"`
	Email    EmailConfig    `yaml:"email"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AuthConfig defines who may call the user API
type AuthConfig struct {
	RequiredRole string `yaml:"requiredRole" env:"AUTH_REQUIRED_ROLE, overwrite"`
	VerifyTokens bool   `yaml:"verifyTokens"`
}

// KeycloakConfig defines the identity provider admin client
type KeycloakConfig struct {
	ClientId       string       `yaml:"clientId" env:"KEYCLOAK_CLIENT_ID, overwrite"`
	URL            string       `yaml:"url" env:"KEYCLOAK_URL, overwrite"`
	Realm          string       `yaml:"realm" env:"KEYCLOAK_REALM, overwrite"`
	TimeoutSeconds int          `yaml:"timeoutSeconds"`
	ClientSecret   SecretConfig `yaml:"clientSecret"`
}

// SecretConfig points at where a secret value is stored.
// Source is one of "env", "aws" or "kubernetes".
type SecretConfig struct {
	Source    string `yaml:"source"`
	Name      string `yaml:"name"`
	Key       string `yaml:"key"`
	Namespace string `yaml:"namespace"`
}

// DatabaseConfig defines the audit database connection details
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Source string `yaml:"source" env:"DATABASE_URL, overwrite"`
}

// PulsarConfig defines the messaging system connection details
type PulsarConfig struct {
	URL           string `yaml:"url" env:"PULSAR_URL, overwrite"`
	TopicProducer string `yaml:"topicProducer"`
	TopicConsumer string `yaml:"topicConsumer"`
	Subscription  string `yaml:"subscription"`
}

type AWSConfig struct {
	Region string `yaml:"region" env:"AWS_REGION, overwrite"`
}

// EmailConfig defines the welcome email sent to new users
type EmailConfig struct {
	Enabled bool   `yaml:"enabled"`
	Sender  string `yaml:"sender"`
	Subject string `yaml:"subject"`
}

type MetricsConfig struct {
	Path string `yaml:"path"`
}

// LoadConfig loads and parses the configuration from a given file path
func LoadConfig(path string) (*Config, error) {
	return load(context.Background(), path, envconfig.OsLookuper())
}

func load(ctx context.Context, path string, lookuper envconfig.Lookuper) (*Config, error) {
	if path == "" {
		return nil, errors.New("config file path is required")
	}

	// Parse the template file
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file template: %w", err)
	}

	// Execute the template with environment variables
	var buf bytes.Buffer
	if err := tmpl.Option("missingkey=zero").Execute(&buf, loadEnvVars()); err != nil {
		return nil, fmt.Errorf("error executing config file template: %w", err)
	}

	// Load and unmarshal the YAML
	var config Config
	if err := yaml.Unmarshal(buf.Bytes(), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	// Environment variables take precedence over the file
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &config,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	config.setDefaults()

	return &config, nil
}

func (c *Config) setDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.DocsPath == "" {
		c.DocsPath = "/api/docs"
	}
	if c.Auth.RequiredRole == "" {
		c.Auth.RequiredRole = "MODERATOR"
	}
	if c.Keycloak.TimeoutSeconds <= 0 {
		c.Keycloak.TimeoutSeconds = 10
	}
	if c.Keycloak.ClientSecret.Source == "" {
		c.Keycloak.ClientSecret.Source = "env"
	}
	if c.Keycloak.ClientSecret.Source == "env" && c.Keycloak.ClientSecret.Name == "" {
		c.Keycloak.ClientSecret.Name = "KEYCLOAK_CLIENT_SECRET"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Pulsar.Subscription == "" {
		c.Pulsar.Subscription = "backend-resources"
	}
	if c.Email.Subject == "" {
		c.Email.Subject = "Welcome"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// loadEnvVars loads environment variables into a map
func loadEnvVars() map[string]string {
	envVars := make(map[string]string)
	for _, env := range os.Environ() {
		kv := strings.SplitN(env, "=", 2)
		if len(kv) == 2 {
			envVars[kv[0]] = kv[1]
		}
	}
	return envVars
}
