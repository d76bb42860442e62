package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"little-lemon/internal/models"
)

// Storage backends selectable with server.storage.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all configuration for the ordering backend
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Memory   MemoryConfig   `yaml:"memory"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int    `yaml:"port"`
	Storage        string `yaml:"storage"`
	RequestTimeout int    `yaml:"request_timeout_seconds"`
	MigrationsPath string `yaml:"migrations_path"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

// MemoryConfig holds the accounts provisioned when server.storage is memory.
// PostgreSQL deployments provision users in the users table instead.
type MemoryConfig struct {
	Users []SeedUser `yaml:"users"`
}

// SeedUser is an account created at startup of the in-memory store
type SeedUser struct {
	Username string   `yaml:"username"`
	Token    string   `yaml:"token"`
	Admin    bool     `yaml:"admin"`
	Groups   []string `yaml:"groups"`
}

// Roles converts the group names to roles. Unknown names are skipped;
// Validate rejects them.
func (u SeedUser) Roles() []models.Role {
	roles := make([]models.Role, 0, len(u.Groups))
	for _, g := range u.Groups {
		if r, ok := models.ParseRole(g); ok {
			roles = append(roles, r)
		}
	}
	return roles
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8000,
			Storage:        StoragePostgres,
			RequestTimeout: 30,
			MigrationsPath: "migrations",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			SSLMode:  "disable",
			MaxConns: 25,
		},
		RabbitMQ: RabbitMQConfig{
			Port:  5672,
			VHost: "/",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file and applies environment overrides
func Load(filename string) (*Config, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(content)
}

// Parse decodes YAML content on top of the defaults.
func Parse(content []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides values from LL_* environment variables
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LL_STORAGE":           &c.Server.Storage,
		"LL_DB_HOST":           &c.Database.Host,
		"LL_DB_USER":           &c.Database.User,
		"LL_DB_PASSWORD":       &c.Database.Password,
		"LL_DB_NAME":           &c.Database.Database,
		"LL_RABBITMQ_HOST":     &c.RabbitMQ.Host,
		"LL_RABBITMQ_USER":     &c.RabbitMQ.User,
		"LL_RABBITMQ_PASSWORD": &c.RabbitMQ.Password,
		"LL_LOG_LEVEL":         &c.Log.Level,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"LL_HTTP_PORT":     &c.Server.Port,
		"LL_DB_PORT":       &c.Database.Port,
		"LL_RABBITMQ_PORT": &c.RabbitMQ.Port,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", key, err)
		}
		*dst = n
	}

	if v, ok := lookup("LL_RABBITMQ_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LL_RABBITMQ_ENABLED value: %w", err)
		}
		c.RabbitMQ.Enabled = enabled
	}
	return nil
}

// Validate checks that required values are present and consistent
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535"))
	}
	switch c.Server.Storage {
	case StoragePostgres:
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Database == "" {
			errs = append(errs, errors.New("database config incomplete"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown server.storage: %s", c.Server.Storage))
	}
	tokens := make(map[string]bool, len(c.Memory.Users))
	for i, u := range c.Memory.Users {
		if u.Username == "" || u.Token == "" {
			errs = append(errs, fmt.Errorf("memory.users[%d]: username and token are required", i))
		}
		if tokens[u.Token] {
			errs = append(errs, fmt.Errorf("memory.users[%d]: duplicate token", i))
		}
		tokens[u.Token] = true
		for _, g := range u.Groups {
			if _, ok := models.ParseRole(g); !ok {
				errs = append(errs, fmt.Errorf("memory.users[%d]: unknown group %q", i, g))
			}
		}
	}
	if c.RabbitMQ.Enabled && (c.RabbitMQ.Host == "" || c.RabbitMQ.User == "") {
		errs = append(errs, errors.New("rabbitmq config incomplete"))
	}

	return errors.Join(errs...)
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database, c.Database.SSLMode)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	vhost := c.RabbitMQ.VHost
	if vhost == "/" {
		vhost = ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port, vhost)
}
