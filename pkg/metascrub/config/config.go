package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/metascrub/metascrub/pkg/metascrub"
	repomemory "github.com/metascrub/metascrub/pkg/metascrub/repo/memory"
	repopg "github.com/metascrub/metascrub/pkg/metascrub/repo/postgres"
	fsstorage "github.com/metascrub/metascrub/pkg/metascrub/storage/fs"
	memorystorage "github.com/metascrub/metascrub/pkg/metascrub/storage/memory"
	s3storage "github.com/metascrub/metascrub/pkg/metascrub/storage/s3"
)

// ServerConfig represents server configuration for the metascrub service.
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Upload limits
	MaxUploadBytes int64

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Storage configuration
	DefaultStorageBackend string
	StorageBackends       []StorageBackendConfig

	// Server options
	EnableEventLogging bool
}

// StorageBackendConfig represents configuration for a storage backend.
type StorageBackendConfig struct {
	Name   string
	Type   string // "memory", "fs", "s3"
	Config map[string]interface{}
}

// Default upload cap, matching the original service limit.
const defaultMaxUploadBytes = 200 << 20

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                  "8080",
		Environment:           "development",
		MaxUploadBytes:        defaultMaxUploadBytes,
		DatabaseType:          "memory",
		DefaultStorageBackend: "memory",
		StorageBackends: []StorageBackendConfig{
			{Name: "memory", Type: "memory", Config: map[string]interface{}{}},
		},
		EnableEventLogging: true,
	}
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max upload size must be positive")
	}
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	found := false
	for _, backend := range c.StorageBackends {
		if backend.Name == c.DefaultStorageBackend {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default storage backend '%s' not found in configured backends", c.DefaultStorageBackend)
	}
	return nil
}

// BuildService creates a Service instance from the server configuration.
func (c *ServerConfig) BuildService() (metascrub.Service, error) {
	var options []metascrub.Option

	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	options = append(options, metascrub.WithRepository(repo))

	for _, backendConfig := range c.StorageBackends {
		store, err := buildStorageBackend(backendConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build storage backend %s: %w", backendConfig.Name, err)
		}
		options = append(options, metascrub.WithBlobStore(backendConfig.Name, store))
	}
	options = append(options, metascrub.WithDefaultBackend(c.DefaultStorageBackend))

	if c.EnableEventLogging {
		options = append(options, metascrub.WithEventSink(metascrub.NewSlogEventSink(slog.Default())))
	}

	return metascrub.New(options...)
}

func (c *ServerConfig) buildRepository() (metascrub.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return repomemory.New(), nil
	case "postgres":
		pool, err := pgxpool.New(context.Background(), c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		if err := pool.Ping(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func buildStorageBackend(backendConfig StorageBackendConfig) (metascrub.BlobStore, error) {
	switch backendConfig.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   stringValue(backendConfig.Config, "base_dir"),
			URLPrefix: stringValue(backendConfig.Config, "url_prefix"),
		})
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 stringValue(backendConfig.Config, "region"),
			Bucket:                 stringValue(backendConfig.Config, "bucket"),
			AccessKeyID:            stringValue(backendConfig.Config, "access_key_id"),
			SecretAccessKey:        stringValue(backendConfig.Config, "secret_access_key"),
			Endpoint:               stringValue(backendConfig.Config, "endpoint"),
			UsePathStyle:           boolValue(backendConfig.Config, "use_path_style"),
			PresignDuration:        intValue(backendConfig.Config, "presign_duration"),
			CreateBucketIfNotExist: boolValue(backendConfig.Config, "create_bucket_if_not_exist"),
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", backendConfig.Type)
	}
}

func stringValue(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func boolValue(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return false
}

func intValue(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
