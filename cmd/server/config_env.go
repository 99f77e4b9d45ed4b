package main

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/metascrub/metascrub/pkg/metascrub/config"
)

// envConfig is the process environment surface of the server. It is
// translated into a config.ServerConfig so the library stays free of
// environment-variable concerns.
type envConfig struct {
	Port           string `env:"PORT" env-default:"8080"`
	Environment    string `env:"ENVIRONMENT" env-default:"development"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" env-default:"209715200"`

	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"`
	DatabaseURL  string `env:"DATABASE_URL" env-default:""`

	DefaultStorageBackend string `env:"DEFAULT_STORAGE_BACKEND" env-default:"memory"`
	EnableEventLogging    bool   `env:"ENABLE_EVENT_LOGGING" env-default:"true"`

	FSBaseDir   string `env:"FS_BASE_DIR" env-default:""`
	FSURLPrefix string `env:"FS_URL_PREFIX" env-default:""`

	S3Bucket                 string `env:"S3_BUCKET" env-default:""`
	S3Region                 string `env:"S3_REGION" env-default:""`
	S3AccessKeyID            string `env:"S3_ACCESS_KEY_ID" env-default:""`
	S3SecretAccessKey        string `env:"S3_SECRET_ACCESS_KEY" env-default:""`
	S3Endpoint               string `env:"S3_ENDPOINT" env-default:""`
	S3UsePathStyle           bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	S3PresignDuration        int    `env:"S3_PRESIGN_DURATION" env-default:"3600"`
	S3CreateBucketIfNotExist bool   `env:"S3_CREATE_BUCKET_IF_NOT_EXIST" env-default:"false"`
}

func loadServerConfigFromEnv() (*config.ServerConfig, error) {
	var env envConfig
	if err := cleanenv.ReadEnv(&env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg := &config.ServerConfig{
		Port:                  env.Port,
		Environment:           env.Environment,
		MaxUploadBytes:        env.MaxUploadBytes,
		DatabaseType:          env.DatabaseType,
		DatabaseURL:           env.DatabaseURL,
		DefaultStorageBackend: env.DefaultStorageBackend,
		EnableEventLogging:    env.EnableEventLogging,
	}
	cfg.StorageBackends = storageBackendsFromEnv(env)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func storageBackendsFromEnv(env envConfig) []config.StorageBackendConfig {
	backends := []config.StorageBackendConfig{
		{Name: "memory", Type: "memory", Config: map[string]interface{}{}},
	}

	if env.FSBaseDir != "" {
		backends = append(backends, config.StorageBackendConfig{
			Name: "fs",
			Type: "fs",
			Config: map[string]interface{}{
				"base_dir":   env.FSBaseDir,
				"url_prefix": env.FSURLPrefix,
			},
		})
	}

	if env.S3Bucket != "" {
		backends = append(backends, config.StorageBackendConfig{
			Name: "s3",
			Type: "s3",
			Config: map[string]interface{}{
				"region":                     env.S3Region,
				"bucket":                     env.S3Bucket,
				"access_key_id":              env.S3AccessKeyID,
				"secret_access_key":          env.S3SecretAccessKey,
				"endpoint":                   env.S3Endpoint,
				"use_path_style":             env.S3UsePathStyle,
				"presign_duration":           env.S3PresignDuration,
				"create_bucket_if_not_exist": env.S3CreateBucketIfNotExist,
			},
		})
	}

	return backends
}
