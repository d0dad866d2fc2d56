package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/runforge-labs/actiond/internal/platform/env"
)

type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Region        string
	UseSSL        bool
	BucketResults string
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("ACTIOND_MINIO_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:      env.String("ACTIOND_MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:     env.String("ACTIOND_MINIO_ACCESS_KEY", "actiond"),
		SecretKey:     env.String("ACTIOND_MINIO_SECRET_KEY", "actiondminio"),
		Region:        env.String("ACTIOND_MINIO_REGION", "us-east-1"),
		UseSSL:        useSSL,
		BucketResults: env.String("ACTIOND_MINIO_BUCKET_RESULTS", "results"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(c.BucketResults) == "" {
		return errors.New("results bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}
