// Package config loads service configuration and resolves job arguments.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Trigger backends.
const (
	BackendInMemory = "inmemory"
	BackendAMQP     = "amqp"
	BackendBigQuery = "bigquery"
)

// Defaults of the deployed pipeline.
const (
	DefaultJobName        = "DataProcessingJob"
	DefaultOutputPrefix   = "output/"
	DefaultBookmarkOption = "job-bookmark-enable"
	DefaultListenAddr     = ":8080"
	DefaultQueue          = "batch-etl.job-runs"
	DefaultDatabaseName   = "batch_etl"
	DefaultTableName      = "processed_data"
)

type Config struct {
	LogLevel   string        `yaml:"log_level"`
	ListenAddr string        `yaml:"listen_addr"`
	Storage    StorageConfig `yaml:"storage"`
	Job        JobConfig     `yaml:"job"`
	Trigger    TriggerConfig `yaml:"trigger"`
	Catalog    CatalogConfig `yaml:"catalog"`
}

type StorageConfig struct {
	// Scheme of the bucket events arrive for: gs, s3 or mem.
	Scheme string   `yaml:"scheme"`
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type JobConfig struct {
	Name             string            `yaml:"name"`
	OutputPrefix     string            `yaml:"output_prefix"`
	BookmarkOption   string            `yaml:"bookmark_option"`
	MaxRetries       int               `yaml:"max_retries"`
	DefaultArguments map[string]string `yaml:"default_arguments"`
}

type TriggerConfig struct {
	Backend    string `yaml:"backend"`
	AMQPURL    string `yaml:"amqp_url"`
	Queue      string `yaml:"queue"`
	BufferSize int    `yaml:"buffer_size"`
	Workers    int    `yaml:"workers"`
}

type CatalogConfig struct {
	Backend   string `yaml:"backend"`
	ProjectID string `yaml:"project_id"`
	Location  string `yaml:"location"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:   "info",
		ListenAddr: DefaultListenAddr,
		Storage:    StorageConfig{Scheme: "gs"},
		Job: JobConfig{
			Name:           DefaultJobName,
			OutputPrefix:   DefaultOutputPrefix,
			BookmarkOption: DefaultBookmarkOption,
			DefaultArguments: map[string]string{
				"--database_name": DefaultDatabaseName,
				"--table_name":    DefaultTableName,
			},
		},
		Trigger: TriggerConfig{
			Backend:    BackendInMemory,
			Queue:      DefaultQueue,
			BufferSize: 100,
			Workers:    2,
		},
		Catalog: CatalogConfig{Backend: BackendInMemory},
	}
}

// LoadConfig reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LOG_LEVEL":       &c.LogLevel,
		"LISTEN_ADDR":     &c.ListenAddr,
		"STORAGE_SCHEME":  &c.Storage.Scheme,
		"S3_ENDPOINT":     &c.Storage.S3.Endpoint,
		"S3_ACCESS_KEY":   &c.Storage.S3.AccessKey,
		"S3_SECRET_KEY":   &c.Storage.S3.SecretKey,
		"S3_REGION":       &c.Storage.S3.Region,
		"JOB_NAME":        &c.Job.Name,
		"OUTPUT_PREFIX":   &c.Job.OutputPrefix,
		"TRIGGER_BACKEND": &c.Trigger.Backend,
		"AMQP_URL":        &c.Trigger.AMQPURL,
		"AMQP_QUEUE":      &c.Trigger.Queue,
		"CATALOG_BACKEND": &c.Catalog.Backend,
		"GCP_PROJECT_ID":  &c.Catalog.ProjectID,
		"BQ_LOCATION":     &c.Catalog.Location,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("S3_USE_SSL"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("S3_USE_SSL: %w", err)
		}
		c.Storage.S3.UseSSL = b
	}

	ints := map[string]*int{
		"JOB_MAX_RETRIES": &c.Job.MaxRetries,
		"TRIGGER_WORKERS": &c.Trigger.Workers,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Storage.Scheme {
	case "gs", "s3", "mem":
	default:
		return fmt.Errorf("storage.scheme must be gs, s3 or mem, got %q", c.Storage.Scheme)
	}
	if c.Storage.Scheme == "s3" && c.Storage.S3.Endpoint == "" {
		return errors.New("storage.s3.endpoint is required for the s3 scheme")
	}
	if c.Job.Name == "" {
		return errors.New("job.name is required")
	}
	if c.Job.OutputPrefix == "" {
		return errors.New("job.output_prefix is required")
	}
	if c.Job.MaxRetries < 0 {
		return errors.New("job.max_retries must not be negative")
	}

	switch c.Trigger.Backend {
	case BackendInMemory:
		if c.Trigger.Workers <= 0 {
			return errors.New("trigger.workers must be positive")
		}
		if c.Trigger.BufferSize <= 0 {
			return errors.New("trigger.buffer_size must be positive")
		}
	case BackendAMQP:
		if c.Trigger.AMQPURL == "" {
			return errors.New("trigger.amqp_url is required for the amqp backend")
		}
		if c.Trigger.Queue == "" {
			return errors.New("trigger.queue is required for the amqp backend")
		}
	default:
		return fmt.Errorf("trigger.backend must be inmemory or amqp, got %q", c.Trigger.Backend)
	}

	switch c.Catalog.Backend {
	case BackendInMemory:
	case BackendBigQuery:
		if c.Catalog.ProjectID == "" {
			return errors.New("catalog.project_id is required for the bigquery backend")
		}
	default:
		return fmt.Errorf("catalog.backend must be inmemory or bigquery, got %q", c.Catalog.Backend)
	}
	return nil
}
