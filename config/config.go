package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath    = "config/config.yml"
	StatisticR2          = "r2"
	StatisticDPrime      = "d"
	defaultGWASBaseURL   = "https://www.ebi.ac.uk/gwas/rest/api/"
	defaultLDLinkBaseURL = "https://ldlink.nih.gov/LDlinkRest/"
)

type Config struct {
	LDExplorer AppConfig      `yaml:"ldexplorer"`
	GWAS       GWASConfig     `yaml:"gwas"`
	LDLink     LDLinkConfig   `yaml:"ldlink"`
	Pipeline   PipelineConfig `yaml:"pipeline"`
	Output     OutputConfig   `yaml:"output"`
	Storage    StorageConfig  `yaml:"storage"`
	Logging    LoggingConfig  `yaml:"logging"`
	Metrics    MetricsConfig  `yaml:"metrics"`
	Server     ServerConfig   `yaml:"server"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type GWASConfig struct {
	BaseURL         string               `yaml:"base_url"`
	Timeout         time.Duration        `yaml:"timeout"`
	PageSize        int                  `yaml:"page_size"`
	PValueThreshold float64              `yaml:"pvalue_threshold"`
	ConnectionPool  ConnectionPoolConfig `yaml:"connection_pool"`
}

type LDLinkConfig struct {
	BaseURL           string               `yaml:"base_url"`
	Token             string               `yaml:"token"`
	GenomeBuild       string               `yaml:"genome_build"`
	Window            int                  `yaml:"window"`
	Statistic         string               `yaml:"statistic"`
	Threshold         float64              `yaml:"threshold"`
	Timeout           time.Duration        `yaml:"timeout"`
	RequestsPerSecond float64              `yaml:"requests_per_second"`
	Burst             int                  `yaml:"burst"`
	ConnectionPool    ConnectionPoolConfig `yaml:"connection_pool"`
}

type PipelineConfig struct {
	MaxWorkers    int     `yaml:"max_workers"`
	TraitWorkers  int     `yaml:"trait_workers"`
	VariantPrefix string  `yaml:"variant_prefix"`
	MatchCutoff   float64 `yaml:"match_cutoff"`
}

type OutputConfig struct {
	Format      string `yaml:"format"`
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	ReportInterval time.Duration    `yaml:"report_interval"`
	CloudWatch     CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	History         int           `yaml:"history"`
}

// Default returns the configuration used when no file is present. The
// values reproduce the public GWAS Catalog and LDlink deployments.
func Default() Config {
	pool := ConnectionPoolConfig{
		MaxIdleConns:    32,
		MaxConnsPerHost: 16,
		IdleConnTimeout: 90 * time.Second,
	}
	return Config{
		LDExplorer: AppConfig{Name: "ldexplorer", Version: "1.0.0"},
		GWAS: GWASConfig{
			BaseURL:         defaultGWASBaseURL,
			Timeout:         60 * time.Second,
			PageSize:        10000,
			PValueThreshold: 1e-2,
			ConnectionPool:  pool,
		},
		LDLink: LDLinkConfig{
			BaseURL:        defaultLDLinkBaseURL,
			GenomeBuild:    "grch38",
			Window:         500000,
			Statistic:      StatisticR2,
			Threshold:      0.8,
			Timeout:        60 * time.Second,
			Burst:          1,
			ConnectionPool: pool,
		},
		Pipeline: PipelineConfig{
			MaxWorkers:    10,
			TraitWorkers:  4,
			VariantPrefix: "rs",
			MatchCutoff:   0.6,
		},
		Output: OutputConfig{Format: "json", Compression: "snappy"},
		Storage: StorageConfig{
			S3: S3Config{Prefix: "ldexplorer"},
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stderr"},
		Metrics: MetricsConfig{
			ReportInterval: time.Minute,
			CloudWatch:     CloudWatchConfig{Namespace: "LDExplorer", Dashboard: "LDExplorer"},
		},
		Server: ServerConfig{Address: ":8080", ShutdownTimeout: 10 * time.Second, History: 200},
	}
}

// LoadConfig reads path over the defaults, applies environment overrides and
// validates the result. An empty path resolves to the APP_ENV specific file
// or DefaultConfigPath; a missing default file leaves the defaults in place.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	path = resolveEnvSpecificPath(path, DefaultConfigPath, map[string]string{
		environmentProduction: "config/config.production.yml",
		environmentStaging:    "config/config.staging.yml",
	})

	config := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnvOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

func applyEnvOverrides(config *Config) {
	if v := strings.TrimSpace(os.Getenv("LDLINK_TOKEN")); v != "" {
		config.LDLink.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("LDLINK_BASE_URL")); v != "" {
		config.LDLink.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("GWAS_BASE_URL")); v != "" {
		config.GWAS.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LDEXPLORER_MAX_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Pipeline.MaxWorkers = n
		}
	}

	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)
}

// Validate checks a configuration assembled outside LoadConfig, for example
// after command line overrides.
func (c *Config) Validate() error {
	return validateConfig(c)
}

func validateConfig(cfg *Config) error {
	if cfg.LDExplorer.Name == "" {
		return fmt.Errorf("ldexplorer.name is required")
	}
	if cfg.GWAS.BaseURL == "" {
		return fmt.Errorf("gwas.base_url is required")
	}
	if cfg.GWAS.PageSize <= 0 {
		return fmt.Errorf("gwas.page_size must be greater than 0")
	}
	if cfg.GWAS.PValueThreshold <= 0 || cfg.GWAS.PValueThreshold > 1 {
		return fmt.Errorf("gwas.pvalue_threshold must be in (0, 1]")
	}
	if cfg.LDLink.BaseURL == "" {
		return fmt.Errorf("ldlink.base_url is required")
	}
	if cfg.LDLink.Statistic != StatisticR2 && cfg.LDLink.Statistic != StatisticDPrime {
		return fmt.Errorf("ldlink.statistic must be %q or %q", StatisticR2, StatisticDPrime)
	}
	if cfg.LDLink.Threshold < 0 || cfg.LDLink.Threshold > 1 {
		return fmt.Errorf("ldlink.threshold must be in [0, 1]")
	}
	if cfg.LDLink.Window <= 0 {
		return fmt.Errorf("ldlink.window must be greater than 0")
	}
	if cfg.LDLink.RequestsPerSecond < 0 {
		return fmt.Errorf("ldlink.requests_per_second must not be negative")
	}
	if IsProductionLike(AppEnvironment()) && cfg.LDLink.Token == "" {
		return fmt.Errorf("ldlink.token is required in %s", AppEnvironment())
	}
	if cfg.Pipeline.MaxWorkers <= 0 {
		return fmt.Errorf("pipeline.max_workers must be greater than 0")
	}
	if cfg.Pipeline.TraitWorkers <= 0 {
		return fmt.Errorf("pipeline.trait_workers must be greater than 0")
	}
	if cfg.Pipeline.MatchCutoff < 0 || cfg.Pipeline.MatchCutoff > 1 {
		return fmt.Errorf("pipeline.match_cutoff must be in [0, 1]")
	}

	switch cfg.Output.Format {
	case "json", "csv", "parquet":
	default:
		return fmt.Errorf("output.format '%s' is invalid", cfg.Output.Format)
	}
	switch cfg.Output.Compression {
	case "", "none", "snappy", "gzip", "lzo":
	default:
		return fmt.Errorf("output.compression '%s' is invalid", cfg.Output.Compression)
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
