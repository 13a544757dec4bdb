package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mycontroller/adapters/myredis"
	"mycontroller/domain"
	"mycontroller/service"

	"gopkg.in/yaml.v3"
)

// Env variable names.
const (
	envHTTPPort             = "SERVICE_PORT_HTTP"
	envBaseURL              = "REVERSE_PROXY_BASE_URL"
	envConfigPath           = "CONFIG_PATH"
	envIdleTimeoutMs        = "IDLE_TIMEOUT_MS"
	envProvisionTimeoutMs   = "PROVISION_TIMEOUT_MS"
	envSweepIntervalMs      = "SWEEP_INTERVAL_MS"
	envStopGraceMs          = "STOP_GRACE_MS"
	envReadinessPollMs      = "READINESS_POLL_MS"
	envPublishIntervalMs    = "PUBLISH_INTERVAL_MS"
	envRedisAddr            = "REDIS_ADDR"
	envProxyRegistrationURL = "PROXY_REGISTRATION_URL"
)

// Defaults for the optional timing knobs (milliseconds).
const (
	defaultSweepIntervalMs   = 10000
	defaultStopGraceMs       = 30000
	defaultReadinessPollMs   = 500
	defaultPublishIntervalMs = 5000
)

// Config holds the full controller configuration loaded by LoadConfig from environment
// variables and the YAML workload template at CONFIG_PATH. Redis.Addr empty means the
// session journal (and crash recovery) is disabled; ProxyRegistrationURL empty means
// routing is driven purely by container labels.
type Config struct {
	HTTPPort             int
	BaseURL              string
	Workload             domain.WorkloadTemplate
	Lifecycle            service.LifecycleConfig
	PublishInterval      time.Duration
	Redis                myredis.RedisConfig
	ProxyRegistrationURL string
}

// yamlWorkload is the root struct for YAML unmarshalling of the workload template.
type yamlWorkload struct {
	Workload yamlWorkloadSpec `yaml:"workload"`
}

// yamlWorkloadSpec is the workload template entry: image, internal_port and network are
// required; entrypoint, name_prefix and strip_prefix have defaults; env and labels are
// passed to the container.
type yamlWorkloadSpec struct {
	Image        string            `yaml:"image"`
	InternalPort int               `yaml:"internal_port"`
	Network      string            `yaml:"network"`
	Entrypoint   string            `yaml:"entrypoint"`
	NamePrefix   string            `yaml:"name_prefix"`
	StripPrefix  *bool             `yaml:"strip_prefix"`
	Env          map[string]string `yaml:"env"`
	Labels       map[string]string `yaml:"labels"`
}

// loadWorkloadTemplate reads the YAML file at path, applies the defaults (entrypoint
// "web", name_prefix "session", strip_prefix true) and validates the template.
//
// Parameter path — absolute path to the file (LoadConfig converts CONFIG_PATH to absolute).
//
// Returns: (template, nil) on success; (zero, error) on read, parse or validation error.
//
// Called only from LoadConfig.
func loadWorkloadTemplate(path string) (domain.WorkloadTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.WorkloadTemplate{}, err
	}
	var raw yamlWorkload
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.WorkloadTemplate{}, err
	}

	spec := raw.Workload
	if strings.TrimSpace(spec.Entrypoint) == "" {
		spec.Entrypoint = "web"
	}
	if strings.TrimSpace(spec.NamePrefix) == "" {
		spec.NamePrefix = "session"
	}
	stripPrefix := true
	if spec.StripPrefix != nil {
		stripPrefix = *spec.StripPrefix
	}

	template := domain.WorkloadTemplate{
		Image:        spec.Image,
		InternalPort: spec.InternalPort,
		Network:      spec.Network,
		Entrypoint:   spec.Entrypoint,
		NamePrefix:   spec.NamePrefix,
		StripPrefix:  stripPrefix,
		Env:          spec.Env,
		Labels:       spec.Labels,
	}
	if err := template.Validate(); err != nil {
		return domain.WorkloadTemplate{}, err
	}
	return template, nil
}

// LoadConfig builds controller config from environment variables and the YAML workload
// template at CONFIG_PATH. SERVICE_PORT_HTTP (1-65535), REVERSE_PROXY_BASE_URL,
// CONFIG_PATH, IDLE_TIMEOUT_MS and PROVISION_TIMEOUT_MS are required; the remaining
// timing knobs default; REDIS_ADDR and PROXY_REGISTRATION_URL are optional features.
//
// Parameters: none (source — os.Getenv and file at CONFIG_PATH).
//
// Returns: (*Config, nil) on success; (nil, error) on the first invalid or missing value.
//
// Called only from main at startup.
func LoadConfig() (*Config, error) {
	httpPortStr := os.Getenv(envHTTPPort)
	httpPort, err := strconv.Atoi(httpPortStr)
	if err != nil || httpPortStr == "" {
		return nil, fmt.Errorf("%s must be a valid port (1-65535)", envHTTPPort)
	}
	if httpPort <= 0 || httpPort > 65535 {
		return nil, fmt.Errorf("%s must be 1-65535, got %d", envHTTPPort, httpPort)
	}

	baseURL := strings.TrimSpace(os.Getenv(envBaseURL))
	if baseURL == "" {
		return nil, fmt.Errorf("%s is required", envBaseURL)
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("%s must start with http:// or https://", envBaseURL)
	}

	configPath := strings.TrimSpace(os.Getenv(envConfigPath))
	if configPath == "" {
		return nil, fmt.Errorf("%s is required", envConfigPath)
	}
	if !filepath.IsAbs(configPath) {
		abs, absErr := filepath.Abs(configPath)
		if absErr != nil {
			return nil, absErr
		}
		configPath = abs
	}
	workload, err := loadWorkloadTemplate(configPath)
	if err != nil {
		return nil, fmt.Errorf("load workload template %s: %w", configPath, err)
	}

	idleTimeout, err := requiredMs(envIdleTimeoutMs)
	if err != nil {
		return nil, err
	}
	provisionTimeout, err := requiredMs(envProvisionTimeoutMs)
	if err != nil {
		return nil, err
	}
	sweepInterval, err := optionalMs(envSweepIntervalMs, defaultSweepIntervalMs)
	if err != nil {
		return nil, err
	}
	stopGrace, err := optionalMs(envStopGraceMs, defaultStopGraceMs)
	if err != nil {
		return nil, err
	}
	readinessPoll, err := optionalMs(envReadinessPollMs, defaultReadinessPollMs)
	if err != nil {
		return nil, err
	}
	publishInterval, err := optionalMs(envPublishIntervalMs, defaultPublishIntervalMs)
	if err != nil {
		return nil, err
	}

	return &Config{
		HTTPPort: httpPort,
		BaseURL:  baseURL,
		Workload: workload,
		Lifecycle: service.LifecycleConfig{
			ProvisionTimeout: provisionTimeout,
			IdleTimeout:      idleTimeout,
			SweepInterval:    sweepInterval,
			StopGrace:        stopGrace,
			PollInterval:     readinessPoll,
		},
		PublishInterval:      publishInterval,
		Redis:                myredis.RedisConfig{Addr: strings.TrimSpace(os.Getenv(envRedisAddr))},
		ProxyRegistrationURL: strings.TrimSpace(os.Getenv(envProxyRegistrationURL)),
	}, nil
}

// requiredMs reads a required positive millisecond duration from the environment.
func requiredMs(name string) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer (milliseconds)", name)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// optionalMs reads a positive millisecond duration from the environment, falling back
// to def when unset.
func optionalMs(name string, def int) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return time.Duration(def) * time.Millisecond, nil
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer (milliseconds)", name)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
