// Package config loads EngineConfig, the process-wide bootstrap
// configuration for an engine.Engine: security/resource-limit defaults,
// object-pool sizing and logging-core tuning. Loading layers a YAML file
// over built-in defaults, then applies environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/pipeline-engine/internal/dsl"
)

// SecurityConfig selects the default DslSecurityPolicy preset and any
// explicit overrides layered on top of it.
type SecurityConfig struct {
	Preset                string   `yaml:"preset" env:"PIPELINE_SECURITY_PRESET"`
	Isolation             string   `yaml:"isolation" env:"PIPELINE_ISOLATION_LEVEL"`
	AllowNetworkAccess    *bool    `yaml:"allow_network_access"`
	AllowFileSystemAccess *bool    `yaml:"allow_filesystem_access"`
	AllowedDirectories    []string `yaml:"allowed_directories"`
	AllowReflection       *bool    `yaml:"allow_reflection"`
	AllowNativeCode       *bool    `yaml:"allow_native_code"`
}

// ResourceLimitsConfig sets the default DslResourceLimits for executions
// that do not supply their own.
type ResourceLimitsConfig struct {
	MaxMemoryMB    int64 `yaml:"max_memory_mb" env:"PIPELINE_MAX_MEMORY_MB"`
	MaxCPUTimeMs   int64 `yaml:"max_cpu_time_ms" env:"PIPELINE_MAX_CPU_TIME_MS"`
	MaxWallTimeMs  int64 `yaml:"max_wall_time_ms" env:"PIPELINE_MAX_WALL_TIME_MS"`
	MaxThreads     int   `yaml:"max_threads" env:"PIPELINE_MAX_THREADS"`
	MaxFileHandles int   `yaml:"max_file_handles" env:"PIPELINE_MAX_FILE_HANDLES"`
}

// PoolConfig sizes the log record object pool.
type PoolConfig struct {
	InitialSize int `yaml:"initial_size" env:"PIPELINE_POOL_INITIAL_SIZE"`
	MaxSize     int `yaml:"max_size" env:"PIPELINE_POOL_MAX_SIZE"`
}

// DistributorConfig tunes the log event distributor's batching.
type DistributorConfig struct {
	BatchSize  int `yaml:"batch_size" env:"PIPELINE_DISTRIBUTOR_BATCH_SIZE"`
	DelayMs    int `yaml:"delay_ms" env:"PIPELINE_DISTRIBUTOR_DELAY_MS"`
}

// ConsoleConsumerConfig tunes the console batching consumer.
type ConsoleConsumerConfig struct {
	QueueCapacity  int  `yaml:"queue_capacity" env:"PIPELINE_CONSOLE_QUEUE_CAPACITY"`
	BatchSize      int  `yaml:"batch_size" env:"PIPELINE_CONSOLE_BATCH_SIZE"`
	FlushTimeoutMs int  `yaml:"flush_timeout_ms" env:"PIPELINE_CONSOLE_FLUSH_TIMEOUT_MS"`
	Colorize       bool `yaml:"colorize" env:"PIPELINE_CONSOLE_COLORIZE"`
}

// LoggingConfig controls the framework (pkg/appclog) logger, distinct from
// the push-based logging core the engine executes pipelines through.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"PIPELINE_LOG_LEVEL"`
	Format string `yaml:"format" env:"PIPELINE_LOG_FORMAT"`
}

// EngineConfig is the top-level process bootstrap configuration.
type EngineConfig struct {
	Security  SecurityConfig        `yaml:"security"`
	Limits    ResourceLimitsConfig  `yaml:"limits"`
	Pool      PoolConfig            `yaml:"pool"`
	Distributor DistributorConfig   `yaml:"distributor"`
	Console   ConsoleConsumerConfig `yaml:"console"`
	Logging   LoggingConfig         `yaml:"logging"`
	PluginDir string                `yaml:"plugin_dir" env:"PIPELINE_PLUGIN_DIR"`
}

// Default returns an EngineConfig populated with conservative resource
// floors (64 MB memory minimum, etc.) safe to run without any override.
func Default() *EngineConfig {
	return &EngineConfig{
		Security: SecurityConfig{Preset: string(dsl.PresetDefault), Isolation: string(dsl.IsolationThread)},
		Limits: ResourceLimitsConfig{
			MaxMemoryMB:   512,
			MaxCPUTimeMs:  120_000,
			MaxWallTimeMs: 300_000,
			MaxThreads:    8,
			MaxFileHandles: 64,
		},
		Pool: PoolConfig{InitialSize: 16, MaxSize: 256},
		Distributor: DistributorConfig{BatchSize: 128, DelayMs: 0},
		Console: ConsoleConsumerConfig{
			QueueCapacity:  1024,
			BatchSize:      20,
			FlushTimeoutMs: 2000,
			Colorize:       true,
		},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		PluginDir: "plugins",
	}
}

// Load reads a YAML config file at path (if present), applies a .env file
// via godotenv and finally environment-variable overrides via envdecode,
// layered on top of Default().
func Load(path string) (*EngineConfig, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *EngineConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// SecurityPolicy resolves the configured preset plus any explicit field
// overrides into a concrete dsl.SecurityPolicy.
func (c EngineConfig) SecurityPolicy() dsl.SecurityPolicy {
	policy := dsl.Preset(dsl.SecurityPresetName(c.Security.Preset))
	if c.Security.AllowNetworkAccess != nil {
		policy.AllowNetworkAccess = *c.Security.AllowNetworkAccess
	}
	if c.Security.AllowFileSystemAccess != nil {
		policy.AllowFileSystemAccess = *c.Security.AllowFileSystemAccess
	}
	if len(c.Security.AllowedDirectories) > 0 {
		policy.AllowedDirectories = c.Security.AllowedDirectories
	}
	if c.Security.AllowReflection != nil {
		policy.AllowReflection = *c.Security.AllowReflection
	}
	if c.Security.AllowNativeCode != nil {
		policy.AllowNativeCode = *c.Security.AllowNativeCode
	}
	return policy
}

// ResourceLimits converts the config's flat limit fields into
// dsl.ResourceLimits pointers.
func (c EngineConfig) ResourceLimits() dsl.ResourceLimits {
	return dsl.ResourceLimits{
		MaxMemoryMB:    &c.Limits.MaxMemoryMB,
		MaxCPUTimeMs:   &c.Limits.MaxCPUTimeMs,
		MaxWallTimeMs:  &c.Limits.MaxWallTimeMs,
		MaxThreads:     &c.Limits.MaxThreads,
		MaxFileHandles: &c.Limits.MaxFileHandles,
	}
}

// Isolation resolves the configured isolation level, defaulting to Thread
// isolation when unset or unrecognized.
func (c EngineConfig) Isolation() dsl.IsolationLevel {
	switch dsl.IsolationLevel(c.Security.Isolation) {
	case dsl.IsolationNone, dsl.IsolationThread, dsl.IsolationClassLoader, dsl.IsolationProcess, dsl.IsolationContainer:
		return dsl.IsolationLevel(c.Security.Isolation)
	default:
		return dsl.IsolationThread
	}
}
