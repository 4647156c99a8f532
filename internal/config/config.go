// Package config loads service settings: built-in defaults, overlaid by a
// YAML file, overlaid by environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nhype/gigaam-inference/internal/lang"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "GIGAAM_CONFIG"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	TLSCert         string        `yaml:"tls_cert"`
	TLSKey          string        `yaml:"tls_key"`
	DevMode         bool          `yaml:"dev_mode"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PipelineConfig holds the per-request transcription settings.
type PipelineConfig struct {
	MaxSegmentSeconds float64       `yaml:"max_segment_seconds"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	SegmentParallel   int           `yaml:"segment_parallel"`
	TempDir           string        `yaml:"temp_dir"`
	VerbatimJoin      bool          `yaml:"verbatim_join"`
}

// ModelConfig selects the recognition model and the backend that runs it.
type ModelConfig struct {
	Name          string `yaml:"name"`
	Backend       string `yaml:"backend"` // exec (default), openai, mock
	Command       string `yaml:"command"`
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	Language      string `yaml:"language"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	MaxRetries    int    `yaml:"max_retries"`
	Serialize     bool   `yaml:"serialize"`
}

// FFmpegConfig holds explicit binary paths. Empty values are resolved at startup.
type FFmpegConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
}

// TelemetryConfig holds logging, tracing and metrics settings.
type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"` // json, text
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	StdoutTraces   bool   `yaml:"stdout_traces"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// Config is the complete service configuration.
type Config struct {
	ServiceName string          `yaml:"service_name"`
	Server      ServerConfig    `yaml:"server"`
	Pipeline    PipelineConfig  `yaml:"pipeline"`
	Model       ModelConfig     `yaml:"model"`
	FFmpeg      FFmpegConfig    `yaml:"ffmpeg"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
}

// Default returns the built-in settings. The exec backend has no command by
// default, so a deployment must name one (or opt into another backend)
// before Load validates.
func Default() Config {
	return Config{
		ServiceName: "gigaam-inference",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            4443,
			TLSCert:         "/app/certs/fullchain.pem",
			TLSKey:          "/app/certs/privkey.pem",
			CORSOrigins:     []string{"*"},
			ReadTimeout:     2 * time.Minute,
			WriteTimeout:    15 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Pipeline: PipelineConfig{
			MaxSegmentSeconds: 29.0,
			MaxUploadBytes:    100 << 20,
			RequestTimeout:    10 * time.Minute,
			SegmentParallel:   1,
		},
		Model: ModelConfig{
			Name:          "v2_ctc",
			Backend:       "exec",
			MaxConcurrent: 4,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			OTLPInsecure:   true,
			MetricsEnabled: true,
		},
	}
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxSegment converts max_segment_seconds to a duration, rounded to the microsecond.
func (p PipelineConfig) MaxSegment() time.Duration {
	return time.Duration(math.Round(p.MaxSegmentSeconds*1e6)) * time.Microsecond
}

// DefaultPath returns the config file location used when neither a flag nor
// GIGAAM_CONFIG names one. Uses XDG_CONFIG_HOME if set.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gigaam-inference", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "gigaam-inference", "config.yaml"), nil
}

// ResolvePath picks the config file: explicit flag, then GIGAAM_CONFIG, then
// DefaultPath. The second result reports whether the path was asked for
// explicitly, in which case a missing file is an error.
func ResolvePath(flag string) (string, bool, error) {
	if flag != "" {
		return flag, true, nil
	}
	if env := strings.TrimSpace(os.Getenv(EnvConfigPath)); env != "" {
		return env, true, nil
	}
	p, err := DefaultPath()
	return p, false, err
}

// Load reads path (when non-empty), applies environment overrides and
// validates the result. A missing file is an error only when required.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err) && !required:
		case os.IsNotExist(err):
			return cfg, fmt.Errorf("config file not found: %w", err)
		default:
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Model.APIKey != "" {
		c.Model.APIKey = "****"
	}
	return c
}

// YAML renders the config as YAML.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "GIGAAM_SERVICE_NAME")

	overrideString(&cfg.Server.Host, "GIGAAM_SERVER_HOST")
	overrideInt(&cfg.Server.Port, "GIGAAM_SERVER_PORT")
	// Deployment-compatible names first, prefixed names win.
	overrideString(&cfg.Server.TLSCert, "SSL_CERT_PATH")
	overrideString(&cfg.Server.TLSKey, "SSL_KEY_PATH")
	overrideBool(&cfg.Server.DevMode, "DEV_MODE")
	overrideString(&cfg.Server.TLSCert, "GIGAAM_SERVER_TLS_CERT")
	overrideString(&cfg.Server.TLSKey, "GIGAAM_SERVER_TLS_KEY")
	overrideBool(&cfg.Server.DevMode, "GIGAAM_SERVER_DEV_MODE")
	overrideStringSlice(&cfg.Server.CORSOrigins, "GIGAAM_SERVER_CORS_ORIGINS")
	overrideDuration(&cfg.Server.ReadTimeout, "GIGAAM_SERVER_READ_TIMEOUT")
	overrideDuration(&cfg.Server.WriteTimeout, "GIGAAM_SERVER_WRITE_TIMEOUT")
	overrideDuration(&cfg.Server.ShutdownTimeout, "GIGAAM_SERVER_SHUTDOWN_TIMEOUT")

	overrideFloat(&cfg.Pipeline.MaxSegmentSeconds, "GIGAAM_PIPELINE_MAX_SEGMENT_SECONDS")
	overrideInt64(&cfg.Pipeline.MaxUploadBytes, "GIGAAM_PIPELINE_MAX_UPLOAD_BYTES")
	overrideDuration(&cfg.Pipeline.RequestTimeout, "GIGAAM_PIPELINE_REQUEST_TIMEOUT")
	overrideInt(&cfg.Pipeline.SegmentParallel, "GIGAAM_PIPELINE_SEGMENT_PARALLEL")
	overrideString(&cfg.Pipeline.TempDir, "GIGAAM_PIPELINE_TEMP_DIR")
	overrideBool(&cfg.Pipeline.VerbatimJoin, "GIGAAM_PIPELINE_VERBATIM_JOIN")

	overrideString(&cfg.Model.Name, "GIGAAM_MODEL_NAME")
	overrideString(&cfg.Model.Backend, "GIGAAM_MODEL_BACKEND")
	overrideString(&cfg.Model.Command, "GIGAAM_MODEL_COMMAND")
	overrideString(&cfg.Model.BaseURL, "GIGAAM_MODEL_BASE_URL")
	overrideString(&cfg.Model.APIKey, "GIGAAM_MODEL_API_KEY")
	overrideString(&cfg.Model.Language, "GIGAAM_MODEL_LANGUAGE")
	overrideInt(&cfg.Model.MaxConcurrent, "GIGAAM_MODEL_MAX_CONCURRENT")
	overrideInt(&cfg.Model.MaxRetries, "GIGAAM_MODEL_MAX_RETRIES")
	overrideBool(&cfg.Model.Serialize, "GIGAAM_MODEL_SERIALIZE")

	overrideString(&cfg.FFmpeg.FFmpegPath, "GIGAAM_FFMPEG_PATH")
	overrideString(&cfg.FFmpeg.FFprobePath, "GIGAAM_FFPROBE_PATH")

	overrideString(&cfg.Telemetry.LogLevel, "GIGAAM_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.LogFormat, "GIGAAM_TELEMETRY_LOG_FORMAT")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "GIGAAM_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "GIGAAM_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Telemetry.StdoutTraces, "GIGAAM_TELEMETRY_STDOUT_TRACES")
	overrideBool(&cfg.Telemetry.MetricsEnabled, "GIGAAM_TELEMETRY_METRICS_ENABLED")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			*target = parsed
		}
	}
}

func overrideInt64(target *int64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			*target = parsed
		}
	}
}

func overrideDuration(target *time.Duration, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var trimmed []string
		for _, p := range strings.Split(value, ",") {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		fail("server.port must be between 1 and 65535")
	}
	if !cfg.Server.DevMode && (cfg.Server.TLSCert == "" || cfg.Server.TLSKey == "") {
		fail("server.tls_cert and server.tls_key must be set unless dev_mode is enabled")
	}
	if cfg.Server.ShutdownTimeout < 0 || cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 {
		fail("server timeouts must be >= 0")
	}
	if !(cfg.Pipeline.MaxSegmentSeconds > 0) || math.IsInf(cfg.Pipeline.MaxSegmentSeconds, 0) {
		fail("pipeline.max_segment_seconds must be a positive number")
	} else if cfg.Pipeline.MaxSegment() <= 0 {
		fail("pipeline.max_segment_seconds must be at least one microsecond")
	}
	if cfg.Pipeline.MaxUploadBytes <= 0 {
		fail("pipeline.max_upload_bytes must be positive")
	}
	if cfg.Pipeline.RequestTimeout < 0 {
		fail("pipeline.request_timeout must be >= 0")
	}
	if cfg.Pipeline.SegmentParallel < 1 {
		fail("pipeline.segment_parallel must be >= 1")
	}
	switch strings.ToLower(cfg.Model.Backend) {
	case "mock":
	case "exec":
		if strings.TrimSpace(cfg.Model.Command) == "" {
			fail("model.command must be set when backend=exec")
		}
	case "openai":
		if cfg.Model.BaseURL == "" && cfg.Model.APIKey == "" {
			fail("model.base_url or model.api_key must be set when backend=openai")
		}
	default:
		fail("model.backend must be one of exec|openai|mock")
	}
	if err := lang.Validate(cfg.Model.Language); err != nil {
		fail("model.language: %w", err)
	}
	if cfg.Model.MaxConcurrent < 0 {
		fail("model.max_concurrent must be >= 0")
	}
	if cfg.Model.MaxRetries < 0 {
		fail("model.max_retries must be >= 0")
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		fail("telemetry.log_level must be one of debug|info|warn|error")
	}
	switch strings.ToLower(cfg.Telemetry.LogFormat) {
	case "json", "text":
	default:
		fail("telemetry.log_format must be one of json|text")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
