package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/service-client2/internal/strategy"
	"github.com/angeloszaimis/service-client2/internal/tracing"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Environment  string `mapstructure:"environment"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type ClientConfig struct {
	Timeout string `mapstructure:"timeout"`
}

type StrategyConfig struct {
	Type string `mapstructure:"type"`
}

// HealthCheckConfig drives active probing. It is off unless Enabled is set, so
// an instance without a health route keeps receiving calls.
type HealthCheckConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
	Timeout  string `mapstructure:"timeout"`
	Path     string `mapstructure:"path"`
}

// TracingConfig selects where client spans go. An empty exporter keeps spans
// in process, which still propagates trace context downstream.
type TracingConfig struct {
	Exporter string `mapstructure:"exporter"`
	URL      string `mapstructure:"url"`
}

// DownstreamConfig names the logical service and path the proxy calls.
type DownstreamConfig struct {
	Service string `mapstructure:"service"`
	Path    string `mapstructure:"path"`
}

type InstanceConfig struct {
	URL    string `mapstructure:"url"`
	Weight int    `mapstructure:"weight"`
}

type Config struct {
	Server      ServerConfig                `mapstructure:"server"`
	Logging     LoggingConfig               `mapstructure:"logging"`
	Client      ClientConfig                `mapstructure:"client"`
	Strategy    StrategyConfig              `mapstructure:"strategy"`
	HealthCheck HealthCheckConfig           `mapstructure:"health_check"`
	Tracing     TracingConfig               `mapstructure:"tracing"`
	Downstream  DownstreamConfig            `mapstructure:"downstream"`
	Services    map[string][]InstanceConfig `mapstructure:"services"`
}

func init() {
	// report errors under the same keys the YAML uses
	validation.ErrorTag = "mapstructure"
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"addr":      "server.address",
	"log-level": "logging.level",
	"strategy":  "strategy.type",
}

// Load reads configuration with increasing precedence from defaults, the YAML
// file, a .env file, environment variables and flags. configFile may be empty
// to search ./config and the working directory for config.yaml; flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := loadDotEnv(); err != nil {
		slog.Error("failed to read .env file", slog.String("error", err.Error()))
		return nil, err
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for flag, key := range flagKeys {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("client.timeout", "10s")
	v.SetDefault("strategy.type", strategy.RoundRobin)
	v.SetDefault("health_check.enabled", false)
	v.SetDefault("health_check.interval", "2s")
	v.SetDefault("health_check.timeout", "5s")
	v.SetDefault("health_check.path", "/health")
	v.SetDefault("tracing.exporter", "")
	v.SetDefault("tracing.url", "")
	v.SetDefault("downstream.service", "service-client1")
	v.SetDefault("downstream.path", "/hello")
}

// loadDotEnv exports ./config/.env and ./.env into the process environment.
// Variables that are already set win.
func loadDotEnv() error {
	for _, file := range []string{"config/.env", ".env"} {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}

	return nil
}

// Duration parses a validated duration field. Invalid input yields 0.
func Duration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server, validation.By(func(value interface{}) error {
			sc, ok := value.(ServerConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a ServerConfig")
			}
			return validation.ValidateStruct(&sc,
				validation.Field(&sc.Environment,
					validation.Required,
					validation.In(EnvDev, EnvStaging, EnvProd),
				),
				validation.Field(&sc.Address,
					validation.Required,
					validation.By(validateHostPort),
				),
				validation.Field(&sc.ReadTimeout, validation.Required, validation.By(validateDuration)),
				validation.Field(&sc.WriteTimeout, validation.Required, validation.By(validatePositiveDuration)),
				validation.Field(&sc.IdleTimeout, validation.Required, validation.By(validateDuration)),
			)
		})),
		validation.Field(&c.Logging, validation.By(func(value interface{}) error {
			lc, ok := value.(LoggingConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
			}
			return validation.ValidateStruct(&lc,
				validation.Field(&lc.Level,
					validation.Required,
					validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
				),
			)
		})),
		validation.Field(&c.Client, validation.By(func(value interface{}) error {
			cc, ok := value.(ClientConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a ClientConfig")
			}
			return validation.ValidateStruct(&cc,
				validation.Field(&cc.Timeout,
					validation.Required,
					validation.By(validatePositiveDuration),
					validation.By(c.withinWriteTimeout),
				),
			)
		})),
		validation.Field(&c.Strategy, validation.By(func(value interface{}) error {
			sc, ok := value.(StrategyConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a StrategyConfig")
			}
			return validation.ValidateStruct(&sc,
				validation.Field(&sc.Type,
					validation.Required,
					validation.In(toInterfaces(strategy.Names)...),
				),
			)
		})),
		validation.Field(&c.HealthCheck, validation.By(func(value interface{}) error {
			hc, ok := value.(HealthCheckConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
			}
			return validation.ValidateStruct(&hc,
				validation.Field(&hc.Interval, validation.Required, validation.By(validatePositiveDuration)),
				validation.Field(&hc.Timeout, validation.Required, validation.By(validatePositiveDuration)),
				validation.Field(&hc.Path, validation.Required, validation.By(validateAbsPath)),
			)
		})),
		validation.Field(&c.Tracing, validation.By(func(value interface{}) error {
			tc, ok := value.(TracingConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a TracingConfig")
			}
			return validation.ValidateStruct(&tc,
				validation.Field(&tc.Exporter, validation.In(tracing.ExporterZipkin)),
				validation.Field(&tc.URL,
					validation.When(tc.Exporter == tracing.ExporterZipkin, validation.Required),
					is.URL,
				),
			)
		})),
		validation.Field(&c.Downstream, validation.By(func(value interface{}) error {
			dc, ok := value.(DownstreamConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a DownstreamConfig")
			}
			return validation.ValidateStruct(&dc,
				validation.Field(&dc.Service,
					validation.Required,
					is.DNSName,
					validation.By(c.registered),
				),
				validation.Field(&dc.Path, validation.Required, validation.By(validateAbsPath)),
			)
		})),
		validation.Field(&c.Services,
			validation.Required,
			validation.Each(
				validation.Required,
				validation.Each(validation.By(validateInstanceConfig)),
			),
		),
	)
}

// registered checks that the downstream service has instances configured.
func (c *Config) registered(value interface{}) error {
	name, _ := value.(string)
	if _, ok := c.Services[strings.ToLower(name)]; !ok {
		return validation.NewError("validation_unknown_service", "must be one of the configured services")
	}
	return nil
}

// withinWriteTimeout keeps the outbound timeout below the server write deadline,
// so a slow downstream still ends in a 500 the caller can read.
func (c *Config) withinWriteTimeout(value interface{}) error {
	s, _ := value.(string)
	timeout, err := time.ParseDuration(s)
	if err != nil {
		return nil
	}

	write, err := time.ParseDuration(c.Server.WriteTimeout)
	if err != nil || write <= 0 {
		return nil
	}

	if timeout >= write {
		return validation.NewError("validation_timeout_too_long", "must be shorter than server.write_timeout")
	}
	return nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	if d < 0 {
		return validation.NewError("validation_negative_duration", "must not be negative")
	}

	return nil
}

func validatePositiveDuration(value interface{}) error {
	if err := validateDuration(value); err != nil {
		return err
	}

	if d, _ := time.ParseDuration(value.(string)); d == 0 {
		return validation.NewError("validation_zero_duration", "must be greater than zero")
	}

	return nil
}

func validateAbsPath(value interface{}) error {
	p, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if !strings.HasPrefix(p, "/") {
		return validation.NewError("validation_invalid_path", "must start with /")
	}

	return nil
}

func validateInstanceConfig(value interface{}) error {
	inst, ok := value.(InstanceConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an InstanceConfig")
	}

	if inst.URL == "" {
		return validation.NewError("validation_empty_url", "instance URL cannot be empty")
	}

	parsedURL, err := url.Parse(inst.URL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	if inst.Weight < 0 {
		return validation.NewError("validation_invalid_weight", "weight cannot be negative")
	}

	return nil
}
