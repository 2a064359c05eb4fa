package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// Storefront holds the upstream storefront API configuration.
	Storefront StorefrontConfig `mapstructure:",squash"`

	// Gateway holds the payment gateway callback configuration.
	Gateway GatewayConfig `mapstructure:",squash"`

	// Reconcile holds tuning knobs for dedup, retry and polling.
	Reconcile ReconcileConfig `mapstructure:",squash"`

	// Redis holds the cache connection configuration.
	Redis RedisConfig `mapstructure:",squash"`
}

// StorefrontConfig holds the connection details for the storefront REST API.
type StorefrontConfig struct {
	// URL is the base URL of the storefront API.
	URL string `mapstructure:"STOREFRONT_API_URL" required:"true"`
	// TimeoutSeconds is the per-request HTTP timeout.
	TimeoutSeconds int `mapstructure:"STOREFRONT_TIMEOUT_S" default:"10"`
}

// GatewayConfig holds payment gateway callback verification settings.
type GatewayConfig struct {
	// SuccessCode is the response code the gateway returns on a successful payment.
	SuccessCode string `mapstructure:"GATEWAY_SUCCESS_CODE" default:"00"`
}

// ReconcileConfig holds dedup, retry and polling tuning.
type ReconcileConfig struct {
	// DedupWindowMs is how long an identical request stays deduplicated.
	DedupWindowMs int `mapstructure:"DEDUP_WINDOW_MS" default:"2000"`
	// RetryAttempts is how many times handlers retry a throttled fetch.
	RetryAttempts int `mapstructure:"RETRY_ATTEMPTS" default:"3"`
	// RetryDelayMs is the fixed delay between throttled-fetch retries.
	RetryDelayMs int `mapstructure:"RETRY_DELAY_MS" default:"1500"`
	// PollIntervalMs is the payment status polling interval.
	PollIntervalMs int `mapstructure:"POLL_INTERVAL_MS" default:"3000"`
	// PollTimeoutMs is the overall payment status polling deadline.
	PollTimeoutMs int `mapstructure:"POLL_TIMEOUT_MS" default:"60000"`
}

// RedisConfig holds cache connection details.
type RedisConfig struct {
	// URL is the Redis connection URL (redis://[:password@]host[:port][/db]).
	URL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379"`
	// ShippingCacheTTLSeconds is how long shipping methods stay cached.
	ShippingCacheTTLSeconds int `mapstructure:"SHIPPING_CACHE_TTL_S" default:"600"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}

// Duration helpers keep the millisecond config representation out of callers.

// DedupWindow returns the dedup window as a duration.
func (c ReconcileConfig) DedupWindow() time.Duration {
	return time.Duration(c.DedupWindowMs) * time.Millisecond
}

// RetryDelay returns the retry delay as a duration.
func (c ReconcileConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// PollInterval returns the polling interval as a duration.
func (c ReconcileConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// PollTimeout returns the polling deadline as a duration.
func (c ReconcileConfig) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutMs) * time.Millisecond
}

// ShippingCacheTTL returns the shipping-method cache TTL as a duration.
func (c RedisConfig) ShippingCacheTTL() time.Duration {
	return time.Duration(c.ShippingCacheTTLSeconds) * time.Second
}
