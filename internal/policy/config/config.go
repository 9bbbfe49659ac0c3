package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from every environment variable before it becomes a key.
const envPrefix = "POLICY_"

// ConfigFileEnv names the environment variable holding an optional TOML file path.
const ConfigFileEnv = envPrefix + "CONFIG_FILE"

// AppConfig holds configuration values parsed from defaults, an optional TOML
// file and environment variables, in that order of precedence (lowest first).
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Mode selects the transport: "stdio" for Postfix spawn(8), "tcp" for a listener.
	Mode string `koanf:"mode" validate:"required,oneof=stdio tcp"`

	// Listen is the TCP listen address in host:port form. Required in tcp mode.
	Listen string `koanf:"listen" validate:"omitempty,listen_addr"`

	// MaxConnections caps concurrent TCP sessions. 0 means unlimited.
	MaxConnections int `koanf:"max_connections" validate:"gte=0"`

	DeniedSenders         string `koanf:"denied_senders"`
	BlackholeRecipients   string `koanf:"blackhole_recipients"`
	SenderRestrictions    string `koanf:"sender_restrictions"`
	RecipientRestrictions string `koanf:"recipient_restrictions"`

	// MatchCacheSize is the number of client addresses whose matched rule is
	// memoised. 0 disables the cache.
	MatchCacheSize int `koanf:"match_cache_size" validate:"gte=0"`

	// BloomFPRate is the target false-positive rate of the address set prefilters.
	BloomFPRate float64 `koanf:"bloom_fp_rate" validate:"gt=0,lt=1"`

	// MetricsListen is the address of the metrics HTTP server. Empty disables it.
	MetricsListen string `koanf:"metrics_listen" validate:"omitempty,listen_addr"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings for
// the policy daemon. Rule paths follow the usual Postfix layout.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:                   "prod",
	LogLevel:              "info",
	Mode:                  "stdio",
	Listen:                "127.0.0.1:10040",
	MaxConnections:        64,
	DeniedSenders:         "/etc/postfix/denied_senders.conf",
	BlackholeRecipients:   "/etc/postfix/blackhole_recipients.conf",
	SenderRestrictions:    "/etc/postfix/sender_restrictions.conf",
	RecipientRestrictions: "/etc/postfix/recipient_restrictions.conf",
	MatchCacheSize:        1024,
	BloomFPRate:           0.01,
	MetricsListen:         "",
}

// validListenAddr accepts "host:port" where host is empty, an IP address or a
// hostname, and port is a number in 0-65535.
func validListenAddr(fl validator.FieldLevel) bool {
	host, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil || port == "" {
		return false
	}
	if host != "" && net.ParseIP(host) == nil && strings.ContainsAny(host, " /") {
		return false
	}
	_, err = strconv.ParseUint(port, 10, 16)
	return err == nil
}

// modeRequirements enforces settings that only matter for one transport.
func modeRequirements(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(AppConfig)
	if cfg.Mode == "tcp" && cfg.Listen == "" {
		sl.ReportError(cfg.Listen, "Listen", "Listen", "required_for_tcp", "")
	}
}

// envLoader loads environment variables with the prefix "POLICY_", lowercased
// and with the prefix removed. It can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// fileLoader loads the TOML file named by POLICY_CONFIG_FILE, if any. A file
// that is named but unreadable is an error.
var fileLoader = func(k *koanf.Koanf) error {
	path := strings.TrimSpace(os.Getenv(ConfigFileEnv))
	if path == "" {
		return nil
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the "listen_addr" tag and the per-mode struct rule.
var registerValidation = func(v *validator.Validate) error {
	if err := v.RegisterValidation("listen_addr", validListenAddr); err != nil {
		return err
	}
	v.RegisterStructValidation(modeRequirements, AppConfig{})
	return nil
}

// Load builds an AppConfig from defaults, the optional TOML file and the
// environment, then validates it.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := fileLoader(k); err != nil {
		return nil, fmt.Errorf("error loading config file: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
