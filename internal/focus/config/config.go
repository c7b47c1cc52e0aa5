package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/haukened/focusd/internal/focus/gateways/transport"
	"github.com/haukened/focusd/internal/focus/repos/state"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// DB is the path of the bbolt state file.
	DB string `koanf:"db" validate:"required"`

	// Transport selects how the extension reaches the daemon: stdio, unix or http.
	Transport string `koanf:"transport" validate:"required"`

	// Listen is the socket path for unix or a loopback host:port for http.
	Listen string `koanf:"listen" validate:"required_unless=Transport stdio"`

	// BlockPageURL is the extension page blocked navigations redirect to.
	BlockPageURL string `koanf:"block_page_url" validate:"required,block_page"`

	// BlockMessage is stored as the block message on first run.
	BlockMessage string `koanf:"block_message" validate:"required"`

	// DecisionCacheSize bounds the navigation decision cache; 0 disables it.
	DecisionCacheSize int `koanf:"decision_cache_size" validate:"gte=0"`

	// SeedSites optionally names a json, yaml or toml file whose
	// allowedSites populate the allow list on first run.
	SeedSites string `koanf:"seed_sites" validate:"omitempty,file"`
}

// DEFAULT_APP_CONFIG defines the default application configuration.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:               "prod",
	LogLevel:          "info",
	DB:                defaultDBPath(),
	Transport:         "stdio",
	Listen:            "",
	BlockPageURL:      "chrome-extension://focusd/blocked.html",
	BlockMessage:      state.DefaultBlockMessage,
	DecisionCacheSize: 1000,
}

// defaultDBPath places the state file in the user's config directory, or
// the working directory when there is none.
func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "focusd.db"
	}
	return filepath.Join(dir, "focusd", "focusd.db")
}

var blockPageSchemes = map[string]bool{
	"chrome-extension": true,
	"moz-extension":    true,
	"http":             true,
	"https":            true,
}

// validBlockPage accepts absolute extension or http(s) URLs without a query,
// since the redirect appends its own.
func validBlockPage(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return blockPageSchemes[u.Scheme] && u.Host != "" && u.RawQuery == "" && u.Fragment == ""
}

// envLoader loads environment variables with the prefix "FOCUS_".
// It lowercases the keys and removes the prefix, and can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "FOCUS_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "FOCUS_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// validateAppConfig checks the transport against the implemented ones and
// keeps the unauthenticated http API on loopback.
func validateAppConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(AppConfig)
	tt := transport.TransportType(cfg.Transport)
	if !transport.IsTransportSupported(tt) {
		sl.ReportError(cfg.Transport, "Transport", "transport", "supported_transport", "")
		return
	}
	if tt == transport.TransportHTTP && !transport.IsLoopbackAddr(cfg.Listen) {
		sl.ReportError(cfg.Listen, "Listen", "listen", "loopback", "")
	}
}

// registerValidation registers the "block_page" field validation and the
// AppConfig struct validation.
var registerValidation = func(v *validator.Validate) error {
	if err := v.RegisterValidation("block_page", validBlockPage); err != nil {
		return err
	}
	v.RegisterStructValidation(validateAppConfig, AppConfig{})
	return nil
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
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
