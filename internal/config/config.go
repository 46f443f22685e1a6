// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/ragworks-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ragworks configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Backend  BackendConfig  `toml:"backend" json:"backend"`
	AuthFlow AuthFlowConfig `toml:"authflow" json:"authflow"`
	Session  SessionConfig  `toml:"session" json:"session"`
	Storage  StorageConfig  `toml:"storage" json:"storage"`
	UI       UIConfig       `toml:"ui" json:"ui"`
	Log      LogConfig      `toml:"log" json:"log"`
	Tracing  TracingConfig  `toml:"tracing" json:"tracing"`
}

// BackendConfig locates the RAG backend.
type BackendConfig struct {
	// URL serves /login, /register, /chat, /upload and /delete_uploads.
	URL string `toml:"url" json:"url"`

	// RequestTimeoutSecs bounds every backend call. 0 means no timeout.
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
}

// OAuth completion variants.
const (
	VariantDirect   = "direct"
	VariantExchange = "exchange"
)

// AuthFlowConfig controls browser-based sign-in.
type AuthFlowConfig struct {
	// URL is the auth service that starts the provider redirect and, for
	// the exchange variant, serves POST /auth/oauth.
	URL string `toml:"url" json:"url"`

	ClientID string `toml:"client_id" json:"client_id"`

	// Variant is "direct" (callback carries token and username) or
	// "exchange" (callback carries a one-time token to trade in).
	Variant string `toml:"variant" json:"variant"`

	// CallbackAddr is the loopback listener address. Port 0 picks a free port.
	CallbackAddr string `toml:"callback_addr" json:"callback_addr"`

	TimeoutSecs int  `toml:"timeout_secs" json:"timeout_secs"`
	OpenBrowser bool `toml:"open_browser" json:"open_browser"`

	// RequireState rejects callbacks that do not echo the state parameter.
	// Enable it when the auth service passes state through.
	RequireState bool `toml:"require_state" json:"require_state"`
}

// SessionConfig controls session lifecycle behaviour.
type SessionConfig struct {
	// ClearOnUnauthorized clears the stored session when a protected call
	// is rejected with 401.
	ClearOnUnauthorized bool `toml:"clear_on_unauthorized" json:"clear_on_unauthorized"`

	// Watch re-reads the session when another ragworks process changes it.
	Watch           bool `toml:"watch" json:"watch"`
	WatchDebounceMS int  `toml:"watch_debounce_ms" json:"watch_debounce_ms"`
}

// StorageConfig locates the durable session store.
type StorageConfig struct {
	// Path of the SQLite database. Empty means ~/.ragworks/session.db.
	Path string `toml:"path" json:"path"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	Theme    string `toml:"theme" json:"theme"` // "auto", "dark", "light"
	Markdown bool   `toml:"markdown" json:"markdown"`
	WordWrap int    `toml:"word_wrap" json:"word_wrap"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Path  string `toml:"path" json:"path"`
	Level string `toml:"level" json:"level"` // "debug", "info", "warn", "error"
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled  bool   `toml:"enabled" json:"enabled"`
	Exporter string `toml:"exporter" json:"exporter"` // "file", "stdout", "otlp"
	FilePath string `toml:"file_path" json:"file_path"`

	// OTLPEndpoint is the collector address for the "otlp" exporter.
	OTLPEndpoint string `toml:"otlp_endpoint" json:"otlp_endpoint"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

const (
	// DefaultBackendURL is the local development backend.
	DefaultBackendURL = "http://localhost:5000"

	// DefaultAuthURL hosts the hosted auth service.
	DefaultAuthURL = "https://ragworks.onrender.com"

	currentVersion = "1"
)

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Version: currentVersion,
		Backend: BackendConfig{
			URL: DefaultBackendURL,
		},
		AuthFlow: AuthFlowConfig{
			URL:          DefaultAuthURL,
			ClientID:     "ragworks-cli",
			Variant:      VariantExchange,
			CallbackAddr: "127.0.0.1:0",
			TimeoutSecs:  180,
			OpenBrowser:  true,
		},
		Session: SessionConfig{
			ClearOnUnauthorized: true,
			Watch:               true,
			WatchDebounceMS:     250,
		},
		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
			WordWrap: 80,
		},
		Log: LogConfig{
			Level: "info",
		},
		Tracing: TracingConfig{
			Exporter:     "file",
			OTLPEndpoint: "localhost:4317",
		},
	}
}

// RequestTimeout returns the backend timeout, zero when unbounded.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutSecs) * time.Second
}

// AuthTimeout returns how long browser sign-in waits for the callback.
func (c *Config) AuthTimeout() time.Duration {
	return time.Duration(c.AuthFlow.TimeoutSecs) * time.Second
}

// WatchDebounce returns the storage watcher debounce interval.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Session.WatchDebounceMS) * time.Millisecond
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// dirOverride is set by tests and the --config flag.
var dirOverride string

// SetConfigDir points ConfigDir at dir. An empty dir restores the default.
func SetConfigDir(dir string) {
	dirOverride = dir
}

// ConfigDir returns the ragworks configuration directory path.
func ConfigDir() (string, error) {
	if dirOverride != "" {
		return dirOverride, nil
	}
	if dir := os.Getenv("RAGWORKS_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ragworks"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	return inConfigDir("config.toml")
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	return inConfigDir("config.json")
}

// StoragePath returns the session database path.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	return inConfigDir("session.db")
}

// LogPath returns the log file path.
func (c *Config) LogPath() (string, error) {
	if c.Log.Path != "" {
		return c.Log.Path, nil
	}
	return inConfigDir("ragworks.log")
}

// TracePath returns the span export file path.
func (c *Config) TracePath() (string, error) {
	if c.Tracing.FilePath != "" {
		return c.Tracing.FilePath, nil
	}
	return inConfigDir("traces.jsonl")
}

func inConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens a config file to 0600. The stored session
// token sits next to it, so the directory is treated as private.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads ./.env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	loaded := false
	if tomlPath, err := ConfigPathTOML(); err == nil && fileExists(tomlPath) {
		if err := LoadTOML(cfg, tomlPath); err != nil {
			loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			cfg = Default()
		} else {
			loaded = true
		}
	}

	if !loaded {
		if jsonPath, err := ConfigPathJSON(); err == nil && fileExists(jsonPath) {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = errors.Join(loadErr, fmt.Errorf("failed to load JSON config: %w", err))
				cfg = Default()
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Defaults are usable, so a broken file is reported but not fatal.
	return cfg, loadErr
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# ragworks configuration file\n")
	b.WriteString("# Generated by ragworks - edit with care\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := validateHTTPURL(c.Backend.URL); err != nil {
		errs = append(errs, ValidationError{"backend.url", err.Error()})
	}
	if c.Backend.RequestTimeoutSecs < 0 {
		errs = append(errs, ValidationError{"backend.request_timeout_secs", "must not be negative"})
	}

	if err := validateHTTPURL(c.AuthFlow.URL); err != nil {
		errs = append(errs, ValidationError{"authflow.url", err.Error()})
	}
	switch c.AuthFlow.Variant {
	case VariantDirect, VariantExchange:
	default:
		errs = append(errs, ValidationError{"authflow.variant",
			fmt.Sprintf("must be %q or %q, got %q", VariantDirect, VariantExchange, c.AuthFlow.Variant)})
	}
	if host, _, err := net.SplitHostPort(c.AuthFlow.CallbackAddr); err != nil {
		errs = append(errs, ValidationError{"authflow.callback_addr", err.Error()})
	} else if !isLoopback(host) {
		errs = append(errs, ValidationError{"authflow.callback_addr", "must listen on a loopback address"})
	}
	if c.AuthFlow.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{"authflow.timeout_secs", "must be positive"})
	}

	if c.Session.WatchDebounceMS < 0 {
		errs = append(errs, ValidationError{"session.watch_debounce_ms", "must not be negative"})
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{"ui.theme", fmt.Sprintf("unknown theme %q", c.UI.Theme)})
	}
	if c.UI.WordWrap < 20 {
		errs = append(errs, ValidationError{"ui.word_wrap", "must be at least 20"})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{"log.level", fmt.Sprintf("unknown level %q", c.Log.Level)})
	}

	switch c.Tracing.Exporter {
	case "file", "stdout", "otlp":
	default:
		errs = append(errs, ValidationError{"tracing.exporter", fmt.Sprintf("unknown exporter %q", c.Tracing.Exporter)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// SetDefaults fills zero-value fields that have no meaningful zero.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Backend.URL == "" {
		c.Backend.URL = d.Backend.URL
	}
	c.Backend.URL = strings.TrimSuffix(c.Backend.URL, "/")
	if c.AuthFlow.URL == "" {
		c.AuthFlow.URL = d.AuthFlow.URL
	}
	c.AuthFlow.URL = strings.TrimSuffix(c.AuthFlow.URL, "/")
	if c.AuthFlow.ClientID == "" {
		c.AuthFlow.ClientID = d.AuthFlow.ClientID
	}
	if c.AuthFlow.Variant == "" {
		c.AuthFlow.Variant = d.AuthFlow.Variant
	}
	if c.AuthFlow.CallbackAddr == "" {
		c.AuthFlow.CallbackAddr = d.AuthFlow.CallbackAddr
	}
	if c.AuthFlow.TimeoutSecs == 0 {
		c.AuthFlow.TimeoutSecs = d.AuthFlow.TimeoutSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = d.UI.WordWrap
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = d.Tracing.Exporter
	}
	if c.Tracing.OTLPEndpoint == "" {
		c.Tracing.OTLPEndpoint = d.Tracing.OTLPEndpoint
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RAGWORKS_BACKEND_URL: overrides backend.url
//   - RAGWORKS_AUTHFLOW_URL: overrides authflow.url
//   - RAGWORKS_AUTHFLOW_CLIENT_ID: overrides authflow.client_id
//   - RAGWORKS_AUTHFLOW_VARIANT: overrides authflow.variant
//   - RAGWORKS_STORAGE_PATH: overrides storage.path
//   - RAGWORKS_LOG_LEVEL: overrides log.level
//   - RAGWORKS_DEBUG: "1" or "true" forces log.level=debug
//   - RAGWORKS_TRACING: "1" or "true" enables tracing
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RAGWORKS_BACKEND_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("RAGWORKS_AUTHFLOW_URL"); v != "" {
		c.AuthFlow.URL = v
	}
	if v := os.Getenv("RAGWORKS_AUTHFLOW_CLIENT_ID"); v != "" {
		c.AuthFlow.ClientID = v
	}
	if v := os.Getenv("RAGWORKS_AUTHFLOW_VARIANT"); v != "" {
		c.AuthFlow.Variant = strings.ToLower(v)
	}
	if v := os.Getenv("RAGWORKS_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("RAGWORKS_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if truthy(os.Getenv("RAGWORKS_DEBUG")) {
		c.Log.Level = "debug"
	}
	if v := os.Getenv("RAGWORKS_TRACING"); v != "" {
		c.Tracing.Enabled = truthy(v)
	}
}

func truthy(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true" || v == "yes"
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "backend.url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "authflow.variant").
// String values are converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if field.Kind() == reflect.Struct {
		return fmt.Errorf("cannot set section %q, set one of its keys", key)
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct by toml tag, one dot-separated part at a time.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i], "."))
		}
		idx := fieldIndexByTag(v.Type(), part)
		if idx < 0 {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		v = v.Field(idx)
	}
	return v, nil
}

func fieldIndexByTag(t reflect.Type, name string) int {
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if tag == name {
			return i
		}
	}
	return -1
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			switch strings.ToLower(strings.TrimSpace(strVal)) {
			case "1", "true", "yes", "on":
				field.SetBool(true)
			case "0", "false", "no", "off":
				field.SetBool(false)
			default:
				return fmt.Errorf("invalid boolean value: %q", strVal)
			}
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.IsValid() && val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.IsValid() && val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// AllKeys returns every settable key in dot notation, sorted.
func AllKeys() []string {
	var keys []string
	collectKeys(reflect.TypeOf(Config{}), "", &keys)
	sort.Strings(keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, out *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("toml"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			collectKeys(f.Type, name, out)
			continue
		}
		*out = append(*out, name)
	}
}
