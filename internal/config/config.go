// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/folio/internal/logging"
	"github.com/jeranaias/folio/internal/storage"
	"github.com/jeranaias/folio/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete folio configuration.
type Config struct {
	// Backend connection settings
	Backend BackendConfig `toml:"backend"`

	// Where the session id is persisted
	Session SessionConfig `toml:"session"`

	// Conversation behavior and notice texts
	Chat ChatConfig `toml:"chat"`

	// Terminal UI settings
	UI UIConfig `toml:"ui"`

	// Logging settings
	Log LogConfig `toml:"log"`
}

// BackendConfig contains chat API settings.
type BackendConfig struct {
	BaseURL       string   `toml:"base_url"`
	Timeout       Duration `toml:"timeout"`
	StreamTimeout Duration `toml:"stream_timeout"`
	UseOpenAI     bool     `toml:"use_openai"`
	MaxErrorBody  int      `toml:"max_error_body"`
}

// SessionConfig contains session persistence settings.
type SessionConfig struct {
	// Store is the backend: "file", "sqlite" or "memory".
	Store string `toml:"store"`

	// Path of the store. Empty uses ~/.folio/state.json or ~/.folio/state.db.
	Path string `toml:"path"`

	// Key the session id is stored under.
	Key string `toml:"key"`
}

// ChatConfig contains conversation settings.
type ChatConfig struct {
	// CollapseDelay before reasoning auto-collapses; negative disables.
	CollapseDelay       Duration `toml:"collapse_delay"`
	Suggestions         []string `toml:"suggestions"`
	UnavailableMessage  string   `toml:"unavailable_message"`
	HistoryErrorMessage string   `toml:"history_error_message"`
	BackendDownMessage  string   `toml:"backend_down_message"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// WordWrap for rendered Markdown; 0 follows the terminal width.
	WordWrap int `toml:"word_wrap"`

	// MaxFPS caps redraws while a reply streams in.
	MaxFPS int `toml:"max_fps"`

	// Style is the glamour style: auto, dark, light, notty or ascii.
	Style string `toml:"style"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// =============================================================================
// DURATION
// =============================================================================

// Duration is a time.Duration written as a string ("1.5s") in TOML.
type Duration struct {
	time.Duration
}

// NewDuration wraps d.
func NewDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

var durationType = reflect.TypeOf(Duration{})

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:       "http://localhost:8000",
			Timeout:       NewDuration(10 * time.Second),
			StreamTimeout: NewDuration(30 * time.Second),
			MaxErrorBody:  2048,
		},

		Session: SessionConfig{
			Store: "file",
			Key:   "chat_id",
		},

		Chat: ChatConfig{
			CollapseDelay: NewDuration(1200 * time.Millisecond),
			Suggestions: []string{
				"What projects have you worked on?",
				"Which technologies do you use most?",
				"How can I get in touch?",
			},
			UnavailableMessage:  "The assistant is currently unavailable. Please try again later.",
			HistoryErrorMessage: "The previous conversation could not be loaded. Clear the chat to start a new one.",
			BackendDownMessage:  "The chat backend is unavailable right now. Please try again later.",
		},

		UI: UIConfig{
			WordWrap: 0,
			MaxFPS:   30,
			Style:    "auto",
		},

		Log: LogConfig{
			Level: "warn",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the folio configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".folio"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StorePath returns the session store path, deriving one from the store kind
// when none is configured.
func (c *Config) StorePath() string {
	if c.Session.Path != "" {
		return storage.ExpandHome(c.Session.Path)
	}
	dir := storage.DefaultDir()
	if strings.EqualFold(c.Session.Store, string(storage.KindSQLite)) {
		return filepath.Join(dir, "state.db")
	}
	return filepath.Join(dir, "state.json")
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.folio/config.toml.
// A missing file yields the defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	for _, key := range md.Undecoded() {
		logging.Warn("config_unknown_key", "path", path, "key", key.String())
	}
	return nil
}

// finish applies environment overrides, defaults and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to ~/.folio/config.toml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# folio configuration file\n")
	buf.WriteString("# Durations use Go syntax, e.g. \"1.5s\" or \"250ms\".\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
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

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validStyles    = map[string]bool{"auto": true, "dark": true, "light": true, "notty": true, "ascii": true}
)

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidationErrors

	// Backend
	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "backend.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be an absolute http or https URL", c.Backend.BaseURL),
		})
	}
	if c.Backend.Timeout.Duration <= 0 {
		errs = append(errs, ValidationError{Field: "backend.timeout", Message: "must be positive"})
	}
	if c.Backend.StreamTimeout.Duration < 0 {
		errs = append(errs, ValidationError{Field: "backend.stream_timeout", Message: "must not be negative"})
	}
	if c.Backend.MaxErrorBody < 0 {
		errs = append(errs, ValidationError{Field: "backend.max_error_body", Message: "must not be negative"})
	}

	// Session
	if _, err := storage.ParseKind(c.Session.Store); err != nil {
		errs = append(errs, ValidationError{
			Field:   "session.store",
			Message: fmt.Sprintf("invalid store '%s', must be one of: file, sqlite, memory", c.Session.Store),
		})
	}
	if strings.TrimSpace(c.Session.Key) == "" {
		errs = append(errs, ValidationError{Field: "session.key", Message: "must not be empty"})
	}

	// UI
	if c.UI.WordWrap < 0 {
		errs = append(errs, ValidationError{Field: "ui.word_wrap", Message: "must not be negative"})
	}
	if c.UI.MaxFPS < 1 || c.UI.MaxFPS > 120 {
		errs = append(errs, ValidationError{
			Field:   "ui.max_fps",
			Message: fmt.Sprintf("must be between 1 and 120, got %d", c.UI.MaxFPS),
		})
	}
	if !validStyles[strings.ToLower(c.UI.Style)] {
		errs = append(errs, ValidationError{
			Field:   "ui.style",
			Message: fmt.Sprintf("invalid style '%s', must be one of: auto, dark, light, notty, ascii", c.UI.Style),
		})
	}

	// Log
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills empty values with defaults. Zero durations and counts
// are treated as unset; a negative collapse delay is kept.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaults.Backend.BaseURL
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.Timeout.Duration == 0 {
		c.Backend.Timeout = defaults.Backend.Timeout
	}
	if c.Backend.StreamTimeout.Duration == 0 {
		c.Backend.StreamTimeout = defaults.Backend.StreamTimeout
	}
	if c.Backend.MaxErrorBody == 0 {
		c.Backend.MaxErrorBody = defaults.Backend.MaxErrorBody
	}

	if c.Session.Store == "" {
		c.Session.Store = defaults.Session.Store
	}
	if c.Session.Key == "" {
		c.Session.Key = defaults.Session.Key
	}

	if c.Chat.CollapseDelay.Duration == 0 {
		c.Chat.CollapseDelay = defaults.Chat.CollapseDelay
	}
	if c.Chat.Suggestions == nil {
		c.Chat.Suggestions = defaults.Chat.Suggestions
	}
	if c.Chat.UnavailableMessage == "" {
		c.Chat.UnavailableMessage = defaults.Chat.UnavailableMessage
	}
	if c.Chat.HistoryErrorMessage == "" {
		c.Chat.HistoryErrorMessage = defaults.Chat.HistoryErrorMessage
	}
	if c.Chat.BackendDownMessage == "" {
		c.Chat.BackendDownMessage = defaults.Chat.BackendDownMessage
	}

	if c.UI.MaxFPS == 0 {
		c.UI.MaxFPS = defaults.UI.MaxFPS
	}
	if c.UI.Style == "" {
		c.UI.Style = defaults.UI.Style
	}

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - FOLIO_BASE_URL: overrides backend.base_url
//   - FOLIO_USE_OPENAI: set to "1" or "true" to route sends to OpenAI
//   - FOLIO_SESSION_STORE: overrides session.store
//   - FOLIO_LOG_LEVEL: overrides log.level
//   - FOLIO_LOG_FILE: overrides log.file
func (c *Config) ApplyEnvOverrides() {
	if baseURL := os.Getenv("FOLIO_BASE_URL"); baseURL != "" {
		c.Backend.BaseURL = baseURL
	}

	if useOpenAI := os.Getenv("FOLIO_USE_OPENAI"); useOpenAI != "" {
		c.Backend.UseOpenAI = parseBool(useOpenAI)
	}

	if store := os.Getenv("FOLIO_SESSION_STORE"); store != "" {
		c.Session.Store = store
	}

	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}

	if file := os.Getenv("FOLIO_LOG_FILE"); file != "" {
		c.Log.File = file
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes"
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "backend.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ui.max_fps").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup resolves a dotted key to its field.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field, nil
		}

		if field.Kind() != reflect.Struct || field.Type() == durationType {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}

	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(part[:1]))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		if field.Type() == durationType {
			var d Duration
			if err := d.UnmarshalText([]byte(strVal)); err != nil {
				return err
			}
			field.Set(reflect.ValueOf(d))
			return nil
		}

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
			field.SetBool(parseBool(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all scalar configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"backend.base_url",
		"backend.timeout",
		"backend.stream_timeout",
		"backend.use_openai",
		"backend.max_error_body",
		"session.store",
		"session.path",
		"session.key",
		"chat.collapse_delay",
		"chat.unavailable_message",
		"chat.history_error_message",
		"chat.backend_down_message",
		"ui.word_wrap",
		"ui.max_fps",
		"ui.style",
		"log.level",
		"log.file",
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Chat.Suggestions != nil {
		clone.Chat.Suggestions = append([]string(nil), c.Chat.Suggestions...)
	}
	return &clone
}

// String returns the configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}
