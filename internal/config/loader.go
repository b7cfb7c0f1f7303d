package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":      {"openai", "anyllm", "anthropic", "ollama", "gemini", "mistral", "groq"},
	"calendar": {"google", "mock"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	for _, fb := range cfg.Providers.LLMFallbacks {
		validateProviderName("llm", fb.Name)
	}
	validateProviderName("calendar", cfg.Providers.Calendar.Name)

	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; intent classification will run on keywords only")
	}
	if cfg.Providers.Calendar.Name == "" {
		errs = append(errs, errors.New("providers.calendar.name is required"))
	}
	if cfg.Providers.Calendar.Name == "google" && cfg.Providers.Calendar.CredentialsFile == "" {
		errs = append(errs, errors.New("providers.calendar.credentials_file is required for the google backend"))
	}

	// Breaker
	if b := cfg.Providers.Breaker; b.MaxFailures < 0 || b.HalfOpenMax < 0 || b.ResetTimeout < 0 {
		errs = append(errs, errors.New("providers.breaker values must not be negative"))
	}

	// Booking rules
	bk := cfg.Booking
	if bk.OpenHour < 0 || bk.OpenHour > 23 {
		errs = append(errs, fmt.Errorf("booking.open_hour %d is out of range [0, 23]", bk.OpenHour))
	}
	if bk.CloseHour < 0 || bk.CloseHour > 24 {
		errs = append(errs, fmt.Errorf("booking.close_hour %d is out of range [0, 24]", bk.CloseHour))
	}
	if bk.OpenHour != 0 && bk.CloseHour != 0 && bk.CloseHour <= bk.OpenHour {
		errs = append(errs, fmt.Errorf("booking.close_hour %d must be after booking.open_hour %d", bk.CloseHour, bk.OpenHour))
	}
	if bk.DefaultDurationMinutes < 0 {
		errs = append(errs, fmt.Errorf("booking.default_duration_minutes %d must not be negative", bk.DefaultDurationMinutes))
	}
	if bk.LookaheadDays < 0 {
		errs = append(errs, fmt.Errorf("booking.lookahead_days %d must not be negative", bk.LookaheadDays))
	}

	// Session store
	if cfg.Session.Backend != "" && !cfg.Session.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("session.backend %q is invalid; valid values: memory, postgres", cfg.Session.Backend))
	}
	if cfg.Session.Backend == SessionPostgres && cfg.Session.PostgresDSN == "" {
		errs = append(errs, errors.New("session.postgres_dsn is required when session.backend is postgres"))
	}
	if cfg.Session.IdleTTL < 0 {
		errs = append(errs, errors.New("session.idle_ttl must not be negative"))
	}

	// Discord frontend
	if cfg.Discord.Enabled && cfg.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required when discord.enabled is true"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
