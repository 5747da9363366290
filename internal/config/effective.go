package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw overrides on top of DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.PollInterval != nil {
		cfg.PollInterval = *raw.PollInterval
	}
	if raw.Identity != nil {
		cfg.Identity = strings.TrimSpace(*raw.Identity)
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}
	if raw.Display != nil {
		cfg.Display = strings.TrimSpace(*raw.Display)
	}
	if raw.XAuthority != nil {
		cfg.XAuthority = strings.TrimSpace(*raw.XAuthority)
	}
	if raw.Cache != nil && raw.Cache.MaxEntries != nil {
		cfg.Cache.MaxEntries = *raw.Cache.MaxEntries
	}
	if raw.IPC != nil {
		if raw.IPC.Enabled != nil {
			cfg.IPC.Enabled = *raw.IPC.Enabled
		}
		if raw.IPC.Socket != nil {
			cfg.IPC.Socket = strings.TrimSpace(*raw.IPC.Socket)
		}
	}
	if raw.Snapshot != nil {
		if raw.Snapshot.Format != nil {
			cfg.Snapshot.Format = SnapshotFormat(strings.ToLower(string(*raw.Snapshot.Format)))
		}
		if raw.Snapshot.Scale != nil {
			cfg.Snapshot.Scale = *raw.Snapshot.Scale
		}
	}

	if cfg.Identity == "" {
		return nil, &ValidationError{Path: "identity", Err: fmt.Errorf("identity must not be empty")}
	}
	return cfg, nil
}
