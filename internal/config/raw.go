package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawCacheConfig struct {
	MaxEntries *int `yaml:"max_entries"`
}

type RawIPCConfig struct {
	Enabled *bool   `yaml:"enabled"`
	Socket  *string `yaml:"socket"`
}

type RawSnapshotConfig struct {
	Format *SnapshotFormat `yaml:"format"`
	Scale  *float64        `yaml:"scale"`
}

// RawConfig mirrors Config with optional fields so that files layered via
// include only override what they set.
type RawConfig struct {
	Include      IncludeList        `yaml:"include"`
	PollInterval *time.Duration     `yaml:"poll_interval"`
	Identity     *string            `yaml:"identity"`
	LogLevel     *string            `yaml:"log_level"`
	Display      *string            `yaml:"display"`
	XAuthority   *string            `yaml:"xauthority"`
	Cache        *RawCacheConfig    `yaml:"cache"`
	IPC          *RawIPCConfig      `yaml:"ipc"`
	Snapshot     *RawSnapshotConfig `yaml:"snapshot"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c
	out.Include = nil

	if overlay.PollInterval != nil {
		out.PollInterval = overlay.PollInterval
	}
	if overlay.Identity != nil {
		out.Identity = overlay.Identity
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.XAuthority != nil {
		out.XAuthority = overlay.XAuthority
	}
	if overlay.Cache != nil {
		base := RawCacheConfig{}
		if out.Cache != nil {
			base = *out.Cache
		}
		if overlay.Cache.MaxEntries != nil {
			base.MaxEntries = overlay.Cache.MaxEntries
		}
		out.Cache = &base
	}
	if overlay.IPC != nil {
		base := RawIPCConfig{}
		if out.IPC != nil {
			base = *out.IPC
		}
		if overlay.IPC.Enabled != nil {
			base.Enabled = overlay.IPC.Enabled
		}
		if overlay.IPC.Socket != nil {
			base.Socket = overlay.IPC.Socket
		}
		out.IPC = &base
	}
	if overlay.Snapshot != nil {
		base := RawSnapshotConfig{}
		if out.Snapshot != nil {
			base = *out.Snapshot
		}
		if overlay.Snapshot.Format != nil {
			base.Format = overlay.Snapshot.Format
		}
		if overlay.Snapshot.Scale != nil {
			base.Scale = overlay.Snapshot.Scale
		}
		out.Snapshot = &base
	}
	return out
}
