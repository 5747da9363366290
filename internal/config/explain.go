package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	poll_interval
//	identity
//	log_level
//	display
//	xauthority
//	cache.max_entries
//	ipc.enabled
//	ipc.socket
//	snapshot.format
//	snapshot.scale
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	leaf := func(v any) (any, error) {
		if len(parts) != 1 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		return v, nil
	}

	switch parts[0] {
	case "poll_interval":
		return leaf(cfg.PollInterval)
	case "identity":
		return leaf(cfg.Identity)
	case "log_level":
		return leaf(cfg.LogLevel)
	case "display":
		return leaf(cfg.Display)
	case "xauthority":
		return leaf(cfg.XAuthority)
	case "cache":
		if len(parts) == 1 {
			return cfg.Cache, nil
		}
		if len(parts) == 2 && parts[1] == "max_entries" {
			return cfg.Cache.MaxEntries, nil
		}
	case "ipc":
		if len(parts) == 1 {
			return cfg.IPC, nil
		}
		if len(parts) == 2 {
			switch parts[1] {
			case "enabled":
				return cfg.IPC.Enabled, nil
			case "socket":
				return cfg.IPC.Socket, nil
			}
		}
	case "snapshot":
		if len(parts) == 1 {
			return cfg.Snapshot, nil
		}
		if len(parts) == 2 {
			switch parts[1] {
			case "format":
				return cfg.Snapshot.Format, nil
			case "scale":
				return cfg.Snapshot.Scale, nil
			}
		}
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}
