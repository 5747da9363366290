package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
)

// Source says where an effective value came from.
type Source struct {
	Kind   SourceKind
	Name   string // for defaults
	File   string
	Line   int
	Column int
}

func fileSource(file string, n *yaml.Node) Source {
	return Source{Kind: SourceFile, File: file, Line: n.Line, Column: n.Column}
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // dotted key -> file position of the winning value
	Files   []string          // loaded files, includes before their includer
}

// Load reads the configuration from the standard location.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources is Load plus per-key sources for `config explain`.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads path and everything it includes. A missing file yields
// the defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	l := &loader{
		seen:    make(map[string]bool),
		sources: make(map[string]Source),
	}

	var raw RawConfig
	if _, err := os.Stat(path); err == nil {
		if raw, err = l.load(path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg, err := BuildEffectiveConfig(raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			if src, ok := l.sources[verr.Path]; ok {
				verr.Source = src
			}
		}
		return nil, err
	}

	return &LoadResult{Config: cfg, Sources: l.sources, Files: l.files}, nil
}

// loader merges one config file tree. Included files are applied first and
// the including file last, so the includer wins.
type loader struct {
	seen    map[string]bool
	stack   []string
	sources map[string]Source
	files   []string
}

type includeRef struct {
	path string
	at   Source
}

func (l *loader) load(path string) (RawConfig, error) {
	file, err := filepath.Abs(path)
	if err != nil {
		return RawConfig{}, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	if real, err := filepath.EvalSymlinks(file); err == nil {
		file = real
	}

	if slices.Contains(l.stack, file) {
		return RawConfig{}, fmt.Errorf("include cycle detected: %s -> %s", strings.Join(l.stack, " -> "), file)
	}
	if l.seen[file] {
		return RawConfig{}, nil
	}
	l.seen[file] = true

	data, err := os.ReadFile(file)
	if err != nil {
		return RawConfig{}, fmt.Errorf("%s: failed to read: %w", file, err)
	}
	var own RawConfig
	if err := decodeStrict(data, &own); err != nil {
		return RawConfig{}, fmt.Errorf("%s: %w", file, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RawConfig{}, fmt.Errorf("%s: failed to parse yaml: %w", file, err)
	}
	ownSources := make(map[string]Source)
	refs := scanDocument(&doc, file, ownSources)

	l.stack = append(l.stack, file)
	var merged RawConfig
	for _, ref := range refs {
		paths, err := includePaths(file, ref.path)
		if err != nil {
			return RawConfig{}, fmt.Errorf("%s:%d:%d: include %q: %w", ref.at.File, ref.at.Line, ref.at.Column, ref.path, err)
		}
		for _, p := range paths {
			inc, err := l.load(p)
			if err != nil {
				return RawConfig{}, err
			}
			merged = merged.merge(inc)
		}
	}
	l.stack = l.stack[:len(l.stack)-1]

	for k, src := range ownSources {
		l.sources[k] = src
	}
	l.files = append(l.files, file)
	return merged.merge(own), nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// scanDocument records the position of every mapping key's value under its
// dotted path and returns the include entries.
func scanDocument(doc *yaml.Node, file string, sources map[string]Source) []includeRef {
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil
	}
	scanMapping(root, file, "", sources)

	var refs []includeRef
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "include" {
			continue
		}
		val := root.Content[i+1]
		items := []*yaml.Node{val}
		if val.Kind == yaml.SequenceNode {
			items = val.Content
		}
		for _, item := range items {
			if item.Kind == yaml.ScalarNode {
				refs = append(refs, includeRef{path: item.Value, at: fileSource(file, item)})
			}
		}
	}
	return refs
}

func scanMapping(node *yaml.Node, file, prefix string, sources map[string]Source) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if prefix != "" {
			key = prefix + "." + key
		}
		val := node.Content[i+1]
		sources[key] = fileSource(file, val)
		if val.Kind == yaml.MappingNode {
			scanMapping(val, file, key, sources)
		}
	}
}

// includePaths resolves an include relative to the including file. A
// directory expands to its *.yaml and *.yml files in name order.
func includePaths(from, include string) ([]string, error) {
	if include == "" {
		return nil, fmt.Errorf("path is empty")
	}
	if include == "~" || strings.HasPrefix(include, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		include = filepath.Join(home, strings.TrimPrefix(include, "~"))
	}
	if !filepath.IsAbs(include) {
		include = filepath.Join(filepath.Dir(from), include)
	}

	info, err := os.Stat(include)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{include}, nil
	}

	matches, err := filepath.Glob(filepath.Join(include, "*.y*ml"))
	if err != nil {
		return nil, err
	}
	var files []string
	for _, m := range matches {
		ext := strings.ToLower(filepath.Ext(m))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if fi, err := os.Stat(m); err == nil && !fi.IsDir() {
			files = append(files, m)
		}
	}
	slices.Sort(files)
	return files, nil
}
