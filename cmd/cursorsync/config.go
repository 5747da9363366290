package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/cursorsync/internal/config"
)

const configPathHelp = "Config file path (default: ~/.config/cursorsync/config.yaml)"

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cursorsync config init [--path PATH] [--force]")
	fmt.Fprintln(w, "  cursorsync config validate [--path PATH]")
	fmt.Fprintln(w, "  cursorsync config print [--path PATH] [--defaults]")
	fmt.Fprintln(w, "  cursorsync config explain [--path PATH] <yaml.path>")
}

func loadWithSources(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func runConfig(args []string) int {
	if len(args) == 0 {
		printConfigUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "init":
		fs := newFlagSet("init",
			"Usage: cursorsync config init [--path PATH] [--force]",
			"",
			"Write the built-in defaults to a new config file.")
		path := fs.String("path", "", configPathHelp)
		force := fs.Bool("force", false, "Overwrite an existing file")
		if code := parseFlags(fs, args[1:], 0); code >= 0 {
			return code
		}

		target := *path
		if target == "" {
			var err error
			if target, err = config.DefaultConfigPath(); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		}
		if _, err := os.Stat(target); err == nil && !*force {
			fmt.Fprintf(os.Stderr, "%s already exists (use --force to overwrite)\n", target)
			return 1
		}

		cfg := config.DefaultConfig()
		var err error
		if *path == "" {
			err = cfg.Save()
		} else {
			err = cfg.SaveTo(target)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("wrote %s\n", target)
		return 0

	case "validate":
		fs := newFlagSet("validate", "Usage: cursorsync config validate [--path PATH]")
		path := fs.String("path", "", configPathHelp)
		if code := parseFlags(fs, args[1:], 0); code >= 0 {
			return code
		}

		if _, err := loadWithSources(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := newFlagSet("print", "Usage: cursorsync config print [--path PATH] [--defaults]")
		path := fs.String("path", "", configPathHelp)
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if code := parseFlags(fs, args[1:], 0); code >= 0 {
			return code
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadWithSources(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := newFlagSet("explain", "Usage: cursorsync config explain [--path PATH] <yaml.path>")
		path := fs.String("path", "", configPathHelp)
		if code := parseFlags(fs, args[1:], 1); code >= 0 {
			return code
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadWithSources(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	case "help", "-h", "--help":
		printConfigUsage(os.Stdout)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return "unknown"
	}
}
