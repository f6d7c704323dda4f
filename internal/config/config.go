package config

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rollout-trace/internal/rollout"
)

const DefaultGlamourStyle = "dark"

type AppConfig struct {
	// Files are the resolved .jsonl inputs, in upload (argument) order.
	Files      []string
	SchemaMode rollout.SchemaMode
	PlainFinal bool
	CacheSize  int
	ExportDir  string
	Style      string
	List       bool
}

// Parse reads flags and positional arguments. Arguments are .jsonl files or
// directories, which are walked for *.jsonl.
func Parse(args []string) (AppConfig, error) {
	var cfg AppConfig
	var schema string

	flags := flag.NewFlagSet("rollout-trace", flag.ContinueOnError)
	flags.StringVar(&schema, "schema", "warn", "handling of schema-invalid lines: skip, warn, or error")
	flags.BoolVar(&cfg.PlainFinal, "plain-final", false, "show final-channel content as literal text instead of rendered markdown")
	flags.IntVar(&cfg.CacheSize, "cache-size", rollout.DefaultCacheSize, "max files kept in the parse cache")
	flags.StringVar(&cfg.ExportDir, "export-dir", "", "override export output directory")
	flags.StringVar(&cfg.Style, "style", defaultStyle(), "glamour style for markdown rendering")
	flags.BoolVar(&cfg.List, "list", false, "print loaded rollout counts and exit (no TUI)")
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "usage: rollout-trace [flags] <file.jsonl|dir> ...\n\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return cfg, err
	}

	mode, err := rollout.ParseSchemaMode(schema)
	if err != nil {
		return cfg, err
	}
	cfg.SchemaMode = mode

	cfg.Files, err = resolveInputs(flags.Args())
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaultStyle() string {
	if fromEnv := os.Getenv("ROLLOUT_STYLE"); fromEnv != "" {
		return fromEnv
	}
	return DefaultGlamourStyle
}

func resolveInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		stat, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !stat.IsDir() {
			files = append(files, arg)
			continue
		}

		found, err := findJSONL(arg)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no .jsonl files under %s", arg)
		}
		files = append(files, found...)
	}
	return files, nil
}

func findJSONL(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), ".jsonl") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}
