package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"rollout-trace/internal/config"
	"rollout-trace/internal/export"
	"rollout-trace/internal/rollout"
	"rollout-trace/internal/store"
	"rollout-trace/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if len(cfg.Files) == 0 {
		fmt.Println("No input files. Pass at least one .jsonl rollout file (or a directory containing them).")
		return
	}

	cache := rollout.NewCache(cfg.CacheSize)

	if cfg.List {
		if err := listFiles(cfg, cache); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	index, err := store.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer index.Close()

	exporter, err := export.New(cfg.ExportDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	m := ui.NewModel(cfg, cache, index, exporter)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// listFiles prints loaded counts per file, for scripting and sanity checks.
func listFiles(cfg config.AppConfig, cache *rollout.Cache) error {
	labels := ui.TabLabels(cfg.Files)
	for i, path := range cfg.Files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		res, err := cache.Load(raw, cfg.SchemaMode)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		line := fmt.Sprintf("%s: %d rollouts", labels[i], len(res.Rollouts))
		if dropped := res.Dropped(); dropped != "" {
			line += " (" + dropped + ")"
		}
		fmt.Println(line)
	}
	return nil
}
