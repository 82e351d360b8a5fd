package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/comalice/storex"
	"github.com/comalice/storex/internal/config"
	"github.com/comalice/storex/internal/production"
)

// Script is an action script. JSON scripts parse as YAML.
type Script struct {
	Actions []storex.Action `yaml:"actions"`
}

func loadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return Script{}, fmt.Errorf("parse script %s: %w", path, err)
	}
	return script, nil
}

// ReplaySummary reports the outcome of a replay.
type ReplaySummary struct {
	Applied int `json:"applied"`
	Queued  int `json:"queued"`
	Failed  int `json:"failed"`
}

func replayCmd(configPath *string) *cobra.Command {
	var (
		save    bool
		restore bool
	)

	cmd := &cobra.Command{
		Use:   "replay <script>",
		Short: "Dispatch an action script against the demo store",
		Long: `Replay dispatches every action of a YAML or JSON script against the demo
slices and prints the final state and a summary.

  actions:
    - type: todos/add
      payload: {text: write docs}
    - type: counter/inc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			script, err := loadScript(args[0])
			if err != nil {
				return err
			}
			return runReplay(cmd.Context(), cfg, script, replayOptions{save: save, restore: restore}, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Save the final state with the configured snapshot driver")
	cmd.Flags().BoolVar(&restore, "restore", false, "Restore the last snapshot before replaying")

	return cmd
}

type replayOptions struct {
	save    bool
	restore bool
}

func runReplay(ctx context.Context, cfg config.Config, script Script, opts replayOptions, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cfg.Logger(errOut)
	store, err := storex.New(
		storex.WithID(cfg.StoreID),
		storex.WithLogger(logger),
		storex.WithHistorySize(cfg.HistorySize),
		storex.WithObserver(production.NewPrometheusObserver(production.WithRegistry(prometheus.NewRegistry()))),
		storex.WithMiddleware(storex.LoggingMiddleware(logger)),
	)
	if err != nil {
		return err
	}

	persister, closer, err := cfg.OpenPersister(ctx)
	if err != nil {
		return fmt.Errorf("open persister: %w", err)
	}
	defer func() { _ = closer.Close() }()
	if (opts.save || opts.restore) && persister == nil {
		return fmt.Errorf("--save and --restore need STOREX_SNAPSHOT_DRIVER")
	}
	if opts.restore {
		if err := store.Load(ctx, persister); err != nil {
			return err
		}
	}

	if err := setupDemo(store); err != nil {
		return err
	}

	var summary ReplaySummary
	for i, action := range script.Actions {
		_, applied, err := store.Dispatch(action)
		switch {
		case err != nil:
			summary.Failed++
			logger.Warn("storex: action failed", "index", i, "type", action.TypeString(), "error", err)
		case applied:
			summary.Applied++
		default:
			summary.Queued++
		}
	}

	if opts.save {
		if err := store.Save(ctx, persister); err != nil {
			return err
		}
	}

	stats, _ := store.Select("stats")
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		State   storex.State  `json:"state"`
		Stats   any           `json:"stats"`
		Summary ReplaySummary `json:"summary"`
	}{store.GetState(), stats, summary})
}
