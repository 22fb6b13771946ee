package cli

import (
	"tasksync-cli/internal/store"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change ~/.tasksync/config.json",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored config and the effective values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			path, err := store.ConfigPath()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": cfg,
				"meta": map[string]any{
					"path": path,
					"effective": map[string]any{
						"api_url":          resolveAPIURL(app, cfg),
						"timeout_seconds":  int(cfg.Timeout().Seconds()),
						"session_backend":  cfg.Backend(),
						"poll_interval_ms": cfg.PollInterval().Milliseconds(),
					},
					"keys": store.ConfigKeys(),
				},
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> [value]",
		Short: "Set one config key (omit value to reset it)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			value := ""
			if len(args) == 2 {
				value = args[1]
			}
			if err := cfg.Set(args[0], value); err != nil {
				return writeErr(cmd, err)
			}
			if err := store.SaveConfig(cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": cfg})
		},
	})

	return cmd
}
