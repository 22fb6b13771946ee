package cli

import (
	"fmt"
	"os"
	"strings"

	"tasksync-cli/internal/format"

	"github.com/spf13/cobra"
)

type App struct {
	APIURL     string
	RedisURL   string
	Profile    string
	PrettyJSON bool
	Format     string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "tasksync",
		Short:        "Task manager CLI + TUI with an AI assistant",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive dashboard
  tasksync

  # Sign in (password is prompted when omitted)
  tasksync login --email ada@example.com

  # Scriptable commands
  tasksync tasks list --status active
  tasksync tasks create --title "Prepare quarterly report" --priority high --due tomorrow

  # Direct task lookup (shortcut for: tasksync tasks show <id>)
  tasksync 42
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		f, err := format.Normalize(app.Format)
		if err != nil {
			return writeErr(cmd, err)
		}
		app.Format = f
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", envOr("TASKSYNC_API_URL", ""), "Task service base URL (default: config api_url, then http://localhost:8000)")
	cmd.PersistentFlags().StringVar(&app.RedisURL, "redis-url", envOr("TASKSYNC_REDIS_URL", ""), "Redis URL for the shared session backend (overrides config redis_url)")
	cmd.PersistentFlags().StringVar(&app.Profile, "profile", envOr("TASKSYNC_PROFILE", "default"), "Session profile name (redis backend only)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TASKSYNC_FORMAT", "json"), "Output format (json|edn)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newChatCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newTUICmd(app))

	return cmd
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
