package cli

import (
	"tasksync-cli/internal/notify"
	"tasksync-cli/internal/session"
	"tasksync-cli/internal/tui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, app)
		},
	}
}

func runTUI(cmd *cobra.Command, app *App) error {
	return withRuntime(cmd, app, func(rt *runtime) error {
		ctx := ctxOf(cmd)
		cache, err := rt.cache(ctx)
		if err != nil {
			// The dashboard still works online without the cache.
			rt.log.Warn("open cache", zap.Error(err))
			cache = nil
		}
		obs := session.NewPollObserver(rt.store, rt.cfg.PollInterval(), rt.log.Named("observer"))
		// Notices are shown as toasts; stderr would corrupt the alt screen.
		return tui.Run(ctx, tui.Options{
			Session:    rt.sess,
			Observer:   obs,
			TaskStore:  rt.client,
			ChatClient: rt.client,
			Cache:      cache,
			StateDir:   rt.dir,
			Notifier:   notify.Log{L: rt.log.Named("notify")},
			Logger:     rt.log.Named("tui"),
		})
	})
}
