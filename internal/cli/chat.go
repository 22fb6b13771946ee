package cli

import (
	"errors"
	"fmt"
	"strings"

	"tasksync-cli/internal/api"
	"tasksync-cli/internal/conversation"
	"tasksync-cli/internal/publish"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newChatCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the task assistant",
	}
	cmd.AddCommand(newChatSendCmd(app))
	cmd.AddCommand(newChatHistoryCmd(app))
	cmd.AddCommand(newChatNewCmd(app))
	cmd.AddCommand(newChatPromptsCmd(app))
	return cmd
}

func newChatSendCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "send <message...>",
		Short: "Send a message in the current conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return withRuntime(cmd, app, func(rt *runtime) error {
				ctx := ctxOf(cmd)
				conv := rt.conversation()
				defer conv.Close()

				// Signed out: Send reports the login notice itself.
				if _, err := conv.Open(ctx); err != nil && !errors.Is(err, api.ErrNotAuthenticated) {
					return err
				}
				reply, err := conv.Send(ctx, text)
				if err != nil {
					return err
				}
				saveTranscript(cmd, rt, conv)
				return writeOut(cmd, app, map[string]any{
					"data": reply,
					"meta": map[string]any{"conversation_id": conv.ConversationID()},
				})
			})
		},
	}
}

func newChatHistoryCmd(app *App) *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the current conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, app, func(rt *runtime) error {
				if err := rt.requireLogin(); err != nil {
					return err
				}
				conv := rt.conversation()
				defer conv.Close()

				msgs, err := conv.Open(ctxOf(cmd))
				if err != nil {
					return err
				}
				saveTranscript(cmd, rt, conv)
				if markdown {
					_, err := fmt.Fprint(cmd.OutOrStdout(), publish.RenderConversationMarkdown(conv.ConversationID(), msgs))
					return err
				}
				return writeOut(cmd, app, map[string]any{
					"data": msgs,
					"meta": map[string]any{
						"conversation_id": conv.ConversationID(),
						"state":           conv.State(),
					},
				})
			})
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print the transcript as markdown")
	return cmd
}

func newChatNewCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Forget the current conversation and start over",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, app, func(rt *runtime) error {
				if err := rt.requireLogin(); err != nil {
					return err
				}
				conv := rt.conversation()
				defer conv.Close()
				if err := conv.NewChat(ctxOf(cmd)); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": conv.Messages()})
			})
		},
	}
}

func newChatPromptsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "prompts",
		Short: "List suggested prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOut(cmd, app, map[string]any{"data": conversation.SuggestedPrompts})
		},
	}
}

// saveTranscript keeps the last conversation readable offline. Best-effort.
func saveTranscript(cmd *cobra.Command, rt *runtime, conv *conversation.Manager) {
	ctx := ctxOf(cmd)
	c, err := rt.cache(ctx)
	if err != nil {
		rt.log.Warn("open cache", zap.Error(err))
		return
	}
	if err := c.SaveTranscript(ctx, conv.ConversationID(), conv.Messages()); err != nil {
		rt.log.Warn("cache transcript", zap.Error(err))
	}
}
