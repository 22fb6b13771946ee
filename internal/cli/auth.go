package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"tasksync-cli/internal/model"
	"tasksync-cli/internal/session"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session for every tasksync process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, app, func(rt *runtime) error {
				pw, err := readPassword(cmd, password)
				if err != nil {
					return err
				}
				id, err := rt.sess.Login(ctxOf(cmd), model.Credentials{Email: strings.TrimSpace(email), Password: pw})
				if err != nil {
					return err
				}
				return writeOut(cmd, app, authEnvelope(rt, id))
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted; read from stdin when not a terminal)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(app *App) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, app, func(rt *runtime) error {
				pw, err := readPassword(cmd, password)
				if err != nil {
					return err
				}
				id, err := rt.sess.Register(ctxOf(cmd), model.Credentials{
					Name:     strings.TrimSpace(name),
					Email:    strings.TrimSpace(email),
					Password: pw,
				})
				if err != nil {
					return err
				}
				return writeOut(cmd, app, authEnvelope(rt, id))
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	var keepCache bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out everywhere this session is shared",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, app, func(rt *runtime) error {
				ctx := ctxOf(cmd)
				if err := rt.sess.Logout(ctx); err != nil {
					return err
				}
				purged := false
				if !keepCache {
					c, err := rt.cache(ctx)
					if err != nil {
						return err
					}
					if err := c.Purge(ctx); err != nil {
						return err
					}
					purged = true
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{
					"state":        rt.sess.State(),
					"cache_purged": purged,
				}})
			})
		},
	}
	cmd.Flags().BoolVar(&keepCache, "keep-cache", false, "Keep the offline task cache")
	return cmd
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, app, func(rt *runtime) error {
				data := map[string]any{
					"state":           rt.sess.State(),
					"api_url":         rt.client.BaseURL(),
					"session_backend": rt.cfg.Backend(),
				}
				if rt.sess.State() == session.StateAuthenticated {
					data["identity"] = rt.sess.Identity()
					data["conversation_id"] = rt.sess.ConversationID()
				}
				return writeOut(cmd, app, map[string]any{"data": data})
			})
		},
	}
}

func authEnvelope(rt *runtime, id session.Identity) map[string]any {
	return map[string]any{
		"data": id,
		"meta": map[string]any{"state": rt.sess.State(), "api_url": rt.client.BaseURL()},
	}
}

// readPassword returns flag when set, otherwise prompts without echo on a
// terminal, or reads one line from stdin.
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
