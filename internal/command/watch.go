package command

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/collabiora/companion/internal/syncbus"
	"github.com/collabiora/companion/internal/types"
)

// NewWatchCmd creates the watch command: a long-running listener that
// keeps this context's session state converged with events from sibling
// contexts and surfaces them as desktop notifications.
func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch for account events from other Collabiora contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			sess, err := ctx.RequireSession()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			bus, err := syncbus.New(ctx.Config.StateDir, ctx.Logger)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer bus.Close()

			notifier := newNotifier(cmd, ctx)
			client, err := ctx.APIClient()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Every update below is idempotent: the same event may arrive on
			// both transports.
			cleanup, err := bus.Listen(func(msgType string, data map[string]any) {
				switch msgType {
				case types.SyncEmailVerified:
					if err := ctx.Sessions.SetEmailVerified(true); err != nil {
						ctx.Logger.Warn("applying email-verified event failed", zap.Error(err))
						return
					}
					notifier.Success("Collabiora", "Your email address is verified")
				case types.SyncUserUpdated:
					// Payloads are advisory; server truth wins.
					user, err := client.Profile(runCtx, sess.User.ID)
					if err != nil {
						ctx.Logger.Warn("profile refresh after user-updated failed", zap.Error(err))
						return
					}
					if err := ctx.Sessions.UpdateUser(user); err != nil {
						ctx.Logger.Warn("session update failed", zap.Error(err))
						return
					}
					notifier.Success("Collabiora", "Your profile was updated")
				default:
					ctx.Logger.Debug("ignoring unknown sync message", zap.String("type", msgType))
				}
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer cleanup()

			if !ctx.JSONMode {
				fmt.Fprintln(cmd.OutOrStdout(), "Watching for account events... (Ctrl-C to stop)")
			}
			<-runCtx.Done()
			return nil
		},
	}
}
