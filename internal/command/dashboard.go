package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewDashboardCmd creates the dashboard command.
func NewDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show your profile, recommendations, and favorites",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			sess, err := ctx.RequireSession()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			client, err := ctx.APIClient()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			// Each section is an independent read: one failing never blanks
			// the others, it falls back and logs.
			user, err := client.Profile(cmd.Context(), sess.User.ID)
			if err != nil {
				ctx.Logger.Warn("profile fetch failed", zap.Error(err))
				user = sess.User
			} else if err := ctx.Sessions.UpdateUser(user); err != nil {
				ctx.Logger.Warn("session profile update failed", zap.Error(err))
			}

			recs, err := client.Recommendations(cmd.Context(), sess.User.ID)
			if err != nil {
				ctx.Logger.Warn("recommendations fetch failed", zap.Error(err))
				recs = nil
			}

			store, closeStore, err := favoritesStore(cmd, ctx)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer closeStore()
			_ = store.Refresh(cmd.Context())
			faves := store.Entries()

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"user":            user,
					"recommendations": recs,
					"favorites":       faves,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>", user.Name, user.Email)
			if user.EmailVerified {
				fmt.Fprintf(out, "  %s", badgeStyle.Render("verified"))
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Recommended for you:")
			fmt.Fprint(out, renderRecommendations(recs))
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Favorites (%d):\n", len(faves))
			fmt.Fprint(out, renderFavorites(faves))
			return nil
		},
	}
}
