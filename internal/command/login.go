package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/collabiora/companion/internal/api"
	"github.com/collabiora/companion/internal/session"
	"github.com/collabiora/companion/internal/types"
)

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Collabiora",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" || password == "" {
				return writeCommandError(cmd, fmt.Errorf("--email and --password are required"))
			}

			client, err := api.NewClient(ctx.Config.APIBaseURL, "")
			if err != nil {
				return writeCommandError(cmd, err)
			}

			resp, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			sess := types.Session{
				User:             resp.User,
				Token:            resp.Token,
				ProfileSignature: session.ProfileSignature(resp.User),
				LoggedInAt:       time.Now().Unix(),
			}
			if err := ctx.Sessions.Save(sess); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"logged_in": true,
					"user":      resp.User,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", resp.User.Name, resp.User.Email)
			if !resp.User.EmailVerified {
				fmt.Fprintf(cmd.OutOrStdout(), "Your email is not verified yet. Run '%s verify' to finish setup.\n", AppName)
			}
			return nil
		},
	}

	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")
	return cmd
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear local session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := ctx.Sessions.Clear(); err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"logged_out": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			sess, err := ctx.RequireSession()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(sess.User)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", sess.User.Name, sess.User.Email, sess.User.Role)
			if expiry := session.TokenExpiry(sess.Token); !expiry.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "Session expires %s\n", expiry.Format(time.RFC1123))
			}
			if sess.User.EmailVerified {
				fmt.Fprintln(cmd.OutOrStdout(), "Email: verified")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Email: not verified")
			}
			return nil
		},
	}
}
