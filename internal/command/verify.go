package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/collabiora/companion/internal/syncbus"
	"github.com/collabiora/companion/internal/types"
	"github.com/collabiora/companion/internal/verify"
)

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify your email address",
		Long:  "Redeem a verification link token, enter a one-time code, or watch until verification completes in any context (this terminal, another one, or the web app).",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			sess, err := ctx.RequireSession()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if sess.User.EmailVerified {
				if ctx.JSONMode {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"state": verify.StateSuccess})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Your email is already verified")
				return nil
			}

			client, err := ctx.APIClient()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			bus, err := syncbus.New(ctx.Config.StateDir, ctx.Logger)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer bus.Close()

			machine := verify.NewMachine(client, bus, ctx.Sessions, sess.User, ctx.Logger)

			token, _ := cmd.Flags().GetString("token")
			otp, _ := cmd.Flags().GetString("otp")
			watch, _ := cmd.Flags().GetBool("watch")

			switch {
			case token != "":
				err = machine.SubmitToken(cmd.Context(), token)
			case otp != "":
				err = machine.SubmitOTP(cmd.Context(), otp)
			case watch:
				err = watchVerification(cmd, ctx, machine, bus)
			default:
				return writeCommandError(cmd, fmt.Errorf("pass --token, --otp, or --watch"))
			}

			state, msg := machine.State()
			if ctx.JSONMode {
				out := map[string]any{"state": state}
				if msg != "" {
					out["message"] = msg
				}
				encErr := json.NewEncoder(cmd.OutOrStdout()).Encode(out)
				if err != nil {
					return err
				}
				return encErr
			}

			switch state {
			case verify.StateSuccess:
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", badgeStyle.Render("Email verified"))
			case verify.StateError:
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", errStyle.Render(msg))
				fmt.Fprintf(cmd.OutOrStdout(), "Run '%s resend-verification' for a fresh email, or retry with a new code.\n", AppName)
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Verification state: %s\n", state)
			}
			return err
		},
	}
	cmd.Flags().String("token", "", "verification link token")
	cmd.Flags().String("otp", "", "one-time code from the verification email")
	cmd.Flags().Bool("watch", false, "poll and listen until verification completes anywhere")
	return cmd
}

// watchVerification blocks until the account turns verified, fed by
// whichever source reports it first: the fixed-interval status poll or an
// email-verified broadcast from a sibling context.
func watchVerification(cmd *cobra.Command, ctx *Context, machine *verify.Machine, bus *syncbus.Bus) error {
	cleanup, err := bus.Listen(func(msgType string, data map[string]any) {
		if msgType == types.SyncEmailVerified {
			machine.ExternalSuccess()
		}
	})
	if err != nil {
		return err
	}
	defer cleanup()

	if !ctx.JSONMode {
		fmt.Fprintln(cmd.OutOrStdout(), "Waiting for email verification... (Ctrl-C to stop)")
	}
	machine.Poll(cmd.Context(), ctx.Config.PollInterval)
	return nil
}

// NewResendVerificationCmd creates the resend-verification command.
func NewResendVerificationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resend-verification",
		Short: "Request a fresh verification email",
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

			machine := verify.NewMachine(client, nil, ctx.Sessions, sess.User, ctx.Logger)
			if err := machine.Resend(cmd.Context(), ctx.Sessions); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"sent": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Verification email sent to %s\n", sess.User.Email)
			return nil
		},
	}
}
