package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// The relationship and messaging actions are fire-and-forget: the backend
// result is only surfaced as a notification, never blocked on beyond the
// request itself.

// NewFollowCmd creates the follow command.
func NewFollowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "follow <user-id>",
		Short: "Follow another account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if _, err := ctx.RequireSession(); err != nil {
				return writeCommandError(cmd, err)
			}
			client, err := ctx.APIClient()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			notifier := newNotifier(cmd, ctx)
			if err := client.Follow(cmd.Context(), args[0]); err != nil {
				notifier.Failure("Follow", "Could not follow this account")
				return writeCommandError(cmd, err)
			}
			notifier.Success("Follow", "You are now following this account")

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"following": true})
			}
			return nil
		},
	}
	return cmd
}

// NewConnectCmd creates the connect command.
func NewConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect <user-id>",
		Short: "Send a connection request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if _, err := ctx.RequireSession(); err != nil {
				return writeCommandError(cmd, err)
			}
			client, err := ctx.APIClient()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			message, _ := cmd.Flags().GetString("message")
			notifier := newNotifier(cmd, ctx)
			if err := client.RequestConnection(cmd.Context(), args[0], message); err != nil {
				notifier.Failure("Connection", "Could not send the connection request")
				return writeCommandError(cmd, err)
			}
			notifier.Success("Connection", "Connection request sent")

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"requested": true})
			}
			return nil
		},
	}
	cmd.Flags().String("message", "", "optional note to include")
	return cmd
}

// NewMeetCmd creates the meet command.
func NewMeetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meet <user-id>",
		Short: "Propose a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if _, err := ctx.RequireSession(); err != nil {
				return writeCommandError(cmd, err)
			}
			client, err := ctx.APIClient()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			topic, _ := cmd.Flags().GetString("topic")
			when, _ := cmd.Flags().GetString("at")
			var proposedAt int64
			if when != "" {
				parsed, err := time.Parse(time.RFC3339, when)
				if err != nil {
					return writeCommandError(cmd, fmt.Errorf("invalid --at, want RFC3339: %w", err))
				}
				proposedAt = parsed.Unix()
			}

			notifier := newNotifier(cmd, ctx)
			if err := client.RequestMeeting(cmd.Context(), args[0], topic, proposedAt); err != nil {
				notifier.Failure("Meeting", "Could not send the meeting request")
				return writeCommandError(cmd, err)
			}
			notifier.Success("Meeting", "Meeting request sent")

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"requested": true})
			}
			return nil
		},
	}
	cmd.Flags().String("topic", "", "meeting topic")
	cmd.Flags().String("at", "", "proposed time (RFC3339)")
	return cmd
}

// NewMsgCmd creates the msg command.
func NewMsgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "msg <user-id> <body>",
		Short: "Send a direct message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if _, err := ctx.RequireSession(); err != nil {
				return writeCommandError(cmd, err)
			}
			client, err := ctx.APIClient()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			notifier := newNotifier(cmd, ctx)
			if err := client.SendMessage(cmd.Context(), args[0], args[1]); err != nil {
				notifier.Failure("Message", "Could not send the message")
				return writeCommandError(cmd, err)
			}
			notifier.Success("Message", "Message sent")

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"sent": true})
			}
			return nil
		},
	}
	return cmd
}
