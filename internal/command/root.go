package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "collabiora"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Collabiora - companion client for the Collabiora research platform",
		Long:          "Collabiora is a companion client for patients and researchers: favorites, connections, messaging, and account verification against the Collabiora backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("state-dir", "", "override the local state directory")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	cmd.AddCommand(
		NewLoginCmd(),
		NewLogoutCmd(),
		NewWhoamiCmd(),
		NewFaveCmd(),
		NewUnfaveCmd(),
		NewFavesCmd(),
		NewFollowCmd(),
		NewConnectCmd(),
		NewMeetCmd(),
		NewMsgCmd(),
		NewSummarizeCmd(),
		NewVerifyCmd(),
		NewResendVerificationCmd(),
		NewDashboardCmd(),
		NewWatchCmd(),
	)

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd(Version).Execute()
}
