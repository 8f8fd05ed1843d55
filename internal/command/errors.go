package command

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/collabiora/companion/internal/api"
)

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	if errors.Is(err, api.ErrUnauthorized) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Hint: your session may have expired. Run '%s login' again.\n", AppName)
	}
	return err
}
