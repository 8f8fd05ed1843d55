package command

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewSummarizeCmd creates the summarize command.
func NewSummarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize [text]",
		Short: "Summarize text with the platform's AI service",
		Long:  "Send text (argument, --file, or stdin) to the backend summarization service and print the result. The content is opaque to this client.",
		Args:  cobra.MaximumNArgs(1),
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

			text, err := summarizeInput(cmd, args)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			summary, err := client.Summarize(cmd.Context(), text)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"summary": summary})
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().String("file", "", "read the text from a file")
	return cmd
}

func summarizeInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("nothing to summarize: pass text, --file, or pipe to stdin")
	}
	return text, nil
}
