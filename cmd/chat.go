package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// chatOptions holds dependencies for the chat command.
type chatOptions struct {
	apiOptions
	prompt prompter
}

// newChatCmd creates the chat command.
func newChatCmd(opts *chatOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [MESSAGE...]",
		Short: "Ask the FinBuddy assistant",
		Long: `Send a message to the FinBuddy assistant. Without a message an
interactive session starts; enter an empty line or "exit" to leave.

Examples:
  fin chat "How diversified is my portfolio?"
  fin chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return runChatOnce(cmd, opts, strings.Join(args, " "))
			}
			return runChatSession(cmd, opts)
		},
	}
	cmd.SilenceUsage = true
	return cmd
}

func runChatOnce(cmd *cobra.Command, opts *chatOptions, message string) error {
	s := opts.connect()
	reply, err := s.client.Chat(cmd.Context(), message)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	if opts.jsonMode {
		return opts.formatter(cmd.OutOrStdout()).Print(map[string]string{"message": message, "response": reply})
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), reply)
	return err
}

func runChatSession(cmd *cobra.Command, opts *chatOptions) error {
	if opts.prompt == nil {
		opts.prompt = newTerminalPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	}
	s := opts.connect()
	out := cmd.OutOrStdout()

	for {
		line, err := opts.prompt.ReadLine("you> ")
		if err != nil {
			return err
		}
		if line == "" || strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			return nil
		}

		reply, err := s.client.Chat(cmd.Context(), line)
		if err != nil {
			// Keep the session open; the next question may succeed
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		_, _ = fmt.Fprintf(out, "finbuddy> %s\n\n", reply)
	}
}

func init() {
	var opts chatOptions
	cmd := newChatCmd(&opts)
	cmd.PersistentPreRunE = preRun(&opts.apiOptions)
	rootCmd.AddCommand(cmd)
}
