package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const chatLongDesc string = `Start an interactive session.

Each line is sent as one turn; history is kept in the configured session
backend under --session, or under a fresh id when none is given.
Type /reset to clear the history and /quit to leave.`

const chatShortDesc string = "Start an interactive session"

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			model, _ := cmd.Flags().GetString("model")
			system, _ := cmd.Flags().GetString("system")
			noTools, _ := cmd.Flags().GetBool("no-tools")
			sessionID, _ := cmd.Flags().GetString("session")
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			c, err := newClient(cmd)
			if err != nil {
				return fmt.Errorf("creating client: %w", err)
			}
			defer c.Close()

			ctx := cmd.Context()
			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
			fmt.Fprintf(errOut, "session %s\n", sessionID)

			opts := callOptions(system, noTools)
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "/quit", "/exit":
					return nil
				case "/reset":
					if err := c.ResetSession(ctx, sessionID); err != nil {
						return err
					}
					fmt.Fprintln(errOut, "[history cleared]")
					continue
				}

				res, err := c.Chat(ctx, sessionID, line, model, opts...)
				if err != nil {
					fmt.Fprintf(errOut, "error: %v\n", err)
					continue
				}
				printTurn(out, errOut, res)
			}
		},
	}

	cmd.Flags().StringP("session", "s", "", "Session id to resume")
	cmd.Flags().String("system", "", "System prompt")
	cmd.Flags().Bool("no-tools", false, "Do not offer builtin tools")

	return cmd
}
