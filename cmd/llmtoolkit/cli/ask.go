package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alessiogrespi/llmtoolkit"
)

const askLongDesc string = `Run a single turn and print the answer.

The builtin time_and_date tool is offered unless --no-tools is set.

Examples:
  llmtoolkit ask "What day is it in Tokyo?"
  llmtoolkit ask -m gpt-4.1-mini --system "Answer in one word" "Capital of Italy?"`

const askShortDesc string = "Run a single turn"

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, _ := cmd.Flags().GetString("model")
			system, _ := cmd.Flags().GetString("system")
			noTools, _ := cmd.Flags().GetBool("no-tools")

			c, err := newClient(cmd)
			if err != nil {
				return fmt.Errorf("creating client: %w", err)
			}
			defer c.Close()

			opts := callOptions(system, noTools)
			res, err := c.InvokeTurn(cmd.Context(), strings.Join(args, " "), model, opts...)
			if err != nil {
				return err
			}
			printTurn(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
			return nil
		},
	}

	cmd.Flags().String("system", "", "System prompt")
	cmd.Flags().Bool("no-tools", false, "Do not offer builtin tools")

	return cmd
}

func callOptions(system string, noTools bool) []llmtoolkit.CallOption {
	var opts []llmtoolkit.CallOption
	if system != "" {
		opts = append(opts, llmtoolkit.WithSystemPrompt(system))
	}
	if !noTools {
		opts = append(opts, llmtoolkit.WithAllTools())
	}
	return opts
}

func printTurn(out, errOut io.Writer, res llmtoolkit.TurnResult) {
	fmt.Fprintln(out, res.Response.Content)
	if res.Response.FallbackUsed {
		fmt.Fprintf(errOut, "[fallback %s -> %s: %s]\n", res.Response.OriginalModel, res.Response.ModelID, res.Response.FallbackReason)
	}
	if res.FollowUpErr != nil {
		fmt.Fprintf(errOut, "[follow-up failed: %v]\n", res.FollowUpErr)
	}
	fmt.Fprintf(errOut, "[%s/%s tokens=%d tool_calls=%d]\n",
		res.Response.ProviderID, res.Response.ModelID, res.Usage.TotalTokens, res.ToolCalls)
}
