// Package cli implements the llmtoolkit command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alessiogrespi/llmtoolkit"
	"github.com/alessiogrespi/llmtoolkit/internal/config"
	"github.com/alessiogrespi/llmtoolkit/internal/logging"
)

const rootLongDesc string = `llmtoolkit sends prompts to OpenAI, Azure OpenAI, Gemini and Bedrock
models through one request shape, with model fallback and tool calling.

Commands:
  llmtoolkit models          List configured models by provider
  llmtoolkit ask <prompt>    Run a single turn
  llmtoolkit chat            Start an interactive session

Configuration is read from --config, LLM_CONFIG_PATH or ./config.yaml.`

const rootShortDesc string = "Provider-agnostic LLM client"

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "llmtoolkit",
		Short:        rootShortDesc,
		Long:         rootLongDesc,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to config.yaml")
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("model", "m", "", "Model id; empty uses the fallback model")

	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newChatCmd())

	return cmd
}

// newClient builds a client from the persistent flags with builtin tools registered.
func newClient(cmd *cobra.Command) (*llmtoolkit.Client, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	var opts []llmtoolkit.Option
	if debug {
		opts = append(opts, llmtoolkit.WithLogger(logging.New(config.LoggingConfig{Level: "debug"}, os.Stderr)))
	}

	var (
		c   *llmtoolkit.Client
		err error
	)
	if path != "" {
		c, err = llmtoolkit.NewFromPath(path, opts...)
	} else {
		c, err = llmtoolkit.NewFromFile(opts...)
	}
	if err != nil {
		return nil, err
	}
	if err := c.RegisterBuiltinTools(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}
