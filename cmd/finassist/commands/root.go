// ABOUTME: Root command and global flags for the finassist CLI
// ABOUTME: Loads .env, validates flag combinations and registers every subcommand
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	configPath   string
)

const banner = `
 ███████╗██╗███╗   ██╗ █████╗ ███████╗███████╗██╗███████╗████████╗
 ██╔════╝██║████╗  ██║██╔══██╗██╔════╝██╔════╝██║██╔════╝╚══██╔══╝
 █████╗  ██║██╔██╗ ██║███████║███████╗███████╗██║███████╗   ██║
 ██╔══╝  ██║██║╚██╗██║██╔══██║╚════██║╚════██║██║╚════██║   ██║
 ██║     ██║██║ ╚████║██║  ██║███████║███████║██║███████║   ██║
 ╚═╝     ╚═╝╚═╝  ╚═══╝╚═╝  ╚═╝╚══════╝╚══════╝╚═╝╚══════╝   ╚═╝
`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finassist",
		Short: "Financial question answering over live prices and your documents",
		Long: banner + `
finassist answers financial questions by fetching the latest intraday
price and the most relevant passages from indexed documents at the
same time, then asking a language model for a short narrative.

Run it as an HTTP service, as an MCP server for LLM agents, or
one-shot from the command line.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case "auto", "json", "text":
			default:
				return fmt.Errorf("--format must be auto, json or text, got %q", outputFormat)
			}
			// Missing .env is normal in production
			_ = godotenv.Load()
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors and print results")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, json or text")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		NewServeCmd(),
		NewMCPCmd(),
		NewAskCmd(),
		NewIngestCmd(),
		NewRetrieveCmd(),
		NewQuoteCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
