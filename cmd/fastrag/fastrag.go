// Package fastragcmder
package fastragcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/fastrag/cmd/fastrag/config"
	ingestcmder "github.com/papercomputeco/fastrag/cmd/fastrag/ingest"
	initcmder "github.com/papercomputeco/fastrag/cmd/fastrag/init"
	querycmder "github.com/papercomputeco/fastrag/cmd/fastrag/query"
	servecmder "github.com/papercomputeco/fastrag/cmd/fastrag/serve"
	versioncmder "github.com/papercomputeco/fastrag/cmd/version"
)

const fastragLongDesc string = `FastRAG answers questions from the documents you give it.

Run the server and talk to it using:
  fastrag serve                 Run the API server
  fastrag ingest <file>...      Upload documents to a running server
  fastrag query <question>      Ask a question
  fastrag init                  Create a local .fastrag/ directory
  fastrag config                Manage persistent configuration`

const fastragShortDesc string = "FastRAG - document question answering"

func NewFastragCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fastrag",
		Short:         fastragShortDesc,
		Long:          fastragLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .fastrag/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
