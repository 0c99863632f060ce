// Package configcmder provides the config command for managing persistent
// fastrag configuration stored in the .fastrag/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent fastrag configuration.

Configuration is stored as config.toml in the .fastrag/ directory and provides
default values for command flags. CLI flags and FASTRAG_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  api.listen, api.body_limit,
  ingest.temp_dir, ingest.doc_converter,
  vector_store.provider, vector_store.target, vector_store.path,
  vector_store.collection, vector_store.api_key,
  embedding.provider, embedding.target, embedding.model,
  embedding.dimensions, embedding.api_key,
  answer.provider, answer.target, answer.model, answer.api_key,
  worker.num_workers, worker.queue_size,
  events.provider, events.target, events.topic,
  client.api_target

Use subcommands to get, set, or list configuration values:
  fastrag config set <key> <value>    Set a configuration value
  fastrag config get <key>            Get a configuration value
  fastrag config list                 List all configuration values

Examples:
  fastrag config set vector_store.provider qdrant
  fastrag config set embedding.model nomic-embed-text
  fastrag config get embedding.dimensions
  fastrag config list`

const configShortDesc string = "Manage persistent fastrag configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
