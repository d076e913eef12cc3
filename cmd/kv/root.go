package kv

import (
	"github.com/spf13/cobra"

	"github.com/imlxw/Chronicle-Map/cmd/util"
	"github.com/imlxw/Chronicle-Map/lib/chmap"
)

var (
	store *chmap.Map[string, []byte]

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Inspect and benchmark the embedded key-value map",
		PersistentPreRunE: setupMap,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common map configuration flags to the KV command
	util.SetupMapFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(infoCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupMap creates the embedded map from the configured engine options
func setupMap(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	m, err := util.NewMap("cli")
	if err != nil {
		return err
	}
	store = m
	return nil
}
