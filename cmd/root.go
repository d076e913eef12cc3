package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imlxw/Chronicle-Map/cmd/kv"
	"github.com/imlxw/Chronicle-Map/cmd/util"
	"github.com/imlxw/Chronicle-Map/lib/logging"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "chmap",
		Short: "embedded off-heap key-value map",
		Long: fmt.Sprintf(`chmap (v%s)

An embedded, segment-locked key-value map library written in Go.
Entries live in flat byte arenas outside the reach of the garbage
collector; per-entry operations are atomic under per-segment locks.`, Version),
		PersistentPreRunE: setupLogging,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of chmap",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("chmap v%s\n", Version)
		},
	}
)

func init() {
	// run every PersistentPreRunE in the chain: the kv group defines its own,
	// which would otherwise shadow setupLogging on the root
	cobra.EnableTraverseRunHooks = true

	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	RootCmd.PersistentFlags().String("log-level", "info", util.WrapString("log level to use (debug, info, warn, error)"))
}

// setupLogging applies the configured log level before any subcommand runs
func setupLogging(cmd *cobra.Command, _ []string) error {
	levelStr, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return err
	}
	logging.SetDefaultLevel(level)
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
