package kv

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imlxw/Chronicle-Map/cmd/util"
)

var (
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Show engine utilization for a synthetic workload",
		Long: util.WrapString("Creates an embedded map with the configured engine options, " +
			"loads it with randomly sized test entries and prints the resulting " +
			"utilization and segment distribution statistics as JSON."),
		RunE: runInfo,
	}
)

func init() {
	infoCmd.Flags().Int("entries", 100_000, util.WrapString("Number of test entries to load"))
	infoCmd.Flags().Int("value-size", 64, util.WrapString("Mean value size in bytes"))
}

func runInfo(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	defer store.Close()

	entries := viper.GetInt("entries")
	valueSize := viper.GetInt("value-size")

	for i := 0; i < entries; i++ {
		value := make([]byte, 1+rand.Intn(2*valueSize))
		if _, _, err := store.Put(fmt.Sprintf("entry-%d", i), value); err != nil {
			return fmt.Errorf("load stopped after %d entries: %w", i, err)
		}
	}

	out, err := json.MarshalIndent(store.Storage().Info(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
