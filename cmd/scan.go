package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/lootscope/internal/utils"
	"github.com/sw33tLie/lootscope/pkg/report"
)

// scanCmd runs one scan in the foreground.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the loot feed once and print the matching players as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		lootLimit := viper.GetInt64("scan.lootlimit")
		publish, _ := cmd.Flags().GetBool("publish")

		if publish {
			gen, store, db, err := newGenerator(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := gen.GenerateReport(cmd.Context(), lootLimit)
			if err != nil {
				return err
			}
			utils.Log.Infof("Published %d rows to %s", len(res.Rows), store.Path())
			return nil
		}

		scanner, err := newScanner()
		if err != nil {
			return err
		}
		res := scanner.Scan(cmd.Context(), lootLimit)
		utils.Log.Infof("Scan finished after %d pages (%s)", res.PagesFetched, res.StopReason)
		return report.WriteCSV(os.Stdout, res.Rows)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Bool("publish", false, "Publish the result as the current report instead of printing it")
}
