package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Prints the most recent report generations.",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		db, err := openRunLog()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRecentRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No report generations recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tLOOT LIMIT\tSTATUS\tROWS\tPAGES\tSTOP\tERROR\t")
		for _, r := range runs {
			duration := "-"
			if !r.FinishedAt.IsZero() {
				duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%d\t%d\t%s\t%s\t\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), duration, r.LootLimit, r.Status, r.Rows, r.Pages, r.StopReason, r.Error)
		}
		w.Flush()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().Int("limit", 20, "Number of runs to show")
}
