package cmd

import (
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/lootscope/internal/server"
	"github.com/sw33tLie/lootscope/internal/utils"
	"github.com/sw33tLie/lootscope/pkg/report"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server (generate, download and status endpoints)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gen, _, db, err := newGenerator(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		defer gen.Wait()

		lootLimit := viper.GetInt64("scan.lootlimit")

		if viper.GetBool("server.generateonstart") {
			a, err := gen.GetLastReport()
			switch {
			case errors.Is(err, report.ErrNotFound):
				utils.Log.Info("No report published yet, generating one in the background")
				gen.Trigger(lootLimit)
			case err != nil:
				utils.Log.Warnf("Could not check for an existing report: %v", err)
			default:
				a.Close()
			}
		}

		if schedule := viper.GetString("server.schedule"); schedule != "" {
			c := cron.New()
			if _, err := c.AddFunc(schedule, func() {
				utils.Log.Infof("Scheduled report generation (loot limit %d)", lootLimit)
				gen.Trigger(lootLimit)
			}); err != nil {
				return err
			}
			c.Start()
			defer c.Stop()
			utils.Log.Infof("Report regeneration scheduled: %s", schedule)
		}

		staticDir := viper.GetString("server.staticdir")
		if staticDir == "" {
			staticDir = filepath.Dir(viper.GetString("report.path"))
		}

		srv := server.New(gen, db, staticDir, lootLimit)
		return srv.Start(ctx, viper.GetString("server.listen"))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":80", "HTTP listen address")
	serveCmd.Flags().String("static-dir", "", "Directory with index.html and static assets (default: the report's directory)")
	serveCmd.Flags().String("schedule", "", "Cron expression for periodic regeneration (e.g. \"@every 6h\")")
	serveCmd.Flags().Bool("generate-on-start", true, "Generate a report on startup when none exists")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("server.staticdir", serveCmd.Flags().Lookup("static-dir"))
	viper.BindPFlag("server.schedule", serveCmd.Flags().Lookup("schedule"))
	viper.BindPFlag("server.generateonstart", serveCmd.Flags().Lookup("generate-on-start"))
}
