package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/lootscope/internal/utils"
	"github.com/sw33tLie/lootscope/pkg/loot"
	"github.com/sw33tLie/lootscope/pkg/polling"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lootscope",
	Short: "Exports high-loot alliance members from the Empire API to CSV.",
	Long: `lootscope scans the Empire loot feed page by page, keeps the members of one alliance
whose loot is above a limit, and publishes them as a downloadable CSV.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return utils.SetLogLevel(viper.GetString("loglevel"))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lootscope.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("proxy", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().String("base-url", loot.DefaultBaseURL, "Upstream loot API base URL")
	rootCmd.PersistentFlags().String("alliance", loot.DefaultAlliance, "Alliance whose members are exported")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Per-request timeout for upstream fetches (0 = none)")
	rootCmd.PersistentFlags().Int("retries", 0, "Extra attempts per page fetch (0 = a failed fetch ends the scan)")
	rootCmd.PersistentFlags().Duration("page-delay", 0, "Pause between page fetches (e.g. 1s)")
	rootCmd.PersistentFlags().Int("max-pages", 0, "Stop after this many pages (0 = no cap)")
	rootCmd.PersistentFlags().Int64("loot-limit", polling.DefaultLootLimit, "Default loot limit")
	rootCmd.PersistentFlags().String("report", "static/output.csv", "Path of the published CSV report")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to the SQLite run log (default: ~/.config/lootscope/runs.sqlite)")

	bindFlag("loglevel", "loglevel")
	bindFlag("proxy", "proxy")
	bindFlag("upstream.baseurl", "base-url")
	bindFlag("upstream.alliance", "alliance")
	bindFlag("upstream.timeout", "timeout")
	bindFlag("upstream.retries", "retries")
	bindFlag("scan.pagedelay", "page-delay")
	bindFlag("scan.maxpages", "max-pages")
	bindFlag("scan.lootlimit", "loot-limit")
	bindFlag("report.path", "report")
	bindFlag("db.path", "dbpath")
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if err := godotenv.Load(); err == nil {
		utils.Log.Debug("Loaded environment from .env")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".lootscope")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("lootscope")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}
}
