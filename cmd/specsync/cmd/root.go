// Package cmd implements the specsync CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/apiweave/specsync/pkg/logging"
)

var (
	configFile string

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"

	flagVerbose      bool
	flagQuiet        bool
	flagOutput       string
	flagCollection   string
	flagRemote       string
	flagStrategy     string
	flagBaselineDir  string
	flagExtensionKey string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "specsync",
	Short: "Specification and collection reconciliation",
	Long: `Specsync keeps an authored API specification and a request collection
in agreement. It re-derives a specification from the collection, runs a
three-way diff against the last-synced baseline, and applies only the
changes that are safe: descriptive metadata flows both ways, structural
changes are reported but never auto-applied, and collection test scripts
are attached to operations as a vendor extension.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.specsync.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "only log warnings and errors")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&flagCollection, "collection", "c", "", "request collection file")
	rootCmd.PersistentFlags().StringVarP(&flagRemote, "remote", "r", "", "re-derived specification file (empty degrades to collection extraction)")
	rootCmd.PersistentFlags().StringVarP(&flagStrategy, "strategy", "s", "spec-wins", "conflict strategy (spec-wins, collection-wins)")
	rootCmd.PersistentFlags().StringVar(&flagBaselineDir, "baseline-dir", "", "sibling directory name for baseline snapshots")
	rootCmd.PersistentFlags().StringVar(&flagExtensionKey, "extension-key", "", "vendor extension field for test scripts")

	for _, flag := range []string{"verbose", "quiet", "output", "collection", "remote", "strategy", "baseline-dir", "extension-key"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("Failed to bind %s flag: %v", flag, err))
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".specsync")
	}

	// Load .env files before Viper env binding; .env.local overrides .env.
	for _, envFile := range []string{".env", ".env.local"} {
		if err := godotenv.Load(envFile); err == nil && flagVerbose {
			fmt.Fprintf(os.Stderr, "Loaded %s\n", envFile)
		}
	}

	viper.SetEnvPrefix("SPECSYNC")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err == nil && flagVerbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	configureLogging()
}

// configureLogging sets up the logging system based on configuration.
func configureLogging() {
	level := zerolog.InfoLevel
	if flagVerbose || viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	if flagQuiet || viper.GetBool("quiet") {
		level = zerolog.WarnLevel
	}
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if parsed, err := zerolog.ParseLevel(envLevel); err == nil {
			level = parsed
		}
	}

	logger := logging.New(os.Stderr).Level(level)
	if isTerminal(os.Stderr) && os.Getenv("LOG_FORMAT") != "json" {
		logger = logging.NewConsole().Level(level)
	}
	logging.SetDefault(logger)
}

// isTerminal checks whether the file is attached to a terminal.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
