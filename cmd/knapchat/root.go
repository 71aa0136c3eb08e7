package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TheusHen/knapchat/knapchat/config"
)

var cfgFile string

// rootCmd is the base command; the work happens in its subcommands.
var rootCmd = &cobra.Command{
	Use:   "knapchat",
	Short: "Two-party chat over knapsack-sealed handshakes and a Solitaire stream cipher",
	Long: `knapchat pairs two clients through a public key directory. They agree
on a Solitaire deck by exchanging knapsack-sealed half-keys and then chat
over a stream cipher keyed by that deck.`,
	SilenceUsage: true,
}

// Execute runs the command tree and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("knapchat exiting with error")
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLog)
	config.SetDefaults(viper.GetViper())

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	flags.String("keyserver", config.Default().Keyserver.Addr, "keyserver address")
	flags.String("log-level", config.Default().Log.Level, "log level (trace, debug, info, warn, error)")
	flags.String("log-format", config.Default().Log.Format, "log format (text or json)")

	bindFlag(flags.Lookup("keyserver"), config.KeyKeyserverAddr)
	bindFlag(flags.Lookup("log-level"), config.KeyLogLevel)
	bindFlag(flags.Lookup("log-format"), config.KeyLogFormat)

	rootCmd.AddCommand(keyserverCmd, clientCmd)
}

func handleBindingError(err error, flag string) {
	if err != nil {
		log.Fatalf("Error on binding flag %q: %+v", flag, err)
	}
}

// initConfig reads the config file when one is given. Environment
// overrides were enabled by config.SetDefaults.
func initConfig() {
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Unable to read config file (%s): %v", cfgFile, err)
	}
}

// initLog applies the log level and format to the standard logger.
func initLog() {
	level, err := log.ParseLevel(viper.GetString(config.KeyLogLevel))
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	log.SetLevel(level)
	if viper.GetString(config.KeyLogFormat) == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// loadConfig returns the validated configuration for a subcommand.
func loadConfig() (config.Config, error) {
	return config.Load(viper.GetViper())
}
