// Package cmd provides the command-line interface for qualitygate.
//
// Configuration sources, highest priority first:
//  1. Command-line flags (--config, etc.)
//  2. QUALITYGATE_CONFIG_FILE environment variable
//  3. Individual QUALITYGATE_<SECTION>_<OPTION> environment variables
//  4. A .qualitygate.yml configuration file
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "qualitygate",
	Short: "A local quality-gate service for static-analysis tools",
	Long: `qualitygate runs a configurable set of static-analysis tools over a
project tree, on demand or in response to filesystem changes, and streams
their live output, status, and parsed metrics to connected clients.

  qualitygate serve    Start the HTTP/WebSocket server
  qualitygate run      One-shot analysis of a project path, no server
  qualitygate tools    List the registered analyzer tools
  qualitygate version  Show build metadata`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .qualitygate.yml, or QUALITYGATE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig wires Viper's config-file search path and environment
// variable binding before any subcommand runs.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envFile := os.Getenv("QUALITYGATE_CONFIG_FILE"); envFile != "" {
		viper.SetConfigFile(envFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".qualitygate")
	}

	viper.SetEnvPrefix("QUALITYGATE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}
