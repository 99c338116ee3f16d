// Package cmd implements the link-validator command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/link-validator/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "link-validator",
	Short: "Validate outbound links and strip broken ones from generated content",
	Long: `link-validator checks outbound URLs with a headless render service,
falls back to HEAD requests when rendering is unavailable, and removes
markdown links whose targets fail validation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	cobra.OnInitialize(initViper)

	rootCmd.PersistentFlags().String("config", "", "config file (default is $CONFIG_PATH or ./config.yml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newServeCommand(),
		newValidateCommand(),
		newCleanseCommand(),
		newCacheCommand(),
		newVersionCommand(),
	)
}

// initViper binds persistent flags and their environment fallbacks.
func initViper() {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	if err := viper.BindPFlag("config", flags.Lookup("config")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind config flag: %v\n", err)
	}
	if err := viper.BindPFlag("debug", flags.Lookup("debug")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to bind debug flag: %v\n", err)
	}
	_ = viper.BindEnv("config", "CONFIG_PATH")
	_ = viper.BindEnv("debug", "APP_DEBUG")

	viper.SetDefault("config", config.DefaultPath)
}

// configPath returns the config file chosen by flag, CONFIG_PATH or default.
func configPath() string {
	if path := viper.GetString("config"); path != "" {
		return path
	}
	return config.GetConfigPath(config.DefaultPath)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "link-validator version %s\n", Version)
		},
	}
}
