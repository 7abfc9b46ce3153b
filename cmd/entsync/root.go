package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vivafolio/entsync"
)

var (
	verbose bool
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "entsync",
	Short: "A queryable entity view over CSV, Markdown, JSON and embedded table constructs",
	Long: `Entsync extracts entities from human-editable files and keeps them in sync.
Mutations write back surgically: only the addressed line or fragment changes,
the rest of the file stays byte-identical.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./entsync.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("entsync")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("ENTSYNC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			slog.Debug("no config file loaded", "error", err)
		}
	}
}

// watchRoots resolves the directories to index: positional args win,
// then the config file, then the working directory.
func watchRoots(args []string) []string {
	if len(args) > 0 {
		return args
	}
	if paths := viper.GetStringSlice("watch"); len(paths) > 0 {
		return paths
	}
	wd, err := os.Getwd()
	if err != nil {
		fatal("Failed to get working directory", err)
	}
	return []string{wd}
}

// newService builds a service from the resolved roots and config file.
func newService(args []string) *entsync.Service {
	opts := []entsync.Option{
		entsync.WithLogger(slog.Default()),
	}
	if exts := viper.GetStringSlice("extensions"); len(exts) > 0 {
		opts = append(opts, entsync.WithExtensions(exts...))
	}
	if excl := viper.GetStringSlice("exclude"); len(excl) > 0 {
		opts = append(opts, entsync.WithExcludePatterns(excl...))
	}

	svc, err := entsync.New(watchRoots(args), opts...)
	if err != nil {
		fatal("Failed to initialize entsync", err)
	}
	return svc
}
