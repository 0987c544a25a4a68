package main

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joelkehle/venturefit/internal/config"
)

const app = config.App

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "venturefit scores operator assessments and matches applicants to ventures",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is venturefit.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("db", "", "store path: empty for memory, *.json for a snapshot file, otherwise SQLite")
	rootCmd.PersistentFlags().String("catalog-file", "", "YAML question catalog overriding the built-in one")
	rootCmd.PersistentFlags().String("ventures-file", "", "YAML venture profiles to seed at start")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("catalog-file", rootCmd.PersistentFlags().Lookup("catalog-file"))
	viper.BindPFlag("ventures-file", rootCmd.PersistentFlags().Lookup("ventures-file"))
}

func initConfig() {
	config.Prepare(viper.GetViper())

	// We can't proceed if the config file parsed with error.
	if err := config.ReadFile(viper.GetViper(), cfgFile); err != nil {
		log.Fatal(err)
	}
}
