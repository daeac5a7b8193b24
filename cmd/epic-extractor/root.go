package main

import (
	"github.com/spf13/cobra"
	"github.com/voterlookup/epic-extractor/internal/cli"
)

var (
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "epic-extractor",
	Short: "epic-extractor looks up voter records behind the portal captcha.",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cli.NewCmdExtract())
	rootCmd.AddCommand(cli.NewCmdImport())
	rootCmd.AddCommand(cli.NewCmdVersion())

	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	migrateCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
}
