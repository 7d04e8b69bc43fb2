package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/types"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/utils"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "explorer-utils",
	Short: "Telebit explorer utilities",
	Long:  "Maintenance utilities for the Telebit explorer including schema migration, manual rollbacks and token holder recomputation",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file, if empty string defaults will be used")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initConfigAndDb loads the config and opens the database, shared by all
// subcommands.
func initConfigAndDb() error {
	cfg := &types.Config{}
	if err := utils.ReadConfig(cfg, configPath); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	utils.Config = cfg

	db.MustInitDB()
	return nil
}
