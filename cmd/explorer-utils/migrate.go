package main

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Apply database schema migrations",
	Long:  "Applies all pending schema migrations, or migrates to a specific version when one is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := initConfigAndDb(); err != nil {
		return err
	}
	defer db.MustCloseDB()

	version := int64(-2)
	if len(args) == 1 {
		parsed, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid migration version: %v", args[0])
		}
		version = parsed
	}

	if err := db.ApplyEmbeddedDbSchema(version); err != nil {
		return fmt.Errorf("error applying db schema: %w", err)
	}

	logrus.Info("schema migration complete")
	return nil
}
