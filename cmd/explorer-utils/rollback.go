package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/indexer/execution"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll the database back to a block height",
	Long:  "Removes all indexed data above the given height, reverts the aggregates and rewinds the stream checkpoints. The indexer re-ingests from there on next start.",
	RunE:  runRollback,
}

func init() {
	rootCmd.AddCommand(rollbackCmd)

	rollbackCmd.Flags().Uint64("height", 0, "Block height to roll back to (the block at this height is kept)")
	rollbackCmd.MarkFlagRequired("height")
}

func runRollback(cmd *cobra.Command, args []string) error {
	height, _ := cmd.Flags().GetUint64("height")

	if err := initConfigAndDb(); err != nil {
		return err
	}
	defer db.MustCloseDB()

	ancestor, err := db.GetBlockByNumber(height)
	if err != nil {
		return fmt.Errorf("error loading block %v: %w", height, err)
	}
	if ancestor == nil {
		return fmt.Errorf("block %v is not indexed", height)
	}

	logger := logrus.StandardLogger()
	aggregator := execution.NewAggregator(logger)
	resolver := execution.NewReorgResolver(execution.NewIndexerCtx(logger, nil), aggregator, 0, 0)

	if err := resolver.ResolveReorg(ancestor); err != nil {
		return fmt.Errorf("error rolling back to block %v: %w", height, err)
	}

	logger.WithField("height", height).Info("rollback complete")
	return nil
}
