package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show indexer checkpoints and database totals",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := initConfigAndDb(); err != nil {
		return err
	}
	defer db.MustCloseDB()

	checkpoints, err := db.GetIndexerCheckpoints()
	if err != nil {
		return fmt.Errorf("error loading checkpoints: %w", err)
	}

	if len(checkpoints) == 0 {
		fmt.Println("no checkpoints, indexer has not run yet")
	}
	for _, checkpoint := range checkpoints {
		fmt.Printf("stream %-8v block %-10v hash 0x%x\n", checkpoint.Stream, checkpoint.LastBlockNumber, checkpoint.LastBlockHash)
	}

	stats, err := db.GetNetworkStats()
	if err != nil {
		return fmt.Errorf("error loading network stats: %w", err)
	}
	if stats != nil {
		fmt.Printf("\nblocks:       %v\n", stats.TotalBlocks)
		fmt.Printf("transactions: %v\n", stats.TotalTransactions)
		fmt.Printf("transfers:    %v\n", stats.TotalTransfers)
		fmt.Printf("addresses:    %v\n", stats.TotalAddresses)
	}

	return nil
}
