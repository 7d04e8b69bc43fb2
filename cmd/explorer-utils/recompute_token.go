package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/indexer/execution"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/rpc"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/utils"
)

var recomputeTokenCmd = &cobra.Command{
	Use:   "recompute-token",
	Short: "Rebuild holder balances of a token",
	Long:  "Replays the token's transfers in chain order and rewrites its holder balances and holder count. By default the stored transfer rows are replayed; with --from-chain the transfer logs are re-fetched from the execution node, which also covers transfers before the configured start block",
	RunE:  runRecomputeToken,
}

func init() {
	rootCmd.AddCommand(recomputeTokenCmd)

	recomputeTokenCmd.Flags().String("address", "", "Token contract address (0x-prefixed)")
	recomputeTokenCmd.Flags().Bool("from-chain", false, "Replay the token's event logs from the execution node instead of the stored transfers")
	recomputeTokenCmd.MarkFlagRequired("address")
}

func runRecomputeToken(cmd *cobra.Command, args []string) error {
	addressParam, _ := cmd.Flags().GetString("address")

	address, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(addressParam), "0x"))
	if err != nil || len(address) != 20 {
		return fmt.Errorf("invalid token address: %v", addressParam)
	}

	if err := initConfigAndDb(); err != nil {
		return err
	}
	defer db.MustCloseDB()

	token, err := db.GetToken(address)
	if err != nil {
		return fmt.Errorf("error loading token: %w", err)
	}
	if token == nil {
		return fmt.Errorf("token %v is not indexed", addressParam)
	}

	logger := logrus.StandardLogger()
	aggregator := execution.NewAggregator(logger)

	fromChain, _ := cmd.Flags().GetBool("from-chain")
	if fromChain {
		ctx := cmd.Context()

		client := rpc.NewExecutionClient("recompute", utils.Config.ExecutionApi.Endpoint, utils.Config.ExecutionApi.Headers)
		if err := client.Initialize(ctx); err != nil {
			return fmt.Errorf("error connecting to execution node: %w", err)
		}

		toBlock, err := client.GetLatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("error fetching latest block number: %w", err)
		}

		err = aggregator.RecomputeTokenHoldersFromChain(ctx, client, address, toBlock, uint64(utils.Config.ExecutionApi.LogBatchSize))
		if err != nil {
			return fmt.Errorf("error recomputing token holders from chain: %w", err)
		}
	} else if err := aggregator.RecomputeTokenHolders(address); err != nil {
		return fmt.Errorf("error recomputing token holders: %w", err)
	}

	logger.WithField("token", addressParam).Info("token holder recompute complete")
	return nil
}
