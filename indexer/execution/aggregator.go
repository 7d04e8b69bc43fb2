package execution

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
)

var zeroAddress = make([]byte, 20)

// Aggregator maintains the derived tables (addresses, token holders, daily
// and network stats). All updates run within the caller's block transaction,
// so readers never observe a block without its aggregate contribution.
type Aggregator struct {
	logger logrus.FieldLogger
}

func NewAggregator(logger logrus.FieldLogger) *Aggregator {
	return &Aggregator{
		logger: logger,
	}
}

// ApplyBlock applies one block's aggregate contribution.
func (agg *Aggregator) ApplyBlock(tx *sqlx.Tx, block *dbtypes.Block, transactions []*dbtypes.Transaction, transfers []*dbtypes.TokenTransfer, contractFlags map[string]bool) error {
	deltas := buildAddressDeltas(transactions, 1, contractFlags)
	for _, delta := range deltas {
		if err := db.ApplyAddressDelta(delta, tx); err != nil {
			return fmt.Errorf("error applying address delta: %w", err)
		}
	}

	for _, transfer := range transfers {
		if err := agg.applyTransfer(tx, transfer, 1); err != nil {
			return err
		}
	}

	if err := agg.applyDailyStats(tx, block, 1); err != nil {
		return err
	}

	return agg.applyNetworkStats(tx, block.Number, block.Hash, 1, int64(len(transactions)), int64(len(transfers)))
}

// RevertBlocks reverts the aggregate contribution of all rolled back blocks.
// The inverse of every delta the blocks contributed is applied, then the
// seen fields of affected addresses are recomputed from the surviving rows.
// Must run in the same transaction that deletes the orphaned rows.
func (agg *Aggregator) RevertBlocks(tx *sqlx.Tx, ancestor *dbtypes.Block, blocks []*dbtypes.Block, transactions []*dbtypes.Transaction, transfers []*dbtypes.TokenTransfer) error {
	deltas := buildAddressDeltas(transactions, -1, nil)
	for _, delta := range deltas {
		if err := db.ApplyAddressDelta(delta, tx); err != nil {
			return fmt.Errorf("error reverting address delta: %w", err)
		}
	}

	// revert transfers in reverse chain order
	for i := len(transfers) - 1; i >= 0; i-- {
		if err := agg.applyTransfer(tx, transfers[i], -1); err != nil {
			return err
		}
	}

	for _, block := range blocks {
		if err := agg.applyDailyStats(tx, block, -1); err != nil {
			return err
		}
	}
	if err := db.DeleteEmptyDailyStats(tx); err != nil {
		return fmt.Errorf("error cleaning daily stats: %w", err)
	}

	if _, err := db.DeleteEmptyAddresses(tx); err != nil {
		return fmt.Errorf("error cleaning addresses: %w", err)
	}
	for _, delta := range deltas {
		if err := db.RecomputeAddressSeen(delta.Address, tx); err != nil {
			return fmt.Errorf("error recomputing address seen fields: %w", err)
		}
	}

	return agg.applyNetworkStats(tx, ancestor.Number, ancestor.Hash, -int64(len(blocks)), -int64(len(transactions)), -int64(len(transfers)))
}

// buildAddressDeltas folds the per-transaction counter increments into one
// delta per address. A transaction whose sender equals its recipient (self
// transfer) increments both sent and received counters but counts as a
// single transaction.
func buildAddressDeltas(transactions []*dbtypes.Transaction, sign int64, contractFlags map[string]bool) []*dbtypes.AddressDelta {
	deltaMap := map[string]*dbtypes.AddressDelta{}
	order := []string{}

	getDelta := func(address []byte, seenBlock uint64, seenTime uint64) *dbtypes.AddressDelta {
		key := string(address)
		delta := deltaMap[key]
		if delta == nil {
			delta = &dbtypes.AddressDelta{
				Address:   address,
				SeenBlock: seenBlock,
				SeenTime:  seenTime,
			}
			deltaMap[key] = delta
			order = append(order, key)
		}
		if seenBlock > delta.SeenBlock {
			delta.SeenBlock = seenBlock
			delta.SeenTime = seenTime
		}
		if contractFlags != nil && contractFlags[key] {
			delta.IsContract = true
		}
		return delta
	}

	for _, transaction := range transactions {
		fromDelta := getDelta(transaction.FromAddress, transaction.BlockNumber, transaction.BlockTimestamp)
		fromDelta.SentTxCount += sign
		fromDelta.TxCount += sign

		recipient := transaction.ToAddress
		if recipient == nil {
			recipient = transaction.ContractAddress
		}
		if recipient == nil {
			continue
		}

		toDelta := getDelta(recipient, transaction.BlockNumber, transaction.BlockTimestamp)
		toDelta.ReceivedTxCount += sign
		if !bytes.Equal(recipient, transaction.FromAddress) {
			toDelta.TxCount += sign
		}
	}

	deltas := make([]*dbtypes.AddressDelta, len(order))
	for i, key := range order {
		deltas[i] = deltaMap[key]
	}
	return deltas
}

func (agg *Aggregator) applyTransfer(tx *sqlx.Tx, transfer *dbtypes.TokenTransfer, sign int64) error {
	token := &dbtypes.Token{
		Address:         transfer.TokenAddress,
		TokenType:       transfer.TokenType,
		TransferCount:   uint64(0),
		MetadataStatus:  dbtypes.TokenMetadataPending,
		DiscoveredBlock: transfer.BlockNumber,
	}
	if sign > 0 {
		token.TransferCount = 1
	}
	if err := db.UpsertToken(token, sign, tx); err != nil {
		return fmt.Errorf("error upserting token: %w", err)
	}

	value := new(big.Int).SetBytes(transfer.Value)
	if value.Sign() == 0 {
		return nil
	}

	debit := new(big.Int).Neg(value)
	credit := value
	if sign < 0 {
		debit, credit = credit, debit
	}

	holderCountDelta := int64(0)
	if !bytes.Equal(transfer.FromAddress, zeroAddress) {
		delta, err := agg.adjustHolderBalance(tx, transfer, transfer.FromAddress, debit)
		if err != nil {
			return err
		}
		holderCountDelta += delta
	}
	if !bytes.Equal(transfer.ToAddress, zeroAddress) {
		delta, err := agg.adjustHolderBalance(tx, transfer, transfer.ToAddress, credit)
		if err != nil {
			return err
		}
		holderCountDelta += delta
	}

	if holderCountDelta != 0 {
		if err := db.UpdateTokenHolderCount(transfer.TokenAddress, holderCountDelta, tx); err != nil {
			return fmt.Errorf("error updating holder count: %w", err)
		}
	}
	return nil
}

// adjustHolderBalance applies one balance delta to a (token, holder[, id])
// row and returns the holder count change (+1 on zero to non-zero, -1 on
// non-zero to zero). A negative result indicates a decoding or ordering bug:
// it is logged and the token is flagged for a full replay recompute, never
// silently clamped into the stored aggregates.
func (agg *Aggregator) adjustHolderBalance(tx *sqlx.Tx, transfer *dbtypes.TokenTransfer, holderAddress []byte, delta *big.Int) (int64, error) {
	tokenId := transfer.TokenId
	if tokenId == nil {
		tokenId = []byte{}
	}

	holder, err := db.GetTokenHolderTx(tx, transfer.TokenAddress, holderAddress, tokenId)
	if err != nil {
		return 0, fmt.Errorf("error loading token holder: %w", err)
	}

	currentBalance := new(big.Int)
	if holder != nil {
		currentBalance.SetBytes(holder.Balance)
	}

	newBalance := new(big.Int).Add(currentBalance, delta)
	if newBalance.Sign() < 0 {
		agg.logger.WithFields(logrus.Fields{
			"token":  fmt.Sprintf("0x%x", transfer.TokenAddress),
			"holder": fmt.Sprintf("0x%x", holderAddress),
			"tx":     fmt.Sprintf("0x%x", transfer.TransactionHash),
		}).Error("negative token holder balance, flagging token for recompute")

		if err := db.SetTokenNeedsRecompute(transfer.TokenAddress, true, tx); err != nil {
			return 0, fmt.Errorf("error flagging token for recompute: %w", err)
		}
		newBalance.SetInt64(0)
	}

	holderCountDelta := int64(0)
	if currentBalance.Sign() == 0 && newBalance.Sign() > 0 {
		holderCountDelta = 1
	} else if currentBalance.Sign() > 0 && newBalance.Sign() == 0 {
		holderCountDelta = -1
	}

	if newBalance.Sign() == 0 {
		if holder != nil {
			if err := db.DeleteTokenHolder(transfer.TokenAddress, holderAddress, tokenId, tx); err != nil {
				return 0, fmt.Errorf("error deleting token holder: %w", err)
			}
		}
		return holderCountDelta, nil
	}

	err = db.SetTokenHolder(&dbtypes.TokenHolder{
		TokenAddress:     transfer.TokenAddress,
		HolderAddress:    holderAddress,
		TokenId:          tokenId,
		Balance:          newBalance.Bytes(),
		LastUpdatedBlock: transfer.BlockNumber,
	}, tx)
	if err != nil {
		return 0, fmt.Errorf("error updating token holder: %w", err)
	}
	return holderCountDelta, nil
}

func (agg *Aggregator) applyDailyStats(tx *sqlx.Tx, block *dbtypes.Block, sign int64) error {
	day := time.Unix(int64(block.Timestamp), 0).UTC().Format("2006-01-02")

	existing, err := db.GetDailyStatsDayTx(tx, day)
	if err != nil {
		return fmt.Errorf("error loading daily stats: %w", err)
	}

	fees := new(big.Int)
	if existing != nil {
		fees.SetBytes(existing.TotalFees)
	}
	blockFees := new(big.Int).SetBytes(block.TotalFees)
	if sign > 0 {
		fees.Add(fees, blockFees)
	} else {
		fees.Sub(fees, blockFees)
		if fees.Sign() < 0 {
			fees.SetInt64(0)
		}
	}

	err = db.ApplyDailyStatsDelta(day, sign, sign*int64(block.TransactionCount), sign*int64(block.TransferCount), sign*int64(block.GasUsed), bigToBytes(fees), tx)
	if err != nil {
		return fmt.Errorf("error updating daily stats: %w", err)
	}
	return nil
}

func (agg *Aggregator) applyNetworkStats(tx *sqlx.Tx, latestBlock uint64, latestBlockHash []byte, blockDelta int64, txDelta int64, transferDelta int64) error {
	var addressCount uint64
	if err := tx.Get(&addressCount, `SELECT COUNT(*) FROM addresses`); err != nil {
		return fmt.Errorf("error counting addresses: %w", err)
	}

	err := db.ApplyNetworkStatsDelta(latestBlock, latestBlockHash, blockDelta, txDelta, transferDelta, addressCount, tx)
	if err != nil {
		return fmt.Errorf("error updating network stats: %w", err)
	}
	return nil
}

type holderReplayKey struct {
	holder  string
	tokenId string
}

// holderReplay accumulates the balances of one token while replaying its
// transfers in chain order.
type holderReplay struct {
	logger     logrus.FieldLogger
	token      []byte
	balances   map[holderReplayKey]*big.Int
	lastBlocks map[holderReplayKey]uint64
}

func newHolderReplay(logger logrus.FieldLogger, tokenAddress []byte) *holderReplay {
	return &holderReplay{
		logger:     logger,
		token:      tokenAddress,
		balances:   map[holderReplayKey]*big.Int{},
		lastBlocks: map[holderReplayKey]uint64{},
	}
}

func (replay *holderReplay) apply(fromAddress []byte, toAddress []byte, tokenId []byte, value *big.Int, blockNumber uint64) {
	if value.Sign() == 0 {
		return
	}
	if tokenId == nil {
		tokenId = []byte{}
	}

	if !bytes.Equal(fromAddress, zeroAddress) {
		key := holderReplayKey{holder: string(fromAddress), tokenId: string(tokenId)}
		balance := replay.balances[key]
		if balance == nil {
			balance = new(big.Int)
			replay.balances[key] = balance
		}
		balance.Sub(balance, value)
		if balance.Sign() < 0 {
			replay.logger.WithFields(logrus.Fields{
				"token":  fmt.Sprintf("0x%x", replay.token),
				"holder": fmt.Sprintf("0x%x", fromAddress),
			}).Warn("negative balance during replay, clamping to zero")
			balance.SetInt64(0)
		}
		replay.lastBlocks[key] = blockNumber
	}
	if !bytes.Equal(toAddress, zeroAddress) {
		key := holderReplayKey{holder: string(toAddress), tokenId: string(tokenId)}
		balance := replay.balances[key]
		if balance == nil {
			balance = new(big.Int)
			replay.balances[key] = balance
		}
		balance.Add(balance, value)
		replay.lastBlocks[key] = blockNumber
	}
}

// commit replaces the token's stored holder rows with the replayed balances
// and clears the recompute flag, all in one transaction.
func (replay *holderReplay) commit() error {
	return db.RunDBTransaction(func(tx *sqlx.Tx) error {
		if err := db.DeleteTokenHolders(replay.token, tx); err != nil {
			return err
		}

		holderCount := int64(0)
		for key, balance := range replay.balances {
			if balance.Sign() == 0 {
				continue
			}
			holderCount++
			err := db.SetTokenHolder(&dbtypes.TokenHolder{
				TokenAddress:     replay.token,
				HolderAddress:    []byte(key.holder),
				TokenId:          []byte(key.tokenId),
				Balance:          balance.Bytes(),
				LastUpdatedBlock: replay.lastBlocks[key],
			}, tx)
			if err != nil {
				return err
			}
		}

		if _, err := tx.Exec(`UPDATE tokens SET holder_count = $2, needs_recompute = FALSE WHERE address = $1`, replay.token, holderCount); err != nil {
			return err
		}
		return nil
	})
}

// RecomputeTokenHolders rebuilds all holder balances of one token by
// replaying its stored transfers in chain order. Used when an inconsistency
// was detected during incremental aggregation.
func (agg *Aggregator) RecomputeTokenHolders(tokenAddress []byte) error {
	transfers, err := db.GetTokenTransfersByTokenAsc(tokenAddress)
	if err != nil {
		return fmt.Errorf("error loading token transfers: %w", err)
	}

	replay := newHolderReplay(agg.logger, tokenAddress)
	for _, transfer := range transfers {
		replay.apply(transfer.FromAddress, transfer.ToAddress, transfer.TokenId, new(big.Int).SetBytes(transfer.Value), transfer.BlockNumber)
	}

	return replay.commit()
}

// RecomputeTokenHoldersFromChain rebuilds all holder balances of one token by
// replaying the token's event logs fetched from the node instead of the
// stored transfer rows. Used when the stored history is incomplete, e.g. for
// tokens whose transfers predate the configured start block. Logs are fetched
// in windows of batchSize blocks to stay within provider limits.
func (agg *Aggregator) RecomputeTokenHoldersFromChain(ctx context.Context, client ExecutionClient, tokenAddress []byte, toBlock uint64, batchSize uint64) error {
	if batchSize == 0 {
		batchSize = 1
	}

	replay := newHolderReplay(agg.logger, tokenAddress)
	tokenAddr := common.BytesToAddress(tokenAddress)

	for fromBlock := uint64(0); fromBlock <= toBlock; fromBlock += batchSize {
		windowEnd := fromBlock + batchSize - 1
		if windowEnd > toBlock {
			windowEnd = toBlock
		}

		logs, err := client.GetLogs(ctx, fromBlock, windowEnd, []common.Address{tokenAddr})
		if err != nil {
			return fmt.Errorf("error fetching logs for blocks %v-%v: %w", fromBlock, windowEnd, err)
		}

		for i := range logs {
			events, known := DecodeTokenTransfers(&logs[i])
			if !known {
				continue
			}
			if events == nil {
				agg.logger.WithFields(logrus.Fields{
					"tx":  logs[i].TxHash.Hex(),
					"log": logs[i].Index,
				}).Warn("malformed transfer event payload, skipping")
				continue
			}
			for _, event := range events {
				tokenId := []byte{}
				if event.TokenId != nil {
					tokenId = bigToBytes(event.TokenId)
				}
				replay.apply(event.From.Bytes(), event.To.Bytes(), tokenId, event.Value, logs[i].BlockNumber)
			}
		}
	}

	return replay.commit()
}
