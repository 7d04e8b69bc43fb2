package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
)

// ErrReorgTooDeep is returned when no common ancestor is found within the
// configured reorg depth. The indexer stops instead of rolling back state
// it can no longer trust.
var ErrReorgTooDeep = errors.New("no common ancestor within maximum reorg depth")

// ReorgResolver locates the fork point between the stored chain and the
// canonical chain seen by the client, and rolls the database back to it.
type ReorgResolver struct {
	ctx        *IndexerCtx
	logger     logrus.FieldLogger
	aggregator *Aggregator
	startBlock uint64
	maxDepth   uint64
}

func NewReorgResolver(ctx *IndexerCtx, aggregator *Aggregator, startBlock uint64, maxDepth uint64) *ReorgResolver {
	return &ReorgResolver{
		ctx:        ctx,
		logger:     ctx.logger.WithField("module", "reorg"),
		aggregator: aggregator,
		startBlock: startBlock,
		maxDepth:   maxDepth,
	}
}

// FindCommonAncestor walks backward from the checkpointed block, comparing
// each stored hash against the canonical hash at the same height. Returns
// the highest stored block that is still canonical, or ErrReorgTooDeep.
func (rr *ReorgResolver) FindCommonAncestor(ctx context.Context, checkpoint *dbtypes.IndexerCheckpoint) (*dbtypes.Block, error) {
	number := checkpoint.LastBlockNumber

	for depth := uint64(0); depth <= rr.maxDepth; depth++ {
		storedBlock, err := db.GetBlockByNumber(number)
		if err != nil {
			return nil, fmt.Errorf("error loading stored block %v: %w", number, err)
		}
		if storedBlock == nil {
			return nil, fmt.Errorf("stored block %v missing during reorg resolution", number)
		}

		canonicalHash, err := rr.ctx.client.GetBlockHashByNumber(ctx, number)
		if err != nil {
			return nil, fmt.Errorf("error fetching canonical hash for block %v: %w", number, err)
		}

		if bytes.Equal(storedBlock.Hash, canonicalHash.Bytes()) {
			return storedBlock, nil
		}

		rr.logger.WithFields(logrus.Fields{
			"number":    number,
			"stored":    fmt.Sprintf("0x%x", storedBlock.Hash),
			"canonical": canonicalHash.Hex(),
		}).Debug("stored block no longer canonical")

		if number <= rr.startBlock {
			break
		}
		number--
	}

	return nil, ErrReorgTooDeep
}

// ResolveReorg removes all stored rows above the common ancestor, reverts
// their aggregate contribution and rewinds every stream checkpoint that
// points above the ancestor. The orphaned rows are loaded through the same
// transaction that deletes them, so the reverted deltas always match the
// deleted rows even when the reader handle points at a lagging replica.
func (rr *ReorgResolver) ResolveReorg(ancestor *dbtypes.Block) error {
	return db.RunDBTransaction(func(tx *sqlx.Tx) error {
		orphanedBlocks, err := db.GetBlocksAboveHeightTx(tx, ancestor.Number)
		if err != nil {
			return fmt.Errorf("error loading orphaned blocks: %w", err)
		}
		orphanedTxs, err := db.GetTransactionsAboveHeightTx(tx, ancestor.Number)
		if err != nil {
			return fmt.Errorf("error loading orphaned transactions: %w", err)
		}
		orphanedTransfers, err := db.GetTokenTransfersAboveHeightTx(tx, ancestor.Number)
		if err != nil {
			return fmt.Errorf("error loading orphaned token transfers: %w", err)
		}
		checkpoints, err := db.GetIndexerCheckpointsTx(tx)
		if err != nil {
			return fmt.Errorf("error loading checkpoints: %w", err)
		}

		rr.logger.WithFields(logrus.Fields{
			"ancestor":  ancestor.Number,
			"blocks":    len(orphanedBlocks),
			"txs":       len(orphanedTxs),
			"transfers": len(orphanedTransfers),
		}).Warn("rolling back orphaned chain segment")

		if err := db.DeleteTokenTransfersAboveHeight(ancestor.Number, tx); err != nil {
			return err
		}
		if err := db.DeleteInternalTransactionsAboveHeight(ancestor.Number, tx); err != nil {
			return err
		}
		if err := db.DeleteTransactionLogsAboveHeight(ancestor.Number, tx); err != nil {
			return err
		}
		if err := db.DeleteTransactionsAboveHeight(ancestor.Number, tx); err != nil {
			return err
		}
		if err := db.DeleteBlocksAboveHeight(ancestor.Number, tx); err != nil {
			return err
		}

		if err := rr.aggregator.RevertBlocks(tx, ancestor, orphanedBlocks, orphanedTxs, orphanedTransfers); err != nil {
			return err
		}

		for _, checkpoint := range checkpoints {
			if checkpoint.LastBlockNumber <= ancestor.Number {
				continue
			}
			err := db.SetIndexerCheckpoint(&dbtypes.IndexerCheckpoint{
				Stream:          checkpoint.Stream,
				LastBlockNumber: ancestor.Number,
				LastBlockHash:   ancestor.Hash,
				UpdatedAt:       uint64(time.Now().Unix()),
			}, tx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
