package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/rpc"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/types"
)

// TraceStreamName identifies the internal transaction stream.
const TraceStreamName = "traces"

// TraceIndexer extracts value-bearing call frames from block traces. It
// follows its own checkpoint and never runs ahead of the head stream, so it
// only traces blocks whose canonical rows are already committed.
type TraceIndexer struct {
	ctx    *IndexerCtx
	logger logrus.FieldLogger
	config *types.Config

	unsupported bool
}

func NewTraceIndexer(ctx *IndexerCtx, config *types.Config) *TraceIndexer {
	return &TraceIndexer{
		ctx:    ctx,
		logger: ctx.logger.WithField("module", "traces"),
		config: config,
	}
}

// IndexNext traces the next pending block. Returns true when caught up with
// the head stream or when the node does not support tracing.
func (ti *TraceIndexer) IndexNext(ctx context.Context) (bool, error) {
	if ti.unsupported {
		return true, nil
	}

	headCheckpoint, err := db.GetIndexerCheckpoint(HeadStreamName)
	if err != nil {
		return false, fmt.Errorf("error loading head checkpoint: %w", err)
	}
	traceCheckpoint, err := db.GetIndexerCheckpoint(TraceStreamName)
	if err != nil {
		return false, fmt.Errorf("error loading trace checkpoint: %w", err)
	}

	nextNumber := ti.config.Indexer.StartBlock
	if traceCheckpoint != nil {
		nextNumber = traceCheckpoint.LastBlockNumber + 1
	}
	if headCheckpoint == nil || nextNumber > headCheckpoint.LastBlockNumber {
		return true, nil
	}

	storedBlock, err := db.GetBlockByNumber(nextNumber)
	if err != nil {
		return false, err
	}
	if storedBlock == nil {
		// head stream rewound below us, wait for it to catch up again
		return true, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, ti.config.ExecutionApi.CallTimeout)
	defer cancel()

	traces, err := ti.ctx.client.TraceBlockByNumber(callCtx, nextNumber)
	if err != nil {
		if rpc.IsUnsupportedMethod(err) {
			ti.logger.Warn("node does not support call tracing, disabling internal transaction stream")
			ti.unsupported = true
			return true, nil
		}
		return false, fmt.Errorf("error tracing block %v: %w", nextNumber, err)
	}

	internalTxs := []*dbtypes.InternalTransaction{}
	for txHash, frame := range traces {
		traceIndex := uint(0)
		// the root frame duplicates the outer transaction, only nested
		// frames are stored
		for _, call := range frame.Calls {
			flattenCallFrames(&call, txHash.Bytes(), nextNumber, &traceIndex, &internalTxs)
		}
	}

	err = db.RunDBTransaction(func(tx *sqlx.Tx) error {
		if err := db.InsertInternalTransactions(internalTxs, tx); err != nil {
			return err
		}
		return db.SetIndexerCheckpoint(&dbtypes.IndexerCheckpoint{
			Stream:          TraceStreamName,
			LastBlockNumber: nextNumber,
			LastBlockHash:   storedBlock.Hash,
			UpdatedAt:       uint64(time.Now().Unix()),
		}, tx)
	})
	if err != nil {
		return false, fmt.Errorf("error committing traces for block %v: %w", nextNumber, err)
	}

	if len(internalTxs) > 0 {
		ti.logger.WithFields(logrus.Fields{
			"number":      nextNumber,
			"internalTxs": len(internalTxs),
		}).Debug("indexed block traces")
	}
	return false, nil
}

func flattenCallFrames(frame *rpc.CallFrame, txHash []byte, blockNumber uint64, traceIndex *uint, result *[]*dbtypes.InternalTransaction) {
	if frame.Value != nil && frame.Value.ToInt().Sign() > 0 && frame.To != nil {
		internalTx := &dbtypes.InternalTransaction{
			TransactionHash: txHash,
			TraceIndex:      *traceIndex,
			BlockNumber:     blockNumber,
			CallType:        frame.Type,
			FromAddress:     frame.From.Bytes(),
			ToAddress:       frame.To.Bytes(),
			Value:           bigToBytes(frame.Value.ToInt()),
			GasUsed:         uint64(frame.GasUsed),
		}
		if frame.Error != "" {
			errorMsg := frame.Error
			internalTx.ErrorMsg = &errorMsg
		}
		*result = append(*result, internalTx)
		*traceIndex++
	}

	for i := range frame.Calls {
		flattenCallFrames(&frame.Calls[i], txHash, blockNumber, traceIndex, result)
	}
}
