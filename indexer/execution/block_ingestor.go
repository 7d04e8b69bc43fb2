package execution

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/rpc"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/types"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/utils"
)

// HeadStreamName identifies the main ingestion stream.
const HeadStreamName = "head"

// BlockIngestor advances the head stream one block at a time. Each step
// fetches the next block with receipts, decodes its logs and commits the
// complete write-set together with the advanced checkpoint in a single
// database transaction, so a crash at any point resumes without gaps or
// double counting.
type BlockIngestor struct {
	ctx        *IndexerCtx
	logger     logrus.FieldLogger
	config     *types.Config
	aggregator *Aggregator
	resolver   *ReorgResolver
	chainId    *big.Int
	signer     ethtypes.Signer
}

func NewBlockIngestor(ctx *IndexerCtx, config *types.Config, aggregator *Aggregator, resolver *ReorgResolver, chainId *big.Int) *BlockIngestor {
	return &BlockIngestor{
		ctx:        ctx,
		logger:     ctx.logger.WithField("module", "ingestor"),
		config:     config,
		aggregator: aggregator,
		resolver:   resolver,
		chainId:    chainId,
		signer:     ethtypes.LatestSignerForChainID(chainId),
	}
}

// IngestNext processes the next pending block of the head stream.
// Returns true when the stream is caught up with the chain tip.
func (bi *BlockIngestor) IngestNext(ctx context.Context) (bool, error) {
	checkpoint, err := db.GetIndexerCheckpoint(HeadStreamName)
	if err != nil {
		return false, fmt.Errorf("error loading head checkpoint: %w", err)
	}

	nextNumber := bi.config.Indexer.StartBlock
	if checkpoint != nil {
		nextNumber = checkpoint.LastBlockNumber + 1
	}

	callCtx, cancel := context.WithTimeout(ctx, bi.config.ExecutionApi.CallTimeout)
	defer cancel()

	block, err := bi.ctx.client.GetBlockByNumber(callCtx, nextNumber)
	if err != nil {
		if err == rpc.ErrBlockNotFound {
			return true, nil
		}
		return false, fmt.Errorf("error fetching block %v: %w", nextNumber, err)
	}

	if checkpoint != nil && !bytes.Equal(block.ParentHash().Bytes(), checkpoint.LastBlockHash) {
		bi.logger.WithFields(logrus.Fields{
			"number":     nextNumber,
			"parent":     block.ParentHash().Hex(),
			"checkpoint": fmt.Sprintf("0x%x", checkpoint.LastBlockHash),
		}).Warn("parent hash mismatch, resolving reorg")

		ancestor, err := bi.resolver.FindCommonAncestor(callCtx, checkpoint)
		if err != nil {
			return false, err
		}
		if err := bi.resolver.ResolveReorg(ancestor); err != nil {
			return false, fmt.Errorf("error resolving reorg: %w", err)
		}
		// next IngestNext call continues from the rewound checkpoint
		return false, nil
	}

	// short-circuit if this exact block is already stored (replayed step)
	storedBlock, err := db.GetBlockByNumber(nextNumber)
	if err != nil {
		return false, err
	}
	if storedBlock != nil && bytes.Equal(storedBlock.Hash, block.Hash().Bytes()) {
		return false, bi.advanceCheckpointOnly(storedBlock)
	}

	receipts, err := bi.ctx.client.GetBlockReceipts(callCtx, block)
	if err != nil {
		return false, fmt.Errorf("error fetching receipts for block %v: %w", nextNumber, err)
	}

	writeSet, err := bi.buildWriteSet(block, receipts)
	if err != nil {
		return false, err
	}

	bi.detectContracts(ctx, writeSet)

	if bi.config.Indexer.FetchBalances {
		bi.fetchBalances(ctx, writeSet)
	}

	err = db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return bi.commitWriteSet(tx, writeSet)
	})
	if err != nil {
		return false, fmt.Errorf("error committing block %v: %w", nextNumber, err)
	}

	bi.logger.WithFields(logrus.Fields{
		"number":    writeSet.block.Number,
		"hash":      fmt.Sprintf("0x%x", writeSet.block.Hash),
		"txs":       len(writeSet.transactions),
		"transfers": len(writeSet.transfers),
	}).Info("indexed block")

	return false, nil
}

// blockWriteSet is everything one block contributes, committed atomically.
type blockWriteSet struct {
	block         *dbtypes.Block
	transactions  []*dbtypes.Transaction
	logs          []*dbtypes.TransactionLog
	transfers     []*dbtypes.TokenTransfer
	contractFlags map[string]bool
	balances      map[string][]byte
}

func (bi *BlockIngestor) buildWriteSet(block *ethtypes.Block, receipts []*ethtypes.Receipt) (*blockWriteSet, error) {
	writeSet := &blockWriteSet{
		contractFlags: map[string]bool{},
	}

	totalFees := new(big.Int)
	blockNumber := block.NumberU64()
	blockHash := block.Hash().Bytes()
	blockTime := block.Time()

	for txIndex, transaction := range block.Transactions() {
		receipt := receipts[txIndex]

		fromAddress, err := ethtypes.Sender(bi.signer, transaction)
		if err != nil {
			return nil, fmt.Errorf("error recovering sender of tx 0x%x: %w", transaction.Hash(), err)
		}

		dbTx := &dbtypes.Transaction{
			Hash:             transaction.Hash().Bytes(),
			BlockNumber:      blockNumber,
			BlockHash:        blockHash,
			BlockTimestamp:   blockTime,
			TransactionIndex: uint(txIndex),
			FromAddress:      fromAddress.Bytes(),
			Value:            bigToBytes(transaction.Value()),
			Nonce:            transaction.Nonce(),
			GasLimit:         transaction.Gas(),
			GasUsed:          receipt.GasUsed,
			InputData:        transaction.Data(),
			TxType:           transaction.Type(),
			Status:           uint8(receipt.Status),
			LogsCount:        uint(len(receipt.Logs)),
		}

		if to := transaction.To(); to != nil {
			dbTx.ToAddress = to.Bytes()
		} else if receipt.ContractAddress != (common.Address{}) {
			dbTx.ContractAddress = receipt.ContractAddress.Bytes()
			writeSet.contractFlags[string(dbTx.ContractAddress)] = true
		}

		if gasPrice := transaction.GasPrice(); gasPrice != nil && gasPrice.IsUint64() {
			price := gasPrice.Uint64()
			dbTx.GasPrice = &price
		}
		if receipt.EffectiveGasPrice != nil && receipt.EffectiveGasPrice.IsUint64() {
			price := receipt.EffectiveGasPrice.Uint64()
			dbTx.EffectiveGasPrice = &price

			fee := new(big.Int).Mul(receipt.EffectiveGasPrice, new(big.Int).SetUint64(receipt.GasUsed))
			totalFees.Add(totalFees, fee)
		}
		if transaction.Type() >= ethtypes.DynamicFeeTxType {
			if maxFee := transaction.GasFeeCap(); maxFee != nil && maxFee.IsUint64() {
				fee := maxFee.Uint64()
				dbTx.MaxFeePerGas = &fee
			}
			if maxPriority := transaction.GasTipCap(); maxPriority != nil && maxPriority.IsUint64() {
				fee := maxPriority.Uint64()
				dbTx.MaxPriorityFeePerGas = &fee
			}
		}

		if len(transaction.Data()) >= 4 {
			dbTx.MethodId = transaction.Data()[:4]
			dbTx.MethodName = LookupMethodName(dbTx.MethodId)
		}

		writeSet.transactions = append(writeSet.transactions, dbTx)

		for _, log := range receipt.Logs {
			writeSet.logs = append(writeSet.logs, convertLog(log, blockHash))
			bi.decodeTransfers(writeSet, log, blockHash, blockTime)
		}
	}

	writeSet.block = &dbtypes.Block{
		Number:           blockNumber,
		Hash:             blockHash,
		ParentHash:       block.ParentHash().Bytes(),
		Timestamp:        blockTime,
		Miner:            block.Coinbase().Bytes(),
		Size:             block.Size(),
		GasUsed:          block.GasUsed(),
		GasLimit:         block.GasLimit(),
		ExtraData:        block.Extra(),
		Difficulty:       bigToBytes(block.Difficulty()),
		TransactionCount: uint(len(writeSet.transactions)),
		TransferCount:    uint(len(writeSet.transfers)),
		TotalFees:        bigToBytes(totalFees),
	}
	if baseFee := block.BaseFee(); baseFee != nil && baseFee.IsUint64() {
		fee := baseFee.Uint64()
		writeSet.block.BaseFeePerGas = &fee
	}

	return writeSet, nil
}

func convertLog(log *ethtypes.Log, blockHash []byte) *dbtypes.TransactionLog {
	dbLog := &dbtypes.TransactionLog{
		TransactionHash: log.TxHash.Bytes(),
		LogIndex:        log.Index,
		BlockNumber:     log.BlockNumber,
		BlockHash:       blockHash,
		Address:         log.Address.Bytes(),
		Data:            log.Data,
	}

	topics := [][]byte{nil, nil, nil, nil}
	for i, topic := range log.Topics {
		if i >= 4 {
			break
		}
		topics[i] = topic.Bytes()
	}
	dbLog.Topic0 = topics[0]
	dbLog.Topic1 = topics[1]
	dbLog.Topic2 = topics[2]
	dbLog.Topic3 = topics[3]
	dbLog.EventName = LookupEventName(dbLog.Topic0)

	return dbLog
}

func (bi *BlockIngestor) decodeTransfers(writeSet *blockWriteSet, log *ethtypes.Log, blockHash []byte, blockTime uint64) {
	if !bi.config.Indexer.TrackTokens {
		return
	}

	events, known := DecodeTokenTransfers(log)
	if !known {
		return
	}
	if events == nil {
		bi.logger.WithFields(logrus.Fields{
			"tx":  log.TxHash.Hex(),
			"log": log.Index,
		}).Warn("malformed transfer event payload, skipping")
		return
	}

	for _, event := range events {
		tokenId := []byte{}
		if event.TokenId != nil {
			tokenId = bigToBytes(event.TokenId)
		}
		writeSet.transfers = append(writeSet.transfers, &dbtypes.TokenTransfer{
			TransactionHash: log.TxHash.Bytes(),
			LogIndex:        log.Index,
			BatchIndex:      event.BatchIndex,
			BlockNumber:     log.BlockNumber,
			BlockHash:       blockHash,
			BlockTimestamp:  blockTime,
			TokenAddress:    log.Address.Bytes(),
			TokenType:       event.TokenType,
			FromAddress:     event.From.Bytes(),
			ToAddress:       event.To.Bytes(),
			Value:           bigToBytes(event.Value),
			TokenId:         tokenId,
		})
	}
}

// detectContracts flags transaction recipients that carry deployed code.
// Deployments within indexed blocks are already flagged via the receipt's
// contract address, but contracts deployed before the stream's start block
// are only recognizable through eth_getCode. Only recipients not yet known
// to the addresses table are checked, so each address costs at most one code
// lookup over its lifetime. Failures only degrade the contract flag, never
// the ingest itself.
func (bi *BlockIngestor) detectContracts(ctx context.Context, writeSet *blockWriteSet) {
	seen := map[string]bool{}
	for _, transaction := range writeSet.transactions {
		address := transaction.ToAddress
		if address == nil || seen[string(address)] || writeSet.contractFlags[string(address)] {
			continue
		}
		seen[string(address)] = true

		known, err := db.GetAddress(address)
		if err != nil {
			utils.LogError(err, "could not load address for contract detection", 0)
			continue
		}
		if known != nil {
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, bi.config.ExecutionApi.CallTimeout)
		code, err := bi.ctx.client.GetCode(callCtx, common.BytesToAddress(address))
		cancel()
		if err != nil {
			utils.LogError(err, "could not fetch address code", 0)
			continue
		}
		if len(code) > 0 {
			writeSet.contractFlags[string(address)] = true
		}
	}
}

// fetchBalances loads the native balances of all addresses touched by the
// block. Failures only degrade the stored balances, never the ingest itself.
func (bi *BlockIngestor) fetchBalances(ctx context.Context, writeSet *blockWriteSet) {
	writeSet.balances = map[string][]byte{}

	seen := map[string]bool{}
	for _, transaction := range writeSet.transactions {
		for _, address := range [][]byte{transaction.FromAddress, transaction.ToAddress, transaction.ContractAddress} {
			if address == nil || seen[string(address)] {
				continue
			}
			seen[string(address)] = true

			callCtx, cancel := context.WithTimeout(ctx, bi.config.ExecutionApi.CallTimeout)
			balance, err := bi.ctx.client.GetBalance(callCtx, common.BytesToAddress(address), writeSet.block.Number)
			cancel()
			if err != nil {
				utils.LogError(err, "could not fetch address balance", 0)
				continue
			}
			writeSet.balances[string(address)] = bigToBytes(balance)
		}
	}
}

func (bi *BlockIngestor) commitWriteSet(tx *sqlx.Tx, writeSet *blockWriteSet) error {
	if err := db.InsertBlock(writeSet.block, tx); err != nil {
		return err
	}
	if err := db.InsertTransactions(writeSet.transactions, tx); err != nil {
		return err
	}
	if err := db.InsertTransactionLogs(writeSet.logs, tx); err != nil {
		return err
	}
	if err := db.InsertTokenTransfers(writeSet.transfers, tx); err != nil {
		return err
	}

	if err := bi.aggregator.ApplyBlock(tx, writeSet.block, writeSet.transactions, writeSet.transfers, writeSet.contractFlags); err != nil {
		return err
	}

	for address, balance := range writeSet.balances {
		if err := db.SetAddressBalance([]byte(address), balance, tx); err != nil {
			return err
		}
	}

	return db.SetIndexerCheckpoint(&dbtypes.IndexerCheckpoint{
		Stream:          HeadStreamName,
		LastBlockNumber: writeSet.block.Number,
		LastBlockHash:   writeSet.block.Hash,
		UpdatedAt:       uint64(time.Now().Unix()),
	}, tx)
}

func (bi *BlockIngestor) advanceCheckpointOnly(block *dbtypes.Block) error {
	return db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return db.SetIndexerCheckpoint(&dbtypes.IndexerCheckpoint{
			Stream:          HeadStreamName,
			LastBlockNumber: block.Number,
			LastBlockHash:   block.Hash,
			UpdatedAt:       uint64(time.Now().Unix()),
		}, tx)
	})
}
