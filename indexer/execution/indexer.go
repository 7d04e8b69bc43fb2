package execution

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/types"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/utils"
)

// ErrChainIdMismatch is returned when the connected node reports a different
// chain id than the configured or previously indexed one. Continuing would
// mix data of two chains in one database.
var ErrChainIdMismatch = errors.New("chain id mismatch")

const chainIdStateKey = "chain_id"

// Indexer wires the ingestion streams together and supervises them.
type Indexer struct {
	logger logrus.FieldLogger
	config *types.Config
	ctx    *IndexerCtx

	aggregator      *Aggregator
	resolver        *ReorgResolver
	ingestor        *BlockIngestor
	traceIndexer    *TraceIndexer
	metadataUpdater *TokenMetadataUpdater

	streams []*checkpointStream
	chainId *big.Int

	runCtx    context.Context
	runCancel context.CancelFunc

	fatalMutex sync.Mutex
	fatalErr   error
}

func NewIndexer(logger logrus.FieldLogger, config *types.Config, client ExecutionClient) *Indexer {
	runCtx, runCancel := context.WithCancel(context.Background())
	return &Indexer{
		logger:    logger.WithField("module", "indexer"),
		config:    config,
		ctx:       NewIndexerCtx(logger, client),
		runCtx:    runCtx,
		runCancel: runCancel,
	}
}

// Start verifies the chain identity, builds all stream components and
// launches the ingestion loops.
func (idx *Indexer) Start() error {
	initCtx, cancel := context.WithTimeout(idx.runCtx, idx.config.ExecutionApi.CallTimeout)
	defer cancel()

	if err := idx.ctx.client.Initialize(initCtx); err != nil {
		return fmt.Errorf("could not initialize execution client: %w", err)
	}

	chainId, err := idx.verifyChainId(initCtx)
	if err != nil {
		return err
	}
	idx.chainId = chainId

	idx.aggregator = NewAggregator(idx.logger)
	idx.resolver = NewReorgResolver(idx.ctx, idx.aggregator, idx.config.Indexer.StartBlock, idx.config.Indexer.MaxReorgDepth)
	idx.ingestor = NewBlockIngestor(idx.ctx, idx.config, idx.aggregator, idx.resolver, chainId)

	headStream := newCheckpointStream(
		HeadStreamName, idx.logger, idx.ingestor.IngestNext,
		idx.config.Indexer.HeadPollInterval, idx.config.Indexer.RetryBaseDelay, idx.config.Indexer.RetryMaxDelay,
		idx.onStreamFatal,
	)
	idx.streams = append(idx.streams, headStream)
	headStream.start(idx.runCtx)

	if idx.config.Indexer.TrackInternalTxs {
		idx.traceIndexer = NewTraceIndexer(idx.ctx, idx.config)
		traceStream := newCheckpointStream(
			TraceStreamName, idx.logger, idx.traceIndexer.IndexNext,
			idx.config.Indexer.HeadPollInterval, idx.config.Indexer.RetryBaseDelay, idx.config.Indexer.RetryMaxDelay,
			idx.onStreamFatal,
		)
		idx.streams = append(idx.streams, traceStream)
		traceStream.start(idx.runCtx)
	}

	if idx.config.Indexer.TrackTokens {
		idx.metadataUpdater = NewTokenMetadataUpdater(idx.ctx, idx.config, idx.aggregator)
		idx.metadataUpdater.Start(idx.runCtx)
	}

	go idx.runWatchdogLoop()

	idx.logger.WithFields(logrus.Fields{
		"chainId":    chainId.String(),
		"startBlock": idx.config.Indexer.StartBlock,
		"streams":    len(idx.streams),
	}).Info("indexer started")
	return nil
}

func (idx *Indexer) Stop() {
	idx.runCancel()
}

// GetChainId returns the verified chain id. Only valid after Start.
func (idx *Indexer) GetChainId() *big.Int {
	return idx.chainId
}

// GetFatalError returns the error that stopped the indexer, if any.
func (idx *Indexer) GetFatalError() error {
	idx.fatalMutex.Lock()
	defer idx.fatalMutex.Unlock()
	return idx.fatalErr
}

// verifyChainId compares the node's chain id against the configured one and
// against the id pinned in the database on first run.
func (idx *Indexer) verifyChainId(ctx context.Context) (*big.Int, error) {
	chainId, err := idx.ctx.client.GetChainId(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not fetch chain id: %w", err)
	}

	if idx.config.Chain.ChainId != 0 && chainId.Uint64() != idx.config.Chain.ChainId {
		return nil, fmt.Errorf("%w: node reports %v, config expects %v", ErrChainIdMismatch, chainId, idx.config.Chain.ChainId)
	}

	pinnedChainId := ""
	_, err = db.GetExplorerState(chainIdStateKey, &pinnedChainId)
	if err == nil && pinnedChainId != "" {
		if pinnedChainId != chainId.String() {
			return nil, fmt.Errorf("%w: node reports %v, database was indexed from chain %v", ErrChainIdMismatch, chainId, pinnedChainId)
		}
		return chainId, nil
	}

	err = db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return db.SetExplorerState(chainIdStateKey, chainId.String(), tx)
	})
	if err != nil {
		return nil, fmt.Errorf("could not pin chain id: %w", err)
	}
	return chainId, nil
}

func (idx *Indexer) onStreamFatal(streamName string, err error) {
	idx.fatalMutex.Lock()
	if idx.fatalErr == nil {
		idx.fatalErr = err
	}
	idx.fatalMutex.Unlock()

	idx.logger.WithField("stream", streamName).WithError(err).Error("stopping indexer after fatal stream error")
	idx.runCancel()
}

// runWatchdogLoop restarts streams that made no progress within the
// configured timeout.
func (idx *Indexer) runWatchdogLoop() {
	defer utils.HandleSubroutinePanic("execution.watchdog", idx.runWatchdogLoop)

	if idx.config.Indexer.WatchdogTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(idx.config.Indexer.WatchdogTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-idx.runCtx.Done():
			return
		case <-ticker.C:
		}

		for _, stream := range idx.streams {
			if stream.isStalled(idx.config.Indexer.WatchdogTimeout) {
				idx.logger.WithField("stream", stream.name).Warn("stream stalled, restarting")
				stream.restart()
			}
		}
	}
}
