package services

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coocood/freecache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/indexer/execution"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/metrics"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/rpc"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/utils"
)

// StreamStatus describes the progress of one ingestion stream.
type StreamStatus struct {
	Stream          string `json:"stream"`
	LastBlockNumber uint64 `json:"last_block_number"`
	LastBlockHash   string `json:"last_block_hash"`
	UpdatedAt       uint64 `json:"updated_at"`
	BlocksBehind    uint64 `json:"blocks_behind"`
}

// StatusInfo is the aggregated health view of the indexer.
type StatusInfo struct {
	ChainId    uint64          `json:"chain_id"`
	ChainName  string          `json:"chain_name"`
	ChainHead  uint64          `json:"chain_head"`
	Streams    []*StreamStatus `json:"streams"`
	Synced     bool            `json:"synced"`
	FatalError string          `json:"fatal_error,omitempty"`
}

// ChainService is the read-only facade over the indexed data, used by the
// API handlers. Hot entries are served from an in-process cache.
type ChainService struct {
	logger  logrus.FieldLogger
	client  *rpc.ExecutionClient
	indexer *execution.Indexer
	cache   *freecache.Cache

	headLagGauge prometheus.Gauge
	started      bool
}

var GlobalChainService *ChainService

// InitChainService is used to initialize the global chain service
func InitChainService(logger logrus.FieldLogger, client *rpc.ExecutionClient, indexer *execution.Indexer) {
	if GlobalChainService != nil {
		return
	}

	GlobalChainService = &ChainService{
		logger:  logger.WithField("service", "chain"),
		client:  client,
		indexer: indexer,
		cache:   freecache.NewCache(16 * 1024 * 1024),

		headLagGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "explorer_indexer_head_lag_blocks",
			Help: "Number of blocks the head stream is behind the chain tip",
		}),
	}

	metrics.AddPreCollectFn(func() {
		status, err := GlobalChainService.GetStatus(context.Background())
		if err != nil || len(status.Streams) == 0 {
			return
		}
		GlobalChainService.headLagGauge.Set(float64(status.Streams[0].BlocksBehind))
	})
}

func (cs *ChainService) StartService() error {
	if cs.started {
		return nil
	}
	cs.started = true
	return cs.indexer.Start()
}

func (cs *ChainService) StopService() {
	cs.indexer.Stop()
}

func (cs *ChainService) GetBlockByNumber(number uint64) (*dbtypes.Block, error) {
	return db.GetBlockByNumber(number)
}

func (cs *ChainService) GetBlockByHash(hash []byte) (*dbtypes.Block, error) {
	return db.GetBlockByHash(hash)
}

func (cs *ChainService) GetBlocks(offset uint64, limit uint32, filter *dbtypes.BlockFilter) ([]*dbtypes.Block, error) {
	return db.GetBlocks(offset, limit, filter)
}

func (cs *ChainService) GetTransactionByHash(hash []byte) (*dbtypes.Transaction, error) {
	return db.GetTransactionByHash(hash)
}

func (cs *ChainService) GetTransactionsByBlockNumber(number uint64) ([]*dbtypes.Transaction, error) {
	return db.GetTransactionsByBlockNumber(number)
}

func (cs *ChainService) GetTransactionLogs(txHash []byte) ([]*dbtypes.TransactionLog, error) {
	return db.GetTransactionLogs(txHash)
}

func (cs *ChainService) GetInternalTransactions(txHash []byte) ([]*dbtypes.InternalTransaction, error) {
	return db.GetInternalTransactions(txHash)
}

func (cs *ChainService) GetAddress(address []byte) (*dbtypes.Address, error) {
	return db.GetAddress(address)
}

func (cs *ChainService) GetTransactionsByAddress(address []byte, offset uint64, limit uint32) ([]*dbtypes.Transaction, uint64, error) {
	return db.GetTransactionsByAddress(address, offset, limit)
}

func (cs *ChainService) GetTokenTransfersByTransaction(txHash []byte) ([]*dbtypes.TokenTransfer, error) {
	return db.GetTokenTransfersByTransaction(txHash)
}

func (cs *ChainService) GetTokenTransfersByAddress(address []byte, offset uint64, limit uint32) ([]*dbtypes.TokenTransfer, uint64, error) {
	return db.GetTokenTransfersByAddress(address, offset, limit)
}

func (cs *ChainService) GetToken(address []byte) (*dbtypes.Token, error) {
	return db.GetToken(address)
}

func (cs *ChainService) GetTokens(offset uint64, limit uint32) ([]*dbtypes.Token, error) {
	return db.GetTokens(offset, limit)
}

func (cs *ChainService) GetTokenTransfersByToken(tokenAddress []byte, offset uint64, limit uint32) ([]*dbtypes.TokenTransfer, uint64, error) {
	return db.GetTokenTransfersByToken(tokenAddress, offset, limit)
}

func (cs *ChainService) GetTokenHolders(tokenAddress []byte, offset uint64, limit uint32) ([]*dbtypes.TokenHolder, uint64, error) {
	return db.GetTokenHolders(tokenAddress, offset, limit)
}

func (cs *ChainService) GetDailyStats(fromDay string, toDay string) ([]*dbtypes.DailyStats, error) {
	return db.GetDailyStats(fromDay, toDay)
}

// GetNetworkStats serves the network stats singleton through a short lived
// cache entry since every index page hits it.
func (cs *ChainService) GetNetworkStats() (*dbtypes.NetworkStats, error) {
	cacheKey := []byte("network_stats")
	if cached, err := cs.cache.Get(cacheKey); err == nil {
		stats := &dbtypes.NetworkStats{}
		if err := json.Unmarshal(cached, stats); err == nil {
			return stats, nil
		}
	}

	stats, err := db.GetNetworkStats()
	if err != nil {
		return nil, err
	}
	if stats != nil {
		if encoded, err := json.Marshal(stats); err == nil {
			cs.cache.Set(cacheKey, encoded, 4)
		}
	}
	return stats, nil
}

// GetStatus reports per-stream checkpoints and their distance to the chain
// tip. The tip is fetched from the client with a short cache to keep the
// status endpoint cheap.
func (cs *ChainService) GetStatus(ctx context.Context) (*StatusInfo, error) {
	checkpoints, err := db.GetIndexerCheckpoints()
	if err != nil {
		return nil, fmt.Errorf("error loading checkpoints: %w", err)
	}

	chainHead := cs.getCachedChainHead(ctx)

	status := &StatusInfo{
		ChainName: utils.Config.Chain.DisplayName,
		ChainHead: chainHead,
		Streams:   []*StreamStatus{},
	}
	if chainId := cs.indexer.GetChainId(); chainId != nil {
		status.ChainId = chainId.Uint64()
	}
	if fatalErr := cs.indexer.GetFatalError(); fatalErr != nil {
		status.FatalError = fatalErr.Error()
	}

	synced := len(checkpoints) > 0
	for _, checkpoint := range checkpoints {
		streamStatus := &StreamStatus{
			Stream:          checkpoint.Stream,
			LastBlockNumber: checkpoint.LastBlockNumber,
			LastBlockHash:   fmt.Sprintf("0x%x", checkpoint.LastBlockHash),
			UpdatedAt:       checkpoint.UpdatedAt,
		}
		if chainHead > checkpoint.LastBlockNumber {
			streamStatus.BlocksBehind = chainHead - checkpoint.LastBlockNumber
		}
		if checkpoint.Stream == execution.HeadStreamName && streamStatus.BlocksBehind > 1 {
			synced = false
		}
		status.Streams = append(status.Streams, streamStatus)
	}
	status.Synced = synced && status.FatalError == ""

	return status, nil
}

func (cs *ChainService) getCachedChainHead(ctx context.Context) uint64 {
	cacheKey := []byte("chain_head")
	if cached, err := cs.cache.Get(cacheKey); err == nil && len(cached) == 8 {
		return binary.BigEndian.Uint64(cached)
	}

	callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	head, err := cs.client.GetLatestBlockNumber(callCtx)
	if err != nil {
		cs.logger.WithError(err).Debug("could not fetch chain head")
		return 0
	}

	encoded := make([]byte, 8)
	binary.BigEndian.PutUint64(encoded, head)
	cs.cache.Set(cacheKey, encoded, 4)

	return head
}
