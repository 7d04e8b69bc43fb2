package execution

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/rpc"
)

// ExecutionClient is the node access surface the indexer depends on,
// implemented by rpc.ExecutionClient.
type ExecutionClient interface {
	Initialize(ctx context.Context) error
	GetChainId(ctx context.Context) (*big.Int, error)
	GetLatestBlockNumber(ctx context.Context) (uint64, error)
	GetBlockByNumber(ctx context.Context, number uint64) (*ethtypes.Block, error)
	GetBlockHashByNumber(ctx context.Context, number uint64) (*common.Hash, error)
	GetBlockReceipts(ctx context.Context, block *ethtypes.Block) ([]*ethtypes.Receipt, error)
	GetLogs(ctx context.Context, fromBlock uint64, toBlock uint64, addresses []common.Address) ([]ethtypes.Log, error)
	TraceBlockByNumber(ctx context.Context, number uint64) (map[common.Hash]*rpc.CallFrame, error)
	GetBalance(ctx context.Context, address common.Address, blockNumber uint64) (*big.Int, error)
	GetCode(ctx context.Context, address common.Address) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// IndexerCtx bundles the shared dependencies of all sub-indexers and streams.
type IndexerCtx struct {
	logger logrus.FieldLogger
	client ExecutionClient
}

func NewIndexerCtx(logger logrus.FieldLogger, client ExecutionClient) *IndexerCtx {
	return &IndexerCtx{
		logger: logger,
		client: client,
	}
}

func (ictx *IndexerCtx) GetClient() ExecutionClient {
	return ictx.client
}
