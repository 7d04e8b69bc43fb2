package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

var logger = logrus.StandardLogger().WithField("module", "rpc")

// ErrBlockNotFound is returned when the requested block height exceeds the
// chain's current tip. This is the expected "caught up" signal, not a failure.
var ErrBlockNotFound = errors.New("block not found")

type ExecutionClient struct {
	name      string
	endpoint  string
	headers   map[string]string
	rpcClient *rpc.Client
	ethClient *ethclient.Client
}

// NewExecutionClient is used to create a new execution client
func NewExecutionClient(name, endpoint string, headers map[string]string) *ExecutionClient {
	return &ExecutionClient{
		name:     name,
		endpoint: endpoint,
		headers:  headers,
	}
}

func (ec *ExecutionClient) Initialize(ctx context.Context) error {
	if ec.ethClient != nil {
		return nil
	}

	rpcClient, err := rpc.DialContext(ctx, ec.endpoint)
	if err != nil {
		return err
	}

	for hKey, hVal := range ec.headers {
		rpcClient.SetHeader(hKey, hVal)
	}

	ec.rpcClient = rpcClient
	ec.ethClient = ethclient.NewClient(rpcClient)

	return nil
}

func (ec *ExecutionClient) GetName() string {
	return ec.name
}

func (ec *ExecutionClient) GetEthClient() *ethclient.Client {
	return ec.ethClient
}

func (ec *ExecutionClient) GetClientVersion(ctx context.Context) (string, error) {
	var result string
	err := ec.rpcClient.CallContext(ctx, &result, "web3_clientVersion")

	return result, err
}

func (ec *ExecutionClient) GetChainId(ctx context.Context) (*big.Int, error) {
	return ec.ethClient.ChainID(ctx)
}

func (ec *ExecutionClient) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	return ec.ethClient.BlockNumber(ctx)
}

// GetBlockByNumber fetches a block with full transaction objects. Returns
// ErrBlockNotFound if the height is above the current tip.
func (ec *ExecutionClient) GetBlockByNumber(ctx context.Context, number uint64) (*ethtypes.Block, error) {
	block, err := ec.ethClient.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	return block, nil
}

func (ec *ExecutionClient) GetBlockByHash(ctx context.Context, hash common.Hash) (*ethtypes.Block, error) {
	block, err := ec.ethClient.BlockByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}
	return block, nil
}

// GetBlockHashByNumber fetches only the hash of the block at the given
// height, used by the reorg resolver's backward walk.
func (ec *ExecutionClient) GetBlockHashByNumber(ctx context.Context, number uint64) (*common.Hash, error) {
	var head *ethtypes.Header
	err := ec.rpcClient.CallContext(ctx, &head, "eth_getBlockByNumber", hexutil.EncodeUint64(number), false)
	if err != nil {
		return nil, err
	}
	if head == nil {
		return nil, ErrBlockNotFound
	}
	hash := head.Hash()
	return &hash, nil
}

// GetBlockReceipts fetches all receipts of a block. It tries the batched
// eth_getBlockReceipts first and falls back to per-transaction requests for
// nodes that do not support it.
func (ec *ExecutionClient) GetBlockReceipts(ctx context.Context, block *ethtypes.Block) ([]*ethtypes.Receipt, error) {
	var receipts []*ethtypes.Receipt
	err := ec.rpcClient.CallContext(ctx, &receipts, "eth_getBlockReceipts", block.Hash().Hex())
	if err == nil && len(receipts) == len(block.Transactions()) {
		return receipts, nil
	}

	receipts = make([]*ethtypes.Receipt, len(block.Transactions()))
	for i, tx := range block.Transactions() {
		receipt, err := ec.ethClient.TransactionReceipt(ctx, tx.Hash())
		if err != nil {
			return nil, fmt.Errorf("could not load receipt for tx 0x%x: %w", tx.Hash(), err)
		}
		receipts[i] = receipt
	}
	return receipts, nil
}

// GetLogs fetches logs for a block range via eth_getLogs.
func (ec *ExecutionClient) GetLogs(ctx context.Context, fromBlock uint64, toBlock uint64, addresses []common.Address) ([]ethtypes.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	return ec.ethClient.FilterLogs(ctx, query)
}

func (ec *ExecutionClient) GetBalance(ctx context.Context, address common.Address, blockNumber uint64) (*big.Int, error) {
	return ec.ethClient.BalanceAt(ctx, address, new(big.Int).SetUint64(blockNumber))
}

func (ec *ExecutionClient) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	return ec.ethClient.CodeAt(ctx, address, nil)
}

func (ec *ExecutionClient) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return ec.ethClient.CallContract(ctx, msg, nil)
}

// CallFrame is one frame of a callTracer result
type CallFrame struct {
	Type    string          `json:"type"`
	From    common.Address  `json:"from"`
	To      *common.Address `json:"to,omitempty"`
	Value   *hexutil.Big    `json:"value,omitempty"`
	Gas     hexutil.Uint64  `json:"gas"`
	GasUsed hexutil.Uint64  `json:"gasUsed"`
	Input   hexutil.Bytes   `json:"input"`
	Error   string          `json:"error,omitempty"`
	Calls   []CallFrame     `json:"calls,omitempty"`
}

type blockTraceResult struct {
	TxHash common.Hash `json:"txHash"`
	Result CallFrame   `json:"result"`
	Error  string      `json:"error,omitempty"`
}

// TraceBlockByNumber fetches the call traces of all transactions in a block
// via debug_traceBlockByNumber with the callTracer.
func (ec *ExecutionClient) TraceBlockByNumber(ctx context.Context, number uint64) (map[common.Hash]*CallFrame, error) {
	var results []blockTraceResult
	err := ec.rpcClient.CallContext(ctx, &results, "debug_traceBlockByNumber", hexutil.EncodeUint64(number), map[string]interface{}{
		"tracer": "callTracer",
	})
	if err != nil {
		return nil, err
	}

	traces := make(map[common.Hash]*CallFrame, len(results))
	for i := range results {
		if results[i].Error != "" {
			logger.WithField("tx", results[i].TxHash.Hex()).Warnf("trace error: %v", results[i].Error)
			continue
		}
		result := results[i].Result
		traces[results[i].TxHash] = &result
	}
	return traces, nil
}

// IsUnsupportedMethod returns true if the node rejected the RPC method itself
// (tracing not enabled / not available).
func IsUnsupportedMethod(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		// -32601 is the standard "method not found" JSON-RPC error code
		return rpcErr.ErrorCode() == -32601
	}
	return false
}

// IsRetryable classifies transient RPC failures: timeouts, connection
// errors and provider rate limits (HTTP 429).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
