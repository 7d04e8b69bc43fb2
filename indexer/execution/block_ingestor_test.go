package execution

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/rpc"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/types"
)

var testChainId = big.NewInt(1337)

// mockClient serves a static in-memory chain, swappable between tests to
// simulate reorgs.
type mockClient struct {
	blocks   map[uint64]*ethtypes.Block
	receipts map[common.Hash][]*ethtypes.Receipt
	traces   map[uint64]map[common.Hash]*rpc.CallFrame
	code     map[common.Address][]byte
	logs     []ethtypes.Log
	traceErr error
	head     uint64
}

func newMockClient() *mockClient {
	return &mockClient{
		blocks:   map[uint64]*ethtypes.Block{},
		receipts: map[common.Hash][]*ethtypes.Receipt{},
		traces:   map[uint64]map[common.Hash]*rpc.CallFrame{},
		code:     map[common.Address][]byte{},
	}
}

func (mc *mockClient) Initialize(ctx context.Context) error {
	return nil
}

func (mc *mockClient) GetChainId(ctx context.Context) (*big.Int, error) {
	return testChainId, nil
}

func (mc *mockClient) GetLatestBlockNumber(ctx context.Context) (uint64, error) {
	return mc.head, nil
}

func (mc *mockClient) GetBlockByNumber(ctx context.Context, number uint64) (*ethtypes.Block, error) {
	block := mc.blocks[number]
	if block == nil || number > mc.head {
		return nil, rpc.ErrBlockNotFound
	}
	return block, nil
}

func (mc *mockClient) GetBlockHashByNumber(ctx context.Context, number uint64) (*common.Hash, error) {
	block := mc.blocks[number]
	if block == nil || number > mc.head {
		return nil, rpc.ErrBlockNotFound
	}
	hash := block.Hash()
	return &hash, nil
}

func (mc *mockClient) GetBlockReceipts(ctx context.Context, block *ethtypes.Block) ([]*ethtypes.Receipt, error) {
	return mc.receipts[block.Hash()], nil
}

func (mc *mockClient) TraceBlockByNumber(ctx context.Context, number uint64) (map[common.Hash]*rpc.CallFrame, error) {
	if mc.traceErr != nil {
		return nil, mc.traceErr
	}
	return mc.traces[number], nil
}

func (mc *mockClient) GetLogs(ctx context.Context, fromBlock uint64, toBlock uint64, addresses []common.Address) ([]ethtypes.Log, error) {
	logs := []ethtypes.Log{}
	for _, log := range mc.logs {
		if log.BlockNumber < fromBlock || log.BlockNumber > toBlock {
			continue
		}
		for _, address := range addresses {
			if log.Address == address {
				logs = append(logs, log)
				break
			}
		}
	}
	return logs, nil
}

func (mc *mockClient) GetBalance(ctx context.Context, address common.Address, blockNumber uint64) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (mc *mockClient) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	return mc.code[address], nil
}

func (mc *mockClient) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return nil, errors.New("execution reverted")
}

func (mc *mockClient) addChainSegment(blocks []*ethtypes.Block, receipts map[common.Hash][]*ethtypes.Receipt) {
	for _, block := range blocks {
		mc.blocks[block.NumberU64()] = block
		mc.receipts[block.Hash()] = receipts[block.Hash()]
		if block.NumberU64() > mc.head {
			mc.head = block.NumberU64()
		}
	}
}

var transferTopic = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

func testSenderKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	require.NoError(t, err)
	return key
}

// buildChainSegment builds linked blocks starting above parent, one signed
// transaction each. extra makes the hashes of competing forks differ.
func buildChainSegment(t *testing.T, parentHash common.Hash, fromNumber uint64, count int, extra byte, withTransfer bool) ([]*ethtypes.Block, map[common.Hash][]*ethtypes.Receipt) {
	t.Helper()

	key := testSenderKey(t)
	signer := ethtypes.LatestSignerForChainID(testChainId)
	recipient := common.BytesToAddress(testAddr(0x42))
	tokenAddress := common.BytesToAddress(testAddr(0x99))

	blocks := []*ethtypes.Block{}
	receipts := map[common.Hash][]*ethtypes.Receipt{}

	for i := 0; i < count; i++ {
		number := fromNumber + uint64(i)

		transaction, err := ethtypes.SignNewTx(key, signer, &ethtypes.LegacyTx{
			Nonce:    number,
			To:       &recipient,
			Value:    big.NewInt(1000000),
			Gas:      21000,
			GasPrice: big.NewInt(1000000000),
		})
		require.NoError(t, err)

		header := &ethtypes.Header{
			Number:     new(big.Int).SetUint64(number),
			ParentHash: parentHash,
			Time:       1700000000 + number*12,
			Coinbase:   common.BytesToAddress(testAddr(0xff)),
			GasLimit:   30000000,
			GasUsed:    21000,
			Difficulty: big.NewInt(0),
			Extra:      []byte{extra},
		}
		block := ethtypes.NewBlock(header, &ethtypes.Body{Transactions: []*ethtypes.Transaction{transaction}}, nil, trie.NewStackTrie(nil))

		receipt := &ethtypes.Receipt{
			Status:            ethtypes.ReceiptStatusSuccessful,
			GasUsed:           21000,
			EffectiveGasPrice: big.NewInt(1000000000),
			Logs:              []*ethtypes.Log{},
		}
		if withTransfer {
			from, err := ethtypes.Sender(signer, transaction)
			require.NoError(t, err)
			receipt.Logs = append(receipt.Logs, &ethtypes.Log{
				Address:     tokenAddress,
				Topics:      []common.Hash{transferTopic, addressTopic(common.Address{}), addressTopic(from)},
				Data:        uintWord(big.NewInt(1000)),
				BlockNumber: number,
				TxHash:      transaction.Hash(),
				Index:       0,
			})
		}
		receipts[block.Hash()] = []*ethtypes.Receipt{receipt}

		blocks = append(blocks, block)
		parentHash = block.Hash()
	}

	return blocks, receipts
}

func newTestIngestor(t *testing.T, client *mockClient) (*BlockIngestor, *ReorgResolver) {
	t.Helper()

	cfg := &types.Config{}
	cfg.Indexer.StartBlock = 1
	cfg.Indexer.MaxReorgDepth = 10
	cfg.Indexer.TrackTokens = true
	cfg.ExecutionApi.CallTimeout = 5 * time.Second

	logger := logrus.StandardLogger()
	ictx := NewIndexerCtx(logger, client)
	aggregator := NewAggregator(logger)
	resolver := NewReorgResolver(ictx, aggregator, cfg.Indexer.StartBlock, cfg.Indexer.MaxReorgDepth)
	ingestor := NewBlockIngestor(ictx, cfg, aggregator, resolver, testChainId)
	return ingestor, resolver
}

func ingestUntilCaughtUp(t *testing.T, ingestor *BlockIngestor) {
	t.Helper()
	for i := 0; i < 100; i++ {
		caughtUp, err := ingestor.IngestNext(context.Background())
		require.NoError(t, err)
		if caughtUp {
			return
		}
	}
	t.Fatal("ingestor did not catch up")
}

func TestBlockIngestorIngest(t *testing.T) {
	setupTestDb(t)

	client := newMockClient()
	blocks, receipts := buildChainSegment(t, common.Hash{}, 1, 3, 0x00, true)
	client.addChainSegment(blocks, receipts)

	ingestor, _ := newTestIngestor(t, client)
	ingestUntilCaughtUp(t, ingestor)

	checkpoint, err := db.GetIndexerCheckpoint(HeadStreamName)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.Equal(t, uint64(3), checkpoint.LastBlockNumber)
	assert.Equal(t, blocks[2].Hash().Bytes(), checkpoint.LastBlockHash)

	storedBlock, err := db.GetBlockByNumber(2)
	require.NoError(t, err)
	require.NotNil(t, storedBlock)
	assert.Equal(t, blocks[1].Hash().Bytes(), storedBlock.Hash)
	assert.Equal(t, blocks[0].Hash().Bytes(), storedBlock.ParentHash)
	assert.Equal(t, uint(1), storedBlock.TransactionCount)

	transactions, err := db.GetTransactionsByBlockNumber(2)
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, dbtypes.TxStatusSuccess, transactions[0].Status)
	assert.Equal(t, uint64(21000), transactions[0].GasUsed)

	sender, err := db.GetAddress(transactions[0].FromAddress)
	require.NoError(t, err)
	require.NotNil(t, sender)
	assert.Equal(t, uint64(3), sender.SentTxCount)

	networkStats, err := db.GetNetworkStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), networkStats.TotalBlocks)
	assert.Equal(t, uint64(3), networkStats.TotalTransactions)
	assert.Equal(t, uint64(3), networkStats.TotalTransfers)

	// each block mints to the sender, one token with one holder
	token, err := db.GetToken(testAddr(0x99))
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, dbtypes.TokenTypeERC20, token.TokenType)
	assert.Equal(t, uint64(3), token.TransferCount)
	assert.Equal(t, uint64(1), token.HolderCount)

	holders, _, err := db.GetTokenHolders(testAddr(0x99), 0, 10)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, big.NewInt(3000).Bytes(), holders[0].Balance)
}

func TestBlockIngestorDetectsExistingContract(t *testing.T) {
	setupTestDb(t)

	client := newMockClient()
	blocks, receipts := buildChainSegment(t, common.Hash{}, 1, 2, 0x00, false)
	client.addChainSegment(blocks, receipts)

	// the recipient was deployed before the indexed range, only eth_getCode
	// can reveal it is a contract
	client.code[common.BytesToAddress(testAddr(0x42))] = []byte{0x60, 0x80, 0x60, 0x40}

	ingestor, _ := newTestIngestor(t, client)
	ingestUntilCaughtUp(t, ingestor)

	recipient, err := db.GetAddress(testAddr(0x42))
	require.NoError(t, err)
	require.NotNil(t, recipient)
	assert.True(t, recipient.IsContract)

	sender, err := db.GetAddress(crypto.PubkeyToAddress(testSenderKey(t).PublicKey).Bytes())
	require.NoError(t, err)
	require.NotNil(t, sender)
	assert.False(t, sender.IsContract)
}

func TestBlockIngestorReplayedStep(t *testing.T) {
	setupTestDb(t)

	client := newMockClient()
	blocks, receipts := buildChainSegment(t, common.Hash{}, 1, 3, 0x00, false)
	client.addChainSegment(blocks, receipts)

	ingestor, _ := newTestIngestor(t, client)
	ingestUntilCaughtUp(t, ingestor)

	statsBefore, err := db.GetNetworkStats()
	require.NoError(t, err)

	// rewind the checkpoint below the stored blocks, replaying must only
	// advance the checkpoint without double counting
	err = db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return db.SetIndexerCheckpoint(&dbtypes.IndexerCheckpoint{
			Stream:          HeadStreamName,
			LastBlockNumber: 1,
			LastBlockHash:   blocks[0].Hash().Bytes(),
		}, tx)
	})
	require.NoError(t, err)

	ingestUntilCaughtUp(t, ingestor)

	checkpoint, err := db.GetIndexerCheckpoint(HeadStreamName)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), checkpoint.LastBlockNumber)

	statsAfter, err := db.GetNetworkStats()
	require.NoError(t, err)
	assert.Equal(t, statsBefore.TotalBlocks, statsAfter.TotalBlocks)
	assert.Equal(t, statsBefore.TotalTransactions, statsAfter.TotalTransactions)
}

func TestBlockIngestorReorg(t *testing.T) {
	setupTestDb(t)

	client := newMockClient()
	commonBlocks, commonReceipts := buildChainSegment(t, common.Hash{}, 1, 3, 0x00, false)
	forkPoint := commonBlocks[2].Hash()

	chainA, receiptsA := buildChainSegment(t, forkPoint, 4, 2, 0xaa, false)
	chainB, receiptsB := buildChainSegment(t, forkPoint, 4, 3, 0xbb, true)

	client.addChainSegment(commonBlocks, commonReceipts)
	client.addChainSegment(chainA, receiptsA)

	ingestor, _ := newTestIngestor(t, client)
	ingestUntilCaughtUp(t, ingestor)

	checkpoint, err := db.GetIndexerCheckpoint(HeadStreamName)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), checkpoint.LastBlockNumber)
	assert.Equal(t, chainA[1].Hash().Bytes(), checkpoint.LastBlockHash)

	// the node switches to the longer fork
	client.addChainSegment(chainB, receiptsB)

	ingestUntilCaughtUp(t, ingestor)

	checkpoint, err = db.GetIndexerCheckpoint(HeadStreamName)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), checkpoint.LastBlockNumber)
	assert.Equal(t, chainB[2].Hash().Bytes(), checkpoint.LastBlockHash)

	storedBlock, err := db.GetBlockByNumber(4)
	require.NoError(t, err)
	require.NotNil(t, storedBlock)
	assert.Equal(t, chainB[0].Hash().Bytes(), storedBlock.Hash)

	networkStats, err := db.GetNetworkStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(6), networkStats.TotalBlocks)
	assert.Equal(t, uint64(6), networkStats.TotalTransactions)
	assert.Equal(t, uint64(3), networkStats.TotalTransfers)

	transactions, err := db.GetTransactionsAboveHeight(3)
	require.NoError(t, err)
	assert.Len(t, transactions, 3)

	sender, err := db.GetAddress(transactions[0].FromAddress)
	require.NoError(t, err)
	require.NotNil(t, sender)
	assert.Equal(t, uint64(6), sender.SentTxCount)
	assert.Equal(t, uint64(6), sender.LastSeenBlock)
}

func TestReorgTooDeep(t *testing.T) {
	setupTestDb(t)

	client := newMockClient()
	commonBlocks, commonReceipts := buildChainSegment(t, common.Hash{}, 1, 1, 0x00, false)
	forkPoint := commonBlocks[0].Hash()

	chainA, receiptsA := buildChainSegment(t, forkPoint, 2, 4, 0xaa, false)
	chainB, receiptsB := buildChainSegment(t, forkPoint, 2, 5, 0xbb, false)

	client.addChainSegment(commonBlocks, commonReceipts)
	client.addChainSegment(chainA, receiptsA)

	ingestor, resolver := newTestIngestor(t, client)
	resolver.maxDepth = 2
	ingestUntilCaughtUp(t, ingestor)

	// the fork point is deeper than the allowed rollback depth
	client.addChainSegment(chainB, receiptsB)

	checkpoint, err := db.GetIndexerCheckpoint(HeadStreamName)
	require.NoError(t, err)

	_, err = resolver.FindCommonAncestor(context.Background(), checkpoint)
	require.ErrorIs(t, err, ErrReorgTooDeep)

	_, err = ingestor.IngestNext(context.Background())
	require.ErrorIs(t, err, ErrReorgTooDeep)
}
