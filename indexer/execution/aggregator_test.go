package execution

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/db"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/types"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/utils"
)

func setupTestDb(t *testing.T) {
	t.Helper()

	cfg := &types.Config{}
	cfg.Database.Engine = "sqlite"
	cfg.Database.Sqlite.File = filepath.Join(t.TempDir(), "test.sqlite")
	utils.Config = cfg

	db.MustInitDB()
	require.NoError(t, db.ApplyEmbeddedDbSchema(-2))
	t.Cleanup(db.MustCloseDB)
}

func testAddr(suffix byte) []byte {
	addr := make([]byte, 20)
	addr[19] = suffix
	return addr
}

func aggTestBlock(number uint64, txCount uint, transferCount uint) *dbtypes.Block {
	hash := make([]byte, 32)
	hash[0] = byte(number)

	return &dbtypes.Block{
		Number:           number,
		Hash:             hash,
		ParentHash:       make([]byte, 32),
		Timestamp:        1700000000 + number*12,
		Miner:            testAddr(0xff),
		GasUsed:          21000 * uint64(txCount),
		GasLimit:         30000000,
		TransactionCount: txCount,
		TransferCount:    transferCount,
		TotalFees:        big.NewInt(int64(txCount) * 42000).Bytes(),
	}
}

func aggTestTx(block *dbtypes.Block, index uint, from []byte, to []byte) *dbtypes.Transaction {
	hash := make([]byte, 32)
	hash[0] = byte(block.Number)
	hash[1] = byte(index)

	return &dbtypes.Transaction{
		Hash:             hash,
		BlockNumber:      block.Number,
		BlockHash:        block.Hash,
		BlockTimestamp:   block.Timestamp,
		TransactionIndex: index,
		FromAddress:      from,
		ToAddress:        to,
		Value:            []byte{0},
		Status:           dbtypes.TxStatusSuccess,
	}
}

func aggTestTransfer(block *dbtypes.Block, logIndex uint, token []byte, from []byte, to []byte, value int64) *dbtypes.TokenTransfer {
	hash := make([]byte, 32)
	hash[0] = byte(block.Number)

	return &dbtypes.TokenTransfer{
		TransactionHash: hash,
		LogIndex:        logIndex,
		BlockNumber:     block.Number,
		BlockHash:       block.Hash,
		BlockTimestamp:  block.Timestamp,
		TokenAddress:    token,
		TokenType:       dbtypes.TokenTypeERC20,
		FromAddress:     from,
		ToAddress:       to,
		Value:           big.NewInt(value).Bytes(),
		TokenId:         []byte{},
	}
}

func TestAggregatorApplyRevertSymmetry(t *testing.T) {
	setupTestDb(t)
	agg := NewAggregator(logrus.StandardLogger())

	addrA := testAddr(0x01)
	addrB := testAddr(0x02)
	addrC := testAddr(0x03)
	token := testAddr(0x10)

	ancestor := aggTestBlock(10, 0, 0)
	block := aggTestBlock(11, 2, 1)
	transactions := []*dbtypes.Transaction{
		aggTestTx(block, 0, addrA, addrB),
		aggTestTx(block, 1, addrB, addrC),
	}
	transfers := []*dbtypes.TokenTransfer{
		aggTestTransfer(block, 0, token, zeroAddress, addrB, 100),
	}

	err := db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return agg.ApplyBlock(tx, block, transactions, transfers, nil)
	})
	require.NoError(t, err)

	addr, err := db.GetAddress(addrB)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), addr.TxCount)
	assert.Equal(t, uint64(1), addr.SentTxCount)
	assert.Equal(t, uint64(1), addr.ReceivedTxCount)
	assert.Equal(t, uint64(11), addr.FirstSeenBlock)

	tokenRow, err := db.GetToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tokenRow.TransferCount)
	assert.Equal(t, uint64(1), tokenRow.HolderCount)

	networkStats, err := db.GetNetworkStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(11), networkStats.LatestBlock)
	assert.Equal(t, uint64(1), networkStats.TotalBlocks)
	assert.Equal(t, uint64(2), networkStats.TotalTransactions)
	assert.Equal(t, uint64(1), networkStats.TotalTransfers)
	assert.Equal(t, uint64(3), networkStats.TotalAddresses)

	day := "2023-11-14"
	dailyStats, err := db.GetDailyStats(day, day)
	require.NoError(t, err)
	require.Len(t, dailyStats, 1)
	assert.Equal(t, uint64(1), dailyStats[0].BlockCount)
	assert.Equal(t, uint64(2), dailyStats[0].TransactionCount)

	err = db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return agg.RevertBlocks(tx, ancestor, []*dbtypes.Block{block}, transactions, transfers)
	})
	require.NoError(t, err)

	missing, err := db.GetAddress(addrB)
	require.NoError(t, err)
	assert.Nil(t, missing)

	tokenRow, err = db.GetToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), tokenRow.TransferCount)
	assert.Equal(t, uint64(0), tokenRow.HolderCount)

	_, holderCount, err := db.GetTokenHolders(token, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), holderCount)

	networkStats, err = db.GetNetworkStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), networkStats.LatestBlock)
	assert.Equal(t, uint64(0), networkStats.TotalBlocks)
	assert.Equal(t, uint64(0), networkStats.TotalTransactions)
	assert.Equal(t, uint64(0), networkStats.TotalTransfers)
	assert.Equal(t, uint64(0), networkStats.TotalAddresses)

	dailyStats, err = db.GetDailyStats(day, day)
	require.NoError(t, err)
	assert.Len(t, dailyStats, 0)
}

func TestAggregatorSelfTransfer(t *testing.T) {
	setupTestDb(t)
	agg := NewAggregator(logrus.StandardLogger())

	addrA := testAddr(0x01)
	block := aggTestBlock(5, 1, 0)
	transactions := []*dbtypes.Transaction{
		aggTestTx(block, 0, addrA, addrA),
	}

	err := db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return agg.ApplyBlock(tx, block, transactions, nil, nil)
	})
	require.NoError(t, err)

	addr, err := db.GetAddress(addrA)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), addr.TxCount)
	assert.Equal(t, uint64(1), addr.SentTxCount)
	assert.Equal(t, uint64(1), addr.ReceivedTxCount)
}

func TestAggregatorContractCreation(t *testing.T) {
	setupTestDb(t)
	agg := NewAggregator(logrus.StandardLogger())

	addrA := testAddr(0x01)
	contract := testAddr(0x20)
	block := aggTestBlock(7, 1, 0)
	transaction := aggTestTx(block, 0, addrA, nil)
	transaction.ContractAddress = contract

	err := db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return agg.ApplyBlock(tx, block, []*dbtypes.Transaction{transaction}, nil, map[string]bool{string(contract): true})
	})
	require.NoError(t, err)

	addr, err := db.GetAddress(contract)
	require.NoError(t, err)
	assert.True(t, addr.IsContract)
	assert.Equal(t, uint64(1), addr.ReceivedTxCount)
}

func TestAggregatorHolderZeroCrossing(t *testing.T) {
	setupTestDb(t)
	agg := NewAggregator(logrus.StandardLogger())

	addrA := testAddr(0x01)
	addrB := testAddr(0x02)
	token := testAddr(0x10)

	block := aggTestBlock(20, 0, 3)
	mint := aggTestTransfer(block, 0, token, zeroAddress, addrA, 100)
	move := aggTestTransfer(block, 1, token, addrA, addrB, 100)
	burn := aggTestTransfer(block, 2, token, addrB, zeroAddress, 100)

	err := db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return agg.applyTransfer(tx, mint, 1)
	})
	require.NoError(t, err)

	tokenRow, err := db.GetToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tokenRow.HolderCount)

	// full balance moves over, holder count stays at one
	err = db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return agg.applyTransfer(tx, move, 1)
	})
	require.NoError(t, err)

	tokenRow, err = db.GetToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tokenRow.HolderCount)

	holders, _, err := db.GetTokenHolders(token, 0, 10)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, addrB, holders[0].HolderAddress)

	err = db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return agg.applyTransfer(tx, burn, 1)
	})
	require.NoError(t, err)

	tokenRow, err = db.GetToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), tokenRow.HolderCount)
}

func TestAggregatorNegativeBalanceFlagsRecompute(t *testing.T) {
	setupTestDb(t)
	agg := NewAggregator(logrus.StandardLogger())

	addrA := testAddr(0x01)
	addrB := testAddr(0x02)
	token := testAddr(0x10)

	block := aggTestBlock(30, 0, 1)
	// addrA has no stored balance, the debit would go negative
	transfer := aggTestTransfer(block, 0, token, addrA, addrB, 50)

	err := db.RunDBTransaction(func(tx *sqlx.Tx) error {
		return agg.applyTransfer(tx, transfer, 1)
	})
	require.NoError(t, err)

	tokenRow, err := db.GetToken(token)
	require.NoError(t, err)
	assert.True(t, tokenRow.NeedsRecompute)

	holders, _, err := db.GetTokenHolders(token, 0, 10)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, addrB, holders[0].HolderAddress)
	assert.Equal(t, big.NewInt(50).Bytes(), holders[0].Balance)
}

func TestRecomputeTokenHolders(t *testing.T) {
	setupTestDb(t)
	agg := NewAggregator(logrus.StandardLogger())

	addrA := testAddr(0x01)
	addrB := testAddr(0x02)
	token := testAddr(0x10)

	block1 := aggTestBlock(1, 0, 1)
	block2 := aggTestBlock(2, 0, 1)
	mint := aggTestTransfer(block1, 0, token, zeroAddress, addrA, 100)
	move := aggTestTransfer(block2, 0, token, addrA, addrB, 40)

	err := db.RunDBTransaction(func(tx *sqlx.Tx) error {
		if err := db.UpsertToken(&dbtypes.Token{
			Address:         token,
			TokenType:       dbtypes.TokenTypeERC20,
			DiscoveredBlock: 1,
			NeedsRecompute:  true,
		}, 2, tx); err != nil {
			return err
		}
		return db.InsertTokenTransfers([]*dbtypes.TokenTransfer{mint, move}, tx)
	})
	require.NoError(t, err)

	require.NoError(t, agg.RecomputeTokenHolders(token))

	tokenRow, err := db.GetToken(token)
	require.NoError(t, err)
	assert.False(t, tokenRow.NeedsRecompute)
	assert.Equal(t, uint64(2), tokenRow.HolderCount)

	holders, _, err := db.GetTokenHolders(token, 0, 10)
	require.NoError(t, err)
	require.Len(t, holders, 2)

	balances := map[string]int64{}
	for _, holder := range holders {
		balances[string(holder.HolderAddress)] = new(big.Int).SetBytes(holder.Balance).Int64()
	}
	assert.Equal(t, int64(60), balances[string(addrA)])
	assert.Equal(t, int64(40), balances[string(addrB)])
}

func TestRecomputeTokenHoldersFromChain(t *testing.T) {
	setupTestDb(t)
	agg := NewAggregator(logrus.StandardLogger())

	addrA := testAddr(0x01)
	addrB := testAddr(0x02)
	token := testAddr(0x10)
	tokenAddr := common.BytesToAddress(token)

	transferLog := func(blockNumber uint64, from []byte, to []byte, value int64, index uint) ethtypes.Log {
		return ethtypes.Log{
			Address:     tokenAddr,
			Topics:      []common.Hash{transferTopic, addressTopic(common.BytesToAddress(from)), addressTopic(common.BytesToAddress(to))},
			Data:        uintWord(big.NewInt(value)),
			BlockNumber: blockNumber,
			Index:       index,
		}
	}

	// the mint predates the stored transfer history, only the node has it
	client := newMockClient()
	client.logs = []ethtypes.Log{
		transferLog(2, zeroAddress, addrA, 100, 0),
		transferLog(150, addrA, addrB, 40, 0),
		{Address: common.BytesToAddress(testAddr(0x33)), Topics: []common.Hash{transferTopic, addressTopic(common.BytesToAddress(addrA)), addressTopic(common.BytesToAddress(addrB))}, Data: uintWord(big.NewInt(999)), BlockNumber: 150, Index: 1},
	}

	err := db.RunDBTransaction(func(tx *sqlx.Tx) error {
		if err := db.UpsertToken(&dbtypes.Token{
			Address:         token,
			TokenType:       dbtypes.TokenTypeERC20,
			DiscoveredBlock: 150,
			NeedsRecompute:  true,
		}, 1, tx); err != nil {
			return err
		}
		holder := aggTestTransfer(aggTestBlock(150, 0, 1), 0, token, addrA, addrB, 40)
		return db.InsertTokenTransfers([]*dbtypes.TokenTransfer{holder}, tx)
	})
	require.NoError(t, err)

	// batch size below the range forces multiple log windows
	require.NoError(t, agg.RecomputeTokenHoldersFromChain(context.Background(), client, token, 200, 100))

	tokenRow, err := db.GetToken(token)
	require.NoError(t, err)
	assert.False(t, tokenRow.NeedsRecompute)
	assert.Equal(t, uint64(2), tokenRow.HolderCount)

	holders, _, err := db.GetTokenHolders(token, 0, 10)
	require.NoError(t, err)
	require.Len(t, holders, 2)

	balances := map[string]int64{}
	for _, holder := range holders {
		balances[string(holder.HolderAddress)] = new(big.Int).SetBytes(holder.Balance).Int64()
	}
	assert.Equal(t, int64(60), balances[string(addrA)])
	assert.Equal(t, int64(40), balances[string(addrB)])
}
