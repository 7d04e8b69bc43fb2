package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

	MustInitDB()
	require.NoError(t, ApplyEmbeddedDbSchema(-2))
	t.Cleanup(MustCloseDB)
}

func testBlock(number uint64, hash byte, parentHash byte) *dbtypes.Block {
	blockHash := make([]byte, 32)
	blockHash[0] = hash
	blockParent := make([]byte, 32)
	blockParent[0] = parentHash

	return &dbtypes.Block{
		Number:           number,
		Hash:             blockHash,
		ParentHash:       blockParent,
		Timestamp:        1700000000 + number*12,
		Miner:            make([]byte, 20),
		Size:             1024,
		GasUsed:          21000,
		GasLimit:         30000000,
		ExtraData:        []byte{},
		Difficulty:       []byte{0},
		TransactionCount: 0,
		TransferCount:    0,
		TotalFees:        []byte{0},
	}
}

func TestIndexerCheckpoint(t *testing.T) {
	setupTestDb(t)

	checkpoint, err := GetIndexerCheckpoint("head")
	require.NoError(t, err)
	assert.Nil(t, checkpoint)

	err = RunDBTransaction(func(tx *sqlx.Tx) error {
		return SetIndexerCheckpoint(&dbtypes.IndexerCheckpoint{
			Stream:          "head",
			LastBlockNumber: 100,
			LastBlockHash:   []byte{0xaa},
		}, tx)
	})
	require.NoError(t, err)

	checkpoint, err = GetIndexerCheckpoint("head")
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.Equal(t, uint64(100), checkpoint.LastBlockNumber)
	assert.Equal(t, []byte{0xaa}, checkpoint.LastBlockHash)
	assert.NotZero(t, checkpoint.UpdatedAt)

	// advancing the same stream replaces the row
	err = RunDBTransaction(func(tx *sqlx.Tx) error {
		return SetIndexerCheckpoint(&dbtypes.IndexerCheckpoint{
			Stream:          "head",
			LastBlockNumber: 101,
			LastBlockHash:   []byte{0xab},
		}, tx)
	})
	require.NoError(t, err)

	err = RunDBTransaction(func(tx *sqlx.Tx) error {
		return SetIndexerCheckpoint(&dbtypes.IndexerCheckpoint{
			Stream:          "traces",
			LastBlockNumber: 90,
			LastBlockHash:   []byte{0xba},
		}, tx)
	})
	require.NoError(t, err)

	checkpoints, err := GetIndexerCheckpoints()
	require.NoError(t, err)
	require.Len(t, checkpoints, 2)
	assert.Equal(t, "head", checkpoints[0].Stream)
	assert.Equal(t, uint64(101), checkpoints[0].LastBlockNumber)
	assert.Equal(t, "traces", checkpoints[1].Stream)

	err = RunDBTransaction(func(tx *sqlx.Tx) error {
		return DeleteIndexerCheckpoint("traces", tx)
	})
	require.NoError(t, err)

	checkpoint, err = GetIndexerCheckpoint("traces")
	require.NoError(t, err)
	assert.Nil(t, checkpoint)
}

func TestExplorerState(t *testing.T) {
	setupTestDb(t)

	chainId := ""
	_, err := GetExplorerState("chain_id", &chainId)
	require.ErrorIs(t, err, sql.ErrNoRows)

	err = RunDBTransaction(func(tx *sqlx.Tx) error {
		return SetExplorerState("chain_id", "1337", tx)
	})
	require.NoError(t, err)

	_, err = GetExplorerState("chain_id", &chainId)
	require.NoError(t, err)
	assert.Equal(t, "1337", chainId)

	err = RunDBTransaction(func(tx *sqlx.Tx) error {
		return SetExplorerState("chain_id", "31337", tx)
	})
	require.NoError(t, err)

	_, err = GetExplorerState("chain_id", &chainId)
	require.NoError(t, err)
	assert.Equal(t, "31337", chainId)
}

func TestBlockQueries(t *testing.T) {
	setupTestDb(t)

	err := RunDBTransaction(func(tx *sqlx.Tx) error {
		for number := uint64(1); number <= 5; number++ {
			if err := InsertBlock(testBlock(number, byte(number), byte(number-1)), tx); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	block, err := GetBlockByNumber(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), block.Number)
	assert.Equal(t, byte(3), block.Hash[0])
	assert.Equal(t, byte(2), block.ParentHash[0])

	blockByHash, err := GetBlockByHash(block.Hash)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), blockByHash.Number)

	missing, err := GetBlockByNumber(99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	above, err := GetBlocksAboveHeight(3)
	require.NoError(t, err)
	require.Len(t, above, 2)
	assert.Equal(t, uint64(4), above[0].Number)
	assert.Equal(t, uint64(5), above[1].Number)

	minNumber := uint64(2)
	maxNumber := uint64(4)
	filtered, err := GetBlocks(0, 10, &dbtypes.BlockFilter{MinNumber: &minNumber, MaxNumber: &maxNumber})
	require.NoError(t, err)
	require.Len(t, filtered, 3)
	assert.Equal(t, uint64(4), filtered[0].Number)

	// the transaction-scoped reads must observe the same snapshot the
	// deletes operate on, not the reader handle
	err = RunDBTransaction(func(tx *sqlx.Tx) error {
		if err := InsertBlock(testBlock(6, 6, 5), tx); err != nil {
			return err
		}
		orphaned, err := GetBlocksAboveHeightTx(tx, 3)
		if err != nil {
			return err
		}
		require.Len(t, orphaned, 3)
		assert.Equal(t, uint64(6), orphaned[2].Number)

		return DeleteBlocksAboveHeight(3, tx)
	})
	require.NoError(t, err)

	above, err = GetBlocksAboveHeight(0)
	require.NoError(t, err)
	require.Len(t, above, 3)
	assert.Equal(t, uint64(3), above[len(above)-1].Number)
}

func TestAddressDelta(t *testing.T) {
	setupTestDb(t)

	address := make([]byte, 20)
	address[19] = 0x01

	err := RunDBTransaction(func(tx *sqlx.Tx) error {
		return ApplyAddressDelta(&dbtypes.AddressDelta{
			Address:     address,
			TxCount:     1,
			SentTxCount: 1,
			SeenBlock:   10,
			SeenTime:    1700000120,
		}, tx)
	})
	require.NoError(t, err)

	err = RunDBTransaction(func(tx *sqlx.Tx) error {
		return ApplyAddressDelta(&dbtypes.AddressDelta{
			Address:         address,
			TxCount:         1,
			ReceivedTxCount: 1,
			SeenBlock:       12,
			SeenTime:        1700000144,
		}, tx)
	})
	require.NoError(t, err)

	addr, err := GetAddress(address)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), addr.TxCount)
	assert.Equal(t, uint64(1), addr.SentTxCount)
	assert.Equal(t, uint64(1), addr.ReceivedTxCount)
	assert.Equal(t, uint64(10), addr.FirstSeenBlock)
	assert.Equal(t, uint64(12), addr.LastSeenBlock)

	count, err := GetAddressCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	// a fully negated delta leaves an empty row behind for cleanup
	err = RunDBTransaction(func(tx *sqlx.Tx) error {
		if err := ApplyAddressDelta(&dbtypes.AddressDelta{
			Address:         address,
			TxCount:         -2,
			SentTxCount:     -1,
			ReceivedTxCount: -1,
			SeenBlock:       12,
			SeenTime:        1700000144,
		}, tx); err != nil {
			return err
		}
		deleted, err := DeleteEmptyAddresses(tx)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(1), deleted)
		return nil
	})
	require.NoError(t, err)

	missing, err := GetAddress(address)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDailyStatsDelta(t *testing.T) {
	setupTestDb(t)

	err := RunDBTransaction(func(tx *sqlx.Tx) error {
		return ApplyDailyStatsDelta("2026-08-29", 1, 5, 2, 210000, []byte{0x10}, tx)
	})
	require.NoError(t, err)

	err = RunDBTransaction(func(tx *sqlx.Tx) error {
		return ApplyDailyStatsDelta("2026-08-29", 1, 3, 0, 63000, []byte{0x18}, tx)
	})
	require.NoError(t, err)

	stats, err := GetDailyStats("2026-08-29", "2026-08-29")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, uint64(2), stats[0].BlockCount)
	assert.Equal(t, uint64(8), stats[0].TransactionCount)
	assert.Equal(t, uint64(2), stats[0].TransferCount)
	assert.Equal(t, uint64(273000), stats[0].GasUsed)
	assert.Equal(t, []byte{0x18}, stats[0].TotalFees)

	err = RunDBTransaction(func(tx *sqlx.Tx) error {
		if err := ApplyDailyStatsDelta("2026-08-29", -2, -8, -2, -273000, []byte{0}, tx); err != nil {
			return err
		}
		return DeleteEmptyDailyStats(tx)
	})
	require.NoError(t, err)

	stats, err = GetDailyStats("2026-08-29", "2026-08-29")
	require.NoError(t, err)
	assert.Len(t, stats, 0)
}

func TestNetworkStatsDelta(t *testing.T) {
	setupTestDb(t)

	err := RunDBTransaction(func(tx *sqlx.Tx) error {
		return ApplyNetworkStatsDelta(100, []byte{0xaa}, 1, 5, 2, 7, tx)
	})
	require.NoError(t, err)

	err = RunDBTransaction(func(tx *sqlx.Tx) error {
		return ApplyNetworkStatsDelta(101, []byte{0xab}, 1, 2, 0, 8, tx)
	})
	require.NoError(t, err)

	stats, err := GetNetworkStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(101), stats.LatestBlock)
	assert.Equal(t, []byte{0xab}, stats.LatestBlockHash)
	assert.Equal(t, uint64(2), stats.TotalBlocks)
	assert.Equal(t, uint64(7), stats.TotalTransactions)
	assert.Equal(t, uint64(2), stats.TotalTransfers)
	assert.Equal(t, uint64(8), stats.TotalAddresses)
}

func TestTokenHolders(t *testing.T) {
	setupTestDb(t)

	tokenAddress := make([]byte, 20)
	tokenAddress[0] = 0x11
	holderAddress := make([]byte, 20)
	holderAddress[0] = 0x22

	err := RunDBTransaction(func(tx *sqlx.Tx) error {
		if err := UpsertToken(&dbtypes.Token{
			Address:         tokenAddress,
			TokenType:       dbtypes.TokenTypeERC20,
			DiscoveredBlock: 10,
		}, 1, tx); err != nil {
			return err
		}
		return SetTokenHolder(&dbtypes.TokenHolder{
			TokenAddress:     tokenAddress,
			HolderAddress:    holderAddress,
			TokenId:          []byte{},
			Balance:          []byte{0x64},
			LastUpdatedBlock: 10,
		}, tx)
	})
	require.NoError(t, err)

	token, err := GetToken(tokenAddress)
	require.NoError(t, err)
	assert.Equal(t, dbtypes.TokenTypeERC20, token.TokenType)
	assert.Equal(t, uint64(1), token.TransferCount)
	assert.Equal(t, dbtypes.TokenMetadataPending, token.MetadataStatus)

	// transfer counter adds up across upserts, type and discovery block stay
	err = RunDBTransaction(func(tx *sqlx.Tx) error {
		return UpsertToken(&dbtypes.Token{
			Address:         tokenAddress,
			TokenType:       dbtypes.TokenTypeERC20,
			DiscoveredBlock: 12,
		}, 2, tx)
	})
	require.NoError(t, err)

	token, err = GetToken(tokenAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), token.TransferCount)
	assert.Equal(t, uint64(10), token.DiscoveredBlock)

	holders, total, err := GetTokenHolders(tokenAddress, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	require.Len(t, holders, 1)
	assert.Equal(t, []byte{0x64}, holders[0].Balance)

	err = RunDBTransaction(func(tx *sqlx.Tx) error {
		holder, err := GetTokenHolderTx(tx, tokenAddress, holderAddress, []byte{})
		if err != nil {
			return err
		}
		require.NotNil(t, holder)
		return DeleteTokenHolder(tokenAddress, holderAddress, []byte{}, tx)
	})
	require.NoError(t, err)

	_, total, err = GetTokenHolders(tokenAddress, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), total)
}
