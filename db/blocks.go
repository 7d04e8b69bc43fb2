package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
)

const blockColumns = "number, hash, parent_hash, timestamp, miner, size, gas_used, gas_limit, base_fee_per_gas, extra_data, difficulty, transaction_count, transfer_count, total_fees"

func InsertBlock(block *dbtypes.Block, tx *sqlx.Tx) error {
	var sql strings.Builder
	fmt.Fprint(&sql,
		EngineQuery(map[dbtypes.DBEngineType]string{
			dbtypes.DBEnginePgsql:  "INSERT INTO blocks ",
			dbtypes.DBEngineSqlite: "INSERT OR REPLACE INTO blocks ",
		}),
		"(", blockColumns, ")",
		" VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)",
	)
	fmt.Fprint(&sql, EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: ` ON CONFLICT (number) DO UPDATE SET
			hash = excluded.hash,
			parent_hash = excluded.parent_hash,
			timestamp = excluded.timestamp,
			miner = excluded.miner,
			size = excluded.size,
			gas_used = excluded.gas_used,
			gas_limit = excluded.gas_limit,
			base_fee_per_gas = excluded.base_fee_per_gas,
			extra_data = excluded.extra_data,
			difficulty = excluded.difficulty,
			transaction_count = excluded.transaction_count,
			transfer_count = excluded.transfer_count,
			total_fees = excluded.total_fees`,
		dbtypes.DBEngineSqlite: "",
	}))

	_, err := tx.Exec(sql.String(),
		block.Number, block.Hash, block.ParentHash, block.Timestamp, block.Miner,
		block.Size, block.GasUsed, block.GasLimit, block.BaseFeePerGas, block.ExtraData,
		block.Difficulty, block.TransactionCount, block.TransferCount, block.TotalFees,
	)
	if err != nil {
		return err
	}
	return nil
}

func GetBlockByNumber(number uint64) (*dbtypes.Block, error) {
	block := &dbtypes.Block{}
	err := ReaderDb.Get(block,
		"SELECT "+blockColumns+" FROM blocks WHERE number = $1",
		number,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return block, nil
}

func GetBlockByHash(hash []byte) (*dbtypes.Block, error) {
	block := &dbtypes.Block{}
	err := ReaderDb.Get(block,
		"SELECT "+blockColumns+" FROM blocks WHERE hash = $1",
		hash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return block, nil
}

// GetBlocksAboveHeight returns all stored blocks with number > height,
// ascending. Used by the reorg resolver to collect orphaned rows.
func GetBlocksAboveHeight(height uint64) ([]*dbtypes.Block, error) {
	return getBlocksAboveHeight(ReaderDb, height)
}

// GetBlocksAboveHeightTx is the transaction-scoped variant, reading through
// the rollback transaction so the collected rows match what gets deleted.
func GetBlocksAboveHeightTx(tx *sqlx.Tx, height uint64) ([]*dbtypes.Block, error) {
	return getBlocksAboveHeight(tx, height)
}

func getBlocksAboveHeight(q sqlx.Queryer, height uint64) ([]*dbtypes.Block, error) {
	blocks := []*dbtypes.Block{}
	err := sqlx.Select(q, &blocks,
		"SELECT "+blockColumns+" FROM blocks WHERE number > $1 ORDER BY number ASC",
		height,
	)
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

func GetBlocks(offset uint64, limit uint32, filter *dbtypes.BlockFilter) ([]*dbtypes.Block, error) {
	var sql strings.Builder
	args := []interface{}{}

	fmt.Fprintf(&sql, "SELECT %s FROM blocks", blockColumns)

	filterOp := "WHERE"
	if filter != nil {
		if filter.MinNumber != nil {
			args = append(args, *filter.MinNumber)
			fmt.Fprintf(&sql, " %v number >= $%v", filterOp, len(args))
			filterOp = "AND"
		}
		if filter.MaxNumber != nil {
			args = append(args, *filter.MaxNumber)
			fmt.Fprintf(&sql, " %v number <= $%v", filterOp, len(args))
			filterOp = "AND"
		}
		if filter.MinTimestamp != nil {
			args = append(args, *filter.MinTimestamp)
			fmt.Fprintf(&sql, " %v timestamp >= $%v", filterOp, len(args))
			filterOp = "AND"
		}
		if filter.MaxTimestamp != nil {
			args = append(args, *filter.MaxTimestamp)
			fmt.Fprintf(&sql, " %v timestamp <= $%v", filterOp, len(args))
			filterOp = "AND"
		}
		if len(filter.Miner) > 0 {
			args = append(args, filter.Miner)
			fmt.Fprintf(&sql, " %v miner = $%v", filterOp, len(args))
			filterOp = "AND"
		}
	}

	args = append(args, limit)
	fmt.Fprintf(&sql, " ORDER BY number DESC LIMIT $%v", len(args))
	if offset > 0 {
		args = append(args, offset)
		fmt.Fprintf(&sql, " OFFSET $%v", len(args))
	}

	blocks := []*dbtypes.Block{}
	err := ReaderDb.Select(&blocks, sql.String(), args...)
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// DeleteBlocksAboveHeight removes blocks above the given height. The caller
// is responsible for removing dependent rows and reverting aggregates within
// the same transaction.
func DeleteBlocksAboveHeight(height uint64, tx *sqlx.Tx) error {
	_, err := tx.Exec(`DELETE FROM blocks WHERE number > $1`, height)
	return err
}
