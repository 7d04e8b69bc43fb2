package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
)

const transactionColumns = "hash, block_number, block_hash, block_timestamp, transaction_index, from_address, to_address, value, nonce, gas_limit, gas_used, gas_price, effective_gas_price, max_fee_per_gas, max_priority_fee_per_gas, input_data, method_id, method_name, tx_type, status, contract_address, logs_count"

func InsertTransactions(transactions []*dbtypes.Transaction, tx *sqlx.Tx) error {
	if len(transactions) == 0 {
		return nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql,
		EngineQuery(map[dbtypes.DBEngineType]string{
			dbtypes.DBEnginePgsql:  "INSERT INTO transactions ",
			dbtypes.DBEngineSqlite: "INSERT OR REPLACE INTO transactions ",
		}),
		"(", transactionColumns, ") VALUES ",
	)

	argIdx := 0
	fieldCount := 22
	args := make([]interface{}, len(transactions)*fieldCount)
	for i, transaction := range transactions {
		if i > 0 {
			fmt.Fprint(&sql, ", ")
		}
		fmt.Fprint(&sql, "(")
		for f := 0; f < fieldCount; f++ {
			if f > 0 {
				fmt.Fprint(&sql, ", ")
			}
			fmt.Fprintf(&sql, "$%v", argIdx+f+1)
		}
		fmt.Fprint(&sql, ")")

		args[argIdx+0] = transaction.Hash
		args[argIdx+1] = transaction.BlockNumber
		args[argIdx+2] = transaction.BlockHash
		args[argIdx+3] = transaction.BlockTimestamp
		args[argIdx+4] = transaction.TransactionIndex
		args[argIdx+5] = transaction.FromAddress
		args[argIdx+6] = transaction.ToAddress
		args[argIdx+7] = transaction.Value
		args[argIdx+8] = transaction.Nonce
		args[argIdx+9] = transaction.GasLimit
		args[argIdx+10] = transaction.GasUsed
		args[argIdx+11] = transaction.GasPrice
		args[argIdx+12] = transaction.EffectiveGasPrice
		args[argIdx+13] = transaction.MaxFeePerGas
		args[argIdx+14] = transaction.MaxPriorityFeePerGas
		args[argIdx+15] = transaction.InputData
		args[argIdx+16] = transaction.MethodId
		args[argIdx+17] = transaction.MethodName
		args[argIdx+18] = transaction.TxType
		args[argIdx+19] = transaction.Status
		args[argIdx+20] = transaction.ContractAddress
		args[argIdx+21] = transaction.LogsCount
		argIdx += fieldCount
	}

	fmt.Fprint(&sql, EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: ` ON CONFLICT (hash) DO UPDATE SET
			block_number = excluded.block_number,
			block_hash = excluded.block_hash,
			block_timestamp = excluded.block_timestamp,
			transaction_index = excluded.transaction_index,
			gas_used = excluded.gas_used,
			effective_gas_price = excluded.effective_gas_price,
			status = excluded.status,
			contract_address = excluded.contract_address,
			logs_count = excluded.logs_count`,
		dbtypes.DBEngineSqlite: "",
	}))

	_, err := tx.Exec(sql.String(), args...)
	if err != nil {
		return err
	}
	return nil
}

func GetTransactionByHash(hash []byte) (*dbtypes.Transaction, error) {
	transaction := &dbtypes.Transaction{}
	err := ReaderDb.Get(transaction,
		"SELECT "+transactionColumns+" FROM transactions WHERE hash = $1",
		hash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return transaction, nil
}

func GetTransactionsByBlockNumber(number uint64) ([]*dbtypes.Transaction, error) {
	transactions := []*dbtypes.Transaction{}
	err := ReaderDb.Select(&transactions,
		"SELECT "+transactionColumns+" FROM transactions WHERE block_number = $1 ORDER BY transaction_index ASC",
		number,
	)
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// GetTransactionsAboveHeight returns transactions of blocks above the given
// height. Used by the reorg resolver to compute inverse aggregate deltas.
func GetTransactionsAboveHeight(height uint64) ([]*dbtypes.Transaction, error) {
	return getTransactionsAboveHeight(ReaderDb, height)
}

func GetTransactionsAboveHeightTx(tx *sqlx.Tx, height uint64) ([]*dbtypes.Transaction, error) {
	return getTransactionsAboveHeight(tx, height)
}

func getTransactionsAboveHeight(q sqlx.Queryer, height uint64) ([]*dbtypes.Transaction, error) {
	transactions := []*dbtypes.Transaction{}
	err := sqlx.Select(q, &transactions,
		"SELECT "+transactionColumns+" FROM transactions WHERE block_number > $1 ORDER BY block_number ASC, transaction_index ASC",
		height,
	)
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// GetTransactionsByAddress returns transactions sent or received by an
// address, block-descending.
func GetTransactionsByAddress(address []byte, offset uint64, limit uint32) ([]*dbtypes.Transaction, uint64, error) {
	var totalCount uint64
	err := ReaderDb.Get(&totalCount,
		`SELECT COUNT(*) FROM transactions WHERE from_address = $1 OR to_address = $1`,
		address,
	)
	if err != nil {
		return nil, 0, err
	}

	var sql strings.Builder
	args := []interface{}{address}
	fmt.Fprintf(&sql, "SELECT %s FROM transactions WHERE from_address = $1 OR to_address = $1", transactionColumns)

	args = append(args, limit)
	fmt.Fprintf(&sql, " ORDER BY block_number DESC, transaction_index DESC LIMIT $%v", len(args))
	if offset > 0 {
		args = append(args, offset)
		fmt.Fprintf(&sql, " OFFSET $%v", len(args))
	}

	transactions := []*dbtypes.Transaction{}
	err = ReaderDb.Select(&transactions, sql.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	return transactions, totalCount, nil
}

func DeleteTransactionsAboveHeight(height uint64, tx *sqlx.Tx) error {
	_, err := tx.Exec(`DELETE FROM transactions WHERE block_number > $1`, height)
	return err
}
