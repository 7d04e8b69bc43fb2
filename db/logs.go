package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
)

const logColumns = "transaction_hash, log_index, block_number, block_hash, address, topic0, topic1, topic2, topic3, data, event_name"

func InsertTransactionLogs(logs []*dbtypes.TransactionLog, tx *sqlx.Tx) error {
	if len(logs) == 0 {
		return nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql,
		EngineQuery(map[dbtypes.DBEngineType]string{
			dbtypes.DBEnginePgsql:  "INSERT INTO transaction_logs ",
			dbtypes.DBEngineSqlite: "INSERT OR REPLACE INTO transaction_logs ",
		}),
		"(", logColumns, ") VALUES ",
	)

	argIdx := 0
	fieldCount := 11
	args := make([]interface{}, len(logs)*fieldCount)
	for i, log := range logs {
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

		args[argIdx+0] = log.TransactionHash
		args[argIdx+1] = log.LogIndex
		args[argIdx+2] = log.BlockNumber
		args[argIdx+3] = log.BlockHash
		args[argIdx+4] = log.Address
		args[argIdx+5] = log.Topic0
		args[argIdx+6] = log.Topic1
		args[argIdx+7] = log.Topic2
		args[argIdx+8] = log.Topic3
		args[argIdx+9] = log.Data
		args[argIdx+10] = log.EventName
		argIdx += fieldCount
	}

	fmt.Fprint(&sql, EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: ` ON CONFLICT (transaction_hash, log_index) DO UPDATE SET
			block_number = excluded.block_number,
			block_hash = excluded.block_hash,
			event_name = excluded.event_name`,
		dbtypes.DBEngineSqlite: "",
	}))

	_, err := tx.Exec(sql.String(), args...)
	if err != nil {
		return err
	}
	return nil
}

func GetTransactionLogs(txHash []byte) ([]*dbtypes.TransactionLog, error) {
	logs := []*dbtypes.TransactionLog{}
	err := ReaderDb.Select(&logs,
		"SELECT "+logColumns+" FROM transaction_logs WHERE transaction_hash = $1 ORDER BY log_index ASC",
		txHash,
	)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func DeleteTransactionLogsAboveHeight(height uint64, tx *sqlx.Tx) error {
	_, err := tx.Exec(`DELETE FROM transaction_logs WHERE block_number > $1`, height)
	return err
}

const internalTxColumns = "transaction_hash, trace_index, block_number, call_type, from_address, to_address, value, gas_used, error_msg"

func InsertInternalTransactions(internalTxs []*dbtypes.InternalTransaction, tx *sqlx.Tx) error {
	if len(internalTxs) == 0 {
		return nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql,
		EngineQuery(map[dbtypes.DBEngineType]string{
			dbtypes.DBEnginePgsql:  "INSERT INTO internal_transactions ",
			dbtypes.DBEngineSqlite: "INSERT OR REPLACE INTO internal_transactions ",
		}),
		"(", internalTxColumns, ") VALUES ",
	)

	argIdx := 0
	fieldCount := 9
	args := make([]interface{}, len(internalTxs)*fieldCount)
	for i, itx := range internalTxs {
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

		args[argIdx+0] = itx.TransactionHash
		args[argIdx+1] = itx.TraceIndex
		args[argIdx+2] = itx.BlockNumber
		args[argIdx+3] = itx.CallType
		args[argIdx+4] = itx.FromAddress
		args[argIdx+5] = itx.ToAddress
		args[argIdx+6] = itx.Value
		args[argIdx+7] = itx.GasUsed
		args[argIdx+8] = itx.ErrorMsg
		argIdx += fieldCount
	}

	fmt.Fprint(&sql, EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: ` ON CONFLICT (transaction_hash, trace_index) DO UPDATE SET
			block_number = excluded.block_number,
			gas_used = excluded.gas_used,
			error_msg = excluded.error_msg`,
		dbtypes.DBEngineSqlite: "",
	}))

	_, err := tx.Exec(sql.String(), args...)
	if err != nil {
		return err
	}
	return nil
}

func GetInternalTransactions(txHash []byte) ([]*dbtypes.InternalTransaction, error) {
	internalTxs := []*dbtypes.InternalTransaction{}
	err := ReaderDb.Select(&internalTxs,
		"SELECT "+internalTxColumns+" FROM internal_transactions WHERE transaction_hash = $1 ORDER BY trace_index ASC",
		txHash,
	)
	if err != nil {
		return nil, err
	}
	return internalTxs, nil
}

func DeleteInternalTransactionsAboveHeight(height uint64, tx *sqlx.Tx) error {
	_, err := tx.Exec(`DELETE FROM internal_transactions WHERE block_number > $1`, height)
	return err
}
