package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
)

const tokenTransferColumns = "transaction_hash, log_index, batch_index, block_number, block_hash, block_timestamp, token_address, token_type, from_address, to_address, value, token_id"

func InsertTokenTransfers(transfers []*dbtypes.TokenTransfer, tx *sqlx.Tx) error {
	if len(transfers) == 0 {
		return nil
	}

	var sql strings.Builder
	fmt.Fprint(&sql,
		EngineQuery(map[dbtypes.DBEngineType]string{
			dbtypes.DBEnginePgsql:  "INSERT INTO token_transfers ",
			dbtypes.DBEngineSqlite: "INSERT OR REPLACE INTO token_transfers ",
		}),
		"(", tokenTransferColumns, ") VALUES ",
	)

	argIdx := 0
	fieldCount := 12
	args := make([]interface{}, len(transfers)*fieldCount)
	for i, transfer := range transfers {
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

		args[argIdx+0] = transfer.TransactionHash
		args[argIdx+1] = transfer.LogIndex
		args[argIdx+2] = transfer.BatchIndex
		args[argIdx+3] = transfer.BlockNumber
		args[argIdx+4] = transfer.BlockHash
		args[argIdx+5] = transfer.BlockTimestamp
		args[argIdx+6] = transfer.TokenAddress
		args[argIdx+7] = transfer.TokenType
		args[argIdx+8] = transfer.FromAddress
		args[argIdx+9] = transfer.ToAddress
		args[argIdx+10] = transfer.Value
		args[argIdx+11] = transfer.TokenId
		argIdx += fieldCount
	}

	fmt.Fprint(&sql, EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: ` ON CONFLICT (transaction_hash, log_index, batch_index) DO UPDATE SET
			block_number = excluded.block_number,
			block_hash = excluded.block_hash,
			block_timestamp = excluded.block_timestamp`,
		dbtypes.DBEngineSqlite: "",
	}))

	_, err := tx.Exec(sql.String(), args...)
	if err != nil {
		return err
	}
	return nil
}

// GetTokenTransfersByToken returns transfers of one token, block-descending.
func GetTokenTransfersByToken(tokenAddress []byte, offset uint64, limit uint32) ([]*dbtypes.TokenTransfer, uint64, error) {
	var totalCount uint64
	err := ReaderDb.Get(&totalCount,
		`SELECT COUNT(*) FROM token_transfers WHERE token_address = $1`,
		tokenAddress,
	)
	if err != nil {
		return nil, 0, err
	}

	var sql strings.Builder
	args := []interface{}{tokenAddress}
	fmt.Fprintf(&sql, "SELECT %s FROM token_transfers WHERE token_address = $1", tokenTransferColumns)

	args = append(args, limit)
	fmt.Fprintf(&sql, " ORDER BY block_number DESC, log_index DESC, batch_index DESC LIMIT $%v", len(args))
	if offset > 0 {
		args = append(args, offset)
		fmt.Fprintf(&sql, " OFFSET $%v", len(args))
	}

	transfers := []*dbtypes.TokenTransfer{}
	err = ReaderDb.Select(&transfers, sql.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	return transfers, totalCount, nil
}

// GetTokenTransfersByAddress returns transfers sent or received by an address.
func GetTokenTransfersByAddress(address []byte, offset uint64, limit uint32) ([]*dbtypes.TokenTransfer, uint64, error) {
	var totalCount uint64
	err := ReaderDb.Get(&totalCount,
		`SELECT COUNT(*) FROM token_transfers WHERE from_address = $1 OR to_address = $1`,
		address,
	)
	if err != nil {
		return nil, 0, err
	}

	var sql strings.Builder
	args := []interface{}{address}
	fmt.Fprintf(&sql, "SELECT %s FROM token_transfers WHERE from_address = $1 OR to_address = $1", tokenTransferColumns)

	args = append(args, limit)
	fmt.Fprintf(&sql, " ORDER BY block_number DESC, log_index DESC, batch_index DESC LIMIT $%v", len(args))
	if offset > 0 {
		args = append(args, offset)
		fmt.Fprintf(&sql, " OFFSET $%v", len(args))
	}

	transfers := []*dbtypes.TokenTransfer{}
	err = ReaderDb.Select(&transfers, sql.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	return transfers, totalCount, nil
}

// GetTokenTransfersByTransaction returns all decoded transfers of one
// transaction in log order.
func GetTokenTransfersByTransaction(txHash []byte) ([]*dbtypes.TokenTransfer, error) {
	transfers := []*dbtypes.TokenTransfer{}
	err := ReaderDb.Select(&transfers,
		"SELECT "+tokenTransferColumns+" FROM token_transfers WHERE transaction_hash = $1 ORDER BY log_index ASC, batch_index ASC",
		txHash,
	)
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

// GetTokenTransfersAboveHeight returns transfers of blocks above the given
// height, used by the reorg resolver to revert holder balances.
func GetTokenTransfersAboveHeight(height uint64) ([]*dbtypes.TokenTransfer, error) {
	return getTokenTransfersAboveHeight(ReaderDb, height)
}

func GetTokenTransfersAboveHeightTx(tx *sqlx.Tx, height uint64) ([]*dbtypes.TokenTransfer, error) {
	return getTokenTransfersAboveHeight(tx, height)
}

func getTokenTransfersAboveHeight(q sqlx.Queryer, height uint64) ([]*dbtypes.TokenTransfer, error) {
	transfers := []*dbtypes.TokenTransfer{}
	err := sqlx.Select(q, &transfers,
		"SELECT "+tokenTransferColumns+" FROM token_transfers WHERE block_number > $1 ORDER BY block_number ASC, log_index ASC, batch_index ASC",
		height,
	)
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

// GetTokenTransfersByTokenAsc returns all transfers of one token in chain
// order, used to replay holder balances from scratch.
func GetTokenTransfersByTokenAsc(tokenAddress []byte) ([]*dbtypes.TokenTransfer, error) {
	transfers := []*dbtypes.TokenTransfer{}
	err := ReaderDb.Select(&transfers,
		"SELECT "+tokenTransferColumns+" FROM token_transfers WHERE token_address = $1 ORDER BY block_number ASC, log_index ASC, batch_index ASC",
		tokenAddress,
	)
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

func DeleteTokenTransfersAboveHeight(height uint64, tx *sqlx.Tx) error {
	_, err := tx.Exec(`DELETE FROM token_transfers WHERE block_number > $1`, height)
	return err
}
