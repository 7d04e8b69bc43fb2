package db

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
)

const addressColumns = "address, balance, tx_count, sent_tx_count, received_tx_count, is_contract, first_seen_block, last_seen_block, first_seen_time, last_seen_time"

func GetAddress(address []byte) (*dbtypes.Address, error) {
	addr := &dbtypes.Address{}
	err := ReaderDb.Get(addr,
		"SELECT "+addressColumns+" FROM addresses WHERE address = $1",
		address,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return addr, nil
}

// ApplyAddressDelta applies one address's aggregate contribution. Counter
// fields add up, so the same function applies forward deltas and their
// negated inverse during reorg rollback.
func ApplyAddressDelta(delta *dbtypes.AddressDelta, tx *sqlx.Tx) error {
	_, err := tx.Exec(EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
			INSERT INTO addresses (` + addressColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8, $8)
			ON CONFLICT (address) DO UPDATE SET
				tx_count = addresses.tx_count + excluded.tx_count,
				sent_tx_count = addresses.sent_tx_count + excluded.sent_tx_count,
				received_tx_count = addresses.received_tx_count + excluded.received_tx_count,
				is_contract = addresses.is_contract OR excluded.is_contract,
				first_seen_block = LEAST(addresses.first_seen_block, excluded.first_seen_block),
				last_seen_block = GREATEST(addresses.last_seen_block, excluded.last_seen_block),
				first_seen_time = LEAST(addresses.first_seen_time, excluded.first_seen_time),
				last_seen_time = GREATEST(addresses.last_seen_time, excluded.last_seen_time)`,
		dbtypes.DBEngineSqlite: `
			INSERT INTO addresses (` + addressColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8, $8)
			ON CONFLICT (address) DO UPDATE SET
				tx_count = addresses.tx_count + excluded.tx_count,
				sent_tx_count = addresses.sent_tx_count + excluded.sent_tx_count,
				received_tx_count = addresses.received_tx_count + excluded.received_tx_count,
				is_contract = addresses.is_contract OR excluded.is_contract,
				first_seen_block = MIN(addresses.first_seen_block, excluded.first_seen_block),
				last_seen_block = MAX(addresses.last_seen_block, excluded.last_seen_block),
				first_seen_time = MIN(addresses.first_seen_time, excluded.first_seen_time),
				last_seen_time = MAX(addresses.last_seen_time, excluded.last_seen_time)`,
	}), delta.Address, []byte{0}, delta.TxCount, delta.SentTxCount, delta.ReceivedTxCount,
		delta.IsContract, delta.SeenBlock, delta.SeenTime)
	if err != nil {
		return err
	}
	return nil
}

// SetAddressBalance updates the native-coin balance of an address.
func SetAddressBalance(address []byte, balance []byte, tx *sqlx.Tx) error {
	_, err := tx.Exec(`UPDATE addresses SET balance = $2 WHERE address = $1`, address, balance)
	return err
}

// RecomputeAddressSeen restores the first/last seen fields of an address from
// the remaining transaction rows. Used after a reorg rollback, where the
// min/max merge of ApplyAddressDelta cannot be reversed.
func RecomputeAddressSeen(address []byte, tx *sqlx.Tx) error {
	_, err := tx.Exec(`
		UPDATE addresses SET
			first_seen_block = COALESCE((SELECT MIN(block_number) FROM transactions WHERE from_address = $1 OR to_address = $1 OR contract_address = $1), 0),
			last_seen_block = COALESCE((SELECT MAX(block_number) FROM transactions WHERE from_address = $1 OR to_address = $1 OR contract_address = $1), 0),
			first_seen_time = COALESCE((SELECT MIN(block_timestamp) FROM transactions WHERE from_address = $1 OR to_address = $1 OR contract_address = $1), 0),
			last_seen_time = COALESCE((SELECT MAX(block_timestamp) FROM transactions WHERE from_address = $1 OR to_address = $1 OR contract_address = $1), 0)
		WHERE address = $1`, address)
	return err
}

// DeleteEmptyAddresses removes address rows whose counters dropped to zero
// after a rollback. Returns the number of deleted rows.
func DeleteEmptyAddresses(tx *sqlx.Tx) (int64, error) {
	res, err := tx.Exec(`DELETE FROM addresses WHERE tx_count <= 0`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func GetAddressCount() (uint64, error) {
	var count uint64
	err := ReaderDb.Get(&count, `SELECT COUNT(*) FROM addresses`)
	if err != nil {
		return 0, err
	}
	return count, nil
}
