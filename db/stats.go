package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
)

const dailyStatsColumns = "day, block_count, transaction_count, transfer_count, gas_used, total_fees"

// ApplyDailyStatsDelta adds one block's contribution to its UTC-day bucket.
// Negative deltas revert a rolled-back block's contribution.
func ApplyDailyStatsDelta(day string, blockCount int64, txCount int64, transferCount int64, gasUsed int64, totalFees []byte, tx *sqlx.Tx) error {
	_, err := tx.Exec(EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
			INSERT INTO daily_stats (` + dailyStatsColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (day) DO UPDATE SET
				block_count = daily_stats.block_count + excluded.block_count,
				transaction_count = daily_stats.transaction_count + excluded.transaction_count,
				transfer_count = daily_stats.transfer_count + excluded.transfer_count,
				gas_used = daily_stats.gas_used + excluded.gas_used,
				total_fees = excluded.total_fees`,
		dbtypes.DBEngineSqlite: `
			INSERT INTO daily_stats (` + dailyStatsColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (day) DO UPDATE SET
				block_count = daily_stats.block_count + excluded.block_count,
				transaction_count = daily_stats.transaction_count + excluded.transaction_count,
				transfer_count = daily_stats.transfer_count + excluded.transfer_count,
				gas_used = daily_stats.gas_used + excluded.gas_used,
				total_fees = excluded.total_fees`,
	}), day, blockCount, txCount, transferCount, gasUsed, totalFees)
	if err != nil {
		return err
	}
	return nil
}

// GetDailyStatsDayTx reads one day bucket within a write transaction.
func GetDailyStatsDayTx(tx *sqlx.Tx, day string) (*dbtypes.DailyStats, error) {
	stats := &dbtypes.DailyStats{}
	err := tx.Get(stats,
		"SELECT "+dailyStatsColumns+" FROM daily_stats WHERE day = $1",
		day,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return stats, nil
}

func GetDailyStats(fromDay string, toDay string) ([]*dbtypes.DailyStats, error) {
	stats := []*dbtypes.DailyStats{}
	err := ReaderDb.Select(&stats,
		"SELECT "+dailyStatsColumns+" FROM daily_stats WHERE day >= $1 AND day <= $2 ORDER BY day DESC",
		fromDay, toDay,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// DeleteEmptyDailyStats drops day buckets whose counters dropped to zero
// after a rollback.
func DeleteEmptyDailyStats(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DELETE FROM daily_stats WHERE block_count <= 0`)
	return err
}

const networkStatsColumns = "id, latest_block, latest_block_hash, total_blocks, total_transactions, total_transfers, total_addresses, updated_at"

func GetNetworkStats() (*dbtypes.NetworkStats, error) {
	stats := &dbtypes.NetworkStats{}
	err := ReaderDb.Get(stats,
		"SELECT "+networkStatsColumns+" FROM network_stats WHERE id = 1",
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return stats, nil
}

// ApplyNetworkStatsDelta updates the singleton network stats row. latestBlock
// and latestBlockHash are set absolutely, the counters add up.
func ApplyNetworkStatsDelta(latestBlock uint64, latestBlockHash []byte, blockDelta int64, txDelta int64, transferDelta int64, addressCount uint64, tx *sqlx.Tx) error {
	now := uint64(time.Now().Unix())
	_, err := tx.Exec(EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
			INSERT INTO network_stats (` + networkStatsColumns + `)
			VALUES (1, $1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				latest_block = excluded.latest_block,
				latest_block_hash = excluded.latest_block_hash,
				total_blocks = network_stats.total_blocks + excluded.total_blocks,
				total_transactions = network_stats.total_transactions + excluded.total_transactions,
				total_transfers = network_stats.total_transfers + excluded.total_transfers,
				total_addresses = excluded.total_addresses,
				updated_at = excluded.updated_at`,
		dbtypes.DBEngineSqlite: `
			INSERT INTO network_stats (` + networkStatsColumns + `)
			VALUES (1, $1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				latest_block = excluded.latest_block,
				latest_block_hash = excluded.latest_block_hash,
				total_blocks = network_stats.total_blocks + excluded.total_blocks,
				total_transactions = network_stats.total_transactions + excluded.total_transactions,
				total_transfers = network_stats.total_transfers + excluded.total_transfers,
				total_addresses = excluded.total_addresses,
				updated_at = excluded.updated_at`,
	}), latestBlock, latestBlockHash, blockDelta, txDelta, transferDelta, addressCount, now)
	if err != nil {
		return err
	}
	return nil
}
