package dbtypes

// DailyStats is a per-UTC-day rollup, updated incrementally per ingested block
type DailyStats struct {
	Day              string `db:"day"`
	BlockCount       uint64 `db:"block_count"`
	TransactionCount uint64 `db:"transaction_count"`
	TransferCount    uint64 `db:"transfer_count"`
	GasUsed          uint64 `db:"gas_used"`
	TotalFees        []byte `db:"total_fees"`
}

// NetworkStats is the global singleton rollup (id is always 1)
type NetworkStats struct {
	Id                uint64 `db:"id"`
	LatestBlock       uint64 `db:"latest_block"`
	LatestBlockHash   []byte `db:"latest_block_hash"`
	TotalBlocks       uint64 `db:"total_blocks"`
	TotalTransactions uint64 `db:"total_transactions"`
	TotalTransfers    uint64 `db:"total_transfers"`
	TotalAddresses    uint64 `db:"total_addresses"`
	UpdatedAt         uint64 `db:"updated_at"`
}
