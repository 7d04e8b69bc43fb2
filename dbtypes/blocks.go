package dbtypes

// Block represents an indexed block
type Block struct {
	Number     uint64 `db:"number"`
	Hash       []byte `db:"hash"`
	ParentHash []byte `db:"parent_hash"`
	Timestamp  uint64 `db:"timestamp"`
	Miner      []byte `db:"miner"`

	Size          uint64  `db:"size"`
	GasUsed       uint64  `db:"gas_used"`
	GasLimit      uint64  `db:"gas_limit"`
	BaseFeePerGas *uint64 `db:"base_fee_per_gas"`
	ExtraData     []byte  `db:"extra_data"`
	Difficulty    []byte  `db:"difficulty"`

	TransactionCount uint   `db:"transaction_count"`
	TransferCount    uint   `db:"transfer_count"`
	TotalFees        []byte `db:"total_fees"`
}

// BlockFilter represents filter options for block list queries
type BlockFilter struct {
	MinNumber    *uint64
	MaxNumber    *uint64
	MinTimestamp *uint64
	MaxTimestamp *uint64
	Miner        []byte
}
