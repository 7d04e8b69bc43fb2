package dbtypes

const (
	TxStatusFailed  uint8 = 0
	TxStatusSuccess uint8 = 1
	TxStatusUnknown uint8 = 2
)

// Transaction represents an indexed transaction
type Transaction struct {
	Hash             []byte `db:"hash"`
	BlockNumber      uint64 `db:"block_number"`
	BlockHash        []byte `db:"block_hash"`
	BlockTimestamp   uint64 `db:"block_timestamp"`
	TransactionIndex uint   `db:"transaction_index"`

	FromAddress []byte `db:"from_address"`
	ToAddress   []byte `db:"to_address"`
	Value       []byte `db:"value"`
	Nonce       uint64 `db:"nonce"`

	GasLimit             uint64  `db:"gas_limit"`
	GasUsed              uint64  `db:"gas_used"`
	GasPrice             *uint64 `db:"gas_price"`
	EffectiveGasPrice    *uint64 `db:"effective_gas_price"`
	MaxFeePerGas         *uint64 `db:"max_fee_per_gas"`
	MaxPriorityFeePerGas *uint64 `db:"max_priority_fee_per_gas"`

	InputData  []byte  `db:"input_data"`
	MethodId   []byte  `db:"method_id"`
	MethodName *string `db:"method_name"`

	TxType          uint8  `db:"tx_type"`
	Status          uint8  `db:"status"`
	ContractAddress []byte `db:"contract_address"`
	LogsCount       uint   `db:"logs_count"`
}

// TransactionLog represents a raw event log emitted by a transaction
type TransactionLog struct {
	TransactionHash []byte `db:"transaction_hash"`
	LogIndex        uint   `db:"log_index"`
	BlockNumber     uint64 `db:"block_number"`
	BlockHash       []byte `db:"block_hash"`
	Address         []byte `db:"address"`
	Topic0          []byte `db:"topic0"`
	Topic1          []byte `db:"topic1"`
	Topic2          []byte `db:"topic2"`
	Topic3          []byte `db:"topic3"`
	Data            []byte `db:"data"`
	EventName       *string `db:"event_name"`
}

// InternalTransaction represents a value-bearing call frame extracted
// from a block trace.
type InternalTransaction struct {
	TransactionHash []byte  `db:"transaction_hash"`
	TraceIndex      uint    `db:"trace_index"`
	BlockNumber     uint64  `db:"block_number"`
	CallType        string  `db:"call_type"`
	FromAddress     []byte  `db:"from_address"`
	ToAddress       []byte  `db:"to_address"`
	Value           []byte  `db:"value"`
	GasUsed         uint64  `db:"gas_used"`
	ErrorMsg        *string `db:"error_msg"`
}
