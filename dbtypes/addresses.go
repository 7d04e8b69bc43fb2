package dbtypes

// Address represents the aggregated view of one address
type Address struct {
	Address []byte `db:"address"`
	Balance []byte `db:"balance"`

	TxCount         uint64 `db:"tx_count"`
	SentTxCount     uint64 `db:"sent_tx_count"`
	ReceivedTxCount uint64 `db:"received_tx_count"`

	IsContract bool `db:"is_contract"`

	FirstSeenBlock uint64 `db:"first_seen_block"`
	LastSeenBlock  uint64 `db:"last_seen_block"`
	FirstSeenTime  uint64 `db:"first_seen_time"`
	LastSeenTime   uint64 `db:"last_seen_time"`
}

// AddressDelta carries the per-block aggregate contribution for one address.
// Negative deltas are used to revert an orphaned block's contribution.
type AddressDelta struct {
	Address         []byte
	TxCount         int64
	SentTxCount     int64
	ReceivedTxCount int64
	SeenBlock       uint64
	SeenTime        uint64
	IsContract      bool
}
