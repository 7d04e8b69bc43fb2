package dbtypes

const (
	TokenTypeERC20   = "erc20"
	TokenTypeERC721  = "erc721"
	TokenTypeERC1155 = "erc1155"
)

const (
	TokenMetadataPending uint8 = 0
	TokenMetadataFetched uint8 = 1
	TokenMetadataFailed  uint8 = 2
)

// Token represents a discovered token contract
type Token struct {
	Address   []byte  `db:"address"`
	TokenType string  `db:"token_type"`
	Name      *string `db:"name"`
	Symbol    *string `db:"symbol"`
	Decimals  *uint8  `db:"decimals"`

	HolderCount   uint64 `db:"holder_count"`
	TransferCount uint64 `db:"transfer_count"`

	MetadataStatus  uint8  `db:"metadata_status"`
	DiscoveredBlock uint64 `db:"discovered_block"`
	NeedsRecompute  bool   `db:"needs_recompute"`
}

// TokenTransfer is a decoded transfer event, unique per (tx hash, log index, batch index)
type TokenTransfer struct {
	TransactionHash []byte `db:"transaction_hash"`
	LogIndex        uint   `db:"log_index"`
	BatchIndex      uint   `db:"batch_index"`
	BlockNumber     uint64 `db:"block_number"`
	BlockHash       []byte `db:"block_hash"`
	BlockTimestamp  uint64 `db:"block_timestamp"`

	TokenAddress []byte `db:"token_address"`
	TokenType    string `db:"token_type"`
	FromAddress  []byte `db:"from_address"`
	ToAddress    []byte `db:"to_address"`
	Value        []byte `db:"value"`
	TokenId      []byte `db:"token_id"`
}

// TokenHolder is the running balance of one (token, holder[, tokenId]) tuple
type TokenHolder struct {
	TokenAddress     []byte `db:"token_address"`
	HolderAddress    []byte `db:"holder_address"`
	TokenId          []byte `db:"token_id"`
	Balance          []byte `db:"balance"`
	LastUpdatedBlock uint64 `db:"last_updated_block"`
}
