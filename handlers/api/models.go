package api

import (
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
)

type APIBlockV1 struct {
	Number     uint64 `json:"number"`
	Hash       string `json:"hash"`
	ParentHash string `json:"parent_hash"`
	Timestamp  uint64 `json:"timestamp"`
	Miner      string `json:"miner"`

	Size          uint64  `json:"size"`
	GasUsed       uint64  `json:"gas_used"`
	GasLimit      uint64  `json:"gas_limit"`
	BaseFeePerGas *uint64 `json:"base_fee_per_gas,omitempty"`
	ExtraData     string  `json:"extra_data"`
	Difficulty    string  `json:"difficulty"`

	TransactionCount uint   `json:"transaction_count"`
	TransferCount    uint   `json:"transfer_count"`
	TotalFees        string `json:"total_fees"`
}

type APITransactionV1 struct {
	Hash             string `json:"hash"`
	BlockNumber      uint64 `json:"block_number"`
	BlockHash        string `json:"block_hash"`
	BlockTimestamp   uint64 `json:"block_timestamp"`
	TransactionIndex uint   `json:"transaction_index"`

	From  string `json:"from"`
	To    string `json:"to,omitempty"`
	Value string `json:"value"`
	Nonce uint64 `json:"nonce"`

	GasLimit             uint64  `json:"gas_limit"`
	GasUsed              uint64  `json:"gas_used"`
	GasPrice             *uint64 `json:"gas_price,omitempty"`
	EffectiveGasPrice    *uint64 `json:"effective_gas_price,omitempty"`
	MaxFeePerGas         *uint64 `json:"max_fee_per_gas,omitempty"`
	MaxPriorityFeePerGas *uint64 `json:"max_priority_fee_per_gas,omitempty"`

	MethodId   string  `json:"method_id,omitempty"`
	MethodName *string `json:"method_name,omitempty"`

	TxType          uint8  `json:"tx_type"`
	Status          uint8  `json:"status"`
	ContractAddress string `json:"contract_address,omitempty"`
	LogsCount       uint   `json:"logs_count"`
}

type APITransactionLogV1 struct {
	LogIndex  uint     `json:"log_index"`
	Address   string   `json:"address"`
	Topics    []string `json:"topics"`
	Data      string   `json:"data"`
	EventName *string  `json:"event_name,omitempty"`
}

type APIInternalTransactionV1 struct {
	TraceIndex uint    `json:"trace_index"`
	CallType   string  `json:"call_type"`
	From       string  `json:"from"`
	To         string  `json:"to"`
	Value      string  `json:"value"`
	GasUsed    uint64  `json:"gas_used"`
	Error      *string `json:"error,omitempty"`
}

type APIAddressV1 struct {
	Address string `json:"address"`
	Balance string `json:"balance"`

	TxCount         uint64 `json:"tx_count"`
	SentTxCount     uint64 `json:"sent_tx_count"`
	ReceivedTxCount uint64 `json:"received_tx_count"`

	IsContract bool `json:"is_contract"`

	FirstSeenBlock uint64 `json:"first_seen_block"`
	LastSeenBlock  uint64 `json:"last_seen_block"`
	FirstSeenTime  uint64 `json:"first_seen_time"`
	LastSeenTime   uint64 `json:"last_seen_time"`
}

type APITokenV1 struct {
	Address   string  `json:"address"`
	TokenType string  `json:"token_type"`
	Name      *string `json:"name,omitempty"`
	Symbol    *string `json:"symbol,omitempty"`
	Decimals  *uint8  `json:"decimals,omitempty"`

	HolderCount   uint64 `json:"holder_count"`
	TransferCount uint64 `json:"transfer_count"`

	DiscoveredBlock uint64 `json:"discovered_block"`
}

type APITokenTransferV1 struct {
	TransactionHash string `json:"transaction_hash"`
	LogIndex        uint   `json:"log_index"`
	BatchIndex      uint   `json:"batch_index"`
	BlockNumber     uint64 `json:"block_number"`
	BlockTimestamp  uint64 `json:"block_timestamp"`

	TokenAddress string `json:"token_address"`
	TokenType    string `json:"token_type"`
	From         string `json:"from"`
	To           string `json:"to"`
	Value        string `json:"value"`
	TokenId      string `json:"token_id,omitempty"`
}

type APITokenHolderV1 struct {
	HolderAddress    string `json:"holder_address"`
	TokenId          string `json:"token_id,omitempty"`
	Balance          string `json:"balance"`
	LastUpdatedBlock uint64 `json:"last_updated_block"`
}

type APIDailyStatsV1 struct {
	Day              string `json:"day"`
	BlockCount       uint64 `json:"block_count"`
	TransactionCount uint64 `json:"transaction_count"`
	TransferCount    uint64 `json:"transfer_count"`
	GasUsed          uint64 `json:"gas_used"`
	TotalFees        string `json:"total_fees"`
}

type APINetworkStatsV1 struct {
	LatestBlock       uint64 `json:"latest_block"`
	LatestBlockHash   string `json:"latest_block_hash"`
	TotalBlocks       uint64 `json:"total_blocks"`
	TotalTransactions uint64 `json:"total_transactions"`
	TotalTransfers    uint64 `json:"total_transfers"`
	TotalAddresses    uint64 `json:"total_addresses"`
	UpdatedAt         uint64 `json:"updated_at"`
}

func buildApiBlock(block *dbtypes.Block) *APIBlockV1 {
	return &APIBlockV1{
		Number:           block.Number,
		Hash:             bytesToHex(block.Hash),
		ParentHash:       bytesToHex(block.ParentHash),
		Timestamp:        block.Timestamp,
		Miner:            bytesToHex(block.Miner),
		Size:             block.Size,
		GasUsed:          block.GasUsed,
		GasLimit:         block.GasLimit,
		BaseFeePerGas:    block.BaseFeePerGas,
		ExtraData:        bytesToHex(block.ExtraData),
		Difficulty:       bigBytesToString(block.Difficulty),
		TransactionCount: block.TransactionCount,
		TransferCount:    block.TransferCount,
		TotalFees:        bigBytesToString(block.TotalFees),
	}
}

func buildApiTransaction(transaction *dbtypes.Transaction) *APITransactionV1 {
	return &APITransactionV1{
		Hash:                 bytesToHex(transaction.Hash),
		BlockNumber:          transaction.BlockNumber,
		BlockHash:            bytesToHex(transaction.BlockHash),
		BlockTimestamp:       transaction.BlockTimestamp,
		TransactionIndex:     transaction.TransactionIndex,
		From:                 bytesToHex(transaction.FromAddress),
		To:                   bytesToHex(transaction.ToAddress),
		Value:                bigBytesToString(transaction.Value),
		Nonce:                transaction.Nonce,
		GasLimit:             transaction.GasLimit,
		GasUsed:              transaction.GasUsed,
		GasPrice:             transaction.GasPrice,
		EffectiveGasPrice:    transaction.EffectiveGasPrice,
		MaxFeePerGas:         transaction.MaxFeePerGas,
		MaxPriorityFeePerGas: transaction.MaxPriorityFeePerGas,
		MethodId:             bytesToHex(transaction.MethodId),
		MethodName:           transaction.MethodName,
		TxType:               transaction.TxType,
		Status:               transaction.Status,
		ContractAddress:      bytesToHex(transaction.ContractAddress),
		LogsCount:            transaction.LogsCount,
	}
}

func buildApiTokenTransfer(transfer *dbtypes.TokenTransfer) *APITokenTransferV1 {
	return &APITokenTransferV1{
		TransactionHash: bytesToHex(transfer.TransactionHash),
		LogIndex:        transfer.LogIndex,
		BatchIndex:      transfer.BatchIndex,
		BlockNumber:     transfer.BlockNumber,
		BlockTimestamp:  transfer.BlockTimestamp,
		TokenAddress:    bytesToHex(transfer.TokenAddress),
		TokenType:       transfer.TokenType,
		From:            bytesToHex(transfer.FromAddress),
		To:              bytesToHex(transfer.ToAddress),
		Value:           bigBytesToString(transfer.Value),
		TokenId:         tokenIdString(transfer.TokenId),
	}
}

func buildApiToken(token *dbtypes.Token) *APITokenV1 {
	return &APITokenV1{
		Address:         bytesToHex(token.Address),
		TokenType:       token.TokenType,
		Name:            token.Name,
		Symbol:          token.Symbol,
		Decimals:        token.Decimals,
		HolderCount:     token.HolderCount,
		TransferCount:   token.TransferCount,
		DiscoveredBlock: token.DiscoveredBlock,
	}
}

func tokenIdString(tokenId []byte) string {
	if len(tokenId) == 0 {
		return ""
	}
	return bigBytesToString(tokenId)
}
