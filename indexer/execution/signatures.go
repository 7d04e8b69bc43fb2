package execution

import (
	"encoding/hex"
)

// Known 4-byte method selectors and 32-byte event signatures. This is plain
// lookup data, the decoder itself stays signature-agnostic.
var methodSignatures = map[string]string{
	"a9059cbb": "transfer",
	"23b872dd": "transferFrom",
	"095ea7b3": "approve",
	"a22cb465": "setApprovalForAll",
	"42842e0e": "safeTransferFrom",
	"b88d4fde": "safeTransferFrom",
	"f242432a": "safeTransferFrom",
	"2eb2c2d6": "safeBatchTransferFrom",
	"40c10f19": "mint",
	"1249c58b": "mint",
	"42966c68": "burn",
	"d0e30db0": "deposit",
	"2e1a7d4d": "withdraw",
	"7ff36ab5": "swapExactETHForTokens",
	"38ed1739": "swapExactTokensForTokens",
	"18cbafe5": "swapExactTokensForETH",
	"e8e33700": "addLiquidity",
	"f305d719": "addLiquidityETH",
	"baa2abde": "removeLiquidity",
	"02751cec": "removeLiquidityETH",
	"ac9650d8": "multicall",
	"5ae401dc": "multicall",
}

var eventSignatures = map[string]string{
	"ddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef": "Transfer",
	"8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925": "Approval",
	"17307eab39ab6107e8899845ad3d59bd9653f200f220920489ca2b5937696c31": "ApprovalForAll",
	"c3d58168c5ae7397731d063d5bbf3d657854427343f4c083240f7aacaa2d0f62": "TransferSingle",
	"4a39dc06d4c0dbc64b70af90fd698a233a518aa5d07e595d983b8c0526c8f7fb": "TransferBatch",
	"e1fffcc4923d04b559f4d29a8bfc6cda04eb5b0d3c460751c2402c5c5cc9109c": "Deposit",
	"7fcf532c15f0a6db0bd6d0e038bea71d30d808c7d98cb3bf7268a95bf5081b65": "Withdrawal",
	"d78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822": "Swap",
	"1c411e9a96e071241c2f21f7726b17ae89e3cab4c78be50e062b03a9fffbbad1": "Sync",
	"8be0079c531659141344cd1fd0a4f28419497f9722a3daafe3b4186f6b6457e0": "OwnershipTransferred",
}

// LookupMethodName resolves a 4-byte selector to a human readable name.
func LookupMethodName(methodId []byte) *string {
	if len(methodId) != 4 {
		return nil
	}
	if name, ok := methodSignatures[hex.EncodeToString(methodId)]; ok {
		return &name
	}
	return nil
}

// LookupEventName resolves a topic0 hash to a human readable event name.
func LookupEventName(topic0 []byte) *string {
	if len(topic0) != 32 {
		return nil
	}
	if name, ok := eventSignatures[hex.EncodeToString(topic0)]; ok {
		return &name
	}
	return nil
}
