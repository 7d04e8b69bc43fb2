package execution

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
)

// Event signatures of the recognized transfer events. Everything else is
// stored as a raw log without classification.
var (
	// Transfer(address,address,uint256) - shared by ERC20 and ERC721,
	// distinguished by topic count (ERC721 indexes the tokenId)
	transferEventSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

	// TransferSingle(address,address,address,uint256,uint256)
	transferSingleEventSig = crypto.Keccak256Hash([]byte("TransferSingle(address,address,address,uint256,uint256)"))

	// TransferBatch(address,address,address,uint256[],uint256[])
	transferBatchEventSig = crypto.Keccak256Hash([]byte("TransferBatch(address,address,address,uint256[],uint256[])"))
)

// TokenTransferEvent is one decoded transfer. A TransferBatch log expands
// into multiple events, numbered by BatchIndex.
type TokenTransferEvent struct {
	TokenType  string
	From       common.Address
	To         common.Address
	Value      *big.Int
	TokenId    *big.Int
	BatchIndex uint
}

// DecodeTokenTransfers classifies a log via its topic0 signature and decodes
// the transfer payload. The second return value is false if the log is no
// known transfer event. A malformed payload on a known signature returns
// (nil, true) so the caller can flag the anomaly.
func DecodeTokenTransfers(log *ethtypes.Log) ([]*TokenTransferEvent, bool) {
	if len(log.Topics) == 0 {
		return nil, false
	}

	switch log.Topics[0] {
	case transferEventSig:
		return decodeTransferEvent(log), true
	case transferSingleEventSig:
		return decodeTransferSingleEvent(log), true
	case transferBatchEventSig:
		return decodeTransferBatchEvent(log), true
	}
	return nil, false
}

func decodeTransferEvent(log *ethtypes.Log) []*TokenTransferEvent {
	switch len(log.Topics) {
	case 3:
		// ERC20: value in data
		if len(log.Data) < 32 {
			return nil
		}
		return []*TokenTransferEvent{{
			TokenType: dbtypes.TokenTypeERC20,
			From:      common.BytesToAddress(log.Topics[1].Bytes()),
			To:        common.BytesToAddress(log.Topics[2].Bytes()),
			Value:     new(big.Int).SetBytes(log.Data[0:32]),
		}}
	case 4:
		// ERC721: tokenId as indexed topic
		return []*TokenTransferEvent{{
			TokenType: dbtypes.TokenTypeERC721,
			From:      common.BytesToAddress(log.Topics[1].Bytes()),
			To:        common.BytesToAddress(log.Topics[2].Bytes()),
			Value:     big.NewInt(1),
			TokenId:   new(big.Int).SetBytes(log.Topics[3].Bytes()),
		}}
	}
	return nil
}

func decodeTransferSingleEvent(log *ethtypes.Log) []*TokenTransferEvent {
	// topics: sig, operator, from, to / data: id, value
	if len(log.Topics) < 4 || len(log.Data) < 64 {
		return nil
	}
	return []*TokenTransferEvent{{
		TokenType: dbtypes.TokenTypeERC1155,
		From:      common.BytesToAddress(log.Topics[2].Bytes()),
		To:        common.BytesToAddress(log.Topics[3].Bytes()),
		TokenId:   new(big.Int).SetBytes(log.Data[0:32]),
		Value:     new(big.Int).SetBytes(log.Data[32:64]),
	}}
}

func decodeTransferBatchEvent(log *ethtypes.Log) []*TokenTransferEvent {
	// topics: sig, operator, from, to
	// data: abi-encoded (uint256[] ids, uint256[] values)
	if len(log.Topics) < 4 || len(log.Data) < 64 {
		return nil
	}

	from := common.BytesToAddress(log.Topics[2].Bytes())
	to := common.BytesToAddress(log.Topics[3].Bytes())

	idsOffset, ok := decodeAbiOffset(log.Data, 0)
	if !ok {
		return nil
	}
	valuesOffset, ok := decodeAbiOffset(log.Data, 32)
	if !ok {
		return nil
	}

	ids, ok := decodeAbiUintArray(log.Data, idsOffset)
	if !ok {
		return nil
	}
	values, ok := decodeAbiUintArray(log.Data, valuesOffset)
	if !ok || len(ids) != len(values) {
		return nil
	}

	events := make([]*TokenTransferEvent, len(ids))
	for i := range ids {
		events[i] = &TokenTransferEvent{
			TokenType:  dbtypes.TokenTypeERC1155,
			From:       from,
			To:         to,
			TokenId:    ids[i],
			Value:      values[i],
			BatchIndex: uint(i),
		}
	}
	return events
}

func decodeAbiOffset(data []byte, pos int) (int, bool) {
	if len(data) < pos+32 {
		return 0, false
	}
	offset := new(big.Int).SetBytes(data[pos : pos+32])
	if !offset.IsInt64() || offset.Int64() > int64(len(data)) {
		return 0, false
	}
	return int(offset.Int64()), true
}

func decodeAbiUintArray(data []byte, offset int) ([]*big.Int, bool) {
	if len(data) < offset+32 {
		return nil, false
	}
	length := new(big.Int).SetBytes(data[offset : offset+32])
	if !length.IsInt64() {
		return nil, false
	}
	// bound the count by the remaining payload before allocating, a
	// hostile length word would overflow a count*32 size check
	count := int(length.Int64())
	if count < 0 || count > (len(data)-offset-32)/32 {
		return nil, false
	}

	values := make([]*big.Int, count)
	for i := 0; i < count; i++ {
		pos := offset + 32 + i*32
		values[i] = new(big.Int).SetBytes(data[pos : pos+32])
	}
	return values, true
}

// bigToBytes normalizes a big.Int to its big-endian byte representation,
// with zero encoded as a single zero byte.
func bigToBytes(value *big.Int) []byte {
	if value == nil || value.Sign() == 0 {
		return []byte{0}
	}
	return value.Bytes()
}
