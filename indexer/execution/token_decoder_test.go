package execution

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub001/dbtypes"
)

func addressTopic(address common.Address) common.Hash {
	return common.BytesToHash(address.Bytes())
}

func uintWord(value *big.Int) []byte {
	word := make([]byte, 32)
	value.FillBytes(word)
	return word
}

func TestDecodeErc20Transfer(t *testing.T) {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	log := &ethtypes.Log{
		Topics: []common.Hash{transferEventSig, addressTopic(from), addressTopic(to)},
		Data:   uintWord(big.NewInt(1000)),
	}

	events, known := DecodeTokenTransfers(log)
	require.True(t, known)
	require.Len(t, events, 1)

	assert.Equal(t, dbtypes.TokenTypeERC20, events[0].TokenType)
	assert.Equal(t, from, events[0].From)
	assert.Equal(t, to, events[0].To)
	assert.Equal(t, int64(1000), events[0].Value.Int64())
	assert.Nil(t, events[0].TokenId)
}

func TestDecodeErc721Transfer(t *testing.T) {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokenId := big.NewInt(42)

	log := &ethtypes.Log{
		Topics: []common.Hash{transferEventSig, addressTopic(from), addressTopic(to), common.BytesToHash(uintWord(tokenId))},
	}

	events, known := DecodeTokenTransfers(log)
	require.True(t, known)
	require.Len(t, events, 1)

	assert.Equal(t, dbtypes.TokenTypeERC721, events[0].TokenType)
	assert.Equal(t, int64(1), events[0].Value.Int64())
	require.NotNil(t, events[0].TokenId)
	assert.Equal(t, int64(42), events[0].TokenId.Int64())
}

func TestDecodeErc1155TransferSingle(t *testing.T) {
	operator := common.HexToAddress("0x3333333333333333333333333333333333333333")
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	data := append(uintWord(big.NewInt(7)), uintWord(big.NewInt(500))...)
	log := &ethtypes.Log{
		Topics: []common.Hash{transferSingleEventSig, addressTopic(operator), addressTopic(from), addressTopic(to)},
		Data:   data,
	}

	events, known := DecodeTokenTransfers(log)
	require.True(t, known)
	require.Len(t, events, 1)

	assert.Equal(t, dbtypes.TokenTypeERC1155, events[0].TokenType)
	assert.Equal(t, from, events[0].From)
	assert.Equal(t, to, events[0].To)
	assert.Equal(t, int64(7), events[0].TokenId.Int64())
	assert.Equal(t, int64(500), events[0].Value.Int64())
}

func TestDecodeErc1155TransferBatch(t *testing.T) {
	operator := common.HexToAddress("0x3333333333333333333333333333333333333333")
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	// abi encoding of (uint256[]{1,2}, uint256[]{10,20})
	data := []byte{}
	data = append(data, uintWord(big.NewInt(64))...)  // offset ids
	data = append(data, uintWord(big.NewInt(160))...) // offset values
	data = append(data, uintWord(big.NewInt(2))...)   // len ids
	data = append(data, uintWord(big.NewInt(1))...)
	data = append(data, uintWord(big.NewInt(2))...)
	data = append(data, uintWord(big.NewInt(2))...) // len values
	data = append(data, uintWord(big.NewInt(10))...)
	data = append(data, uintWord(big.NewInt(20))...)

	log := &ethtypes.Log{
		Topics: []common.Hash{transferBatchEventSig, addressTopic(operator), addressTopic(from), addressTopic(to)},
		Data:   data,
	}

	events, known := DecodeTokenTransfers(log)
	require.True(t, known)
	require.Len(t, events, 2)

	assert.Equal(t, int64(1), events[0].TokenId.Int64())
	assert.Equal(t, int64(10), events[0].Value.Int64())
	assert.Equal(t, uint(0), events[0].BatchIndex)

	assert.Equal(t, int64(2), events[1].TokenId.Int64())
	assert.Equal(t, int64(20), events[1].Value.Int64())
	assert.Equal(t, uint(1), events[1].BatchIndex)
}

func TestDecodeUnknownEvent(t *testing.T) {
	log := &ethtypes.Log{
		Topics: []common.Hash{common.HexToHash("0xdeadbeef")},
		Data:   uintWord(big.NewInt(1)),
	}

	events, known := DecodeTokenTransfers(log)
	assert.False(t, known)
	assert.Nil(t, events)

	events, known = DecodeTokenTransfers(&ethtypes.Log{})
	assert.False(t, known)
	assert.Nil(t, events)
}

func TestDecodeMalformedTransfer(t *testing.T) {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	// known signature but truncated payload
	log := &ethtypes.Log{
		Topics: []common.Hash{transferEventSig, addressTopic(from), addressTopic(to)},
		Data:   []byte{0x01},
	}

	events, known := DecodeTokenTransfers(log)
	assert.True(t, known)
	assert.Nil(t, events)

	// batch with mismatched array lengths
	data := []byte{}
	data = append(data, uintWord(big.NewInt(64))...)
	data = append(data, uintWord(big.NewInt(128))...)
	data = append(data, uintWord(big.NewInt(1))...)
	data = append(data, uintWord(big.NewInt(5))...)
	data = append(data, uintWord(big.NewInt(0))...)

	log = &ethtypes.Log{
		Topics: []common.Hash{transferBatchEventSig, addressTopic(from), addressTopic(from), addressTopic(to)},
		Data:   data,
	}

	events, known = DecodeTokenTransfers(log)
	assert.True(t, known)
	assert.Nil(t, events)

	// batch with a huge ids-length word that would overflow a naive
	// size check and crash the allocation
	data = []byte{}
	data = append(data, uintWord(big.NewInt(64))...)
	data = append(data, uintWord(big.NewInt(96))...)
	data = append(data, uintWord(new(big.Int).Lsh(big.NewInt(1), 59))...)
	data = append(data, uintWord(big.NewInt(0))...)

	log = &ethtypes.Log{
		Topics: []common.Hash{transferBatchEventSig, addressTopic(from), addressTopic(from), addressTopic(to)},
		Data:   data,
	}

	events, known = DecodeTokenTransfers(log)
	assert.True(t, known)
	assert.Nil(t, events)
}

func TestBigToBytes(t *testing.T) {
	assert.Equal(t, []byte{0}, bigToBytes(nil))
	assert.Equal(t, []byte{0}, bigToBytes(big.NewInt(0)))
	assert.Equal(t, []byte{0x03, 0xe8}, bigToBytes(big.NewInt(1000)))
}
