package api

import (
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexBytes(t *testing.T) {
	decoded, ok := parseHexBytes("0x00112233445566778899aabbccddeeff00112233", 20)
	require.True(t, ok)
	assert.Len(t, decoded, 20)
	assert.Equal(t, byte(0x33), decoded[19])

	// prefix is optional, case is ignored
	decoded, ok = parseHexBytes("00112233445566778899AABBCCDDEEFF00112233", 20)
	require.True(t, ok)
	assert.Len(t, decoded, 20)

	_, ok = parseHexBytes("0x001122", 20)
	assert.False(t, ok)

	_, ok = parseHexBytes("0xzzzz", 0)
	assert.False(t, ok)

	decoded, ok = parseHexBytes("0x001122", 0)
	require.True(t, ok)
	assert.Len(t, decoded, 3)
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/blocks?limit=25&offset=50", nil)
	offset, limit := parsePagination(r, 10, 100)
	assert.Equal(t, uint64(50), offset)
	assert.Equal(t, uint32(25), limit)

	r = httptest.NewRequest("GET", "/api/v1/blocks", nil)
	offset, limit = parsePagination(r, 10, 100)
	assert.Equal(t, uint64(0), offset)
	assert.Equal(t, uint32(10), limit)

	r = httptest.NewRequest("GET", "/api/v1/blocks?limit=5000", nil)
	_, limit = parsePagination(r, 10, 100)
	assert.Equal(t, uint32(100), limit)

	r = httptest.NewRequest("GET", "/api/v1/blocks?limit=abc&offset=-1", nil)
	offset, limit = parsePagination(r, 10, 100)
	assert.Equal(t, uint64(0), offset)
	assert.Equal(t, uint32(10), limit)
}

func TestBigBytesToString(t *testing.T) {
	assert.Equal(t, "0", bigBytesToString(nil))
	assert.Equal(t, "0", bigBytesToString([]byte{}))
	assert.Equal(t, "1000", bigBytesToString(big.NewInt(1000).Bytes()))

	// 2^128, beyond json-safe integer range
	huge := new(big.Int).Lsh(big.NewInt(1), 128)
	assert.Equal(t, "340282366920938463463374607431768211456", bigBytesToString(huge.Bytes()))
}

func TestBytesToHex(t *testing.T) {
	assert.Equal(t, "", bytesToHex(nil))
	assert.Equal(t, "0x", bytesToHex([]byte{}))
	assert.Equal(t, "0xdeadbeef", bytesToHex([]byte{0xde, 0xad, 0xbe, 0xef}))
}
