package uniswaphook

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/sha3"
)

// keccakSelector hashes signature with Keccak-256 and returns its first
// four bytes as a big-endian uint32, the same
// `sha3.NewLegacyKeccak256` construction
// _examples/core-coin-go-core/crypto/crypto.go's Keccak256 uses.
func keccakSelector(signature string) uint32 {
	d := sha3.NewLegacyKeccak256()
	d.Write([]byte(signature))
	sum := d.Sum(nil)
	return binary.BigEndian.Uint32(sum[:4])
}

// TestSelectorsMatchKeccak guards selectors.go's hand-copied literals
// against a transcription error: every constant here must equal the
// first four bytes of Keccak-256(signature), exactly how solc derives
// a function selector.
func TestSelectorsMatchKeccak(t *testing.T) {
	cases := map[string]uint32{
		"name()":                              erc20Name,
		"symbol()":                            erc20Symbol,
		"decimals()":                          erc20Decimals,
		"totalSupply()":                       erc20TotalSupply,
		"balanceOf(address)":                  erc20BalanceOf,
		"transfer(address,uint256)":           erc20Transfer,
		"transferFrom(address,address,uint256)": erc20TransferFrom,
		"approve(address,uint256)":            erc20Approve,
		"allowance(address,address)":          erc20Allowance,

		"tokenURI(uint256)":                        erc721TokenURI,
		"ownerOf(uint256)":                          erc721OwnerOf,
		"safeTransferFrom(address,address,uint256,bytes)": erc721SafeTransferFromWithData,
		"safeTransferFrom(address,address,uint256)":       erc721SafeTransferFrom,
		"setApprovalForAll(address,bool)":                 erc721SetApprovalForAll,
		"getApproved(uint256)":                            erc721GetApproved,
		"isApprovedForAll(address,address)":               erc721IsApprovedForAll,

		"safeBatchTransferFrom(address,address,uint256[],uint256[],bytes)": erc1155SafeBatchTransferFrom,
		"safeTransferFrom(address,address,uint256,uint256,bytes)":         erc1155SafeTransferFrom,

		"lock(bytes)":                lockSelector,
		"lock(address,bytes)":        lockWithAddress,
		"lockAcquired(bytes)":        lockAcquired,
		"lockAcquired(address,bytes)": lockAcquiredAddress,

		"afterDonate(address,(address,address,uint24,int24,address),uint256,uint256)":                              0x43C4407E,
		"afterInitialize(address,(address,address,uint24,int24,address),uint160,int24)":                           0x6FE7E6EB,
		"afterModifyPosition(address,(address,address,uint24,int24,address),(int24,int24,int256),int256)":         0x0E2059F5,
		"afterSwap(address,(address,address,uint24,int24,address),(bool,int256,uint160),int256)":                  0xA5AA370A,
		"beforeDonate(address,(address,address,uint24,int24,address),uint256,uint256)":                            0x4DBB99A6,
		"beforeInitialize(address,(address,address,uint24,int24,address),uint160)":                                0xDC98354E,
		"beforeModifyPosition(address,(address,address,uint24,int24,address),(int24,int24,int256))":               0x0DBE5DBD,
		"beforeSwap(address,(address,address,uint24,int24,address),(bool,int256,uint160))":                        0xB3F97F80,
		"afterDonate(address,(address,address,uint24,int24,address),uint256,uint256,bytes)":                       0xE1B4AF69,
		"afterInitialize(address,(address,address,uint24,int24,address),uint160,int24,bytes)":                     0xA910F80F,
		"afterModifyPosition(address,(address,address,uint24,int24,address),(int24,int24,int256),int256,bytes)":   0x30B7CDEF,
		"afterSwap(address,(address,address,uint24,int24,address),(bool,int256,uint160),int256,bytes)":            0xB47B2FB1,
		"beforeDonate(address,(address,address,uint24,int24,address),uint256,uint256,bytes)":                      0xB6A8B0FA,
		"beforeInitialize(address,(address,address,uint24,int24,address),uint160,bytes)":                         0x3440D820,
		"beforeModifyPosition(address,(address,address,uint24,int24,address),(int24,int24,int256),bytes)":        0xFE9A6F45,
		"beforeSwap(address,(address,address,uint24,int24,address),(bool,int256,uint160),bytes)":                 0x575E24B4,
	}

	for signature, want := range cases {
		got := keccakSelector(signature)
		assert.Equalf(t, want, got, "selector for %s", signature)
	}
}
