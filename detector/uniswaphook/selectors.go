// Package uniswaphook holds the built-in detector set for Uniswap V4
// style hook contracts (spec.md §4.8), grounded on
// original_source/hookscan/detectors/uniswap_hook and
// original_source/uniscan/detectors/uniswap_hook.
package uniswaphook

// ERC20/ERC721 selector constants, bit-exact with
// original_source/hookscan/utils/selector_table.py.
const (
	erc20Name         uint32 = 0x06FDDE03
	erc20Symbol       uint32 = 0x95D89B41
	erc20Decimals     uint32 = 0x313CE567
	erc20TotalSupply  uint32 = 0x18160DDD
	erc20BalanceOf    uint32 = 0x70A08231
	erc20Transfer     uint32 = 0xA9059CBB
	erc20TransferFrom uint32 = 0x23B872DD
	erc20Approve      uint32 = 0x095EA7B3
	erc20Allowance    uint32 = 0xDD62ED3E

	erc721Name                       uint32 = 0x06FDDE03
	erc721Symbol                     uint32 = 0x95D89B41
	erc721TokenURI                   uint32 = 0xC87B56DD
	erc721BalanceOf                  uint32 = 0x70A08231
	erc721OwnerOf                    uint32 = 0x6352211E
	erc721SafeTransferFromWithData   uint32 = 0xB88D4FDE
	erc721SafeTransferFrom           uint32 = 0x42842E0E
	erc721TransferFrom               uint32 = 0x23B872DD
	erc721Approve                    uint32 = 0x095EA7B3
	erc721SetApprovalForAll          uint32 = 0xA22CB465
	erc721GetApproved                uint32 = 0x081812FC
	erc721IsApprovedForAll           uint32 = 0xE985E9C5

	erc1155SafeBatchTransferFrom uint32 = 0x2EB2C2D6
	erc1155SafeTransferFrom      uint32 = 0xF242432A

	lockSelector        uint32 = 0x81548319 // lock(bytes)
	lockWithAddress     uint32 = 0x9CA17998 // lock(address,bytes)
	lockAcquired        uint32 = 0xAB6291FE // lockAcquired(bytes)
	lockAcquiredAddress uint32 = 0x15C7AFB4 // lockAcquired(address,bytes)
)

// tokenTransferSelectors is the set of ERC20/ERC721/ERC1155 transfer
// selectors UniswapRugHook treats as "moving value", grounded on
// uniswap_rug_hook.py's literal set.
var tokenTransferSelectors = map[uint32]bool{
	erc20Transfer:                 true,
	erc20TransferFrom:             true,
	erc721SafeTransferFrom:        true,
	erc721SafeTransferFromWithData: true,
	erc721TransferFrom:            true,
	erc1155SafeBatchTransferFrom:  true,
	erc1155SafeTransferFrom:       true,
}

// knownHookSelectors is UniswapPublicHook's candidate set: the only
// selectors it ever considers flagging at all (every other externally
// reachable selector is out of scope for this detector, not merely
// excluded from it), bit-exact with uniswap_public_hook.py's literal set
// (hooks at 3b724503d4c3fa4872ac0b4f9b12f694774224a4 and
// 06564d33b2fa6095830c914461ee64d34d39c305, plus both lockAcquired
// shapes).
var knownHookSelectors = map[uint32]bool{
	0x43C4407E: true, // afterDonate(address,(address,address,uint24,int24,address),uint256,uint256)
	0x6FE7E6EB: true, // afterInitialize(address,(address,address,uint24,int24,address),uint160,int24)
	0x0E2059F5: true, // afterModifyPosition(address,(address,address,uint24,int24,address),(int24,int24,int256),int256)
	0xA5AA370A: true, // afterSwap(address,(address,address,uint24,int24,address),(bool,int256,uint160),int256)
	0x4DBB99A6: true, // beforeDonate(address,(address,address,uint24,int24,address),uint256,uint256)
	0xDC98354E: true, // beforeInitialize(address,(address,address,uint24,int24,address),uint160)
	0x0DBE5DBD: true, // beforeModifyPosition(address,(address,address,uint24,int24,address),(int24,int24,int256))
	0xB3F97F80: true, // beforeSwap(address,(address,address,uint24,int24,address),(bool,int256,uint160))
	0xE1B4AF69: true, // afterDonate(address,(address,address,uint24,int24,address),uint256,uint256,bytes)
	0xA910F80F: true, // afterInitialize(address,(address,address,uint24,int24,address),uint160,int24,bytes)
	0x30B7CDEF: true, // afterModifyPosition(address,(address,address,uint24,int24,address),(int24,int24,int256),int256,bytes)
	0xB47B2FB1: true, // afterSwap(address,(address,address,uint24,int24,address),(bool,int256,uint160),int256,bytes)
	0xB6A8B0FA: true, // beforeDonate(address,(address,address,uint24,int24,address),uint256,uint256,bytes)
	0x3440D820: true, // beforeInitialize(address,(address,address,uint24,int24,address),uint160,bytes)
	0xFE9A6F45: true, // beforeModifyPosition(address,(address,address,uint24,int24,address),(int24,int24,int256),bytes)
	0x575E24B4: true, // beforeSwap(address,(address,address,uint24,int24,address),(bool,int256,uint160),bytes)
	lockAcquired:        true,
	lockAcquiredAddress: true,
}
