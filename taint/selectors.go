package taint

// High-level-call selectors named explicitly in spec.md §4.6's
// after-update refinement step, kept here (rather than only in
// detector/uniswaphook) since the refinement runs unconditionally for
// every STATICCALL, not just ones a particular detector cares about.
const (
	SelectorOwnerOf           uint32 = 0x6352211e
	SelectorIsApprovedForAll  uint32 = 0xe985e9c5
	SelectorGetApproved       uint32 = 0x081812fc
)

// NotConsiderProtectStandardSelector is the ERC-20/ERC-721
// "transfer-family" selector table spec.md §6 requires to be preserved
// bit-exactly: core ERC-20 methods plus the ERC-721 transfer/approval
// surface. A call to one of these is assumed to already carry its own
// access control, so detectors that flag "externally callable without a
// caller check" should not fire on it (spec.md §4.6, §4.8).
var NotConsiderProtectStandardSelector = map[uint32]bool{
	0xa9059cbb: true, // transfer(address,uint256)
	0x23b872dd: true, // transferFrom(address,address,uint256)
	0x095ea7b3: true, // approve(address,uint256)
	0x70a08231: true, // balanceOf(address)
	0x18160ddd: true, // totalSupply()
	0xdd62ed3e: true, // allowance(address,address)
	0xa22cb465: true, // setApprovalForAll(address,bool)
	0x42842e0e: true, // safeTransferFrom(address,address,uint256)
	0xb88d4fde: true, // safeTransferFrom(address,address,uint256,bytes)
	uint32(SelectorOwnerOf):          true,
	uint32(SelectorIsApprovedForAll): true,
	uint32(SelectorGetApproved):      true,
}
