package normalize

import (
	"regexp"
	"strconv"

	"github.com/blocksecteam/hookscan/ir"
)

var (
	reUpdateOffset    = regexp.MustCompile(`^update_storage_value_offset(\d+)_(.+)$`)
	reUpdatePlain     = regexp.MustCompile(`^update_storage_value_(.+)$`)
	reSetToZero       = regexp.MustCompile(`^storage_set_to_zero_(.+)$`)
	rePushFrom        = regexp.MustCompile(`^array_push_from_(.+)$`)
	rePushZero        = regexp.MustCompile(`^array_push_zero_(.+)$`)
	rePop             = regexp.MustCompile(`^array_pop_(.+)$`)
	reReadOffset      = regexp.MustCompile(`^read_from_storage_split_offset(\d+)_(.+)$`)
	reReadDynamic     = regexp.MustCompile(`^read_from_storage_split_dynamic_(.+)$`)
	reReadDynamicAlt  = regexp.MustCompile(`^read_from_storage__dynamic_split_(.+)$`)
	reArrayIndex      = regexp.MustCompile(`^storage_array_index_access_(.+)$`)
	reMappingIndex    = regexp.MustCompile(`^mapping_index_access_(.+)_of_(.+)$`)
	reArrayLenStorage = regexp.MustCompile(`^array_length_(.+)_storage(?:_ptr)?$`)
	reDataSlot        = regexp.MustCompile(`^array_dataslot_(.+)$`)
)

// tryStorage recognizes the storage helper families spec.md §4.2 names,
// returning the typed replacement built from args in positional order.
func tryStorage(a *ir.Arena, name string, args []ir.Value) (ir.Instruction, bool) {
	switch {
	case reUpdateOffset.MatchString(name):
		m := reUpdateOffset.FindStringSubmatch(name)
		off, _ := strconv.Atoi(m[1])
		return buildUpdate(a, m[2], ir.StorageUpdateCommon, off, args), true
	case reSetToZero.MatchString(name):
		m := reSetToZero.FindStringSubmatch(name)
		return buildUpdate(a, m[1], ir.StorageUpdateCleanStorage, 0, args), true
	case rePushFrom.MatchString(name):
		m := rePushFrom.FindStringSubmatch(name)
		return buildUpdate(a, m[1], ir.StorageUpdateArrayPush, 0, args), true
	case rePushZero.MatchString(name):
		m := rePushZero.FindStringSubmatch(name)
		return buildUpdate(a, m[1], ir.StorageUpdateArrayPushZero, 0, args), true
	case rePop.MatchString(name):
		m := rePop.FindStringSubmatch(name)
		return buildUpdate(a, m[1], ir.StorageUpdateArrayPop, 0, args), true
	case reUpdatePlain.MatchString(name):
		m := reUpdatePlain.FindStringSubmatch(name)
		return buildUpdate(a, m[1], ir.StorageUpdateCommon, 0, args), true
	case reReadOffset.MatchString(name):
		m := reReadOffset.FindStringSubmatch(name)
		off, _ := strconv.Atoi(m[1])
		return ir.NewStorageReadInst(a, m[2], off, arg(args, 0)), true
	case reReadDynamicAlt.MatchString(name):
		m := reReadDynamicAlt.FindStringSubmatch(name)
		return ir.NewStorageReadInst(a, m[1], -1, arg(args, 0)), true
	case reReadDynamic.MatchString(name):
		m := reReadDynamic.FindStringSubmatch(name)
		return ir.NewStorageReadInst(a, m[1], -1, arg(args, 0)), true
	case reArrayIndex.MatchString(name):
		m := reArrayIndex.FindStringSubmatch(name)
		return ir.NewStorageIndexInst(a, ir.StorageIndexArray, m[1], arg(args, 0), arg(args, 1), 0), true
	case reMappingIndex.MatchString(name):
		m := reMappingIndex.FindStringSubmatch(name)
		return ir.NewStorageIndexInst(a, ir.StorageIndexMapping, m[2], arg(args, 0), arg(args, 1), 0), true
	case reArrayLenStorage.MatchString(name):
		m := reArrayLenStorage.FindStringSubmatch(name)
		return ir.NewStorageArrayLengthInst(a, m[1], arg(args, 0)), true
	case reDataSlot.MatchString(name):
		m := reDataSlot.FindStringSubmatch(name)
		return ir.NewDataSlotInst(a, m[1], arg(args, 0)), true
	}
	return nil, false
}

// buildUpdate assembles a StorageUpdateInst. The value operand is
// omitted for clean_storage/array_pop, which only ever take a slot
// (spec.md §3's five update shapes).
func buildUpdate(a *ir.Arena, typeStr string, action ir.StorageUpdateAction, offset int, args []ir.Value) *ir.StorageUpdateInst {
	slot := arg(args, 0)
	var value ir.Value
	if action != ir.StorageUpdateCleanStorage && action != ir.StorageUpdateArrayPop {
		value = arg(args, 1)
	}
	return ir.NewStorageUpdateInst(a, typeStr, action, offset, slot, value)
}
