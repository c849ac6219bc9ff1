package lvalue

import (
	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/layout"
	"github.com/spacejam/seer/memory"
	"github.com/spacejam/seer/value"
)

// ForceAllocation promotes a ByValue or ByPair local to ByRef by
// writing its current contents into a fresh allocation and returning
// a KindPtr lvalue addressing it — the operation spec §4.4 names for
// "the address is taken or the type is aggregate" (spec §3's Value
// note). A local already ByRef is returned unchanged.
func ForceAllocation(mem *memory.Memory, ts layout.TypeSystem, local value.Value, ty ir.Ty) (Lvalue, value.Value, error) {
	if local.Kind == value.ByRef {
		return FromPtr(local.Ref), local, nil
	}

	size, ok := ts.Size(ty)
	if !ok {
		return Lvalue{}, value.Value{}, evalerror.New(evalerror.Layout, "cannot force-allocate an unsized value")
	}
	align := ts.Align(ty)

	ptr, err := mem.Allocate(uint64(size), uint64(align))
	if err != nil {
		return Lvalue{}, value.Value{}, err
	}

	switch local.Kind {
	case value.ByValue:
		if size > 0 {
			if err := mem.WritePrimVal(ptr, local.Val, uint64(size)); err != nil {
				return Lvalue{}, value.Value{}, err
			}
		}
	case value.ByPair:
		half := uint64(size) / 2
		if half > 0 {
			if err := mem.WritePrimVal(ptr, local.Pair[0], half); err != nil {
				return Lvalue{}, value.Value{}, err
			}
			if err := mem.WritePrimVal(ptr.Add(int64(half)), local.Pair[1], uint64(size)-half); err != nil {
				return Lvalue{}, value.Value{}, err
			}
		}
	}

	return FromPtr(ptr), value.FromRef(ptr), nil
}
