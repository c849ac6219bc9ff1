// Package memory implements the allocation-addressed virtual memory
// described in spec §4.3: a table of allocations, each an ordered
// sequence of symbolic bytes plus relocation and definedness tracking,
// manipulated only through bounds- and alignment-checked operations.
//
// Grounded on internal/core's allocation-indexed view of a process's
// address space (internal/core/read.go's Process.ReadAt family) and
// internal/gocore's typed-read helpers layered on top of it, adapted
// from "bytes of a captured core dump" to "bytes of a live, mutable,
// partly-unknown virtual address space" per original_source/src/memory.rs.
package memory

import "github.com/spacejam/seer/value"

// Kind classifies why an allocation exists, driving mutability and
// lifecycle rules (spec §3's Allocation.kind).
type Kind uint8

const (
	Heap Kind = iota
	StackLocal
	StaticImmutable
	StaticMutable
	Function
	AbstractInput
	ZeroSized
)

func (k Kind) String() string {
	switch k {
	case Heap:
		return "heap"
	case StackLocal:
		return "stack-local"
	case StaticImmutable:
		return "static-immutable"
	case StaticMutable:
		return "static-mutable"
	case Function:
		return "function"
	case AbstractInput:
		return "abstract-input"
	case ZeroSized:
		return "zero-sized"
	default:
		return "invalid"
	}
}

// Allocation is one entry in the memory manager's table: a byte
// sequence plus the metadata that governs what is legal to do with it.
type Allocation struct {
	ID    value.AllocID
	Bytes []value.SByte

	// Relocations maps a byte offset to the allocation a pointer
	// stored at that offset addresses. An offset present here owns the
	// next arch.PointerSize bytes as one indivisible unit.
	Relocations map[uint64]value.AllocID

	// Undef[i] is true iff Bytes[i] holds a defined value.
	Undef []bool

	Align   uint64
	Mutable bool
	Kind    Kind
	Packed  bool
	Freed   bool

	// Sealed is set once a static's initializing frame returns
	// (StackPopCleanup::MarkStatic); after that Mutable cannot change.
	Sealed bool
}

func newAllocation(id value.AllocID, size, align uint64, kind Kind, mutable bool) *Allocation {
	return &Allocation{
		ID:          id,
		Bytes:       make([]value.SByte, size),
		Relocations: make(map[uint64]value.AllocID),
		Undef:       make([]bool, size),
		Align:       align,
		Mutable:     mutable,
		Kind:        kind,
	}
}

func (a *Allocation) size() uint64 { return uint64(len(a.Bytes)) }

// clone returns a deep copy of the allocation, for Memory.Clone's
// per-fork copy-on-fork semantics (spec §9: "cloneable evaluator
// states").
func (a *Allocation) clone() *Allocation {
	out := &Allocation{
		ID:      a.ID,
		Bytes:   make([]value.SByte, len(a.Bytes)),
		Undef:   make([]bool, len(a.Undef)),
		Align:   a.Align,
		Mutable: a.Mutable,
		Kind:    a.Kind,
		Packed:  a.Packed,
		Freed:   a.Freed,
		Sealed:  a.Sealed,
	}
	copy(out.Bytes, a.Bytes)
	copy(out.Undef, a.Undef)
	out.Relocations = make(map[uint64]value.AllocID, len(a.Relocations))
	for k, v := range a.Relocations {
		out.Relocations[k] = v
	}
	return out
}

// allDefined reports whether every byte in [offset, offset+size) is
// marked defined.
func (a *Allocation) allDefined(offset, size uint64) bool {
	for i := offset; i < offset+size; i++ {
		if !a.Undef[i] {
			return false
		}
	}
	return true
}

func (a *Allocation) markDefined(offset, size uint64) {
	for i := offset; i < offset+size; i++ {
		a.Undef[i] = true
	}
}

// clearRelocationsOverlapping removes any relocation entry whose
// ptr_size-byte span intersects [offset, offset+size) — Open Question
// (c)'s resolution: a write that only partially overlaps a relocation
// still invalidates that relocation entirely, rather than leaving a
// torn pointer behind.
func (a *Allocation) clearRelocationsOverlapping(offset, size uint64, ptrSize uint64) {
	lo, hi := offset, offset+size
	for relOffset := range a.Relocations {
		relHi := relOffset + ptrSize
		if relOffset < hi && lo < relHi {
			delete(a.Relocations, relOffset)
		}
	}
}

// relocationAt reports the relocation starting exactly at offset, if any.
func (a *Allocation) relocationAt(offset uint64) (value.AllocID, bool) {
	id, ok := a.Relocations[offset]
	return id, ok
}

// relocationOverlapping reports whether any relocation's span
// intersects [offset, offset+size) without starting exactly at offset.
func (a *Allocation) relocationOverlapping(offset, size uint64, ptrSize uint64) bool {
	lo, hi := offset, offset+size
	for relOffset := range a.Relocations {
		if relOffset == offset {
			continue
		}
		relHi := relOffset + ptrSize
		if relOffset < hi && lo < relHi {
			return true
		}
	}
	return false
}
