package memory

import (
	"github.com/dchest/siphash"

	"github.com/spacejam/seer/arch"
	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/symbolic"
	"github.com/spacejam/seer/value"
)

// DefaultCap is the total-bytes allocation cap spec §4.3 names as the
// default out-of-memory threshold.
const DefaultCap = 100 * 1024 * 1024

// Memory is the manager for every allocation in one execution state:
// the allocation table, the out-of-memory cap, and the constraint
// store every symbolic-offset operation consults. Mirroring
// original_source/src/memory.rs's Memory embedding its EvalContext's
// constraints field, constraints lives here rather than in frame so
// that pointer bound/alignment checks can push feasibility queries
// without reaching back up into the evaluator.
type Memory struct {
	arch        *arch.Architecture
	constraints *symbolic.Store

	allocs map[value.AllocID]*Allocation
	cache  map[uint64]value.AllocID
	nextID value.AllocID

	cap  uint64
	used uint64
}

// New builds an empty memory manager. cap is the total-bytes
// allocation ceiling; 0 selects DefaultCap.
func New(a *arch.Architecture, constraints *symbolic.Store, cap uint64) *Memory {
	if cap == 0 {
		cap = DefaultCap
	}
	return &Memory{
		arch:        a,
		constraints: constraints,
		allocs:      make(map[value.AllocID]*Allocation),
		cache:       make(map[uint64]value.AllocID),
		nextID:      value.FirstRealAllocID,
		cap:         cap,
	}
}

// Constraints returns the constraint store backing symbolic offset and
// alignment checks.
func (m *Memory) Constraints() *symbolic.Store { return m.constraints }

// PointerSize returns the guest architecture's pointer width in bytes.
func (m *Memory) PointerSize() int { return m.arch.PointerSize }

// Clone returns an independent copy of the memory manager: every
// allocation is deep-copied, and the constraint store is forked (spec
// §9's copy-on-fork requirement for the branching executor). The
// content-addressing cache is shared verbatim since it is keyed purely
// by byte content and every cached allocation is immutable.
func (m *Memory) Clone() *Memory {
	clone := &Memory{
		arch:        m.arch,
		constraints: m.constraints.Fork(),
		allocs:      make(map[value.AllocID]*Allocation, len(m.allocs)),
		cache:       m.cache,
		nextID:      m.nextID,
		cap:         m.cap,
		used:        m.used,
	}
	for id, a := range m.allocs {
		clone.allocs[id] = a.clone()
	}
	return clone
}

func isPowerOfTwo(n uint64) bool { return n != 0 && n&(n-1) == 0 }

func (m *Memory) reserve(size uint64) error {
	if m.used+size > m.cap {
		return evalerror.NoMemory(size, m.cap)
	}
	m.used += size
	return nil
}

func (m *Memory) insert(a *Allocation) value.Pointer {
	a.ID = m.nextID
	m.nextID++
	m.allocs[a.ID] = a
	return value.NewPointer(a.ID, 0)
}

// Allocate reserves size bytes of fresh, fully-undefined heap memory.
func (m *Memory) Allocate(size, align uint64) (value.Pointer, error) {
	if !isPowerOfTwo(align) {
		return value.Pointer{}, evalerror.Misaligned(align, 0)
	}
	kind := Heap
	if size == 0 {
		kind = ZeroSized
	} else if err := m.reserve(size); err != nil {
		return value.Pointer{}, err
	}
	return m.insert(newAllocation(0, size, align, kind, true)), nil
}

// AllocateAbstract is Allocate, except every byte starts as an
// independent fresh symbolic unknown rather than undefined — the
// shape a revealed program input takes (spec §4.3).
func (m *Memory) AllocateAbstract(size, align uint64) (value.Pointer, error) {
	ptr, err := m.Allocate(size, align)
	if err != nil {
		return value.Pointer{}, err
	}
	a := m.allocs[ptr.Alloc]
	a.Kind = AbstractInput
	symBytes := m.constraints.FreshAbstractBytes(int(size))
	copy(a.Bytes, symBytes)
	a.markDefined(0, size)
	return ptr, nil
}

// AllocateCached interns bytes, returning the same allocation on a
// later call with identical contents. The allocation is immutable.
// Content addressing uses siphash (as SnellerInc/sneller's block
// indexing does for its row-group keys) rather than Go's built-in
// map-over-string hashing, so the cache key is stable and explicit
// about the 128-bit keyed hash being non-cryptographic-but-even.
func (m *Memory) AllocateCached(bytes []byte) (value.Pointer, error) {
	key := siphash.Hash(0, 0, bytes)
	if id, ok := m.cache[key]; ok {
		if existing, ok := m.allocs[id]; ok && sameBytes(existing, bytes) {
			return value.NewPointer(id, 0), nil
		}
	}
	ptr, err := m.Allocate(uint64(len(bytes)), 1)
	if err != nil {
		return value.Pointer{}, err
	}
	a := m.allocs[ptr.Alloc]
	for i, b := range bytes {
		a.Bytes[i] = value.ConcreteByte(b)
	}
	a.markDefined(0, uint64(len(bytes)))
	a.Mutable = false
	a.Kind = StaticImmutable
	m.cache[key] = a.ID
	return ptr, nil
}

func sameBytes(a *Allocation, bytes []byte) bool {
	if len(a.Bytes) != len(bytes) {
		return false
	}
	for i, b := range bytes {
		if !a.Bytes[i].IsConcrete() || a.Bytes[i].Concrete() != b {
			return false
		}
	}
	return true
}

// Deallocate frees a heap allocation addressed at offset zero.
func (m *Memory) Deallocate(ptr value.Pointer) error {
	a, err := m.lookup(ptr.Alloc)
	if err != nil {
		return err
	}
	if !ptr.Offset.IsConcrete() || ptr.Offset.Concrete() != 0 {
		return evalerror.New(evalerror.InvalidMemoryAccess, "deallocate called with a non-zero offset")
	}
	switch a.Kind {
	case StaticImmutable, StaticMutable:
		return evalerror.New(evalerror.DeallocatedStaticMemory, "")
	case Function:
		return evalerror.New(evalerror.InvalidMemoryAccess, "cannot deallocate a function allocation")
	}
	if a.Freed {
		return evalerror.New(evalerror.InvalidMemoryAccess, "double free")
	}
	a.Freed = true
	m.used -= a.size()
	return nil
}

// MarkStatic converts id to a static-immutable allocation outright
// (used for pre-seeded read-only globals that never go through an
// initializing frame).
func (m *Memory) MarkStatic(id value.AllocID) error {
	a, err := m.lookup(id)
	if err != nil {
		return err
	}
	a.Kind = StaticImmutable
	a.Mutable = false
	a.Sealed = true
	return nil
}

// MarkStaticInitialized seals id as a static with the given
// mutability, per StackPopCleanup::MarkStatic (spec §4.6.1): the
// initializing frame just returned, so the slot stops accepting writes
// except through whatever mutability it is sealed with.
func (m *Memory) MarkStaticInitialized(id value.AllocID, mutable bool) error {
	a, err := m.lookup(id)
	if err != nil {
		return err
	}
	if mutable {
		a.Kind = StaticMutable
	} else {
		a.Kind = StaticImmutable
	}
	a.Mutable = mutable
	a.Sealed = true
	return nil
}

// MarkInnerAllocation recursively seals an allocation reached through
// a pointer inside an already-sealed static, per the MarkStatic
// cleanup's walk over reachable allocations.
func (m *Memory) MarkInnerAllocation(id value.AllocID, mutable bool) error {
	return m.MarkStaticInitialized(id, mutable)
}

// MarkPacked suppresses alignment checks on the allocation ptr
// addresses; stride is ignored, since only the allocation identity
// matters for the check itself.
func (m *Memory) MarkPacked(ptr value.Pointer, stride uint64) error {
	a, err := m.lookup(ptr.Alloc)
	if err != nil {
		return err
	}
	a.Packed = true
	_ = stride
	return nil
}

// LeakReport counts heap allocations that were never freed, the
// diagnostic spec §4.3 wants surfaced at shutdown.
func (m *Memory) LeakReport() int {
	n := 0
	for _, a := range m.allocs {
		if a.Kind == Heap && !a.Freed {
			n++
		}
	}
	return n
}

func (m *Memory) lookup(id value.AllocID) (*Allocation, error) {
	switch id {
	case value.NullAllocID:
		return nil, evalerror.New(evalerror.InvalidMemoryAccess, "dereferenced a null pointer")
	case value.DanglingAllocID:
		return nil, evalerror.New(evalerror.DanglingPointerDeref, "")
	case value.FunctionAllocID:
		return nil, evalerror.New(evalerror.ExecuteMemory, "")
	}
	a, ok := m.allocs[id]
	if !ok {
		return nil, evalerror.New(evalerror.InvalidMemoryAccess, "no allocation with that id")
	}
	if a.Freed {
		return nil, evalerror.New(evalerror.DanglingPointerDeref, "")
	}
	return a, nil
}

// Allocation exposes the table entry for allocation id, for callers
// (layout resolution, leak diagnostics) that need to inspect it
// directly rather than through a typed accessor.
func (m *Memory) Allocation(id value.AllocID) (*Allocation, error) {
	return m.lookup(id)
}

// concreteOffset resolves ptr to a concrete byte offset, bounds-checks
// [offset, offset+size) against alloc, and returns both. Symbolic
// pointer offsets cannot address concrete memory cells directly in
// this core: only offset arithmetic and comparison are symbolic-aware
// (via package symbolic); indexing memory through a symbolic address
// is outside this spec's scope (§1 names the SMT backend, not an
// array memory theory, as the external collaborator).
func (m *Memory) concreteOffset(a *Allocation, ptr value.Pointer, size uint64) (uint64, error) {
	if !ptr.Offset.IsConcrete() {
		return 0, evalerror.New(evalerror.InvalidMemoryAccess, "cannot index memory with a symbolic pointer offset")
	}
	offset := ptr.Offset.Concrete()
	if offset+size > a.size() {
		return 0, evalerror.OutOfBounds(ptr, size, a.size())
	}
	return offset, nil
}

// CheckAlign verifies ptr satisfies align-byte alignment for a
// size-byte access. A concrete offset is checked directly; a symbolic
// offset instead asks the store's oracle whether the alignment guard
// is feasible alongside the path condition and fails only if the
// oracle reports it cannot hold (spec §4.3); the guard itself is not
// pushed onto the path condition.
func (m *Memory) CheckAlign(ptr value.Pointer, align, size uint64) error {
	a, err := m.lookup(ptr.Alloc)
	if err != nil {
		return err
	}
	if a.Packed {
		return nil
	}
	if ptr.Offset.IsConcrete() {
		if ptr.Offset.Concrete()%align != 0 {
			return evalerror.Misaligned(align, ptr.Offset.Concrete()%align)
		}
		return nil
	}
	offsetVal := value.FromAbstract(ptr.Offset.Symbolic())
	modResult, _, err := m.constraints.AddBinOp(ir.Rem, offsetVal, value.FromUint64(align), value.U64)
	if err != nil {
		return err
	}
	guard := &symbolic.Expr{
		Kind:  symbolic.ExprBinOp,
		Op:    ir.Eq,
		Left:  symbolic.Leaf(modResult, value.U64),
		Right: symbolic.Leaf(value.FromUint64(0), value.U64),
	}
	ok, err := m.constraints.Feasible(guard)
	if err != nil {
		return err
	}
	if !ok {
		return evalerror.Misaligned(align, 0)
	}
	return nil
}
