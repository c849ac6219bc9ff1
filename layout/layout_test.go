package layout

import (
	"testing"

	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/value"
)

// fixtureTypeSystem is a minimal, hand-built TypeSystem used only by
// this package's tests — not a production implementation, mirroring
// how ogle's tests stub dwarf.Data rather than reading a real binary.
type fixtureTypeSystem struct {
	sizes   map[uint64]int64
	aligns  map[uint64]int64
	layouts map[uint64]Shape
	prims   map[uint64]value.PrimValKind
}

func (f *fixtureTypeSystem) Size(ty ir.Ty) (int64, bool) {
	s, ok := f.sizes[ty.ID]
	return s, ok
}
func (f *fixtureTypeSystem) Align(ty ir.Ty) int64 { return f.aligns[ty.ID] }
func (f *fixtureTypeSystem) Layout(ty ir.Ty) (Shape, error) {
	s, ok := f.layouts[ty.ID]
	if !ok {
		return Shape{}, evalerror.New(evalerror.Layout, ty.Name)
	}
	return s, nil
}
func (f *fixtureTypeSystem) Discriminants(ir.Ty) []int64 { return nil }
func (f *fixtureTypeSystem) PrimitiveKind(ty ir.Ty) (value.PrimValKind, bool) {
	k, ok := f.prims[ty.ID]
	return k, ok
}
func (f *fixtureTypeSystem) EraseRegions(ty ir.Ty) ir.Ty                      { return ty }
func (f *fixtureTypeSystem) Monomorphize(ty ir.Ty, _ ir.Substs) ir.Ty         { return ty }
func (f *fixtureTypeSystem) Normalize(ty ir.Ty) ir.Ty                         { return ty }
func (f *fixtureTypeSystem) Resolve(ir.DefID, ir.Substs) (ir.Instance, error) { return ir.Instance{}, nil }
func (f *fixtureTypeSystem) ResolveClosure(ir.DefID, ir.Substs, ir.ClosureKind) (ir.Instance, error) {
	return ir.Instance{}, nil
}
func (f *fixtureTypeSystem) ResolveDrop(ir.Ty) (ir.Instance, error) { return ir.Instance{}, nil }
func (f *fixtureTypeSystem) TraitSelect(TraitRef) (value.Pointer, error) {
	return value.Pointer{}, nil
}

func TestIsSized(t *testing.T) {
	ts := &fixtureTypeSystem{sizes: map[uint64]int64{1: 8}}
	if !IsSized(ts, ir.Ty{ID: 1}) {
		t.Fatalf("expected ty 1 to be sized")
	}
	if IsSized(ts, ir.Ty{ID: 2}) {
		t.Fatalf("expected ty 2 (no recorded size) to be unsized")
	}
}

func TestShapeFieldOffset(t *testing.T) {
	s := Shape{
		Kind:         Univariant,
		FieldOffsets: []int64{0, 8},
		FieldTypes:   []ir.Ty{{ID: 10, Name: "i64"}, {ID: 11, Name: "bool"}},
		Align:        8,
	}
	off, ty, ok := s.FieldOffset(1)
	if !ok || off != 8 || ty.Name != "bool" {
		t.Fatalf("got (%d, %v, %v), want (8, bool, true)", off, ty, ok)
	}
	if _, _, ok := s.FieldOffset(5); ok {
		t.Fatalf("expected out-of-range field index to fail")
	}
	if s.FieldCount() != 2 {
		t.Fatalf("got field count %d, want 2", s.FieldCount())
	}
}

func TestShapeVariantFieldOffset(t *testing.T) {
	s := Shape{
		Kind: General,
		Variants: []VariantLayout{
			{Discriminant: 0, FieldOffsets: []int64{0}, FieldTypes: []ir.Ty{{ID: 1}}},
			{Discriminant: 1, FieldOffsets: []int64{0, 4}, FieldTypes: []ir.Ty{{ID: 1}, {ID: 2}}},
		},
	}
	off, _, ok := s.VariantFieldOffset(1, 1)
	if !ok || off != 4 {
		t.Fatalf("got (%d, %v), want (4, true)", off, ok)
	}
}

func TestShapeIsFatPointer(t *testing.T) {
	s := Shape{Kind: FatPointer, Metadata: MetadataSliceLength}
	if !s.IsFatPointer() {
		t.Fatalf("expected FatPointer shape to report as such")
	}
}

func TestLayoutFailsNoMirStyleError(t *testing.T) {
	ts := &fixtureTypeSystem{layouts: map[uint64]Shape{}}
	_, err := ts.Layout(ir.Ty{ID: 99, Name: "mystery"})
	if !evalerror.Is(err, evalerror.Layout) {
		t.Fatalf("expected a Layout error, got %v", err)
	}
}
