package value

import "testing"

func TestPrimValConcreteness(t *testing.T) {
	cases := []struct {
		name string
		v    PrimVal
		want bool
	}{
		{"bytes", FromUint64(42), true},
		{"concrete pointer", FromPointer(NewPointer(5, 8)), true},
		{"symbolic pointer", FromPointer(Pointer{Alloc: 5, Offset: AbstractOffset([8]SByte{})}), false},
		{"undef", Undef(), false},
		{"abstract", FromAbstract([8]SByte{}), false},
	}
	for _, c := range cases {
		if got := c.v.IsConcrete(); got != c.want {
			t.Errorf("%s: IsConcrete() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestPrimValRoundTrip(t *testing.T) {
	v := FromUint64(0xdeadbeef)
	bytes, ok := v.ToBytes()
	if !ok {
		t.Fatalf("ToBytes failed on a concrete Bytes value")
	}
	if bytes.Uint64() != 0xdeadbeef {
		t.Errorf("got %#x, want %#x", bytes.Uint64(), uint64(0xdeadbeef))
	}
}

func TestPointerToBytesFails(t *testing.T) {
	p := FromPointer(NewPointer(1, 0))
	if _, ok := p.ToBytes(); ok {
		t.Errorf("ToBytes should fail on a Pointer PrimVal")
	}
}

func TestPrimValKindWidths(t *testing.T) {
	cases := map[PrimValKind]uint64{
		I8: 1, U8: 1, Bool: 1,
		I16: 2, U16: 2,
		I32: 4, U32: 4, F32: 4, Char: 4,
		I64: 8, U64: 8, F64: 8, Ptr: 8,
		I128: 16, U128: 16,
	}
	for k, want := range cases {
		if got := k.NumBytes(); got != want {
			t.Errorf("%v.NumBytes() = %d, want %d", k, got, want)
		}
	}
}

func TestValueKinds(t *testing.T) {
	v := FromPrimVal(FromUint64(7))
	if v.Kind != ByValue {
		t.Errorf("expected ByValue")
	}
	pair := FromPair(FromUint64(1), FromUint64(2))
	if pair.Kind != ByPair {
		t.Errorf("expected ByPair")
	}
	ref := FromRef(NewPointer(3, 0))
	if ref.Kind != ByRef {
		t.Errorf("expected ByRef")
	}
}
