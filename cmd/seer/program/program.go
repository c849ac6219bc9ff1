// Package program loads a hand-authored JSON scenario into the shapes
// frame/executor need: an ir.Body per function, a layout.TypeSystem
// answering size/align/primitive-kind questions from a flat type
// table, and a layout.MIRProvider resolving a call's Instance to its
// Body. Producing real MIR from source is out of scope (spec §1) —
// this is the stand-in a thin CLI front end uses instead, the same
// role cmd/viewcore's core.Core/gocore.Core loaders play for a core
// dump: turn an external artifact into the interfaces the rest of the
// tool consumes.
//
// The scenario format only covers what a hand-written demo program
// needs to drive the evaluator: scalar locals, binary/unary/nullary
// rvalues, and Goto/SwitchInt/Assert/Call/Return/Unreachable
// terminators addressed by local variable (PlaceLocal only — field,
// deref, index, and downcast projections are exercised by frame's own
// tests, not by this loader). Drop terminators are likewise omitted:
// resolving drop glue needs a real type system's ResolveDrop, which a
// flat scenario file has no way to express.
package program

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/layout"
	"github.com/spacejam/seer/value"
)

// tyDecl is one entry in the scenario's flat type table.
type tyDecl struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Align int64  `json:"align"`
	// Prim names the PrimValKind this type carries ("u8", "i32",
	// "bool", "ptr", ...), or "" for an aggregate the scenario never
	// treats as a primitive.
	Prim string `json:"prim,omitempty"`
}

type tyRef struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

func (r tyRef) ir() ir.Ty { return ir.Ty{ID: r.ID, Name: r.Name} }

// constJSON is the literal form a Const operand carries; scenario
// files can only express the bit patterns value's public constructors
// build (concrete integers and booleans), never a pointer or symbolic
// byte — those only ever arise at runtime.
type constJSON struct {
	Kind string `json:"kind"` // "uint" or "bool"
	Uint uint64 `json:"uint,omitempty"`
	Bool bool   `json:"bool,omitempty"`
}

func (c constJSON) primVal() (value.PrimVal, error) {
	switch c.Kind {
	case "uint":
		return value.FromUint64(c.Uint), nil
	case "bool":
		return value.FromBool(c.Bool), nil
	default:
		return value.PrimVal{}, fmt.Errorf("program: unknown const kind %q", c.Kind)
	}
}

type operandJSON struct {
	Kind  string     `json:"kind"` // "copy", "move", "const"
	Local *ir.Local  `json:"local,omitempty"`
	Const *constJSON `json:"const,omitempty"`
	Ty    tyRef      `json:"ty"`
}

func (o operandJSON) ir() (ir.Operand, error) {
	switch o.Kind {
	case "copy":
		if o.Local == nil {
			return ir.Operand{}, fmt.Errorf("program: copy operand missing local")
		}
		return ir.Copy(ir.LocalPlace(*o.Local), o.Ty.ir()), nil
	case "move":
		if o.Local == nil {
			return ir.Operand{}, fmt.Errorf("program: move operand missing local")
		}
		return ir.Move(ir.LocalPlace(*o.Local), o.Ty.ir()), nil
	case "const":
		if o.Const == nil {
			return ir.Operand{}, fmt.Errorf("program: const operand missing value")
		}
		v, err := o.Const.primVal()
		if err != nil {
			return ir.Operand{}, err
		}
		return ir.Const(v, o.Ty.ir()), nil
	default:
		return ir.Operand{}, fmt.Errorf("program: unknown operand kind %q", o.Kind)
	}
}

var binOps = map[string]ir.BinOp{
	"add": ir.Add, "sub": ir.Sub, "mul": ir.Mul, "div": ir.Div, "rem": ir.Rem,
	"bitxor": ir.BitXor, "bitand": ir.BitAnd, "bitor": ir.BitOr,
	"shl": ir.Shl, "shr": ir.Shr,
	"eq": ir.Eq, "lt": ir.Lt, "le": ir.Le, "ne": ir.Ne, "ge": ir.Ge, "gt": ir.Gt,
	"offset": ir.Offset,
}

var unOps = map[string]ir.UnOp{"not": ir.Not, "neg": ir.Neg}

var nullOps = map[string]ir.NullOp{"box": ir.Box, "size_of": ir.SizeOf}

type rvalueJSON struct {
	Kind string `json:"kind"`

	Operand *operandJSON `json:"operand,omitempty"`

	BinOp string       `json:"binop,omitempty"`
	Left  *operandJSON `json:"left,omitempty"`
	Right *operandJSON `json:"right,omitempty"`

	UnOp string `json:"unop,omitempty"`

	Local *ir.Local `json:"local,omitempty"` // RvalueDiscriminant

	NullOp string `json:"nullop,omitempty"`
	Ty     tyRef  `json:"ty,omitempty"`
}

func (r rvalueJSON) ir() (ir.Rvalue, error) {
	switch r.Kind {
	case "use":
		op, err := r.Operand.ir()
		if err != nil {
			return ir.Rvalue{}, err
		}
		return ir.Rvalue{Kind: ir.RvalueUse, Operand: op}, nil

	case "binop", "checked_binop":
		op, ok := binOps[r.BinOp]
		if !ok {
			return ir.Rvalue{}, fmt.Errorf("program: unknown binop %q", r.BinOp)
		}
		left, err := r.Left.ir()
		if err != nil {
			return ir.Rvalue{}, err
		}
		right, err := r.Right.ir()
		if err != nil {
			return ir.Rvalue{}, err
		}
		kind := ir.RvalueBinaryOp
		if r.Kind == "checked_binop" {
			kind = ir.RvalueCheckedBinaryOp
		}
		return ir.Rvalue{Kind: kind, BinOp: op, Left: left, Right: right}, nil

	case "unop":
		op, ok := unOps[r.UnOp]
		if !ok {
			return ir.Rvalue{}, fmt.Errorf("program: unknown unop %q", r.UnOp)
		}
		operand, err := r.Operand.ir()
		if err != nil {
			return ir.Rvalue{}, err
		}
		return ir.Rvalue{Kind: ir.RvalueUnaryOp, UnOp: op, Operand: operand}, nil

	case "nullop":
		op, ok := nullOps[r.NullOp]
		if !ok {
			return ir.Rvalue{}, fmt.Errorf("program: unknown nullop %q", r.NullOp)
		}
		return ir.Rvalue{Kind: ir.RvalueNullaryOp, NullOp: op, Ty: r.Ty.ir()}, nil

	case "discriminant":
		if r.Local == nil {
			return ir.Rvalue{}, fmt.Errorf("program: discriminant rvalue missing local")
		}
		return ir.Rvalue{Kind: ir.RvalueDiscriminant, Place: ir.LocalPlace(*r.Local)}, nil

	default:
		return ir.Rvalue{}, fmt.Errorf("program: unknown rvalue kind %q", r.Kind)
	}
}

type statementJSON struct {
	Kind   string      `json:"kind"` // "assign" or "nop"
	Local  ir.Local    `json:"local,omitempty"`
	Rvalue *rvalueJSON `json:"rvalue,omitempty"`
}

func (s statementJSON) ir() (ir.Statement, error) {
	if s.Kind == "nop" {
		return ir.Statement{Kind: ir.StmtNop}, nil
	}
	if s.Rvalue == nil {
		return ir.Statement{}, fmt.Errorf("program: assign statement missing rvalue")
	}
	rv, err := s.Rvalue.ir()
	if err != nil {
		return ir.Statement{}, err
	}
	return ir.Statement{Kind: ir.StmtAssign, Place: ir.LocalPlace(s.Local), Rvalue: rv}, nil
}

type instanceJSON struct {
	Def       string  `json:"def"`
	Substs    []tyRef `json:"substs,omitempty"`
	Intrinsic string  `json:"intrinsic,omitempty"`
}

func (i instanceJSON) ir(defs map[string]ir.DefID) (ir.Instance, error) {
	if i.Intrinsic != "" {
		substs := make(ir.Substs, len(i.Substs))
		for j, s := range i.Substs {
			substs[j] = s.ir()
		}
		return ir.Instance{Substs: substs, Intrinsic: i.Intrinsic}, nil
	}
	def, ok := defs[i.Def]
	if !ok {
		return ir.Instance{}, fmt.Errorf("program: call to undeclared function %q", i.Def)
	}
	substs := make(ir.Substs, len(i.Substs))
	for j, s := range i.Substs {
		substs[j] = s.ir()
	}
	return ir.Instance{Def: def, Substs: substs}, nil
}

type terminatorJSON struct {
	Kind string `json:"kind"`

	Target *ir.BlockID `json:"target,omitempty"`

	Discr   *operandJSON `json:"discr,omitempty"`
	Values  []int64      `json:"values,omitempty"`
	Targets []ir.BlockID `json:"targets,omitempty"`

	Cond     *operandJSON `json:"cond,omitempty"`
	Expected bool         `json:"expected,omitempty"`
	Msg      string       `json:"msg,omitempty"`

	Callee     *instanceJSON `json:"callee,omitempty"`
	Args       []operandJSON `json:"args,omitempty"`
	Dest       *ir.Local     `json:"dest,omitempty"`
	DestTy     tyRef         `json:"dest_ty,omitempty"`
	CallTarget *ir.BlockID   `json:"call_target,omitempty"`
}

func (t terminatorJSON) ir(defs map[string]ir.DefID) (ir.Terminator, error) {
	switch t.Kind {
	case "goto":
		if t.Target == nil {
			return ir.Terminator{}, fmt.Errorf("program: goto terminator missing target")
		}
		return ir.Terminator{Kind: ir.TermGoto, Target: *t.Target}, nil

	case "switch_int":
		discr, err := t.Discr.ir()
		if err != nil {
			return ir.Terminator{}, err
		}
		return ir.Terminator{Kind: ir.TermSwitchInt, Discr: discr, Values: t.Values, Targets: t.Targets}, nil

	case "assert":
		cond, err := t.Cond.ir()
		if err != nil {
			return ir.Terminator{}, err
		}
		if t.Target == nil {
			return ir.Terminator{}, fmt.Errorf("program: assert terminator missing target")
		}
		return ir.Terminator{Kind: ir.TermAssert, Cond: cond, Expected: t.Expected, Msg: t.Msg, Target: *t.Target}, nil

	case "call":
		if t.Callee == nil {
			return ir.Terminator{}, fmt.Errorf("program: call terminator missing callee")
		}
		callee, err := t.Callee.ir(defs)
		if err != nil {
			return ir.Terminator{}, err
		}
		args := make([]ir.Operand, len(t.Args))
		for i, a := range t.Args {
			op, err := a.ir()
			if err != nil {
				return ir.Terminator{}, err
			}
			args[i] = op
		}
		term := ir.Terminator{Kind: ir.TermCall, Callee: callee, Args: args, CallTarget: t.CallTarget}
		if t.Dest != nil {
			term.Dest = ir.LocalPlace(*t.Dest)
			term.DestTy = t.DestTy.ir()
		}
		return term, nil

	case "return":
		return ir.Terminator{Kind: ir.TermReturn}, nil

	case "unreachable":
		return ir.Terminator{Kind: ir.TermUnreachable}, nil

	default:
		return ir.Terminator{}, fmt.Errorf("program: unknown terminator kind %q", t.Kind)
	}
}

type basicBlockJSON struct {
	Statements []statementJSON `json:"statements,omitempty"`
	Terminator terminatorJSON  `json:"terminator"`
}

func (b basicBlockJSON) ir(defs map[string]ir.DefID) (ir.BasicBlock, error) {
	stmts := make([]ir.Statement, len(b.Statements))
	for i, s := range b.Statements {
		st, err := s.ir()
		if err != nil {
			return ir.BasicBlock{}, err
		}
		stmts[i] = st
	}
	term, err := b.Terminator.ir(defs)
	if err != nil {
		return ir.BasicBlock{}, err
	}
	return ir.BasicBlock{Statements: stmts, Terminator: term}, nil
}

type localDeclJSON struct {
	Ty   tyRef  `json:"ty"`
	Name string `json:"name,omitempty"`
}

type bodyJSON struct {
	Blocks     []basicBlockJSON `json:"blocks"`
	LocalDecls []localDeclJSON  `json:"locals"`
	ArgCount   int              `json:"arg_count"`
	ReturnTy   tyRef            `json:"return_ty"`
}

func (b bodyJSON) ir(defs map[string]ir.DefID) (*ir.Body, error) {
	blocks := make([]ir.BasicBlock, len(b.Blocks))
	for i, bb := range b.Blocks {
		blk, err := bb.ir(defs)
		if err != nil {
			return nil, err
		}
		blocks[i] = blk
	}
	locals := make([]ir.LocalDecl, len(b.LocalDecls))
	for i, l := range b.LocalDecls {
		locals[i] = ir.LocalDecl{Ty: l.Ty.ir(), Name: l.Name}
	}
	return &ir.Body{Blocks: blocks, LocalDecls: locals, ArgCount: b.ArgCount, ReturnTy: b.ReturnTy.ir()}, nil
}

// scenario is the top-level JSON document cmd/seer reads: a flat type
// table, one Body per named function, and the entry point's name.
type scenario struct {
	Types  []tyDecl            `json:"types"`
	Bodies map[string]bodyJSON `json:"bodies"`
	Main   string              `json:"main"`
}

// Program bundles the loaded scenario into what executor.NewMain
// needs: a TypeSystem, a MIRProvider, and the main Instance.
type Program struct {
	TS   layout.TypeSystem
	MIR  layout.MIRProvider
	Main ir.Instance
}

// typeSystem answers every TypeSystem question from the scenario's
// flat type table; it never monomorphizes or resolves traits, since a
// hand-written scenario has no generics or trait objects to resolve
// (cmd/seer's tests wrap the same kind of fixture layout's own tests
// do — see layout's fixtureTypeSystem).
type typeSystem struct {
	sizes  map[uint64]int64
	aligns map[uint64]int64
	prims  map[uint64]value.PrimValKind
}

func (t *typeSystem) Size(ty ir.Ty) (int64, bool) { s, ok := t.sizes[ty.ID]; return s, ok }
func (t *typeSystem) Align(ty ir.Ty) int64        { return t.aligns[ty.ID] }
func (t *typeSystem) Layout(ty ir.Ty) (layout.Shape, error) {
	return layout.Shape{}, evalerror.New(evalerror.Layout, ty.Name)
}
func (t *typeSystem) Discriminants(ir.Ty) []int64 { return nil }
func (t *typeSystem) PrimitiveKind(ty ir.Ty) (value.PrimValKind, bool) {
	k, ok := t.prims[ty.ID]
	return k, ok
}
func (t *typeSystem) EraseRegions(ty ir.Ty) ir.Ty              { return ty }
func (t *typeSystem) Monomorphize(ty ir.Ty, _ ir.Substs) ir.Ty { return ty }
func (t *typeSystem) Normalize(ty ir.Ty) ir.Ty                 { return ty }
func (t *typeSystem) Resolve(def ir.DefID, substs ir.Substs) (ir.Instance, error) {
	return ir.Instance{Def: def, Substs: substs}, nil
}
func (t *typeSystem) ResolveClosure(def ir.DefID, substs ir.Substs, _ ir.ClosureKind) (ir.Instance, error) {
	return ir.Instance{Def: def, Substs: substs}, nil
}
func (t *typeSystem) ResolveDrop(ty ir.Ty) (ir.Instance, error) {
	return ir.Instance{}, evalerror.New(evalerror.NoMirFor, "program: scenario files declare no drop glue for "+ty.Name)
}
func (t *typeSystem) TraitSelect(ref layout.TraitRef) (value.Pointer, error) {
	return value.Pointer{}, evalerror.New(evalerror.Unimplemented, "program: scenario files declare no trait impls")
}

type mirProvider struct {
	bodies map[ir.DefID]*ir.Body
}

func (m mirProvider) MIRFor(instance ir.Instance) (*ir.Body, error) {
	b, ok := m.bodies[instance.Def]
	if !ok {
		return nil, evalerror.New(evalerror.NoMirFor, "")
	}
	return b, nil
}

var primKinds = map[string]value.PrimValKind{
	"i8": value.I8, "i16": value.I16, "i32": value.I32, "i64": value.I64, "i128": value.I128,
	"u8": value.U8, "u16": value.U16, "u32": value.U32, "u64": value.U64, "u128": value.U128,
	"f32": value.F32, "f64": value.F64, "bool": value.Bool, "char": value.Char,
	"ptr": value.Ptr, "fnptr": value.FnPtr,
}

// Load reads and converts the scenario JSON file at path.
func Load(path string) (*Program, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse converts scenario JSON already read into memory; split out
// from Load so tests can exercise it without a filesystem fixture.
func Parse(raw []byte) (*Program, error) {
	var sc scenario
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}

	ts := &typeSystem{
		sizes:  make(map[uint64]int64, len(sc.Types)),
		aligns: make(map[uint64]int64, len(sc.Types)),
		prims:  make(map[uint64]value.PrimValKind, len(sc.Types)),
	}
	for _, td := range sc.Types {
		ts.sizes[td.ID] = td.Size
		ts.aligns[td.ID] = td.Align
		if td.Prim != "" {
			kind, ok := primKinds[td.Prim]
			if !ok {
				return nil, fmt.Errorf("program: type %q names unknown primitive kind %q", td.Name, td.Prim)
			}
			ts.prims[td.ID] = kind
		}
	}

	defs := make(map[string]ir.DefID, len(sc.Bodies))
	var next ir.DefID
	for name := range sc.Bodies {
		defs[name] = next
		next++
	}

	bodies := make(map[ir.DefID]*ir.Body, len(sc.Bodies))
	for name, bj := range sc.Bodies {
		b, err := bj.ir(defs)
		if err != nil {
			return nil, fmt.Errorf("program: function %q: %w", name, err)
		}
		bodies[defs[name]] = b
	}

	mainDef, ok := defs[sc.Main]
	if !ok {
		return nil, fmt.Errorf("program: main function %q not declared", sc.Main)
	}

	return &Program{
		TS:   ts,
		MIR:  mirProvider{bodies: bodies},
		Main: ir.Instance{Def: mainDef},
	}, nil
}
