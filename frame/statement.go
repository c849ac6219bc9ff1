package frame

import "github.com/spacejam/seer/ir"

// execAssign resolves the statement's destination place and either
// materializes an Aggregate/Repeat rvalue directly at its address or
// evaluates a scalar rvalue and writes the result, per spec §4.6.
// Zero-sized destinations perform no allocation and no write, whatever
// the rvalue form — spec §8's boundary behaviour.
func (ev *Evaluator) execAssign(f *Frame, stmt ir.Statement) error {
	dest, err := ev.resolvePlace(f, stmt.Place)
	if err != nil {
		return err
	}

	switch stmt.Rvalue.Kind {
	case ir.RvalueAggregate:
		return ev.writeAggregate(f, dest, stmt.Rvalue)
	case ir.RvalueRepeat:
		return ev.writeRepeat(f, dest, stmt.Rvalue)
	default:
		val, err := ev.evalRvalue(f, stmt.Rvalue, dest.ty)
		if err != nil {
			return err
		}
		if size, ok := ev.TS.Size(dest.ty); ok && size == 0 {
			return nil
		}
		return ev.writeLvalue(f, dest.lv, val, dest.ty)
	}
}
