// Package evalerror defines the error vocabulary produced by the
// evaluator, memory manager, and intrinsic dispatcher. Every failure
// the core can report is one of the Kind constants below, carried in a
// single Error struct rather than a family of Go types, so callers can
// test "what kind of thing went wrong" with Is instead of a type switch.
package evalerror

import "fmt"

// Kind identifies the class of evaluation failure.
type Kind int

const (
	_ Kind = iota

	// Memory
	InvalidMemoryAccess
	DanglingPointerDeref
	PointerOutOfBounds
	ReadPointerAsBytes
	ReadUndefBytes
	InvalidPointerMath
	AlignmentCheckFailed
	UnterminatedCString
	OutOfMemory
	ModifiedConstantMemory
	ReallocatedStaticMemory
	DeallocatedStaticMemory

	// Value
	InvalidBool
	InvalidChar
	InvalidDiscriminant
	InvalidBoolOp
	TypeNotPrimitive
	Math

	// Control
	FunctionPointerTyMismatch
	InvalidFunctionPointer
	DerefFunctionPointer
	ExecuteMemory
	CalledClosureAsFunction
	VtableForArgumentlessMethod
	ArrayIndexOutOfBounds
	AssumptionNotHeld
	Panic
	Unreachable

	// Limits
	ExecutionTimeLimitReached
	StackFrameLimitReached

	// Capability
	Unimplemented
	InlineAsm
	NoMirFor
	Layout
)

var names = map[Kind]string{
	InvalidMemoryAccess:         "invalid memory access",
	DanglingPointerDeref:        "dangling pointer was dereferenced",
	PointerOutOfBounds:          "pointer offset outside bounds of allocation",
	ReadPointerAsBytes:          "a raw memory access tried to read part of a pointer as bytes",
	ReadUndefBytes:              "attempted to read undefined bytes",
	InvalidPointerMath:          "attempted math or comparison on pointers into different allocations",
	AlignmentCheckFailed:        "tried to execute a misaligned read or write",
	UnterminatedCString:         "no null terminator found before the end of the allocation",
	OutOfMemory:                 "could not allocate more memory",
	ModifiedConstantMemory:      "tried to modify constant memory",
	ReallocatedStaticMemory:     "tried to reallocate static memory",
	DeallocatedStaticMemory:     "tried to deallocate static memory",
	InvalidBool:                 "invalid boolean value read",
	InvalidChar:                 "tried to interpret an invalid 32-bit value as a char",
	InvalidDiscriminant:         "invalid enum discriminant value read",
	InvalidBoolOp:               "invalid boolean operation",
	TypeNotPrimitive:            "expected a primitive type",
	Math:                        "mathematical operation failed",
	FunctionPointerTyMismatch:   "called a function pointer with a mismatched signature",
	InvalidFunctionPointer:      "tried to use an integer or dangling pointer as a function pointer",
	DerefFunctionPointer:        "tried to dereference a function pointer",
	ExecuteMemory:               "tried to treat a data pointer as a function pointer",
	CalledClosureAsFunction:     "tried to call a closure through a function pointer",
	VtableForArgumentlessMethod: "tried to call a vtable method without arguments",
	ArrayIndexOutOfBounds:       "array index out of bounds",
	AssumptionNotHeld:           "assume argument was false",
	Panic:                       "the evaluated program panicked",
	Unreachable:                 "entered unreachable code",
	ExecutionTimeLimitReached:   "reached the configured maximum execution step count",
	StackFrameLimitReached:      "reached the configured maximum stack depth",
	Unimplemented:               "unimplemented",
	InlineAsm:                   "inline assembly is not supported",
	NoMirFor:                    "no IR body available for instance",
	Layout:                      "type layout computation failed",
}

// Error is the single error type the core ever returns.
type Error struct {
	Kind Kind

	// Optional kind-specific payload. Only the fields relevant to Kind
	// are populated; zero values otherwise.
	Message   string
	Ptr       fmt.Stringer // value.Pointer, kept as an interface to avoid an import cycle
	Size      uint64
	AllocSize uint64
	Required  uint64
	Has       uint64
}

func (e *Error) Error() string {
	base := names[e.Kind]
	switch e.Kind {
	case PointerOutOfBounds:
		return fmt.Sprintf("memory access at %s of size %d outside bounds of allocation of size %d", e.Ptr, e.Size, e.AllocSize)
	case AlignmentCheckFailed:
		return fmt.Sprintf("tried to access memory with alignment %d, but alignment %d is required", e.Has, e.Required)
	case OutOfMemory:
		return fmt.Sprintf("tried to allocate %d bytes, exceeding the %d byte memory cap", e.Size, e.AllocSize)
	case Unimplemented, NoMirFor:
		if e.Message != "" {
			return base + ": " + e.Message
		}
		return base
	default:
		if e.Message != "" {
			return base + ": " + e.Message
		}
		return base
	}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

// New builds a bare Error of the given kind with an optional message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// OutOfBounds builds a PointerOutOfBounds error.
func OutOfBounds(ptr fmt.Stringer, size, allocSize uint64) *Error {
	return &Error{Kind: PointerOutOfBounds, Ptr: ptr, Size: size, AllocSize: allocSize}
}

// Misaligned builds an AlignmentCheckFailed error.
func Misaligned(required, has uint64) *Error {
	return &Error{Kind: AlignmentCheckFailed, Required: required, Has: has}
}

// NoMemory builds an OutOfMemory error.
func NoMemory(size, cap uint64) *Error {
	return &Error{Kind: OutOfMemory, Size: size, AllocSize: cap}
}
