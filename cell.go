package pikara

import (
	"fmt"
	"reflect"
)

// Kind classifies a Cell for the purposes of invariant I4 (kind_of must be
// total) and for brine comparison's fuzzy rule: two atoms of the same kind
// are considered equal regardless of their literal payload.
type Kind string

const (
	KindInt        Kind = "int"
	KindIntOrBool  Kind = "int-or-bool"
	KindBool       Kind = "bool"
	KindUnicode    Kind = "unicode"
	KindBytes      Kind = "bytes"
	KindNone       Kind = "none"
	KindFloat      Kind = "float"
	KindLong       Kind = "long"
	KindPersistent Kind = "persistent"
	KindExt        Kind = "ext"
	KindBuffer     Kind = "buffer"

	KindMark       Kind = "mark"
	KindList       Kind = "list"
	KindTuple      Kind = "tuple"
	KindDict       Kind = "dict"
	KindSet        Kind = "set"
	KindFrozenSet  Kind = "frozenset"
	KindGlobal     Kind = "global"
	KindReduce     Kind = "reduce"
	KindStackSlice Kind = "stackslice"
)

// Cell is an abstract descriptor for a value the symbolic VM carries on its
// shadow stack. A Cell never holds a live Python object or callable; it
// holds only the structure a critiquer or the brine extractor needs.
type Cell interface {
	cell()
}

// Literal is an atomic value produced by an "atom" opcode: a number, a
// string, bytes, None, or an opaque persistent-id/extension-code/buffer
// reference. Persistent ids and extension codes keep their raw id or code as
// Value, opaque and unresolved. Value is nil for None and for out-of-band
// buffers, where only Kind is meaningful.
type Literal struct {
	Kind  Kind
	Value any
}

func (Literal) cell() {}

// MarkCell is the sentinel pushed by the MARK opcode. It is never
// memoizable and is always consumed by mark folding before it can leak into
// a critiquer's view of the stack as anything but Mark.
type MarkCell struct{}

func (MarkCell) cell() {}

// Mark is the shared Mark sentinel value; every MARK opcode pushes this
// exact value.
var Mark Cell = MarkCell{}

// IsMark reports whether c is the Mark sentinel.
func IsMark(c Cell) bool {
	_, ok := c.(MarkCell)
	return ok
}

// List is an ordered, mutable sequence cell. Elems is mutated in place by
// APPEND/APPENDS so that a memo entry written before a later mutation
// observes the mutation, mirroring a real pickle machine's object identity.
type List struct {
	Elems []Cell
}

func (*List) cell() {}

// Tuple is an ordered, fixed-length sequence cell.
type Tuple struct {
	Elems []Cell
}

func (*Tuple) cell() {}

// DictEntry is one key/value pair of a DictCell, kept in insertion order
// purely so iteration and pretty-printing are deterministic; order carries
// no semantic weight (§3).
type DictEntry struct {
	Key   Cell
	Value Cell
}

// DictCell is a mapping cell mutated in place by SETITEM/SETITEMS.
type DictCell struct {
	Entries []DictEntry
}

func (*DictCell) cell() {}

// set writes key->value, overwriting an existing entry with an equal key
// rather than duplicating it.
func (d *DictCell) set(key, value Cell) {
	for i := range d.Entries {
		if CellEqual(d.Entries[i].Key, key) {
			d.Entries[i].Value = value
			return
		}
	}
	d.Entries = append(d.Entries, DictEntry{Key: key, Value: value})
}

// Set is an unordered, mutable collection cell.
type Set struct {
	Elems []Cell
}

func (*Set) cell() {}

// FrozenSet is an unordered, immutable collection cell.
type FrozenSet struct {
	Elems []Cell
}

func (*FrozenSet) cell() {}

// Global is an interned reference to a module-level class or function name.
// Every Global produced during one run with the same (Module, Name) pair is
// the identical *Global value (invariant I6); see globalArena.
type Global struct {
	Module string
	Name   string
}

func (*Global) cell() {}

// Reduce is the synthesized cell produced by REDUCE/NEWOBJ/NEWOBJ_EX/BUILD/
// INST/OBJ: a deferred constructor invocation. Callable is typically a
// *Global; Args is typically a *Tuple.
type Reduce struct {
	Callable Cell
	Args     Cell
}

func (*Reduce) cell() {}

// StackSlice is the transient sequence of cells popped between a Mark and
// its consumer. It is never left on the shadow stack after a step
// completes: the opcode that triggered mark folding always folds it into a
// List/Tuple/DictCell/Set/FrozenSet/Reduce (or discards it, for POP/POP_MARK).
type StackSlice struct {
	Cells []Cell
}

func (*StackSlice) cell() {}

// KindOf is the total classification function required by invariant I4: it
// returns a meaningful kind for every Cell a critiquer can observe.
func KindOf(c Cell) Kind {
	switch v := c.(type) {
	case Literal:
		return v.Kind
	case MarkCell:
		return KindMark
	case *List:
		return KindList
	case *Tuple:
		return KindTuple
	case *DictCell:
		return KindDict
	case *Set:
		return KindSet
	case *FrozenSet:
		return KindFrozenSet
	case *Global:
		return KindGlobal
	case *Reduce:
		return KindReduce
	case *StackSlice:
		return KindStackSlice
	default:
		panic(fmt.Sprintf("pikara: kind_of: unhandled cell type %T", c))
	}
}

// CellEqual is cell-level structural equality, stricter than the fuzzy
// Shape.Equal used for brine comparison: two Literals are equal only if
// both their kind and value match, composite cells are equal only if their
// children are equal in order (dict entries are matched by key, in any
// order), and a Global is equal only to itself
// (interning already gives same-pair Globals the same pointer).
func CellEqual(a, b Cell) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case Literal:
		bv, ok := b.(Literal)
		return ok && av.Kind == bv.Kind && reflect.DeepEqual(av.Value, bv.Value)
	case MarkCell:
		_, ok := b.(MarkCell)
		return ok
	case *List:
		bv, ok := b.(*List)
		return ok && cellSliceEqual(av.Elems, bv.Elems)
	case *Tuple:
		bv, ok := b.(*Tuple)
		return ok && cellSliceEqual(av.Elems, bv.Elems)
	case *DictCell:
		bv, ok := b.(*DictCell)
		if !ok || len(av.Entries) != len(bv.Entries) {
			return false
		}
		for _, ae := range av.Entries {
			found := false
			for _, be := range bv.Entries {
				if CellEqual(ae.Key, be.Key) {
					found = CellEqual(ae.Value, be.Value)
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case *Set:
		bv, ok := b.(*Set)
		return ok && cellSliceEqual(av.Elems, bv.Elems)
	case *FrozenSet:
		bv, ok := b.(*FrozenSet)
		return ok && cellSliceEqual(av.Elems, bv.Elems)
	case *Global:
		return a == b
	case *Reduce:
		bv, ok := b.(*Reduce)
		return ok && CellEqual(av.Callable, bv.Callable) && CellEqual(av.Args, bv.Args)
	case *StackSlice:
		bv, ok := b.(*StackSlice)
		return ok && cellSliceEqual(av.Cells, bv.Cells)
	}
	return false
}

func cellSliceEqual(a, b []Cell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !CellEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// GlobalKey is the interning key for Global cells: a (module, name) pair.
type GlobalKey struct {
	Module string
	Name   string
}

// globalArena interns Global cells for the lifetime of one run so that
// invariant I6 (pointer identity per (module,name) pair) holds without a
// process-wide cache -- Globals are never shared across runs (§5).
type globalArena struct {
	byKey map[GlobalKey]*Global
}

func newGlobalArena() *globalArena {
	return &globalArena{byKey: make(map[GlobalKey]*Global)}
}

func (a *globalArena) intern(module, name string) *Global {
	key := GlobalKey{Module: module, Name: name}
	if g, ok := a.byKey[key]; ok {
		return g
	}
	g := &Global{Module: module, Name: name}
	a.byKey[key] = g
	return g
}

func (a *globalArena) snapshot() map[GlobalKey]*Global {
	out := make(map[GlobalKey]*Global, len(a.byKey))
	for k, v := range a.byKey {
		out[k] = v
	}
	return out
}
