package pikara

import (
	"fmt"
	"hash/maphash"
	"sort"

	"github.com/aristanetworks/gomap"
)

// Shape is the structural fingerprint of one Cell: its kind, a literal
// payload kept only for display, and the shapes of its children. Value plays
// no part in Equal for most kinds -- brines compare shape, not payload, so
// two Literal cells of the same Kind produce equal Shapes regardless of
// their value or of which opcode or protocol produced them (spec.md §4.3
// "Brine").
type Shape struct {
	Kind     Kind
	Value    any
	Elems    []Shape
	Entries  []ShapeEntry
	Callable *Shape
	Args     *Shape
}

// ShapeEntry is one key/value pair of a dict-shaped Cell.
type ShapeEntry struct {
	Key   Shape
	Value Shape
}

// Brine is the structural summary of one parsed pickle: the shape of its
// final stack top (the decoded object graph) plus the protocol level it
// required.
type Brine struct {
	Root     Shape
	MaxProto int
}

// Extract builds a Brine from a completed ParseResult. The shape comes from
// the STOP entry's Consumed[0] -- STOP's declared arity pops the pickle's
// final value off the shadow stack, so by the time a run finishes r.Stack is
// already empty and has nothing left to read. Matches the Python original's
// _extract_brine, which takes parse_result.parse_entries[-1].stackslice[0]
// (§4.3).
func Extract(r *ParseResult) (*Brine, error) {
	var stop *ParseEntry
	for i := len(r.Entries) - 1; i >= 0; i-- {
		if r.Entries[i].Op != nil && r.Entries[i].Op.Name == "STOP" {
			stop = &r.Entries[i]
			break
		}
	}
	if stop == nil || len(stop.Consumed) == 0 {
		return nil, &StackException{Msg: "cannot extract brine: no completed STOP instruction"}
	}

	top := stop.Consumed[0]
	if IsMark(top) {
		return nil, &StackException{Msg: "cannot extract brine: STOP consumed a bare Mark sentinel"}
	}

	root, err := shapeOf(top, make(map[Cell]bool))
	if err != nil {
		return nil, err
	}
	return &Brine{Root: root, MaxProto: r.MaxProto}, nil
}

// shapeOf walks a Cell into its Shape. seen guards against a pickle that
// encodes a cyclic object graph (a collection or Reduce cell that, through
// memo aliasing, ends up containing itself) -- such a cell's shape is cut off
// at the repeated reference rather than recursing forever. Literal cells are
// never looked up in seen: their Value may be unhashable (e.g. []byte).
func shapeOf(c Cell, seen map[Cell]bool) (Shape, error) {
	if _, isLit := c.(Literal); !isLit && seen[c] {
		return Shape{Kind: KindOf(c)}, nil
	}

	switch v := c.(type) {
	case Literal:
		return Shape{Kind: v.Kind, Value: v.Value}, nil
	case MarkCell:
		return Shape{Kind: KindMark}, nil
	case *List:
		seen[c] = true
		defer delete(seen, c)
		elems, err := shapeOfAll(v.Elems, seen)
		if err != nil {
			return Shape{}, err
		}
		return Shape{Kind: KindList, Elems: elems}, nil
	case *Tuple:
		seen[c] = true
		defer delete(seen, c)
		elems, err := shapeOfAll(v.Elems, seen)
		if err != nil {
			return Shape{}, err
		}
		return Shape{Kind: KindTuple, Elems: elems}, nil
	case *Set:
		seen[c] = true
		defer delete(seen, c)
		elems, err := shapeOfAll(v.Elems, seen)
		if err != nil {
			return Shape{}, err
		}
		return Shape{Kind: KindSet, Elems: elems}, nil
	case *FrozenSet:
		seen[c] = true
		defer delete(seen, c)
		elems, err := shapeOfAll(v.Elems, seen)
		if err != nil {
			return Shape{}, err
		}
		return Shape{Kind: KindFrozenSet, Elems: elems}, nil
	case *DictCell:
		seen[c] = true
		defer delete(seen, c)
		entries := make([]ShapeEntry, len(v.Entries))
		for i, e := range v.Entries {
			k, err := shapeOf(e.Key, seen)
			if err != nil {
				return Shape{}, err
			}
			val, err := shapeOf(e.Value, seen)
			if err != nil {
				return Shape{}, err
			}
			entries[i] = ShapeEntry{Key: k, Value: val}
		}
		return Shape{Kind: KindDict, Entries: entries}, nil
	case *Global:
		return Shape{Kind: KindGlobal, Value: GlobalKey{Module: v.Module, Name: v.Name}}, nil
	case *Reduce:
		seen[c] = true
		defer delete(seen, c)
		callable, err := shapeOf(v.Callable, seen)
		if err != nil {
			return Shape{}, err
		}
		args, err := shapeOf(v.Args, seen)
		if err != nil {
			return Shape{}, err
		}
		return Shape{Kind: KindReduce, Callable: &callable, Args: &args}, nil
	case *StackSlice:
		return Shape{}, &StackException{Msg: "cannot extract brine: stray stack slice at top of stack"}
	default:
		return Shape{}, fmt.Errorf("pikara: shape_of: unhandled cell type %T", c)
	}
}

// shapeOfAll walks a sequence of cells, dropping any Mark sentinels.
func shapeOfAll(cells []Cell, seen map[Cell]bool) ([]Shape, error) {
	out := make([]Shape, 0, len(cells))
	for _, c := range cells {
		if IsMark(c) {
			continue
		}
		s, err := shapeOf(c, seen)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Equal implements the fuzzy comparison rule spec.md §3/§4.3 assign to brine
// matching: brines compare shape, not payload, so two atoms of the same Kind
// are equal regardless of their recovered Value -- extraction keeps a
// Literal's value in Shape.Value for display only, and Equal ignores it, so
// an atom is equal both to its bare kind tag and to any value of that kind
// (§3). Global
// identity is the one atom-like exception: two Globals are equal only if
// they name the same (module,name) pair. Composite shapes are equal only if
// their children are, recursively.
func (s Shape) Equal(o Shape) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case KindList, KindTuple, KindSet, KindFrozenSet:
		return shapeSliceEqual(s.Elems, o.Elems)
	case KindDict:
		if len(s.Entries) != len(o.Entries) {
			return false
		}
		for i := range s.Entries {
			if !s.Entries[i].Key.Equal(o.Entries[i].Key) || !s.Entries[i].Value.Equal(o.Entries[i].Value) {
				return false
			}
		}
		return true
	case KindReduce:
		return s.Callable.Equal(*o.Callable) && s.Args.Equal(*o.Args)
	case KindGlobal:
		return s.Value == o.Value
	default:
		return true // same Kind is the whole of brine-level atom equality
	}
}

func shapeSliceEqual(a, b []Shape) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// shapeHash backs ShapeDict's gomap.Map, built the same way dict.go builds
// Dict's backing map: a hash consistent with Equal, so equal shapes (e.g.
// two int-or-bool atoms with different recovered values) always land in the
// same bucket. Mirrors Equal's case-by-case structure exactly.
func shapeHash(seed maphash.Seed, s Shape) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	h.WriteString(string(s.Kind))
	switch s.Kind {
	case KindList, KindTuple, KindSet, KindFrozenSet:
		for _, e := range s.Elems {
			binaryWriteUint64(&h, shapeHash(seed, e))
		}
	case KindDict:
		for _, e := range s.Entries {
			binaryWriteUint64(&h, shapeHash(seed, e.Key))
			binaryWriteUint64(&h, shapeHash(seed, e.Value))
		}
	case KindReduce:
		binaryWriteUint64(&h, shapeHash(seed, *s.Callable))
		binaryWriteUint64(&h, shapeHash(seed, *s.Args))
	case KindGlobal:
		fmt.Fprintf(&h, "%v", s.Value)
	}
	return h.Sum64()
}

func binaryWriteUint64(h *maphash.Hash, u uint64) {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
	h.Write(b[:])
}

// ShapeDict counts occurrences of Shapes, keyed by the fuzzy equality
// Shape.Equal defines. Critique's reference-brine comparison does not use it;
// that comparison reports only that the brines differ. Built on gomap.Map the
// same way dict.go builds Dict, with shapeDictEqual/shapeDictHash in place of
// dict.go's Python-value equal/hash.
type ShapeDict struct {
	m *gomap.Map[Shape, int]
}

// NewShapeDict returns an empty ShapeDict.
func NewShapeDict() ShapeDict {
	return ShapeDict{m: gomap.NewHint[Shape, int](0, shapeDictEqual, shapeDictHash)}
}

func shapeDictEqual(a, b Shape) bool { return a.Equal(b) }
func shapeDictHash(seed maphash.Seed, s Shape) uint64 { return shapeHash(seed, s) }

// Add records one more occurrence of s, returning the updated count.
func (d ShapeDict) Add(s Shape) int {
	n, _ := d.m.Get(s)
	n++
	d.m.Set(s, n)
	return n
}

// Count returns how many times a shape equal to s has been added.
func (d ShapeDict) Count(s Shape) int {
	n, _ := d.m.Get(s)
	return n
}

// Shapes returns every distinct shape recorded, sorted by kind and then by
// the %v rendering of Shape.Value. Shapes that tie on both (composite shapes
// of the same kind, whose Value is nil) come back in no defined order.
func (d ShapeDict) Shapes() []Shape {
	it := d.m.Iter()
	var out []Shape
	for it.Next() {
		out = append(out, it.Key())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return fmt.Sprint(out[i].Value) < fmt.Sprint(out[j].Value)
	})
	return out
}
