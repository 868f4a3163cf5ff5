package pikara

import "testing"

func TestExtractSimpleLiteral(t *testing.T) {
	// STOP pops the final value into its own Consumed[0]; Extract must read
	// it from there, not from the (by-then-empty) live stack.
	r, err := run([]byte("I5\n."), true)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(r.Stack) != 0 {
		t.Fatalf("final stack = %#v; want empty (STOP pops the value)", r.Stack)
	}
	b, err := Extract(r)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if b.Root.Kind != KindIntOrBool {
		t.Errorf("Root.Kind = %s; want %s", b.Root.Kind, KindIntOrBool)
	}
}

func TestExtractNoStopFails(t *testing.T) {
	r := &ParseResult{}
	if _, err := Extract(r); err == nil {
		t.Fatalf("Extract: expected error when no STOP entry was recorded")
	}
}

func TestShapeEqualFuzzyAtoms(t *testing.T) {
	// brines compare shape, not payload (spec.md §3): same-kind atoms are
	// equal regardless of their recovered Value.
	a := Shape{Kind: KindIntOrBool, Value: int64(1)}
	b := Shape{Kind: KindIntOrBool, Value: int64(1)}
	c := Shape{Kind: KindIntOrBool, Value: int64(2)}
	d := Shape{Kind: KindIntOrBool}

	if !a.Equal(b) {
		t.Errorf("equal atoms with matching value must compare equal")
	}
	if !a.Equal(c) {
		t.Errorf("same-kind atoms must compare equal regardless of differing value")
	}
	if !a.Equal(d) {
		t.Errorf("an atom with no recoverable value must fuzzily match any same-kind atom")
	}
}

func TestShapeEqualComposite(t *testing.T) {
	a := Shape{Kind: KindList, Elems: []Shape{{Kind: KindIntOrBool, Value: int64(1)}}}
	b := Shape{Kind: KindList, Elems: []Shape{{Kind: KindIntOrBool, Value: int64(2)}}}
	c := Shape{Kind: KindList, Elems: []Shape{{Kind: KindLong, Value: int64(1)}}}
	d := Shape{Kind: KindList}

	if !a.Equal(b) {
		t.Errorf("lists whose elements differ only in value must still compare equal")
	}
	if a.Equal(c) {
		t.Errorf("lists whose elements differ in kind must not compare equal")
	}
	if a.Equal(d) {
		t.Errorf("lists of differing length must not compare equal")
	}
}

func TestShapeEqualCrossNumericKind(t *testing.T) {
	// different Kinds must never compare equal, even with numerically
	// equal payloads -- Kind itself is part of the shape.
	a := Shape{Kind: KindIntOrBool, Value: int64(1)}
	b := Shape{Kind: KindLong, Value: int64(1)}
	if a.Equal(b) {
		t.Errorf("differing Kind must never compare equal regardless of Value")
	}
}

func TestShapeDictCounts(t *testing.T) {
	d := NewShapeDict()
	s := Shape{Kind: KindIntOrBool, Value: int64(1)}
	if n := d.Add(s); n != 1 {
		t.Errorf("first Add = %d; want 1", n)
	}
	if n := d.Add(Shape{Kind: KindIntOrBool, Value: int64(1)}); n != 2 {
		t.Errorf("second Add of an equal shape = %d; want 2", n)
	}
	if n := d.Count(s); n != 2 {
		t.Errorf("Count = %d; want 2", n)
	}
	if len(d.Shapes()) != 1 {
		t.Errorf("Shapes() = %d distinct shapes; want 1", len(d.Shapes()))
	}
}
