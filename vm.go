package pikara

import (
	"fmt"
	"strings"
)

// machine carries the complete state of one VM run: shadow stack, mark
// stack, memo table, global arena, and the accumulated parse trace and
// issues. A machine is used for exactly one run() and then discarded; it
// owns all of its state exclusively (§5 "no shared mutable state across
// analyses").
type machine struct {
	data     []byte
	failFast bool

	stack     []Cell
	markStack []int
	memo      map[int]Cell
	arena     *globalArena
	maxProto  int
	halted    bool

	entries []ParseEntry
	issues  []error

	curOp       *Opcode
	curArg      any
	curPos      int
	curConsumed []Cell
}

// run is the Symbolic VM's single public entry point (spec.md §4.1
// "Contract"): it walks every token a Scanner over data yields and returns
// the resulting ParseResult. In fail_fast mode the first diagnostic is
// returned as err and the ParseResult reflects state up to that point; in
// accumulate mode err is always nil and diagnostics are in the returned
// ParseResult's Issues.
func run(data []byte, failFast bool) (*ParseResult, error) {
	m := &machine{
		data:     data,
		failFast: failFast,
		memo:     make(map[int]Cell),
		arena:    newGlobalArena(),
		maxProto: -1,
	}

	sc := NewScanner(data)
	for {
		tok, ok, _ := sc.Next()
		if !ok {
			break
		}
		if err := m.step(tok); err != nil {
			return m.result(), err
		}
	}

	return m.result(), nil
}

func (m *machine) result() *ParseResult {
	return &ParseResult{
		Entries:  m.entries,
		MaxProto: m.maxProto,
		Stack:    m.stack,
		Memo:     m.memo,
		Issues:   m.issues,
		Globals:  m.arena.snapshot(),
	}
}

// raise funnels every diagnostic through one recorder (spec.md §9
// "accumulate-vs-abort -> a single diagnostic sink"): it fills in the
// issue's current ParseEntry/ParseResult snapshot, then either returns it
// (fail_fast, to be propagated up and abort the run) or appends it to
// issues and returns nil (accumulate, continue the run).
func (m *machine) raise(e ParseException) error {
	if a, ok := e.(attacher); ok {
		a.attach(m.currentEntry(), m.result())
	}
	if m.failFast {
		return e
	}
	m.issues = append(m.issues, e)
	return nil
}

func (m *machine) currentEntry() ParseEntry {
	return ParseEntry{Op: m.curOp, Arg: m.curArg, Pos: m.curPos, Consumed: m.curConsumed}
}

// step performs the transition algorithm of spec.md §4.1 for a single
// token: update max_proto, fold a Mark-delimited arity if one applies, pop
// the declared (or folded) arity, dispatch to compute the pushed cells, and
// record a ParseEntry. Grounded on the teacher's Decoder.Decode() central
// switch, generalized so the arity bookkeeping is driven by the opcode
// table instead of being inlined per case.
func (m *machine) step(tok Token) error {
	if tok.Op.Proto > m.maxProto {
		m.maxProto = tok.Op.Proto
	}

	m.curOp, m.curArg, m.curPos, m.curConsumed = tok.Op, tok.Arg, tok.Pos, nil

	before := tok.Op.Before
	if tok.Op.Name == "MEMOIZE" {
		before = 0 // step 2: MEMOIZE's advertised before/after is empty
	}

	proceed := true
	needsFold := before == markDelim || before == markDelim1
	// A bare POP landing on a Mark discards the whole group it delimits,
	// same as POP_MARK -- fold it and consume both the Mark and the
	// synthesized StackSlice, or the Mark itself is left stranded on the
	// stack with no matching markStack entry.
	popOnMark := tok.Op.Name == "POP" && len(m.stack) > 0 && IsMark(m.stack[len(m.stack)-1])
	if popOnMark {
		needsFold = true
	}
	if needsFold {
		ok, err := m.foldMark()
		if err != nil {
			return err
		}
		if !ok {
			proceed = false
		}
		switch {
		case popOnMark:
			before = 2
		case before == markDelim:
			before = 2
		case before == markDelim1:
			before = 3
		}
	}

	var after []Cell
	var consumed []Cell

	if proceed {
		switch tok.Op.Name {
		case "PUT", "BINPUT", "LONG_BINPUT", "MEMOIZE":
			if err := m.memoWrite(tok); err != nil {
				return err
			}
		case "GET", "BINGET", "LONG_BINGET":
			a, err := m.memoRead(tok)
			if err != nil {
				return err
			}
			after = a
		default:
			n := before
			if n > 0 {
				if len(m.stack) < n {
					if err := m.raise(&StackUnderflowException{StackDepth: len(m.stack), NumToPop: n}); err != nil {
						return err
					}
					proceed = false
				} else {
					consumed = append([]Cell(nil), m.stack[len(m.stack)-n:]...)
					m.stack = m.stack[:len(m.stack)-n]
				}
			}
			m.curConsumed = consumed
			if proceed {
				a, err := m.dispatch(tok, consumed)
				if err != nil {
					return err
				}
				after = a
			}
		}
	}

	m.stack = append(m.stack, after...)
	m.entries = append(m.entries, ParseEntry{Op: tok.Op, Arg: tok.Arg, Pos: tok.Pos, Consumed: consumed})

	if tok.Op.Name == "STOP" {
		m.halted = true
		if tok.Pos != len(m.data)-1 {
			tail := append([]byte(nil), m.data[tok.Pos+1:]...)
			if err := m.raise(&PickleTailException{PickleLength: len(m.data), Tail: tail}); err != nil {
				return err
			}
		}
	}

	return nil
}

// foldMark implements mark folding (spec.md §4.1 step 3). ok is false (with
// err nil) when the fold itself failed in accumulate mode -- the caller
// must then skip dispatch for this opcode but keep going.
func (m *machine) foldMark() (ok bool, err error) {
	if len(m.markStack) == 0 {
		if e := m.raise(&StackException{Msg: "unexpected empty markstack"}); e != nil {
			return false, e
		}
		return false, nil
	}

	idx := -1
	for i := len(m.stack) - 1; i >= 0; i-- {
		if IsMark(m.stack[i]) {
			idx = i
			break
		}
	}
	if idx < 0 {
		if e := m.raise(&StackException{Msg: "expected markobject on stack"}); e != nil {
			return false, e
		}
		return false, nil
	}

	m.markStack = m.markStack[:len(m.markStack)-1]
	above := append([]Cell(nil), m.stack[idx+1:]...)
	m.stack = append(m.stack[:idx+1], &StackSlice{Cells: above})
	return true, nil
}

// memoWrite implements the MEMO-write family (spec.md §4.1 "MEMO write").
// It peeks the top cell rather than popping it -- PUT/BINPUT/LONG_BINPUT/
// MEMOIZE all leave the stack exactly as they found it.
func (m *machine) memoWrite(tok Token) error {
	if len(m.stack) == 0 {
		return m.raise(&StackException{Msg: "memoize with empty stack"})
	}
	top := m.stack[len(m.stack)-1]
	if IsMark(top) {
		return m.raise(&MemoException{Msg: "can't store markobject in memo"})
	}

	idx := 0
	if tok.Op.Name == "MEMOIZE" {
		idx = len(m.memo)
	} else if n, ok := tok.Arg.(int); ok {
		idx = n
	}

	if _, exists := m.memo[idx]; exists {
		return m.raise(&MemoException{Msg: "double memo assignment", MemoIdx: idx, HasIdx: true})
	}
	m.memo[idx] = top
	return nil
}

// memoRead implements the MEMO-read family (spec.md §4.1 "MEMO read").
func (m *machine) memoRead(tok Token) ([]Cell, error) {
	idx, _ := tok.Arg.(int)
	cell, ok := m.memo[idx]
	if !ok {
		if err := m.raise(&MemoException{Msg: "missing memo element", MemoIdx: idx, HasIdx: true}); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return []Cell{cell}, nil
}

// dispatch computes the "after" cells for every opcode not already handled
// as a memo read/write, per the dispatch table of spec.md §4.1.
func (m *machine) dispatch(tok Token, consumed []Cell) ([]Cell, error) {
	op := tok.Op

	switch op.Name {
	case "PROTO", "FRAME", "STOP":
		return nil, nil

	case "MARK":
		m.markStack = append(m.markStack, tok.Pos)
		return []Cell{Mark}, nil

	case "EMPTY_LIST":
		return []Cell{&List{}}, nil
	case "EMPTY_TUPLE":
		return []Cell{&Tuple{}}, nil
	case "EMPTY_DICT":
		return []Cell{&DictCell{}}, nil
	case "EMPTY_SET":
		return []Cell{&Set{}}, nil

	case "LIST":
		return []Cell{&List{Elems: sliceCells(consumed[1])}}, nil
	case "TUPLE":
		return []Cell{&Tuple{Elems: sliceCells(consumed[1])}}, nil
	case "FROZENSET":
		return []Cell{&FrozenSet{Elems: sliceCells(consumed[1])}}, nil
	case "DICT":
		d, issue := m.buildDict(nil, sliceCells(consumed[1]))
		if issue != nil {
			if err := m.raise(issue); err != nil {
				return nil, err
			}
		}
		return []Cell{d}, nil

	case "TUPLE1", "TUPLE2", "TUPLE3":
		return []Cell{&Tuple{Elems: append([]Cell(nil), consumed...)}}, nil

	case "APPEND":
		list := asList(consumed[0])
		list.Elems = append(list.Elems, consumed[1])
		return []Cell{list}, nil
	case "APPENDS":
		list := asList(consumed[0])
		list.Elems = append(list.Elems, sliceCells(consumed[2])...)
		return []Cell{list}, nil

	case "SETITEM":
		d := asDict(consumed[0])
		d.set(consumed[1], consumed[2])
		return []Cell{d}, nil
	case "SETITEMS":
		d, issue := m.buildDict(asDict(consumed[0]), sliceCells(consumed[2]))
		if issue != nil {
			if err := m.raise(issue); err != nil {
				return nil, err
			}
		}
		return []Cell{d}, nil

	case "ADDITEMS":
		s := asSet(consumed[0])
		s.Elems = append(s.Elems, sliceCells(consumed[2])...)
		return []Cell{s}, nil

	case "GLOBAL":
		g, issue := m.resolveGlobalArg(tok.Arg)
		if issue != nil {
			if err := m.raise(issue); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return []Cell{g}, nil
	case "INST":
		g, issue := m.resolveGlobalArg(tok.Arg)
		if issue != nil {
			if err := m.raise(issue); err != nil {
				return nil, err
			}
			return nil, nil
		}
		args := &Tuple{Elems: sliceCells(consumed[1])}
		return []Cell{&Reduce{Callable: g, Args: args}}, nil

	case "OBJ":
		elems := sliceCells(consumed[1])
		if len(elems) == 0 {
			return []Cell{&Reduce{Callable: nil, Args: &Tuple{}}}, nil
		}
		return []Cell{&Reduce{Callable: elems[0], Args: &Tuple{Elems: append([]Cell(nil), elems[1:]...)}}}, nil

	case "STACK_GLOBAL":
		// Open question pinned (spec.md §9): the module cell sits below the
		// name cell on the stack (name is popped first in the teacher's
		// stackGlobal()); consumed preserves bottom-to-top order, so
		// consumed[0] is module and consumed[1] is name.
		module, mok := literalString(consumed[0])
		name, nok := literalString(consumed[1])
		if !mok || !nok {
			if err := m.raise(&StackException{Msg: "STACK_GLOBAL expects two string cells"}); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return []Cell{m.arena.intern(module, name)}, nil

	case "REDUCE", "NEWOBJ", "BUILD":
		return []Cell{&Reduce{Callable: consumed[0], Args: consumed[1]}}, nil
	case "NEWOBJ_EX":
		return []Cell{&Reduce{Callable: consumed[0], Args: &Tuple{Elems: []Cell{consumed[1], consumed[2]}}}}, nil

	case "PERSID":
		return []Cell{Literal{Kind: KindPersistent, Value: tok.Arg}}, nil
	case "BINPERSID":
		return []Cell{Literal{Kind: KindPersistent, Value: consumed[0]}}, nil
	case "EXT1", "EXT2", "EXT4":
		return []Cell{Literal{Kind: KindExt, Value: tok.Arg}}, nil

	case "POP", "POP_MARK":
		return nil, nil
	case "DUP":
		top := consumed[0]
		return []Cell{top, top}, nil

	case "NEXT_BUFFER":
		return []Cell{Literal{Kind: KindBuffer}}, nil
	case "READONLY_BUFFER":
		return []Cell{consumed[0]}, nil

	default:
		if op.AtomKind != "" {
			return []Cell{Literal{Kind: op.AtomKind, Value: tok.Arg}}, nil
		}
		return nil, fmt.Errorf("pikara: unhandled opcode %s", op.Name)
	}
}

// buildDict implements the DICT/SETITEMS pairing rule: pair adjacent cells
// as key/value, and on an odd-length slice keep the complete pairs and drop
// the trailing lone key (spec.md §4.1 "DICT").
func (m *machine) buildDict(existing *DictCell, kvs []Cell) (*DictCell, *MissingDictValueException) {
	d := existing
	if d == nil {
		d = &DictCell{}
	}
	pairs := len(kvs) / 2
	for i := 0; i < pairs; i++ {
		d.set(kvs[2*i], kvs[2*i+1])
	}
	if len(kvs)%2 != 0 {
		return d, &MissingDictValueException{KVList: append([]Cell(nil), kvs...)}
	}
	return d, nil
}

func (m *machine) resolveGlobalArg(arg any) (*Global, *StackException) {
	s, ok := arg.(string)
	if !ok {
		return nil, &StackException{Msg: "GLOBAL argument is not a module/name string"}
	}
	parts := strings.SplitN(s, " ", 2)
	if len(parts) != 2 {
		return nil, &StackException{Msg: "GLOBAL argument missing module/name separator"}
	}
	return m.arena.intern(parts[0], parts[1]), nil
}

func sliceCells(c Cell) []Cell {
	if ss, ok := c.(*StackSlice); ok {
		return append([]Cell(nil), ss.Cells...)
	}
	return nil
}

func asList(c Cell) *List {
	if l, ok := c.(*List); ok {
		return l
	}
	return &List{}
}

func asDict(c Cell) *DictCell {
	if d, ok := c.(*DictCell); ok {
		return d
	}
	return &DictCell{}
}

func asSet(c Cell) *Set {
	if s, ok := c.(*Set); ok {
		return s
	}
	return &Set{}
}

func literalString(c Cell) (string, bool) {
	lit, ok := c.(Literal)
	if !ok {
		return "", false
	}
	s, ok := lit.Value.(string)
	return s, ok
}
