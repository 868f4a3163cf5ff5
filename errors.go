package pikara

import (
	"fmt"
	"strings"
)

// ParseEntry records one opcode's transition: the opcode and its decoded
// argument, its byte position, and the cells it consumed from the shadow
// stack (nil if it consumed none). One ParseEntry is appended per opcode
// encountered, forming the parse trace (§3 "VM state").
type ParseEntry struct {
	Op       *Opcode
	Arg      any
	Pos      int
	Consumed []Cell
}

// ParseResult is a snapshot of the VM's state, either the final state after
// a run completes or the partial state captured inside a diagnostic at the
// moment it was raised.
type ParseResult struct {
	Entries  []ParseEntry
	MaxProto int
	Stack    []Cell
	Memo     map[int]Cell
	Issues   []error
	Globals  map[GlobalKey]*Global
}

// ParseException is the base contract for every diagnostic raised from
// inside the VM's transition loop: it carries the ParseEntry being
// processed when the issue was found and a snapshot of the VM state at that
// moment (§7).
type ParseException interface {
	error
	ParseEntry() ParseEntry
	Result() *ParseResult
}

type attacher interface {
	attach(entry ParseEntry, result *ParseResult)
}

// parseExceptionBase is embedded by every concrete ParseException to supply
// ParseEntry()/Result() and the attach hook the VM uses to fill them in at
// raise time.
type parseExceptionBase struct {
	entry  ParseEntry
	result *ParseResult
}

func (b *parseExceptionBase) attach(entry ParseEntry, result *ParseResult) {
	b.entry = entry
	b.result = result
}

func (b *parseExceptionBase) ParseEntry() ParseEntry { return b.entry }
func (b *parseExceptionBase) Result() *ParseResult   { return b.result }

// StackUnderflowException is raised when an opcode declares more cells in
// its "before" arity than the shadow stack currently holds.
type StackUnderflowException struct {
	parseExceptionBase
	StackDepth int
	NumToPop   int
}

func (e *StackUnderflowException) Error() string {
	return fmt.Sprintf("pikara: stack underflow: have %d cell(s), need %d", e.StackDepth, e.NumToPop)
}

// StackException covers mark-stack inconsistencies and memoize-with-empty-
// stack, i.e. structural problems that aren't a simple arity underflow.
type StackException struct {
	parseExceptionBase
	Msg string
}

func (e *StackException) Error() string {
	return "pikara: " + e.Msg
}

// MemoException covers double memo writes, reads of a missing memo index,
// and attempts to memoize the Mark sentinel.
type MemoException struct {
	parseExceptionBase
	Msg     string
	MemoIdx int
	HasIdx  bool
}

func (e *MemoException) Error() string {
	if e.HasIdx {
		return fmt.Sprintf("pikara: %s (memo index %d)", e.Msg, e.MemoIdx)
	}
	return "pikara: " + e.Msg
}

// MissingDictValueException is raised when a DICT/SETITEMS slice has an odd
// number of cells; the implemented policy keeps complete k/v pairs and
// drops the trailing lone key (§4.1 "DICT").
type MissingDictValueException struct {
	parseExceptionBase
	KVList []Cell
}

func (e *MissingDictValueException) Error() string {
	return fmt.Sprintf("pikara: uneven number of dict key/value entries (%d cells)", len(e.KVList))
}

// PickleTailException is raised when bytes remain after the STOP opcode's
// position.
type PickleTailException struct {
	parseExceptionBase
	PickleLength int
	Tail         []byte
}

func (e *PickleTailException) Error() string {
	return fmt.Sprintf("pikara: %d byte(s) of extra content after pickle end (length %d)", len(e.Tail), e.PickleLength)
}

// critiqueExceptionBase is embedded by diagnostics raised outside the VM's
// transition loop, by a critiquer evaluating the final ParseResult.
type critiqueExceptionBase struct {
	result *ParseResult
}

func (b *critiqueExceptionBase) Result() *ParseResult { return b.result }

// EndsWithStopException is raised by the ends_with_stop critiquer when the
// last parse entry is not a STOP.
type EndsWithStopException struct {
	critiqueExceptionBase
}

func (e *EndsWithStopException) Error() string {
	return "pikara: pickle does not end with a STOP instruction"
}

// SuperfluousStackItemsException is raised by the empty_stack_on_exit
// critiquer when any cell remains on the shadow stack after STOP has popped
// the pickle's final value; Count is the number of cells left.
type SuperfluousStackItemsException struct {
	critiqueExceptionBase
	Count int
}

func (e *SuperfluousStackItemsException) Error() string {
	return fmt.Sprintf("pikara: %d superfluous item(s) left on the stack after STOP", e.Count)
}

// BrineMismatchException is raised by Critique when a Reference brine was
// supplied and the extracted brine does not match it (spec.md §4.4's
// reference-brine comparison, left as a TODO in the Python original).
type BrineMismatchException struct {
	critiqueExceptionBase
	Reason string
}

func (e *BrineMismatchException) Error() string {
	return "pikara: brine mismatch: " + e.Reason
}

// String renders a ParseResult for debugging: its entry count, final stack
// depth, highest protocol seen, and any accumulated issues. Grounded on
// dict.go's sprintf helper -- a compact summary, not a serialization format.
func (r *ParseResult) String() string {
	return fmt.Sprintf("ParseResult{entries=%d, stack=%d, maxProto=%d, issues=%d}",
		len(r.Entries), len(r.Stack), r.MaxProto, len(r.Issues))
}

// CritiqueReport aggregates every diagnostic recorded during a fail_fast=false
// run (VM issues plus critiquer findings). It satisfies error itself so
// Critique can return it directly as the failure value; Issues is empty iff
// the pickle has no detected anomalies.
type CritiqueReport struct {
	Issues []error
}

func (r *CritiqueReport) Error() string {
	if len(r.Issues) == 0 {
		return "pikara: critique report: no issues"
	}
	msgs := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		msgs[i] = issue.Error()
	}
	return fmt.Sprintf("pikara: critique report: %d issue(s): %s", len(r.Issues), strings.Join(msgs, "; "))
}
