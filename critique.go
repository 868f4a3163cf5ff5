package pikara

import (
	"reflect"
	"sync"
)

// Critiquer inspects a completed ParseResult and reports at most one
// anomaly. It runs after the Symbolic VM has finished (or halted in
// fail_fast mode) -- it never sees the raw pickle bytes, only cells
// (spec.md §4.2 "Critiquers operate purely on ParseResult").
type Critiquer func(*ParseResult) error

// DefaultCritiquers is the built-in critiquer set every Critique call runs
// unless overridden.
var DefaultCritiquers = []Critiquer{
	EndsWithStop,
	EmptyStackOnExit,
}

var (
	registryMu sync.Mutex
	registry   = append([]Critiquer(nil), DefaultCritiquers...)
)

func critiquerKey(c Critiquer) uintptr {
	return reflect.ValueOf(c).Pointer()
}

// Register adds a Critiquer to the global default set. It is idempotent: a
// Critiquer already registered (by function identity) is not added twice.
// Safe for concurrent use; the registry itself is replaced with a fresh copy
// under lock so a concurrent Critique call never observes a torn slice.
func Register(c Critiquer) {
	registryMu.Lock()
	defer registryMu.Unlock()

	key := critiquerKey(c)
	for _, existing := range registry {
		if critiquerKey(existing) == key {
			return
		}
	}
	next := make([]Critiquer, len(registry), len(registry)+1)
	copy(next, registry)
	registry = append(next, c)
}

// registered returns the current default critiquer set.
func registered() []Critiquer {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]Critiquer, len(registry))
	copy(out, registry)
	return out
}

// EndsWithStop flags a pickle whose last recorded opcode is not STOP --
// every legitimate pickle stream ends with one (spec.md §4.2).
func EndsWithStop(r *ParseResult) error {
	if len(r.Entries) == 0 {
		return &EndsWithStopException{critiqueExceptionBase{result: r}}
	}
	last := r.Entries[len(r.Entries)-1]
	if last.Op == nil || last.Op.Name != "STOP" {
		return &EndsWithStopException{critiqueExceptionBase{result: r}}
	}
	return nil
}

// EmptyStackOnExit flags a pickle that leaves more than the one final value
// on the shadow stack after STOP runs. STOP itself pops that value (its
// declared arity is 1), so any non-empty stack left afterwards is
// superfluous.
func EmptyStackOnExit(r *ParseResult) error {
	if len(r.Stack) == 0 {
		return nil
	}
	return &SuperfluousStackItemsException{
		critiqueExceptionBase: critiqueExceptionBase{result: r},
		Count:                 len(r.Stack),
	}
}

// runCritiquers runs every registered critiquer against r, funneling each
// finding through raise-equivalent accumulate-vs-abort semantics: in
// fail_fast mode the first critiquer error is returned immediately, in
// accumulate mode every critiquer runs and all findings are appended to
// issues.
func runCritiquers(r *ParseResult, failFast bool) ([]error, error) {
	var issues []error
	for _, c := range registered() {
		if err := c(r); err != nil {
			if failFast {
				return issues, err
			}
			issues = append(issues, err)
		}
	}
	return issues, nil
}
