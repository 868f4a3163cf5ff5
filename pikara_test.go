package pikara

import "testing"

func TestCritiqueCleanPickle(t *testing.T) {
	data := []byte("I5\n.")
	report, err := Critique(data, DefaultOptions())
	if err != nil {
		t.Fatalf("Critique: unexpected error on a clean pickle: %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("report.Issues = %#v; want none", report.Issues)
	}
}

func TestCritiqueFailFastStopsAtFirstIssue(t *testing.T) {
	_, err := Critique([]byte("s."), Options{FailFast: true})
	if err == nil {
		t.Fatalf("Critique: expected an error for a malformed pickle")
	}
	if _, ok := err.(*StackUnderflowException); !ok {
		t.Fatalf("err = %T; want *StackUnderflowException", err)
	}
}

func TestCritiqueAccumulatesIssues(t *testing.T) {
	report, err := Critique([]byte("I1\n2s"), Options{FailFast: false})
	if err == nil {
		t.Fatalf("Critique: expected a non-nil CritiqueReport error")
	}
	if report == nil || len(report.Issues) == 0 {
		t.Fatalf("Critique: expected at least one accumulated issue, got %#v", report)
	}
}

func TestSampleAndReferenceMatch(t *testing.T) {
	// "I5\n." and "I9\n." both end with an int-or-bool atom: brines compare
	// shape, not payload, so these must match even though the literal values
	// differ.
	brine, err := Sample([]byte("I5\n."))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	report, err := Critique([]byte("I9\n."), Options{FailFast: true, Reference: brine})
	if err != nil {
		t.Fatalf("Critique against a same-kind reference brine: unexpected error %v", err)
	}
	if len(report.Issues) != 0 {
		t.Errorf("report.Issues = %#v; want none", report.Issues)
	}
}

func TestSampleAndReferenceMismatch(t *testing.T) {
	good, err := Sample([]byte("I5\n."))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	// an empty list has a different Kind entirely, so this must mismatch
	// regardless of the fuzzy same-kind rule.
	_, err = Critique([]byte("(l."), Options{FailFast: true, Reference: good})
	if err == nil {
		t.Fatalf("Critique: expected a brine mismatch error")
	}
	if _, ok := err.(*BrineMismatchException); !ok {
		t.Fatalf("err = %T; want *BrineMismatchException", err)
	}
}

func TestBrineString(t *testing.T) {
	b, err := Sample([]byte("I5\n."))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if s := b.String(); s == "" {
		t.Errorf("Brine.String(): expected non-empty rendering")
	}
}

func TestParseResultString(t *testing.T) {
	r, err := run([]byte("I5\n."), true)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if s := r.String(); s == "" {
		t.Errorf("ParseResult.String(): expected non-empty rendering")
	}
}
