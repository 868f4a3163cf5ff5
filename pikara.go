package pikara

import "fmt"

// Options configures a Critique call.
type Options struct {
	// Reference, if non-nil, is compared against the extracted Brine; a
	// mismatch is reported as a BrineMismatchException.
	Reference *Brine

	// FailFast, if true, aborts the run and critique pass at the first
	// diagnostic. If false, every diagnostic from the VM and every critiquer
	// is collected into the returned CritiqueReport. DefaultOptions sets it
	// to true; the zero value Options{} leaves it false.
	FailFast bool
}

// DefaultOptions returns the zero-value Options with FailFast set to its
// documented default of true.
func DefaultOptions() Options {
	return Options{FailFast: true}
}

// Critique parses data as a pickle stream and reports structural anomalies.
// With Options.FailFast true (as set by DefaultOptions), the first anomaly
// found aborts the run and is returned as err. With FailFast false (as in
// the zero value Options{}), every
// anomaly found during parsing and critique is collected; a non-empty
// CritiqueReport is returned as err, and a nil err means no anomalies were
// found.
func Critique(data []byte, opts Options) (*CritiqueReport, error) {
	result, err := run(data, opts.FailFast)
	if err != nil {
		return nil, err
	}

	issues := append([]error(nil), result.Issues...)

	critiqueIssues, err := runCritiquers(result, opts.FailFast)
	if err != nil {
		return nil, err
	}
	issues = append(issues, critiqueIssues...)

	if opts.Reference != nil {
		brine, extractErr := Extract(result)
		if extractErr != nil {
			if opts.FailFast {
				return nil, extractErr
			}
			issues = append(issues, extractErr)
		} else if !brine.Root.Equal(opts.Reference.Root) {
			mismatch := &BrineMismatchException{
				critiqueExceptionBase: critiqueExceptionBase{result: result},
				Reason:                "extracted brine does not match reference",
			}
			if opts.FailFast {
				return nil, mismatch
			}
			issues = append(issues, mismatch)
		}
	}

	report := &CritiqueReport{Issues: issues}
	if len(issues) > 0 {
		return report, report
	}
	return report, nil
}

// Sample parses data as a pickle stream in fail_fast mode and extracts its
// Brine: a structural summary of the decoded object graph, suitable for
// saving as a reference and later passed as Options.Reference to Critique.
func Sample(data []byte) (*Brine, error) {
	result, err := run(data, true)
	if err != nil {
		return nil, err
	}
	brine, err := Extract(result)
	if err != nil {
		return nil, err
	}
	return brine, nil
}

// String renders a Brine for diagnostic output; it is not a serialization
// format, only a human-readable rendering.
func (b *Brine) String() string {
	return fmt.Sprintf("Brine{proto=%d, root=%s}", b.MaxProto, shapeString(b.Root))
}

func shapeString(s Shape) string {
	switch s.Kind {
	case KindList, KindTuple, KindSet, KindFrozenSet:
		return fmt.Sprintf("%s%v", s.Kind, shapesString(s.Elems))
	case KindDict:
		return fmt.Sprintf("dict{%d entries}", len(s.Entries))
	case KindReduce:
		return fmt.Sprintf("reduce(%s, %s)", shapeString(*s.Callable), shapeString(*s.Args))
	case KindGlobal:
		return fmt.Sprintf("global(%v)", s.Value)
	default:
		if s.Value != nil {
			return fmt.Sprintf("%s(%v)", s.Kind, s.Value)
		}
		return string(s.Kind)
	}
}

func shapesString(elems []Shape) []string {
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = shapeString(e)
	}
	return out
}
