// Package pikara is a defensive static analyzer for Python's pickle wire
// format.
//
// pikara never unpickles: it never constructs a live Go value standing in
// for a decoded Python object, and it never calls anything a pickle names.
// Instead it walks pickle opcodes the way a real unpickler's stack machine
// would, but every value it pushes is an abstract Cell -- a structural
// descriptor (kind, children, interned module/name) rather than data. This
// makes it safe to point at pickles from untrusted sources(^), which is the
// opposite of what decoding them for real would give you.
//
// Use Critique to check a pickle stream for structural anomalies:
//
//	report, err := pikara.Critique(data, pikara.Options{FailFast: true})
//	if err != nil {
//		// the first anomaly found, or the CritiqueReport listing every one
//		// found if Options.FailFast was false
//	}
//
// Use Sample to extract a Brine -- a structural summary of the decoded
// object graph -- and save it as a reference to compare future pickles
// against:
//
//	brine, err := pikara.Sample(knownGoodData)
//	...
//	report, err := pikara.Critique(data, pikara.Options{Reference: brine})
//
// # Pickle protocol versions
//
// Over time the pickle stream format evolved. Protocol 0 is human-readable;
// protocols 1 and 2 extend it in a backward-compatible way with binary
// encodings for efficiency. Protocol 3 added a way to represent Python 3
// bytes objects. Protocol 4 switched to binary-only encoding throughout.
// Protocol 5 added support for out-of-band buffers. See
// https://docs.python.org/3/library/pickle.html#data-stream-format for
// details. pikara recognizes opcodes from every one of these protocols and
// reports the highest protocol level a stream actually used.
//
// # Abstract value model
//
// Every cell pikara's Symbolic VM manipulates is one of: Literal (a number,
// string, bytes, bool, or None, classified by Kind), MarkCell (the MARK
// sentinel), List, Tuple, DictCell, Set, FrozenSet (mutable or immutable
// collections), Global (an interned module/name reference -- never
// resolved, never imported), Reduce (a deferred constructor call, never
// invoked), or StackSlice (the transient Mark-to-top span an opcode folds
// into one of the above). See cell.go for the complete model.
//
// # Diagnostics
//
// Every anomaly pikara reports is a ParseException (raised while walking
// opcodes) or a critiquer finding (raised after a parse completes, by
// inspecting its final ParseResult). With Options.FailFast true, Critique
// returns the first one found as err. With FailFast false, every one found
// is collected into the returned CritiqueReport.
//
// --------
//
// (^) contrary to actually unpickling, where a malicious pickle can cause
// the unpickler to run arbitrary code, including e.g. os.system("rm -rf /").
package pikara
