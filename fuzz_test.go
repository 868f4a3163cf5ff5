package pikara

import "testing"

// FuzzCritique feeds arbitrary byte strings to Critique in both fail_fast
// modes. pikara never executes anything a pickle names, so the only
// contract a malformed or adversarial input must honor is "never panic" --
// unlike a real unpickler, a crash here is a bug in the analyzer, not a
// property of the input.
func FuzzCritique(f *testing.F) {
	seeds := [][]byte{
		{},
		[]byte("."),
		[]byte("I5\n."),
		[]byte("(l."),
		[]byte("}U\x01aK\x01s."),
		[]byte("c__main__\nfoo\n."),
		[]byte("\x80\x04K\x05."),
		[]byte("s."),
		[]byte(".x"),
		{0xff, 0xfe, 0xfd},
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		for _, failFast := range []bool{true, false} {
			func() {
				defer func() {
					if r := recover(); r != nil {
						t.Fatalf("Critique panicked on %q (failFast=%v): %v", data, failFast, r)
					}
				}()
				_, _ = Critique(data, Options{FailFast: failFast})
			}()
		}
	})
}

// FuzzSample exercises Sample (fail-fast extraction) the same way.
func FuzzSample(f *testing.F) {
	f.Add([]byte("I5\n"))
	f.Add([]byte("(l."))
	f.Add([]byte(""))

	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Sample panicked on %q: %v", data, r)
			}
		}()
		_, _ = Sample(data)
	})
}
