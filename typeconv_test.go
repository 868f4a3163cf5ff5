package pikara

import (
	"fmt"
	"math/big"
	"testing"
)

func bigIntCell(s string) Literal {
	z, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big.Int literal: " + s)
	}
	return Literal{Kind: KindLong, Value: z}
}

func intCell(n int64) Literal {
	return Literal{Kind: KindIntOrBool, Value: n}
}

func TestAsInt64(t *testing.T) {
	Etype := func(kind Kind) error {
		return fmt.Errorf("expect int-or-bool|long cell; got kind %s", kind)
	}
	Ebad := fmt.Errorf("expect a Literal cell; got %T", &List{})
	Erange := fmt.Errorf("long outside of int64 range")

	testv := []struct {
		in    Cell
		outOK interface{}
	}{
		{intCell(0), int64(0)},
		{intCell(1), int64(1)},
		{intCell(123), int64(123)},
		{intCell(0x7fffffffffffffff), int64(0x7fffffffffffffff)},
		{intCell(-0x8000000000000000), int64(-0x8000000000000000)},
		{bigIntCell("0"), int64(0)},
		{bigIntCell("123"), int64(123)},
		{bigIntCell("9223372036854775807"), int64(0x7fffffffffffffff)},
		{bigIntCell("9223372036854775808"), Erange},
		{bigIntCell("-9223372036854775808"), int64(-0x8000000000000000)},
		{bigIntCell("-9223372036854775809"), Erange},
		{Literal{Kind: KindFloat, Value: 1.0}, Etype(KindFloat)},
		{Literal{Kind: KindUnicode, Value: "a"}, Etype(KindUnicode)},
		{&List{}, Ebad},
	}

	for _, tt := range testv {
		out, err := AsInt64(tt.in)
		if err != nil {
			if wantErr, ok := tt.outOK.(error); !ok || err.Error() != wantErr.Error() {
				t.Errorf("%#v -> error %q; want %#v", tt.in, err, tt.outOK)
			}
			continue
		}
		if want, ok := tt.outOK.(int64); !ok || out != want {
			t.Errorf("%#v -> %d; want %#v", tt.in, out, tt.outOK)
		}
	}
}

func TestAsBytesString(t *testing.T) {
	testv := []struct {
		in  Cell
		bok bool // AsBytes succeeds
		sok bool // AsString succeeds
		val string
	}{
		{Literal{Kind: KindUnicode, Value: "мир"}, false, true, "мир"},
		{Literal{Kind: KindBytes, Value: []byte("мир")}, true, false, "мир"},
		{Literal{Kind: KindFloat, Value: 1.0}, false, false, ""},
		{Literal{Kind: KindNone}, false, false, ""},
	}

	for _, tt := range testv {
		bout, berr := AsBytes(tt.in)
		sout, serr := AsString(tt.in)

		if tt.bok {
			if berr != nil || string(bout) != tt.val {
				t.Errorf("%#v: AsBytes: have (%q, %v); want (%q, nil)", tt.in, bout, berr, tt.val)
			}
		} else if berr == nil {
			t.Errorf("%#v: AsBytes: expected error, got %q", tt.in, bout)
		}

		if tt.sok {
			if serr != nil || sout != tt.val {
				t.Errorf("%#v: AsString: have (%q, %v); want (%q, nil)", tt.in, sout, serr, tt.val)
			}
		} else if serr == nil {
			t.Errorf("%#v: AsString: expected error, got %q", tt.in, sout)
		}
	}
}

func TestStringEQ(t *testing.T) {
	if !stringEQ(Literal{Kind: KindUnicode, Value: "abc"}, "abc") {
		t.Errorf("stringEQ: expected match")
	}
	if stringEQ(Literal{Kind: KindUnicode, Value: "abc"}, "xyz") {
		t.Errorf("stringEQ: expected mismatch")
	}
	if stringEQ(Literal{Kind: KindBytes, Value: []byte("abc")}, "abc") {
		t.Errorf("stringEQ: bytes cell must not match a string comparison")
	}
}
