package pikara

// conversion helpers for reading typed payloads out of Literal cells.

import (
	"fmt"
	"math/big"
)

// AsInt64 tries to represent a Cell's literal payload as int64.
//
// A protocol 0 INT opcode decodes to int64 directly; a LONG/LONG1/LONG4
// opcode decodes to *big.Int. Callers that only care about normal-range
// integers should use AsInt64 to accept either representation uniformly.
func AsInt64(c Cell) (int64, error) {
	lit, ok := c.(Literal)
	if !ok {
		return 0, fmt.Errorf("expect a Literal cell; got %T", c)
	}
	switch v := lit.Value.(type) {
	case int64:
		return v, nil
	case *big.Int:
		if !v.IsInt64() {
			return 0, fmt.Errorf("long outside of int64 range")
		}
		return v.Int64(), nil
	}
	return 0, fmt.Errorf("expect int-or-bool|long cell; got kind %s", lit.Kind)
}

// AsBytes tries to represent a Cell's literal payload as []byte.
//
// It succeeds only for a Literal of KindBytes.
func AsBytes(c Cell) ([]byte, error) {
	lit, ok := c.(Literal)
	if !ok || lit.Kind != KindBytes {
		return nil, fmt.Errorf("expect a bytes cell; got %T", c)
	}
	switch v := lit.Value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("expect bytes payload; got %T", lit.Value)
}

// AsString tries to represent a Cell's literal payload as string.
//
// It succeeds only for a Literal of KindUnicode.
func AsString(c Cell) (string, error) {
	lit, ok := c.(Literal)
	if !ok || lit.Kind != KindUnicode {
		return "", fmt.Errorf("expect a unicode cell; got %T", c)
	}
	s, ok := lit.Value.(string)
	if !ok {
		return "", fmt.Errorf("expect string payload; got %T", lit.Value)
	}
	return s, nil
}

// stringEQ compares an arbitrary Cell to a string.
//
// It succeeds only if AsString(c) succeeds and the decoded string equals y.
func stringEQ(c Cell, y string) bool {
	s, err := AsString(c)
	if err != nil {
		return false
	}
	return s == y
}
