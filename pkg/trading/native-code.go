package trading

import (
	"strconv"

	"github.com/pkg/errors"
)

// codeTable translates a closed enum to the one-character code used by the native API.
// Index in codes and names is the enum value.
type codeTable[T ~uint8] struct {
	kind  string
	codes []byte
	names []string
}

func (t codeTable[T]) name(v T) string {
	if int(v) < len(t.names) {
		return t.names[v]
	}
	panic("invalid " + t.kind + " string conversion: " + strconv.Itoa(int(v)))
}

func (t codeTable[T]) parse(value string) (T, error) {
	for i, name := range t.names {
		if name == value {
			return T(i), nil
		}
	}
	return 0, errors.New("unsupported " + t.kind + ": " + value)
}

func (t codeTable[T]) code(v T) (byte, error) {
	if int(v) < len(t.codes) {
		return t.codes[v], nil
	}
	return 0, errors.New("invalid " + t.kind + " code conversion: " + strconv.Itoa(int(v)))
}

func (t codeTable[T]) fromCode(c byte) (T, error) {
	for i, code := range t.codes {
		if code == c {
			return T(i), nil
		}
	}
	return 0, errors.New("unsupported " + t.kind + " code: " + strconv.QuoteRune(rune(c)))
}

func (t codeTable[T]) marshal(v T) ([]byte, error) {
	c, err := t.code(v)
	if err != nil {
		return nil, err
	}
	if c == 0 {
		return []byte(`""`), nil
	}
	return []byte{'"', c, '"'}, nil
}

func (t codeTable[T]) unmarshal(data []byte, v *T) error {
	if len(data) == 2 && data[0] == '"' && data[1] == '"' {
		r, err := t.fromCode(0)
		if err != nil {
			return err
		}
		*v = r
		return nil
	}
	if len(data) != 3 || data[0] != '"' || data[2] != '"' {
		return errors.New("unsupported " + t.kind + ": " + string(data))
	}
	r, err := t.fromCode(data[1])
	if err != nil {
		return err
	}
	*v = r
	return nil
}
