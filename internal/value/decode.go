package value

import (
	"bytes"
	"fmt"

	"github.com/buger/jsonparser"
)

var errEmptyDocument = fmt.Errorf("empty json document")

// Decode parses a JSON document into a Value. Object keys are visited in
// document order, which is what makes downstream trees reproducible;
// encoding/json would shuffle them through a map.
func Decode(data []byte) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Value{}, errEmptyDocument
	}
	raw, dt, _, err := jsonparser.Get(data)
	if err != nil {
		return Value{}, fmt.Errorf("parse json: %w", err)
	}
	return build(raw, dt)
}

// build converts one jsonparser token into a Value. raw follows the
// jsonparser callback convention: strings arrive without surrounding quotes
// but still escaped, containers arrive with their brackets intact.
func build(raw []byte, dt jsonparser.ValueType) (Value, error) {
	switch dt {
	case jsonparser.Null:
		return NullValue(), nil

	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return Value{}, fmt.Errorf("parse bool %q: %w", raw, err)
		}
		return BoolValue(b), nil

	case jsonparser.Number:
		return buildNumber(raw)

	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return Value{}, fmt.Errorf("unescape string: %w", err)
		}
		return StrValue(s), nil

	case jsonparser.Object:
		members := make([]Member, 0, 8)
		err := jsonparser.ObjectEach(raw, func(key, val []byte, vt jsonparser.ValueType, _ int) error {
			child, cerr := build(val, vt)
			if cerr != nil {
				return cerr
			}
			// ObjectEach already unescaped the key.
			members = append(members, Member{Key: string(key), Val: child})
			return nil
		})
		if err != nil {
			return Value{}, fmt.Errorf("walk object: %w", err)
		}
		return MappingValue(members...), nil

	case jsonparser.Array:
		var items []Value
		var cbErr error
		_, err := jsonparser.ArrayEach(raw, func(val []byte, vt jsonparser.ValueType, _ int, aerr error) {
			if cbErr != nil {
				return
			}
			if aerr != nil {
				cbErr = aerr
				return
			}
			child, cerr := build(val, vt)
			if cerr != nil {
				cbErr = cerr
				return
			}
			items = append(items, child)
		})
		if err != nil {
			return Value{}, fmt.Errorf("walk array: %w", err)
		}
		if cbErr != nil {
			return Value{}, fmt.Errorf("walk array: %w", cbErr)
		}
		return SequenceValue(items...), nil
	}
	return Value{}, fmt.Errorf("unexpected json token type %v", dt)
}

// buildNumber keeps integer-shaped tokens as Int and everything else as
// Float. Int64 overflow falls back to Float rather than failing the decode.
func buildNumber(raw []byte) (Value, error) {
	if isIntegerToken(raw) {
		if i, err := jsonparser.ParseInt(raw); err == nil {
			return IntValue(i), nil
		}
	}
	f, err := jsonparser.ParseFloat(raw)
	if err != nil {
		return Value{}, fmt.Errorf("parse number %q: %w", raw, err)
	}
	return FloatValue(f), nil
}

func isIntegerToken(raw []byte) bool {
	// -0 stays Float so the sign survives re-encoding.
	if len(raw) == 2 && raw[0] == '-' && raw[1] == '0' {
		return false
	}
	for _, c := range raw {
		if c == '.' || c == 'e' || c == 'E' {
			return false
		}
	}
	return true
}
