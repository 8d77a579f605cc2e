// Package value defines the closed JSON model the rest of skytree operates
// on. API responses decode into Value trees that preserve mapping key order
// and sequence order exactly as they appear on the wire, so that
// materialized trees are deterministic for a given payload.
package value

// Kind discriminates the variants of a Value.
type Kind int

const (
	// Null is the JSON null. The zero Value is Null.
	Null Kind = iota
	// Bool is a JSON true/false.
	Bool
	// Int is a JSON number with no fractional or exponent part.
	Int
	// Float is any other JSON number.
	Float
	// Str is a JSON string.
	Str
	// Mapping is a JSON object with insertion-ordered members.
	Mapping
	// Sequence is a JSON array.
	Sequence
)

// String returns the lowercase name of the kind, for logs and errors.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "str"
	case Mapping:
		return "mapping"
	case Sequence:
		return "sequence"
	}
	return "invalid"
}

// Member is a single key/value entry of a Mapping. Member order is the
// document order of the source JSON and is semantically significant.
type Member struct {
	Key string
	Val Value
}

// Value is a tagged union over the seven JSON variants. Exactly the fields
// implied by Kind are meaningful; the others hold zero values. Values are
// plain data and safe to copy, though Members/Items share backing arrays.
type Value struct {
	Kind    Kind
	B       bool
	I       int64
	F       float64
	S       string
	Members []Member // Mapping only
	Items   []Value  // Sequence only
}

// NullValue returns the JSON null.
func NullValue() Value { return Value{Kind: Null} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{Kind: Bool, B: b} }

// IntValue wraps an int64.
func IntValue(i int64) Value { return Value{Kind: Int, I: i} }

// FloatValue wraps a float64.
func FloatValue(f float64) Value { return Value{Kind: Float, F: f} }

// StrValue wraps a string.
func StrValue(s string) Value { return Value{Kind: Str, S: s} }

// MappingValue wraps an ordered member list. The caller keeps key uniqueness.
func MappingValue(members ...Member) Value {
	return Value{Kind: Mapping, Members: members}
}

// SequenceValue wraps an item list.
func SequenceValue(items ...Value) Value {
	return Value{Kind: Sequence, Items: items}
}

// IsScalar reports whether v is one of the leaf variants (everything except
// Mapping and Sequence).
func (v Value) IsScalar() bool {
	return v.Kind != Mapping && v.Kind != Sequence
}

// IsContainer reports whether v is a Mapping or a Sequence.
func (v Value) IsContainer() bool {
	return v.Kind == Mapping || v.Kind == Sequence
}

// Len returns the member count for mappings, the item count for sequences,
// and 0 for scalars.
func (v Value) Len() int {
	switch v.Kind {
	case Mapping:
		return len(v.Members)
	case Sequence:
		return len(v.Items)
	}
	return 0
}

// Get looks up a mapping member by key. The second return is false when v is
// not a mapping or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != Mapping {
		return Value{}, false
	}
	for _, m := range v.Members {
		if m.Key == key {
			return m.Val, true
		}
	}
	return Value{}, false
}

// Has reports whether a mapping member with the given key exists.
func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// GetStr returns the string content of the member at key, or "" when the
// member is absent or not a Str.
func (v Value) GetStr(key string) string {
	m, ok := v.Get(key)
	if !ok || m.Kind != Str {
		return ""
	}
	return m.S
}
