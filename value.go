// value.go
//
// Tagged AST value model for the Fennel surface language.
//
// Every parsed form is a Value: a small tag plus an untyped payload. The
// compiler never inspects Data without switching on Tag first, so the
// variants stay disjoint (a list is never a symbol and vice versa).
//
//	TagNil      Data == nil
//	TagBool     Data.(bool)
//	TagNumber   Data.(float64)
//	TagString   Data.(string)       // decoded bytes
//	TagSymbol   Data.(string)       // raw source name, before mangling
//	TagList     Data.(*List)        // call form: (f a b)
//	TagVector   Data.(*List)        // plain sequence: [a b c]
//	TagMap      Data.(*MapObject)   // {k v k v}
//
// Lists carry their length explicitly through the backing slice; elements
// may legitimately be the nil value.
package fennel

// Tag discriminates the AST variants.
type Tag int

const (
	TagNil Tag = iota
	TagBool
	TagNumber
	TagString
	TagSymbol
	TagList
	TagVector
	TagMap
)

func (t Tag) String() string {
	switch t {
	case TagNil:
		return "nil"
	case TagBool:
		return "bool"
	case TagNumber:
		return "number"
	case TagString:
		return "string"
	case TagSymbol:
		return "symbol"
	case TagList:
		return "list"
	case TagVector:
		return "vector"
	case TagMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is one AST node.
type Value struct {
	Tag  Tag
	Data any
}

// List is the backing store for TagList and TagVector values.
type List struct {
	Items []Value
}

func (l *List) Len() int { return len(l.Items) }

// MapObject holds map entries in insertion order. Lookup is linear; maps in
// source forms are tiny and the stable order keeps serialization
// deterministic.
type MapObject struct {
	Keys []Value
	Vals []Value
}

func (m *MapObject) Len() int { return len(m.Keys) }

// Get returns the value stored under a structurally equal key.
func (m *MapObject) Get(k Value) (Value, bool) {
	for i, key := range m.Keys {
		if Equal(key, k) {
			return m.Vals[i], true
		}
	}
	return Nil, false
}

// Set inserts or replaces the entry for k.
func (m *MapObject) Set(k, v Value) {
	for i, key := range m.Keys {
		if Equal(key, k) {
			m.Vals[i] = v
			return
		}
	}
	m.Keys = append(m.Keys, k)
	m.Vals = append(m.Vals, v)
}

/* ---------- constructors ---------- */

// Nil is the nil value. Shared; Values are immutable by convention.
var Nil = Value{Tag: TagNil}

func Bool(b bool) Value      { return Value{Tag: TagBool, Data: b} }
func Number(f float64) Value { return Value{Tag: TagNumber, Data: f} }
func Str(s string) Value     { return Value{Tag: TagString, Data: s} }

// Sym returns a symbol carrying the raw source name.
func Sym(name string) Value { return Value{Tag: TagSymbol, Data: name} }

// ListOf builds a call-form list.
func ListOf(items ...Value) Value {
	return Value{Tag: TagList, Data: &List{Items: items}}
}

// VectorOf builds a plain sequence.
func VectorOf(items ...Value) Value {
	return Value{Tag: TagVector, Data: &List{Items: items}}
}

// MapOf builds a map from alternating key/value arguments. An odd trailing
// key is discarded, matching the source-literal rule.
func MapOf(pairs ...Value) Value {
	m := &MapObject{}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return Value{Tag: TagMap, Data: m}
}

/* ---------- predicates & accessors ---------- */

// SymName returns the symbol's source name, if v is a symbol.
func SymName(v Value) (string, bool) {
	if v.Tag != TagSymbol {
		return "", false
	}
	return v.Data.(string), true
}

// ListItems returns the backing items of a list or vector.
func ListItems(v Value) ([]Value, bool) {
	if v.Tag != TagList && v.Tag != TagVector {
		return nil, false
	}
	return v.Data.(*List).Items, true
}

func IsSym(v Value, name string) bool {
	n, ok := SymName(v)
	return ok && n == name
}

// Equal reports structural equality. Cyclic values are not expected from
// the parser and are not handled.
func Equal(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case TagNil:
		return true
	case TagBool:
		return a.Data.(bool) == b.Data.(bool)
	case TagNumber:
		return a.Data.(float64) == b.Data.(float64)
	case TagString, TagSymbol:
		return a.Data.(string) == b.Data.(string)
	case TagList, TagVector:
		la := a.Data.(*List)
		lb := b.Data.(*List)
		if la.Len() != lb.Len() {
			return false
		}
		for i := range la.Items {
			if !Equal(la.Items[i], lb.Items[i]) {
				return false
			}
		}
		return true
	case TagMap:
		ma := a.Data.(*MapObject)
		mb := b.Data.(*MapObject)
		if ma.Len() != mb.Len() {
			return false
		}
		for i, k := range ma.Keys {
			bv, ok := mb.Get(k)
			if !ok || !Equal(ma.Vals[i], bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
