package holon

import "fmt"

// PropertyName identifies a slot in a Holon's property map.
type PropertyName string

// PropertyValue is a tagged sum over the value kinds a property can
// hold. The closed set of implementations below is deliberate: callers
// switch on Kind() rather than relying on type assertions everywhere,
// mirroring the original's serde-tagged enum.
type PropertyValue interface {
	Kind() PropertyKind
	String() string
	isPropertyValue()
}

// PropertyKind names the concrete variant of a PropertyValue.
type PropertyKind string

const (
	KindString  PropertyKind = "String"
	KindInteger PropertyKind = "Integer"
	KindBoolean PropertyKind = "Boolean"
	KindEnum    PropertyKind = "EnumVariant"
)

type StringValue string

func (v StringValue) Kind() PropertyKind { return KindString }
func (v StringValue) String() string     { return string(v) }
func (StringValue) isPropertyValue()     {}

type IntegerValue int64

func (v IntegerValue) Kind() PropertyKind { return KindInteger }
func (v IntegerValue) String() string     { return fmt.Sprintf("%d", int64(v)) }
func (IntegerValue) isPropertyValue()     {}

type BooleanValue bool

func (v BooleanValue) Kind() PropertyKind { return KindBoolean }
func (v BooleanValue) String() string {
	if v {
		return "true"
	}
	return "false"
}
func (BooleanValue) isPropertyValue() {}

// EnumValue names a variant of some (externally described) enumerated
// type. The engine treats the descriptor as an ordinary holon and does
// not validate variant membership itself (see Non-goals: schema
// inference).
type EnumValue struct {
	Variant string
}

func (v EnumValue) Kind() PropertyKind { return KindEnum }
func (v EnumValue) String() string     { return v.Variant }
func (EnumValue) isPropertyValue()     {}

// PropertyMap is an insertion-order-insignificant mapping from
// PropertyName to PropertyValue. A nil entry in the map (explicit
// presence, nil value) is distinct from absence; Get's second return
// tells the two apart.
type PropertyMap map[PropertyName]PropertyValue

// Clone returns a shallow copy; PropertyValue implementations are
// immutable value types so a shallow copy is a deep copy in practice.
func (m PropertyMap) Clone() PropertyMap {
	if m == nil {
		return nil
	}
	out := make(PropertyMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Get returns the value for name and whether the key is present at
// all: an absent key returns (nil, false), a key present with a nil
// value returns (nil, true).
func (m PropertyMap) Get(name PropertyName) (PropertyValue, bool) {
	v, ok := m[name]
	return v, ok
}
