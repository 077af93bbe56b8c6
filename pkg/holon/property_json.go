package holon

import (
	"encoding/json"
	"fmt"
)

// wireProperty is the JSON envelope for a single PropertyValue, tagged
// by Kind so UnmarshalJSON can reconstruct the right concrete type —
// encoding/json cannot decode into an interface field on its own.
type wireProperty struct {
	Kind  PropertyKind    `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON implements the tagged-envelope encoding described above.
func (m PropertyMap) MarshalJSON() ([]byte, error) {
	wire := make(map[PropertyName]wireProperty, len(m))
	for name, v := range m {
		if v == nil {
			wire[name] = wireProperty{Kind: "", Value: []byte("null")}
			continue
		}
		raw, err := marshalPropertyValue(v)
		if err != nil {
			return nil, err
		}
		wire[name] = wireProperty{Kind: v.Kind(), Value: raw}
	}
	return json.Marshal(wire)
}

func (m *PropertyMap) UnmarshalJSON(data []byte) error {
	var wire map[PropertyName]wireProperty
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := make(PropertyMap, len(wire))
	for name, w := range wire {
		if w.Kind == "" {
			out[name] = nil
			continue
		}
		v, err := unmarshalPropertyValue(w.Kind, w.Value)
		if err != nil {
			return err
		}
		out[name] = v
	}
	*m = out
	return nil
}

func marshalPropertyValue(v PropertyValue) (json.RawMessage, error) {
	switch tv := v.(type) {
	case StringValue:
		return json.Marshal(string(tv))
	case IntegerValue:
		return json.Marshal(int64(tv))
	case BooleanValue:
		return json.Marshal(bool(tv))
	case EnumValue:
		return json.Marshal(tv.Variant)
	default:
		return nil, fmt.Errorf("holon: unknown PropertyValue kind %T", v)
	}
}

func unmarshalPropertyValue(kind PropertyKind, raw json.RawMessage) (PropertyValue, error) {
	switch kind {
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return StringValue(s), nil
	case KindInteger:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return IntegerValue(n), nil
	case KindBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return BooleanValue(b), nil
	case KindEnum:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return EnumValue{Variant: s}, nil
	default:
		return nil, fmt.Errorf("holon: unknown property kind %q", kind)
	}
}
