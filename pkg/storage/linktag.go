package storage

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/holonerr"
)

// Link tag wire format (byte-exact, must round-trip):
//
//	HEADER_BYTES ‖ relationship_name_utf8 ‖ PROLOG_SEPARATOR ‖ NUL ‖
//	  (PROP_NAME_SEP ‖ prop_name_utf8 ‖ NUL ‖ PROP_VAL_SEP ‖ encoded_value ‖ NUL)*
var (
	headerBytes     = []byte{0x01}
	prologSeparator = []byte("Ⓟ")
	propNameSep     = []byte("Ⓝ")
	propValSep      = []byte("Ⓥ")
	nul             = byte(0x00)
)

// EncodeLinkTag serializes a relationship name and its inlined smart
// properties into the wire-stable link tag format.
func EncodeLinkTag(name string, smartProps holon.PropertyMap) []byte {
	var buf bytes.Buffer
	buf.Write(headerBytes)
	buf.WriteString(name)
	buf.Write(prologSeparator)
	buf.WriteByte(nul)

	// Properties are written in name order so that equal maps always
	// encode to the same bytes.
	names := make([]string, 0, len(smartProps))
	for propName := range smartProps {
		names = append(names, string(propName))
	}
	sort.Strings(names)
	for _, propName := range names {
		buf.Write(propNameSep)
		buf.WriteString(propName)
		buf.WriteByte(nul)
		buf.Write(propValSep)
		buf.WriteString(encodePropertyValue(smartProps[holon.PropertyName(propName)]))
		buf.WriteByte(nul)
	}
	return buf.Bytes()
}

// DecodeLinkTag parses a link tag produced by EncodeLinkTag back into
// a relationship name and smart property map.
func DecodeLinkTag(tag []byte) (string, holon.PropertyMap, error) {
	if len(tag) < len(headerBytes) || !bytes.Equal(tag[:len(headerBytes)], headerBytes) {
		return "", nil, holonerr.New(holonerr.RecordConversion, "link tag missing or mismatched header")
	}
	rest := tag[len(headerBytes):]

	prologIdx := bytes.Index(rest, prologSeparator)
	if prologIdx < 0 {
		return "", nil, holonerr.New(holonerr.RecordConversion, "link tag missing prolog separator")
	}
	name := string(rest[:prologIdx])
	rest = rest[prologIdx+len(prologSeparator):]
	if len(rest) == 0 || rest[0] != nul {
		return "", nil, holonerr.New(holonerr.RecordConversion, "link tag missing NUL after prolog")
	}
	rest = rest[1:]

	props := make(holon.PropertyMap)
	for len(rest) > 0 {
		nameIdx := bytes.Index(rest, propNameSep)
		if nameIdx != 0 {
			return "", nil, holonerr.New(holonerr.RecordConversion, "link tag malformed property chunk")
		}
		rest = rest[len(propNameSep):]

		nulIdx := bytes.IndexByte(rest, nul)
		if nulIdx < 0 {
			return "", nil, holonerr.New(holonerr.RecordConversion, "link tag property name missing NUL")
		}
		propName := holon.PropertyName(rest[:nulIdx])
		rest = rest[nulIdx+1:]

		if !bytes.HasPrefix(rest, propValSep) {
			return "", nil, holonerr.New(holonerr.RecordConversion, "link tag missing value separator")
		}
		rest = rest[len(propValSep):]

		valNulIdx := bytes.IndexByte(rest, nul)
		if valNulIdx < 0 {
			return "", nil, holonerr.New(holonerr.RecordConversion, "link tag property value missing NUL")
		}
		encoded := string(rest[:valNulIdx])
		rest = rest[valNulIdx+1:]

		value, err := decodePropertyValue(encoded)
		if err != nil {
			return "", nil, err
		}
		props[propName] = value
	}

	return name, props, nil
}

// encodePropertyValue / decodePropertyValue use a one-letter kind tag
// so the link tag codec can round-trip without a full JSON payload per
// property (kept small: link tags are read on every relationship
// traversal).
func encodePropertyValue(v holon.PropertyValue) string {
	switch tv := v.(type) {
	case holon.StringValue:
		return "s:" + string(tv)
	case holon.IntegerValue:
		return fmt.Sprintf("i:%d", int64(tv))
	case holon.BooleanValue:
		if tv {
			return "b:1"
		}
		return "b:0"
	case holon.EnumValue:
		return "e:" + tv.Variant
	default:
		return "s:" + v.String()
	}
}

func decodePropertyValue(encoded string) (holon.PropertyValue, error) {
	if len(encoded) < 2 || encoded[1] != ':' {
		return nil, holonerr.New(holonerr.RecordConversion, "malformed encoded property value: %q", encoded)
	}
	kind, payload := encoded[0], encoded[2:]
	switch kind {
	case 's':
		return holon.StringValue(payload), nil
	case 'i':
		var n int64
		if _, err := fmt.Sscanf(payload, "%d", &n); err != nil {
			return nil, holonerr.Wrap(holonerr.RecordConversion, err, "decoding integer property value")
		}
		return holon.IntegerValue(n), nil
	case 'b':
		return holon.BooleanValue(payload == "1"), nil
	case 'e':
		return holon.EnumValue{Variant: payload}, nil
	default:
		return nil, holonerr.New(holonerr.RecordConversion, "unknown property value kind %q", string(kind))
	}
}
