package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/holontx/pkg/holon"
)

// EncodeLinkTag/DecodeLinkTag must round-trip byte-exactly for every
// well-formed tag (P7), across every PropertyValue kind and the
// no-smart-properties case.
func TestLinkTagRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		rel   string
		props holon.PropertyMap
	}{
		{name: "no properties", rel: "AUTHORED_BY", props: holon.PropertyMap{}},
		{
			name: "string property",
			rel:  "AUTHORED_BY",
			props: holon.PropertyMap{
				"key": holon.StringValue("Roger Briggs"),
			},
		},
		{
			name: "mixed kinds",
			rel:  "HAS_RELATIONSHIP_REFERENCE",
			props: holon.PropertyMap{
				"key":         holon.StringValue("order-42"),
				"quantity":    holon.IntegerValue(7),
				"is_declared": holon.BooleanValue(true),
				"status":      holon.EnumValue{Variant: "Active"},
			},
		},
		{
			name:  "negative integer",
			rel:   "REFERENCE_TARGET",
			props: holon.PropertyMap{"offset": holon.IntegerValue(-5)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tag := EncodeLinkTag(tc.rel, tc.props)
			name, props, err := DecodeLinkTag(tag)
			require.NoError(t, err)
			assert.Equal(t, tc.rel, name)
			assert.Equal(t, tc.props, props)

			// re-encoding the decoded form must reproduce the same bytes.
			reEncoded := EncodeLinkTag(name, props)
			assert.Equal(t, tag, reEncoded)
		})
	}
}

func TestDecodeLinkTagRejectsBadHeader(t *testing.T) {
	_, _, err := DecodeLinkTag([]byte{0x02, 0x00})
	require.Error(t, err)
}

func TestDecodeLinkTagRejectsMissingProlog(t *testing.T) {
	tag := append([]byte{0x01}, []byte("AUTHORED_BY")...)
	_, _, err := DecodeLinkTag(tag)
	require.Error(t, err)
}
