package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionsAddSetRemove(t *testing.T) {
	var o Options
	o = o.AddString(URIQuery, "a=1")
	o = o.SetUint32(ContentFormat, uint32(AppJSON))
	o = o.AddString(URIQuery, "b=2")
	o = o.AddString(URIHost, "example.com")
	require.Equal(t, []OptionID{URIHost, ContentFormat, URIQuery, URIQuery}, ids(o))

	q, err := o.Queries()
	require.NoError(t, err)
	require.Equal(t, []string{"a=1", "b=2"}, q)

	o = o.SetString(URIQuery, "c=3")
	q, err = o.Queries()
	require.NoError(t, err)
	require.Equal(t, []string{"c=3"}, q)

	o = o.Remove(URIQuery)
	require.False(t, o.HasOption(URIQuery))
	require.Equal(t, []OptionID{URIHost, ContentFormat}, ids(o))
	o = o.Remove(Observe)
	require.Len(t, o, 2)

	cf, err := o.ContentFormat()
	require.NoError(t, err)
	require.Equal(t, AppJSON, cf)
}

func TestOptionsPath(t *testing.T) {
	o, err := Options{}.SetPath("/a/b/c")
	require.NoError(t, err)
	p, err := o.Path()
	require.NoError(t, err)
	require.Equal(t, "/a/b/c", p)

	o, err = o.SetPath("x")
	require.NoError(t, err)
	p, err = o.Path()
	require.NoError(t, err)
	require.Equal(t, "/x", p)

	_, err = Options{}.Path()
	require.ErrorIs(t, err, ErrOptionNotFound)

	long := make([]byte, maxPathValue+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = o.SetPath("/" + string(long))
	require.ErrorIs(t, err, ErrInvalidValueLength)
}

func TestOptionsClone(t *testing.T) {
	o := Options{}.SetBytes(ETag, []byte{1, 2})
	c := o.Clone()
	c[0].Value[0] = 9
	c = c.SetObserve(0)
	require.Equal(t, []byte{1, 2}, o[0].Value)
	require.Len(t, o, 1)
	require.True(t, c.HasOption(Observe))
}

func TestOptionsMarshalUnmarshal(t *testing.T) {
	var o Options
	o = o.SetObserve(0)
	o, err := o.SetPath("/temperature")
	require.NoError(t, err)
	o = o.SetUint32(Block2, 0x0e)
	o = o.SetUint32(Size1, 1024)
	buf, err := o.AppendTo(nil)
	require.NoError(t, err)
	require.Equal(t, []byte{
		// Observe, empty value
		0x60,
		// Uri-Path, delta 5
		0x5b, 't', 'e', 'm', 'p', 'e', 'r', 'a', 't', 'u', 'r', 'e',
		// Block2, delta 12
		0xc1, 0x0e,
		// Size1, delta 37 = 13+24
		0xd2, 0x18, 0x04, 0x00,
	}, buf)

	var got Options
	n, err := got.Unmarshal(buf, CoapOptionDefs)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, ids(o), ids(got))
	v, err := got.GetUint32(Size1)
	require.NoError(t, err)
	require.Equal(t, uint32(1024), v)
}

func TestOptionsUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{name: "extend marker", data: []byte{0xf0}, err: ErrOptionUnexpectedExtendMarker},
		{name: "truncated ext", data: []byte{0xd0}, err: ErrOptionTruncated},
		{name: "truncated value", data: []byte{0xb3, 'a'}, err: ErrOptionTruncated},
		{name: "marker without payload", data: []byte{0xff}, err: ErrPayloadMarkerWithoutPayload},
		{name: "critical too long", data: []byte{0x75, 1, 2, 3, 4, 5}, err: ErrInvalidValueLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o Options
			_, err := o.Unmarshal(tt.data, CoapOptionDefs)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestOptionsUnmarshalSkipsInvalidElective(t *testing.T) {
	// Max-Age (14, elective) with 5 bytes, followed by the payload marker.
	data := []byte{0xd5, 0x01, 1, 2, 3, 4, 5, 0xff, 'x'}
	var o Options
	n, err := o.Unmarshal(data, CoapOptionDefs)
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Empty(t, o)
}

func TestEncodeDecodeUint32(t *testing.T) {
	tests := []struct {
		value uint32
		enc   []byte
	}{
		{value: 0, enc: []byte{}},
		{value: 1, enc: []byte{1}},
		{value: 256, enc: []byte{1, 0}},
		{value: 16777200, enc: []byte{0xff, 0xff, 0xf0}},
		{value: 0x01020304, enc: []byte{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		enc := encodeUint32(tt.value)
		require.Equal(t, tt.enc, enc)
		v, n, err := DecodeUint32(enc)
		require.NoError(t, err)
		require.Equal(t, len(tt.enc), n)
		require.Equal(t, tt.value, v)
	}
	_, err := EncodeUint32(make([]byte, 1), 256)
	require.ErrorIs(t, err, ErrTooSmall)
	_, _, err = DecodeUint32([]byte{1, 2, 3, 4, 5})
	require.ErrorIs(t, err, ErrInvalidValueLength)
}

func ids(o Options) []OptionID {
	r := make([]OptionID, 0, len(o))
	for _, opt := range o {
		r = append(r, opt.ID)
	}
	return r
}
