package pcapng

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	resolved []string
}

func (s *recordingSink) ResolveName(address []byte, isIPv6 bool, name string) {
	s.resolved = append(s.resolved, name)
}

func TestNameResolutionRoundTrip(t *testing.T) {
	nr := &NameResolution{
		Records: []NameRecord{
			{IsIPv6: false, Address: []byte{192, 0, 2, 1}, Names: []string{"host-a.example"}},
			{IsIPv6: true, Address: make([]byte, 16), Names: []string{"host-b.example", "host-b-alias.example"}},
		},
		DNSName:  "resolver.example",
		HasDNSv4: true,
		DNSIPv4:  [4]byte{8, 8, 8, 8},
	}

	body, err := encodeNameResolutionBody(nr, binary.LittleEndian, DefaultRegistry)
	require.NoError(t, err)

	sink := &recordingSink{}
	got, err := parseNameResolutionBody(body, binary.LittleEndian, 0, sink, DefaultRegistry)
	require.NoError(t, err)

	require.Len(t, got.Records, 2)
	assert.False(t, got.Records[0].IsIPv6)
	assert.Equal(t, []string{"host-a.example"}, got.Records[0].Names)
	assert.True(t, got.Records[1].IsIPv6)
	assert.Equal(t, []string{"host-b.example", "host-b-alias.example"}, got.Records[1].Names)
	assert.Equal(t, "resolver.example", got.DNSName)
	assert.True(t, got.HasDNSv4)
	assert.Equal(t, [4]byte{8, 8, 8, 8}, got.DNSIPv4)

	assert.ElementsMatch(t, []string{"host-a.example", "host-b.example", "host-b-alias.example"}, sink.resolved)
}

func TestNameResolutionMissingEndMarkerIsBadFile(t *testing.T) {
	// A complete IPv4 record (address + "a\0", padded to 8) with no
	// terminating zero-type record after it.
	body := []byte{0x01, 0x00, 0x06, 0x00, 192, 0, 2, 1, 'a', 0x00, 0x00, 0x00}
	_, err := parseNameResolutionBody(body, binary.LittleEndian, 0, nil, DefaultRegistry)
	assert.Error(t, err)
}

func TestSplitNulTerminatedStrings(t *testing.T) {
	names, terminated := splitNulTerminatedStrings([]byte("first\x00second\x00"))
	assert.Equal(t, []string{"first", "second"}, names)
	assert.True(t, terminated)
}

func TestSplitNulTerminatedStringsMissingTrailingNul(t *testing.T) {
	names, terminated := splitNulTerminatedStrings([]byte("first\x00second"))
	assert.Equal(t, []string{"first"}, names)
	assert.False(t, terminated)
}

func TestNameResolutionRecordMissingTrailingNulIsBadFile(t *testing.T) {
	value := append([]byte{192, 0, 2, 1}, "abc\x00def"...) // 4-byte address + "abc\0def", 11 bytes
	body := []byte{0x01, 0x00, byte(len(value)), 0x00}     // type=IPv4, len=11
	body = append(body, value...)
	body = append(body, make([]byte, paddedLen(len(value))-len(value))...) // pad to 4-byte alignment
	body = append(body, 0x00, 0x00, 0x00, 0x00)                            // end-of-records marker
	_, err := parseNameResolutionBody(body, binary.LittleEndian, 0, nil, DefaultRegistry)
	assert.ErrorIs(t, err, ErrBadFile)
}
