package pcapng

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionHeaderBodyRoundTrip(t *testing.T) {
	s := &Section{
		ByteOrder:    binary.LittleEndian,
		VersionMajor: 1,
		VersionMinor: 0,
		SectionLength: -1,
		Comment:      "test section",
		Hardware:     "x86_64",
		OS:           "Linux",
		UserAppl:     "gopcapng-test",
	}
	full, err := encodeSectionHeaderBody(s, DefaultRegistry)
	require.NoError(t, err)
	// parseSectionHeaderBody expects the body with the magic already
	// stripped, mirroring how Reader.readSectionHeader consumes it.
	got, err := parseSectionHeaderBody(full[4:], binary.LittleEndian, 0, DefaultRegistry)
	require.NoError(t, err)
	assert.Equal(t, s.Comment, got.Comment)
	assert.Equal(t, s.Hardware, got.Hardware)
	assert.Equal(t, s.OS, got.OS)
	assert.Equal(t, s.UserAppl, got.UserAppl)
	assert.EqualValues(t, 1, got.VersionMajor)
}

func TestSectionHeaderBodyRejectsUnsupportedVersion(t *testing.T) {
	s := &Section{ByteOrder: binary.LittleEndian, VersionMajor: 2, VersionMinor: 0, SectionLength: -1}
	full, err := encodeSectionHeaderBody(s, DefaultRegistry)
	require.NoError(t, err)
	_, err = parseSectionHeaderBody(full[4:], binary.LittleEndian, 0, DefaultRegistry)
	assert.ErrorIs(t, err, ErrBadFile)
}

func TestSectionHeaderBodyPreservesExplicitZeroLength(t *testing.T) {
	s := &Section{ByteOrder: binary.LittleEndian, VersionMajor: 1, VersionMinor: 0, SectionLength: 0}
	full, err := encodeSectionHeaderBody(s, DefaultRegistry)
	require.NoError(t, err)
	got, err := parseSectionHeaderBody(full[4:], binary.LittleEndian, 0, DefaultRegistry)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.SectionLength)
}

func TestOrderForMagicRecognizesBothByteOrders(t *testing.T) {
	order, ok := orderForMagic(MagicNumberLittle)
	assert.True(t, ok)
	assert.Equal(t, binary.LittleEndian, order)

	order, ok = orderForMagic(MagicNumberBig)
	assert.True(t, ok)
	assert.Equal(t, binary.BigEndian, order)

	_, ok = orderForMagic(0xDEADBEEF)
	assert.False(t, ok)
}
