package pcapng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTSResolByteRoundTripBase10(t *testing.T) {
	units := []uint64{1, 10, 100, 1_000, 1_000_000, 1_000_000_000}
	for _, u := range units {
		b, ok := tsResolToByte(u)
		assert.True(t, ok, "unitsPerSecond=%d", u)
		gotUnits, _, inaccurate := tsResolFromByte(b)
		assert.Equal(t, u, gotUnits)
		assert.False(t, inaccurate)
	}
}

func TestTSResolByteRoundTripBase2(t *testing.T) {
	b, ok := tsResolToByte(1 << 20)
	assert.True(t, ok)
	assert.Equal(t, byte(0x80|20), b)
	units, _, inaccurate := tsResolFromByte(b)
	assert.EqualValues(t, 1<<20, units)
	assert.False(t, inaccurate)
}

func TestTSResolFromByteClampsOutOfRangeExponent(t *testing.T) {
	// base-10 exponent 30 is beyond the max of 19; must clamp, not panic.
	units, _, inaccurate := tsResolFromByte(30)
	assert.True(t, inaccurate)
	assert.EqualValues(t, pow10(19), units)
}

func TestTSResolToByteRejectsNonPowerValue(t *testing.T) {
	_, ok := tsResolToByte(3)
	assert.False(t, ok)
}

func TestSectionLinkTypeBecomesPerPacketOnDisagreement(t *testing.T) {
	s := newSection(nil, 1, 0, -1, 0)
	s.addInterface(&Interface{LinkType: 1})
	assert.EqualValues(t, 1, s.LinkType)
	s.addInterface(&Interface{LinkType: 113})
	assert.EqualValues(t, LinkTypePerPacket, s.LinkType)
}

func TestSectionPrecisionStaysStableWhenInterfacesAgree(t *testing.T) {
	s := newSection(nil, 1, 0, -1, 0)
	s.addInterface(&Interface{LinkType: 1, Precision: PrecisionMicroseconds})
	s.addInterface(&Interface{LinkType: 1, Precision: PrecisionMicroseconds})
	assert.EqualValues(t, PrecisionMicroseconds, s.Precision)
}
