package pcapng

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterfaceDescriptionRoundTrip(t *testing.T) {
	iface := &Interface{
		LinkType:           113,
		SnapLen:            65535,
		Name:               "wlan0",
		Description:        "wireless test interface",
		Hardware:           "Intel AX210",
		OS:                 "Linux 6.6",
		Comment:            "captured for testing",
		TimeUnitsPerSecond: 1_000_000_000,
		Speed:              1_000_000_000,
		TZOne:              3600,
		HasTSOffset:        true,
		TSOffset:           -18000,
		HasMACAddr:         true,
		MACAddr:            [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		FCSLen:             4,
		IPv4Addrs:          [][2][4]byte{{{192, 168, 1, 1}, {255, 255, 255, 0}}},
		IPv6Addrs:          []IPv6Addr{{Address: [16]byte{0x20, 0x01}, Prefix: 64}},
	}

	body, err := encodeInterfaceDescriptionBody(iface, binary.LittleEndian, DefaultRegistry)
	require.NoError(t, err)
	got, err := parseInterfaceDescriptionBody(body, binary.LittleEndian, 0, noopLogger{}, DefaultRegistry)
	require.NoError(t, err)

	assert.Equal(t, iface.LinkType, got.LinkType)
	assert.Equal(t, iface.SnapLen, got.SnapLen)
	assert.Equal(t, iface.Name, got.Name)
	assert.Equal(t, iface.Description, got.Description)
	assert.Equal(t, iface.Hardware, got.Hardware)
	assert.Equal(t, iface.OS, got.OS)
	assert.Equal(t, iface.Comment, got.Comment)
	assert.Equal(t, iface.TimeUnitsPerSecond, got.TimeUnitsPerSecond)
	assert.Equal(t, iface.Speed, got.Speed)
	assert.Equal(t, iface.TZOne, got.TZOne)
	assert.True(t, got.HasTSOffset)
	assert.Equal(t, iface.TSOffset, got.TSOffset)
	assert.True(t, got.HasMACAddr)
	assert.Equal(t, iface.MACAddr, got.MACAddr)
	assert.EqualValues(t, 4, got.FCSLen)
	require.Len(t, got.IPv4Addrs, 1)
	assert.Equal(t, iface.IPv4Addrs[0], got.IPv4Addrs[0])
	require.Len(t, got.IPv6Addrs, 1)
	assert.Equal(t, iface.IPv6Addrs[0], got.IPv6Addrs[0])
}

func TestInterfaceDescriptionDefaultsToMicrosecondResolution(t *testing.T) {
	iface := &Interface{LinkType: 1, SnapLen: 1500}
	body, err := encodeInterfaceDescriptionBody(iface, binary.LittleEndian, DefaultRegistry)
	require.NoError(t, err)
	got, err := parseInterfaceDescriptionBody(body, binary.LittleEndian, 0, noopLogger{}, DefaultRegistry)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000, got.TimeUnitsPerSecond)
	assert.Equal(t, PrecisionMicroseconds, got.Precision)
}

func TestInterfaceDescriptionTooShortIsBadFile(t *testing.T) {
	_, err := parseInterfaceDescriptionBody(make([]byte, 4), binary.LittleEndian, 0, noopLogger{}, DefaultRegistry)
	assert.ErrorIs(t, err, ErrBadFile)
}
