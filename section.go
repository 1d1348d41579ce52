package pcapng

import "encoding/binary"

// TimestampPrecision is the coarse category derived from an
// interface's time-units-per-second (§3).
type TimestampPrecision int

const (
	PrecisionUnknown TimestampPrecision = iota
	PrecisionSeconds
	PrecisionDeciseconds
	PrecisionCentiseconds
	PrecisionMilliseconds
	PrecisionMicroseconds
	PrecisionNanoseconds
)

// LinkTypePerPacket is the sentinel value a Section's summarized
// encapsulation is promoted to once two Interface Description Blocks
// in the same section disagree (§4.3). Real link types never take
// this value in a conformant capture.
const LinkTypePerPacket = -1

// TSPrecisionPerPacket is the analogous sentinel for time-stamp
// precision summarization.
const TSPrecisionPerPacket = -1

// Interface is a per-section interface-table entry (§3).
type Interface struct {
	LinkType   uint16
	SnapLen    uint32
	TimeUnitsPerSecond uint64
	Precision  TimestampPrecision
	Inaccurate bool // true if tsresol was out of range and got clamped

	FCSLen      int8 // -1 if unspecified
	Name        string
	Description string
	Hardware    string
	OS          string
	Filter      *Filter
	IPv4Addrs   [][2][4]byte // (address, netmask) pairs
	IPv6Addrs   []IPv6Addr
	MACAddr     [6]byte
	HasMACAddr  bool
	EUIAddr     [8]byte
	HasEUIAddr  bool
	Speed       uint64
	TZOne       int32
	TSOffset    int64
	HasTSOffset bool
	Comment     string

	// Extra holds options decoded by a registered plugin option
	// handler under a code this codec doesn't natively parse (§4.11).
	Extra map[uint16]OptionValue

	Stats *InterfaceStatistics
}

// IPv6Addr is an IPv6 address plus its declared prefix length, as
// carried in an if_IPv6addr option.
type IPv6Addr struct {
	Address [16]byte
	Prefix  uint8
}

// Section is the per-section state described in §3: byte order,
// version, and interface table, all reset by the next Section Header
// Block or frozen at end of file.
type Section struct {
	ByteOrder    binary.ByteOrder
	VersionMajor uint16
	VersionMinor uint16
	SectionLength int64
	SHBOffset    int64

	Comment     string
	Hardware    string
	OS          string
	UserAppl    string

	// Extra holds options decoded by a registered plugin option
	// handler under a code this codec doesn't natively parse (§4.11).
	Extra map[uint16]OptionValue

	Interfaces []*Interface

	// LinkType and Precision summarize the section's interfaces for
	// callers that only care about the common case of one
	// encapsulation and one clock rate per file (§4.3). Both become
	// the "per packet" sentinel once a later IDB disagrees with the
	// first.
	LinkType  int32
	Precision int32
}

func newSection(order binary.ByteOrder, major, minor uint16, sectionLength, shbOffset int64) *Section {
	return &Section{
		ByteOrder:     order,
		VersionMajor:  major,
		VersionMinor:  minor,
		SectionLength: sectionLength,
		SHBOffset:     shbOffset,
		LinkType:      -2, // unset; -1 is reserved for "per packet"
		Precision:     -2,
	}
}

func (s *Section) addInterface(iface *Interface) uint32 {
	id := uint32(len(s.Interfaces))
	s.Interfaces = append(s.Interfaces, iface)

	lt := int32(iface.LinkType)
	if s.LinkType == -2 {
		s.LinkType = lt
	} else if s.LinkType != LinkTypePerPacket && s.LinkType != lt {
		s.LinkType = LinkTypePerPacket
	}

	p := int32(iface.Precision)
	if s.Precision == -2 {
		s.Precision = p
	} else if s.Precision != TSPrecisionPerPacket && s.Precision != p {
		s.Precision = TSPrecisionPerPacket
	}

	return id
}

func (s *Section) interfaceByID(id uint32) (*Interface, bool) {
	if int(id) >= len(s.Interfaces) {
		return nil, false
	}
	return s.Interfaces[id], true
}

// tsResolFromByte decodes the tsresol option byte (§3): bit 7 selects
// base 10 (0) or base 2 (1), the low 7 bits are the exponent. Ranges
// out of bounds clamp to the maximum and set inaccurate.
func tsResolFromByte(raw byte) (unitsPerSecond uint64, precision TimestampPrecision, inaccurate bool) {
	base2 := raw&0x80 != 0
	exp := int(raw & 0x7f)

	if !base2 {
		const maxExp = 19
		if exp >= maxExp {
			inaccurate = exp > maxExp
			exp = maxExp
		}
		unitsPerSecond = pow10(exp)
		precision = precisionForBase10(exp)
		return
	}

	const maxExp = 63
	if exp >= maxExp {
		inaccurate = exp > maxExp
		exp = maxExp
	}
	unitsPerSecond = uint64(1) << uint(exp)
	precision = PrecisionNanoseconds // no named category for base-2 resolutions; treat as sub-second
	return
}

func precisionForBase10(exp int) TimestampPrecision {
	switch exp {
	case 0:
		return PrecisionSeconds
	case 1:
		return PrecisionDeciseconds
	case 2:
		return PrecisionCentiseconds
	case 3:
		return PrecisionMilliseconds
	case 6:
		return PrecisionMicroseconds
	case 9:
		return PrecisionNanoseconds
	default:
		return PrecisionUnknown
	}
}

func pow10(exp int) uint64 {
	v := uint64(1)
	for i := 0; i < exp; i++ {
		v *= 10
	}
	return v
}

// tsResolToByte is the writer-side inverse for the common resolutions
// the Writer exposes (§4.10). Only exact powers of ten or two round
// trip; anything else is a programming error in the caller.
func tsResolToByte(unitsPerSecond uint64) (byte, bool) {
	// Prefer the base-10 encoding when the value is an exact power of
	// ten, since that is what every observed writer emits.
	v := unitsPerSecond
	exp := 0
	for v > 1 && v%10 == 0 {
		v /= 10
		exp++
	}
	if v == 1 && exp <= 19 {
		return byte(exp), true
	}

	v = unitsPerSecond
	exp = 0
	for v > 1 && v%2 == 0 {
		v /= 2
		exp++
	}
	if v == 1 && exp <= 63 {
		return byte(0x80 | exp), true
	}
	return 0, false
}
