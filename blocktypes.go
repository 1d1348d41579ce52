// Package pcapng implements a reader and writer for the pcapng
// capture-file format: a block-structured, option-rich, multi-section
// container for captured packets, interface descriptions,
// name-resolution records, interface statistics, decryption secrets,
// and host-specific events.
//
// It is grounded on sofiworker-gk's gnet/pcapng package, generalized
// from a single-section, three-block-kind reader/writer into the full
// block set, option dispatch tables, and extension registry the wire
// format defines.
package pcapng

import "encoding/binary"

// BlockType identifies the kind of a pcapng block. Values with bit 31
// clear are reserved for blocks standardized here or by a future
// revision of the format; values with bit 31 set are local to a
// capture application and may only be handled through the extension
// registry (§4.11, §6).
type BlockType uint32

// Standard block types (§6).
const (
	SectionHeaderBlockType        BlockType = 0x0A0D0D0A
	InterfaceDescriptionBlockType BlockType = 0x00000001
	PacketBlockType               BlockType = 0x00000002 // obsolete
	SimplePacketBlockType         BlockType = 0x00000003
	NameResolutionBlockType       BlockType = 0x00000004
	InterfaceStatisticsBlockType  BlockType = 0x00000005
	EnhancedPacketBlockType       BlockType = 0x00000006
	JournalExportBlockType        BlockType = 0x00000009
	DecryptionSecretsBlockType    BlockType = 0x0000000A
	HostEventV1BlockType          BlockType = 0x00000204
	HostEventV2BlockType          BlockType = 0x00000208
)

// LocalBlockTypeBit is bit 31; a block type with this bit set is a
// capture-application-local block that must go through the extension
// registry rather than being interpreted natively.
const LocalBlockTypeBit BlockType = 0x80000000

// IsLocal reports whether t is only usable via a registered plugin
// handler.
func (t BlockType) IsLocal() bool { return t&LocalBlockTypeBit != 0 }

func (t BlockType) isCore() bool {
	switch t {
	case SectionHeaderBlockType, InterfaceDescriptionBlockType, PacketBlockType,
		SimplePacketBlockType, NameResolutionBlockType, InterfaceStatisticsBlockType,
		EnhancedPacketBlockType, JournalExportBlockType, DecryptionSecretsBlockType,
		HostEventV1BlockType, HostEventV2BlockType:
		return true
	default:
		return false
	}
}

// Byte-order magic numbers carried in the Section Header Block's body
// (§4.2). The magic is always decoded in on-disk byte order: reading
// it as big-endian yields MagicNumberLittle for a little-endian section
// (bytes 4D 3C 2B 1A) and MagicNumberBig for a big-endian one (bytes
// 1A 2B 3C 4D), since the magic bytes themselves are the disambiguator.
const (
	MagicNumberLittle uint32 = 0x4D3C2B1A
	MagicNumberBig    uint32 = 0x1A2B3C4D
)

// Size bounds (§3, §4.1). defaultMaxBlockSize is the default of the
// ceiling (set with WithMaxBlockSize) used to resist pathological
// allocation: 16 MiB plus the largest plausible captured-packet length.
const (
	MinBlockSize      = 12
	MinSectionHeaderBlockSize = 28
	defaultMaxBlockSize       = 16<<20 + 262144
	MaxSecretsLength          = 1 << 30 // 1 GiB, §4.7
)

// EndOfOptionsCode and CommentOptionCode are shared across every
// option namespace (§6).
const (
	EndOfOptionsCode uint16 = 0
	CommentOptionCode uint16 = 1
)

// orderForMagic maps the byte-order magic field, decoded as a raw
// big-endian uint32 regardless of section order (§4.2), to the byte
// order it selects. It reports false if magic is neither recognized
// value, which is the not-our-format probe signal.
func orderForMagic(magic uint32) (binary.ByteOrder, bool) {
	switch magic {
	case MagicNumberLittle:
		return binary.LittleEndian, true
	case MagicNumberBig:
		return binary.BigEndian, true
	default:
		return nil, false
	}
}

func magicForOrder(order binary.ByteOrder) uint32 {
	if order == binary.BigEndian {
		return MagicNumberBig
	}
	return MagicNumberLittle
}
