package pcapng

import (
	"bufio"
	"encoding/binary"
	"io"
)

// UnknownBlock is returned by NextBlock for a recognized-format block
// whose type has no core or registered handler (§4.9, §4.11). Body
// is everything between the 8-byte frame header and the trailer; it
// is exactly what a plugin BlockReaderFunc would have received.
type UnknownBlock struct {
	Type BlockType
	Body []byte
}

// ReaderOption configures a Reader at construction time.
type ReaderOption func(*Reader)

// WithMaxBlockSize overrides the block-length ceiling NextBlock
// enforces before allocating a body buffer (§4.1, §7).
func WithMaxBlockSize(n uint32) ReaderOption {
	return func(r *Reader) { r.maxBlockSize = n }
}

// WithReaderRegistry supplies a Registry other than DefaultRegistry
// for plugin block and option dispatch (§4.11).
func WithReaderRegistry(reg *Registry) ReaderOption {
	return func(r *Reader) { r.registry = reg }
}

// WithReaderLogger supplies a Logger for the non-fatal anomalies §7
// calls out. The default is a no-op logger.
func WithReaderLogger(l Logger) ReaderOption {
	return func(r *Reader) { r.logger = l }
}

// WithEncapLimiter supplies the per-encapsulation snap-length ceiling
// used to validate packet cap_len against link type (§4.4). Without
// one, that specific check is skipped.
func WithEncapLimiter(l EncapLimiter) ReaderOption {
	return func(r *Reader) { r.limiter = l }
}

// WithNameSink routes decoded NRB records to an external name table as
// they're read, instead of only returning them from NextBlock (§4.5).
func WithNameSink(sink NameSink) ReaderOption {
	return func(r *Reader) { r.nameSink = sink }
}

// Reader decodes a pcapng byte stream block by block, tracking the
// current section's byte order and interface table as it goes (§3,
// §4.12).
type Reader struct {
	r         io.Reader
	confirmed bool
	section   *Section
	sections  []*Section // every section seen so far, for random access (§5)
	offset    int64

	maxBlockSize uint32
	registry     *Registry
	logger       Logger
	limiter      EncapLimiter
	nameSink     NameSink
}

// Probe peeks at the start of r without consuming it from the
// caller's perspective: it returns a replacement reader that must be
// used in r's place (its own internal buffer already holds the peeked
// bytes) along with whether the stream begins with a recognizable
// Section Header Block (§4.12, initial probe state).
func Probe(r io.Reader) (io.Reader, bool) {
	br := bufio.NewReaderSize(r, MinSectionHeaderBlockSize)
	peek, err := br.Peek(12)
	if err != nil || len(peek) < 12 {
		return br, false
	}
	// The block type field is a palindrome, so byte order doesn't
	// matter for this comparison.
	if BlockType(binary.BigEndian.Uint32(peek[0:4])) != SectionHeaderBlockType {
		return br, false
	}
	_, ok := orderForMagic(binary.BigEndian.Uint32(peek[8:12]))
	return br, ok
}

// NewReader constructs a Reader over r. Callers that need to
// distinguish "not a pcapng stream" from other I/O errors up front
// should run r through Probe first; NewReader itself defers that
// check to the first NextBlock call.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	rd := &Reader{
		r:            r,
		maxBlockSize: defaultMaxBlockSize,
		registry:     DefaultRegistry,
		logger:       noopLogger{},
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// CurrentSection returns the section the most recently read block
// belongs to, or nil before the first Section Header Block.
func (rd *Reader) CurrentSection() *Section { return rd.section }

// Sections returns every section header seen so far, in file order,
// for random access by SHBOffset (§5).
func (rd *Reader) Sections() []*Section { return rd.sections }

// Offset returns the byte offset NextBlock will read from next.
func (rd *Reader) Offset() int64 { return rd.offset }

// NextBlock reads and decodes the next block. It returns io.EOF at a
// clean end of stream (a block boundary with nothing left to read).
// The concrete type of the first return value depends on the block
// decoded: *Section, *Interface, *Packet, *NameResolution,
// *InterfaceStatistics, *Secrets, *HostEvent, []JournalEntry, or
// *UnknownBlock.
func (rd *Reader) NextBlock() (interface{}, error) {
	startOffset := rd.offset

	var hdr [8]byte
	if err := readExact(rd.r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}
	rd.offset += 8

	rawType := BlockType(binary.BigEndian.Uint32(hdr[0:4]))
	if rawType == SectionHeaderBlockType {
		return rd.readSectionHeader(hdr, startOffset)
	}

	if rd.section == nil {
		if !rd.confirmed {
			return nil, ErrNotPcapng
		}
		return nil, badFile(startOffset, "expected a section header block")
	}

	return rd.readNonSectionBlock(hdr, startOffset)
}

// readNonSectionBlock decodes everything from the total_length half of
// a block header onward, given that rd.section already carries the
// byte order and interface table to decode it with. NextBlock uses it
// for sequential reads; SeekRead (random.go) uses it directly on a
// block reached by jumping to an arbitrary offset, after pointing
// rd.section at whichever section owns that offset.
func (rd *Reader) readNonSectionBlock(hdr [8]byte, startOffset int64) (interface{}, error) {
	order := rd.section.ByteOrder
	blockType := BlockType(order.Uint32(hdr[0:4]))
	totalLength := order.Uint32(hdr[4:8])
	if err := checkBlockLength(totalLength, MinBlockSize, rd.maxBlockSize, startOffset); err != nil {
		return nil, err
	}

	bodyLen := totalLength - 12
	body, err := readBody(rd.r, bodyLen)
	if err != nil {
		return nil, err
	}
	rd.offset += int64(bodyLen)

	if err := readTrailer(rd.r, order, totalLength, startOffset); err != nil {
		return nil, err
	}
	rd.offset += 4

	return rd.decodeBody(blockType, body, order, startOffset)
}

func (rd *Reader) readSectionHeader(hdr [8]byte, startOffset int64) (*Section, error) {
	var bom [4]byte
	if err := readExact(rd.r, bom[:]); err != nil {
		if err == io.EOF {
			return nil, ErrShortRead
		}
		return nil, err
	}
	rd.offset += 4

	order, ok := orderForMagic(binary.BigEndian.Uint32(bom[:]))
	if !ok {
		if !rd.confirmed {
			return nil, ErrNotPcapng
		}
		return nil, badFile(startOffset, "unrecognized byte-order magic")
	}
	rd.confirmed = true

	totalLength := order.Uint32(hdr[4:8])
	if err := checkBlockLength(totalLength, MinSectionHeaderBlockSize, rd.maxBlockSize, startOffset); err != nil {
		return nil, err
	}

	bodyLen := totalLength - 12
	rest, err := readBody(rd.r, bodyLen-4) // 4 bytes of body (the magic) already consumed
	if err != nil {
		return nil, err
	}
	rd.offset += int64(bodyLen - 4)

	if err := readTrailer(rd.r, order, totalLength, startOffset); err != nil {
		return nil, err
	}
	rd.offset += 4

	// section.SectionLength is informational only; navigation never
	// relies on it (§4.2).
	section, err := parseSectionHeaderBody(rest, order, startOffset, rd.registry)
	if err != nil {
		return nil, err
	}

	rd.section = section
	rd.sections = append(rd.sections, section)
	return section, nil
}

func (rd *Reader) decodeBody(blockType BlockType, body []byte, order binary.ByteOrder, offset int64) (interface{}, error) {
	switch blockType {
	case InterfaceDescriptionBlockType:
		iface, err := parseInterfaceDescriptionBody(body, order, offset, rd.logger, rd.registry)
		if err != nil {
			return nil, err
		}
		rd.section.addInterface(iface)
		return iface, nil

	case EnhancedPacketBlockType:
		return parseEnhancedPacketBody(body, order, offset, rd.section, rd.limiter, rd.logger, rd.registry)

	case PacketBlockType:
		return parseObsoletePacketBody(body, order, offset, rd.section, rd.limiter, rd.logger, rd.registry)

	case SimplePacketBlockType:
		return parseSimplePacketBody(body, order, offset, rd.section)

	case NameResolutionBlockType:
		return parseNameResolutionBody(body, order, offset, rd.nameSink, rd.registry)

	case InterfaceStatisticsBlockType:
		stats, err := parseInterfaceStatisticsBody(body, order, offset, rd.section, rd.registry)
		if err != nil {
			return nil, err
		}
		if iface, ok := rd.section.interfaceByID(stats.InterfaceID); ok {
			iface.Stats = stats
		}
		return stats, nil

	case DecryptionSecretsBlockType:
		return parseDecryptionSecretsBody(body, order, offset)

	case HostEventV1BlockType:
		return parseHostEventBody(body, order, offset, HostEventSysdigV1)

	case HostEventV2BlockType:
		return parseHostEventBody(body, order, offset, HostEventSysdigV2)

	case JournalExportBlockType:
		return parseJournalExportBody(body, offset)

	default:
		if handler, ok := rd.registry.lookupBlockHandler(blockType); ok {
			return handler.read(newFixedReader(body), order, uint32(len(body)))
		}
		if blockType.IsLocal() {
			rd.logger.Warnf("pcapng: skipping unregistered local block type %#08x", uint32(blockType))
		} else {
			rd.logger.Warnf("pcapng: skipping unrecognized reserved block type %#08x", uint32(blockType))
		}
		return &UnknownBlock{Type: blockType, Body: body}, nil
	}
}

// ReadPacket skips non-packet blocks and returns the next packet
// record, updating section/interface state as it passes over
// intervening blocks. It matches the convenience method the base
// codec offers alongside the general NextBlock dispatch.
func (rd *Reader) ReadPacket() (*Packet, error) {
	for {
		block, err := rd.NextBlock()
		if err != nil {
			return nil, err
		}
		if pkt, ok := block.(*Packet); ok {
			return pkt, nil
		}
	}
}

type fixedReader struct {
	data []byte
	pos  int
}

func newFixedReader(data []byte) *fixedReader { return &fixedReader{data: data} }

func (f *fixedReader) Read(p []byte) (int, error) {
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += n
	return n, nil
}
