package pcapng

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// WriterOption configures a Writer or a section it opens.
type WriterOption func(*writerConfig) error

type writerConfig struct {
	byteOrder             binary.ByteOrder
	major, minor          uint16
	sectionLength         int64
	comment               string
	hardware              string
	os                    string
	userAppl              string
	defaultUnitsPerSecond uint64
	bufferSize            int
	registry              *Registry
	extra                 map[uint16]OptionValue
	limiter               EncapLimiter
}

// WithByteOrder selects the section's on-wire byte order (§4.2).
func WithByteOrder(order binary.ByteOrder) WriterOption {
	return func(cfg *writerConfig) error {
		if order != binary.BigEndian && order != binary.LittleEndian {
			return fmt.Errorf("pcapng: unsupported byte order")
		}
		cfg.byteOrder = order
		return nil
	}
}

// WithSectionVersion overrides the section version; only 1.0 and 1.2
// are accepted by a conformant reader (§4.2).
func WithSectionVersion(major, minor uint16) WriterOption {
	return func(cfg *writerConfig) error {
		if major != 1 || (minor != 0 && minor != 2) {
			return fmt.Errorf("pcapng: unsupported section version %d.%d", major, minor)
		}
		cfg.major, cfg.minor = major, minor
		return nil
	}
}

// WithSectionLength sets the section_length field. It is informational
// only; pass -1 (the default) to declare it unknown.
func WithSectionLength(length int64) WriterOption {
	return func(cfg *writerConfig) error {
		cfg.sectionLength = length
		return nil
	}
}

func WithSectionComment(s string) WriterOption {
	return func(cfg *writerConfig) error { cfg.comment = s; return nil }
}

func WithSectionHardware(s string) WriterOption {
	return func(cfg *writerConfig) error { cfg.hardware = s; return nil }
}

func WithSectionOS(s string) WriterOption {
	return func(cfg *writerConfig) error { cfg.os = s; return nil }
}

func WithSectionUserApplication(s string) WriterOption {
	return func(cfg *writerConfig) error { cfg.userAppl = s; return nil }
}

// WithDefaultTimestampResolution sets the tick rate new interfaces get
// when AddInterface doesn't specify one of its own.
func WithDefaultTimestampResolution(unitsPerSecond uint64) WriterOption {
	return func(cfg *writerConfig) error {
		if _, ok := tsResolToByte(unitsPerSecond); !ok {
			return fmt.Errorf("pcapng: %d ticks/second has no tsresol encoding", unitsPerSecond)
		}
		cfg.defaultUnitsPerSecond = unitsPerSecond
		return nil
	}
}

// WithBuffer enables buffered writes to cut down on syscalls.
func WithBuffer(size int) WriterOption {
	return func(cfg *writerConfig) error {
		if size <= 0 {
			return fmt.Errorf("pcapng: buffer size must be positive")
		}
		cfg.bufferSize = size
		return nil
	}
}

// WithWriterRegistry supplies a Registry other than DefaultRegistry
// for writing plugin block types via WritePluginBlock and plugin
// option codes via WithSectionExtra.
func WithWriterRegistry(reg *Registry) WriterOption {
	return func(cfg *writerConfig) error { cfg.registry = reg; return nil }
}

// WithSectionExtra attaches options decoded by a registered plugin
// option handler (typically replayed from a Section.Extra a Reader
// produced) to the section this Writer is about to open (§4.11).
func WithSectionExtra(extra map[uint16]OptionValue) WriterOption {
	return func(cfg *writerConfig) error { cfg.extra = extra; return nil }
}

// WithWriterEncapLimiter supplies the per-encapsulation snap-length
// ceiling AddInterface consults when a caller asks for the interface's
// default snap length by passing snapLen 0 (§1, §4.3). Without one,
// AddInterface does not check the link type and writes snapLen 0
// as-is (no limit).
func WithWriterEncapLimiter(l EncapLimiter) WriterOption {
	return func(cfg *writerConfig) error { cfg.limiter = l; return nil }
}

// InterfaceOption configures an interface added with AddInterface. It
// mutates the same Interface value the reader produces, so a captured
// Interface can be replayed into a new file by passing its fields
// through the With* constructors below.
type InterfaceOption func(*Interface) error

func WithInterfaceName(s string) InterfaceOption {
	return func(i *Interface) error { i.Name = s; return nil }
}

func WithInterfaceDescription(s string) InterfaceOption {
	return func(i *Interface) error { i.Description = s; return nil }
}

func WithInterfaceComment(s string) InterfaceOption {
	return func(i *Interface) error { i.Comment = s; return nil }
}

func WithInterfaceHardware(s string) InterfaceOption {
	return func(i *Interface) error { i.Hardware = s; return nil }
}

func WithInterfaceOS(s string) InterfaceOption {
	return func(i *Interface) error { i.OS = s; return nil }
}

// WithInterfaceTimestampResolution overrides the interface's tick
// rate. unitsPerSecond must be an exact power of ten or two, since
// that's all tsresol can express (§3).
func WithInterfaceTimestampResolution(unitsPerSecond uint64) InterfaceOption {
	return func(i *Interface) error {
		b, ok := tsResolToByte(unitsPerSecond)
		if !ok {
			return fmt.Errorf("pcapng: %d ticks/second has no tsresol encoding", unitsPerSecond)
		}
		units, precision, _ := tsResolFromByte(b)
		i.TimeUnitsPerSecond = units
		i.Precision = precision
		return nil
	}
}

func WithInterfaceSpeed(bitsPerSecond uint64) InterfaceOption {
	return func(i *Interface) error { i.Speed = bitsPerSecond; return nil }
}

func WithInterfaceFCSLen(n int8) InterfaceOption {
	return func(i *Interface) error { i.FCSLen = n; return nil }
}

func WithInterfaceTimezone(offset int32) InterfaceOption {
	return func(i *Interface) error { i.TZOne = offset; return nil }
}

func WithInterfaceTSOffset(offset int64) InterfaceOption {
	return func(i *Interface) error { i.TSOffset, i.HasTSOffset = offset, true; return nil }
}

func WithInterfaceMACAddr(addr [6]byte) InterfaceOption {
	return func(i *Interface) error { i.MACAddr, i.HasMACAddr = addr, true; return nil }
}

func WithInterfaceFilter(f *Filter) InterfaceOption {
	return func(i *Interface) error { i.Filter = f; return nil }
}

func WithInterfaceIPv4Addr(address, netmask [4]byte) InterfaceOption {
	return func(i *Interface) error {
		i.IPv4Addrs = append(i.IPv4Addrs, [2][4]byte{address, netmask})
		return nil
	}
}

func WithInterfaceIPv6Addr(address [16]byte, prefix uint8) InterfaceOption {
	return func(i *Interface) error {
		i.IPv6Addrs = append(i.IPv6Addrs, IPv6Addr{Address: address, Prefix: prefix})
		return nil
	}
}

// WithInterfaceExtra attaches options decoded by a registered plugin
// option handler (typically replayed from an Interface.Extra a Reader
// produced) to the interface being added (§4.11).
func WithInterfaceExtra(extra map[uint16]OptionValue) InterfaceOption {
	return func(i *Interface) error { i.Extra = extra; return nil }
}

// Writer emits a pcapng byte stream section by section (§4.10, §6). A
// new Writer opens its first section immediately; StartSection opens
// each subsequent one and resets the interface table, matching the
// per-section reset a Reader observes (§3).
type Writer struct {
	w      io.Writer
	buf    *bufio.Writer
	closer io.Closer

	order         binary.ByteOrder
	major, minor  uint16
	sectionLength int64

	defaultUnitsPerSecond uint64
	interfaces            []*Interface
	registry              *Registry
	limiter               EncapLimiter
}

func NewWriter(w io.Writer, opts ...WriterOption) (*Writer, error) {
	writer := &Writer{w: w, registry: DefaultRegistry}
	if closer, ok := w.(io.Closer); ok {
		writer.closer = closer
	}
	if err := writer.StartSection(opts...); err != nil {
		return nil, err
	}
	return writer, nil
}

// StartSection closes out the current section (nothing further is
// required on the wire to do so; a Section Header Block simply begins
// the next one) and writes a fresh Section Header Block, resetting the
// interface table.
func (w *Writer) StartSection(opts ...WriterOption) error {
	cfg := writerConfig{
		byteOrder:     binary.LittleEndian,
		major:         1,
		minor:         0,
		sectionLength: -1,
		registry:      w.registry,
		limiter:       w.limiter,
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return err
		}
	}

	w.order = cfg.byteOrder
	w.major, w.minor = cfg.major, cfg.minor
	w.sectionLength = cfg.sectionLength
	w.defaultUnitsPerSecond = cfg.defaultUnitsPerSecond
	w.registry = cfg.registry
	w.limiter = cfg.limiter
	w.interfaces = nil

	if cfg.bufferSize > 0 && w.buf == nil {
		w.buf = bufio.NewWriterSize(w.w, cfg.bufferSize)
		w.w = w.buf
	}

	section := &Section{
		ByteOrder:     w.order,
		VersionMajor:  w.major,
		VersionMinor:  w.minor,
		SectionLength: w.sectionLength,
		Comment:       cfg.comment,
		Hardware:      cfg.hardware,
		OS:            cfg.os,
		UserAppl:      cfg.userAppl,
		Extra:         cfg.extra,
	}
	body, err := encodeSectionHeaderBody(section, w.registry)
	if err != nil {
		return err
	}
	return writeFramed(w.w, w.order, SectionHeaderBlockType, body)
}

// AddInterface appends an interface to the current section's table and
// writes its Interface Description Block. Without an EncapLimiter
// (WithWriterEncapLimiter) configured, snapLen 0 is written as-is,
// pcapng's own convention for "no limit" (§4.3). With one configured,
// it is authoritative: a linkType it doesn't recognize is refused with
// ErrUnsupportedEncap, and snapLen 0 is resolved to that
// encapsulation's own default instead of being written ambiguously.
func (w *Writer) AddInterface(linkType uint16, snapLen uint32, opts ...InterfaceOption) (uint32, error) {
	if w.limiter != nil {
		max, ok := w.limiter.MaxSnapLen(linkType)
		if !ok {
			return 0, ErrUnsupportedEncap
		}
		if snapLen == 0 {
			snapLen = uint32(max)
		}
	}

	iface := &Interface{
		LinkType:           linkType,
		SnapLen:            snapLen,
		FCSLen:             -1,
		TimeUnitsPerSecond: w.defaultUnitsPerSecond,
	}
	for _, opt := range opts {
		if err := opt(iface); err != nil {
			return 0, err
		}
	}
	if iface.TimeUnitsPerSecond == 0 {
		iface.TimeUnitsPerSecond = 1_000_000
		iface.Precision = PrecisionMicroseconds
	}

	body, err := encodeInterfaceDescriptionBody(iface, w.order, w.registry)
	if err != nil {
		return 0, err
	}
	if err := writeFramed(w.w, w.order, InterfaceDescriptionBlockType, body); err != nil {
		return 0, err
	}

	id := uint32(len(w.interfaces))
	w.interfaces = append(w.interfaces, iface)
	return id, nil
}

func (w *Writer) interfaceFor(id uint32) (*Interface, error) {
	if int(id) >= len(w.interfaces) {
		return nil, fmt.Errorf("pcapng: unknown interface %d", id)
	}
	return w.interfaces[id], nil
}

// WritePacket emits an Enhanced Packet Block. pkt.InterfaceID selects
// the interface; pkt.Data longer than that interface's snap length is
// refused with ErrPacketTooLarge rather than silently truncated, since
// a reader has no way to recover the discarded bytes once written.
// pkt.OriginalLen is filled in from pkt.Data's length when left zero.
func (w *Writer) WritePacket(pkt *Packet) error {
	iface, err := w.interfaceFor(pkt.InterfaceID)
	if err != nil {
		return err
	}
	if pkt.OriginalLen == 0 {
		pkt.OriginalLen = uint32(len(pkt.Data))
	}
	capLen := uint32(len(pkt.Data))
	if iface.SnapLen > 0 && capLen > iface.SnapLen {
		return ErrPacketTooLarge
	}
	pkt.CapturedLen = capLen

	body, err := encodeEnhancedPacketBody(pkt, w.order, iface.TimeUnitsPerSecond, w.registry)
	if err != nil {
		return err
	}
	return writeFramed(w.w, w.order, EnhancedPacketBlockType, body)
}

// WriteSimplePacket emits a Simple Packet Block against interface 0,
// the only interface an SPB can ever refer to (§4.4). As with
// WritePacket, a payload longer than the interface's snap length is
// refused rather than truncated.
func (w *Writer) WriteSimplePacket(pkt *Packet) error {
	iface, err := w.interfaceFor(0)
	if err != nil {
		return err
	}
	if pkt.OriginalLen == 0 {
		pkt.OriginalLen = uint32(len(pkt.Data))
	}
	if iface.SnapLen > 0 && uint32(len(pkt.Data)) > iface.SnapLen {
		return ErrPacketTooLarge
	}
	body := encodeSimplePacketBody(pkt, w.order)
	return writeFramed(w.w, w.order, SimplePacketBlockType, body)
}

// WriteNameResolution emits a Name Resolution Block.
func (w *Writer) WriteNameResolution(nr *NameResolution) error {
	body, err := encodeNameResolutionBody(nr, w.order, w.registry)
	if err != nil {
		return err
	}
	return writeFramed(w.w, w.order, NameResolutionBlockType, body)
}

// WriteInterfaceStatistics emits an Interface Statistics Block for
// stats.InterfaceID.
func (w *Writer) WriteInterfaceStatistics(stats *InterfaceStatistics) error {
	iface, err := w.interfaceFor(stats.InterfaceID)
	if err != nil {
		return err
	}
	body, err := encodeInterfaceStatisticsBody(stats, w.order, iface.TimeUnitsPerSecond, w.registry)
	if err != nil {
		return err
	}
	return writeFramed(w.w, w.order, InterfaceStatisticsBlockType, body)
}

// WriteSecrets emits a Decryption Secrets Block.
func (w *Writer) WriteSecrets(s *Secrets) error {
	if len(s.Data) > MaxSecretsLength {
		return fmt.Errorf("pcapng: secrets length %d exceeds maximum %d", len(s.Data), MaxSecretsLength)
	}
	body := encodeDecryptionSecretsBody(s, w.order)
	return writeFramed(w.w, w.order, DecryptionSecretsBlockType, body)
}

// WriteHostEvent emits a sysdig-style host event block, in the
// revision selected by ev.Kind.
func (w *Writer) WriteHostEvent(ev *HostEvent) error {
	blockType := HostEventV1BlockType
	if ev.Kind == HostEventSysdigV2 {
		blockType = HostEventV2BlockType
	}
	body := encodeHostEventBody(ev, w.order)
	return writeFramed(w.w, w.order, blockType, body)
}

// WriteJournalEntries emits a Journal Export Block containing the
// given systemd journal export records.
func (w *Writer) WriteJournalEntries(entries []JournalEntry) error {
	body := encodeJournalExportBody(entries)
	return writeFramed(w.w, w.order, JournalExportBlockType, body)
}

// WritePluginBlock emits a locally-defined block type through the
// writer registered for it (§4.11). It returns ErrUnwritableRecordType
// if no writer is registered for t.
func (w *Writer) WritePluginBlock(t BlockType, value interface{}) error {
	handler, ok := w.registry.lookupBlockHandler(t)
	if !ok {
		return ErrUnwritableRecordType
	}
	var buf byteCountingBuffer
	n, err := handler.write(&buf, w.order, value)
	if err != nil {
		return err
	}
	if n != buf.Len() {
		return fmt.Errorf("pcapng: plugin writer for %#08x reported %d bytes but wrote %d", uint32(t), n, buf.Len())
	}
	body := buf.Bytes()
	if pad := paddedLen(len(body)) - len(body); pad > 0 {
		body = append(body, make([]byte, pad)...)
	}
	return writeFramed(w.w, w.order, t, body)
}

// Flush pushes any buffered bytes out to the underlying writer without
// closing it.
func (w *Writer) Flush() error {
	if w.buf != nil {
		return w.buf.Flush()
	}
	return nil
}

// Close flushes any buffered bytes and closes the underlying writer if
// it implements io.Closer.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

type byteCountingBuffer struct {
	data []byte
}

func (b *byteCountingBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *byteCountingBuffer) Bytes() []byte { return b.data }
func (b *byteCountingBuffer) Len() int      { return len(b.data) }
