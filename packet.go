package pcapng

import (
	"bytes"
	"encoding/binary"
)

// Packet option codes shared by the Enhanced and obsolete Packet
// blocks (§4.4).
const (
	optEpbFlags     uint16 = 2
	optEpbHash      uint16 = 3
	optEpbDropCount uint16 = 4
	optEpbPacketID  uint16 = 5
	optEpbQueue     uint16 = 6
	optEpbVerdict   uint16 = 7
)

// VerdictType selects how a packet verdict option's payload after the
// type byte is interpreted (§3, §4.4).
type VerdictType uint8

const (
	VerdictHardware VerdictType = 0
	VerdictTC       VerdictType = 1
	VerdictXDP      VerdictType = 2
)

// Verdict is a per-packet decision annotation. For VerdictTC and
// VerdictXDP, Payload is stored big-endian regardless of the section
// it was read from, so a verdict copied between sections of different
// byte order still carries the same integer value (§4.4, §8).
type Verdict struct {
	Type    VerdictType
	Payload []byte
}

// EncapLimiter supplies the per-encapsulation maximum snapshot length
// the core codec has no way to compute on its own (encap_info is an
// external collaborator, out of scope per §1). A nil limiter disables
// the cap_len-vs-encap-ceiling check on read.
type EncapLimiter interface {
	MaxSnapLen(linkType uint16) (int, bool)
}

// Packet is the record produced for EPB, obsolete PB, and SPB blocks
// alike (§3, §4.4).
type Packet struct {
	InterfaceID  uint32
	Seconds      int64
	Nanoseconds  int64
	HasTimestamp bool // false for Simple Packet Blocks, which carry none
	CapturedLen  uint32
	OriginalLen  uint32
	Data         []byte

	Comment      string
	Flags        uint32
	HasFlags     bool
	Hash         []byte // opaque, per open question (i) in §9
	DropCount    uint64
	HasDropCount bool
	PacketID     uint64
	HasPacketID  bool
	QueueID      uint32
	HasQueueID   bool
	Verdicts     []Verdict

	// Extra holds options decoded by a registered plugin option
	// handler under a code this codec doesn't natively parse (§4.11).
	Extra map[uint16]OptionValue
}

func parsePacketOptions(data []byte, order binary.ByteOrder, pkt *Packet, offset int64, reg *Registry) error {
	options, err := decodeOptionList(data, order)
	if err != nil {
		return err
	}
	for _, opt := range options {
		switch opt.Code {
		case CommentOptionCode:
			pkt.Comment = string(opt.Value)
		case optEpbFlags:
			if len(opt.Value) != 4 {
				return badFile(offset, "epb_flags option must be 4 bytes")
			}
			pkt.Flags = order.Uint32(opt.Value)
			pkt.HasFlags = true
		case optEpbHash:
			pkt.Hash = append([]byte(nil), opt.Value...)
		case optEpbDropCount:
			if len(opt.Value) != 8 {
				return badFile(offset, "epb_dropcount option must be 8 bytes")
			}
			pkt.DropCount = order.Uint64(opt.Value)
			pkt.HasDropCount = true
		case optEpbPacketID:
			if len(opt.Value) != 8 {
				return badFile(offset, "epb_packetid option must be 8 bytes")
			}
			pkt.PacketID = order.Uint64(opt.Value)
			pkt.HasPacketID = true
		case optEpbQueue:
			if len(opt.Value) != 4 {
				return badFile(offset, "epb_queue option must be 4 bytes")
			}
			pkt.QueueID = order.Uint32(opt.Value)
			pkt.HasQueueID = true
		case optEpbVerdict:
			v, ok := parseVerdict(opt.Value, order)
			if ok {
				pkt.Verdicts = append(pkt.Verdicts, v)
			}
			// unrecognized verdict type: silently skipped (§4.4)
		default:
			v, ok, err := decodePluginOption(reg, KindPacket, opt.Code, opt.Value, order)
			if err != nil {
				return err
			}
			if ok {
				if pkt.Extra == nil {
					pkt.Extra = make(map[uint16]OptionValue)
				}
				pkt.Extra[opt.Code] = v
			}
		}
	}
	return nil
}

func parseVerdict(value []byte, order binary.ByteOrder) (Verdict, bool) {
	if len(value) < 1 {
		return Verdict{}, false
	}
	kind := VerdictType(value[0])
	rest := value[1:]
	switch kind {
	case VerdictHardware:
		return Verdict{Type: kind, Payload: append([]byte(nil), rest...)}, true
	case VerdictTC, VerdictXDP:
		if len(rest) != 8 {
			return Verdict{}, false
		}
		payload := make([]byte, 8)
		binary.BigEndian.PutUint64(payload, order.Uint64(rest)) // canonicalize to a fixed order
		return Verdict{Type: kind, Payload: payload}, true
	default:
		return Verdict{}, false
	}
}

func packetOptions(pkt *Packet, order binary.ByteOrder, reg *Registry) ([]RawOption, error) {
	var opts []RawOption
	if pkt.Comment != "" {
		opts = append(opts, stringOption(CommentOptionCode, pkt.Comment))
	}
	if pkt.HasFlags {
		opts = append(opts, u32Option(optEpbFlags, order, pkt.Flags))
	}
	if pkt.Hash != nil {
		opts = append(opts, RawOption{Code: optEpbHash, Value: pkt.Hash})
	}
	if pkt.HasDropCount {
		opts = append(opts, u64Option(optEpbDropCount, order, pkt.DropCount))
	}
	if pkt.HasPacketID {
		opts = append(opts, u64Option(optEpbPacketID, order, pkt.PacketID))
	}
	if pkt.HasQueueID {
		opts = append(opts, u32Option(optEpbQueue, order, pkt.QueueID))
	}
	for _, v := range pkt.Verdicts {
		payload := v.Payload
		if (v.Type == VerdictTC || v.Type == VerdictXDP) && len(payload) == 8 {
			payload = make([]byte, 8)
			order.PutUint64(payload, binary.BigEndian.Uint64(v.Payload))
		}
		value := append([]byte{byte(v.Type)}, payload...)
		opts = append(opts, RawOption{Code: optEpbVerdict, Value: value})
	}
	extra, err := encodePluginOptions(reg, KindPacket, pkt.Extra, order)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)
	return opts, nil
}

// parseEnhancedPacketBody decodes an EPB body (§4.4).
func parseEnhancedPacketBody(body []byte, order binary.ByteOrder, offset int64, section *Section, limiter EncapLimiter, logger Logger, reg *Registry) (*Packet, error) {
	if len(body) < 20 {
		return nil, badFile(offset, "enhanced packet body too short")
	}
	ifaceID := order.Uint32(body[0:4])
	tsHigh := order.Uint32(body[4:8])
	tsLow := order.Uint32(body[8:12])
	capLen := order.Uint32(body[12:16])
	origLen := order.Uint32(body[16:20])

	iface, ok := section.interfaceByID(ifaceID)
	if !ok {
		return nil, badFilef(offset, "interface id %d out of range (section has %d interfaces)", ifaceID, len(section.Interfaces))
	}

	if limiter != nil {
		if max, ok := limiter.MaxSnapLen(iface.LinkType); ok && int(capLen) > max {
			return nil, badFilef(offset, "captured length %d exceeds maximum %d for link type %d", capLen, max, iface.LinkType)
		}
	}

	payloadEnd := 20 + int(capLen)
	if payloadEnd > len(body) {
		return nil, badFile(offset, "captured length exceeds block size")
	}
	data := append([]byte(nil), body[20:payloadEnd]...)

	if paddedEnd(payloadEnd) > len(body) {
		return nil, badFile(offset, "packet padding exceeds block size")
	}
	rest := body[paddedEnd(payloadEnd):]

	ticks := (uint64(tsHigh) << 32) | uint64(tsLow)
	sec, nanos := splitTicks(ticks, iface.TimeUnitsPerSecond)

	pkt := &Packet{
		InterfaceID:  ifaceID,
		Seconds:      sec,
		Nanoseconds:  nanos,
		HasTimestamp: true,
		CapturedLen:  capLen,
		OriginalLen:  origLen,
		Data:         data,
	}
	if err := parsePacketOptions(rest, order, pkt, offset, reg); err != nil {
		return nil, err
	}
	if logger != nil && iface.SnapLen != 0 && capLen > iface.SnapLen {
		logger.Warnf("pcapng: captured length %d exceeds declared snap_len %d for interface %d", capLen, iface.SnapLen, ifaceID)
	}
	return pkt, nil
}

// parseObsoletePacketBody decodes a legacy Packet Block body: like an
// EPB but with a 16-bit interface id and a 16-bit drop count in place
// of the EPB's 32-bit interface id; the timestamp and length fields
// follow in the same order (§4.4).
func parseObsoletePacketBody(body []byte, order binary.ByteOrder, offset int64, section *Section, limiter EncapLimiter, logger Logger, reg *Registry) (*Packet, error) {
	if len(body) < 20 {
		return nil, badFile(offset, "packet body too short")
	}
	ifaceID := uint32(order.Uint16(body[0:2]))
	drops := order.Uint16(body[2:4])
	tsHigh := order.Uint32(body[4:8])
	tsLow := order.Uint32(body[8:12])
	capLen := order.Uint32(body[12:16])
	origLen := order.Uint32(body[16:20])

	iface, ok := section.interfaceByID(ifaceID)
	if !ok {
		return nil, badFilef(offset, "interface id %d out of range (section has %d interfaces)", ifaceID, len(section.Interfaces))
	}
	if limiter != nil {
		if max, ok := limiter.MaxSnapLen(iface.LinkType); ok && int(capLen) > max {
			return nil, badFilef(offset, "captured length %d exceeds maximum %d for link type %d", capLen, max, iface.LinkType)
		}
	}

	payloadEnd := 20 + int(capLen)
	if payloadEnd > len(body) {
		return nil, badFile(offset, "captured length exceeds block size")
	}
	data := append([]byte(nil), body[20:payloadEnd]...)
	if paddedEnd(payloadEnd) > len(body) {
		return nil, badFile(offset, "packet padding exceeds block size")
	}
	rest := body[paddedEnd(payloadEnd):]

	ticks := (uint64(tsHigh) << 32) | uint64(tsLow)
	sec, nanos := splitTicks(ticks, iface.TimeUnitsPerSecond)

	pkt := &Packet{
		InterfaceID:  ifaceID,
		Seconds:      sec,
		Nanoseconds:  nanos,
		HasTimestamp: true,
		CapturedLen:  capLen,
		OriginalLen:  origLen,
		Data:         data,
		DropCount:    uint64(drops),
		HasDropCount: true,
	}
	if err := parsePacketOptions(rest, order, pkt, offset, reg); err != nil {
		return nil, err
	}
	if logger != nil && iface.SnapLen != 0 && capLen > iface.SnapLen {
		logger.Warnf("pcapng: captured length %d exceeds declared snap_len %d for interface %d", capLen, iface.SnapLen, ifaceID)
	}
	return pkt, nil
}

// parseSimplePacketBody decodes an SPB body (§4.4). SPBs carry no
// timestamp and always inherit interface 0's snap length; per §9's
// resolution of the open question, a section with no interfaces makes
// any SPB in it malformed.
func parseSimplePacketBody(body []byte, order binary.ByteOrder, offset int64, section *Section) (*Packet, error) {
	if len(body) < 4 {
		return nil, badFile(offset, "simple packet body too short")
	}
	origLen := order.Uint32(body[0:4])

	iface, ok := section.interfaceByID(0)
	if !ok {
		return nil, badFile(offset, "simple packet block with no interface declared in section")
	}

	capLen := origLen
	if iface.SnapLen != 0 && capLen > iface.SnapLen {
		capLen = iface.SnapLen
	}

	payloadEnd := 4 + int(capLen)
	if payloadEnd > len(body) {
		return nil, badFile(offset, "captured length exceeds block size")
	}
	data := append([]byte(nil), body[4:payloadEnd]...)

	return &Packet{
		InterfaceID: 0,
		CapturedLen: capLen,
		OriginalLen: origLen,
		Data:        data,
	}, nil
}

func paddedEnd(n int) int { return paddedLen(n) }

// encodeEnhancedPacketBody is the writer-side inverse of
// parseEnhancedPacketBody. unitsPerSecond is the destination
// interface's tick rate, used to rescale pkt.Seconds/Nanoseconds back
// into wire ticks.
func encodeEnhancedPacketBody(pkt *Packet, order binary.ByteOrder, unitsPerSecond uint64, reg *Registry) ([]byte, error) {
	tsHigh, tsLow := joinTicks(pkt.Seconds, pkt.Nanoseconds, unitsPerSecond)

	opts, err := packetOptions(pkt, order, reg)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	putU32(&buf, order, pkt.InterfaceID)
	putU32(&buf, order, tsHigh)
	putU32(&buf, order, tsLow)
	putU32(&buf, order, pkt.CapturedLen)
	putU32(&buf, order, pkt.OriginalLen)
	buf.Write(pkt.Data)
	pad := paddedLen(len(pkt.Data)) - len(pkt.Data)
	if pad > 0 {
		buf.Write(make([]byte, pad))
	}
	encodeOptionList(&buf, order, opts)
	return buf.Bytes(), nil
}

func encodeSimplePacketBody(pkt *Packet, order binary.ByteOrder) []byte {
	var buf bytes.Buffer
	putU32(&buf, order, pkt.OriginalLen)
	buf.Write(pkt.Data)
	pad := paddedLen(len(pkt.Data)) - len(pkt.Data)
	if pad > 0 {
		buf.Write(make([]byte, pad))
	}
	return buf.Bytes()
}
