package pcapng

import (
	"bytes"
	"encoding/binary"
)

// Interface Statistics Block option codes (§4.6).
const (
	optIsbStartTime    uint16 = 2
	optIsbEndTime      uint16 = 3
	optIsbIfRecv       uint16 = 4
	optIsbIfDrop       uint16 = 5
	optIsbFilterAccept uint16 = 6
	optIsbOSDrop       uint16 = 7
	optIsbUsrDeliv     uint16 = 8
)

// InterfaceStatistics is the decoded form of an ISB, capture-run
// counters for one interface (§4.6). Every counter is optional; the
// zero value plus its Has flag means "not reported".
type InterfaceStatistics struct {
	InterfaceID uint32
	Seconds     int64 // block timestamp: when these counters were sampled
	Nanoseconds int64

	StartSeconds, StartNanos int64
	HasStartTime             bool
	EndSeconds, EndNanos     int64
	HasEndTime               bool

	IfRecv       uint64
	HasIfRecv    bool
	IfDrop       uint64
	HasIfDrop    bool
	FilterAccept uint64
	HasFilterAccept bool
	OSDrop       uint64
	HasOSDrop    bool
	UsrDeliv     uint64
	HasUsrDeliv  bool

	Comment string

	// Extra holds options decoded by a registered plugin option
	// handler under a code this codec doesn't natively parse (§4.11).
	Extra map[uint16]OptionValue
}

func parseInterfaceStatisticsBody(body []byte, order binary.ByteOrder, offset int64, section *Section, reg *Registry) (*InterfaceStatistics, error) {
	if len(body) < 12 {
		return nil, badFile(offset, "interface statistics body too short")
	}
	ifaceID := order.Uint32(body[0:4])
	tsHigh := order.Uint32(body[4:8])
	tsLow := order.Uint32(body[8:12])

	iface, ok := section.interfaceByID(ifaceID)
	if !ok {
		return nil, badFilef(offset, "interface id %d out of range (section has %d interfaces)", ifaceID, len(section.Interfaces))
	}

	ticks := (uint64(tsHigh) << 32) | uint64(tsLow)
	sec, nanos := splitTicks(ticks, iface.TimeUnitsPerSecond)

	stats := &InterfaceStatistics{InterfaceID: ifaceID, Seconds: sec, Nanoseconds: nanos}

	options, err := decodeOptionList(body[12:], order)
	if err != nil {
		return nil, err
	}
	for _, opt := range options {
		switch opt.Code {
		case CommentOptionCode:
			stats.Comment = string(opt.Value)
		case optIsbStartTime:
			if len(opt.Value) != 8 {
				return nil, badFile(offset, "isb_starttime option must be 8 bytes")
			}
			t := (uint64(order.Uint32(opt.Value[0:4])) << 32) | uint64(order.Uint32(opt.Value[4:8]))
			stats.StartSeconds, stats.StartNanos = splitTicks(t, iface.TimeUnitsPerSecond)
			stats.HasStartTime = true
		case optIsbEndTime:
			if len(opt.Value) != 8 {
				return nil, badFile(offset, "isb_endtime option must be 8 bytes")
			}
			t := (uint64(order.Uint32(opt.Value[0:4])) << 32) | uint64(order.Uint32(opt.Value[4:8]))
			stats.EndSeconds, stats.EndNanos = splitTicks(t, iface.TimeUnitsPerSecond)
			stats.HasEndTime = true
		case optIsbIfRecv:
			if len(opt.Value) != 8 {
				return nil, badFile(offset, "isb_ifrecv option must be 8 bytes")
			}
			stats.IfRecv = order.Uint64(opt.Value)
			stats.HasIfRecv = true
		case optIsbIfDrop:
			if len(opt.Value) != 8 {
				return nil, badFile(offset, "isb_ifdrop option must be 8 bytes")
			}
			stats.IfDrop = order.Uint64(opt.Value)
			stats.HasIfDrop = true
		case optIsbFilterAccept:
			if len(opt.Value) != 8 {
				return nil, badFile(offset, "isb_filteraccept option must be 8 bytes")
			}
			stats.FilterAccept = order.Uint64(opt.Value)
			stats.HasFilterAccept = true
		case optIsbOSDrop:
			if len(opt.Value) != 8 {
				return nil, badFile(offset, "isb_osdrop option must be 8 bytes")
			}
			stats.OSDrop = order.Uint64(opt.Value)
			stats.HasOSDrop = true
		case optIsbUsrDeliv:
			if len(opt.Value) != 8 {
				return nil, badFile(offset, "isb_usrdeliv option must be 8 bytes")
			}
			stats.UsrDeliv = order.Uint64(opt.Value)
			stats.HasUsrDeliv = true
		default:
			v, ok, err := decodePluginOption(reg, KindInterfaceStatistics, opt.Code, opt.Value, order)
			if err != nil {
				return nil, err
			}
			if ok {
				if stats.Extra == nil {
					stats.Extra = make(map[uint16]OptionValue)
				}
				stats.Extra[opt.Code] = v
			}
		}
	}
	return stats, nil
}

func encodeInterfaceStatisticsBody(stats *InterfaceStatistics, order binary.ByteOrder, unitsPerSecond uint64, reg *Registry) ([]byte, error) {
	var opts []RawOption
	if stats.Comment != "" {
		opts = append(opts, stringOption(CommentOptionCode, stats.Comment))
	}
	if stats.HasStartTime {
		opts = append(opts, timeOption(optIsbStartTime, order, unitsPerSecond, stats.StartSeconds, stats.StartNanos))
	}
	if stats.HasEndTime {
		opts = append(opts, timeOption(optIsbEndTime, order, unitsPerSecond, stats.EndSeconds, stats.EndNanos))
	}
	if stats.HasIfRecv {
		opts = append(opts, u64Option(optIsbIfRecv, order, stats.IfRecv))
	}
	if stats.HasIfDrop {
		opts = append(opts, u64Option(optIsbIfDrop, order, stats.IfDrop))
	}
	if stats.HasFilterAccept {
		opts = append(opts, u64Option(optIsbFilterAccept, order, stats.FilterAccept))
	}
	if stats.HasOSDrop {
		opts = append(opts, u64Option(optIsbOSDrop, order, stats.OSDrop))
	}
	if stats.HasUsrDeliv {
		opts = append(opts, u64Option(optIsbUsrDeliv, order, stats.UsrDeliv))
	}
	extra, err := encodePluginOptions(reg, KindInterfaceStatistics, stats.Extra, order)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)

	var buf bytes.Buffer
	putU32(&buf, order, stats.InterfaceID)
	high, low := joinTicks(stats.Seconds, stats.Nanoseconds, unitsPerSecond)
	putU32(&buf, order, high)
	putU32(&buf, order, low)
	encodeOptionList(&buf, order, opts)
	return buf.Bytes(), nil
}

func timeOption(code uint16, order binary.ByteOrder, unitsPerSecond uint64, seconds, nanos int64) RawOption {
	high, low := joinTicks(seconds, nanos, unitsPerSecond)
	value := make([]byte, 8)
	order.PutUint32(value[0:4], high)
	order.PutUint32(value[4:8], low)
	return RawOption{Code: code, Value: value}
}
