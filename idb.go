package pcapng

import (
	"bytes"
	"encoding/binary"
)

// Interface option codes (§4.3).
const (
	optIfName      uint16 = 2
	optIfDesc      uint16 = 3
	optIfIPv4Addr  uint16 = 4
	optIfIPv6Addr  uint16 = 5
	optIfMACAddr   uint16 = 6
	optIfEUIAddr   uint16 = 7
	optIfSpeed     uint16 = 8
	optIfTSResol   uint16 = 9
	optIfTZone     uint16 = 10
	optIfFilter    uint16 = 11
	optIfOS        uint16 = 12
	optIfFCSLen    uint16 = 13
	optIfTSOffset  uint16 = 14
	optIfHardware  uint16 = 15
)

func parseInterfaceDescriptionBody(body []byte, order binary.ByteOrder, offset int64, logger Logger, reg *Registry) (*Interface, error) {
	if len(body) < 8 {
		return nil, badFile(offset, "interface description body too short")
	}
	iface := &Interface{
		LinkType:           order.Uint16(body[0:2]),
		SnapLen:            order.Uint32(body[4:8]),
		FCSLen:             -1,
		TimeUnitsPerSecond: 1_000_000,
		Precision:          PrecisionMicroseconds,
	}

	options, err := decodeOptionList(body[8:], order)
	if err != nil {
		return nil, err
	}

	for _, opt := range options {
		switch opt.Code {
		case CommentOptionCode:
			iface.Comment = string(opt.Value)
		case optIfName:
			iface.Name = string(opt.Value)
		case optIfDesc:
			iface.Description = string(opt.Value)
		case optIfOS:
			iface.OS = string(opt.Value)
		case optIfHardware:
			iface.Hardware = string(opt.Value)
		case optIfSpeed:
			if len(opt.Value) != 8 {
				return nil, badFile(offset, "if_speed option must be 8 bytes")
			}
			iface.Speed = order.Uint64(opt.Value)
		case optIfTSResol:
			if len(opt.Value) != 1 {
				return nil, badFile(offset, "if_tsresol option must be 1 byte")
			}
			units, precision, inaccurate := tsResolFromByte(opt.Value[0])
			iface.TimeUnitsPerSecond = units
			iface.Precision = precision
			iface.Inaccurate = inaccurate
			if inaccurate && logger != nil {
				logger.Warnf("pcapng: if_tsresol out of range, clamped to maximum")
			}
		case optIfTZone:
			if len(opt.Value) != 4 {
				return nil, badFile(offset, "if_tzone option must be 4 bytes")
			}
			iface.TZOne = int32(order.Uint32(opt.Value))
		case optIfTSOffset:
			if len(opt.Value) != 8 {
				return nil, badFile(offset, "if_tsoffset option must be 8 bytes")
			}
			iface.TSOffset = int64(order.Uint64(opt.Value))
			iface.HasTSOffset = true
		case optIfFCSLen:
			if len(opt.Value) != 1 {
				return nil, badFile(offset, "if_fcslen option must be 1 byte")
			}
			iface.FCSLen = int8(opt.Value[0])
		case optIfMACAddr:
			if len(opt.Value) != 6 {
				return nil, badFile(offset, "if_MACaddr option must be 6 bytes")
			}
			copy(iface.MACAddr[:], opt.Value)
			iface.HasMACAddr = true
		case optIfEUIAddr:
			if len(opt.Value) != 8 {
				return nil, badFile(offset, "if_EUIaddr option must be 8 bytes")
			}
			copy(iface.EUIAddr[:], opt.Value)
			iface.HasEUIAddr = true
		case optIfIPv4Addr:
			if len(opt.Value) != 8 {
				return nil, badFile(offset, "if_IPv4addr option must be 8 bytes")
			}
			var pair [2][4]byte
			copy(pair[0][:], opt.Value[0:4])
			copy(pair[1][:], opt.Value[4:8])
			iface.IPv4Addrs = append(iface.IPv4Addrs, pair)
		case optIfIPv6Addr:
			if len(opt.Value) != 17 {
				return nil, badFile(offset, "if_IPv6addr option must be 17 bytes")
			}
			var addr IPv6Addr
			copy(addr.Address[:], opt.Value[0:16])
			addr.Prefix = opt.Value[16]
			iface.IPv6Addrs = append(iface.IPv6Addrs, addr)
		case optIfFilter:
			f, err := decodeFilter(opt.Value, order)
			if err != nil {
				return nil, err
			}
			iface.Filter = f // may be nil for an unrecognized filter kind
		default:
			v, ok, err := decodePluginOption(reg, KindInterface, opt.Code, opt.Value, order)
			if err != nil {
				return nil, err
			}
			if ok {
				if iface.Extra == nil {
					iface.Extra = make(map[uint16]OptionValue)
				}
				iface.Extra[opt.Code] = v
			}
		}
	}

	if iface.SnapLen > maxSnapLenCeiling {
		if logger != nil {
			logger.Warnf("pcapng: interface snap_len %d exceeds the per-encapsulation ceiling", iface.SnapLen)
		}
	}

	return iface, nil
}

// maxSnapLenCeiling is the fallback per-encapsulation maximum used
// when no EncapLimiter is supplied; encap_info proper is an external
// collaborator out of scope for this codec (§1).
const maxSnapLenCeiling = 262144

func encodeInterfaceDescriptionBody(iface *Interface, order binary.ByteOrder, reg *Registry) ([]byte, error) {
	var opts []RawOption
	if iface.Comment != "" {
		opts = append(opts, stringOption(CommentOptionCode, iface.Comment))
	}
	if iface.Name != "" {
		opts = append(opts, stringOption(optIfName, iface.Name))
	}
	if iface.Description != "" {
		opts = append(opts, stringOption(optIfDesc, iface.Description))
	}
	for _, pair := range iface.IPv4Addrs {
		v := append(append([]byte{}, pair[0][:]...), pair[1][:]...)
		opts = append(opts, RawOption{Code: optIfIPv4Addr, Value: v})
	}
	for _, addr := range iface.IPv6Addrs {
		v := append(append([]byte{}, addr.Address[:]...), addr.Prefix)
		opts = append(opts, RawOption{Code: optIfIPv6Addr, Value: v})
	}
	if iface.HasMACAddr {
		opts = append(opts, RawOption{Code: optIfMACAddr, Value: append([]byte{}, iface.MACAddr[:]...)})
	}
	if iface.HasEUIAddr {
		opts = append(opts, RawOption{Code: optIfEUIAddr, Value: append([]byte{}, iface.EUIAddr[:]...)})
	}
	if iface.Speed != 0 {
		opts = append(opts, u64Option(optIfSpeed, order, iface.Speed))
	}
	if b, ok := tsResolToByte(iface.TimeUnitsPerSecond); ok && iface.TimeUnitsPerSecond != 1_000_000 {
		opts = append(opts, u8Option(optIfTSResol, b))
	}
	if iface.TZOne != 0 {
		opts = append(opts, u32Option(optIfTZone, order, uint32(iface.TZOne)))
	}
	if iface.Filter != nil {
		opts = append(opts, RawOption{Code: optIfFilter, Value: encodeFilter(iface.Filter, order)})
	}
	if iface.OS != "" {
		opts = append(opts, stringOption(optIfOS, iface.OS))
	}
	if iface.FCSLen >= 0 {
		opts = append(opts, u8Option(optIfFCSLen, uint8(iface.FCSLen)))
	}
	if iface.HasTSOffset {
		opts = append(opts, u64Option(optIfTSOffset, order, uint64(iface.TSOffset)))
	}
	if iface.Hardware != "" {
		opts = append(opts, stringOption(optIfHardware, iface.Hardware))
	}
	extra, err := encodePluginOptions(reg, KindInterface, iface.Extra, order)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)

	var buf bytes.Buffer
	putU16(&buf, order, iface.LinkType)
	putU16(&buf, order, 0) // reserved
	putU32(&buf, order, iface.SnapLen)
	encodeOptionList(&buf, order, opts)
	return buf.Bytes(), nil
}
