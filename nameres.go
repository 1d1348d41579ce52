package pcapng

import (
	"bytes"
	"encoding/binary"
)

// Name resolution record types (§4.5).
const (
	nrbRecordEnd  uint16 = 0
	nrbRecordIPv4 uint16 = 1
	nrbRecordIPv6 uint16 = 2
)

const (
	optNsDNSName    uint16 = 2
	optNsDNSIPv4Addr uint16 = 3
	optNsDNSIPv6Addr uint16 = 4
)

// NameRecord is one address-to-name mapping out of a Name Resolution
// Block. A single record can carry more than one name (§4.5).
type NameRecord struct {
	IsIPv6  bool
	Address []byte // 4 or 16 bytes
	Names   []string
}

// NameResolution is the decoded form of an NRB.
type NameResolution struct {
	Records  []NameRecord
	DNSName  string
	DNSIPv4  [4]byte
	HasDNSv4 bool
	DNSIPv6  [16]byte
	HasDNSv6 bool

	// Extra holds options decoded by a registered plugin option
	// handler under a code this codec doesn't natively parse (§4.11).
	Extra map[uint16]OptionValue
}

// NameSink receives resolved names as they are decoded; it is the
// external collaborator described in §1 that a caller supplies to
// build its own name table incrementally rather than buffering every
// NRB in memory.
type NameSink interface {
	ResolveName(address []byte, isIPv6 bool, name string)
}

func parseNameResolutionBody(body []byte, order binary.ByteOrder, offset int64, sink NameSink, reg *Registry) (*NameResolution, error) {
	nr := &NameResolution{}
	pos := 0
	for {
		if pos+4 > len(body) {
			return nil, badFile(offset, "name resolution block missing end-of-records marker")
		}
		recType := order.Uint16(body[pos : pos+2])
		recLen := order.Uint16(body[pos+2 : pos+4])
		pos += 4

		if recType == nrbRecordEnd {
			break
		}
		if pos+int(recLen) > len(body) {
			return nil, badFile(offset, "name resolution record exceeds block size")
		}
		value := body[pos : pos+int(recLen)]
		pos += paddedLen(int(recLen))

		var addrLen int
		isIPv6 := recType == nrbRecordIPv6
		switch recType {
		case nrbRecordIPv4:
			addrLen = 4
		case nrbRecordIPv6:
			addrLen = 16
		default:
			continue // unrecognized record type, skipped
		}
		if len(value) < addrLen+1 {
			return nil, badFile(offset, "name resolution record too short for its address")
		}
		address := append([]byte(nil), value[:addrLen]...)
		names, terminated := splitNulTerminatedStrings(value[addrLen:])
		if !terminated {
			return nil, badFile(offset, "name resolution record has a non-null-terminated name")
		}
		if len(names) == 0 {
			return nil, badFile(offset, "name resolution record has no names")
		}
		nr.Records = append(nr.Records, NameRecord{IsIPv6: isIPv6, Address: address, Names: names})
		if sink != nil {
			for _, name := range names {
				sink.ResolveName(address, isIPv6, name)
			}
		}
	}

	options, err := decodeOptionList(body[pos:], order)
	if err != nil {
		return nil, err
	}
	for _, opt := range options {
		switch opt.Code {
		case optNsDNSName:
			nr.DNSName = string(opt.Value)
		case optNsDNSIPv4Addr:
			if len(opt.Value) != 4 {
				return nil, badFile(offset, "ns_dnsIP4addr option must be 4 bytes")
			}
			copy(nr.DNSIPv4[:], opt.Value)
			nr.HasDNSv4 = true
		case optNsDNSIPv6Addr:
			if len(opt.Value) != 16 {
				return nil, badFile(offset, "ns_dnsIP6addr option must be 16 bytes")
			}
			copy(nr.DNSIPv6[:], opt.Value)
			nr.HasDNSv6 = true
		default:
			v, ok, err := decodePluginOption(reg, KindNameResolution, opt.Code, opt.Value, order)
			if err != nil {
				return nil, err
			}
			if ok {
				if nr.Extra == nil {
					nr.Extra = make(map[uint16]OptionValue)
				}
				nr.Extra[opt.Code] = v
			}
		}
	}
	return nr, nil
}

// splitNulTerminatedStrings scans a run of NUL-terminated names, as
// used by NRB records (§4.5). terminated is false when the data runs
// out mid-name instead of ending exactly on a NUL, which the caller
// must treat as a bad file rather than silently dropping the name.
func splitNulTerminatedStrings(data []byte) (names []string, terminated bool) {
	start := 0
	for i, b := range data {
		if b == 0 {
			if i > start {
				names = append(names, string(data[start:i]))
			}
			start = i + 1
		}
	}
	return names, start == len(data)
}

func encodeNameResolutionBody(nr *NameResolution, order binary.ByteOrder, reg *Registry) ([]byte, error) {
	var buf bytes.Buffer
	for _, rec := range nr.Records {
		recType := nrbRecordIPv4
		if rec.IsIPv6 {
			recType = nrbRecordIPv6
		}
		var value bytes.Buffer
		value.Write(rec.Address)
		for _, name := range rec.Names {
			value.WriteString(name)
			value.WriteByte(0)
		}
		raw := value.Bytes()
		putU16(&buf, order, recType)
		putU16(&buf, order, uint16(len(raw)))
		buf.Write(raw)
		pad := paddedLen(len(raw)) - len(raw)
		if pad > 0 {
			buf.Write(make([]byte, pad))
		}
	}
	putU16(&buf, order, nrbRecordEnd)
	putU16(&buf, order, 0)

	var opts []RawOption
	if nr.DNSName != "" {
		opts = append(opts, stringOption(optNsDNSName, nr.DNSName))
	}
	if nr.HasDNSv4 {
		opts = append(opts, RawOption{Code: optNsDNSIPv4Addr, Value: append([]byte{}, nr.DNSIPv4[:]...)})
	}
	if nr.HasDNSv6 {
		opts = append(opts, RawOption{Code: optNsDNSIPv6Addr, Value: append([]byte{}, nr.DNSIPv6[:]...)})
	}
	extra, err := encodePluginOptions(reg, KindNameResolution, nr.Extra, order)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)
	encodeOptionList(&buf, order, opts)
	return buf.Bytes(), nil
}
