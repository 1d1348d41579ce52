package pcapng

import (
	"bytes"
	"encoding/binary"
	"io"
)

// RawOption is a decoded (code, value) pair before per-block dispatch
// assigns it a typed meaning. Padding is never included in Value nor
// in its reported length (§4).
type RawOption struct {
	Code  uint16
	Value []byte
}

// OptionKind collapses block types that share an option-code
// namespace, per §4.11's "block_kind_index".
type OptionKind int

const (
	KindSection OptionKind = iota
	KindInterface
	KindPacket // EPB and obsolete PB share a namespace
	KindNameResolution
	KindInterfaceStatistics
	KindDecryptionSecrets
)

// OptionValue is the tagged-variant representation from the design
// notes: a decoded option's type is explicit rather than left to a
// caller's type assertion on an interface{}.
type OptionValue struct {
	Kind  OptionValueKind
	Str   string
	U8    uint8
	U32   uint32
	U64   uint64
	Bytes []byte
}

// OptionValueKind tags the populated field of an OptionValue.
type OptionValueKind int

const (
	ValueBytes OptionValueKind = iota
	ValueString
	ValueU8
	ValueU32
	ValueU64
	ValueTimestamp
)

// decodeOptionList walks a framed option list until it runs out of
// bytes or hits the end-of-options sentinel (§4). It never returns an
// error for unknown codes; the caller decides what to do with them.
func decodeOptionList(data []byte, order binary.ByteOrder) ([]RawOption, error) {
	var options []RawOption
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		if r.Len() < 4 {
			return nil, ErrBadFile
		}
		var code, length uint16
		if err := binary.Read(r, order, &code); err != nil {
			return nil, err
		}
		if err := binary.Read(r, order, &length); err != nil {
			return nil, err
		}

		if code == EndOfOptionsCode {
			return options, nil
		}

		if int(length) > r.Len() {
			return nil, ErrBadFile
		}
		value := make([]byte, length)
		if _, err := io.ReadFull(r, value); err != nil {
			return nil, err
		}

		options = append(options, RawOption{Code: code, Value: value})

		pad := paddedLen(int(length)) - int(length)
		if pad > 0 {
			if err := discardN(r, pad); err != nil {
				return nil, err
			}
		}
	}
	return options, nil
}

func discardN(r *bytes.Reader, n int) error {
	if n > r.Len() {
		return ErrBadFile
	}
	_, err := r.Seek(int64(n), io.SeekCurrent)
	return err
}

// paddedLen rounds n up to the next multiple of 4 (§4: option values
// are padded so the next option begins 4-aligned).
func paddedLen(n int) int {
	return (n + 3) &^ 3
}

// encodeOptionList serializes options followed by the end-of-options
// sentinel, if any options were supplied. Any option whose value is
// longer than 65535 bytes is silently dropped (§4.10); everything
// else is written as-is.
func encodeOptionList(buf *bytes.Buffer, order binary.ByteOrder, options []RawOption) {
	for _, opt := range options {
		if len(opt.Value) > 0xFFFF {
			continue
		}
		putU16(buf, order, opt.Code)
		putU16(buf, order, uint16(len(opt.Value)))
		buf.Write(opt.Value)
		pad := paddedLen(len(opt.Value)) - len(opt.Value)
		if pad > 0 {
			buf.Write(make([]byte, pad))
		}
	}
	if len(options) > 0 {
		putU16(buf, order, EndOfOptionsCode)
		putU16(buf, order, 0)
	}
}

// optionListSize returns the exact on-wire size of options followed
// by the end-of-options marker (0 if there are no options at all),
// used by writer-side sizers to compute total_length up front (§4.10).
func optionListSize(options []RawOption) int {
	if len(options) == 0 {
		return 0
	}
	n := 4 // end-of-options marker
	for _, opt := range options {
		if len(opt.Value) > 0xFFFF {
			continue
		}
		n += 4 + paddedLen(len(opt.Value))
	}
	return n
}

func stringOption(code uint16, s string) RawOption {
	return RawOption{Code: code, Value: []byte(s)}
}

func u8Option(code uint16, v uint8) RawOption {
	return RawOption{Code: code, Value: []byte{v}}
}

func u32Option(code uint16, order binary.ByteOrder, v uint32) RawOption {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return RawOption{Code: code, Value: b}
}

func u64Option(code uint16, order binary.ByteOrder, v uint64) RawOption {
	b := make([]byte, 8)
	order.PutUint64(b, v)
	return RawOption{Code: code, Value: b}
}

func putU16(buf *bytes.Buffer, order binary.ByteOrder, v uint16) {
	var tmp [2]byte
	order.PutUint16(tmp[:], v)
	buf.Write(tmp[:])
}

func putU32(buf *bytes.Buffer, order binary.ByteOrder, v uint32) {
	var tmp [4]byte
	order.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func putU64(buf *bytes.Buffer, order binary.ByteOrder, v uint64) {
	var tmp [8]byte
	order.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}
