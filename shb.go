package pcapng

import (
	"bytes"
	"encoding/binary"
)

const (
	optShbHardware uint16 = 2
	optShbOS       uint16 = 3
	optShbUserAppl uint16 = 4
)

// parseSectionHeaderBody decodes the fixed body of a Section Header
// Block (§4.2): magic, versions, section_length, then options. magic
// has already been consumed by the caller to pick order; body starts
// right after it.
func parseSectionHeaderBody(body []byte, order binary.ByteOrder, offset int64, reg *Registry) (*Section, error) {
	if len(body) < 12 {
		return nil, badFile(offset, "section header body too short")
	}
	major := order.Uint16(body[0:2])
	minor := order.Uint16(body[2:4])
	sectionLength := int64(order.Uint64(body[4:12]))

	if !(major == 1 && (minor == 0 || minor == 2)) {
		return nil, badFilef(offset, "unsupported section version %d.%d", major, minor)
	}

	section := newSection(order, major, minor, sectionLength, offset)

	options, err := decodeOptionList(body[12:], order)
	if err != nil {
		return nil, err
	}
	for _, opt := range options {
		switch opt.Code {
		case CommentOptionCode:
			section.Comment = string(opt.Value)
		case optShbHardware:
			section.Hardware = string(opt.Value)
		case optShbOS:
			section.OS = string(opt.Value)
		case optShbUserAppl:
			section.UserAppl = string(opt.Value)
		default:
			v, ok, err := decodePluginOption(reg, KindSection, opt.Code, opt.Value, order)
			if err != nil {
				return nil, err
			}
			if ok {
				if section.Extra == nil {
					section.Extra = make(map[uint16]OptionValue)
				}
				section.Extra[opt.Code] = v
			}
		}
	}
	return section, nil
}

// encodeSectionHeaderBody is the writer-side inverse; it does not
// include the outer frame, only byte_order_magic through options.
func encodeSectionHeaderBody(s *Section, reg *Registry) ([]byte, error) {
	var opts []RawOption
	if s.Comment != "" {
		opts = append(opts, stringOption(CommentOptionCode, s.Comment))
	}
	if s.Hardware != "" {
		opts = append(opts, stringOption(optShbHardware, s.Hardware))
	}
	if s.OS != "" {
		opts = append(opts, stringOption(optShbOS, s.OS))
	}
	if s.UserAppl != "" {
		opts = append(opts, stringOption(optShbUserAppl, s.UserAppl))
	}
	extra, err := encodePluginOptions(reg, KindSection, s.Extra, s.ByteOrder)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)

	var buf bytes.Buffer
	// The magic is written as its raw big-endian reading, so its bytes
	// on disk identify the section's byte order.
	putU32(&buf, binary.BigEndian, magicForOrder(s.ByteOrder))
	putU16(&buf, s.ByteOrder, s.VersionMajor)
	putU16(&buf, s.ByteOrder, s.VersionMinor)
	// s.SectionLength already carries -1 for "unknown"; StartSection
	// resolves that default before a Section is ever built, so a real
	// zero-length declaration reaches here unchanged (§4.2).
	putU64(&buf, s.ByteOrder, uint64(s.SectionLength))
	encodeOptionList(&buf, s.ByteOrder, opts)
	return buf.Bytes(), nil
}
