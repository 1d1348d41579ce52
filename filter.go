package pcapng

import (
	"encoding/binary"
	"io"

	"golang.org/x/net/bpf"
)

// FilterKind selects how an interface's if_filter option value is
// interpreted (§4.3).
type FilterKind uint8

const (
	FilterLibpcapString FilterKind = 0
	FilterBPFProgram    FilterKind = 1
)

// Filter is a decoded if_filter option. Kinds other than the two
// standardized here are dropped silently on read, matching §4.3.
type Filter struct {
	Kind    FilterKind
	Program string             // set when Kind == FilterLibpcapString
	BPF     []bpf.RawInstruction // set when Kind == FilterBPFProgram
}

// decodeFilter parses an if_filter option value. It returns
// (nil, nil) for an unrecognized kind tag, which the
// caller drops without failing the block (§4.3).
func decodeFilter(value []byte, order binary.ByteOrder) (*Filter, error) {
	if len(value) == 0 {
		return nil, ErrBadFile
	}
	kind := FilterKind(value[0])
	rest := value[1:]

	switch kind {
	case FilterLibpcapString:
		return &Filter{Kind: kind, Program: string(rest)}, nil
	case FilterBPFProgram:
		if len(rest)%8 != 0 {
			return nil, ErrBadFile
		}
		insns := make([]bpf.RawInstruction, len(rest)/8)
		for i := range insns {
			off := i * 8
			insns[i] = bpf.RawInstruction{
				Op: order.Uint16(rest[off : off+2]),
				Jt: rest[off+2],
				Jf: rest[off+3],
				K:  order.Uint32(rest[off+4 : off+8]),
			}
		}
		return &Filter{Kind: kind, BPF: insns}, nil
	default:
		return nil, nil // unknown filter kind, silently dropped
	}
}

// encodeFilter is the writer-side inverse of decodeFilter.
func encodeFilter(f *Filter, order binary.ByteOrder) []byte {
	switch f.Kind {
	case FilterLibpcapString:
		out := make([]byte, 1+len(f.Program))
		out[0] = byte(FilterLibpcapString)
		copy(out[1:], f.Program)
		return out
	case FilterBPFProgram:
		out := make([]byte, 1+len(f.BPF)*8)
		out[0] = byte(FilterBPFProgram)
		for i, insn := range f.BPF {
			off := 1 + i*8
			order.PutUint16(out[off:off+2], insn.Op)
			out[off+2] = insn.Jt
			out[off+3] = insn.Jf
			order.PutUint32(out[off+4:off+8], insn.K)
		}
		return out
	default:
		return nil
	}
}

// Instructions decodes a BPF-kind filter's raw instructions into the
// disassembled bpf.Instruction form so it can be handed to bpf.NewVM.
func (f *Filter) Instructions() ([]bpf.Instruction, bool) {
	if f.Kind != FilterBPFProgram {
		return nil, false
	}
	insns, ok := bpf.Disassemble(f.BPF)
	return insns, ok
}

// FilterCopy reads pcapng blocks from r and copies through to w every
// packet prog accepts, rebuilding the interface table as it goes.
// Other blocks, the input's Section Header Blocks included, are not
// copied: the output is the single section the writer opens. A fresh
// Section Header Block in the input resets the interface mapping the same way a
// new section resets a Reader's own table. It returns the number of
// packets written.
func FilterCopy(r io.Reader, w io.Writer, prog []bpf.Instruction) (int, error) {
	reader := NewReader(r)
	writer, err := NewWriter(w)
	if err != nil {
		return 0, err
	}
	defer writer.Close()

	vm, err := bpf.NewVM(prog)
	if err != nil {
		return 0, err
	}

	var section *Section
	idMap := make(map[uint32]uint32)
	count := 0

	for {
		pkt, err := reader.ReadPacket()
		if err != nil {
			if err == io.EOF {
				return count, nil
			}
			return count, err
		}

		if cur := reader.CurrentSection(); cur != section {
			section = cur
			idMap = make(map[uint32]uint32)
		}

		newID, ok := idMap[pkt.InterfaceID]
		if !ok {
			iface, ok := section.interfaceByID(pkt.InterfaceID)
			if !ok {
				return count, badFilef(reader.Offset(), "packet references unknown interface %d", pkt.InterfaceID)
			}
			id, err := writer.AddInterface(iface.LinkType, iface.SnapLen,
				WithInterfaceTimestampResolution(iface.TimeUnitsPerSecond))
			if err != nil {
				return count, err
			}
			idMap[pkt.InterfaceID] = id
			newID = id
		}

		keep, err := vm.Run(pkt.Data)
		if err != nil {
			return count, err
		}
		if keep == 0 {
			continue
		}

		pkt.InterfaceID = newID
		if err := writer.WritePacket(pkt); err != nil {
			return count, err
		}
		count++
	}
}
