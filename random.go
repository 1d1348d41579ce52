package pcapng

import (
	"encoding/binary"
	"io"
)

// SeekReader is a Reader over an io.ReadSeeker, adding random access
// to any section already visited by its SHBOffset (§5). Sequential
// reads work exactly as with Reader; SeekSection additionally lets a
// caller jump straight to a section without re-reading everything
// before it.
type SeekReader struct {
	*Reader
	seeker io.ReadSeeker
}

// NewSeekReader constructs a SeekReader over rs.
func NewSeekReader(rs io.ReadSeeker, opts ...ReaderOption) *SeekReader {
	return &SeekReader{Reader: NewReader(rs, opts...), seeker: rs}
}

// SeekSection jumps to offset, which must be the SHBOffset of a
// section this reader has already indexed (via Sections) or one the
// caller otherwise knows to be a Section Header Block boundary. It
// returns the freshly re-parsed Section and leaves the reader
// positioned to read that section's body with NextBlock.
func (sr *SeekReader) SeekSection(offset int64) (*Section, error) {
	if _, err := sr.seeker.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	sr.r = sr.seeker
	sr.offset = offset
	sr.section = nil

	block, err := sr.NextBlock()
	if err != nil {
		return nil, err
	}
	section, ok := block.(*Section)
	if !ok {
		return nil, badFile(offset, "offset does not point to a section header block")
	}
	return section, nil
}

// SectionByOffset returns the already-parsed Section with the given
// SHBOffset, if this reader has visited it, without touching the
// underlying stream.
func (sr *SeekReader) SectionByOffset(offset int64) (*Section, bool) {
	for _, s := range sr.Sections() {
		if s.SHBOffset == offset {
			return s, true
		}
	}
	return nil, false
}

// owningSection returns the already-visited section with the largest
// SHBOffset less than or equal to target, per the section-offset index
// lookup (§5): a block at an arbitrary offset belongs to whichever
// section header preceded it, not necessarily the most recently read
// one.
func (sr *SeekReader) owningSection(target int64) *Section {
	var best *Section
	for _, s := range sr.Sections() {
		if s.SHBOffset <= target && (best == nil || s.SHBOffset > best.SHBOffset) {
			best = s
		}
	}
	return best
}

// SeekRead decodes exactly one block at the given absolute file
// offset (§5). Unlike SeekSection, offset need not be a section
// boundary: SeekRead identifies the owning section by scanning for the
// largest already-visited SHBOffset ≤ offset and decodes the block
// there using that section's byte order and interface table, the same
// way NextBlock would if it had read sequentially up to offset. It
// does not disturb the reader's sequential position; call NextBlock
// afterward and it resumes from wherever it left off before this call.
//
// If offset itself lands on a Section Header Block, SeekRead parses
// and returns that section instead, registering it exactly as a
// sequential read would.
func (sr *SeekReader) SeekRead(offset int64) (interface{}, error) {
	savedR, savedOffset, savedSection := sr.r, sr.offset, sr.section
	defer func() {
		sr.r, sr.offset, sr.section = savedR, savedOffset, savedSection
		_, _ = sr.seeker.Seek(savedOffset, io.SeekStart)
	}()

	if _, err := sr.seeker.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	sr.r = sr.seeker
	sr.offset = offset

	var hdr [8]byte
	if err := readExact(sr.r, hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}
	sr.offset += 8

	if BlockType(binary.BigEndian.Uint32(hdr[0:4])) == SectionHeaderBlockType {
		return sr.readSectionHeader(hdr, offset)
	}

	section := sr.owningSection(offset)
	if section == nil {
		return nil, badFile(offset, "offset precedes any known section header block")
	}
	sr.section = section

	return sr.readNonSectionBlock(hdr, offset)
}
