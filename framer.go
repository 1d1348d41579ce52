package pcapng

import (
	"encoding/binary"
	"errors"
	"io"
)

// readExact reads exactly len(buf) bytes. A clean EOF with zero bytes
// read is passed through as io.EOF (a legitimate block boundary); any
// other short read becomes ErrShortRead (§7).
func readExact(r io.Reader, buf []byte) error {
	n, err := io.ReadFull(r, buf)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) && n == 0 {
		return io.EOF
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return ErrShortRead
	}
	return err
}

// blockHeader is the outer envelope's first 8 bytes: type and
// total_length, before section byte order may even be known (§4.1).
type blockHeader struct {
	Type        BlockType
	TotalLength uint32
}

// checkBlockLength enforces the framing invariant from §3/§4.1:
// total_length is a multiple of 4, at least the given minimum, and no
// larger than the configured ceiling.
func checkBlockLength(total, minimum, ceiling uint32, offset int64) error {
	if total < minimum {
		return badFilef(offset, "block length %d is smaller than the minimum %d", total, minimum)
	}
	if total > ceiling {
		return badFilef(offset, "block length %d exceeds the accepted ceiling %d", total, ceiling)
	}
	if total%4 != 0 {
		return badFilef(offset, "block length %d is not a multiple of 4", total)
	}
	return nil
}

// readTrailer reads and validates the 4-byte trailer length that
// closes every block; it must equal the header's total_length exactly
// (§4.1).
func readTrailer(r io.Reader, order binary.ByteOrder, want uint32, offset int64) error {
	var buf [4]byte
	if err := readExact(r, buf[:]); err != nil {
		if err == io.EOF {
			return ErrShortRead
		}
		return err
	}
	got := order.Uint32(buf[:])
	if got != want {
		return badFilef(offset, "trailer length %d does not match header length %d", got, want)
	}
	return nil
}

// readBody reads exactly bodyLen bytes (the block's fixed fields plus
// options) so the trailer that follows is left for readTrailer. An EOF
// before the body is complete is reported as ErrShortRead.
func readBody(r io.Reader, bodyLen uint32) ([]byte, error) {
	body := make([]byte, bodyLen)
	if err := readExact(r, body); err != nil {
		if err == io.EOF {
			return nil, ErrShortRead
		}
		return nil, err
	}
	return body, nil
}

// writeFramed emits type, total_length, body, and the repeated
// total_length, atomically at the logical level: the caller has
// already sized body so no partial block is ever observable to a
// well-behaved reader on error (§4.1, §7).
func writeFramed(w io.Writer, order binary.ByteOrder, t BlockType, body []byte) error {
	total := uint32(8 + len(body) + 4)
	var hdr [8]byte
	order.PutUint32(hdr[0:4], uint32(t))
	order.PutUint32(hdr[4:8], total)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	var trailer [4]byte
	order.PutUint32(trailer[:], total)
	_, err := w.Write(trailer[:])
	return err
}
