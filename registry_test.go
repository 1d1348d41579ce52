package pcapng

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pluginRecord struct {
	Tag   uint32
	Label string
}

// writePluginRecord length-prefixes Label so the block's own 4-byte
// alignment padding (added by WritePluginBlock) never gets mistaken
// for part of the string.
func writePluginRecord(w io.Writer, order binary.ByteOrder, value interface{}) (int, error) {
	rec := value.(*pluginRecord)
	var buf bytes.Buffer
	tmp := make([]byte, 4)
	order.PutUint32(tmp, rec.Tag)
	buf.Write(tmp)
	order.PutUint32(tmp, uint32(len(rec.Label)))
	buf.Write(tmp)
	buf.WriteString(rec.Label)
	n, err := w.Write(buf.Bytes())
	return n, err
}

func readPluginRecord(r io.Reader, order binary.ByteOrder, bodyLen uint32) (interface{}, error) {
	data := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	labelLen := order.Uint32(data[4:8])
	return &pluginRecord{Tag: order.Uint32(data[0:4]), Label: string(data[8 : 8+labelLen])}, nil
}

func TestRegistryPluginBlockRoundTrip(t *testing.T) {
	reg := NewRegistry()
	localType := BlockType(LocalBlockTypeBit | 0x100)
	require.NoError(t, reg.RegisterBlockHandler(localType, readPluginRecord, writePluginRecord))

	var buf bytes.Buffer
	w, err := NewWriter(&buf, WithWriterRegistry(reg))
	require.NoError(t, err)
	require.NoError(t, w.WritePluginBlock(localType, &pluginRecord{Tag: 99, Label: "hi"}))
	require.NoError(t, w.Close())

	r := NewReader(bytes.NewReader(buf.Bytes()), WithReaderRegistry(reg))
	_, err = r.NextBlock() // section
	require.NoError(t, err)

	block, err := r.NextBlock()
	require.NoError(t, err)
	rec, ok := block.(*pluginRecord)
	require.True(t, ok)
	assert.EqualValues(t, 99, rec.Tag)
	assert.Equal(t, "hi", rec.Label)
}

func TestRegisterBlockHandlerRejectsCoreType(t *testing.T) {
	reg := NewRegistry()
	err := reg.RegisterBlockHandler(EnhancedPacketBlockType, readPluginRecord, writePluginRecord)
	assert.Error(t, err)
}

func TestRegisterBlockHandlerRejectsNonLocalType(t *testing.T) {
	reg := NewRegistry()
	err := reg.RegisterBlockHandler(BlockType(0x12345678), readPluginRecord, writePluginRecord)
	assert.Error(t, err)
}

func TestWritePluginBlockUnregisteredTypeFails(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	err = w.WritePluginBlock(BlockType(LocalBlockTypeBit|0x999), &pluginRecord{})
	assert.ErrorIs(t, err, ErrUnwritableRecordType)
}

func TestRegisterOptionHandlerRejectsBuiltinCode(t *testing.T) {
	reg := NewRegistry()
	err := reg.RegisterOptionHandler(KindPacket, CommentOptionCode, nil, nil, nil)
	assert.Error(t, err)
}

func parseU32Option(value []byte, order binary.ByteOrder) (OptionValue, error) {
	if len(value) != 4 {
		return OptionValue{}, ErrBadFile
	}
	return OptionValue{Kind: ValueU32, U32: order.Uint32(value)}, nil
}

func sizeU32Option(OptionValue) (int, error) { return 4, nil }

func writeU32Option(v OptionValue, order binary.ByteOrder) ([]byte, error) {
	b := make([]byte, 4)
	order.PutUint32(b, v.U32)
	return b, nil
}

// TestRegisteredOptionHandlerRunsDuringRealParse confirms a registered
// option handler is actually consulted while decoding a packet through
// the public Reader/Writer path, not just at registration time.
func TestRegisteredOptionHandlerRunsDuringRealParse(t *testing.T) {
	const priorityCode = 0x7E57
	reg := NewRegistry()
	require.NoError(t, reg.RegisterOptionHandler(KindPacket, priorityCode, parseU32Option, sizeU32Option, writeU32Option))

	var buf bytes.Buffer
	w, err := NewWriter(&buf, WithWriterRegistry(reg))
	require.NoError(t, err)
	_, err = w.AddInterface(1, 65535)
	require.NoError(t, err)
	require.NoError(t, w.WritePacket(&Packet{
		InterfaceID: 0,
		Data:        []byte{0xAA},
		OriginalLen: 1,
		CapturedLen: 1,
		Extra:       map[uint16]OptionValue{priorityCode: {Kind: ValueU32, U32: 42}},
	}))
	require.NoError(t, w.Close())

	r := NewReader(bytes.NewReader(buf.Bytes()), WithReaderRegistry(reg))
	_, err = r.NextBlock() // section
	require.NoError(t, err)
	_, err = r.NextBlock() // interface description
	require.NoError(t, err)

	block, err := r.NextBlock()
	require.NoError(t, err)
	pkt, ok := block.(*Packet)
	require.True(t, ok)
	require.Contains(t, pkt.Extra, uint16(priorityCode))
	assert.EqualValues(t, 42, pkt.Extra[priorityCode].U32)
}

// TestUnregisteredOptionCodeIsDroppedNotFailed confirms a code with no
// registered handler is skipped rather than erroring the whole block.
func TestUnregisteredOptionCodeIsDroppedNotFailed(t *testing.T) {
	reg := NewRegistry()
	// Nothing is registered for this code, so it must be built directly
	// into the wire bytes rather than going through Packet.Extra. A
	// comment option is included too, so encodeOptionList emits an
	// end-of-options marker to splice in front of.
	body, err := encodeEnhancedPacketBody(&Packet{
		InterfaceID: 0,
		Data:        []byte{0xAA},
		OriginalLen: 1,
		CapturedLen: 1,
		Comment:     "unrelated",
	}, binary.LittleEndian, 1_000_000, reg)
	require.NoError(t, err)

	var raw bytes.Buffer
	putU16(&raw, binary.LittleEndian, 0x7E57)
	putU16(&raw, binary.LittleEndian, 4)
	putU32(&raw, binary.LittleEndian, 42)
	// Splice the unregistered option in before the end-of-options marker
	// (the last 4 bytes of body) rather than reconstructing the block.
	spliced := append(append([]byte{}, body[:len(body)-4]...), raw.Bytes()...)
	spliced = append(spliced, body[len(body)-4:]...)

	section := testSection(&Interface{LinkType: 1, SnapLen: 65535, TimeUnitsPerSecond: 1_000_000})
	pkt, err := parseEnhancedPacketBody(spliced, binary.LittleEndian, 0, section, nil, noopLogger{}, reg)
	require.NoError(t, err)
	assert.Equal(t, "unrelated", pkt.Comment)
	assert.Empty(t, pkt.Extra)
}
