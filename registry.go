package pcapng

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// BlockReaderFunc decodes a plugin block's body. It receives a reader
// over the block's body bytes (already read, with the trailer already
// validated), the section's byte order, and the body length
// (total_length minus the 8-byte header and 4-byte trailer).
type BlockReaderFunc func(r io.Reader, order binary.ByteOrder, bodyLen uint32) (interface{}, error)

// BlockWriterFunc encodes a plugin block's body to w, in the given
// byte order, and returns the number of bytes it wrote so the caller
// can compute total_length. It must not write the frame header,
// options terminator, or trailer.
type BlockWriterFunc func(w io.Writer, order binary.ByteOrder, value interface{}) (int, error)

type blockHandler struct {
	read  BlockReaderFunc
	write BlockWriterFunc
}

// OptionParserFunc decodes a single option's value into an
// OptionValue.
type OptionParserFunc func(value []byte, order binary.ByteOrder) (OptionValue, error)

// OptionSizerFunc returns the unpadded wire length of value's encoded
// form, for the writer-side sizer pass (§4.10).
type OptionSizerFunc func(value OptionValue) (int, error)

// OptionWriterFunc encodes value's bytes (not including the 4-byte
// option header or padding).
type OptionWriterFunc func(value OptionValue, order binary.ByteOrder) ([]byte, error)

type optionHandler struct {
	parse OptionParserFunc
	size  OptionSizerFunc
	write OptionWriterFunc
}

// Registry holds process-wide plugin tables for block kinds and
// options the core codec doesn't natively understand (§4.11). It is
// meant to be populated once at program initialization and treated as
// read-only afterward (§5); registration after readers/writers have
// started running is a caller bug, not something this type guards
// against at runtime; a single mutex only orders the (rare)
// registration calls against each other and against reads by
// unregistered lookups.
type Registry struct {
	mu             sync.RWMutex
	blockHandlers  map[BlockType]blockHandler
	optionHandlers map[OptionKind]map[uint16]optionHandler
}

// DefaultRegistry is the process-wide registry consulted by Reader
// and Writer when no explicit Registry is supplied via ReaderOption /
// WriterOption.
var DefaultRegistry = NewRegistry()

// NewRegistry returns an empty registry. Most programs use
// DefaultRegistry; a fresh Registry is useful for tests that register
// and discard a handler without affecting the rest of the process.
func NewRegistry() *Registry {
	return &Registry{
		blockHandlers:  make(map[BlockType]blockHandler),
		optionHandlers: make(map[OptionKind]map[uint16]optionHandler),
	}
}

// RegisterBlockHandler adds a reader/writer pair for a local block
// type. Registration is refused for core block types and for any
// reserved (non-local) type, since those are either already handled
// natively or belong to a future revision of the standard, not to a
// specific application (§4.11).
func (r *Registry) RegisterBlockHandler(t BlockType, read BlockReaderFunc, write BlockWriterFunc) error {
	if t.isCore() {
		return fmt.Errorf("pcapng: block type %#08x is a core type, cannot be overridden", uint32(t))
	}
	if !t.IsLocal() {
		return fmt.Errorf("pcapng: block type %#08x is reserved, register only local (bit 31 set) types", uint32(t))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.blockHandlers[t]; exists {
		return fmt.Errorf("pcapng: block type %#08x already registered", uint32(t))
	}
	r.blockHandlers[t] = blockHandler{read: read, write: write}
	return nil
}

func (r *Registry) lookupBlockHandler(t BlockType) (blockHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.blockHandlers[t]
	return h, ok
}

// coreOptionCodes lists the codes each OptionKind already parses
// natively; RegisterOptionHandler refuses to shadow them.
var coreOptionCodes = map[OptionKind]map[uint16]bool{
	KindSection:             {0: true, 1: true, 2: true, 3: true, 4: true},
	KindInterface:           {0: true, 1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true, 8: true, 9: true, 10: true, 11: true, 12: true, 13: true, 14: true, 15: true},
	KindPacket:              {0: true, 1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true},
	KindNameResolution:      {0: true, 1: true, 2: true, 3: true, 4: true},
	KindInterfaceStatistics: {0: true, 1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true, 8: true},
	KindDecryptionSecrets:   {0: true, 1: true},
}

// RegisterOptionHandler adds a parser/sizer/writer for a plugin option
// code within a given block-kind namespace (§4.11). Overwriting a
// built-in code is rejected; re-registering the same (kind, code) is
// rejected too, keeping registration idempotent in the sense that a
// second attempt is a no-op failure rather than a silent replace.
func (r *Registry) RegisterOptionHandler(kind OptionKind, code uint16, parse OptionParserFunc, size OptionSizerFunc, write OptionWriterFunc) error {
	if coreOptionCodes[kind][code] {
		return fmt.Errorf("pcapng: option code %d is built in for this block kind", code)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.optionHandlers[kind] == nil {
		r.optionHandlers[kind] = make(map[uint16]optionHandler)
	}
	if _, exists := r.optionHandlers[kind][code]; exists {
		return fmt.Errorf("pcapng: option code %d already registered for this block kind", code)
	}
	r.optionHandlers[kind][code] = optionHandler{parse: parse, size: size, write: write}
	return nil
}

func (r *Registry) lookupOptionHandler(kind OptionKind, code uint16) (optionHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.optionHandlers[kind][code]
	return h, ok
}

// decodePluginOption looks up a registered handler for a non-built-in
// option code within kind's namespace and, if one is registered,
// decodes value with it (§4.11, §9: "unknown codes fall through to a
// plugin lookup"). ok is false only when nothing is registered for
// the code, in which case the caller drops the option as before; err
// is non-nil when a registered parser rejects the bytes.
func decodePluginOption(reg *Registry, kind OptionKind, code uint16, value []byte, order binary.ByteOrder) (v OptionValue, ok bool, err error) {
	if reg == nil {
		return OptionValue{}, false, nil
	}
	h, found := reg.lookupOptionHandler(kind, code)
	if !found {
		return OptionValue{}, false, nil
	}
	v, err = h.parse(value, order)
	return v, true, err
}

// encodePluginOptions re-serializes every plugin-decoded option still
// registered in reg. An option with no handler registered in reg for
// its code is dropped rather than failing the whole block. The
// sizer is used to cross-check the writer's output the same way
// WritePluginBlock cross-checks a plugin block writer.
func encodePluginOptions(reg *Registry, kind OptionKind, extra map[uint16]OptionValue, order binary.ByteOrder) ([]RawOption, error) {
	if len(extra) == 0 || reg == nil {
		return nil, nil
	}
	var opts []RawOption
	for code, v := range extra {
		h, ok := reg.lookupOptionHandler(kind, code)
		if !ok {
			continue
		}
		want, err := h.size(v)
		if err != nil {
			return nil, err
		}
		b, err := h.write(v, order)
		if err != nil {
			return nil, err
		}
		if len(b) != want {
			return nil, fmt.Errorf("pcapng: plugin option %d sizer reported %d bytes but writer produced %d", code, want, len(b))
		}
		opts = append(opts, RawOption{Code: code, Value: b})
	}
	return opts, nil
}

// RegisterBlockHandler registers a handler on DefaultRegistry.
func RegisterBlockHandler(t BlockType, read BlockReaderFunc, write BlockWriterFunc) error {
	return DefaultRegistry.RegisterBlockHandler(t, read, write)
}

// RegisterOptionHandler registers a handler on DefaultRegistry.
func RegisterOptionHandler(kind OptionKind, code uint16, parse OptionParserFunc, size OptionSizerFunc, write OptionWriterFunc) error {
	return DefaultRegistry.RegisterOptionHandler(kind, code, parse, size, write)
}
