package pcapng

import (
	"bytes"
	"encoding/binary"
)

// HostEventKind distinguishes the two host-event block revisions and
// the systemd journal export block (§4.8, supplemented from the
// sysdig event encoding in the original capture format).
type HostEventKind int

const (
	HostEventSysdigV1 HostEventKind = iota
	HostEventSysdigV2
	HostEventJournal
)

// HostEvent is a decoded sysdig-style host event (block types
// HostEventV1BlockType / HostEventV2BlockType). These are
// implementation-defined blocks carried opaquely by most readers; this
// codec decodes the fixed sysdig header and passes the parameter
// payload through untouched.
type HostEvent struct {
	Kind       HostEventKind
	CPUID      uint16
	Timestamp  uint64 // nanoseconds, sysdig's own epoch, not rescaled
	ThreadID   uint64
	EventLen   uint32 // on-wire length of event_type plus the parameter payload
	EventType  uint16
	ParamCount uint32 // only present in V2
	Payload    []byte // event parameters, opaque
}

// sysdigEventHeaderSize is (16+64+64+32+16)/8 = 24 bytes for the v1
// header (cpu_id, timestamp, thread_id, event_len, event_type); v2
// adds a trailing 32-bit nparams field.
const sysdigEventHeaderSize = 24

func parseHostEventBody(body []byte, order binary.ByteOrder, offset int64, kind HostEventKind) (*HostEvent, error) {
	headerLen := sysdigEventHeaderSize
	if kind == HostEventSysdigV2 {
		headerLen += 4
	}
	if len(body) < headerLen {
		return nil, badFile(offset, "host event body too short")
	}
	ev := &HostEvent{
		Kind:      kind,
		CPUID:     order.Uint16(body[0:2]),
		Timestamp: order.Uint64(body[2:10]),
		ThreadID:  order.Uint64(body[10:18]),
		EventLen:  order.Uint32(body[18:22]),
		EventType: order.Uint16(body[22:24]),
	}
	if kind == HostEventSysdigV2 {
		ev.ParamCount = order.Uint32(body[24:28])
	}
	ev.Payload = append([]byte(nil), body[headerLen:]...)
	return ev, nil
}

func encodeHostEventBody(ev *HostEvent, order binary.ByteOrder) []byte {
	var buf bytes.Buffer
	putU16(&buf, order, ev.CPUID)
	putU64(&buf, order, ev.Timestamp)
	putU64(&buf, order, ev.ThreadID)
	putU32(&buf, order, ev.EventLen)
	putU16(&buf, order, ev.EventType)
	if ev.Kind == HostEventSysdigV2 {
		putU32(&buf, order, ev.ParamCount)
	}
	buf.Write(ev.Payload)
	return buf.Bytes()
}

// JournalEntry is a single systemd journal export record inside a
// Journal Export Block. The export format is newline-delimited
// FIELD=value pairs with a trailing blank line per entry, matching
// journalctl -o export.
type JournalEntry struct {
	Fields map[string]string
}

func parseJournalExportBody(body []byte, offset int64) ([]JournalEntry, error) {
	var entries []JournalEntry
	current := JournalEntry{Fields: map[string]string{}}
	empty := true

	for _, line := range bytes.Split(body, []byte("\n")) {
		if len(line) == 0 {
			if !empty {
				entries = append(entries, current)
				current = JournalEntry{Fields: map[string]string{}}
				empty = true
			}
			continue
		}
		eq := bytes.IndexByte(line, '=')
		if eq < 0 {
			return nil, badFile(offset, "journal export entry missing '=' separator")
		}
		current.Fields[string(line[:eq])] = string(line[eq+1:])
		empty = false
	}
	if !empty {
		entries = append(entries, current)
	}
	return entries, nil
}

func encodeJournalExportBody(entries []JournalEntry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		for k, v := range e.Fields {
			buf.WriteString(k)
			buf.WriteByte('=')
			buf.WriteString(v)
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
