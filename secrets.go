package pcapng

import (
	"bytes"
	"encoding/binary"
)

// Decryption secrets types (§4.7). The registry of secrets_type
// values is maintained by Wireshark, not this codec; unrecognized
// values are passed through opaquely.
type SecretsType uint32

const (
	SecretsTLSKeyLog    SecretsType = 0x544c534b // "TLSK"
	SecretsWireGuard    SecretsType = 0x57474b4c // "WGKL"
	SecretsZigbeeNWK    SecretsType = 0x5a4e574b // "ZNWK"
	SecretsZigbeeAPS    SecretsType = 0x5a415053 // "ZAPS"
)

// Secrets is the decoded form of a DSB: an opaque secrets blob tagged
// with its type, capped at MaxSecretsLength (§4.7).
type Secrets struct {
	Type SecretsType
	Data []byte
}

func parseDecryptionSecretsBody(body []byte, order binary.ByteOrder, offset int64) (*Secrets, error) {
	if len(body) < 8 {
		return nil, badFile(offset, "decryption secrets body too short")
	}
	secretsType := SecretsType(order.Uint32(body[0:4]))
	length := order.Uint32(body[4:8])
	if uint64(length) > MaxSecretsLength {
		return nil, badFilef(offset, "secrets length %d exceeds maximum %d", length, MaxSecretsLength)
	}
	if 8+int(length) > len(body) {
		return nil, badFile(offset, "secrets length exceeds block size")
	}
	data := append([]byte(nil), body[8:8+int(length)]...)
	return &Secrets{Type: secretsType, Data: data}, nil
}

func encodeDecryptionSecretsBody(s *Secrets, order binary.ByteOrder) []byte {
	var buf bytes.Buffer
	putU32(&buf, order, uint32(s.Type))
	putU32(&buf, order, uint32(len(s.Data)))
	buf.Write(s.Data)
	pad := paddedLen(len(s.Data)) - len(s.Data)
	if pad > 0 {
		buf.Write(make([]byte, pad))
	}
	return buf.Bytes()
}
