/*
Package crypto implements the versioned, header-framed cryptor envelope
described in spec.md §4.A/§6: a CryptoModule wraps one default Cryptor
and any number of additional decrypt-only cryptors, and frames
ciphertext with a "PNED" sentinel, version byte, 4-byte cryptor
identifier, and a length-prefixed metadata block.

It is grounded on cuemby/warren/pkg/security's SecretsManager
(Encrypt/Decrypt wrapping crypto/aes + crypto/cipher, key derivation
via crypto/sha256) generalized from a single fixed AES-256-GCM scheme
into a pluggable Cryptor interface so more than one on-the-wire format
can coexist, and rewritten from GCM to the CBC scheme spec.md requires
for the legacy cryptor.
*/
package crypto

import (
	"encoding/binary"
)

// Identifier is the 4-byte tag that routes decryption to the right
// Cryptor. The zero identifier is reserved for legacy, header-less
// envelopes.
type Identifier [4]byte

var zeroIdentifier = Identifier{0, 0, 0, 0}

// Envelope is a cryptor's input/output: ciphertext plus optional
// metadata bytes the cryptor wants round-tripped through the header.
type Envelope struct {
	Metadata   []byte
	Ciphertext []byte
}

// Cryptor is implemented by every concrete encryption scheme.
type Cryptor interface {
	Identifier() Identifier
	Encrypt(plaintext []byte) (Envelope, error)
	Decrypt(env Envelope) (plaintext []byte, err error)
}

const (
	sentinel       = "PNED"
	envelopeVer    = byte(1)
	extendedLenTag = 255
)

// Module routes encrypt calls to a single default Cryptor and decrypt
// calls to whichever registered Cryptor's identifier matches the
// envelope header.
type Module struct {
	def   Cryptor
	extra map[Identifier]Cryptor
}

// NewModule builds a Module with def as the designated encryptor and
// additional as decrypt-only cryptors.
func NewModule(def Cryptor, additional ...Cryptor) *Module {
	m := &Module{def: def, extra: make(map[Identifier]Cryptor, len(additional))}
	for _, c := range additional {
		m.extra[c.Identifier()] = c
	}
	return m
}

// Encrypt runs the default cryptor and prepends the PNED header.
func (m *Module) Encrypt(plaintext []byte) ([]byte, error) {
	if m == nil || m.def == nil {
		return nil, &CryptoInitializationError{Details: "no default cryptor configured"}
	}
	env, err := m.def.Encrypt(plaintext)
	if err != nil {
		return nil, &EncryptionError{Details: err.Error()}
	}
	return frame(m.def.Identifier(), env), nil
}

// Decrypt parses the header (or treats the payload as a legacy
// envelope when no PNED header is present) and routes to the matching
// cryptor.
func (m *Module) Decrypt(data []byte) ([]byte, error) {
	if m == nil {
		return nil, &CryptoInitializationError{Details: "crypto module is nil"}
	}
	if len(data) == 0 {
		return nil, &DecryptionError{Details: "empty payload"}
	}

	id, env, err := parse(data)
	if err != nil {
		return nil, err
	}

	c := m.lookup(id)
	if c == nil {
		return nil, &UnknownCryptorError{Details: "no cryptor registered for identifier"}
	}

	plaintext, err := c.Decrypt(env)
	if err != nil {
		return nil, &DecryptionError{Details: err.Error()}
	}
	return plaintext, nil
}

func (m *Module) lookup(id Identifier) Cryptor {
	if m.def != nil && m.def.Identifier() == id {
		return m.def
	}
	if c, ok := m.extra[id]; ok {
		return c
	}
	return nil
}

func frame(id Identifier, env Envelope) []byte {
	header := make([]byte, 0, len(sentinel)+1+4+3+len(env.Metadata))
	header = append(header, sentinel...)
	header = append(header, envelopeVer)
	header = append(header, id[:]...)

	if len(env.Metadata) < extendedLenTag {
		header = append(header, byte(len(env.Metadata)))
	} else {
		header = append(header, extendedLenTag)
		lenBuf := make([]byte, 2)
		binary.BigEndian.PutUint16(lenBuf, uint16(len(env.Metadata)))
		header = append(header, lenBuf...)
	}
	header = append(header, env.Metadata...)
	return append(header, env.Ciphertext...)
}

func parse(data []byte) (Identifier, Envelope, error) {
	if len(data) < 4 || string(data[:4]) != sentinel {
		// Legacy: no header, whole payload is ciphertext, routed to
		// the zero identifier.
		return zeroIdentifier, Envelope{Ciphertext: data}, nil
	}

	rest := data[4:]
	if len(rest) < 1 || rest[0] != envelopeVer {
		return Identifier{}, Envelope{}, &DecryptionError{Details: "unsupported envelope version"}
	}
	rest = rest[1:]

	if len(rest) < 4 {
		return Identifier{}, Envelope{}, &DecryptionError{Details: "truncated identifier"}
	}
	var id Identifier
	copy(id[:], rest[:4])
	rest = rest[4:]

	if len(rest) < 1 {
		return Identifier{}, Envelope{}, &DecryptionError{Details: "truncated metadata length"}
	}
	metaLen := int(rest[0])
	rest = rest[1:]
	if metaLen == extendedLenTag {
		if len(rest) < 2 {
			return Identifier{}, Envelope{}, &DecryptionError{Details: "truncated extended metadata length"}
		}
		metaLen = int(binary.BigEndian.Uint16(rest[:2]))
		rest = rest[2:]
	}
	if len(rest) < metaLen {
		return Identifier{}, Envelope{}, &DecryptionError{Details: "truncated metadata"}
	}
	metadata := rest[:metaLen]
	ciphertext := rest[metaLen:]

	return id, Envelope{Metadata: metadata, Ciphertext: ciphertext}, nil
}

// Error kinds, per spec.md §7.
type EncryptionError struct{ Details string }

func (e *EncryptionError) Error() string { return "encryption error: " + e.Details }

type DecryptionError struct{ Details string }

func (e *DecryptionError) Error() string { return "decryption error: " + e.Details }

type CryptoInitializationError struct{ Details string }

func (e *CryptoInitializationError) Error() string {
	return "crypto initialization error: " + e.Details
}

type UnknownCryptorError struct{ Details string }

func (e *UnknownCryptorError) Error() string { return "unknown cryptor: " + e.Details }
