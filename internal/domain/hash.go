package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const ContentHashSize = 32

// ContentHash is the 32-byte registry key of an image's content.
type ContentHash [ContentHashSize]byte

// Normalize accepts a ContentHash, a [32]byte, a raw []byte or a hex string
// (with or without 0x prefix) and returns the 32-byte hash.
func Normalize(input any) (ContentHash, error) {
	switch v := input.(type) {
	case ContentHash:
		return v, nil
	case *ContentHash:
		if v == nil {
			return ContentHash{}, fmt.Errorf("%w: nil hash", ErrInvalidHashFormat)
		}
		return *v, nil
	case [ContentHashSize]byte:
		return ContentHash(v), nil
	case []byte:
		return FromBytes(v)
	case string:
		return ParseHex(v)
	default:
		return ContentHash{}, fmt.Errorf("%w: unsupported input type %T", ErrInvalidHashFormat, input)
	}
}

func FromBytes(b []byte) (ContentHash, error) {
	if len(b) != ContentHashSize {
		return ContentHash{}, fmt.Errorf("%w: content hash must be %d bytes, got %d", ErrInvalidHashFormat, ContentHashSize, len(b))
	}
	var h ContentHash
	copy(h[:], b)
	return h, nil
}

func ParseHex(s string) (ContentHash, error) {
	trimmed := s
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return ContentHash{}, fmt.Errorf("%w: %v", ErrInvalidHashFormat, err)
	}
	return FromBytes(raw)
}

// HashContent returns the SHA-256 digest of raw image bytes.
func HashContent(data []byte) ContentHash {
	return ContentHash(sha256.Sum256(data))
}

// Hex returns the canonical form: lowercase, 0x-prefixed, 64 hex digits.
func (h ContentHash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h ContentHash) String() string {
	return h.Hex()
}

func (h ContentHash) Bytes() []byte {
	out := make([]byte, ContentHashSize)
	copy(out, h[:])
	return out
}

func (h ContentHash) IsZero() bool {
	return h == ContentHash{}
}

func (h ContentHash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *ContentHash) UnmarshalText(text []byte) error {
	parsed, err := ParseHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// CanonicalHex normalizes input and returns its canonical hex key.
func CanonicalHex(input any) (string, error) {
	h, err := Normalize(input)
	if err != nil {
		return "", err
	}
	return h.Hex(), nil
}
