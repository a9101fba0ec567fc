package udf

import (
	"fmt"

	"github.com/google/uuid"
)

// ParseEntityID accepts an entity id in either the canonical hyphenated
// UUID form (8-4-4-4-12 hex digits) or the 32-hex-digit unhyphenated
// form, and returns its raw 16 bytes. Any other length, or any
// non-hex character in either form, is rejected — google/uuid.Parse
// also accepts the "urn:uuid:" and braced forms, which are not part of
// this contract, so the length is checked first.
func ParseEntityID(s string) ([]byte, error) {
	switch len(s) {
	case 36, 32:
	default:
		return nil, fmt.Errorf("udf: entity id %q: want 36-char hyphenated or 32-char hex form", s)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("udf: entity id %q: %w", s, err)
	}
	b := id[:]
	return b, nil
}

// FormatEntityID renders raw entity id bytes as the canonical
// hyphenated form.
func FormatEntityID(b []byte) (string, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// FormatEntityIDUnhyphenated renders raw entity id bytes as 32 hex
// digits with no separators.
func FormatEntityIDUnhyphenated(b []byte) (string, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", id[:]), nil
}
