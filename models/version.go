package models

import (
	"encoding/json"
	"fmt"
)

// Version is the decrypted content of an EncryptedPayload: one point in a
// secret entity's edit history. All versions of one entity form a DAG
// rooted at the null-parent version; the version's own identity is the ID
// of the Item that carried it.
type Version struct {
	// ID identifies the logical secret entity this version belongs to.
	// Every version of the same entity carries the same ID.
	ID string `json:"id"`

	// Parent is the item ID of the causally preceding version. Empty
	// marks the entity's creation.
	Parent string `json:"parent,omitempty"`

	// CreatedAt is the creation time in unix milliseconds. Kept integral
	// so the canonical form is free of float formatting concerns.
	CreatedAt int64 `json:"created_at"`

	// Deleted marks a tombstone. A deleted version is an ordinary graph
	// tip; ancestors are retained, never purged.
	Deleted bool `json:"deleted,omitempty"`

	// Secret is the embedded typed value.
	Secret Secret `json:"secret"`
}

// SecretType discriminates the typed value embedded in a Version.
type SecretType string

const (
	// SecretPassword is a password entry.
	SecretPassword SecretType = "password"

	// SecretUnknown preserves a value of an unrecognized kind.
	SecretUnknown SecretType = "unknown"
)

// Secret is the closed tagged union of entity value kinds. Future kinds
// decode as SecretUnknown with the raw bytes preserved.
type Secret struct {
	Type     SecretType
	Password *Password
	Raw      json.RawMessage
}

// NewPasswordSecret wraps pw as a version value.
func NewPasswordSecret(pw Password) Secret {
	return Secret{Type: SecretPassword, Password: &pw}
}

// MarshalJSON implements json.Marshaler.
func (s Secret) MarshalJSON() ([]byte, error) {
	switch s.Type {
	case SecretPassword:
		if s.Password == nil {
			return nil, fmt.Errorf("password secret without value")
		}
		return marshalTagged(string(s.Type), *s.Password)
	case SecretUnknown:
		if len(s.Raw) == 0 {
			return nil, fmt.Errorf("unknown secret without raw bytes")
		}
		return s.Raw, nil
	default:
		return nil, fmt.Errorf("unsupported secret type %q", s.Type)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Secret) UnmarshalJSON(data []byte) error {
	var head payloadHeader
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("decode secret header: %w", err)
	}

	switch SecretType(head.Type) {
	case SecretPassword:
		var pw Password
		if err := json.Unmarshal(data, &pw); err != nil {
			return fmt.Errorf("decode password secret: %w", err)
		}
		*s = Secret{Type: SecretPassword, Password: &pw}
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		*s = Secret{Type: SecretUnknown, Raw: raw}
	}

	return nil
}

// Password is the decrypted value of a password entry.
type Password struct {
	// Name is the display name of the entry.
	Name string `json:"name"`

	// Comment is an optional free-form note.
	Comment string `json:"comment,omitempty"`

	// Group is the folder the entry is filed under.
	Group string `json:"group,omitempty"`

	// Password is the secret itself.
	Password string `json:"password"`

	// Generator optionally records how the password was generated so the
	// same policy can be reused on regeneration.
	Generator *GeneratorSpec `json:"generator,omitempty"`
}

// GeneratorSpec records the password-generation policy of an entry.
type GeneratorSpec struct {
	// Method names the generator, e.g. "random" or "diceware".
	Method string `json:"method"`

	// Length is the requested output length in characters or words.
	Length int `json:"length"`

	// Alphabet optionally restricts the character classes used.
	Alphabet string `json:"alphabet,omitempty"`
}
