package models

import (
	"encoding/json"
	"fmt"
)

// PayloadType discriminates the content carried by an Item. The value is
// serialized as the "_type" field of the payload object.
type PayloadType string

const (
	// PayloadCertificate declares a node's identity and public keys.
	PayloadCertificate PayloadType = "certificate"

	// PayloadEncrypted wraps every non-certificate payload in a
	// multi-recipient envelope.
	PayloadEncrypted PayloadType = "encrypted"

	// PayloadUnknown marks a payload whose "_type" is not recognized by
	// this build. The raw bytes are preserved so the item can still be
	// replicated to peers that do understand it.
	PayloadUnknown PayloadType = "unknown"
)

// Payload is the closed tagged union of item content kinds. Exactly one of
// Certificate and Encrypted is non-nil for the known kinds; Raw holds the
// original bytes for PayloadUnknown.
type Payload struct {
	Type        PayloadType
	Certificate *Certificate
	Encrypted   *EncryptedPayload
	Raw         json.RawMessage
}

// NewCertificatePayload wraps cert as an item payload.
func NewCertificatePayload(cert Certificate) Payload {
	return Payload{Type: PayloadCertificate, Certificate: &cert}
}

// NewEncryptedPayload wraps env as an item payload.
func NewEncryptedPayload(env EncryptedPayload) Payload {
	return Payload{Type: PayloadEncrypted, Encrypted: &env}
}

// payloadHeader extracts only the discriminator during unmarshalling.
type payloadHeader struct {
	Type PayloadType `json:"_type"`
}

// MarshalJSON implements json.Marshaler. The variant struct is flattened
// into a single object carrying the "_type" discriminator.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case PayloadCertificate:
		if p.Certificate == nil {
			return nil, fmt.Errorf("certificate payload without certificate")
		}
		return marshalTagged(string(p.Type), *p.Certificate)
	case PayloadEncrypted:
		if p.Encrypted == nil {
			return nil, fmt.Errorf("encrypted payload without envelope")
		}
		return marshalTagged(string(p.Type), *p.Encrypted)
	case PayloadUnknown:
		if len(p.Raw) == 0 {
			return nil, fmt.Errorf("unknown payload without raw bytes")
		}
		return p.Raw, nil
	default:
		return nil, fmt.Errorf("unsupported payload type %q", p.Type)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Unrecognized "_type" values
// are kept verbatim as PayloadUnknown rather than dropped or rejected here;
// the acceptance decision belongs to the validator.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var head payloadHeader
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("decode payload header: %w", err)
	}

	switch head.Type {
	case PayloadCertificate:
		var cert Certificate
		if err := json.Unmarshal(data, &cert); err != nil {
			return fmt.Errorf("decode certificate payload: %w", err)
		}
		*p = Payload{Type: PayloadCertificate, Certificate: &cert}
	case PayloadEncrypted:
		var env EncryptedPayload
		if err := json.Unmarshal(data, &env); err != nil {
			return fmt.Errorf("decode encrypted payload: %w", err)
		}
		*p = Payload{Type: PayloadEncrypted, Encrypted: &env}
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		*p = Payload{Type: PayloadUnknown, Raw: raw}
	}

	return nil
}

// marshalTagged serializes v and splices the "_type" discriminator into the
// resulting object.
func marshalTagged(typ string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err = json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}

	tag, err := json.Marshal(typ)
	if err != nil {
		return nil, err
	}
	fields["_type"] = tag

	return json.Marshal(fields)
}
