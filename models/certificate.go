package models

// Certificate declares a node's identity and its three public keys. It is
// carried as a signed Item payload, so the certificate's own authenticity
// rests on the signature of the item that carries it. The first certificate
// of a new vault is introduced out of band by the pairing process.
type Certificate struct {
	// Node is the identity being certified.
	Node string `json:"node"`

	// Name is the human-readable device name, e.g. "Laptop".
	Name string `json:"name"`

	// Keys holds the node's public key set. Keys are immutable once
	// certified; rotation means issuing a new certificate.
	Keys CertifiedKeys `json:"keys"`

	// Restrictions optionally limits what the certified node's
	// signatures may authorize.
	Restrictions *Restrictions `json:"restrictions,omitempty"`
}

// CertifiedKeys is the public half of a node's three keypairs.
type CertifiedKeys struct {
	// Sign verifies item signatures made by the node.
	Sign PublicKey `json:"sign"`

	// Encrypt wraps envelope keys addressed to the node.
	Encrypt PublicKey `json:"encrypt"`

	// Auth authenticates the node during pairing and session setup.
	Auth PublicKey `json:"auth"`
}

// PublicKey is a serialized public key with its algorithm tag.
type PublicKey struct {
	// Algo names the key algorithm, e.g. [SignatureRSAPSSSHA256] for a
	// signing key or [KeyWrapRSAOAEP] for an encryption key.
	Algo string `json:"algo"`

	// Key is the base64-encoded PKIX (DER) public key.
	Key string `json:"key"`
}

// Restrictions limits the authority of a certified node.
type Restrictions struct {
	// SyncOnly marks a node that may replicate items but whose own
	// signatures never authorize vault content changes.
	SyncOnly bool `json:"sync_only"`
}

// IsSyncOnly reports whether the certificate carries the sync-only
// restriction.
func (c Certificate) IsSyncOnly() bool {
	return c.Restrictions != nil && c.Restrictions.SyncOnly
}
