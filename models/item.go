package models

// Item is the unit of replication: a signed, immutable record authored by
// exactly one node and copied verbatim between devices. The signature is
// computed over the canonical form of the item with the Signature field
// itself excluded.
type Item struct {
	// ID is the globally unique identifier of this record.
	ID string `json:"id"`

	// Vault identifies the vault whose change log this item belongs to.
	Vault string `json:"vault"`

	// Origin names the authoring node and its per-node sequence number.
	// The triple (Vault, Origin.Node, Origin.SeqNr) is unique.
	Origin Origin `json:"origin"`

	// Payload is the typed content of the item.
	Payload Payload `json:"payload"`

	// Signature is the detached signature over the canonical form of the
	// item with this field excluded. Nil only while the item is being
	// assembled for signing.
	Signature *Signature `json:"signature,omitempty"`
}

// Origin identifies the authoring node of an Item together with the node's
// strictly increasing sequence number at creation time.
type Origin struct {
	// Node is the stable identifier of the authoring device.
	Node string `json:"node"`

	// SeqNr is the per-node monotonic sequence number. Receivers apply
	// one node's items in non-decreasing SeqNr order; gaps mean "not yet
	// received", never reordering.
	SeqNr uint64 `json:"seqnr"`
}

// Signature is a detached signature attached to an Item.
type Signature struct {
	// Algo is the signature algorithm tag, e.g. [SignatureRSAPSSSHA256].
	Algo string `json:"algo"`

	// Blob is the base64-encoded signature bytes.
	Blob string `json:"blob"`
}

// Unsigned returns a copy of the item with the signature removed. The
// canonical form of the returned value is the exact byte sequence that is
// signed and verified.
func (i Item) Unsigned() Item {
	i.Signature = nil
	return i
}
