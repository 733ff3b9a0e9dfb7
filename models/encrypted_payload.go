package models

// EncryptedPayload is the multi-recipient envelope wrapping every
// non-certificate payload. One fresh symmetric key encrypts the content;
// that key is wrapped once per authorized recipient under the recipient's
// public encryption key. A node absent from Keys cannot read the content
// and is never retroactively granted access by this core.
type EncryptedPayload struct {
	// Algo is the symmetric cipher tag, e.g. [CipherAESCBCPKCS5].
	Algo string `json:"algo"`

	// IV is the base64-encoded random initialization vector.
	IV string `json:"iv"`

	// Blob is the base64-encoded ciphertext of the payload content.
	Blob string `json:"blob"`

	// KeyAlgo is the asymmetric wrap algorithm tag, e.g. [KeyWrapRSAOAEP].
	KeyAlgo string `json:"keyalgo"`

	// Keys maps node identity to that node's individually wrapped copy of
	// the symmetric key, base64-encoded.
	Keys map[string]string `json:"keys"`
}
