package models

// Algorithm identifiers carried inside persisted and replicated records.
// The tags travel over the wire, so their spelling is part of the protocol
// and must never change for existing data.
const (
	// SignatureRSAPSSSHA256 identifies an RSA-PSS signature over SHA-256.
	// PSS padding is probabilistic: two signatures over the same bytes
	// differ, only verification is reproducible.
	SignatureRSAPSSSHA256 = "rsa-pss-sha256"

	// CipherAESCBCPKCS5 identifies AES in CBC mode with PKCS#5 padding,
	// used for all bulk symmetric encryption.
	CipherAESCBCPKCS5 = "aes-cbc-pkcs5"

	// KeyWrapRSAOAEP identifies RSA-OAEP wrapping of a symmetric key for
	// a single recipient.
	KeyWrapRSAOAEP = "rsa-oaep"

	// KDFPBKDF2SHA256 identifies PBKDF2 with HMAC-SHA256 as the
	// password-based key derivation function.
	KDFPBKDF2SHA256 = "pbkdf2-hmac-sha256"

	// PasswordCheckHMACSHA256 identifies the wrong-password check cookie:
	// an HMAC-SHA256 keyed with the derived key over a random nonce.
	PasswordCheckHMACSHA256 = "hmac-random-sha256"
)
