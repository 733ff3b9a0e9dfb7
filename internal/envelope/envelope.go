// Package envelope produces and consumes the multi-recipient encrypted
// payload: one fresh symmetric key per seal operation, wrapped once per
// authorized recipient under that recipient's certified encryption key.
package envelope

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"

	"github.com/vaultmesh/vaultmesh/internal/crypto"
	"github.com/vaultmesh/vaultmesh/models"
)

// symmetricKeyLen is the AES-256 content key size in bytes.
const symmetricKeyLen = 32

// Codec seals and opens envelopes. Stateless; safe for concurrent use.
type Codec struct {
	suite crypto.Suite
}

// NewCodec constructs a Codec over the given primitive suite.
func NewCodec(suite crypto.Suite) *Codec {
	return &Codec{suite: suite}
}

// Seal encrypts plaintext for every recipient certificate. A fresh
// symmetric key and IV are generated per call and never reused; the key is
// wrapped individually per recipient, so the wrap ciphertexts differ even
// though the underlying key is shared.
func (c *Codec) Seal(plaintext []byte, recipients []models.Certificate) (models.EncryptedPayload, error) {
	if len(recipients) == 0 {
		return models.EncryptedPayload{}, ErrNoRecipients
	}

	key, err := c.suite.RandomBytes(symmetricKeyLen)
	if err != nil {
		return models.EncryptedPayload{}, err
	}
	iv, err := c.suite.RandomBytes(16)
	if err != nil {
		return models.EncryptedPayload{}, err
	}

	blob, err := c.suite.Encrypt(key, iv, plaintext)
	if err != nil {
		return models.EncryptedPayload{}, err
	}

	wrapped := make(map[string]string, len(recipients))
	for _, recipient := range recipients {
		pub, err := crypto.DecodePublicKey(recipient.Keys.Encrypt.Key)
		if err != nil {
			return models.EncryptedPayload{}, fmt.Errorf("%w: recipient %s: %w", ErrCorruptEnvelope, recipient.Node, err)
		}

		wrap, err := c.suite.WrapKey(pub, key)
		if err != nil {
			return models.EncryptedPayload{}, fmt.Errorf("wrap key for %s: %w", recipient.Node, err)
		}
		wrapped[recipient.Node] = base64.StdEncoding.EncodeToString(wrap)
	}

	return models.EncryptedPayload{
		Algo:    models.CipherAESCBCPKCS5,
		IV:      base64.StdEncoding.EncodeToString(iv),
		Blob:    base64.StdEncoding.EncodeToString(blob),
		KeyAlgo: models.KeyWrapRSAOAEP,
		Keys:    wrapped,
	}, nil
}

// Open recovers the plaintext of env for the given node. The node must hold
// a wrapped key entry; any padding or consistency failure during unwrap or
// decrypt is reported as [ErrDecryptionFailed].
func (c *Codec) Open(env models.EncryptedPayload, nodeID string, priv *rsa.PrivateKey) ([]byte, error) {
	if env.Algo != models.CipherAESCBCPKCS5 {
		return nil, fmt.Errorf("%w: unsupported cipher %q", ErrCorruptEnvelope, env.Algo)
	}
	if env.KeyAlgo != models.KeyWrapRSAOAEP {
		return nil, fmt.Errorf("%w: unsupported key wrap %q", ErrCorruptEnvelope, env.KeyAlgo)
	}

	entry, ok := env.Keys[nodeID]
	if !ok {
		return nil, fmt.Errorf("%w: node %s", ErrNotAuthorizedRecipient, nodeID)
	}

	wrap, err := base64.StdEncoding.DecodeString(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: bad wrapped key: %w", ErrCorruptEnvelope, err)
	}
	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: bad iv: %w", ErrCorruptEnvelope, err)
	}
	blob, err := base64.StdEncoding.DecodeString(env.Blob)
	if err != nil {
		return nil, fmt.Errorf("%w: bad blob: %w", ErrCorruptEnvelope, err)
	}

	key, err := c.suite.UnwrapKey(priv, wrap)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(key) != symmetricKeyLen {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := c.suite.Decrypt(key, iv, blob)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}
