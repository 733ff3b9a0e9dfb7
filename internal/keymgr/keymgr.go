// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The VaultMesh Authors

// Package keymgr owns a vault's local secret material: three keypairs whose
// private halves are encrypted at rest under a password-derived key. The
// manager is either LOCKED (only public keys and encrypted blobs held) or
// UNLOCKED (decrypted private keys cached in memory for the session).
package keymgr

import (
	"context"
	"crypto/hmac"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/vaultmesh/vaultmesh/internal/crypto"
	"github.com/vaultmesh/vaultmesh/models"
)

// Manager guards one vault's key material. Lock/unlock transitions are
// mutually exclusive; a Lock arriving mid-Unlock can never observe a
// half-updated session.
type Manager struct {
	mu    sync.Mutex
	suite crypto.Suite
	vault *models.Vault

	// session is non-nil exactly while the vault is unlocked.
	session map[models.KeyUse]*rsa.PrivateKey
}

// NewManager constructs a locked Manager around an existing vault record.
func NewManager(suite crypto.Suite, vault *models.Vault) *Manager {
	return &Manager{suite: suite, vault: vault}
}

// Vault returns the managed vault record. The record holds no cleartext
// private material, so sharing it with the persistence layer is safe.
func (m *Manager) Vault() *models.Vault {
	return m.vault
}

// Unlocked reports whether a session is active.
func (m *Manager) Unlocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Unlock derives the key-encryption key for every stored private key block,
// verifies each block's password cookie before touching its ciphertext, and
// decrypts all three private keys. The session transitions to UNLOCKED only
// if all keys succeed. Cancellation via ctx aborts between keys and leaves
// the manager LOCKED with no partial material retained.
//
// Unlocking an already unlocked vault leaves the session untouched but
// still verifies the supplied password, so Unlock never reports success
// for a password that would not open the vault.
func (m *Manager) Unlock(ctx context.Context, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		block, ok := m.vault.Keys[models.KeySign]
		if !ok {
			return fmt.Errorf("%w: missing %s key", ErrCorruptKeyBlock, models.KeySign)
		}
		_, err := m.checkPassword(block, password)
		return err
	}

	keys := make(map[models.KeyUse]*rsa.PrivateKey, len(models.KeyUses))
	for _, use := range models.KeyUses {
		if err := ctx.Err(); err != nil {
			return err
		}

		block, ok := m.vault.Keys[use]
		if !ok {
			return fmt.Errorf("%w: missing %s key", ErrCorruptKeyBlock, use)
		}

		priv, err := m.unlockBlock(block, password)
		if err != nil {
			return err
		}
		keys[use] = priv
	}

	m.session = keys
	return nil
}

// Lock discards in-memory private key material immediately and
// unconditionally. Locking a locked vault is a no-op.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
}

// PrivateKey returns the unlocked private key for the given use, or
// [ErrLocked] while no session is active.
func (m *Manager) PrivateKey(use models.KeyUse) (*rsa.PrivateKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, ErrLocked
	}

	priv, ok := m.session[use]
	if !ok {
		return nil, fmt.Errorf("%w: no %s key in session", ErrCorruptKeyBlock, use)
	}

	return priv, nil
}

// Rewrap re-encrypts every private key block under newPassword with fresh
// salts, IVs and cookies. The old password must verify first. No cleartext
// blob is ever persisted; the caller saves the updated vault record. The
// locked/unlocked state of the session is unchanged.
func (m *Manager) Rewrap(ctx context.Context, oldPassword, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rewrapped := make(map[models.KeyUse]models.PrivateKeyBlock, len(models.KeyUses))
	for _, use := range models.KeyUses {
		if err := ctx.Err(); err != nil {
			return err
		}

		block, ok := m.vault.Keys[use]
		if !ok {
			return fmt.Errorf("%w: missing %s key", ErrCorruptKeyBlock, use)
		}

		priv, err := m.unlockBlock(block, oldPassword)
		if err != nil {
			return err
		}

		fresh, err := sealKey(m.suite, priv, newPassword, block.EncInfo.Iterations)
		if err != nil {
			return err
		}
		rewrapped[use] = fresh
	}

	m.vault.Keys = rewrapped
	return nil
}

// Certificate builds the certificate payload publishing this vault
// member's public keys under the given device name.
func (m *Manager) Certificate(deviceName string) (models.Certificate, error) {
	keys, err := m.PublicKeys()
	if err != nil {
		return models.Certificate{}, err
	}

	return models.Certificate{
		Node: m.vault.Node,
		Name: deviceName,
		Keys: keys,
	}, nil
}

// PublicKeys returns the certified public key set of this vault member.
// Available in both locked and unlocked states.
func (m *Manager) PublicKeys() (models.CertifiedKeys, error) {
	get := func(use models.KeyUse, algo string) (models.PublicKey, error) {
		block, ok := m.vault.Keys[use]
		if !ok {
			return models.PublicKey{}, fmt.Errorf("%w: missing %s key", ErrCorruptKeyBlock, use)
		}
		return models.PublicKey{Algo: algo, Key: block.Public}, nil
	}

	sign, err := get(models.KeySign, models.SignatureRSAPSSSHA256)
	if err != nil {
		return models.CertifiedKeys{}, err
	}
	encrypt, err := get(models.KeyEncrypt, models.KeyWrapRSAOAEP)
	if err != nil {
		return models.CertifiedKeys{}, err
	}
	auth, err := get(models.KeyAuth, models.KeyWrapRSAOAEP)
	if err != nil {
		return models.CertifiedKeys{}, err
	}

	return models.CertifiedKeys{Sign: sign, Encrypt: encrypt, Auth: auth}, nil
}

// unlockBlock recovers one private key from its encrypted block. The
// password cookie is checked before any AES decryption is attempted, so the
// common wrong-password case never exercises the cipher. Decryption or
// parse failures after a passing cookie are corruption, not a wrong
// password.
func (m *Manager) unlockBlock(block models.PrivateKeyBlock, password string) (*rsa.PrivateKey, error) {
	if block.EncInfo.KDF != models.KDFPBKDF2SHA256 {
		return nil, fmt.Errorf("%w: unsupported kdf %q", ErrCorruptKeyBlock, block.EncInfo.KDF)
	}
	if block.EncInfo.Algo != models.CipherAESCBCPKCS5 {
		return nil, fmt.Errorf("%w: unsupported cipher %q", ErrCorruptKeyBlock, block.EncInfo.Algo)
	}

	iv, err := base64.StdEncoding.DecodeString(block.EncInfo.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: bad iv: %w", ErrCorruptKeyBlock, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(block.Private)
	if err != nil {
		return nil, fmt.Errorf("%w: bad private key blob: %w", ErrCorruptKeyBlock, err)
	}

	key, err := m.checkPassword(block, password)
	if err != nil {
		return nil, err
	}

	der, err := m.suite.Decrypt(key, iv, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptKeyBlock, err)
	}

	priv, err := crypto.ParsePrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptKeyBlock, err)
	}

	return priv, nil
}

// checkPassword verifies password against the block's pwcheck cookie and
// returns the derived key-encryption key. No ciphertext is touched, so the
// common wrong-password case never exercises the cipher.
func (m *Manager) checkPassword(block models.PrivateKeyBlock, password string) ([]byte, error) {
	if block.PwCheck.Algo != models.PasswordCheckHMACSHA256 {
		return nil, fmt.Errorf("%w: unsupported pwcheck %q", ErrCorruptKeyBlock, block.PwCheck.Algo)
	}

	salt, err := base64.StdEncoding.DecodeString(block.EncInfo.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad salt: %w", ErrCorruptKeyBlock, err)
	}
	random, err := base64.StdEncoding.DecodeString(block.PwCheck.Random)
	if err != nil {
		return nil, fmt.Errorf("%w: bad pwcheck nonce: %w", ErrCorruptKeyBlock, err)
	}
	cookie, err := base64.StdEncoding.DecodeString(block.PwCheck.Cookie)
	if err != nil {
		return nil, fmt.Errorf("%w: bad pwcheck cookie: %w", ErrCorruptKeyBlock, err)
	}

	key := m.suite.DeriveKey(password, salt, block.EncInfo.Iterations, block.EncInfo.KeyLen)

	if !hmac.Equal(m.suite.AuthCookie(key, random), cookie) {
		return nil, ErrWrongPassword
	}

	return key, nil
}
