// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The VaultMesh Authors

package keymgr

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/vaultmesh/vaultmesh/internal/crypto"
	"github.com/vaultmesh/vaultmesh/models"
)

// CreateVault generates a new vault: fresh vault and node identities, three
// keypairs, and each private half sealed under the password with a
// host-calibrated PBKDF2 iteration count. The returned record is ready for
// persistence; nothing cleartext leaves this function.
//
// Key generation is CPU-bound and runs once per vault; ctx aborts between
// keypairs.
func CreateVault(ctx context.Context, suite crypto.Suite, name, password string) (*models.Vault, error) {
	iterations := suite.CalibrateIterations()

	keys := make(map[models.KeyUse]models.PrivateKeyBlock, len(models.KeyUses))
	for _, use := range models.KeyUses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		priv, err := suite.GenerateKeypair()
		if err != nil {
			return nil, fmt.Errorf("generate %s keypair: %w", use, err)
		}

		block, err := sealKey(suite, priv, password, iterations)
		if err != nil {
			return nil, fmt.Errorf("seal %s key: %w", use, err)
		}
		keys[use] = block
	}

	return &models.Vault{
		ID:   uuid.NewString(),
		Name: name,
		Node: uuid.NewString(),
		Keys: keys,
	}, nil
}

// sealKey encrypts one private key under the password: fresh salt, IV and
// cookie nonce per call, PBKDF2-derived AES key, PKCS#8 DER as plaintext.
func sealKey(suite crypto.Suite, priv *rsa.PrivateKey, password string, iterations int) (models.PrivateKeyBlock, error) {
	const derivedKeyLen = 32

	salt, err := suite.RandomBytes(16)
	if err != nil {
		return models.PrivateKeyBlock{}, err
	}
	iv, err := suite.RandomBytes(16)
	if err != nil {
		return models.PrivateKeyBlock{}, err
	}
	random, err := suite.RandomBytes(32)
	if err != nil {
		return models.PrivateKeyBlock{}, err
	}

	key := suite.DeriveKey(password, salt, iterations, derivedKeyLen)
	cookie := suite.AuthCookie(key, random)

	der, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return models.PrivateKeyBlock{}, err
	}

	ciphertext, err := suite.Encrypt(key, iv, der)
	if err != nil {
		return models.PrivateKeyBlock{}, err
	}

	public, err := crypto.EncodePublicKey(&priv.PublicKey)
	if err != nil {
		return models.PrivateKeyBlock{}, err
	}

	return models.PrivateKeyBlock{
		Public:  public,
		Private: base64.StdEncoding.EncodeToString(ciphertext),
		EncInfo: models.EncInfo{
			Algo:       models.CipherAESCBCPKCS5,
			IV:         base64.StdEncoding.EncodeToString(iv),
			KDF:        models.KDFPBKDF2SHA256,
			Salt:       base64.StdEncoding.EncodeToString(salt),
			Iterations: iterations,
			KeyLen:     derivedKeyLen,
		},
		PwCheck: models.PwCheck{
			Algo:   models.PasswordCheckHMACSHA256,
			Random: base64.StdEncoding.EncodeToString(random),
			Cookie: base64.StdEncoding.EncodeToString(cookie),
		},
	}, nil
}
