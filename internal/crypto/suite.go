// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The VaultMesh Authors

package crypto

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// ErrDecryptionFailed is returned when a symmetric or asymmetric decrypt
// operation detects a padding or length inconsistency. The error carries no
// detail about which check failed, keeping the failure mode uniform.
var ErrDecryptionFailed = errors.New("decryption failed")

// suite is the private implementation of [Suite].
type suite struct {
	// rsaBits is the modulus size for generated keypairs.
	rsaBits int

	// kdfTarget is the latency a single derivation should land on after
	// calibration; kdfFloor is the hard minimum iteration count that
	// protects against degenerate fast measurements.
	kdfTarget time.Duration
	kdfFloor  int
}

// NewSuite constructs a [Suite] with production parameters:
//   - RSA modulus:      3072 bits
//   - KDF target:       150 ms per derivation (middle of the 100-200 ms window)
//   - KDF floor:        4096 iterations
func NewSuite() Suite {
	return &suite{
		rsaBits:   3072,
		kdfTarget: 150 * time.Millisecond,
		kdfFloor:  4096,
	}
}

// NewSuiteWithKDF constructs a [Suite] whose calibration targets the
// middle of the configured latency window with the given iteration floor.
func NewSuiteWithKDF(targetMin, targetMax time.Duration, floor int) Suite {
	return &suite{
		rsaBits:   3072,
		kdfTarget: (targetMin + targetMax) / 2,
		kdfFloor:  floor,
	}
}

// NewTestSuite constructs a [Suite] with a small RSA modulus for fast test
// key generation. Never use outside tests.
func NewTestSuite() Suite {
	return &suite{
		rsaBits:   2048,
		kdfTarget: 150 * time.Millisecond,
		kdfFloor:  4096,
	}
}

// GenerateKeypair implements [Suite].
func (s *suite) GenerateKeypair() (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, s.rsaBits)
	if err != nil {
		return nil, fmt.Errorf("generate rsa keypair: %w", err)
	}
	return priv, nil
}

// Sign implements [Suite]. The PSS salt length equals the hash size, so
// signatures are randomized; reproducibility is not a contract, only
// verifiability.
func (s *suite) Sign(priv *rsa.PrivateKey, data []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("sign: nil private key")
	}

	digest := sha256.Sum256(data)
	sig, err := rsa.SignPSS(rand.Reader, priv, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	return sig, nil
}

// Verify implements [Suite]. Fails closed: nil keys, empty signatures and
// any verification error all answer false.
func (s *suite) Verify(pub *rsa.PublicKey, data, sig []byte) bool {
	if pub == nil || len(sig) == 0 {
		return false
	}

	digest := sha256.Sum256(data)
	err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})

	return err == nil
}

// WrapKey implements [Suite].
func (s *suite) WrapKey(pub *rsa.PublicKey, key []byte) ([]byte, error) {
	if pub == nil {
		return nil, fmt.Errorf("wrap key: nil public key")
	}

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return nil, fmt.Errorf("wrap key: %w", err)
	}

	return wrapped, nil
}

// UnwrapKey implements [Suite]. Failure is reported as [ErrDecryptionFailed]
// without detail; OAEP errors must stay indistinguishable from each other.
func (s *suite) UnwrapKey(priv *rsa.PrivateKey, wrapped []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("unwrap key: nil private key")
	}

	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrapped, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return key, nil
}

// Encrypt implements [Suite]. The IV is supplied by the caller so envelope
// records can carry it explicitly next to the ciphertext.
func (s *suite) Encrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("iv length %d, want %d", len(iv), block.BlockSize())
	}

	padded := padPKCS5(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return out, nil
}

// Decrypt implements [Suite].
func (s *suite) Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("iv length %d, want %d", len(iv), block.BlockSize())
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, ErrDecryptionFailed
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, ok := unpadPKCS5(padded, block.BlockSize())
	if !ok {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// DeriveKey implements [Suite].
func (s *suite) DeriveKey(password string, salt []byte, iterations, keyLen int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keyLen, sha256.New)
}

// CalibrateIterations implements [Suite]. It times a fixed probe of the
// real derivation function and scales the count so one derivation lands on
// the target latency. The floor guards against clock glitches and
// unrealistically fast probes.
func (s *suite) CalibrateIterations() int {
	const probe = 2048

	start := time.Now()
	_ = pbkdf2.Key([]byte("calibration probe"), []byte("vaultmesh-calibrate"), probe, 32, sha256.New)
	elapsed := time.Since(start)

	if elapsed <= 0 {
		return s.kdfFloor
	}

	iterations := int(float64(probe) * float64(s.kdfTarget) / float64(elapsed))
	if iterations < s.kdfFloor {
		iterations = s.kdfFloor
	}

	return iterations
}

// AuthCookie implements [Suite].
func (s *suite) AuthCookie(key, random []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(random)
	return h.Sum(nil)
}

// RandomBytes implements [Suite].
func (s *suite) RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return buf, nil
}

// padPKCS5 appends PKCS#5/#7 padding up to a whole block.
func padPKCS5(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// unpadPKCS5 strips PKCS#5/#7 padding. The padding bytes are checked in
// constant time over the final block to avoid a padding oracle.
func unpadPKCS5(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, false
	}

	good := 1
	for i := len(data) - n; i < len(data); i++ {
		good &= subtle.ConstantTimeByteEq(data[i], byte(n))
	}
	if good != 1 {
		return nil, false
	}

	return data[:len(data)-n], true
}
