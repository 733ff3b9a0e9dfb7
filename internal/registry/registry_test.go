// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The VaultMesh Authors

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultmesh/vaultmesh/internal/crypto"
	"github.com/vaultmesh/vaultmesh/internal/logger"
	"github.com/vaultmesh/vaultmesh/models"
)

// makeCert builds a structurally valid certificate with a fresh keypair
// shared across the three slots; registry tests never verify signatures.
func makeCert(t *testing.T, node, name string) models.Certificate {
	t.Helper()

	suite := crypto.NewTestSuite()
	priv, err := suite.GenerateKeypair()
	require.NoError(t, err)

	pub, err := crypto.EncodePublicKey(&priv.PublicKey)
	require.NoError(t, err)

	return models.Certificate{
		Node: node,
		Name: name,
		Keys: models.CertifiedKeys{
			Sign:    models.PublicKey{Algo: models.SignatureRSAPSSSHA256, Key: pub},
			Encrypt: models.PublicKey{Algo: models.KeyWrapRSAOAEP, Key: pub},
			Auth:    models.PublicKey{Algo: models.KeyWrapRSAOAEP, Key: pub},
		},
	}
}

func newTestRegistry() *Registry {
	return New("vault-1", logger.Nop())
}

func TestBootstrap_ExactlyOnce(t *testing.T) {
	r := newTestRegistry()
	assert.False(t, r.Bootstrapped())

	first := makeCert(t, "node-a", "Laptop")
	require.NoError(t, r.Bootstrap(first))
	assert.True(t, r.Bootstrapped())
	assert.True(t, r.Known("node-a"))

	err := r.Bootstrap(makeCert(t, "node-b", "Phone"))
	require.ErrorIs(t, err, ErrAlreadyBootstrapped)
	assert.False(t, r.Known("node-b"))
}

func TestBootstrap_RejectsCorruptCertificate(t *testing.T) {
	r := newTestRegistry()

	cert := makeCert(t, "node-a", "Laptop")
	cert.Keys.Sign.Key = "garbage"
	require.ErrorIs(t, r.Bootstrap(cert), ErrCorruptCertificate)

	cert = makeCert(t, "", "Laptop")
	require.ErrorIs(t, r.Bootstrap(cert), ErrCorruptCertificate)

	assert.False(t, r.Bootstrapped())
}

func TestRegister_RequiresTrustedIssuer(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Bootstrap(makeCert(t, "node-a", "Laptop")))

	err := r.Register(makeCert(t, "node-b", "Phone"), "node-unknown")
	require.ErrorIs(t, err, ErrUnknownSigner)
	assert.False(t, r.Known("node-b"))

	require.NoError(t, r.Register(makeCert(t, "node-b", "Phone"), "node-a"))
	assert.True(t, r.Known("node-b"))
}

func TestRegister_RedeliveryIsNoop(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Bootstrap(makeCert(t, "node-a", "Laptop")))

	cert := makeCert(t, "node-b", "Phone")
	require.NoError(t, r.Register(cert, "node-a"))
	require.NoError(t, r.Register(cert, "node-a"))

	keys, err := r.SignKeys("node-b")
	require.NoError(t, err)
	assert.Len(t, keys, 1, "redelivery must not grow the key history")
}

func TestRegister_RestrictionsSupersedeWithoutRotation(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Bootstrap(makeCert(t, "node-a", "Laptop")))

	cert := makeCert(t, "node-b", "Phone")
	require.NoError(t, r.Register(cert, "node-a"))

	// Same keys, new restrictions: a supersede, not a redelivery.
	restricted := cert
	restricted.Restrictions = &models.Restrictions{SyncOnly: true}
	require.NoError(t, r.Register(restricted, "node-a"))

	active, err := r.Lookup("node-b")
	require.NoError(t, err)
	assert.True(t, active.IsSyncOnly())

	// Delivering the restricted certificate again is a no-op.
	require.NoError(t, r.Register(restricted, "node-a"))
	history := r.certs["node-b"]
	assert.Len(t, history, 2)

	// A rename supersedes the same way.
	renamed := restricted
	renamed.Name = "Old Phone"
	require.NoError(t, r.Register(renamed, "node-a"))

	active, err = r.Lookup("node-b")
	require.NoError(t, err)
	assert.Equal(t, "Old Phone", active.Name)
	assert.True(t, active.IsSyncOnly())
}

func TestRegister_RotationKeepsHistory(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Bootstrap(makeCert(t, "node-a", "Laptop")))

	gen1 := makeCert(t, "node-b", "Phone")
	require.NoError(t, r.Register(gen1, "node-a"))

	gen2 := makeCert(t, "node-b", "Phone")
	require.NoError(t, r.Register(gen2, "node-b"))

	// The active certificate is the rotated one.
	active, err := r.Lookup("node-b")
	require.NoError(t, err)
	assert.Equal(t, gen2.Keys, active.Keys)

	// Both generations stay verifiable, newest first.
	keys, err := r.SignKeys("node-b")
	require.NoError(t, err)
	require.Len(t, keys, 2)

	newest, err := crypto.DecodePublicKey(gen2.Keys.Sign.Key)
	require.NoError(t, err)
	oldest, err := crypto.DecodePublicKey(gen1.Keys.Sign.Key)
	require.NoError(t, err)
	assert.Zero(t, keys[0].N.Cmp(newest.N))
	assert.Zero(t, keys[1].N.Cmp(oldest.N))
}

func TestLookup_UnknownNode(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Lookup("node-x")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, err = r.SignKeys("node-x")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	assert.False(t, r.Known("node-x"))
}

func TestRecipients_ActiveCertsSortedByNode(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Bootstrap(makeCert(t, "node-c", "Laptop")))
	require.NoError(t, r.Register(makeCert(t, "node-a", "Phone"), "node-c"))

	gen1 := makeCert(t, "node-b", "Tablet")
	require.NoError(t, r.Register(gen1, "node-c"))
	gen2 := makeCert(t, "node-b", "Tablet")
	require.NoError(t, r.Register(gen2, "node-b"))

	recipients := r.Recipients()
	require.Len(t, recipients, 3)
	assert.Equal(t, "node-a", recipients[0].Node)
	assert.Equal(t, "node-b", recipients[1].Node)
	assert.Equal(t, "node-c", recipients[2].Node)

	// The rotated node contributes its active keys only.
	assert.Equal(t, gen2.Keys, recipients[1].Keys)
}
