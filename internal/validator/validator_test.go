// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The VaultMesh Authors

package validator

import (
	"crypto/rsa"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultmesh/vaultmesh/internal/canonical"
	"github.com/vaultmesh/vaultmesh/internal/crypto"
	"github.com/vaultmesh/vaultmesh/internal/logger"
	"github.com/vaultmesh/vaultmesh/internal/registry"
	"github.com/vaultmesh/vaultmesh/internal/sequencer"
	"github.com/vaultmesh/vaultmesh/models"
)

const testVault = "vault-1"

// testNode is one simulated device: identity, signing key and certificate.
type testNode struct {
	id   string
	priv *rsa.PrivateKey
	cert models.Certificate
}

func newTestNode(t *testing.T, suite crypto.Suite, id string) *testNode {
	t.Helper()

	priv, err := suite.GenerateKeypair()
	require.NoError(t, err)
	pub, err := crypto.EncodePublicKey(&priv.PublicKey)
	require.NoError(t, err)

	return &testNode{
		id:   id,
		priv: priv,
		cert: models.Certificate{
			Node: id,
			Name: id,
			Keys: models.CertifiedKeys{
				Sign:    models.PublicKey{Algo: models.SignatureRSAPSSSHA256, Key: pub},
				Encrypt: models.PublicKey{Algo: models.KeyWrapRSAOAEP, Key: pub},
				Auth:    models.PublicKey{Algo: models.KeyWrapRSAOAEP, Key: pub},
			},
		},
	}
}

// sign completes an item with a signature over its canonical unsigned form.
func (n *testNode) sign(t *testing.T, suite crypto.Suite, item models.Item) models.Item {
	t.Helper()

	data, err := canonical.Marshal(item.Unsigned())
	require.NoError(t, err)

	sig, err := suite.Sign(n.priv, data)
	require.NoError(t, err)

	item.Signature = &models.Signature{
		Algo: models.SignatureRSAPSSSHA256,
		Blob: base64.StdEncoding.EncodeToString(sig),
	}
	return item
}

// item builds an unsigned item from this node with the given payload.
func (n *testNode) item(id string, seqnr uint64, payload models.Payload) models.Item {
	return models.Item{
		ID:      id,
		Vault:   testVault,
		Origin:  models.Origin{Node: n.id, SeqNr: seqnr},
		Payload: payload,
	}
}

// certItem is the node's self-certificate item at the given sequence number.
func (n *testNode) certItem(t *testing.T, suite crypto.Suite, id string, seqnr uint64) models.Item {
	t.Helper()
	return n.sign(t, suite, n.item(id, seqnr, models.NewCertificatePayload(n.cert)))
}

// envItem is a minimal encrypted-payload item; validator tests never open it.
func (n *testNode) envItem(t *testing.T, suite crypto.Suite, id string, seqnr uint64) models.Item {
	t.Helper()
	env := models.EncryptedPayload{
		Algo:    models.CipherAESCBCPKCS5,
		IV:      base64.StdEncoding.EncodeToString(make([]byte, 16)),
		Blob:    base64.StdEncoding.EncodeToString(make([]byte, 16)),
		KeyAlgo: models.KeyWrapRSAOAEP,
		Keys:    map[string]string{n.id: "AA=="},
	}
	return n.sign(t, suite, n.item(id, seqnr, models.NewEncryptedPayload(env)))
}

func newTestValidator() (crypto.Suite, *registry.Registry, *sequencer.Sequencer, *Validator) {
	suite := crypto.NewTestSuite()
	reg := registry.New(testVault, logger.Nop())
	seq := sequencer.New()
	return suite, reg, seq, New(testVault, suite, reg, seq, logger.Nop())
}

func TestAccept_BootstrapCertificate(t *testing.T) {
	suite, reg, seq, v := newTestValidator()
	a := newTestNode(t, suite, "node-a")

	require.NoError(t, v.Accept(a.certItem(t, suite, "item-1", 1)))

	assert.True(t, reg.Bootstrapped())
	assert.True(t, reg.Known("node-a"))
	assert.True(t, seq.Seen("node-a", 1))
}

func TestAccept_BootstrapMustBeSelfCertificate(t *testing.T) {
	suite, reg, _, v := newTestValidator()
	a := newTestNode(t, suite, "node-a")
	b := newTestNode(t, suite, "node-b")

	// A certificate for someone else cannot establish the trust root.
	foreign := a.sign(t, suite, a.item("item-1", 1, models.NewCertificatePayload(b.cert)))
	require.ErrorIs(t, v.Accept(foreign), ErrUnknownSigner)
	assert.False(t, reg.Bootstrapped())

	// Nor can a non-certificate payload.
	require.ErrorIs(t, v.Accept(a.envItem(t, suite, "item-2", 1)), ErrUnknownSigner)
	assert.False(t, reg.Bootstrapped())
}

func TestAccept_BootstrapRequiresValidSelfSignature(t *testing.T) {
	suite, reg, _, v := newTestValidator()
	a := newTestNode(t, suite, "node-a")
	b := newTestNode(t, suite, "node-b")

	// node-b's key signs a certificate claiming node-a's key set.
	forged := a.item("item-1", 1, models.NewCertificatePayload(a.cert))
	forged = b.sign(t, suite, forged)

	require.ErrorIs(t, v.Accept(forged), ErrSignatureInvalid)
	assert.False(t, reg.Bootstrapped())
}

func TestAccept_SignatureBitFlip(t *testing.T) {
	suite, _, _, v := newTestValidator()
	a := newTestNode(t, suite, "node-a")
	require.NoError(t, v.Accept(a.certItem(t, suite, "item-1", 1)))

	// Any post-signing mutation of covered fields must invalidate.
	item := a.envItem(t, suite, "item-2", 2)
	item.ID = "item-2-tampered"

	require.ErrorIs(t, v.Accept(item), ErrSignatureInvalid)
}

func TestAccept_Replay(t *testing.T) {
	suite, _, _, v := newTestValidator()
	a := newTestNode(t, suite, "node-a")

	require.NoError(t, v.Accept(a.certItem(t, suite, "item-1", 1)))

	// Same (node, seqnr) again, different content.
	err := v.Accept(a.envItem(t, suite, "item-2", 1))
	require.ErrorIs(t, err, sequencer.ErrReplayedSequence)
}

func TestAccept_AdmittedNodeMayAuthor(t *testing.T) {
	suite, reg, _, v := newTestValidator()
	a := newTestNode(t, suite, "node-a")
	b := newTestNode(t, suite, "node-b")

	require.NoError(t, v.Accept(a.certItem(t, suite, "item-1", 1)))

	// node-a vouches for node-b.
	admit := a.sign(t, suite, a.item("item-2", 2, models.NewCertificatePayload(b.cert)))
	require.NoError(t, v.Accept(admit))
	assert.True(t, reg.Known("node-b"))

	// node-b can now author under its own signature.
	require.NoError(t, v.Accept(b.envItem(t, suite, "item-3", 1)))
}

func TestAccept_UnknownSignerAfterBootstrap(t *testing.T) {
	suite, _, _, v := newTestValidator()
	a := newTestNode(t, suite, "node-a")
	b := newTestNode(t, suite, "node-b")

	require.NoError(t, v.Accept(a.certItem(t, suite, "item-1", 1)))

	// node-b was never admitted; even its self-certificate is rejected.
	err := v.Accept(b.certItem(t, suite, "item-2", 1))
	require.ErrorIs(t, err, ErrUnknownSigner)
}

func TestAccept_SyncOnlyRestriction(t *testing.T) {
	suite, reg, _, v := newTestValidator()
	a := newTestNode(t, suite, "node-a")
	b := newTestNode(t, suite, "node-b")
	b.cert.Restrictions = &models.Restrictions{SyncOnly: true}

	require.NoError(t, v.Accept(a.certItem(t, suite, "item-1", 1)))
	require.NoError(t, v.Accept(a.sign(t, suite, a.item("item-2", 2, models.NewCertificatePayload(b.cert)))))
	require.True(t, reg.Known("node-b"))

	// Content from a sync-only node is rejected...
	err := v.Accept(b.envItem(t, suite, "item-3", 1))
	require.ErrorIs(t, err, ErrRestricted)

	// ...but its own certificate rotation is not.
	require.NoError(t, v.Accept(b.certItem(t, suite, "item-4", 2)))
}

func TestAccept_SyncOnlyCannotAdmitOthers(t *testing.T) {
	suite, reg, seq, v := newTestValidator()
	a := newTestNode(t, suite, "node-a")
	b := newTestNode(t, suite, "node-b")
	c := newTestNode(t, suite, "node-c")
	b.cert.Restrictions = &models.Restrictions{SyncOnly: true}

	require.NoError(t, v.Accept(a.certItem(t, suite, "item-1", 1)))
	require.NoError(t, v.Accept(a.sign(t, suite, a.item("item-2", 2, models.NewCertificatePayload(b.cert)))))

	// A sync-only node vouching for a third node would expand the trust
	// set; the certificate is rejected and node-c stays unknown.
	admit := b.sign(t, suite, b.item("item-3", 1, models.NewCertificatePayload(c.cert)))
	err := v.Accept(admit)
	require.ErrorIs(t, err, ErrRestricted)
	assert.False(t, reg.Known("node-c"))
	assert.False(t, seq.Seen("node-b", 1))

	// An unrestricted member may still admit node-c.
	require.NoError(t, v.Accept(a.sign(t, suite, a.item("item-4", 3, models.NewCertificatePayload(c.cert)))))
	assert.True(t, reg.Known("node-c"))
}

func TestAccept_RotationKeepsOldItemsVerifying(t *testing.T) {
	suite, _, _, v := newTestValidator()
	a := newTestNode(t, suite, "node-a")
	require.NoError(t, v.Accept(a.certItem(t, suite, "item-1", 1)))

	// An item signed under the pre-rotation key.
	oldItem := a.envItem(t, suite, "item-2", 2)

	// Rotate: new key set, rotation item signed under the old key.
	rotated := newTestNode(t, suite, "node-a")
	rotation := a.sign(t, suite, a.item("item-3", 3, models.NewCertificatePayload(rotated.cert)))
	require.NoError(t, v.Accept(rotation))

	// Pre-rotation signatures keep verifying via the key history.
	require.NoError(t, v.Accept(oldItem))

	// And the new key signs subsequent items.
	require.NoError(t, v.Accept(rotated.envItem(t, suite, "item-4", 4)))
}

func TestValidate_Structure(t *testing.T) {
	suite, _, _, v := newTestValidator()
	a := newTestNode(t, suite, "node-a")

	base := func() models.Item { return a.certItem(t, suite, "item-1", 1) }

	tests := []struct {
		name   string
		mutate func(*models.Item)
	}{
		{"empty id", func(i *models.Item) { i.ID = "" }},
		{"empty vault", func(i *models.Item) { i.Vault = "" }},
		{"foreign vault", func(i *models.Item) { i.Vault = "vault-2" }},
		{"empty origin node", func(i *models.Item) { i.Origin.Node = "" }},
		{"zero seqnr", func(i *models.Item) { i.Origin.SeqNr = 0 }},
		{"missing signature", func(i *models.Item) { i.Signature = nil }},
		{"unsupported algorithm", func(i *models.Item) { i.Signature.Algo = "md5" }},
		{"certificate without body", func(i *models.Item) { i.Payload.Certificate = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := base()
			tt.mutate(&item)
			assert.ErrorIs(t, v.Validate(item), ErrCorruptRecord)
		})
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	suite, reg, seq, v := newTestValidator()
	a := newTestNode(t, suite, "node-a")

	item := a.certItem(t, suite, "item-1", 1)
	require.NoError(t, v.Validate(item))

	assert.False(t, reg.Bootstrapped())
	assert.False(t, seq.Seen("node-a", 1))

	// The same item is still acceptable afterwards.
	require.NoError(t, v.Accept(item))
}

func TestAccept_UnknownPayloadTypeReplicates(t *testing.T) {
	suite, _, _, v := newTestValidator()
	a := newTestNode(t, suite, "node-a")
	require.NoError(t, v.Accept(a.certItem(t, suite, "item-1", 1)))

	// A payload kind from a future build: signed, unreadable, acceptable.
	item := a.item("item-2", 2, models.Payload{
		Type: models.PayloadUnknown,
		Raw:  []byte(`{"_type":"attachment","blob":"AAAA"}`),
	})
	item = a.sign(t, suite, item)

	require.NoError(t, v.Accept(item))
}
