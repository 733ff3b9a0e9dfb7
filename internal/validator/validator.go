// Package validator decides whether an incoming replicated item enters the
// vault's accepted set. Every item is checked structurally, against the
// replication sequence, and cryptographically against the certificate
// registry before anything downstream sees it.
//
// Acceptance is monotonic: once accepted, an item is never retracted. A
// later conflict between versions is resolved at the graph layer, not by
// un-accepting items.
package validator

import (
	"encoding/base64"
	"fmt"

	"github.com/vaultmesh/vaultmesh/internal/canonical"
	"github.com/vaultmesh/vaultmesh/internal/crypto"
	"github.com/vaultmesh/vaultmesh/internal/logger"
	"github.com/vaultmesh/vaultmesh/internal/registry"
	"github.com/vaultmesh/vaultmesh/internal/sequencer"
	"github.com/vaultmesh/vaultmesh/models"
)

// Validator checks incoming items for one vault. It owns no state of its
// own; the registry and sequencer are shared with the engine that feeds it.
type Validator struct {
	vault    string
	suite    crypto.Suite
	registry *registry.Registry
	seq      *sequencer.Sequencer
	log      *logger.Logger
}

// New constructs a Validator for the given vault.
func New(vault string, suite crypto.Suite, reg *registry.Registry, seq *sequencer.Sequencer, log *logger.Logger) *Validator {
	return &Validator{
		vault:    vault,
		suite:    suite,
		registry: reg,
		seq:      seq,
		log:      log,
	}
}

// Validate checks item without mutating any state. A nil return means the
// item is acceptable; otherwise the error wraps exactly one of the sentinel
// reasons in this package or [sequencer.ErrReplayedSequence].
func (v *Validator) Validate(item models.Item) error {
	if err := v.checkStructure(item); err != nil {
		return err
	}

	if v.seq.Seen(item.Origin.Node, item.Origin.SeqNr) {
		return fmt.Errorf("%w: %s/%d", sequencer.ErrReplayedSequence, item.Origin.Node, item.Origin.SeqNr)
	}

	return v.checkSignature(item)
}

// Accept validates item and, on success, commits its sequence number and
// folds certificate payloads into the registry. This is the only mutating
// entry point; the engine serializes calls per vault.
func (v *Validator) Accept(item models.Item) error {
	if err := v.Validate(item); err != nil {
		return err
	}

	if item.Payload.Type == models.PayloadCertificate {
		cert := *item.Payload.Certificate
		if !v.registry.Bootstrapped() {
			if err := v.registry.Bootstrap(cert); err != nil {
				return err
			}
		} else if err := v.registry.Register(cert, item.Origin.Node); err != nil {
			return err
		}
	}

	if err := v.seq.Commit(item.Origin.Node, item.Origin.SeqNr); err != nil {
		return err
	}

	v.log.Debug().
		Str("vault", v.vault).
		Str("item", item.ID).
		Str("node", item.Origin.Node).
		Uint64("seqnr", item.Origin.SeqNr).
		Str("payload", string(item.Payload.Type)).
		Msg("item accepted")

	return nil
}

// checkStructure verifies the schema-level invariants of an item before any
// cryptography runs.
func (v *Validator) checkStructure(item models.Item) error {
	switch {
	case item.ID == "":
		return fmt.Errorf("%w: empty item id", ErrCorruptRecord)
	case item.Vault == "":
		return fmt.Errorf("%w: empty vault", ErrCorruptRecord)
	case item.Vault != v.vault:
		return fmt.Errorf("%w: item for vault %s, validating %s", ErrCorruptRecord, item.Vault, v.vault)
	case item.Origin.Node == "":
		return fmt.Errorf("%w: empty origin node", ErrCorruptRecord)
	case item.Origin.SeqNr == 0:
		return fmt.Errorf("%w: sequence numbers start at 1", ErrCorruptRecord)
	case item.Signature == nil:
		return fmt.Errorf("%w: missing signature", ErrCorruptRecord)
	case item.Signature.Algo != models.SignatureRSAPSSSHA256:
		return fmt.Errorf("%w: unsupported signature algorithm %q", ErrCorruptRecord, item.Signature.Algo)
	}

	switch item.Payload.Type {
	case models.PayloadCertificate:
		if item.Payload.Certificate == nil {
			return fmt.Errorf("%w: certificate payload without certificate", ErrCorruptRecord)
		}
	case models.PayloadEncrypted:
		env := item.Payload.Encrypted
		if env == nil {
			return fmt.Errorf("%w: encrypted payload without envelope", ErrCorruptRecord)
		}
		if env.Blob == "" || env.IV == "" || len(env.Keys) == 0 {
			return fmt.Errorf("%w: incomplete envelope", ErrCorruptRecord)
		}
	case models.PayloadUnknown:
		// Unknown payload kinds are replicated but not interpreted. The
		// signature still has to verify, so the author is accountable
		// for content this build cannot read.
	default:
		return fmt.Errorf("%w: payload type %q", ErrCorruptRecord, item.Payload.Type)
	}

	return nil
}

// checkSignature recomputes the canonical form with the signature excluded
// and verifies it against the origin node's certified signing keys. The
// full key history is walked so items signed before a rotation keep
// verifying.
func (v *Validator) checkSignature(item models.Item) error {
	data, err := canonical.Marshal(item.Unsigned())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}

	sig, err := decodeSignature(item.Signature.Blob)
	if err != nil {
		return err
	}

	if !v.registry.Known(item.Origin.Node) {
		return v.checkBootstrap(item, data, sig)
	}

	keys, err := v.registry.SignKeys(item.Origin.Node)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}

	for _, pub := range keys {
		if v.suite.Verify(pub, data, sig) {
			return v.checkRestrictions(item)
		}
	}

	return fmt.Errorf("%w: item %s from %s", ErrSignatureInvalid, item.ID, item.Origin.Node)
}

// checkBootstrap handles the one trust-establishment exception: the first
// certificate of a new vault, introduced out of band by the pairing
// process, must at least be self-signed by the key set it declares.
func (v *Validator) checkBootstrap(item models.Item, data, sig []byte) error {
	if v.registry.Bootstrapped() ||
		item.Payload.Type != models.PayloadCertificate ||
		item.Payload.Certificate.Node != item.Origin.Node {
		return fmt.Errorf("%w: node %s", ErrUnknownSigner, item.Origin.Node)
	}

	pub, err := crypto.DecodePublicKey(item.Payload.Certificate.Keys.Sign.Key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}

	if !v.suite.Verify(pub, data, sig) {
		return fmt.Errorf("%w: bootstrap certificate for %s", ErrSignatureInvalid, item.Origin.Node)
	}

	return nil
}

// checkRestrictions enforces the sync-only rule: a sync-only node may
// replicate and rotate its own certificate, but its signature never
// authorizes vault content changes nor certificates for other nodes.
// Certifying a third node would let the restricted device expand the
// vault's trust set, which is exactly the authority it does not have.
func (v *Validator) checkRestrictions(item models.Item) error {
	cert, err := v.registry.Lookup(item.Origin.Node)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}

	if !cert.IsSyncOnly() {
		return nil
	}

	if item.Payload.Type != models.PayloadCertificate {
		return fmt.Errorf("%w: %s authored %s payload", ErrRestricted, item.Origin.Node, item.Payload.Type)
	}
	if item.Payload.Certificate.Node != item.Origin.Node {
		return fmt.Errorf("%w: %s certified %s", ErrRestricted, item.Origin.Node, item.Payload.Certificate.Node)
	}

	return nil
}

// decodeSignature base64-decodes the signature blob.
func decodeSignature(blob string) ([]byte, error) {
	sig, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: bad signature encoding: %w", ErrCorruptRecord, err)
	}
	return sig, nil
}
