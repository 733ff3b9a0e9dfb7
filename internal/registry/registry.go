// Package registry maintains the trust root of one vault: the mapping from
// node identity to certified public keys, built by folding accepted
// Certificate items from the replicated stream.
//
// Certificates are append-mostly. A later certificate for a known node is a
// key rotation: it supersedes the active keys but the full history is
// retained so signatures made under prior keys keep verifying.
package registry

import (
	"crypto/rsa"
	"fmt"
	"sort"
	"sync"

	"github.com/vaultmesh/vaultmesh/internal/crypto"
	"github.com/vaultmesh/vaultmesh/internal/logger"
	"github.com/vaultmesh/vaultmesh/models"
)

// Registry is the per-vault certificate fold. Construction happens on vault
// load, teardown on vault unload; instances are passed by reference into
// the validator and codec rather than living as ambient globals.
type Registry struct {
	mu    sync.RWMutex
	vault string
	log   *logger.Logger

	// certs holds the full certificate history per node, oldest first.
	// The last element is the active certificate.
	certs map[string][]models.Certificate

	bootstrapped bool
}

// New constructs an empty Registry for the given vault.
func New(vault string, log *logger.Logger) *Registry {
	return &Registry{
		vault: vault,
		log:   log,
		certs: make(map[string][]models.Certificate),
	}
}

// Bootstrapped reports whether the vault's trust root has been established.
func (r *Registry) Bootstrapped() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bootstrapped
}

// Bootstrap installs the designated first certificate of a new vault. Trust
// for this one record is established out of band by the pairing process, so
// it is accepted without an existing signer — exactly once.
func (r *Registry) Bootstrap(cert models.Certificate) error {
	if err := checkCertificate(cert); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bootstrapped {
		return ErrAlreadyBootstrapped
	}

	r.certs[cert.Node] = []models.Certificate{cert}
	r.bootstrapped = true

	r.log.Info().
		Str("vault", r.vault).
		Str("node", cert.Node).
		Str("name", cert.Name).
		Msg("vault trust root established")

	return nil
}

// Register folds a certificate whose carrying item was signed by issuer.
// The issuer must already be trusted; a certificate introduced by an
// unknown node is rejected, not crashed on. Registering a new key set for
// a known node supersedes the active certificate while keeping history.
func (r *Registry) Register(cert models.Certificate, issuer string) error {
	if err := checkCertificate(cert); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, trusted := r.certs[issuer]; !trusted {
		return fmt.Errorf("%w: certificate for %s issued by %s", ErrUnknownSigner, cert.Node, issuer)
	}

	history := r.certs[cert.Node]
	if len(history) > 0 && sameCertificate(history[len(history)-1], cert) {
		// Re-delivered certificate, not an update.
		return nil
	}

	r.certs[cert.Node] = append(history, cert)

	// Superseding a certificate is a distinguishable trust event, not a
	// silent overwrite.
	switch {
	case len(history) == 0:
		r.log.Info().
			Str("vault", r.vault).
			Str("node", cert.Node).
			Str("name", cert.Name).
			Msg("node certified")
	case history[len(history)-1].Keys != cert.Keys:
		r.log.Warn().
			Str("vault", r.vault).
			Str("node", cert.Node).
			Int("generation", len(history)+1).
			Msg("node keys rotated")
	default:
		r.log.Warn().
			Str("vault", r.vault).
			Str("node", cert.Node).
			Bool("sync_only", cert.IsSyncOnly()).
			Msg("node certificate updated")
	}

	return nil
}

// sameCertificate reports whether two certificates carry identical content.
// A certificate differing in any field, not just its key set, supersedes
// the active one: imposing sync-only on a member must not require a key
// rotation to take effect.
func sameCertificate(a, b models.Certificate) bool {
	return a.Node == b.Node &&
		a.Name == b.Name &&
		a.Keys == b.Keys &&
		a.IsSyncOnly() == b.IsSyncOnly()
}

// Lookup returns the active certificate of a node.
func (r *Registry) Lookup(node string) (models.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	history, ok := r.certs[node]
	if !ok || len(history) == 0 {
		return models.Certificate{}, fmt.Errorf("%w: %s", ErrNodeNotFound, node)
	}

	return history[len(history)-1], nil
}

// Known reports whether the node has any accepted certificate.
func (r *Registry) Known(node string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.certs[node]) > 0
}

// SignKeys returns every signing key the node has ever certified, newest
// first. Verification of historical items walks this list.
func (r *Registry) SignKeys(node string) ([]*rsa.PublicKey, error) {
	r.mu.RLock()
	history := r.certs[node]
	r.mu.RUnlock()

	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, node)
	}

	keys := make([]*rsa.PublicKey, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		pub, err := crypto.DecodePublicKey(history[i].Keys.Sign.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptCertificate, err)
		}
		keys = append(keys, pub)
	}

	return keys, nil
}

// Recipients returns the active certificate of every known node, ordered by
// node identity. This is the recipient set for sealing new envelopes.
func (r *Registry) Recipients() []models.Certificate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]string, 0, len(r.certs))
	for node := range r.certs {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	recipients := make([]models.Certificate, 0, len(nodes))
	for _, node := range nodes {
		history := r.certs[node]
		recipients = append(recipients, history[len(history)-1])
	}

	return recipients
}

// checkCertificate validates the structural invariants of a certificate,
// including that every carried public key parses.
func checkCertificate(cert models.Certificate) error {
	if cert.Node == "" {
		return fmt.Errorf("%w: empty node identity", ErrCorruptCertificate)
	}

	for _, key := range []models.PublicKey{cert.Keys.Sign, cert.Keys.Encrypt, cert.Keys.Auth} {
		if _, err := crypto.DecodePublicKey(key.Key); err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptCertificate, err)
		}
	}

	return nil
}
