// Package sync composes the core into one vault's replication engine:
// incoming items flow validator → sequencer → envelope → version graph,
// outgoing versions flow envelope → canonicalizer → signature → item log.
//
// All mutation of a vault's state is serialized by a single writer; the
// engine is safe to feed from any number of transport goroutines.
package sync

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	stdsync "sync"

	"github.com/google/uuid"

	"github.com/vaultmesh/vaultmesh/internal/canonical"
	"github.com/vaultmesh/vaultmesh/internal/crypto"
	"github.com/vaultmesh/vaultmesh/internal/envelope"
	"github.com/vaultmesh/vaultmesh/internal/graph"
	"github.com/vaultmesh/vaultmesh/internal/keymgr"
	"github.com/vaultmesh/vaultmesh/internal/logger"
	"github.com/vaultmesh/vaultmesh/internal/registry"
	"github.com/vaultmesh/vaultmesh/internal/sequencer"
	"github.com/vaultmesh/vaultmesh/internal/validator"
	"github.com/vaultmesh/vaultmesh/models"
)

// Options tunes an engine instance. Zero values fall back to defaults.
type Options struct {
	// OrphanBuffer caps how many out-of-causal-order versions may wait
	// for their parent.
	OrphanBuffer int

	// QueueDepth caps how many incoming batches Enqueue may hold before
	// the transport has to retry.
	QueueDepth int
}

const (
	defaultOrphanBuffer = 1024
	defaultQueueDepth   = 64
)

// Engine is one vault's trust and synchronization core. Construction
// happens on vault load, teardown on vault unload; nothing in it is a
// process-wide global, so multiple vaults coexist in one process.
type Engine struct {
	// mu enforces the single-writer-per-vault discipline.
	mu stdsync.Mutex

	vault *models.Vault
	keys  *keymgr.Manager
	suite crypto.Suite
	log   *logger.Logger

	registry  *registry.Registry
	seq       *sequencer.Sequencer
	validator *validator.Validator
	graph     *graph.Graph
	codec     *envelope.Codec
	store     ItemStore

	queue chan []models.Item
}

// NewEngine wires the core components for one vault. The key manager may be
// locked; encrypted payloads are then stored without folding until the next
// Reload after unlock.
func NewEngine(keys *keymgr.Manager, suite crypto.Suite, store ItemStore, opts Options, log *logger.Logger) *Engine {
	if opts.OrphanBuffer <= 0 {
		opts.OrphanBuffer = defaultOrphanBuffer
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = defaultQueueDepth
	}

	vault := keys.Vault()
	reg := registry.New(vault.ID, log)
	seq := sequencer.New()

	return &Engine{
		vault:     vault,
		keys:      keys,
		suite:     suite,
		log:       log,
		registry:  reg,
		seq:       seq,
		validator: validator.New(vault.ID, suite, reg, seq, log),
		graph:     graph.New(opts.OrphanBuffer, log),
		codec:     envelope.NewCodec(suite),
		store:     store,
		queue:     make(chan []models.Item, opts.QueueDepth),
	}
}

// Keys exposes the vault key manager for the unlock/lock surface.
func (e *Engine) Keys() *keymgr.Manager { return e.keys }

// Registry exposes the certificate registry for read access.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Graph exposes the version graph for read access (tips, forks, lineage).
func (e *Engine) Graph() *graph.Graph { return e.graph }

// NodeID returns this device's identity within the vault.
func (e *Engine) NodeID() string { return e.vault.Node }

// ApplyBatch validates and folds a batch of incoming items in admissible
// order. One result per input item; a malformed item never aborts the rest
// of the batch.
func (e *Engine) ApplyBatch(ctx context.Context, items []models.Item) []Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	ordered := e.seq.Order(items)
	results := make([]Result, 0, len(ordered))

	for _, item := range ordered {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{ItemID: item.ID, Status: StatusRejected, Err: err})
			continue
		}
		results = append(results, e.applyLocked(ctx, item, true))
	}

	return results
}

// applyLocked runs one item through the pipeline. persist=false is the
// replay path, which folds already-stored items without rewriting them.
func (e *Engine) applyLocked(ctx context.Context, item models.Item, persist bool) Result {
	// Idempotent acceptance: redelivery of an accepted item is a no-op.
	if e.seq.Seen(item.Origin.Node, item.Origin.SeqNr) {
		return Result{ItemID: item.ID, Status: StatusDuplicate}
	}

	if err := e.validator.Accept(item); err != nil {
		e.log.Debug().
			Str("vault", e.vault.ID).
			Str("item", item.ID).
			Err(err).
			Msg("item rejected")
		return Result{ItemID: item.ID, Status: StatusRejected, Err: err}
	}

	if persist {
		if err := e.store.SaveItem(ctx, item); err != nil {
			// The item is accepted in memory; persistence failure is
			// surfaced but never un-accepts it.
			e.log.Error().
				Str("vault", e.vault.ID).
				Str("item", item.ID).
				Err(err).
				Msg("failed to persist accepted item")
			return Result{ItemID: item.ID, Status: StatusStored, Err: err}
		}
	}

	return e.foldLocked(item)
}

// foldLocked interprets an accepted item's payload.
func (e *Engine) foldLocked(item models.Item) Result {
	switch item.Payload.Type {
	case models.PayloadCertificate:
		// Already folded into the registry by the validator.
		return Result{ItemID: item.ID, Status: StatusApplied}

	case models.PayloadEncrypted:
		return e.foldEncrypted(item)

	default:
		// Unknown payload kinds replicate without interpretation.
		return Result{ItemID: item.ID, Status: StatusStored}
	}
}

// foldEncrypted decrypts an envelope and inserts the carried version into
// the graph. A locked vault, a missing recipient entry, or an unreadable
// envelope leaves the item stored but unfolded.
func (e *Engine) foldEncrypted(item models.Item) Result {
	priv, err := e.keys.PrivateKey(models.KeyEncrypt)
	if err != nil {
		// Locked: fold happens on the next Reload after unlock.
		return Result{ItemID: item.ID, Status: StatusStored, Err: err}
	}

	plaintext, err := e.codec.Open(*item.Payload.Encrypted, e.vault.Node, priv)
	if err != nil {
		if !errors.Is(err, envelope.ErrNotAuthorizedRecipient) {
			e.log.Warn().
				Str("vault", e.vault.ID).
				Str("item", item.ID).
				Err(err).
				Msg("accepted item has unreadable envelope")
		}
		return Result{ItemID: item.ID, Status: StatusStored, Err: err}
	}

	var ver models.Version
	if err = json.Unmarshal(plaintext, &ver); err != nil {
		return Result{ItemID: item.ID, Status: StatusStored, Err: fmt.Errorf("decode version: %w", err)}
	}

	return e.insertVersion(item, ver)
}

// insertVersion folds a decrypted version and maps graph outcomes onto
// apply statuses.
func (e *Engine) insertVersion(item models.Item, ver models.Version) Result {
	status, err := e.graph.Insert(graph.Record{
		VersionID: item.ID,
		Origin:    item.Origin.Node,
		Version:   ver,
	})

	switch {
	case err == nil && status == graph.Applied, err == nil && status == graph.Duplicate:
		return Result{ItemID: item.ID, Status: StatusApplied}
	case errors.Is(err, graph.ErrOrphanVersion):
		return Result{ItemID: item.ID, Status: StatusDeferred, Err: err}
	default:
		return Result{ItemID: item.ID, Status: StatusStored, Err: err}
	}
}

// Author seals, signs, sequences and locally folds a new version produced
// by the application. The returned item is what the transport replicates to
// peers. Requires an unlocked vault and an established trust root.
func (e *Engine) Author(ctx context.Context, ver models.Version) (models.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.registry.Bootstrapped() {
		return models.Item{}, ErrNotBootstrapped
	}

	plaintext, err := json.Marshal(ver)
	if err != nil {
		return models.Item{}, fmt.Errorf("encode version: %w", err)
	}

	env, err := e.codec.Seal(plaintext, e.registry.Recipients())
	if err != nil {
		return models.Item{}, err
	}

	item, err := e.authorItemLocked(ctx, models.NewEncryptedPayload(env))
	if err != nil {
		return models.Item{}, err
	}

	if res := e.insertVersion(item, ver); res.Err != nil {
		e.log.Warn().
			Str("vault", e.vault.ID).
			Str("item", item.ID).
			Err(res.Err).
			Msg("authored version not folded")
	}

	return item, nil
}

// AuthorCertificate publishes this node's certificate under the given
// device name. On a brand-new vault this is the bootstrap path that
// establishes the trust root; on an existing membership it re-issues (or
// rotates) the node's keys.
func (e *Engine) AuthorCertificate(ctx context.Context, deviceName string) (models.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cert, err := e.keys.Certificate(deviceName)
	if err != nil {
		return models.Item{}, err
	}

	return e.authorItemLocked(ctx, models.NewCertificatePayload(cert))
}

// Admit publishes the certificate of another node, vouched for by this
// node's signature. The certificate itself comes out of the pairing
// exchange; Admit is what makes the new member visible to every peer and
// adds it to the recipient set of future envelopes.
func (e *Engine) Admit(ctx context.Context, cert models.Certificate) (models.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.registry.Bootstrapped() {
		return models.Item{}, ErrNotBootstrapped
	}

	return e.authorItemLocked(ctx, models.NewCertificatePayload(cert))
}

// authorItemLocked assembles, signs and accepts a locally authored item
// with this node's next sequence number.
func (e *Engine) authorItemLocked(ctx context.Context, payload models.Payload) (models.Item, error) {
	priv, err := e.keys.PrivateKey(models.KeySign)
	if err != nil {
		return models.Item{}, err
	}

	item := models.Item{
		ID:    uuid.NewString(),
		Vault: e.vault.ID,
		Origin: models.Origin{
			Node:  e.vault.Node,
			SeqNr: e.seq.Next(e.vault.Node),
		},
		Payload: payload,
	}

	data, err := canonical.Marshal(item.Unsigned())
	if err != nil {
		return models.Item{}, err
	}

	sig, err := e.suite.Sign(priv, data)
	if err != nil {
		return models.Item{}, err
	}
	item.Signature = &models.Signature{
		Algo: models.SignatureRSAPSSSHA256,
		Blob: base64.StdEncoding.EncodeToString(sig),
	}

	// The authored item passes through the same acceptance gate as a
	// received one, so local and remote state can never diverge.
	if err = e.validator.Accept(item); err != nil {
		return models.Item{}, err
	}

	if err = e.store.SaveItem(ctx, item); err != nil {
		return models.Item{}, err
	}

	e.log.Info().
		Str("vault", e.vault.ID).
		Str("item", item.ID).
		Uint64("seqnr", item.Origin.SeqNr).
		Str("payload", string(payload.Type)).
		Msg("item authored")

	return item, nil
}

// Reload rebuilds the in-memory state from the persisted item log: fresh
// registry, sequencer and graph, then a replay of every stored item through
// the same fold path. Called on vault load and after unlock to fold items
// that were stored while the vault was locked.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	items, err := e.store.GetItems(ctx, e.vault.ID)
	if err != nil {
		return fmt.Errorf("load item log: %w", err)
	}

	e.registry = registry.New(e.vault.ID, e.log)
	e.seq = sequencer.New()
	e.validator = validator.New(e.vault.ID, e.suite, e.registry, e.seq, e.log)
	e.graph = graph.New(e.graph.Cap(), e.log)

	replayed := 0
	for _, item := range e.seq.Order(items) {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := e.applyLocked(ctx, item, false)
		if res.Status == StatusRejected {
			// A stored item that no longer validates is corruption of
			// the local log, not a reason to abort the replay.
			e.log.Error().
				Str("vault", e.vault.ID).
				Str("item", item.ID).
				Err(res.Err).
				Msg("persisted item failed replay")
			continue
		}
		replayed++
	}

	e.log.Info().
		Str("vault", e.vault.ID).
		Int("items", replayed).
		Int("orphans", e.graph.Orphans()).
		Msg("vault state reloaded")

	return nil
}
