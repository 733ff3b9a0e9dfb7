// Package vaultmesh is the trust and synchronization core of a
// multi-device, end-to-end encrypted password vault. Devices ("nodes")
// exchange signed, envelope-encrypted items and converge on the same
// per-secret version graph without trusting any intermediary with
// plaintext or signing authority.
//
// This package is the composition root: it loads configuration, opens the
// device-local store and hands out one replication engine per vault.
// Network transport, pairing and UI are external collaborators.
package vaultmesh

import (
	"context"
	"fmt"

	"github.com/vaultmesh/vaultmesh/internal/config"
	"github.com/vaultmesh/vaultmesh/internal/crypto"
	"github.com/vaultmesh/vaultmesh/internal/keymgr"
	"github.com/vaultmesh/vaultmesh/internal/logger"
	"github.com/vaultmesh/vaultmesh/internal/store"
	"github.com/vaultmesh/vaultmesh/internal/sync"
	"github.com/vaultmesh/vaultmesh/internal/workers"
)

// App owns the process-wide pieces shared by all vaults on this device:
// configuration, the sqlite store and the crypto suite.
type App struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *store.DB
	items  store.ItemRepository
	vaults store.VaultRepository
	suite  crypto.Suite
}

// Open loads configuration, connects the device-local database and
// prepares the crypto suite.
func Open(ctx context.Context, log *logger.Logger) (*App, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := store.NewConnectSQLite(ctx, cfg.Storage.DSN, log)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:    cfg,
		log:    log,
		db:     db,
		items:  store.NewItemRepository(db, log),
		vaults: store.NewVaultRepository(db, log),
		suite:  crypto.NewSuiteWithKDF(cfg.KDF.TargetMin, cfg.KDF.TargetMax, cfg.KDF.MinIterations),
	}, nil
}

// Close releases the database connection. Engines handed out by this App
// must not be used afterwards.
func (a *App) Close() error {
	return a.db.Close()
}

// CreateVault generates a brand-new vault protected by password, persists
// it, publishes the founding node's bootstrap certificate and returns the
// vault's replication engine. The engine is unlocked and ready to author.
func (a *App) CreateVault(ctx context.Context, name, deviceName, password string) (*sync.Engine, error) {
	vault, err := keymgr.CreateVault(ctx, a.suite, name, password)
	if err != nil {
		return nil, err
	}

	if err = a.vaults.SaveVault(ctx, *vault); err != nil {
		return nil, err
	}

	keys := keymgr.NewManager(a.suite, vault)
	if err = keys.Unlock(ctx, password); err != nil {
		return nil, err
	}

	engine := a.newEngine(keys)
	if _, err = engine.AuthorCertificate(ctx, deviceName); err != nil {
		return nil, err
	}

	return engine, nil
}

// LoadVault opens an existing vault in the LOCKED state and replays its
// item log. Encrypted history folds in after the caller unlocks the
// engine's key manager and calls Reload again.
func (a *App) LoadVault(ctx context.Context, id string) (*sync.Engine, error) {
	vault, err := a.vaults.GetVault(ctx, id)
	if err != nil {
		return nil, err
	}

	engine := a.newEngine(keymgr.NewManager(a.suite, &vault))
	if err = engine.Reload(ctx); err != nil {
		return nil, err
	}

	return engine, nil
}

// Run blocks, draining the apply queues of the given engines until ctx is
// cancelled. Transports feed the engines via Enqueue from any goroutine.
func (a *App) Run(ctx context.Context, engines ...*sync.Engine) {
	group := workers.New()
	for _, engine := range engines {
		group.Add(engine.Worker())
	}
	group.Run(ctx)
}

func (a *App) newEngine(keys *keymgr.Manager) *sync.Engine {
	return sync.NewEngine(keys, a.suite, a.items, sync.Options{
		OrphanBuffer: a.cfg.Engine.OrphanBuffer,
		QueueDepth:   a.cfg.Engine.QueueDepth,
	}, a.log)
}
