// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The VaultMesh Authors

package config

import (
	"time"
)

// Config is the top-level configuration container for the sync core. It is
// populated by merging values from defaults, environment variables, and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type Config struct {
	// Storage holds the device-local database settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// KDF tunes the password-based key derivation calibration.
	KDF KDF `envPrefix:"KDF_"`

	// Engine tunes the per-vault replication engine.
	Engine Engine `envPrefix:"ENGINE_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged underneath the
	// values already loaded from environment variables.
	// Populated via the CONFIG environment variable.
	JSONFilePath string `env:"CONFIG"`
}

// Storage holds the sqlite settings of the device-local store.
type Storage struct {
	// DSN is the sqlite database path. ":memory:" keeps everything
	// in-process, useful for tests.
	DSN string `env:"DSN"`
}

// KDF tunes iteration calibration for password-based key derivation.
type KDF struct {
	// TargetMin and TargetMax bound the latency window one derivation
	// should land in on this host.
	TargetMin time.Duration `env:"TARGET_MIN"`
	TargetMax time.Duration `env:"TARGET_MAX"`

	// MinIterations is the hard floor regardless of how fast the host
	// measures.
	MinIterations int `env:"MIN_ITERATIONS"`
}

// Engine tunes the replication engine of each loaded vault.
type Engine struct {
	// OrphanBuffer caps how many out-of-causal-order versions may wait
	// for their parent.
	OrphanBuffer int `env:"ORPHAN_BUFFER"`

	// QueueDepth caps how many incoming batches the apply queue holds.
	QueueDepth int `env:"QUEUE_DEPTH"`
}

// defaults returns the configuration used when nothing overrides it.
func defaults() *Config {
	return &Config{
		Storage: Storage{
			DSN: "vaultmesh.db",
		},
		KDF: KDF{
			TargetMin:     100 * time.Millisecond,
			TargetMax:     200 * time.Millisecond,
			MinIterations: 4096,
		},
		Engine: Engine{
			OrphanBuffer: 1024,
			QueueDepth:   64,
		},
	}
}
