// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The VaultMesh Authors

package config

import "fmt"

// validate checks that the final merged [Config] satisfies all invariants
// before it is used at startup.
func (cfg *Config) validate() error {
	if cfg.Storage.DSN == "" {
		return fmt.Errorf("%w: empty DSN", ErrInvalidStorageConfigs)
	}

	if cfg.KDF.TargetMin <= 0 || cfg.KDF.TargetMax <= 0 {
		return fmt.Errorf("%w: non-positive target window", ErrInvalidKDFConfigs)
	}
	if cfg.KDF.TargetMin > cfg.KDF.TargetMax {
		return fmt.Errorf("%w: target window min %s exceeds max %s",
			ErrInvalidKDFConfigs, cfg.KDF.TargetMin, cfg.KDF.TargetMax)
	}
	if cfg.KDF.MinIterations <= 0 {
		return fmt.Errorf("%w: non-positive iteration floor", ErrInvalidKDFConfigs)
	}

	if cfg.Engine.OrphanBuffer <= 0 || cfg.Engine.QueueDepth <= 0 {
		return fmt.Errorf("%w: non-positive buffer sizes", ErrInvalidEngineConfigs)
	}

	return nil
}
