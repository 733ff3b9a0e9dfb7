package config

import "errors"

// Validation errors returned by [Config.validate] when the merged
// configuration is incomplete or inconsistent.
var (
	// ErrInvalidStorageConfigs indicates invalid storage settings, for
	// example an empty DSN.
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")

	// ErrInvalidKDFConfigs indicates an inconsistent KDF calibration
	// window or a non-positive iteration floor.
	ErrInvalidKDFConfigs = errors.New("invalid kdf configuration")

	// ErrInvalidEngineConfigs indicates non-positive engine buffer
	// sizes.
	ErrInvalidEngineConfigs = errors.New("invalid engine configuration")
)
