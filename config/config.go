package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config carries the execution-engine settings that surround the write-set
// conversion layer: the conversion switches themselves, plus the batching
// and backpressure parameters of the executor feeding it.
type Config struct {
	DataDir string `toml:"DataDir"`

	// SlotMetadataEnabled controls whether newly created slots are stamped
	// with a deposit/creation-time record.
	SlotMetadataEnabled bool `toml:"SlotMetadataEnabled"`

	// LegacyModuleCreationAsModification keeps module publication under
	// older protocol rules shaped as a modification.
	LegacyModuleCreationAsModification bool `toml:"LegacyModuleCreationAsModification"`

	Batching     BatchingConfig     `toml:"Batching"`
	Backpressure BackpressureConfig `toml:"Backpressure"`
}

// BatchingConfig bounds the effect batches handed to the converter.
type BatchingConfig struct {
	PollIntervalMillis    uint64 `toml:"PollIntervalMillis"`
	MinNonEmptyIntervalMs uint64 `toml:"MinNonEmptyIntervalMillis"`
	MaxIntervalMillis     uint64 `toml:"MaxIntervalMillis"`
	SenderMaxBatchTxns    uint64 `toml:"SenderMaxBatchTxns"`
	SenderMaxBatchBytes   uint64 `toml:"SenderMaxBatchBytes"`
	SenderMaxTotalTxns    uint64 `toml:"SenderMaxTotalTxns"`
	SenderMaxTotalBytes   uint64 `toml:"SenderMaxTotalBytes"`
	ReceiverMaxBatchTxns  uint64 `toml:"ReceiverMaxBatchTxns"`
	ReceiverMaxBatchBytes uint64 `toml:"ReceiverMaxBatchBytes"`
	ReceiverMaxTotalTxns  uint64 `toml:"ReceiverMaxTotalTxns"`
	ReceiverMaxTotalBytes uint64 `toml:"ReceiverMaxTotalBytes"`
}

// BackpressureConfig throttles speculative execution when the converted
// backlog grows.
type BackpressureConfig struct {
	BacklogTxnLimit     uint64  `toml:"BacklogTxnLimit"`
	DecreaseDurationMs  uint64  `toml:"DecreaseDurationMillis"`
	IncreaseDurationMs  uint64  `toml:"IncreaseDurationMillis"`
	DecreaseFraction    float64 `toml:"DecreaseFraction"`
	DynamicMinTxnPerSec uint64  `toml:"DynamicMinTxnPerSec"`
	DynamicMaxTxnPerSec uint64  `toml:"DynamicMaxTxnPerSec"`
}

// Default returns the tuned defaults.
func Default() *Config {
	return &Config{
		DataDir:             "./data",
		SlotMetadataEnabled: true,
		Batching: BatchingConfig{
			PollIntervalMillis:    25,
			MinNonEmptyIntervalMs: 200,
			MaxIntervalMillis:     250,
			SenderMaxBatchTxns:    250,
			SenderMaxBatchBytes:   1024 * 1024,
			SenderMaxTotalTxns:    2000,
			SenderMaxTotalBytes:   4 * 1024 * 1024,
			ReceiverMaxBatchTxns:  250,
			ReceiverMaxBatchBytes: 1024 * 1024,
			ReceiverMaxTotalTxns:  2000,
			ReceiverMaxTotalBytes: 4 * 1024 * 1024,
		},
		Backpressure: BackpressureConfig{
			BacklogTxnLimit:     20000,
			DecreaseDurationMs:  1000,
			IncreaseDurationMs:  1000,
			DecreaseFraction:    0.5,
			DynamicMinTxnPerSec: 160,
			DynamicMaxTxnPerSec: 2000,
		},
	}
}

// Load reads the configuration at path, filling unset sections with
// defaults. A missing file yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0])
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
