package config

import "fmt"

// Validate applies the cross-field sanity checks. Sender-side batch limits
// must never exceed what receivers accept, otherwise well-formed batches
// get rejected in flight.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	b := cfg.Batching
	if b.SenderMaxBatchTxns > b.ReceiverMaxBatchTxns {
		return fmt.Errorf("batching: sender_max_batch_txns > receiver_max_batch_txns")
	}
	if b.SenderMaxBatchBytes > b.ReceiverMaxBatchBytes {
		return fmt.Errorf("batching: sender_max_batch_bytes > receiver_max_batch_bytes")
	}
	if b.SenderMaxTotalTxns > b.ReceiverMaxTotalTxns {
		return fmt.Errorf("batching: sender_max_total_txns > receiver_max_total_txns")
	}
	if b.SenderMaxTotalBytes > b.ReceiverMaxTotalBytes {
		return fmt.Errorf("batching: sender_max_total_bytes > receiver_max_total_bytes")
	}
	if b.SenderMaxBatchTxns == 0 || b.SenderMaxBatchBytes == 0 {
		return fmt.Errorf("batching: sender batch limits must be positive")
	}
	if b.MinNonEmptyIntervalMs < b.PollIntervalMillis {
		return fmt.Errorf("batching: min_non_empty_interval < poll_interval")
	}
	if b.MaxIntervalMillis < b.MinNonEmptyIntervalMs {
		return fmt.Errorf("batching: max_interval < min_non_empty_interval")
	}

	p := cfg.Backpressure
	if p.DecreaseFraction <= 0 || p.DecreaseFraction >= 1 {
		return fmt.Errorf("backpressure: decrease_fraction outside (0, 1)")
	}
	if p.DynamicMinTxnPerSec == 0 || p.DynamicMinTxnPerSec > p.DynamicMaxTxnPerSec {
		return fmt.Errorf("backpressure: dynamic_min_txn_per_s > dynamic_max_txn_per_s or zero")
	}
	if p.BacklogTxnLimit == 0 {
		return fmt.Errorf("backpressure: backlog_txn_limit must be positive")
	}
	return nil
}
