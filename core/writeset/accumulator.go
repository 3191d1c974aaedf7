package writeset

import (
	"fmt"

	"github.com/holiman/uint256"
)

// ConvertAccumulatorValue produces the write op for a legacy accumulator
// update. The value is serialized fixed-width (32 bytes, big endian).
//
// Two historical carve-outs are preserved exactly. Accumulator writes never
// distinguished create from modify, so a missing slot with the metadata
// subsystem disabled yields a Modification, not a Creation. And a failed
// metadata lookup is surfaced as a speculative abort rather than a storage
// fault: accumulators sit on hot, highly contended paths where transient
// staleness is expected and retried.
func (c *Converter) ConvertAccumulatorValue(key StateKey, value *uint256.Int) (WriteOp, error) {
	state, err := c.resolver.AccumulatorMetadata(key)
	if err != nil {
		return WriteOp{}, fmt.Errorf("convert accumulator %s: metadata lookup: %w", key, ErrSpeculativeAbort)
	}

	if value == nil {
		value = new(uint256.Int)
	}
	encoded := value.Bytes32()
	data := encoded[:]

	if !state.Exists() {
		if c.newSlotMetadata != nil {
			return CreationWithMetadata(data, *c.newSlotMetadata), nil
		}
		return Modification(data), nil
	}
	if m, ok := state.Metadata(); ok {
		return ModificationWithMetadata(data, m), nil
	}
	return Modification(data), nil
}
