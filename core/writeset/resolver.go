package writeset

// Resolver is the read view the conversion layer runs against. Under
// speculative execution each in-flight transaction attempt gets its own
// consistent but possibly stale view; the scheduler re-executes on
// conflict, so stale answers are acceptable here and never corrected
// locally.
//
// Metadata lookups are split per slot class because the underlying
// namespaces differ, not because the conversion rules do: every lookup
// feeds the same state machine.
type Resolver interface {
	// ResourceMetadata reports the metadata state of a resource slot.
	// Resource group slots are served by this lookup as well, since group
	// metadata lives at the group's own key.
	ResourceMetadata(key StateKey) (MetadataState, error)

	// ModuleMetadata reports the metadata state of a module bytecode slot.
	ModuleMetadata(key StateKey) (MetadataState, error)

	// AccumulatorMetadata reports the metadata state of a legacy
	// accumulator slot.
	AccumulatorMetadata(key StateKey) (MetadataState, error)

	// GroupSize returns the current aggregate byte size of a resource
	// group. The value is a cached, possibly speculative figure; reading
	// it is intentionally cheap and does not materialize the group.
	GroupSize(key StateKey) (uint64, error)

	// TaggedValueSize returns the previously recorded serialized payload
	// size of one tag within a group.
	TaggedValueSize(key StateKey, tag Tag) (uint64, error)

	// ChainTimeMicros returns the current on-chain time in unix
	// microseconds. The second return is false when the on-chain clock is
	// not configured, in which case new slots are not stamped.
	ChainTimeMicros() (uint64, bool)
}
