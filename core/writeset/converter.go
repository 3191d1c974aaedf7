package writeset

import "fmt"

// Converter turns the abstract effects produced by one transaction into
// concrete write operations. It is constructed once per transaction, reads
// the on-chain clock once, owns no mutable state, and may be built
// concurrently for any number of speculative execution attempts.
type Converter struct {
	resolver        Resolver
	newSlotMetadata *SlotMetadata
}

// NewConverter builds a converter over the supplied read view. When the
// slot metadata subsystem is enabled and the on-chain clock is configured,
// newly created slots are stamped with a zero-deposit metadata record; the
// deposit placeholder is overwritten later when the storage fee is charged.
func NewConverter(resolver Resolver, slotMetadataEnabled bool) *Converter {
	c := &Converter{resolver: resolver}
	if slotMetadataEnabled {
		if now, ok := resolver.ChainTimeMicros(); ok {
			m := NewSlotMetadata(0, now)
			c.newSlotMetadata = &m
		}
	}
	return c
}

// ConvertResource converts one effect against a generic resource slot and
// returns the layout hint alongside, if the effect carried one.
func (c *Converter) ConvertResource(key StateKey, effect Effect, legacyCreationAsModification bool) (WriteOp, *TypeLayout, error) {
	state, lookupErr := c.resolver.ResourceMetadata(key)
	op, err := c.convert(state, lookupErr, effect, legacyCreationAsModification)
	if err != nil {
		return WriteOp{}, nil, err
	}
	if effect.Kind == EffectDelete {
		return op, nil, nil
	}
	return op, effect.Layout, nil
}

// ConvertModule converts one effect against a module bytecode slot.
func (c *Converter) ConvertModule(key StateKey, effect Effect, legacyCreationAsModification bool) (WriteOp, error) {
	state, lookupErr := c.resolver.ModuleMetadata(key)
	return c.convert(state, lookupErr, effect, legacyCreationAsModification)
}

// ConvertAccumulator converts one effect against a legacy accumulator slot.
func (c *Converter) ConvertAccumulator(key StateKey, effect Effect, legacyCreationAsModification bool) (WriteOp, error) {
	state, lookupErr := c.resolver.AccumulatorMetadata(key)
	return c.convert(state, lookupErr, effect, legacyCreationAsModification)
}

// convert is the shared state machine over (existing slot state, effect).
// Existing metadata is inherited on modify and delete even when the
// metadata subsystem is currently disabled; once stamped, a slot carries
// its record forward until deletion.
func (c *Converter) convert(state MetadataState, lookupErr error, effect Effect, legacyCreationAsModification bool) (WriteOp, error) {
	if lookupErr != nil {
		return WriteOp{}, fmt.Errorf("convert write op: metadata lookup: %w", ErrStorageFault)
	}

	if !state.Exists() {
		switch effect.Kind {
		case EffectModify, EffectDelete:
			return WriteOp{}, fmt.Errorf("convert write op: updating non-existent value: %w", ErrSpeculativeAbort)
		case EffectNew:
			if c.newSlotMetadata != nil {
				return CreationWithMetadata(effect.Data, *c.newSlotMetadata), nil
			}
			if legacyCreationAsModification {
				return Modification(effect.Data), nil
			}
			return Creation(effect.Data), nil
		}
		return WriteOp{}, fmt.Errorf("convert write op: unknown effect kind %d", effect.Kind)
	}

	switch effect.Kind {
	case EffectNew:
		return WriteOp{}, fmt.Errorf("convert write op: recreating existing value: %w", ErrSpeculativeAbort)
	case EffectModify:
		if m, ok := state.Metadata(); ok {
			return ModificationWithMetadata(effect.Data, m), nil
		}
		return Modification(effect.Data), nil
	case EffectDelete:
		if m, ok := state.Metadata(); ok {
			return DeletionWithMetadata(m), nil
		}
		return Deletion(), nil
	}
	return WriteOp{}, fmt.Errorf("convert write op: unknown effect kind %d", effect.Kind)
}
