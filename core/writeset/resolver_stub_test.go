package writeset

import "fmt"

// stubResolver serves canned answers so every branch of the converter,
// including the arithmetic faults, can be driven deterministically.
type stubResolver struct {
	resources    map[StateKey]MetadataState
	modules      map[StateKey]MetadataState
	accumulators map[StateKey]MetadataState
	groupSizes   map[StateKey]uint64
	taggedSizes  map[StateKey]map[Tag]uint64
	chainTime    uint64
	hasChainTime bool

	resourceErr    error
	moduleErr      error
	accumulatorErr error
	groupSizeErr   error
	taggedSizeErr  error

	taggedSizeCalls int
}

func newStubResolver() *stubResolver {
	return &stubResolver{
		resources:    make(map[StateKey]MetadataState),
		modules:      make(map[StateKey]MetadataState),
		accumulators: make(map[StateKey]MetadataState),
		groupSizes:   make(map[StateKey]uint64),
		taggedSizes:  make(map[StateKey]map[Tag]uint64),
	}
}

func (r *stubResolver) ResourceMetadata(key StateKey) (MetadataState, error) {
	if r.resourceErr != nil {
		return MetadataState{}, r.resourceErr
	}
	if state, ok := r.resources[key]; ok {
		return state, nil
	}
	return MissingSlot(), nil
}

func (r *stubResolver) ModuleMetadata(key StateKey) (MetadataState, error) {
	if r.moduleErr != nil {
		return MetadataState{}, r.moduleErr
	}
	if state, ok := r.modules[key]; ok {
		return state, nil
	}
	return MissingSlot(), nil
}

func (r *stubResolver) AccumulatorMetadata(key StateKey) (MetadataState, error) {
	if r.accumulatorErr != nil {
		return MetadataState{}, r.accumulatorErr
	}
	if state, ok := r.accumulators[key]; ok {
		return state, nil
	}
	return MissingSlot(), nil
}

func (r *stubResolver) GroupSize(key StateKey) (uint64, error) {
	if r.groupSizeErr != nil {
		return 0, r.groupSizeErr
	}
	return r.groupSizes[key], nil
}

func (r *stubResolver) TaggedValueSize(key StateKey, tag Tag) (uint64, error) {
	r.taggedSizeCalls++
	if r.taggedSizeErr != nil {
		return 0, r.taggedSizeErr
	}
	sizes, ok := r.taggedSizes[key]
	if !ok {
		return 0, fmt.Errorf("no group at %s", key)
	}
	size, ok := sizes[tag]
	if !ok {
		return 0, fmt.Errorf("tag %s not recorded in group %s", tag, key)
	}
	return size, nil
}

func (r *stubResolver) ChainTimeMicros() (uint64, bool) {
	return r.chainTime, r.hasChainTime
}
