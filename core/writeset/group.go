package writeset

import (
	"fmt"
	"math"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
)

// TaggedWrite pairs one converted per-tag operation with its layout hint.
type TaggedWrite struct {
	Op     WriteOp
	Layout *TypeLayout
}

// GroupWrite is the converted form of a batch of tagged effects against one
// resource group slot: the slot-level op whose payload encodes the group's
// post-conversion aggregate size, the raw post-size, and the per-tag
// legacy-shaped ops for the tags this transaction touched.
type GroupWrite struct {
	metadataOp WriteOp
	postSize   uint64
	inner      map[Tag]TaggedWrite
}

// MetadataOp returns the slot-level operation. Unless the group ends up
// empty, its payload is the RLP encoding of the post-size, read downstream
// by fee charging; it is never real slot content.
func (g GroupWrite) MetadataOp() WriteOp {
	return g.metadataOp
}

func (g GroupWrite) PostSize() uint64 {
	return g.postSize
}

// InnerOps returns the per-tag operations. Only tags touched by the
// converted batch are present.
func (g GroupWrite) InnerOps() map[Tag]TaggedWrite {
	return g.inner
}

// ConvertGroup folds a batch of tagged effects destined for one group slot
// into a GroupWrite. Tags are processed in sorted order so the running size
// and any error surfaced are reproducible across re-execution attempts.
func (c *Converter) ConvertGroup(key StateKey, changes map[Tag]Effect) (GroupWrite, error) {
	// Group metadata lives at the group's own key and is resolved through
	// the resource lookup; the error, if any, is classified by convert.
	metadataState, metadataErr := c.resolver.ResourceMetadata(key)

	// A cached, possibly speculative figure. The first read of a group in
	// a transaction already charges gas based on its size, so this re-read
	// does not materialize anything.
	preSize, err := c.resolver.GroupSize(key)
	if err != nil {
		return GroupWrite{}, fmt.Errorf("convert group %s: aggregate size lookup: %w", key, ErrStorageFault)
	}

	inner := make(map[Tag]TaggedWrite, len(changes))
	size := preSize
	for _, tag := range sortedTags(changes) {
		effect := changes[tag]
		tagSize, err := tag.SerializedSize()
		if err != nil {
			return GroupWrite{}, fmt.Errorf("convert group %s: %w", key, err)
		}

		// For modified and deleted tags, subtract the previously recorded
		// footprint. Querying only the touched tags keeps untouched group
		// members out of this transaction's read set and avoids false
		// conflicts under the optimistic scheduler.
		if effect.Kind != EffectNew {
			oldSize, err := c.resolver.TaggedValueSize(key, tag)
			if err != nil {
				return GroupWrite{}, fmt.Errorf("convert group %s: size of tag %s: %w", key, tag, ErrStorageFault)
			}
			oldFootprint, err := checkedAdd(oldSize, tagSize)
			if err != nil {
				return GroupWrite{}, err
			}
			size, err = checkedSub(size, oldFootprint)
			if err != nil {
				return GroupWrite{}, err
			}
		}

		switch effect.Kind {
		case EffectDelete:
			inner[tag] = TaggedWrite{Op: Deletion()}
		case EffectModify:
			size, err = checkedAdd(size, uint64(len(effect.Data))+tagSize)
			if err != nil {
				return GroupWrite{}, err
			}
			inner[tag] = TaggedWrite{Op: Modification(effect.Data), Layout: effect.Layout}
		case EffectNew:
			size, err = checkedAdd(size, uint64(len(effect.Data))+tagSize)
			if err != nil {
				return GroupWrite{}, err
			}
			inner[tag] = TaggedWrite{Op: Creation(effect.Data), Layout: effect.Layout}
		default:
			return GroupWrite{}, fmt.Errorf("convert group %s: unknown effect kind %d for tag %s", key, effect.Kind, tag)
		}
	}

	// The slot-level op's kind follows the size trajectory alone; the
	// shared state machine then attaches metadata backward compatibly.
	var slotEffect Effect
	switch {
	case size == 0:
		slotEffect = DeleteValue()
	case preSize == 0:
		slotEffect = NewValue(nil)
	default:
		slotEffect = ModifyValue(nil)
	}
	metadataOp, err := c.convert(metadataState, metadataErr, slotEffect, false)
	if err != nil {
		return GroupWrite{}, err
	}
	if !metadataOp.IsDeletion() {
		encoded, err := rlp.EncodeToBytes(size)
		if err != nil {
			return GroupWrite{}, fmt.Errorf("convert group %s: encode post-size: %w", key, ErrSerialization)
		}
		metadataOp = metadataOp.WithBytes(encoded)
	}

	return GroupWrite{metadataOp: metadataOp, postSize: size, inner: inner}, nil
}

func sortedTags(changes map[Tag]Effect) []Tag {
	tags := make([]Tag, 0, len(changes))
	for tag := range changes {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Less(tags[j]) })
	return tags
}

// The size bookkeeping may be stale under speculative execution, so
// arithmetic faults are surfaced as retryable aborts rather than silent
// wraparounds or hard failures.
func checkedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, fmt.Errorf("group size overflow while applying updates: %w", ErrSpeculativeAbort)
	}
	return a + b, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("group size underflow while applying updates: %w", ErrSpeculativeAbort)
	}
	return a - b, nil
}
