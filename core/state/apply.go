package state

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"lumenchain/core/writeset"
)

// SlotClass selects the namespace a write op applies to.
type SlotClass uint8

const (
	ClassResource SlotClass = iota + 1
	ClassModule
	ClassAccumulator
)

func classPrefix(class SlotClass) ([]byte, error) {
	switch class {
	case ClassResource:
		return resourcePrefix, nil
	case ClassModule:
		return modulePrefix, nil
	case ClassAccumulator:
		return accumulatorPrefix, nil
	}
	return nil, fmt.Errorf("state: unknown slot class %d", class)
}

// Apply persists one converted write op against a plain slot.
func (v *View) Apply(class SlotClass, key writeset.StateKey, op writeset.WriteOp) error {
	if v == nil || v.db == nil {
		return fmt.Errorf("state: view not initialised")
	}
	prefix, err := classPrefix(class)
	if err != nil {
		return err
	}
	if op.IsDeletion() {
		return v.db.Delete(slotKey(prefix, key))
	}
	data, _ := op.Bytes()
	slot := &storedSlot{Data: data}
	if m, ok := op.Metadata(); ok {
		slot.HasMetadata = true
		slot.Deposit = m.Deposit
		slot.CreatedAt = m.CreationTimeMicros
	}
	return v.storeSlot(prefix, key, slot)
}

// ApplyGroup folds a GroupWrite back into the stored group. The slot-level
// op's payload is the encoded post-size, which is fee-accounting data and
// never slot content, so the stored payload is rebuilt from the inner ops
// instead.
func (v *View) ApplyGroup(key writeset.StateKey, group writeset.GroupWrite) error {
	if v == nil || v.db == nil {
		return fmt.Errorf("state: view not initialised")
	}
	metadataOp := group.MetadataOp()
	if metadataOp.IsDeletion() {
		return v.db.Delete(slotKey(resourcePrefix, key))
	}

	entries, _, _, err := v.loadGroup(key)
	if err != nil {
		return err
	}
	byTag := make(map[writeset.Tag][]byte, len(entries))
	for _, entry := range entries {
		byTag[entry.Tag] = entry.Data
	}
	for tag, tagged := range group.InnerOps() {
		if tagged.Op.IsDeletion() {
			delete(byTag, tag)
			continue
		}
		data, _ := tagged.Op.Bytes()
		byTag[tag] = data
	}

	merged := make([]storedGroupEntry, 0, len(byTag))
	for tag, data := range byTag {
		merged = append(merged, storedGroupEntry{Tag: tag, Data: data})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Tag.Less(merged[j].Tag) })
	encoded, err := rlp.EncodeToBytes(merged)
	if err != nil {
		return fmt.Errorf("state: encode group %s: %w", key, err)
	}

	slot := &storedSlot{Data: encoded}
	if m, ok := metadataOp.Metadata(); ok {
		slot.HasMetadata = true
		slot.Deposit = m.Deposit
		slot.CreatedAt = m.CreationTimeMicros
	}
	return v.storeSlot(resourcePrefix, key, slot)
}

// Seed helpers used by genesis loading, tests, and the audit tool.

func (v *View) PutResource(key writeset.StateKey, data []byte, metadata *writeset.SlotMetadata) error {
	return v.putSeed(resourcePrefix, key, data, metadata)
}

func (v *View) PutModule(key writeset.StateKey, data []byte, metadata *writeset.SlotMetadata) error {
	return v.putSeed(modulePrefix, key, data, metadata)
}

func (v *View) PutAccumulator(key writeset.StateKey, data []byte, metadata *writeset.SlotMetadata) error {
	return v.putSeed(accumulatorPrefix, key, data, metadata)
}

func (v *View) putSeed(prefix []byte, key writeset.StateKey, data []byte, metadata *writeset.SlotMetadata) error {
	if v == nil || v.db == nil {
		return fmt.Errorf("state: view not initialised")
	}
	slot := &storedSlot{Data: data}
	if metadata != nil {
		slot.HasMetadata = true
		slot.Deposit = metadata.Deposit
		slot.CreatedAt = metadata.CreationTimeMicros
	}
	return v.storeSlot(prefix, key, slot)
}

// PutGroupEntry inserts or replaces one tagged value inside a group,
// creating the group slot if needed. Existing slot metadata is preserved.
func (v *View) PutGroupEntry(key writeset.StateKey, tag writeset.Tag, data []byte) error {
	if v == nil || v.db == nil {
		return fmt.Errorf("state: view not initialised")
	}
	entries, slot, ok, err := v.loadGroup(key)
	if err != nil {
		return err
	}
	if !ok {
		slot = &storedSlot{}
	}

	replaced := false
	for i := range entries {
		if entries[i].Tag == tag {
			entries[i].Data = data
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, storedGroupEntry{Tag: tag, Data: data})
		sort.Slice(entries, func(i, j int) bool { return entries[i].Tag.Less(entries[j].Tag) })
	}

	encoded, err := rlp.EncodeToBytes(entries)
	if err != nil {
		return fmt.Errorf("state: encode group %s: %w", key, err)
	}
	slot.Data = encoded
	return v.storeSlot(resourcePrefix, key, slot)
}

// SetGroupMetadata stamps or clears the metadata record on a group slot
// without touching its entries.
func (v *View) SetGroupMetadata(key writeset.StateKey, metadata *writeset.SlotMetadata) error {
	_, slot, ok, err := v.loadGroup(key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("state: no group at %s", key)
	}
	if metadata == nil {
		slot.HasMetadata = false
		slot.Deposit = 0
		slot.CreatedAt = 0
	} else {
		slot.HasMetadata = true
		slot.Deposit = metadata.Deposit
		slot.CreatedAt = metadata.CreationTimeMicros
	}
	return v.storeSlot(resourcePrefix, key, slot)
}
