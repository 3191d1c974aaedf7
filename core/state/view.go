package state

import (
	stderrors "errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"lumenchain/core/writeset"
	"lumenchain/storage"
)

var (
	resourcePrefix    = []byte("slot/resource/")
	modulePrefix      = []byte("slot/module/")
	accumulatorPrefix = []byte("slot/accumulator/")
	chainTimeKey      = ethcrypto.Keccak256([]byte("chain/time-micros"))
)

// storedSlot is the persisted form of one slot: the payload plus the
// optional metadata record. HasMetadata keeps slots that predate metadata
// tracking distinguishable from slots stamped with a zero record.
type storedSlot struct {
	Data        []byte
	HasMetadata bool
	Deposit     uint64
	CreatedAt   uint64
}

// Resource groups persist as a tag-sorted entry list inside the group
// slot's payload.
type storedGroupEntry struct {
	Tag  writeset.Tag
	Data []byte
}

// View is a ledger-backed read view over a storage.Database. It implements
// writeset.Resolver and additionally applies converted write ops back to
// storage, which is what tests and offline tooling use to close the loop.
type View struct {
	db storage.Database
}

func NewView(db storage.Database) *View {
	return &View{db: db}
}

func slotKey(prefix []byte, key writeset.StateKey) []byte {
	raw := key.Bytes()
	buf := make([]byte, len(prefix)+len(raw))
	copy(buf, prefix)
	copy(buf[len(prefix):], raw)
	return ethcrypto.Keccak256(buf)
}

func (v *View) loadSlot(prefix []byte, key writeset.StateKey) (*storedSlot, bool, error) {
	if v == nil || v.db == nil {
		return nil, false, fmt.Errorf("state: view not initialised")
	}
	raw, err := v.db.Get(slotKey(prefix, key))
	if stderrors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("state: load slot %s: %w", key, err)
	}
	var slot storedSlot
	if err := rlp.DecodeBytes(raw, &slot); err != nil {
		return nil, false, fmt.Errorf("state: decode slot %s: %w", key, err)
	}
	return &slot, true, nil
}

func (v *View) storeSlot(prefix []byte, key writeset.StateKey, slot *storedSlot) error {
	encoded, err := rlp.EncodeToBytes(slot)
	if err != nil {
		return fmt.Errorf("state: encode slot %s: %w", key, err)
	}
	return v.db.Put(slotKey(prefix, key), encoded)
}

func metadataState(slot *storedSlot, ok bool) writeset.MetadataState {
	if !ok {
		return writeset.MissingSlot()
	}
	if !slot.HasMetadata {
		return writeset.BareSlot()
	}
	return writeset.SlotWith(writeset.NewSlotMetadata(slot.Deposit, slot.CreatedAt))
}

func (v *View) ResourceMetadata(key writeset.StateKey) (writeset.MetadataState, error) {
	slot, ok, err := v.loadSlot(resourcePrefix, key)
	if err != nil {
		return writeset.MetadataState{}, err
	}
	return metadataState(slot, ok), nil
}

func (v *View) ModuleMetadata(key writeset.StateKey) (writeset.MetadataState, error) {
	slot, ok, err := v.loadSlot(modulePrefix, key)
	if err != nil {
		return writeset.MetadataState{}, err
	}
	return metadataState(slot, ok), nil
}

func (v *View) AccumulatorMetadata(key writeset.StateKey) (writeset.MetadataState, error) {
	slot, ok, err := v.loadSlot(accumulatorPrefix, key)
	if err != nil {
		return writeset.MetadataState{}, err
	}
	return metadataState(slot, ok), nil
}

// GroupSize sums tag footprint plus payload length over the stored group.
// A missing group has size zero.
func (v *View) GroupSize(key writeset.StateKey) (uint64, error) {
	entries, _, _, err := v.loadGroup(key)
	if err != nil {
		return 0, err
	}
	total := uint64(0)
	for _, entry := range entries {
		tagSize, err := entry.Tag.SerializedSize()
		if err != nil {
			return 0, err
		}
		total += tagSize + uint64(len(entry.Data))
	}
	return total, nil
}

func (v *View) TaggedValueSize(key writeset.StateKey, tag writeset.Tag) (uint64, error) {
	entries, _, ok, err := v.loadGroup(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("state: no group at %s", key)
	}
	for _, entry := range entries {
		if entry.Tag == tag {
			return uint64(len(entry.Data)), nil
		}
	}
	return 0, fmt.Errorf("state: tag %s not recorded in group %s", tag, key)
}

func (v *View) ChainTimeMicros() (uint64, bool) {
	if v == nil || v.db == nil {
		return 0, false
	}
	raw, err := v.db.Get(chainTimeKey)
	if err != nil {
		return 0, false
	}
	var micros uint64
	if err := rlp.DecodeBytes(raw, &micros); err != nil {
		return 0, false
	}
	return micros, true
}

// SetChainTimeMicros records the on-chain clock reading new slots are
// stamped with.
func (v *View) SetChainTimeMicros(micros uint64) error {
	if v == nil || v.db == nil {
		return fmt.Errorf("state: view not initialised")
	}
	encoded, err := rlp.EncodeToBytes(micros)
	if err != nil {
		return fmt.Errorf("state: encode chain time: %w", err)
	}
	return v.db.Put(chainTimeKey, encoded)
}

func (v *View) loadGroup(key writeset.StateKey) ([]storedGroupEntry, *storedSlot, bool, error) {
	slot, ok, err := v.loadSlot(resourcePrefix, key)
	if err != nil {
		return nil, nil, false, err
	}
	if !ok {
		return nil, nil, false, nil
	}
	var entries []storedGroupEntry
	if len(slot.Data) > 0 {
		if err := rlp.DecodeBytes(slot.Data, &entries); err != nil {
			return nil, nil, false, fmt.Errorf("state: decode group %s: %w", key, err)
		}
	}
	return entries, slot, true, nil
}
