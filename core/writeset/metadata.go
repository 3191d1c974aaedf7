package writeset

// SlotMetadata is the bookkeeping record attached to a storage slot: the
// refundable deposit charged for the slot's footprint and the chain time at
// which the slot was created, in unix microseconds.
type SlotMetadata struct {
	Deposit            uint64
	CreationTimeMicros uint64
}

func NewSlotMetadata(deposit, creationTimeMicros uint64) SlotMetadata {
	return SlotMetadata{Deposit: deposit, CreationTimeMicros: creationTimeMicros}
}

// SetDeposit overwrites the deposit. New slots are stamped with a zero
// placeholder; the fee charger calls this once the storage fee is known.
func (m *SlotMetadata) SetDeposit(deposit uint64) {
	m.Deposit = deposit
}

type metadataKind uint8

const (
	slotMissing metadataKind = iota
	slotBare
	slotWithMetadata
)

// MetadataState is the resolver's answer to "what does this slot currently
// carry". It distinguishes three cases that must never collapse into each
// other: the slot does not exist at all, the slot exists but predates
// metadata tracking, and the slot exists with a concrete metadata record.
type MetadataState struct {
	kind     metadataKind
	metadata SlotMetadata
}

// MissingSlot reports that the read view holds no value for the slot.
func MissingSlot() MetadataState {
	return MetadataState{kind: slotMissing}
}

// BareSlot reports a slot that exists without a metadata record.
func BareSlot() MetadataState {
	return MetadataState{kind: slotBare}
}

// SlotWith reports a slot that exists and carries metadata.
func SlotWith(m SlotMetadata) MetadataState {
	return MetadataState{kind: slotWithMetadata, metadata: m}
}

func (s MetadataState) Exists() bool {
	return s.kind != slotMissing
}

func (s MetadataState) Metadata() (SlotMetadata, bool) {
	if s.kind != slotWithMetadata {
		return SlotMetadata{}, false
	}
	return s.metadata, true
}
