package writeset

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/rlp"
)

// WriteOpKind enumerates the concrete, persistable operations the ledger
// write-set assembler understands.
type WriteOpKind uint8

const (
	OpCreation WriteOpKind = iota + 1
	OpCreationWithMetadata
	OpModification
	OpModificationWithMetadata
	OpDeletion
	OpDeletionWithMetadata
)

func (k WriteOpKind) String() string {
	switch k {
	case OpCreation:
		return "creation"
	case OpCreationWithMetadata:
		return "creation-with-metadata"
	case OpModification:
		return "modification"
	case OpModificationWithMetadata:
		return "modification-with-metadata"
	case OpDeletion:
		return "deletion"
	case OpDeletionWithMetadata:
		return "deletion-with-metadata"
	}
	return "unknown"
}

// WriteOp is a concrete write operation against one slot. Creations and
// modifications carry the payload; the *WithMetadata kinds additionally
// carry the slot's bookkeeping record. Deletions carry no payload but keep
// metadata so the deposit can be refunded.
type WriteOp struct {
	kind     WriteOpKind
	data     []byte
	metadata SlotMetadata
}

func Creation(data []byte) WriteOp {
	return WriteOp{kind: OpCreation, data: data}
}

func CreationWithMetadata(data []byte, m SlotMetadata) WriteOp {
	return WriteOp{kind: OpCreationWithMetadata, data: data, metadata: m}
}

func Modification(data []byte) WriteOp {
	return WriteOp{kind: OpModification, data: data}
}

func ModificationWithMetadata(data []byte, m SlotMetadata) WriteOp {
	return WriteOp{kind: OpModificationWithMetadata, data: data, metadata: m}
}

func Deletion() WriteOp {
	return WriteOp{kind: OpDeletion}
}

func DeletionWithMetadata(m SlotMetadata) WriteOp {
	return WriteOp{kind: OpDeletionWithMetadata, metadata: m}
}

func (op WriteOp) Kind() WriteOpKind {
	return op.kind
}

// Bytes returns the payload. The second return is false for deletions,
// which have none.
func (op WriteOp) Bytes() ([]byte, bool) {
	if op.IsDeletion() {
		return nil, false
	}
	return op.data, true
}

func (op WriteOp) Metadata() (SlotMetadata, bool) {
	switch op.kind {
	case OpCreationWithMetadata, OpModificationWithMetadata, OpDeletionWithMetadata:
		return op.metadata, true
	}
	return SlotMetadata{}, false
}

func (op WriteOp) IsCreation() bool {
	return op.kind == OpCreation || op.kind == OpCreationWithMetadata
}

func (op WriteOp) IsModification() bool {
	return op.kind == OpModification || op.kind == OpModificationWithMetadata
}

func (op WriteOp) IsDeletion() bool {
	return op.kind == OpDeletion || op.kind == OpDeletionWithMetadata
}

// WithBytes returns a copy of the op carrying the supplied payload in place
// of the original one. Deletions are returned unchanged. The group
// accountant uses this to swap the synthetic slot-level op's empty payload
// for the encoded post-size.
func (op WriteOp) WithBytes(data []byte) WriteOp {
	if op.IsDeletion() {
		return op
	}
	op.data = data
	return op
}

// encodedWriteOp is the wire record behind the WriteOp RLP codec. The kind
// determines whether the metadata fields are meaningful.
type encodedWriteOp struct {
	Kind      uint8
	Data      []byte
	Deposit   uint64
	CreatedAt uint64
}

// EncodeRLP implements rlp.Encoder.
func (op WriteOp) EncodeRLP(w io.Writer) error {
	enc := encodedWriteOp{Kind: uint8(op.kind)}
	if data, ok := op.Bytes(); ok {
		enc.Data = data
	}
	if m, ok := op.Metadata(); ok {
		enc.Deposit = m.Deposit
		enc.CreatedAt = m.CreationTimeMicros
	}
	return rlp.Encode(w, enc)
}

// DecodeRLP implements rlp.Decoder.
func (op *WriteOp) DecodeRLP(s *rlp.Stream) error {
	var enc encodedWriteOp
	if err := s.Decode(&enc); err != nil {
		return fmt.Errorf("decode write op: %w", err)
	}
	kind := WriteOpKind(enc.Kind)
	switch kind {
	case OpCreation, OpCreationWithMetadata, OpModification, OpModificationWithMetadata,
		OpDeletion, OpDeletionWithMetadata:
	default:
		return fmt.Errorf("decode write op: unknown kind %d: %w", enc.Kind, ErrSerialization)
	}
	*op = WriteOp{kind: kind}
	if !op.IsDeletion() && len(enc.Data) > 0 {
		op.data = enc.Data
	}
	switch kind {
	case OpCreationWithMetadata, OpModificationWithMetadata, OpDeletionWithMetadata:
		op.metadata = NewSlotMetadata(enc.Deposit, enc.CreatedAt)
	}
	return nil
}
