package writeset

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"
)

func TestWriteOpRLPRoundTrip(t *testing.T) {
	metadata := NewSlotMetadata(100, 42)
	cases := []struct {
		name string
		op   WriteOp
	}{
		{"creation", Creation([]byte{1, 2, 3})},
		{"creation with metadata", CreationWithMetadata([]byte{1, 2, 3}, metadata)},
		{"modification", Modification([]byte{4})},
		{"modification with metadata", ModificationWithMetadata([]byte{4}, metadata)},
		{"deletion", Deletion()},
		{"deletion with metadata", DeletionWithMetadata(metadata)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := rlp.EncodeToBytes(tc.op)
			require.NoError(t, err)

			var decoded WriteOp
			require.NoError(t, rlp.DecodeBytes(encoded, &decoded))
			require.Equal(t, tc.op, decoded)
		})
	}
}

func TestWriteOpRLPRejectsUnknownKind(t *testing.T) {
	encoded, err := rlp.EncodeToBytes(encodedWriteOp{Kind: 99})
	require.NoError(t, err)

	var decoded WriteOp
	require.ErrorIs(t, rlp.DecodeBytes(encoded, &decoded), ErrSerialization)
}
