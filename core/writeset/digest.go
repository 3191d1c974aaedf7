package writeset

import (
	"bytes"
	"encoding/binary"
	"sort"

	"lukechampine.com/blake3"
)

const digestDomain = "lumenchain/writeset/v1"

// Entry pairs a slot key with its converted operation inside an assembled
// write set.
type Entry struct {
	Key StateKey
	Op  WriteOp
}

// Digest returns a canonical blake3 digest of a write set. Entries are
// hashed in key order, so two conversions of the same transaction over the
// same read view digest identically regardless of assembly order. Conflict
// validation uses this to confirm a re-execution reproduced its write set
// byte for byte.
func Digest(entries []Entry) [32]byte {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key.raw < sorted[j].Key.raw })

	var buf bytes.Buffer
	buf.WriteString(digestDomain)
	for _, entry := range sorted {
		writeChunk(&buf, entry.Key.Bytes())
		buf.WriteByte(byte(entry.Op.Kind()))
		data, _ := entry.Op.Bytes()
		writeChunk(&buf, data)
		if m, ok := entry.Op.Metadata(); ok {
			var scratch [16]byte
			binary.BigEndian.PutUint64(scratch[:8], m.Deposit)
			binary.BigEndian.PutUint64(scratch[8:], m.CreationTimeMicros)
			buf.Write(scratch[:])
		}
	}
	return blake3.Sum256(buf.Bytes())
}

func writeChunk(buf *bytes.Buffer, chunk []byte) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(chunk)))
	buf.Write(length[:])
	buf.Write(chunk)
}
