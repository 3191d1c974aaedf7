package writeset

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
)

// StateKey identifies one physical storage slot in the ledger state. It is
// opaque to the conversion layer and usable as a map key.
type StateKey struct {
	raw string
}

func KeyFromBytes(raw []byte) StateKey {
	return StateKey{raw: string(raw)}
}

func KeyFromString(raw string) StateKey {
	return StateKey{raw: raw}
}

func (k StateKey) Bytes() []byte {
	return []byte(k.raw)
}

func (k StateKey) String() string {
	return hex.EncodeToString([]byte(k.raw))
}

// Tag indexes one logical value inside a resource group. Several tagged
// values share a single physical slot; the tag is what tells them apart.
// Two instantiations of the same struct with different type arguments are
// distinct group members, so TypeParams is part of the tag's identity.
// It holds the canonical form produced by CanonicalTypeParams, keeping the
// struct comparable and usable as a map key.
type Tag struct {
	Address    [20]byte
	Module     string
	Name       string
	TypeParams string
}

// CanonicalTypeParams joins type arguments into the canonical form stored
// in Tag.TypeParams. No argument yields the empty string, the identity of
// a non-generic tag.
func CanonicalTypeParams(params ...string) string {
	return strings.Join(params, ",")
}

// SerializedSize returns the length of the tag's canonical RLP encoding.
// The group size accountant charges this alongside each tagged payload.
func (t Tag) SerializedSize() (uint64, error) {
	encoded, err := rlp.EncodeToBytes(t)
	if err != nil {
		return 0, fmt.Errorf("encode tag %s: %w", t, ErrSerialization)
	}
	return uint64(len(encoded)), nil
}

// Less orders tags lexicographically by address, module, name, then type
// parameters. The accountant folds group batches in this order so that size
// accounting is reproducible across re-execution attempts.
func (t Tag) Less(other Tag) bool {
	if t.Address != other.Address {
		for i := range t.Address {
			if t.Address[i] != other.Address[i] {
				return t.Address[i] < other.Address[i]
			}
		}
	}
	if t.Module != other.Module {
		return t.Module < other.Module
	}
	if t.Name != other.Name {
		return t.Name < other.Name
	}
	return t.TypeParams < other.TypeParams
}

func (t Tag) String() string {
	var b strings.Builder
	b.WriteString("0x")
	b.WriteString(hex.EncodeToString(t.Address[:]))
	b.WriteString("::")
	b.WriteString(t.Module)
	b.WriteString("::")
	b.WriteString(t.Name)
	if t.TypeParams != "" {
		b.WriteString("<")
		b.WriteString(t.TypeParams)
		b.WriteString(">")
	}
	return b.String()
}
