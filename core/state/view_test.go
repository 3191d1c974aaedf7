package state

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"

	"lumenchain/core/writeset"
	"lumenchain/storage"
)

func newTestView(t *testing.T) *View {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewView(db)
}

func mustTagSize(t *testing.T, tag writeset.Tag) uint64 {
	t.Helper()
	size, err := tag.SerializedSize()
	if err != nil {
		t.Fatalf("tag size: %v", err)
	}
	return size
}

func TestViewResourceLifecycle(t *testing.T) {
	view := newTestView(t)
	if err := view.SetChainTimeMicros(5_000_000); err != nil {
		t.Fatalf("set chain time: %v", err)
	}
	key := writeset.KeyFromString("account/alice/balance")

	converter := writeset.NewConverter(view, true)
	op, _, err := converter.ConvertResource(key, writeset.NewValue([]byte{1, 2, 3}), false)
	if err != nil {
		t.Fatalf("convert creation: %v", err)
	}
	if op.Kind() != writeset.OpCreationWithMetadata {
		t.Fatalf("unexpected op kind %s", op.Kind())
	}
	if err := view.Apply(ClassResource, key, op); err != nil {
		t.Fatalf("apply creation: %v", err)
	}

	state, err := view.ResourceMetadata(key)
	if err != nil {
		t.Fatalf("resource metadata: %v", err)
	}
	metadata, ok := state.Metadata()
	if !ok {
		t.Fatalf("expected stamped metadata")
	}
	if metadata.Deposit != 0 || metadata.CreationTimeMicros != 5_000_000 {
		t.Fatalf("unexpected metadata %+v", metadata)
	}

	// A later transaction modifies the slot with the subsystem disabled;
	// the stamp is inherited.
	converter = writeset.NewConverter(view, false)
	op, _, err = converter.ConvertResource(key, writeset.ModifyValue([]byte{9}), false)
	if err != nil {
		t.Fatalf("convert modification: %v", err)
	}
	if op.Kind() != writeset.OpModificationWithMetadata {
		t.Fatalf("unexpected op kind %s", op.Kind())
	}
	if err := view.Apply(ClassResource, key, op); err != nil {
		t.Fatalf("apply modification: %v", err)
	}

	op, _, err = converter.ConvertResource(key, writeset.DeleteValue(), false)
	if err != nil {
		t.Fatalf("convert deletion: %v", err)
	}
	if op.Kind() != writeset.OpDeletionWithMetadata {
		t.Fatalf("unexpected op kind %s", op.Kind())
	}
	if err := view.Apply(ClassResource, key, op); err != nil {
		t.Fatalf("apply deletion: %v", err)
	}

	state, err = view.ResourceMetadata(key)
	if err != nil {
		t.Fatalf("resource metadata after delete: %v", err)
	}
	if state.Exists() {
		t.Fatalf("expected slot gone after deletion")
	}
}

func TestViewGroupRoundTrip(t *testing.T) {
	view := newTestView(t)
	key := writeset.KeyFromString("account/bob/group")
	tagA := writeset.Tag{Address: [20]byte{1}, Module: "coin", Name: "A"}
	tagB := writeset.Tag{Address: [20]byte{1}, Module: "coin", Name: "B"}
	tagC := writeset.Tag{Address: [20]byte{1}, Module: "coin", Name: "C"}

	if err := view.PutGroupEntry(key, tagA, []byte{1}); err != nil {
		t.Fatalf("seed tag A: %v", err)
	}
	if err := view.PutGroupEntry(key, tagB, []byte{2, 2}); err != nil {
		t.Fatalf("seed tag B: %v", err)
	}
	deposit := writeset.NewSlotMetadata(100, 777)
	if err := view.SetGroupMetadata(key, &deposit); err != nil {
		t.Fatalf("stamp group: %v", err)
	}

	wantPre := mustTagSize(t, tagA) + 1 + mustTagSize(t, tagB) + 2
	preSize, err := view.GroupSize(key)
	if err != nil {
		t.Fatalf("group size: %v", err)
	}
	if preSize != wantPre {
		t.Fatalf("pre-size %d, want %d", preSize, wantPre)
	}

	converter := writeset.NewConverter(view, false)
	group, err := converter.ConvertGroup(key, map[writeset.Tag]writeset.Effect{
		tagA: writeset.DeleteValue(),
		tagC: writeset.NewValue([]byte{5, 5, 5, 5, 5}),
	})
	if err != nil {
		t.Fatalf("convert group: %v", err)
	}
	wantPost := mustTagSize(t, tagB) + 2 + mustTagSize(t, tagC) + 5
	if group.PostSize() != wantPost {
		t.Fatalf("post-size %d, want %d", group.PostSize(), wantPost)
	}
	if group.MetadataOp().Kind() != writeset.OpModificationWithMetadata {
		t.Fatalf("unexpected slot-level op %s", group.MetadataOp().Kind())
	}

	if err := view.ApplyGroup(key, group); err != nil {
		t.Fatalf("apply group: %v", err)
	}

	// The stored group now reproduces the accountant's figure exactly.
	postSize, err := view.GroupSize(key)
	if err != nil {
		t.Fatalf("group size after apply: %v", err)
	}
	if postSize != group.PostSize() {
		t.Fatalf("stored size %d, converted size %d", postSize, group.PostSize())
	}

	size, err := view.TaggedValueSize(key, tagC)
	if err != nil {
		t.Fatalf("tagged value size: %v", err)
	}
	if size != 5 {
		t.Fatalf("tag C size %d, want 5", size)
	}
	if _, err := view.TaggedValueSize(key, tagA); err == nil {
		t.Fatalf("expected tag A gone")
	}

	state, err := view.ResourceMetadata(key)
	if err != nil {
		t.Fatalf("group metadata: %v", err)
	}
	metadata, ok := state.Metadata()
	if !ok || metadata.Deposit != 100 {
		t.Fatalf("expected deposit retained, got %+v ok=%v", metadata, ok)
	}
}

func TestViewGroupDeletion(t *testing.T) {
	view := newTestView(t)
	key := writeset.KeyFromString("account/carol/group")
	tag := writeset.Tag{Address: [20]byte{2}, Module: "coin", Name: "X"}
	if err := view.PutGroupEntry(key, tag, []byte{1, 1}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	converter := writeset.NewConverter(view, false)
	group, err := converter.ConvertGroup(key, map[writeset.Tag]writeset.Effect{
		tag: writeset.DeleteValue(),
	})
	if err != nil {
		t.Fatalf("convert group: %v", err)
	}
	if !group.MetadataOp().IsDeletion() {
		t.Fatalf("expected deletion-shaped slot op, got %s", group.MetadataOp().Kind())
	}
	if err := view.ApplyGroup(key, group); err != nil {
		t.Fatalf("apply group: %v", err)
	}

	size, err := view.GroupSize(key)
	if err != nil {
		t.Fatalf("group size: %v", err)
	}
	if size != 0 {
		t.Fatalf("expected empty group, size %d", size)
	}
	state, err := view.ResourceMetadata(key)
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if state.Exists() {
		t.Fatalf("expected group slot gone")
	}
}

func TestViewChainTime(t *testing.T) {
	view := newTestView(t)
	if _, ok := view.ChainTimeMicros(); ok {
		t.Fatalf("expected clock unset")
	}
	if err := view.SetChainTimeMicros(42); err != nil {
		t.Fatalf("set chain time: %v", err)
	}
	micros, ok := view.ChainTimeMicros()
	if !ok || micros != 42 {
		t.Fatalf("chain time %d ok=%v", micros, ok)
	}
}

func TestViewNamespaceIsolation(t *testing.T) {
	view := newTestView(t)
	key := writeset.KeyFromString("0x1::coin")
	if err := view.PutModule(key, []byte{0xca, 0xfe}, nil); err != nil {
		t.Fatalf("put module: %v", err)
	}

	moduleState, err := view.ModuleMetadata(key)
	if err != nil {
		t.Fatalf("module metadata: %v", err)
	}
	if !moduleState.Exists() {
		t.Fatalf("expected module slot present")
	}
	resourceState, err := view.ResourceMetadata(key)
	if err != nil {
		t.Fatalf("resource metadata: %v", err)
	}
	if resourceState.Exists() {
		t.Fatalf("module write leaked into resource namespace")
	}
}

func TestViewAccumulatorApply(t *testing.T) {
	view := newTestView(t)
	key := writeset.KeyFromString("supply/total")
	if err := view.PutAccumulator(key, make([]byte, 32), nil); err != nil {
		t.Fatalf("seed accumulator: %v", err)
	}

	converter := writeset.NewConverter(view, false)
	op, err := converter.ConvertAccumulatorValue(key, uint256.NewInt(1234))
	if err != nil {
		t.Fatalf("convert accumulator: %v", err)
	}
	if op.Kind() != writeset.OpModification {
		t.Fatalf("unexpected op kind %s", op.Kind())
	}
	if err := view.Apply(ClassAccumulator, key, op); err != nil {
		t.Fatalf("apply accumulator: %v", err)
	}

	slot, ok, err := view.loadSlot(accumulatorPrefix, key)
	if err != nil || !ok {
		t.Fatalf("load accumulator: ok=%v err=%v", ok, err)
	}
	want := uint256.NewInt(1234).Bytes32()
	if !bytes.Equal(slot.Data, want[:]) {
		t.Fatalf("stored %x, want %x", slot.Data, want)
	}
}

func TestViewUninitialised(t *testing.T) {
	var view *View
	if _, err := view.ResourceMetadata(writeset.KeyFromString("x")); err == nil {
		t.Fatalf("expected error from nil view")
	}
	var zero View
	if err := zero.SetChainTimeMicros(1); err == nil {
		t.Fatalf("expected error from zero view")
	}
}

func TestViewMissingGroupSizeIsZero(t *testing.T) {
	view := newTestView(t)
	size, err := view.GroupSize(writeset.KeyFromString("group/none"))
	if err != nil {
		t.Fatalf("group size: %v", err)
	}
	if size != 0 {
		t.Fatalf("expected zero size, got %d", size)
	}
	if _, err := view.TaggedValueSize(writeset.KeyFromString("group/none"), writeset.Tag{}); err == nil {
		t.Fatalf("expected error for missing group")
	}
}
