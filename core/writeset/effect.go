package writeset

// EffectKind enumerates the abstract storage effects produced by executing
// a transaction against the virtual machine.
type EffectKind uint8

const (
	EffectNew EffectKind = iota + 1
	EffectModify
	EffectDelete
)

func (k EffectKind) String() string {
	switch k {
	case EffectNew:
		return "new"
	case EffectModify:
		return "modify"
	case EffectDelete:
		return "delete"
	}
	return "unknown"
}

// TypeLayout is an opaque description of a value's runtime layout. The
// conversion layer never inspects it; it is carried through unchanged for
// downstream transcoding.
type TypeLayout struct {
	Descriptor string
}

// Effect is one abstract storage effect against one slot (or one tag within
// a group): a creation or modification carrying the new payload, or a
// deletion. The layout hint is optional and only attached by the VM when a
// value needs transcoding later.
type Effect struct {
	Kind   EffectKind
	Data   []byte
	Layout *TypeLayout
}

func NewValue(data []byte) Effect {
	return Effect{Kind: EffectNew, Data: data}
}

func NewValueWithLayout(data []byte, layout *TypeLayout) Effect {
	return Effect{Kind: EffectNew, Data: data, Layout: layout}
}

func ModifyValue(data []byte) Effect {
	return Effect{Kind: EffectModify, Data: data}
}

func ModifyValueWithLayout(data []byte, layout *TypeLayout) Effect {
	return Effect{Kind: EffectModify, Data: data, Layout: layout}
}

func DeleteValue() Effect {
	return Effect{Kind: EffectDelete}
}
