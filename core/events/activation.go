package events

const KindActivation Kind = "button.activation"

// Activation is one debounced button press. It is immutable and consumed by
// exactly one pipeline run (or dropped, per the overlap policy).
type Activation struct {
	Base
	Seq uint64
}

func NewActivation(seq uint64) Activation {
	return Activation{Base: NewBase(KindActivation), Seq: seq}
}
