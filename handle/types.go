package handle

import (
	"fmt"

	"github.com/wippyai/scriptlib/native"
)

// Ref is the binding-side reference to an issued native object.
// The zero Ref is reserved and always invalid.
type Ref struct {
	Index uint32
	Gen   uint32
}

// IsZero reports whether r is the reserved zero Ref.
func (r Ref) IsZero() bool {
	return r.Index == 0
}

func (r Ref) String() string {
	return fmt.Sprintf("ref#%d.%d", r.Index, r.Gen)
}

// Kind tags what a Ref addresses. The table itself carries no type
// information beyond this tag; the proxy wrapping a Ref supplies the rest.
type Kind uint8

const (
	KindEntity Kind = iota + 1
	KindComponent
	KindCollider
	KindAsset
	KindAudioInstance
)

func (k Kind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindComponent:
		return "component"
	case KindCollider:
		return "collider"
	case KindAsset:
		return "asset"
	case KindAudioInstance:
		return "audio-instance"
	default:
		return "unknown"
	}
}

// Key identifies one issued object. Tag distinguishes objects that share a
// native handle, such as the components of an engine that addresses every
// component through its entity handle.
type Key struct {
	Handle native.Handle
	Kind   Kind
	Tag    uint32
}

// Entry is what a live Ref resolves to.
type Entry struct {
	Key
	// Owner is the entity whose destruction also invalidates this entry.
	Owner native.Handle
}

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventIssued EventType = iota
	EventInvalidated
)

// Event represents a handle lifecycle event.
type Event struct {
	Entry Entry
	Ref   Ref
	Type  EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}
