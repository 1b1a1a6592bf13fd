package scriptlib

// CollisionEvent reports two actors starting or ending contact.
type CollisionEvent struct {
	Object1 Entity
	Object2 Entity
	Start   bool
}

// Other returns the participant that is not self, or Object2 when self is
// neither.
func (c CollisionEvent) Other(self Entity) Entity {
	if c.Object2 == self {
		return c.Object1
	}
	return c.Object2
}

// TriggerEvent reports an actor entering or leaving a trigger volume.
type TriggerEvent struct {
	Trigger Entity
	Actor   Entity
	Enter   bool
}

// RaycastHit is the first object hit by a ray.
type RaycastHit struct {
	Object   Entity
	Distance float32
}
