package sim

import (
	"gonum.org/v1/gonum/spatial/r2"

	"trackevo/internal/agent"
)

// Physics holds the car dynamics constants
type Physics struct {
	Acceleration  float64 // units/s^2 at full throttle
	RotationSpeed float64 // degrees/s at steer = 1
	Drag          float64 // fraction of velocity lost per second
}

// Body is the physical state of one car.
type Body struct {
	Pose
	Velocity r2.Vec
}

// Speed returns the velocity magnitude.
func (b *Body) Speed() float64 {
	return r2.Norm(b.Velocity)
}

// Apply integrates one fixed step: rotate by steer, push along the new
// heading by throttle, then apply drag and move.
func (b *Body) Apply(c agent.Control, dt float64, p Physics) {
	b.Heading += c.Steer * p.RotationSpeed * dt
	b.Velocity = r2.Add(b.Velocity, r2.Scale(c.Throttle*p.Acceleration*dt, b.Forward()))

	damping := 1 - p.Drag*dt
	if damping < 0 {
		damping = 0
	}
	b.Velocity = r2.Scale(damping, b.Velocity)
	b.Position = r2.Add(b.Position, r2.Scale(dt, b.Velocity))
}
