package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Sensors casts rays at fixed angles relative to the heading.
type Sensors struct {
	Angles []float64 // degrees, positive turns left
	Range  float64
}

// NumInputs returns the length of the sensor vector.
func (s Sensors) NumInputs() int {
	return len(s.Angles)
}

// Read fills buf with one reading per ray: 1 at contact falling to 0 at
// Range, or 0 when nothing is hit. buf must have NumInputs elements.
func (s Sensors) Read(pose Pose, t *Track, buf []float64) []float64 {
	for i, angle := range s.Angles {
		dir := direction(pose.Heading + angle)
		hit, ok := t.Raycast(pose.Position, dir, s.Range)
		if ok {
			buf[i] = 1 - hit/s.Range
		} else {
			buf[i] = 0
		}
	}
	return buf
}

// Raycast returns the distance along the unit vector dir to the nearest
// obstacle within maxDist.
func (t *Track) Raycast(origin, dir r2.Vec, maxDist float64) (float64, bool) {
	best := math.Inf(1)
	for _, o := range t.Obstacles {
		if d, ok := rayCircle(origin, dir, o.Center, o.Radius); ok && d < best {
			best = d
		}
	}
	if best > maxDist {
		return 0, false
	}
	return best, true
}

// rayCircle intersects a ray with a circle. An origin inside the circle hits at 0.
func rayCircle(origin, dir, center r2.Vec, radius float64) (float64, bool) {
	oc := r2.Sub(origin, center)
	b := r2.Dot(oc, dir)
	c := r2.Dot(oc, oc) - radius*radius
	if c <= 0 {
		return 0, true
	}
	disc := b*b - c
	if disc < 0 || b > 0 {
		return 0, false
	}
	return -b - math.Sqrt(disc), true
}
