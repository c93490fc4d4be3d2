// Package sim is a small planar stand-in for the physics engine: a track of
// checkpoints and circular obstacles, point-mass cars and raycast sensors.
package sim

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"trackevo/internal/config"
)

// Obstacle is a circular obstacle
type Obstacle struct {
	Center r2.Vec
	Radius float64
}

// Pose is a position and heading in degrees (0 = +X, counter-clockwise).
type Pose struct {
	Position r2.Vec
	Heading  float64
}

// Forward returns the unit heading vector.
func (p Pose) Forward() r2.Vec {
	return direction(p.Heading)
}

// Track is the course layout
type Track struct {
	Checkpoints      []r2.Vec
	CheckpointRadius float64
	Obstacles        []Obstacle
	Spawns           []Pose
}

// NewTrack builds a track from config, laying spawn slots out in a grid of
// Columns per row behind the start pose.
func NewTrack(cfg config.TrackConfig) *Track {
	t := &Track{
		Checkpoints:      make([]r2.Vec, len(cfg.Checkpoints)),
		CheckpointRadius: cfg.CheckpointRadius,
		Obstacles:        make([]Obstacle, len(cfg.Obstacles)),
	}
	for i, p := range cfg.Checkpoints {
		t.Checkpoints[i] = r2.Vec{X: p.X, Y: p.Y}
	}
	for i, o := range cfg.Obstacles {
		t.Obstacles[i] = Obstacle{Center: r2.Vec{X: o.X, Y: o.Y}, Radius: o.Radius}
	}

	s := cfg.Spawn
	columns := s.Columns
	if columns <= 0 {
		columns = 1
	}
	forward := direction(s.Heading)
	right := direction(s.Heading - 90)
	origin := r2.Vec{X: s.X, Y: s.Y}
	for i := 0; i < s.Slots; i++ {
		row, col := i/columns, i%columns
		offset := r2.Add(r2.Scale(float64(col)*s.Spacing, right), r2.Scale(-float64(row)*s.Spacing, forward))
		t.Spawns = append(t.Spawns, Pose{Position: r2.Add(origin, offset), Heading: s.Heading})
	}
	return t
}

// ShuffledSpawns returns the first n spawn slots after a random shuffle.
func (t *Track) ShuffledSpawns(n int, rng *rand.Rand) []Pose {
	poses := append([]Pose(nil), t.Spawns...)
	rng.Shuffle(len(poses), func(i, j int) { poses[i], poses[j] = poses[j], poses[i] })
	if n < len(poses) {
		poses = poses[:n]
	}
	return poses
}

// Positions returns the positions of poses.
func Positions(poses []Pose) []r2.Vec {
	out := make([]r2.Vec, len(poses))
	for i, p := range poses {
		out[i] = p.Position
	}
	return out
}

// Collides reports whether a disc of radius r at p overlaps any obstacle.
func (t *Track) Collides(p r2.Vec, r float64) bool {
	for _, o := range t.Obstacles {
		if r2.Norm(r2.Sub(p, o.Center)) < o.Radius+r {
			return true
		}
	}
	return false
}

// Touched returns the indices of checkpoints within reach of a disc of radius r at p.
func (t *Track) Touched(p r2.Vec, r float64) []int {
	var hits []int
	for i, c := range t.Checkpoints {
		if r2.Norm(r2.Sub(p, c)) <= t.CheckpointRadius+r {
			hits = append(hits, i)
		}
	}
	return hits
}

func direction(deg float64) r2.Vec {
	rad := deg * math.Pi / 180
	return r2.Vec{X: math.Cos(rad), Y: math.Sin(rad)}
}
