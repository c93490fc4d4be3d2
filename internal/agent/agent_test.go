package agent

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"trackevo/internal/nn"
)

func newBrain(t *testing.T) *nn.Network {
	t.Helper()
	brain, err := nn.NewNetwork([]int{5, 10, 10, 2}, nn.DefaultInitRange, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewNetwork: %v", err)
	}
	return brain
}

func quietParams(policy Policy) Params {
	p := DefaultParams()
	p.Policy = policy
	p.TimeoutSeconds = 0
	p.TimeDecay = 0
	p.LowSpeedPenalty = 0
	return p
}

func TestNewRequiresBrain(t *testing.T) {
	if _, err := New(0, nil, r2.Vec{}, nil, DefaultParams()); !errors.Is(err, ErrNoBrain) {
		t.Errorf("New(nil brain) error = %v, want ErrNoBrain", err)
	}
}

func TestNoCheckpointsFallsBackToDistance(t *testing.T) {
	a, err := New(0, newBrain(t), r2.Vec{}, nil, quietParams(PolicyTargetProgress))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Policy() != PolicyDistance {
		t.Errorf("policy = %v, want distance", a.Policy())
	}
}

func TestDistancePolicyThreshold(t *testing.T) {
	a, _ := New(0, newBrain(t), r2.Vec{}, nil, quietParams(PolicyDistance))

	a.Step(Observation{DeltaTime: 0.02, Position: r2.Vec{X: 0.005}, Speed: 1})
	if a.Fitness() != 0 {
		t.Errorf("fitness after 0.005 move = %f, want 0", a.Fitness())
	}

	a.Step(Observation{DeltaTime: 0.02, Position: r2.Vec{X: 1.005}, Speed: 1})
	if math.Abs(a.Fitness()-1) > 1e-9 {
		t.Errorf("fitness after 1.0 move = %f, want 1", a.Fitness())
	}
	if a.Brain.Fitness != a.Fitness() {
		t.Errorf("brain fitness = %f, want %f", a.Brain.Fitness, a.Fitness())
	}
}

func TestTargetProgressPolicy(t *testing.T) {
	checkpoints := []r2.Vec{{X: 10}}
	a, _ := New(0, newBrain(t), r2.Vec{}, checkpoints, DefaultParams())

	a.Step(Observation{DeltaTime: 0, Position: r2.Vec{X: 6}, Speed: 5})
	if math.Abs(a.Fitness()-6) > 1e-9 {
		t.Errorf("fitness = %f, want 6", a.Fitness())
	}

	// Regressing lowers fitness; it is recomputed, not accumulated.
	a.Step(Observation{DeltaTime: 0, Position: r2.Vec{X: 2}, Speed: 5})
	if math.Abs(a.Fitness()-2) > 1e-9 {
		t.Errorf("fitness after regress = %f, want 2", a.Fitness())
	}

	// Moving away from the target never scores below zero progress.
	a.Step(Observation{DeltaTime: 0, Position: r2.Vec{X: -5}, Speed: 5})
	if a.Fitness() != 0 {
		t.Errorf("fitness behind start = %f, want 0", a.Fitness())
	}
}

func TestTargetProgressPenalties(t *testing.T) {
	p := DefaultParams()
	p.TimeoutSeconds = 0
	p.TimeDecay = 0.5
	p.LowSpeedThreshold = 0.1
	p.LowSpeedPenalty = 2

	a, _ := New(0, newBrain(t), r2.Vec{}, []r2.Vec{{X: 10}}, p)
	a.Step(Observation{DeltaTime: 2, Position: r2.Vec{X: 4}, Speed: 0.05})

	// 4 progress - 0.5*2 decay - 2 stall penalty
	if math.Abs(a.Fitness()-1) > 1e-9 {
		t.Errorf("fitness = %f, want 1", a.Fitness())
	}
}

func TestCheckpointAdvanceOnlyOnCurrentTarget(t *testing.T) {
	checkpoints := []r2.Vec{{X: 10}, {X: 20}, {X: 30}}
	p := quietParams(PolicyTargetProgress)
	a, _ := New(0, newBrain(t), r2.Vec{}, checkpoints, p)

	// Touching a future checkpoint is ignored.
	a.Step(Observation{DeltaTime: 0.1, Position: r2.Vec{X: 5}, Speed: 1, Touched: []int{2}})
	if a.CheckpointIndex() != 0 {
		t.Fatalf("checkpoint index = %d after touching future checkpoint, want 0", a.CheckpointIndex())
	}

	a.Step(Observation{DeltaTime: 0.1, Position: r2.Vec{X: 10}, Speed: 1, Touched: []int{0}})
	if a.CheckpointIndex() != 1 {
		t.Fatalf("checkpoint index = %d, want 1", a.CheckpointIndex())
	}
	// Bonus only; reference distance reset to current distance from the new target.
	if math.Abs(a.Fitness()-p.CheckpointBonus) > 1e-9 {
		t.Errorf("fitness = %f, want %f", a.Fitness(), p.CheckpointBonus)
	}

	// Touching the passed checkpoint again changes nothing.
	a.Step(Observation{DeltaTime: 0.1, Position: r2.Vec{X: 10}, Speed: 1, Touched: []int{0}})
	if a.CheckpointIndex() != 1 {
		t.Errorf("checkpoint index = %d after re-touch, want 1", a.CheckpointIndex())
	}
	if math.Abs(a.Fitness()-p.CheckpointBonus) > 1e-9 {
		t.Errorf("fitness after re-touch = %f, want %f", a.Fitness(), p.CheckpointBonus)
	}
}

func TestOneAdvancePerStep(t *testing.T) {
	checkpoints := []r2.Vec{{X: 10}, {X: 10.5}, {X: 30}}
	for _, touched := range [][]int{{0, 1}, {1, 0}} {
		a, _ := New(0, newBrain(t), r2.Vec{}, checkpoints, quietParams(PolicyTargetProgress))
		a.Step(Observation{DeltaTime: 0.1, Position: r2.Vec{X: 10}, Speed: 1, Touched: touched})
		if a.CheckpointIndex() != 1 {
			t.Errorf("touched %v: checkpoint index = %d, want 1", touched, a.CheckpointIndex())
		}
	}
}

func TestFinishAfterLastCheckpoint(t *testing.T) {
	checkpoints := []r2.Vec{{X: 10}, {X: 20}}
	p := quietParams(PolicyTargetProgress)
	a, _ := New(0, newBrain(t), r2.Vec{}, checkpoints, p)

	a.Step(Observation{DeltaTime: 0.1, Position: r2.Vec{X: 10}, Speed: 1, Touched: []int{0}})
	status := a.Step(Observation{DeltaTime: 0.1, Position: r2.Vec{X: 20}, Speed: 1, Touched: []int{1}})

	if status != StatusFinished {
		t.Fatalf("status = %v, want finished", status)
	}
	want := 2*p.CheckpointBonus + p.FinishBonus
	if math.Abs(a.Brain.Fitness-want) > 1e-9 {
		t.Errorf("brain fitness = %f, want %f", a.Brain.Fitness, want)
	}

	// Terminal agents are inert.
	a.Step(Observation{DeltaTime: 5, Position: r2.Vec{X: 100}, Collided: true})
	if a.Status() != StatusFinished || a.Brain.Fitness != want {
		t.Error("finished agent changed after further steps")
	}
	ctrl, err := a.Control(make([]float64, 5))
	if err != nil || ctrl != (Control{}) {
		t.Errorf("Control on finished agent = %+v, %v; want zero", ctrl, err)
	}
}

func TestCollisionKills(t *testing.T) {
	a, _ := New(0, newBrain(t), r2.Vec{}, nil, quietParams(PolicyDistance))
	a.Step(Observation{DeltaTime: 0.1, Position: r2.Vec{X: 2}, Speed: 1})
	status := a.Step(Observation{DeltaTime: 0.1, Position: r2.Vec{X: 3}, Speed: 1, Collided: true})

	if status != StatusDead || a.DeathReason() != DeathCollision {
		t.Fatalf("status = %v (%v), want dead by collision", status, a.DeathReason())
	}
	if math.Abs(a.Brain.Fitness-3) > 1e-9 {
		t.Errorf("brain fitness = %f, want 3", a.Brain.Fitness)
	}
}

func TestCheckpointTimeout(t *testing.T) {
	p := quietParams(PolicyTargetProgress)
	p.TimeoutSeconds = 1
	p.TimeoutPenalty = 50
	a, _ := New(0, newBrain(t), r2.Vec{}, []r2.Vec{{X: 10}}, p)

	a.Step(Observation{DeltaTime: 0.6, Position: r2.Vec{X: 3}, Speed: 1})
	if a.Status() != StatusActive {
		t.Fatalf("status = %v before timeout, want active", a.Status())
	}
	a.Step(Observation{DeltaTime: 0.6, Position: r2.Vec{X: 4}, Speed: 1})

	if a.Status() != StatusDead || a.DeathReason() != DeathTimeout {
		t.Fatalf("status = %v (%v), want dead by timeout", a.Status(), a.DeathReason())
	}
	if math.Abs(a.Brain.Fitness-(4-50)) > 1e-9 {
		t.Errorf("brain fitness = %f, want %f", a.Brain.Fitness, 4.0-50)
	}
}

func TestCheckpointResetsTimeout(t *testing.T) {
	p := quietParams(PolicyTargetProgress)
	p.TimeoutSeconds = 1
	a, _ := New(0, newBrain(t), r2.Vec{}, []r2.Vec{{X: 10}, {X: 20}}, p)

	a.Step(Observation{DeltaTime: 0.9, Position: r2.Vec{X: 10}, Speed: 1, Touched: []int{0}})
	a.Step(Observation{DeltaTime: 0.9, Position: r2.Vec{X: 12}, Speed: 1})
	if a.Status() != StatusActive {
		t.Errorf("status = %v, want active after checkpoint reset the timer", a.Status())
	}
}

func TestKill(t *testing.T) {
	a, _ := New(0, newBrain(t), r2.Vec{}, nil, quietParams(PolicyDistance))
	a.Kill()
	if a.Status() != StatusDead || a.DeathReason() != DeathKilled {
		t.Errorf("status = %v (%v), want dead by kill", a.Status(), a.DeathReason())
	}
}

func TestControlFromOutputs(t *testing.T) {
	tests := []struct {
		name    string
		outputs []float64
		want    Control
		wantErr bool
	}{
		{"two outputs", []float64{-0.4, 0.7}, Control{Steer: -0.4, Throttle: 0.7}, false},
		{"negative throttle clamped", []float64{0.2, -0.9}, Control{Steer: 0.2, Throttle: 0}, false},
		{"single output fallback", []float64{0.3}, Control{Steer: 0.3, Throttle: 1}, false},
		{"extra outputs ignored", []float64{0.1, 0.2, 0.9}, Control{Steer: 0.1, Throttle: 0.2}, false},
		{"no outputs", nil, Control{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ControlFromOutputs(tt.outputs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{PolicyDistance, PolicyTargetProgress} {
		got, err := ParsePolicy(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePolicy(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParsePolicy("speed"); err == nil {
		t.Error("ParsePolicy(speed) succeeded, want error")
	}
}
