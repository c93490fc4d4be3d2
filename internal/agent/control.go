package agent

import (
	"errors"

	"trackevo/internal/nn"
)

// ErrNoOutputs is returned when a network produces no outputs.
var ErrNoOutputs = errors.New("network has no outputs")

// Control is the action handed to the physics harness.
type Control struct {
	Steer    float64 // unconstrained, scaled by the harness rotation speed
	Throttle float64 // [0, 1]
}

// ControlFromOutputs maps raw network outputs to a Control.
// A single output steers with full throttle.
func ControlFromOutputs(outputs []float64) (Control, error) {
	switch len(outputs) {
	case 0:
		return Control{}, ErrNoOutputs
	case 1:
		return Control{Steer: outputs[0], Throttle: 1}, nil
	default:
		return Control{Steer: outputs[0], Throttle: nn.Clamp(outputs[1], 0, 1)}, nil
	}
}
