package agent

import "fmt"

// Status is the lifecycle state of an agent within a round.
type Status int

const (
	StatusActive   Status = iota
	StatusDead            // collided or timed out
	StatusFinished        // passed the last checkpoint
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusDead:
		return "dead"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Terminal reports whether the agent is done for the round.
func (s Status) Terminal() bool {
	return s != StatusActive
}

// DeathReason explains a transition to StatusDead.
type DeathReason int

const (
	DeathNone      DeathReason = iota
	DeathCollision             // hit an obstacle
	DeathTimeout               // no checkpoint for too long
	DeathKilled                // terminated by the harness
)

func (d DeathReason) String() string {
	switch d {
	case DeathNone:
		return "none"
	case DeathCollision:
		return "collision"
	case DeathTimeout:
		return "timeout"
	case DeathKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// Policy selects how per-step fitness is computed.
type Policy int

const (
	// PolicyDistance accumulates distance travelled.
	PolicyDistance Policy = iota
	// PolicyTargetProgress scores progress toward the current checkpoint.
	PolicyTargetProgress
)

func (p Policy) String() string {
	switch p {
	case PolicyDistance:
		return "distance"
	case PolicyTargetProgress:
		return "target_progress"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a config name to a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "distance":
		return PolicyDistance, nil
	case "target_progress":
		return PolicyTargetProgress, nil
	default:
		return 0, fmt.Errorf("unknown fitness policy %q", name)
	}
}
