package types

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// HealthState is the coarse health of a dependency such as the graph
// database or the run history store. States are ordered healthy, degraded,
// unhealthy.
type HealthState string

const (
	HealthStateHealthy   HealthState = "healthy"
	HealthStateDegraded  HealthState = "degraded"
	HealthStateUnhealthy HealthState = "unhealthy"
)

func (s HealthState) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known states.
func (s HealthState) IsValid() bool {
	return s.severity() >= 0
}

// Worse returns whichever of s and other is less healthy. Unknown states
// count as unhealthy.
func (s HealthState) Worse(other HealthState) HealthState {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

func (s HealthState) severity() int {
	switch s {
	case HealthStateHealthy:
		return 0
	case HealthStateDegraded:
		return 1
	case HealthStateUnhealthy:
		return 2
	default:
		return -1
	}
}

func (s HealthState) rank() int {
	if r := s.severity(); r >= 0 {
		return r
	}
	return HealthStateUnhealthy.severity()
}

func (s *HealthState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	state := HealthState(str)
	if !state.IsValid() {
		return fmt.Errorf("invalid health state: %s", str)
	}
	*s = state
	return nil
}

// HealthStatus is one timed health observation.
type HealthStatus struct {
	State     HealthState   `json:"state"`
	Message   string        `json:"message,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
	Latency   time.Duration `json:"latency,omitempty"`
}

func Healthy(message string) HealthStatus {
	return HealthStatus{State: HealthStateHealthy, Message: message, CheckedAt: time.Now()}
}

func Unhealthy(message string) HealthStatus {
	return HealthStatus{State: HealthStateUnhealthy, Message: message, CheckedAt: time.Now()}
}

func (h HealthStatus) IsHealthy() bool {
	return h.State == HealthStateHealthy
}

// Probe runs check and reports its outcome and duration. A failing check is
// unhealthy with the error as message; a passing one carries okMessage.
func Probe(ctx context.Context, okMessage string, check func(context.Context) error) HealthStatus {
	start := time.Now()
	err := check(ctx)
	status := HealthStatus{
		State:     HealthStateHealthy,
		Message:   okMessage,
		CheckedAt: start,
		Latency:   time.Since(start),
	}
	if err != nil {
		status.State = HealthStateUnhealthy
		status.Message = err.Error()
	}
	return status
}
