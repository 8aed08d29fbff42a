package agent

import "time"

// Observer receives agent lifecycle signals. The metrics package provides a
// Prometheus implementation. Implementations must be safe for concurrent use;
// researchers report from their own goroutines.
type Observer interface {
	SupervisorRound(iteration int)
	ResearcherStarted()
	ResearcherFinished(d time.Duration, err error)
	ToolCalled(toolName string, d time.Duration, err error)
}

// NoOpObserver discards all signals.
type NoOpObserver struct{}

func (NoOpObserver) SupervisorRound(int)                     {}
func (NoOpObserver) ResearcherStarted()                      {}
func (NoOpObserver) ResearcherFinished(time.Duration, error) {}
func (NoOpObserver) ToolCalled(string, time.Duration, error) {}

func orNoOpObserver(o Observer) Observer {
	if o == nil {
		return NoOpObserver{}
	}

	return o
}
