package omnibridge

import "time"

// Stage identifies a phase of the per-invocation state machine.
type Stage string

const (
	// StageValidate covers coercion and schema validation.
	StageValidate Stage = "validate"
	// StageCache covers the read-path cache check.
	StageCache Stage = "cache"
	// StageBuild covers script construction.
	StageBuild Stage = "build"
	// StageExecute covers the external script execution.
	StageExecute Stage = "execute"
	// StageInvalidate covers post-mutation cache invalidation.
	StageInvalidate Stage = "invalidate"
	// StageFormat covers response assembly.
	StageFormat Stage = "format"
)

// Invocation tracks one request through the dispatch state machine:
// validate -> (read: cache -> build -> execute) / (write: build -> execute
// -> invalidate) -> format. It records where time is spent and where a
// failure occurred.
type Invocation struct {
	Entity    string
	Operation string
	Started   time.Time

	current     Stage
	stageStarts map[Stage]time.Time
	durations   map[Stage]time.Duration
}

// NewInvocation starts tracking a request against the given entity/operation.
func NewInvocation(entity, operation string) *Invocation {
	inv := &Invocation{
		Entity:      entity,
		Operation:   operation,
		Started:     time.Now(),
		stageStarts: make(map[Stage]time.Time),
		durations:   make(map[Stage]time.Duration),
	}
	inv.Advance(StageValidate)
	return inv
}

// Advance closes the current stage and opens the next one.
func (inv *Invocation) Advance(next Stage) {
	now := time.Now()
	if inv.current != "" {
		if start, ok := inv.stageStarts[inv.current]; ok {
			inv.durations[inv.current] += now.Sub(start)
		}
	}
	inv.current = next
	inv.stageStarts[next] = now
}

// Stage returns the phase the invocation is currently in. When a failure is
// reported this is the stage it occurred in.
func (inv *Invocation) Stage() Stage { return inv.current }

// StageDuration returns the accumulated time spent in the given stage.
func (inv *Invocation) StageDuration(stage Stage) time.Duration {
	d := inv.durations[stage]
	if inv.current == stage {
		if start, ok := inv.stageStarts[stage]; ok {
			d += time.Since(start)
		}
	}
	return d
}

// Elapsed returns the total wall time since the invocation started.
func (inv *Invocation) Elapsed() time.Duration {
	return time.Since(inv.Started)
}

// Fail annotates a BridgeError with the stage it occurred in and returns it.
func (inv *Invocation) Fail(err *BridgeError) *BridgeError {
	if err.Details == nil {
		err.Details = make(map[string]interface{})
	}
	if _, exists := err.Details["stage"]; !exists {
		err.Details["stage"] = string(inv.current)
	}
	if err.Op == "" {
		err.Op = inv.Entity + "." + inv.Operation
	}
	return err
}
