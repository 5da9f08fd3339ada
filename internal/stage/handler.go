package stage

import "context"

// Handler is the contract every pipeline stage implements. Eligible returns
// the rows the stage may process right now; Process handles one of them.
//
// Eligibility is the claim mechanism. There are no cross-stage locks, so
// Process must advance status with a guarded update and treat a lost guard as
// a no-op, not an error.
type Handler[T any] interface {
	Name() string
	Eligible(ctx context.Context, limit int) ([]T, error)
	Process(ctx context.Context, item T) error
}

// Result aggregates one stage invocation.
type Result struct {
	Stage     string
	Attempted int
	Succeeded int
	Failed    int
}

// Merge folds another stage's counts into an aggregate.
func (r *Result) Merge(other Result) {
	r.Attempted += other.Attempted
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
}
