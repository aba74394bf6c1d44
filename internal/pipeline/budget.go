package pipeline

import "time"

// Estimated stage costs used by the admission gate.
const (
	CostOCR           = 2 * time.Second
	CostDirectory     = 3 * time.Second
	CostFaceDetection = 3 * time.Second
	CostFaceIndex     = 2 * time.Second
	CostFaceSearch    = 3 * time.Second
	CostSessionIssue  = 2 * time.Second
	CostStorageWrite  = 1 * time.Second
	CostLivenessCheck = 2 * time.Second

	SafetyMargin = 1 * time.Second
)

// Budget tracks elapsed time for one request against two limits: the overall
// request budget and a directory sub-budget that keeps room for the stages
// after directory I/O. Timeouts here are cooperative gates: a stage is
// refused before it starts, never interrupted while running.
type Budget struct {
	start     time.Time
	overall   time.Duration
	directory time.Duration
}

func NewBudget(overall, directory time.Duration) *Budget {
	return &Budget{
		start:     time.Now(),
		overall:   overall,
		directory: directory,
	}
}

func (b *Budget) Elapsed() time.Duration {
	return time.Since(b.start)
}

func (b *Budget) Remaining() time.Duration {
	r := b.overall - b.Elapsed()
	if r < 0 {
		return 0
	}
	return r
}

func (b *Budget) RemainingDirectory() time.Duration {
	r := b.directory - b.Elapsed()
	if r < 0 {
		return 0
	}
	return r
}

// Admit reports whether a stage with the given estimated cost may start.
// The comparison is strict: a stage that would consume exactly the remaining
// budget is refused.
func (b *Budget) Admit(need, safety time.Duration) bool {
	return b.Remaining() > need+safety
}

// Reset restarts the clock; reserved for long-running handlers that span
// multiple requests.
func (b *Budget) Reset() {
	b.start = time.Now()
}

func (b *Budget) ProcessingTime() float64 {
	return b.Elapsed().Seconds()
}
