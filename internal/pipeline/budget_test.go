package pipeline

import (
	"testing"
	"time"
)

func TestBudgetAdmit(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		need    time.Duration
		want    bool
	}{
		{"fresh budget admits ocr", 0, CostOCR, true},
		{"room to spare", 5 * time.Second, CostDirectory, true},
		{"exactly need plus safety is refused", 11 * time.Second, CostDirectory, false},
		{"just under the line is refused", 12 * time.Second, CostDirectory, false},
		{"exhausted budget refuses everything", 16 * time.Second, CostStorageWrite, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBudget(15*time.Second, 10*time.Second)
			b.start = time.Now().Add(-tt.elapsed)

			if got := b.Admit(tt.need, SafetyMargin); got != tt.want {
				t.Errorf("Admit(%v, %v) with %v elapsed = %t, want %t",
					tt.need, SafetyMargin, tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestBudgetRemainingClampsAtZero(t *testing.T) {
	b := NewBudget(15*time.Second, 10*time.Second)
	b.start = time.Now().Add(-20 * time.Second)

	if got := b.Remaining(); got != 0 {
		t.Errorf("Remaining() after overrun = %v, want 0", got)
	}
	if got := b.RemainingDirectory(); got != 0 {
		t.Errorf("RemainingDirectory() after overrun = %v, want 0", got)
	}
}

func TestBudgetDirectorySubBudget(t *testing.T) {
	b := NewBudget(15*time.Second, 10*time.Second)
	b.start = time.Now().Add(-4 * time.Second)

	remaining := b.RemainingDirectory()
	if remaining > 6*time.Second || remaining < 5*time.Second {
		t.Errorf("RemainingDirectory() = %v, want about 6s", remaining)
	}

	// The sub-budget must always leave room for downstream stages.
	if overall := b.Remaining(); overall-remaining < 4*time.Second {
		t.Errorf("directory budget leaves only %v for downstream stages", overall-remaining)
	}
}

func TestBudgetReset(t *testing.T) {
	b := NewBudget(15*time.Second, 10*time.Second)
	b.start = time.Now().Add(-14 * time.Second)

	if b.Admit(CostOCR, SafetyMargin) {
		t.Fatal("expected depleted budget to refuse")
	}

	b.Reset()

	if !b.Admit(CostOCR, SafetyMargin) {
		t.Error("expected reset budget to admit")
	}
}
