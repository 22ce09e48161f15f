package experiment

import (
	"fmt"
	"math"
	"sync"
)

// Observer is told about progress after every Run. Implementations must not
// block; they have no way to influence results.
type Observer interface {
	OnProgress(completed, total int, label string)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(completed, total int, label string)

// OnProgress calls f.
func (f ObserverFunc) OnProgress(completed, total int, label string) {
	f(completed, total, label)
}

// Observers fans progress out to several observers in order.
type Observers []Observer

// OnProgress notifies every observer.
func (o Observers) OnProgress(completed, total int, label string) {
	for _, obs := range o {
		if obs != nil {
			obs.OnProgress(completed, total, label)
		}
	}
}

// syncObserver serializes calls coming from worker goroutines.
type syncObserver struct {
	mu  sync.Mutex
	obs Observer
}

func (s *syncObserver) OnProgress(completed, total int, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obs.OnProgress(completed, total, label)
}

// ProgressColor maps completion onto a red -> yellow -> green gradient.
// Green rises 0 -> 255 over the first half, red falls 255 -> 0 over the
// second half, blue stays 0. Halves round to even.
func ProgressColor(completed, total int) string {
	p := 1.0
	if total > 0 {
		p = float64(completed) / float64(total)
	}
	p = math.Max(0, math.Min(1, p))

	red, green := 255, 255
	if 1-p <= 0.5 {
		red = int(math.RoundToEven((1 - p) * 510))
	}
	if p <= 0.5 {
		green = int(math.RoundToEven(p * 510))
	}
	return fmt.Sprintf("#%02x%02x00", red, green)
}

// TrialLabel is the progress description for a trial.
func TrialLabel(trial, trials int) string {
	return fmt.Sprintf("On Trial %d/%d", trial, trials)
}
