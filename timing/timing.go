// Package timing measures how long a statement takes to run. A Timer
// calibrates how many executions make up one trial, then runs a number of
// independent trials, each on freshly prepared inputs.
package timing

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"time"
)

const (
	// DefaultRepeats is the number of trials when none is requested.
	DefaultRepeats = 10

	// DefaultMinDuration is the trial length calibration aims for.
	DefaultMinDuration = 200 * time.Millisecond

	// DefaultMaxNumber caps calibration when a statement never reaches the
	// minimum duration.
	DefaultMaxNumber = 1 << 30

	// MinNumber is the smallest execution count used for a trial.
	MinNumber = 2
)

// Statement is the code under measurement.
type Statement func() error

// Setup prepares a fresh Statement for one trial. Its cost is not measured.
type Setup func() (Statement, error)

// Timer runs a statement under a setup.
type Timer struct {
	Setup Setup

	// MinDuration is the shortest trial Autorange accepts.
	MinDuration time.Duration

	// MaxNumber bounds the execution counts Autorange probes.
	MaxNumber int

	// CollectGarbage runs a collection after setup and before the clock
	// starts, so one trial's garbage is not charged to the next.
	CollectGarbage bool

	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

// Calibration is the outcome of Autorange.
type Calibration struct {
	Number  int
	Elapsed time.Duration

	// Degenerate is set when no probed count reached MinDuration and the
	// largest one was used instead.
	Degenerate bool
}

// Sample holds one elapsed time per trial, in seconds.
type Sample struct {
	Number     int
	Repeats    int
	Timings    []float64
	Calibrated bool
	Degenerate bool
}

// Min returns the fastest trial.
func (s Sample) Min() float64 {
	if len(s.Timings) == 0 {
		return 0
	}

	return slices.Min(s.Timings)
}

// Mean returns the average trial time.
func (s Sample) Mean() float64 {
	if len(s.Timings) == 0 {
		return 0
	}

	var sum float64
	for _, v := range s.Timings {
		sum += v
	}

	return sum / float64(len(s.Timings))
}

// PerExecution returns the fastest trial divided by the execution count.
func (s Sample) PerExecution() float64 {
	if s.Number == 0 {
		return 0
	}

	return s.Min() / float64(s.Number)
}

func (t *Timer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}

	return time.Now()
}

// Time runs the statement number times after a fresh setup and returns the
// elapsed time of the executions alone.
func (t *Timer) Time(number int) (time.Duration, error) {
	if t.Setup == nil {
		return 0, errors.New("timer has no setup")
	}

	stmt, err := t.Setup()
	if err != nil {
		return 0, fmt.Errorf("setup: %w", err)
	}

	if t.CollectGarbage {
		runtime.GC()
	}

	start := t.now()

	for i := 0; i < number; i++ {
		if err := stmt(); err != nil {
			return 0, fmt.Errorf("execution %d: %w", i, err)
		}
	}

	elapsed := t.now().Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}

	return elapsed, nil
}

// Autorange probes execution counts 1, 2, 5, 10, 20, 50, … until one trial
// lasts at least MinDuration. The chosen count is never below MinNumber.
func (t *Timer) Autorange() (Calibration, error) {
	minDuration := t.MinDuration
	if minDuration <= 0 {
		minDuration = DefaultMinDuration
	}

	maxNumber := t.MaxNumber
	if maxNumber <= 0 {
		maxNumber = DefaultMaxNumber
	}

	var last Calibration

	for base := 1; ; base *= 10 {
		for _, m := range []int{1, 2, 5} {
			number := base * m
			if number > maxNumber {
				last.Degenerate = true
				last.Number = max(last.Number, MinNumber)

				return last, nil
			}

			elapsed, err := t.Time(number)
			if err != nil {
				return Calibration{}, err
			}

			last = Calibration{Number: number, Elapsed: elapsed}

			if elapsed >= minDuration {
				last.Number = max(number, MinNumber)

				return last, nil
			}
		}
	}
}

// Repeat runs repeats trials of number executions each and returns the
// elapsed seconds of every trial.
func (t *Timer) Repeat(repeats, number int) ([]float64, error) {
	if repeats <= 0 {
		return nil, fmt.Errorf("repeats must be positive, got %d", repeats)
	}

	if number <= 0 {
		return nil, fmt.Errorf("number must be positive, got %d", number)
	}

	timings := make([]float64, 0, repeats)

	for i := 0; i < repeats; i++ {
		elapsed, err := t.Time(number)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}

		timings = append(timings, elapsed.Seconds())
	}

	return timings, nil
}

// Measure runs the full protocol. A number of zero or less calibrates the
// execution count with Autorange, and an explicit number is raised to
// MinNumber. A repeats of zero or less uses DefaultRepeats.
func (t *Timer) Measure(repeats, number int) (Sample, error) {
	if repeats <= 0 {
		repeats = DefaultRepeats
	}

	sample := Sample{Repeats: repeats, Number: max(number, MinNumber)}

	if number <= 0 {
		cal, err := t.Autorange()
		if err != nil {
			return Sample{}, fmt.Errorf("calibrate: %w", err)
		}

		sample.Number = cal.Number
		sample.Calibrated = true
		sample.Degenerate = cal.Degenerate
	}

	timings, err := t.Repeat(repeats, sample.Number)
	if err != nil {
		return Sample{}, err
	}

	sample.Timings = timings

	return sample, nil
}
