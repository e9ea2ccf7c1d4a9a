// Package harness runs the simulated flight-control loop and accounts for each
// cycle against its deadline budget.
//
// A Harness owns the seeded point batch, the transform matrix and the output
// batch for its lifetime. Each run selects one kernel variant and executes a
// fixed number of cycles:
//  1. read the monotonic clock
//  2. transform the whole batch with the selected variant
//  3. read the clock again and derive compute time in milliseconds
//  4. block for the forced delay, if any
//  5. compose the total from compute time, overhead, delay and jitter
//  6. classify the cycle as met or missed and hand the record to observers
//
// Cycles run sequentially on the caller's goroutine. A cycle never fails; the
// only errors come from construction and variant selection.
package harness

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sbl8/flightloop/config"
	"github.com/sbl8/flightloop/core"
	"github.com/sbl8/flightloop/kernels"
)

// Phase is the lifecycle state of a run.
type Phase int32

const (
	PhaseInit Phase = iota
	PhaseRunning
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "INIT"
	case PhaseRunning:
		return "RUNNING"
	case PhaseDone:
		return "DONE"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Options configures harness behavior
type Options struct {
	Clock     Clock
	Logger    logrus.FieldLogger
	Observers []Observer
	// Matrix replaces the seeded transform matrix when non-nil.
	Matrix *core.Matrix
}

// Stats accumulates over every run of a harness.
type Stats struct {
	Runs      int64
	Cycles    int64
	Met       int64
	Missed    int64
	PerKernel map[kernels.Variant]int64
}

// DefaultOptions provides the system clock and the standard logger.
func DefaultOptions() Options {
	return Options{
		Clock:  SystemClock{},
		Logger: logrus.StandardLogger(),
	}
}

// Harness executes cycle runs over a fixed batch.
type Harness struct {
	profile config.Profile
	clock   Clock
	log     logrus.FieldLogger
	obs     Observers

	batch  *core.PointBatch
	matrix core.Matrix
	out    *core.OutputBatch

	phase atomic.Int32
	runMu sync.Mutex

	mu    sync.RWMutex
	stats Stats
}

// NewHarness validates the profile and allocates the batches.
func NewHarness(profile config.Profile, opts *Options) (*Harness, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("harness: %w", err)
	}

	o := DefaultOptions()
	if opts != nil {
		if opts.Clock != nil {
			o.Clock = opts.Clock
		}
		if opts.Logger != nil {
			o.Logger = opts.Logger
		}
		o.Observers = opts.Observers
		o.Matrix = opts.Matrix
	}

	batch, err := core.SeedSensorBatch(profile.Points)
	if err != nil {
		return nil, fmt.Errorf("harness: seed batch: %w", err)
	}
	out, err := core.NewOutputBatch(profile.Points)
	if err != nil {
		return nil, fmt.Errorf("harness: output batch: %w", err)
	}

	h := &Harness{
		profile: profile,
		clock:   o.Clock,
		log:     o.Logger,
		obs:     append(Observers(nil), o.Observers...),
		batch:   batch,
		matrix:  core.NewTransformMatrix(),
		out:     out,
		stats:   Stats{PerKernel: make(map[kernels.Variant]int64)},
	}
	if o.Matrix != nil {
		h.matrix = *o.Matrix
	}
	return h, nil
}

// Profile returns the constants the harness was built with.
func (h *Harness) Profile() config.Profile { return h.profile }

// Batch returns the seeded input batch.
func (h *Harness) Batch() *core.PointBatch { return h.batch }

// Output returns the output batch as left by the last cycle.
func (h *Harness) Output() *core.OutputBatch { return h.out }

// Matrix returns a copy of the transform matrix.
func (h *Harness) Matrix() core.Matrix { return h.matrix }

// Phase reports the state of the current or last run.
func (h *Harness) Phase() Phase { return Phase(h.phase.Load()) }

// AddObserver registers obs for subsequent runs.
func (h *Harness) AddObserver(obs Observer) {
	h.runMu.Lock()
	h.obs = append(h.obs, obs)
	h.runMu.Unlock()
}

// Run executes every cycle of the profile with variant v. Concurrent calls are
// serialized.
func (h *Harness) Run(v kernels.Variant) (Summary, error) {
	if !v.Valid() {
		return Summary{}, fmt.Errorf("harness: %w: %s", kernels.ErrUnknownVariant, v)
	}

	h.runMu.Lock()
	defer h.runMu.Unlock()

	h.phase.Store(int32(PhaseInit))
	fn := v.Descriptor().Fn
	p := h.profile

	info := RunInfo{
		Variant:       v,
		Points:        p.Points,
		Cycles:        p.Cycles,
		BudgetMs:      p.BudgetMs,
		OverheadMs:    p.OverheadMs,
		ForcedDelayMs: p.ForcedDelayMs,
		JitterMs:      p.JitterMs,
		SpikeCycle:    p.SpikeIndex(),
		Started:       h.clock.Now(),
	}
	log := h.log.WithField("variant", v.String())
	log.WithFields(logrus.Fields{
		"points": p.Points,
		"cycles": p.Cycles,
		"budget": p.BudgetMs,
	}).Info("run started")

	h.obs.RunStarted(info)
	h.phase.Store(int32(PhaseRunning))

	sum := Summary{Variant: v}
	delay := p.ForcedDelay()
	for c := 1; c <= p.Cycles; c++ {
		rec := h.cycle(c, v, fn, delay)
		sum.add(rec)

		entry := log.WithFields(logrus.Fields{
			"cycle":   rec.Cycle,
			"compute": rec.ComputeMs,
			"total":   rec.TotalMs,
		})
		if rec.Met {
			entry.Debug("cycle met")
		} else {
			entry.Warn("cycle missed budget")
		}
		h.obs.CycleCompleted(rec)
	}
	sum.Elapsed = h.clock.Now().Sub(info.Started)

	h.phase.Store(int32(PhaseDone))
	h.updateStats(sum)

	log.WithFields(logrus.Fields{
		"met":    sum.Met,
		"missed": sum.Missed,
		"worst":  sum.WorstTotalMs,
	}).Info("run finished")
	h.obs.RunFinished(sum)
	return sum, nil
}

// RunAll runs each variant in order and returns their summaries. It stops at
// the first invalid variant.
func (h *Harness) RunAll(variants []kernels.Variant) ([]Summary, error) {
	if len(variants) == 0 {
		return nil, errors.New("harness: no variants selected")
	}
	out := make([]Summary, 0, len(variants))
	for _, v := range variants {
		sum, err := h.Run(v)
		if err != nil {
			return out, err
		}
		out = append(out, sum)
	}
	return out, nil
}

// cycle measures one kernel invocation and composes its record.
func (h *Harness) cycle(c int, v kernels.Variant, fn kernels.KernelFn, delay time.Duration) CycleRecord {
	p := h.profile

	start := h.clock.Now()
	fn(h.out.Points(), h.batch.Points(), &h.matrix)
	end := h.clock.Now()

	rec := CycleRecord{
		Cycle:      c,
		Variant:    v,
		ComputeMs:  ElapsedMillis(start, end),
		OverheadMs: p.OverheadMs,
		BudgetMs:   p.BudgetMs,
	}
	rec.TotalMs = rec.ComputeMs + rec.OverheadMs

	if delay > 0 {
		h.clock.Sleep(delay)
		rec.ForcedDelayMs = p.ForcedDelayMs
		rec.TotalMs += rec.ForcedDelayMs
	}
	if p.IsSpike(c) {
		rec.Spike = true
		rec.JitterMs = p.JitterMs
		rec.TotalMs += rec.JitterMs
	}
	rec.Met = Classify(rec.TotalMs, p.BudgetMs)
	return rec
}

// Classify reports whether a cycle total fits its budget. Equality counts as met.
func Classify(totalMs, budgetMs float64) bool {
	return totalMs <= budgetMs
}

func (h *Harness) updateStats(sum Summary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.Runs++
	h.stats.Cycles += int64(sum.Cycles)
	h.stats.Met += int64(sum.Met)
	h.stats.Missed += int64(sum.Missed)
	h.stats.PerKernel[sum.Variant]++
}

// Stats returns a copy of the accumulated statistics.
func (h *Harness) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := h.stats
	stats.PerKernel = make(map[kernels.Variant]int64, len(h.stats.PerKernel))
	for k, v := range h.stats.PerKernel {
		stats.PerKernel[k] = v
	}
	return stats
}
