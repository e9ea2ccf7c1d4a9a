package harness

import (
	"math"
	"time"
)

// Clock is the time source of a run. Now must carry a monotonic reading;
// Sleep blocks for at least d and cannot be interrupted.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock reads the process monotonic clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// ElapsedMillis converts the monotonic interval [start, end] to fractional
// milliseconds as whole seconds times 1000 plus the sub-second remainder.
// A negative interval yields 0.
func ElapsedMillis(start, end time.Time) float64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	sec := d / time.Second
	rem := d % time.Second
	return float64(sec)*1000 + float64(rem)/1e6
}

// DefaultCalibrationSamples is used when Calibrate is given no sample count.
const DefaultCalibrationSamples = 1000

// Calibration describes the cost of back-to-back clock reads, which bounds
// how finely compute time can be resolved.
type Calibration struct {
	Samples int
	Min     time.Duration
	Mean    time.Duration
	Max     time.Duration

	// Sum of the reference workload, kept so the loop is not optimized out.
	Checksum uint64
	// Workload is the time taken to sum the reference loop once.
	Workload time.Duration
}

// CalibrationLoop is the iteration count of the reference summation workload.
const CalibrationLoop = 1000000

// Calibrate samples clock read overhead and times one pass of a fixed
// summation loop, giving tools a sanity check on the timing source.
func Calibrate(clock Clock, samples int) Calibration {
	if samples <= 0 {
		samples = DefaultCalibrationSamples
	}

	cal := Calibration{Samples: samples, Min: time.Duration(math.MaxInt64)}
	var total time.Duration
	for i := 0; i < samples; i++ {
		a := clock.Now()
		b := clock.Now()
		d := b.Sub(a)
		if d < 0 {
			d = 0
		}
		total += d
		if d < cal.Min {
			cal.Min = d
		}
		if d > cal.Max {
			cal.Max = d
		}
	}
	cal.Mean = total / time.Duration(samples)

	start := clock.Now()
	var sum uint64
	for i := uint64(0); i < CalibrationLoop; i++ {
		sum += i
	}
	cal.Workload = clock.Now().Sub(start)
	if cal.Workload < 0 {
		cal.Workload = 0
	}
	cal.Checksum = sum
	return cal
}

// ResolutionMs returns the mean read overhead in milliseconds.
func (c Calibration) ResolutionMs() float64 {
	return float64(c.Mean) / 1e6
}
