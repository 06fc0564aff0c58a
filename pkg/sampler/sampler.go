// Copyright 2023 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sampler

import (
	"fmt"
	"math"
	"time"

	"github.com/intel/memmon/pkg/procmem"

	logger "github.com/intel/memmon/pkg/log"
)

// MinDelay is the shortest accepted sampling delay.
const MinDelay = 0.01

// SleepOverheadMicros is subtracted from every inter-sample sleep to
// compensate for per-iteration processing cost, so that the measured
// inter-arrival time tracks the requested delay. The value is empirical.
// Changing it changes the measured cadence of existing deployments.
const SleepOverheadMicros = 600

// Schedule is the resolved sampling cadence. Exactly one of Count and
// Period is given by the user; Resolve derives the other so that
// Period == Delay * Count always holds afterwards.
type Schedule struct {
	// Delay is the requested inter-sample delay in seconds.
	Delay float64
	// Count is the number of samples to take.
	Count int
	// Period is the total sampling period in seconds.
	Period float64
	// PeriodSet records whether the period was user-supplied, in
	// which case it is also enforced as an absolute deadline.
	PeriodSet bool
}

// Resolve validates a schedule and derives the non-authoritative half
// of the Count/Period pair.
func (s *Schedule) Resolve() error {
	if s.Delay < MinDelay {
		return fmt.Errorf("delay %g below minimum %g seconds", s.Delay, MinDelay)
	}
	switch {
	case s.PeriodSet && s.Count > 0:
		return fmt.Errorf("only one of sample count and period may be given")
	case s.PeriodSet:
		if s.Period <= 0 {
			return fmt.Errorf("period %g must be positive", s.Period)
		}
		s.Count = int(math.Round(s.Period / s.Delay))
		if s.Count < 1 {
			s.Count = 1
		}
	case s.Count > 0:
		s.Period = s.Delay * float64(s.Count)
	default:
		return fmt.Errorf("one of sample count and period must be given")
	}
	return nil
}

// Source produces one memory snapshot per call.
type Source interface {
	Collect() (*procmem.Snapshot, error)
}

// Sink consumes rendered samples.
type Sink interface {
	Row(*procmem.Snapshot)
	Done(samples int, elapsed time.Duration)
}

// Sampler runs the sampling loop: sleep, timestamp, collect, render.
// It is strictly sequential; the inter-sample sleep is the only point
// where it blocks.
type Sampler struct {
	// SleepOverhead overrides the default sleep compensation.
	SleepOverhead time.Duration

	schedule Schedule
	source   Source
	sink     Sink
	log      logger.Logger
}

// New creates a sampler for a resolved schedule.
func New(schedule Schedule, source Source, sink Sink) *Sampler {
	return &Sampler{
		SleepOverhead: SleepOverheadMicros * time.Microsecond,
		schedule:      schedule,
		source:        source,
		sink:          sink,
		log:           logger.NewLogger("sampler"),
	}
}

// Run takes samples until the schedule is exhausted. When the period
// was user-supplied it is also an absolute deadline: the loop stops
// after the first sample taken past it, even with samples left in the
// count. Any collection error stops the loop; no partial sample is
// ever rendered.
func (s *Sampler) Run() error {
	interval := time.Duration(s.schedule.Delay*float64(time.Second)) - s.SleepOverhead
	if interval < 0 {
		interval = 0
	}

	start := time.Now()
	deadline := start.Add(time.Duration(s.schedule.Period * float64(time.Second)))
	prev := start
	taken := 0

	for i := 1; i <= s.schedule.Count; i++ {
		time.Sleep(interval)
		t1 := time.Now()
		elapsed := t1.Sub(prev)
		prev = t1

		snap, err := s.source.Collect()
		if err != nil {
			return err
		}
		snap.Time = t1
		s.sink.Row(snap)
		taken++
		s.log.Debugf("sample %d/%d, %.3fs since previous", i, s.schedule.Count, elapsed.Seconds())

		if s.schedule.PeriodSet && t1.After(deadline) {
			s.log.Debugf("period deadline passed after %d sample(s)", taken)
			break
		}
	}

	s.sink.Done(taken, time.Since(start))
	return nil
}
