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

package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/intel/memmon/pkg/procmem"
	"github.com/intel/memmon/pkg/report"
	"github.com/intel/memmon/pkg/sampler"

	logger "github.com/intel/memmon/pkg/log"
	_ "github.com/intel/memmon/pkg/version"
)

func exit(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "memmon: "+format+"\n", a...)
	os.Exit(1)
}

// hostname returns the node name as the kernel reports it.
func hostname() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "unknown"
	}
	return string(bytes.TrimRight(uts.Nodename[:], "\x00"))
}

func main() {
	optDelay := flag.Float64("delay", 1.0, "delay between samples in seconds")
	optCount := flag.Int("count", 0, "number of samples to take, exclusive with -period")
	optPeriod := flag.Float64("period", 0, "total sampling period in seconds, exclusive with -count")
	optDebug := flag.Bool("debug", false, "enable debug logging")

	flag.Parse()

	log := logger.NewLogger("memmon")
	logger.EnableDebug(*optDebug)

	if len(flag.Args()) != 0 {
		exit("unknown command-line arguments: %s", strings.Join(flag.Args(), ","))
	}

	// flag presence, not value, decides whether -period was given, so
	// that an explicit "-period 0" fails resolution instead of being
	// silently treated as unset
	periodSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "period" {
			periodSet = true
		}
	})

	schedule := sampler.Schedule{
		Delay:     *optDelay,
		Count:     *optCount,
		Period:    *optPeriod,
		PeriodSet: periodSet,
	}
	if schedule.Count == 0 && !schedule.PeriodSet {
		schedule.Count = 1
	}
	if err := schedule.Resolve(); err != nil {
		exit("%v", err)
	}

	collector, err := procmem.NewCollector("/proc", "/sys")
	if err != nil {
		log.Fatalf("failed to set up memory collector: %v", err)
	}

	renderer := report.NewRenderer(os.Stdout, collector.Nodes())
	renderer.Banner(hostname(), schedule, collector.Policy())

	if err := sampler.New(schedule, collector, renderer).Run(); err != nil {
		log.Fatalf("sampling failed: %v", err)
	}
}
