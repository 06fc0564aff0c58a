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

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	idset "github.com/intel/goresctrl/pkg/utils"

	"github.com/intel/memmon/pkg/procmem"
	"github.com/intel/memmon/pkg/sampler"
)

// headerInterval is the number of data rows between repeated headers.
const headerInterval = 15

// kbPerMB converts stored kilobyte values to megabytes. This is the
// only place where report units leave the kilobyte domain.
const kbPerMB = 1024.0

const timeFormat = "2006-01-02 15:04:05.000"

// global columns, in row order after the timestamp
var columns = []string{
	"Total", "Used", "Free", "Cached", "Buffers", "Slab",
	"CmtAS", "CmtLim", "Dirty", "Wrback", "Anon", "Avail",
}

func kbToMB(kb int64) float64 {
	return float64(kb) / kbPerMB
}

// Renderer writes the sample report: a banner, a column header repeated
// every headerInterval rows, one fixed-width row per sample and a
// completion marker. It owns the row counter; nothing else tracks
// render state.
type Renderer struct {
	w     io.Writer
	nodes []idset.ID
	rows  int
}

var _ sampler.Sink = &Renderer{}

// NewRenderer creates a renderer emitting per-node columns for the
// given nodes in ascending id order.
func NewRenderer(w io.Writer, nodes idset.IDSet) *Renderer {
	return &Renderer{w: w, nodes: nodes.SortedMembers()}
}

// Banner states the resolved configuration before the first sample.
func (r *Renderer) Banner(host string, schedule sampler.Schedule, policy procmem.AccountingPolicy) {
	fmt.Fprintf(r.w, "memmon on %s: delay %gs, %d sample(s), period %gs, %s accounting, unit MB\n",
		host, schedule.Delay, schedule.Count, schedule.Period, policy)
}

func (r *Renderer) header() {
	b := &strings.Builder{}
	fmt.Fprintf(b, "%-23s", "time")
	for _, col := range columns {
		fmt.Fprintf(b, " %9s", col)
	}
	for _, id := range r.nodes {
		fmt.Fprintf(b, " %9s %9s", fmt.Sprintf("%d:Avail", id), fmt.Sprintf("%d:HFree", id))
	}
	fmt.Fprintln(r.w, b.String())
}

// Row renders one sample. The header precedes the first row and every
// headerInterval'th row after it.
func (r *Renderer) Row(snap *procmem.Snapshot) {
	r.rows++
	if r.rows%headerInterval == 1 {
		r.header()
	}

	b := &strings.Builder{}
	fmt.Fprintf(b, "%-23s", snap.Time.Format(timeFormat))
	for _, kb := range []int64{
		int64(snap.Total), snap.Used, int64(snap.Free), int64(snap.Cached),
		int64(snap.Buffers), int64(snap.Slab), int64(snap.CommittedAS),
		int64(snap.CommitLimit), int64(snap.Dirty), int64(snap.Writeback),
		int64(snap.Anon), snap.Avail,
	} {
		fmt.Fprintf(b, " %9.1f", kbToMB(kb))
	}
	for _, id := range r.nodes {
		node := snap.Nodes[id]
		fmt.Fprintf(b, " %9.1f %9.1f", kbToMB(int64(node.Avail)), kbToMB(int64(node.HugeFree)))
	}
	fmt.Fprintln(r.w, b.String())
}

// Done emits the completion marker.
func (r *Renderer) Done(samples int, elapsed time.Duration) {
	fmt.Fprintf(r.w, "memmon: done, %d sample(s) in %.3fs\n", samples, elapsed.Seconds())
}
