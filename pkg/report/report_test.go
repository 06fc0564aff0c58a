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
	"bytes"
	"strings"
	"testing"
	"time"

	idset "github.com/intel/goresctrl/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intel/memmon/pkg/procmem"
	"github.com/intel/memmon/pkg/sampler"
)

func testSnapshot() *procmem.Snapshot {
	return &procmem.Snapshot{
		Time:        time.Date(2023, 4, 5, 12, 34, 56, 789000000, time.Local),
		Total:       1000000,
		Used:        430000,
		Free:        200000,
		Cached:      300000,
		Buffers:     50000,
		Slab:        40000,
		CommittedAS: 500000,
		CommitLimit: 900000,
		Dirty:       1000,
		Writeback:   500,
		Anon:        100000,
		Avail:       570000,
		Nodes: map[idset.ID]procmem.NodeMem{
			0: {Avail: 312000, HugeFree: 12288},
			1: {Avail: 208000, HugeFree: 8192},
		},
	}
}

func TestRowValues(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewRenderer(buf, idset.NewIDSet(1, 0))
	r.Row(testSnapshot())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	header, row := lines[0], lines[1]
	assert.True(t, strings.HasPrefix(header, "time"))
	assert.Contains(t, header, "Total")
	assert.Contains(t, header, "0:Avail")
	assert.Contains(t, header, "0:HFree")
	assert.Contains(t, header, "1:Avail")

	assert.True(t, strings.HasPrefix(row, "2023-04-05 12:34:56.789"))
	fields := strings.Fields(row)
	// timestamp (2 fields), 12 globals, 2 per node
	require.Len(t, fields, 2+12+4)
	assert.Equal(t, "976.6", fields[2])  // Total
	assert.Equal(t, "419.9", fields[3])  // Used
	assert.Equal(t, "556.6", fields[13]) // Avail
	// node columns in ascending node id order
	assert.Equal(t, "304.7", fields[14]) // 0:Avail
	assert.Equal(t, "12.0", fields[15])  // 0:HFree
	assert.Equal(t, "203.1", fields[16]) // 1:Avail
	assert.Equal(t, "8.0", fields[17])   // 1:HFree
}

// Strict accounting can derive negative Avail and Used; the row keeps
// the sign instead of wrapping.
func TestRowNegativeValues(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewRenderer(buf, idset.NewIDSet())
	snap := testSnapshot()
	snap.Nodes = nil
	snap.Avail = -50000
	snap.Used = 1050000
	r.Row(snap)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	fields := strings.Fields(lines[1])
	require.Len(t, fields, 2+12)
	assert.Equal(t, "1025.4", fields[3]) // Used
	assert.Equal(t, "-48.8", fields[13]) // Avail
}

// 30 rendered rows produce headers exactly before rows 1 and 16.
func TestHeaderCadence(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewRenderer(buf, idset.NewIDSet())
	for i := 0; i < 30; i++ {
		r.Row(testSnapshot())
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 32)

	headers := []int{}
	for i, line := range lines {
		if strings.HasPrefix(line, "time") {
			headers = append(headers, i)
		}
	}
	assert.Equal(t, []int{0, 16}, headers)
}

func TestNoNodeColumns(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewRenderer(buf, idset.NewIDSet())
	snap := testSnapshot()
	snap.Nodes = nil
	r.Row(snap)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], ":Avail")
	require.Len(t, strings.Fields(lines[1]), 2+12)
}

func TestBannerAndDone(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewRenderer(buf, idset.NewIDSet(0))

	schedule := sampler.Schedule{Delay: 0.5, Count: 10, Period: 5.0}
	r.Banner("testhost", schedule, procmem.PolicyStrict)
	r.Done(10, 5*time.Second)

	out := buf.String()
	assert.Contains(t, out, "testhost")
	assert.Contains(t, out, "delay 0.5s")
	assert.Contains(t, out, "10 sample(s)")
	assert.Contains(t, out, "period 5s")
	assert.Contains(t, out, "strict accounting")
	assert.Contains(t, out, "done, 10 sample(s) in 5.000s")
}
