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

package procmem

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	idset "github.com/intel/goresctrl/pkg/utils"

	logger "github.com/intel/memmon/pkg/log"
)

// meminfo keys the snapshot derivation depends on. A supported host
// always exposes all of them; any missing key fails the sample.
var requiredKeys = []string{
	"MemTotal", "MemFree", "Cached", "Buffers", "Slab",
	"Committed_AS", "CommitLimit", "Dirty", "Writeback",
	"AnonPages", "SReclaimable", "Hugepagesize", "HugePages_Free",
}

var requiredNodeKeys = []string{
	"MemFree", "FilePages", "SReclaimable", "HugePages_Free",
}

// NodeMem is the per-node slice of a snapshot. Values are kilobytes.
type NodeMem struct {
	Avail    uint64
	HugeFree uint64
}

// Snapshot is the derived memory state of one sample. All values are
// kilobytes; conversion to larger units happens at the render boundary
// only. Avail and Used are signed: under strict accounting Committed_AS
// can exceed CommitLimit, and CommitLimit routinely exceeds MemTotal on
// hosts with swap, so either difference can be negative on a valid
// kernel state.
type Snapshot struct {
	Time        time.Time
	Total       uint64
	Used        int64
	Free        uint64
	Cached      uint64
	Buffers     uint64
	Slab        uint64
	CommittedAS uint64
	CommitLimit uint64
	Dirty       uint64
	Writeback   uint64
	Anon        uint64
	Avail       int64
	Nodes       map[idset.ID]NodeMem
}

// Collector reads the kernel memory interfaces and derives snapshots.
// The accounting policy and the node set are resolved once when the
// collector is created and never re-read.
type Collector struct {
	procRoot string
	sysRoot  string
	policy   AccountingPolicy
	nodes    idset.IDSet
	log      logger.Logger
}

// NewCollector resolves the accounting policy and the node topology and
// returns a collector bound to them.
func NewCollector(procRoot, sysRoot string) (*Collector, error) {
	policy, err := ResolveAccountingPolicy(procRoot)
	if err != nil {
		return nil, err
	}
	nodes, err := DiscoverNodes(procRoot)
	if err != nil {
		return nil, err
	}
	c := &Collector{
		procRoot: procRoot,
		sysRoot:  sysRoot,
		policy:   policy,
		nodes:    nodes,
		log:      logger.NewLogger("procmem"),
	}
	c.log.Debugf("%s accounting, %d memory node(s)", policy, nodes.Size())
	return c, nil
}

// Policy returns the resolved accounting policy.
func (c *Collector) Policy() AccountingPolicy {
	return c.policy
}

// Nodes returns the discovered node set.
func (c *Collector) Nodes() idset.IDSet {
	return c.nodes
}

// Collect reads the global and per-node memory interfaces and derives a
// snapshot. Snapshots are all-or-nothing: any unreadable interface or
// missing counter fails the whole sample.
func (c *Collector) Collect() (*Snapshot, error) {
	mem, err := readMeminfo(filepath.Join(c.procRoot, "meminfo"))
	if err != nil {
		return nil, err
	}
	if err := verifyKeys(mem, requiredKeys, filepath.Join(c.procRoot, "meminfo")); err != nil {
		return nil, err
	}

	snap := deriveSnapshot(mem, c.policy)
	snap.Time = time.Now()

	snap.Nodes = make(map[idset.ID]NodeMem, c.nodes.Size())
	for _, id := range c.nodes.SortedMembers() {
		path := filepath.Join(c.sysRoot, "devices", "system", "node",
			fmt.Sprintf("node%d", id), "meminfo")
		nodes, err := readNodeMeminfo(path)
		if err != nil {
			return nil, err
		}
		values := nodes[id]
		if err := verifyKeys(values, requiredNodeKeys, path); err != nil {
			return nil, err
		}
		snap.Nodes[id] = deriveNodeMem(values, mem["Hugepagesize"])
	}

	return snap, nil
}

// deriveSnapshot computes the global derived fields from raw counters.
func deriveSnapshot(mem map[string]uint64, policy AccountingPolicy) *Snapshot {
	snap := &Snapshot{
		Total:       mem["MemTotal"],
		Free:        mem["MemFree"],
		Cached:      mem["Cached"],
		Buffers:     mem["Buffers"],
		Slab:        mem["Slab"],
		CommittedAS: mem["Committed_AS"],
		CommitLimit: mem["CommitLimit"],
		Dirty:       mem["Dirty"],
		Writeback:   mem["Writeback"],
		Anon:        mem["AnonPages"],
	}

	if policy == PolicyStrict {
		snap.Avail = int64(snap.CommitLimit) - int64(snap.CommittedAS)
	} else {
		snap.Avail = int64(snap.Free + snap.Cached + snap.Buffers + mem["SReclaimable"])
	}
	snap.Used = int64(snap.Total) - snap.Avail

	return snap
}

// deriveNodeMem computes the per-node derived fields. Node interfaces
// expose FilePages rather than Cached, so node availability is counted
// from FilePages. Free hugepage capacity uses the global hugepage size
// for every node; per-node hugepage sizes are not modeled.
func deriveNodeMem(values map[string]uint64, hugepagesize uint64) NodeMem {
	return NodeMem{
		Avail:    values["MemFree"] + values["FilePages"] + values["SReclaimable"],
		HugeFree: values["HugePages_Free"] * hugepagesize,
	}
}

// verifyKeys checks that every counter the derivation needs is present,
// reporting all missing ones at once.
func verifyKeys(values map[string]uint64, keys []string, path string) error {
	var errs *multierror.Error
	for _, key := range keys {
		if _, ok := values[key]; !ok {
			errs = multierror.Append(errs, fmt.Errorf("%s: missing required key %q", path, key))
		}
	}
	return errs.ErrorOrNil()
}
