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
	"io/ioutil"
	"path/filepath"
	"strings"

	idset "github.com/intel/goresctrl/pkg/utils"
)

// DiscoverNodes enumerates the memory nodes of the host by counting
// distinct "physical id" fields in the CPU description interface below
// the given proc root. The node set is discovered once and stays fixed
// for the process lifetime.
//
// Note: this equates physical socket count with memory node count. The
// two can differ, for example with sub-NUMA clustering. The socket-based
// count is a known approximation kept for compatibility with existing
// deployments of the reports this tool produces.
func DiscoverNodes(procRoot string) (idset.IDSet, error) {
	path := filepath.Join(procRoot, "cpuinfo")
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, &InterfaceUnavailableError{Path: path, Err: err}
	}

	sockets := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		sep := strings.IndexByte(line, ':')
		if sep < 0 {
			continue
		}
		if strings.TrimSpace(line[:sep]) != "physical id" {
			continue
		}
		sockets[strings.TrimSpace(line[sep+1:])] = struct{}{}
	}

	// A host without "physical id" fields yields an empty node set,
	// the snapshot then carries no per-node data.
	nodes := idset.NewIDSet()
	for id := 0; id < len(sockets); id++ {
		nodes.Add(idset.ID(id))
	}
	return nodes, nil
}
