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
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// AccountingPolicy selects how available memory is derived from the raw
// kernel counters.
type AccountingPolicy int

const (
	// PolicyHeuristic derives availability from free memory plus
	// reclaimable caches and buffers.
	PolicyHeuristic AccountingPolicy = iota
	// PolicyStrict derives availability from the kernel overcommit
	// limit and the currently committed address space.
	PolicyStrict
)

// overcommitStrict is the overcommit_memory setting for strict accounting.
const overcommitStrict = 2

func (p AccountingPolicy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "heuristic"
}

// ResolveAccountingPolicy reads the kernel overcommit switch below the
// given proc root. It is resolved once per process lifetime; the setting
// is not re-read between samples.
func ResolveAccountingPolicy(procRoot string) (AccountingPolicy, error) {
	path := filepath.Join(procRoot, "sys", "vm", "overcommit_memory")
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return PolicyHeuristic, &InterfaceUnavailableError{Path: path, Err: err}
	}
	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return PolicyHeuristic, errors.Wrapf(err, "failed to parse %s", path)
	}
	if value == overcommitStrict {
		return PolicyStrict, nil
	}
	return PolicyHeuristic, nil
}
