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
	"io/ioutil"
	"strconv"
	"strings"

	idset "github.com/intel/goresctrl/pkg/utils"
)

// InterfaceUnavailableError indicates that a required kernel interface
// could not be read. There is no retry for these: a missing interface
// means the host is not supported.
type InterfaceUnavailableError struct {
	Path string
	Err  error
}

func (e *InterfaceUnavailableError) Error() string {
	return fmt.Sprintf("kernel interface %s unavailable: %v", e.Path, e.Err)
}

func (e *InterfaceUnavailableError) Unwrap() error {
	return e.Err
}

// stripControlChars removes control characters that have been seen to
// leak into kernel text interfaces.
func stripControlChars(line string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case 0x00, 0x07, 0x0c, 0x0d, 0x1b:
			return -1
		}
		return r
	}, line)
}

// parseMeminfoLine picks a "<key>: <value> [kB]" line apart. Lines that
// do not match are reported with ok == false and skipped by the callers.
func parseMeminfoLine(line string) (string, uint64, bool) {
	line = stripControlChars(line)
	sep := strings.IndexByte(line, ':')
	if sep < 1 {
		return "", 0, false
	}
	key := line[:sep]
	if strings.ContainsAny(key, " \t") {
		return "", 0, false
	}
	fields := strings.Fields(line[sep+1:])
	if len(fields) < 1 {
		return "", 0, false
	}
	value, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return key, value, true
}

// parseNodeMeminfoLine picks a "Node <id> <key>: <value> [kB]" line apart.
func parseNodeMeminfoLine(line string) (idset.ID, string, uint64, bool) {
	fields := strings.Fields(stripControlChars(line))
	if len(fields) < 4 || fields[0] != "Node" {
		return -1, "", 0, false
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil || id < 0 {
		return -1, "", 0, false
	}
	key := strings.TrimSuffix(fields[2], ":")
	if key == fields[2] {
		return -1, "", 0, false
	}
	value, err := strconv.ParseUint(fields[3], 10, 64)
	if err != nil {
		return -1, "", 0, false
	}
	return idset.ID(id), key, value, true
}

// readMeminfo reads a flat "<key>: <value>" interface, /proc/meminfo and
// the like, into a key-value map.
func readMeminfo(path string) (map[string]uint64, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, &InterfaceUnavailableError{Path: path, Err: err}
	}

	values := make(map[string]uint64)
	for _, line := range strings.Split(string(data), "\n") {
		if key, value, ok := parseMeminfoLine(line); ok {
			values[key] = value
		}
	}
	return values, nil
}

// readNodeMeminfo reads a node-scoped "Node <id> <key>: <value>" interface,
// /sys/devices/system/node/node*/meminfo, into a per-node key-value map.
func readNodeMeminfo(path string) (map[idset.ID]map[string]uint64, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, &InterfaceUnavailableError{Path: path, Err: err}
	}

	nodes := make(map[idset.ID]map[string]uint64)
	for _, line := range strings.Split(string(data), "\n") {
		id, key, value, ok := parseNodeMeminfoLine(line)
		if !ok {
			continue
		}
		values, ok := nodes[id]
		if !ok {
			values = make(map[string]uint64)
			nodes[id] = values
		}
		values[key] = value
	}
	return nodes, nil
}
