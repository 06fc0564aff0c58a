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

package log

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger is the interface for producing log messages for a source.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Fatalf(format string, v ...interface{})
}

type logger struct {
	source string
}

var (
	mutex sync.Mutex
	out   io.Writer = os.Stderr
	debug bool
)

// NewLogger creates a logger for the given source. Messages go to stderr
// so that they never get interleaved with report output on stdout.
func NewLogger(source string) Logger {
	return &logger{source: source}
}

// SetOutput redirects all log output to the given writer.
func SetOutput(w io.Writer) {
	mutex.Lock()
	defer mutex.Unlock()
	out = w
}

// EnableDebug turns debug messages on or off for all loggers.
func EnableDebug(enabled bool) {
	mutex.Lock()
	defer mutex.Unlock()
	debug = enabled
}

// DebugEnabled returns whether debug messages are enabled.
func DebugEnabled() bool {
	mutex.Lock()
	defer mutex.Unlock()
	return debug
}

func (l *logger) emit(level, format string, v ...interface{}) {
	mutex.Lock()
	defer mutex.Unlock()
	fmt.Fprintf(out, level+" "+l.source+": "+format+"\n", v...)
}

func (l *logger) Debugf(format string, v ...interface{}) {
	if DebugEnabled() {
		l.emit("D:", format, v...)
	}
}

func (l *logger) Infof(format string, v ...interface{}) {
	l.emit("I:", format, v...)
}

func (l *logger) Warnf(format string, v ...interface{}) {
	l.emit("W:", format, v...)
}

func (l *logger) Errorf(format string, v ...interface{}) {
	l.emit("E:", format, v...)
}

func (l *logger) Fatalf(format string, v ...interface{}) {
	l.emit("F:", format, v...)
	os.Exit(1)
}
