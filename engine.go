// Copyright 2015 Google Inc. All rights reserved
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Engine is the single evaluator context carrying option/pragma state,
// the interned tables and the current parse/build position, threaded
// through parsing, expansion and evaluation — the Design Notes call out
// this shape explicitly ("a single evaluator context ... must be
// threaded through ... rather than stored globally") to keep signal
// handling and diagnostics simple. It plays the role the teacher's
// Evaluator (eval.go) plays for kati, generalized to also own the
// symbol/macro tables instead of a separate DepGraph.
package pmake

import (
	"fmt"
	"io"
	"os"
)

// options holds the CLI/environment-derived flags from spec §6.
type options struct {
	posix          posixMode
	pragmas        pragma
	ignoreErrors   bool // -i, also set by .IGNORE
	keepGoing      bool // -k
	dryRun         bool // -n
	question       bool // -q
	silent         bool // -s, also set by .SILENT
	touch          bool // -t
	noBuiltinRules bool // -r
	printDetails   bool // -p
	envOverride    bool // -e
	jobs           int  // -j N, parsed and otherwise ignored (spec §1 Non-goals)
	chdir          string
	makefiles      []string
}

// Engine is the exported entry point: construct one, feed it makefiles
// via ReadFile/ReadString, then call Make for each requested
// target. cmd/pmake is a thin wrapper around exactly this sequence.
type Engine struct {
	opt   options
	names *symtab
	macs  *macros

	cond         []condFrame
	includeDepth int

	curFile string
	curLine int

	curTarget *name // weak pointer, read by signal handling (spec §5)

	orderedNames []string // first-interned order, for -p dump
	firstTarget  string   // first normal (non-special, non-inference) target seen, the default goal

	stdout io.Writer
	stderr io.Writer

	makePath string // $(MAKE): absolute path used to invoke the process
	didMake  bool   // "opts |= OPT_make" equivalent: did we ever expand $(MAKE)?

	defaultSuffixes []string // .SUFFIXES list, in declaration order
}

// NewEngine builds an Engine with empty name and macro tables and the
// default (extensions-enabled) options. Built-in macros and rules are
// not loaded here; LoadBuiltins does that.
func NewEngine() *Engine {
	e := &Engine{
		names:  newSymtab(),
		macs:   newMacros(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		opt:    options{posix: posixExt},
	}
	return e
}

func (e *Engine) loc() location {
	return location{file: e.curFile, line: e.curLine}
}

func (e *Engine) fatalf(format string, a ...interface{}) {
	fatalf(e.loc(), format, a...)
}

func (e *Engine) warnf(format string, a ...interface{}) {
	warnf(e.loc(), format, a...)
}

// expander returns an expander bound to this Engine's macro table and
// current POSIX-2017-ness, the only two things expand() needs.
func (e *Engine) expander() *expander {
	return newExpander(e.macs, e.opt.posix == posix2017, e.loc())
}

func (e *Engine) expand(s string) string {
	return e.expander().expand(s, false)
}

// macroIsDefined implements the ifdef/ifndef test from
// original_source/input.c's skip_line(): the name (itself macro-
// expanded first, so "ifdef $(X)" works) must be bound to a non-empty
// value, not merely bound.
func (e *Engine) macroIsDefined(rawName string) bool {
	name := e.expand(rawName)
	mv := e.macs.lookup(name)
	return mv != nil && mv.value != ""
}

// internOrdered interns name s and records first-interned order for -p.
func (e *Engine) internOrdered(s string) *name {
	if e.names.find(s) == nil {
		e.orderedNames = append(e.orderedNames, s)
	}
	return e.names.intern(s)
}

// print writes to the Engine's stdout, the hook tests use to capture
// output instead of the real os.Stdout.
func (e *Engine) print(format string, a ...interface{}) {
	fmt.Fprintf(e.stdout, format, a...)
}

// DefaultGoal returns the first normal target defined across every
// makefile read so far, original_source/target.c's firstname — the
// target cmd/pmake builds when invoked with no target arguments.
func (e *Engine) DefaultGoal() (string, bool) {
	return e.firstTarget, e.firstTarget != ""
}

// LoadBuiltins feeds the built-in macros/rules text (spec §6, "Built-in
// rules") through the same parser used for real makefiles, matching
// original_source/main.c's call to getrules() before any user makefile
// is read. Call it once options are finalized (posix mode, -r) and
// before reading the user's makefile(s).
func (e *Engine) LoadBuiltins() error {
	text := builtinRulesText(e.opt.posix, e.opt.noBuiltinRules)
	return e.ReadString(text, "<builtin>")
}
